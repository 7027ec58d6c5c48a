package handler

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/reviewhub_go_server/internal/model/dto"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/response"
	"github.com/qs3c/reviewhub_go_server/internal/service"
	"github.com/qs3c/reviewhub_go_server/internal/testutil"
)

func paymentMethodRouter(env *testEnv, userID int64) *gin.Engine {
	svc := service.NewPaymentMethodService(env.paymentMethodRepo, env.keepz)
	handler := NewPaymentMethodHandler(svc)

	router := gin.New()
	authed := router.Group("", asUser(userID))
	authed.POST("/payment-methods", handler.SaveCard)
	authed.GET("/payment-methods", handler.List)
	authed.DELETE("/payment-methods/:id", handler.Delete)
	return router
}

func TestPaymentMethodHandler_SaveCard(t *testing.T) {
	env := setupEnv(t)
	user := testutil.TestUser(t, env.db)
	router := paymentMethodRouter(env, user.ID)

	w := performRequest(router, "POST", "/payment-methods", nil)
	resp := parseResponse(t, w)

	require.Equal(t, response.CodeSuccess, resp.Code, resp.Message)
	assert.Equal(t, "https://keepz.test/save-card", dataField(t, resp, "redirect_url"))

	// 跳转前已落占位记录
	pmID := int64(dataField(t, resp, "payment_method_id").(float64))
	pm, err := env.paymentMethodRepo.GetByID(pmID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, pm.UserID)
}

func TestPaymentMethodHandler_List(t *testing.T) {
	env := setupEnv(t)
	user := testutil.TestUser(t, env.db)
	testutil.TestPaymentMethod(t, env.db, user.ID, "**** 4242")
	testutil.TestPaymentMethod(t, env.db, user.ID, "**** 1881")

	router := paymentMethodRouter(env, user.ID)

	w := performRequest(router, "GET", "/payment-methods", nil)
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)

	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var items []dto.PaymentMethodItem
	require.NoError(t, json.Unmarshal(raw, &items))
	assert.Len(t, items, 2)
}

func TestPaymentMethodHandler_Delete(t *testing.T) {
	env := setupEnv(t)
	user := testutil.TestUser(t, env.db)
	pm := testutil.TestPaymentMethod(t, env.db, user.ID, "**** 4242")

	router := paymentMethodRouter(env, user.ID)

	w := performRequest(router, "DELETE", fmt.Sprintf("/payment-methods/%d", pm.ID), nil)
	resp := parseResponse(t, w)
	assert.Equal(t, response.CodeSuccess, resp.Code)

	_, err := env.paymentMethodRepo.GetByID(pm.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestPaymentMethodHandler_Delete_OtherUsersCard(t *testing.T) {
	env := setupEnv(t)
	owner := testutil.TestUser(t, env.db)
	other := testutil.TestUser(t, env.db)
	pm := testutil.TestPaymentMethod(t, env.db, owner.ID, "**** 4242")

	router := paymentMethodRouter(env, other.ID)

	w := performRequest(router, "DELETE", fmt.Sprintf("/payment-methods/%d", pm.ID), nil)
	resp := parseResponse(t, w)
	assert.Equal(t, response.CodeResourceNotFound, resp.Code)

	// 卡还在
	_, err := env.paymentMethodRepo.GetByID(pm.ID)
	assert.NoError(t, err)
}
