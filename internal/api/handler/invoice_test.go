package handler

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/reviewhub_go_server/internal/model"
	"github.com/qs3c/reviewhub_go_server/internal/model/dto"
	"github.com/qs3c/reviewhub_go_server/internal/pkg/response"
	"github.com/qs3c/reviewhub_go_server/internal/testutil"
)

func invoiceRouter(env *testEnv, userID int64) *gin.Engine {
	router := gin.New()
	authed := router.Group("", asUser(userID))
	authed.GET("/invoices", env.invoiceHandler.List)
	authed.POST("/invoices/:transaction_id", env.invoiceHandler.Generate)
	return router
}

func TestInvoiceHandler_Generate(t *testing.T) {
	env := setupEnv(t)
	user := testutil.TestUser(t, env.db)
	sub := testutil.TestSubscription(t, env.db, user.ID,
		testutil.WithStatus(model.SubscriptionActive))
	tx := testutil.TestTransaction(t, env.db, user.ID, sub.ID)

	router := invoiceRouter(env, user.ID)

	w := performRequest(router, "POST", fmt.Sprintf("/invoices/%d", tx.ID), nil)
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code, resp.Message)

	number := dataField(t, resp, "invoice_number").(string)
	assert.True(t, strings.HasPrefix(number, "RH-"), number)

	// 重复开票返回原票
	w = performRequest(router, "POST", fmt.Sprintf("/invoices/%d", tx.ID), nil)
	resp = parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)
	assert.Equal(t, number, dataField(t, resp, "invoice_number"))

	w = performRequest(router, "GET", "/invoices", nil)
	resp = parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)

	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var items []dto.InvoiceItem
	require.NoError(t, json.Unmarshal(raw, &items))
	assert.Len(t, items, 1)
}

func TestInvoiceHandler_Generate_OtherUsersTransaction(t *testing.T) {
	env := setupEnv(t)
	owner := testutil.TestUser(t, env.db)
	other := testutil.TestUser(t, env.db)
	sub := testutil.TestSubscription(t, env.db, owner.ID,
		testutil.WithStatus(model.SubscriptionActive))
	tx := testutil.TestTransaction(t, env.db, owner.ID, sub.ID)

	router := invoiceRouter(env, other.ID)

	w := performRequest(router, "POST", fmt.Sprintf("/invoices/%d", tx.ID), nil)
	resp := parseResponse(t, w)
	assert.Equal(t, response.CodeResourceNotFound, resp.Code)
}
