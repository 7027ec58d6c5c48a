package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub()

	c1 := &Client{UserID: 1}
	c2 := &Client{UserID: 1}
	c3 := &Client{UserID: 2}

	hub.Register(c1)
	hub.Register(c2)
	hub.Register(c3)

	assert.True(t, hub.IsOnline(1))
	assert.True(t, hub.IsOnline(2))
	assert.Equal(t, 3, hub.ConnectionCount())

	hub.Unregister(c1)
	assert.True(t, hub.IsOnline(1)) // 还有一个连接
	assert.Equal(t, 2, hub.ConnectionCount())

	hub.Unregister(c2)
	assert.False(t, hub.IsOnline(1))

	hub.Unregister(c3)
	assert.Equal(t, 0, hub.ConnectionCount())
}

func TestHub_SendToOfflineUser(t *testing.T) {
	hub := NewHub()

	// 用户不在线时发送不报错，直接丢弃
	err := hub.SendToUser(99, &Message{Type: "job_progress", Data: "x"})
	assert.NoError(t, err)
}

func TestHub_UnregisterUnknownClient(t *testing.T) {
	hub := NewHub()

	// 未注册的客户端注销不应 panic
	hub.Unregister(&Client{UserID: 5})
	assert.False(t, hub.IsOnline(5))
}
