// Package lifecycle 定义订阅状态机，所有支付渠道共用同一套转移规则，
// 避免每个渠道各写一份 switch。
package lifecycle

import (
	"errors"
	"fmt"
)

// 订阅状态
type State string

const (
	StatePending   State = "pending"
	StateActive    State = "active"
	StateCancelled State = "cancelled"
	StateExpired   State = "expired"
)

var (
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrUnknownState      = errors.New("unknown subscription state")
)

// Valid 判断是否为合法状态
func (s State) Valid() bool {
	switch s {
	case StatePending, StateActive, StateCancelled, StateExpired:
		return true
	}
	return false
}

// Terminal 终态不允许再转移
func (s State) Terminal() bool {
	return s == StateCancelled || s == StateExpired
}

// Activate 渠道确认支付后激活：pending → active。
// 重复激活视为幂等，返回 active 不报错。
func Activate(current State) (State, error) {
	if !current.Valid() {
		return current, fmt.Errorf("%w: %q", ErrUnknownState, current)
	}
	switch current {
	case StatePending, StateActive:
		return StateActive, nil
	default:
		return current, fmt.Errorf("%w: %s -> active", ErrInvalidTransition, current)
	}
}

// Cancel 用户或渠道取消：pending/active → cancelled。
// 已取消视为幂等；已过期不允许再取消。
func Cancel(current State) (State, error) {
	if !current.Valid() {
		return current, fmt.Errorf("%w: %q", ErrUnknownState, current)
	}
	switch current {
	case StatePending, StateActive, StateCancelled:
		return StateCancelled, nil
	default:
		return current, fmt.Errorf("%w: %s -> cancelled", ErrInvalidTransition, current)
	}
}

// Expire 到期：active → expired。
// pending 不会直接过期，由创建方清理；终态保持不变。
func Expire(current State) (State, error) {
	if !current.Valid() {
		return current, fmt.Errorf("%w: %q", ErrUnknownState, current)
	}
	switch current {
	case StateActive, StateExpired:
		return StateExpired, nil
	default:
		return current, fmt.Errorf("%w: %s -> expired", ErrInvalidTransition, current)
	}
}
