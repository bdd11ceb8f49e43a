package domain

import (
	"errors"
	"fmt"
	"net"
)

// 定义通用业务错误
var (
	ErrNotFound          = errors.New("resource not found")
	ErrUnregisteredToken = errors.New("refresh token not registered")
	// ErrNoRefresherAvailable: Token 已声明但没有可用的刷新函数。
	// 从未注册和注册后被撤掉落在同一状态，调用方无须区分。
	ErrNoRefresherAvailable = errors.New("refresh token has no refresher")
	ErrTooManyErrors        = errors.New("too many errors in tolerance window")
)

// ServiceUnavailableError 远端返回 5xx，视为暂时故障
type ServiceUnavailableError struct {
	Target string
	Status int
}

func (e *ServiceUnavailableError) Error() string {
	return fmt.Sprintf("service unavailable: %s returned %d", e.Target, e.Status)
}

// ResponseMismatchError 响应体无法按预期结构解析。
// Raw 保留原始报文用于事后排查。
type ResponseMismatchError struct {
	Target string
	Raw    []byte
	Err    error
}

func (e *ResponseMismatchError) Error() string {
	return fmt.Sprintf("response shape mismatch from %s: %v", e.Target, e.Err)
}

func (e *ResponseMismatchError) Unwrap() error {
	return e.Err
}

// ServerRejectedError 服务端返回了结构化错误 (State != 0)。
// 属于业务层预期错误，由调用方就地处理，不计入熔断。
type ServerRejectedError struct {
	State   int
	Message string
}

func (e *ServerRejectedError) Error() string {
	return fmt.Sprintf("server rejected (state=%d): %s", e.State, e.Message)
}

// IsRejectedWith reports whether err is a server rejection carrying msg.
func IsRejectedWith(err error, msg string) bool {
	var rejected *ServerRejectedError
	return errors.As(err, &rejected) && rejected.Message == msg
}

// IsTransient 判断是否为暂时性错误: 超时、连接失败、远端 5xx
func IsTransient(err error) bool {
	var unavailable *ServiceUnavailableError
	if errors.As(err, &unavailable) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// CountsTowardBreaker 判断错误是否计入熔断窗口。
// 业务拒绝是预期行为，不计入；熔断错误自身也不再累加。
func CountsTowardBreaker(err error) bool {
	if err == nil {
		return false
	}
	var rejected *ServerRejectedError
	if errors.As(err, &rejected) {
		return false
	}
	return !errors.Is(err, ErrTooManyErrors)
}
