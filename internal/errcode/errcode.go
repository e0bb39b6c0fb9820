package errcode

import (
	"errors"
	"fmt"
	"time"
)

// 错误码约定（用于 worker 通知消息）：
// - 0：无错误
// - 4xxx：业务可恢复/告警类错误（例如资源缺失但流程可继续）
// - 5xxx：系统错误（需要中断流程）
const (
	OK              = 0
	ResourceMissing = 4004
	SystemError     = 5000
)

// Kind 区分可预期的业务拒绝与系统错误，调用方据此选择响应方式。
type Kind int

const (
	Internal Kind = iota
	Validation
	Unauthorized
	QuotaExceeded
	NotFound
	Conflict
	RateLimited
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Unauthorized:
		return "unauthorized"
	case QuotaExceeded:
		return "quota_exceeded"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case RateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

// Error 是组件返回的业务结果错误。
type Error struct {
	Kind    Kind
	Message string
	// RetryAfter 仅在 RateLimited 时有意义。
	RetryAfter time.Duration
	// Details 附带字段级校验信息。
	Details map[string]string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New 构造指定类型的错误。
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap 将底层错误包装为 Internal，并保留原因链。
func Wrap(err error, msg string) *Error {
	return &Error{Kind: Internal, Message: msg, cause: err}
}

// Limited 构造带重试提示的限流错误。
func Limited(msg string, retryAfter time.Duration) *Error {
	return &Error{Kind: RateLimited, Message: msg, RetryAfter: retryAfter}
}

// KindOf 返回错误的类型；非 *Error 视为 Internal。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
