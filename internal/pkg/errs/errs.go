// Package errs 定义了跨服务共享的错误分类。
// 业务代码用 github.com/pkg/errors 的 Wrap/Wrapf 附加上下文，用 errors.Is 做分类判断。
package errs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrValidation 请求或事件结构不合法，在任何副作用之前拒绝，不可重试。
	ErrValidation = errors.New("validation error")
	// ErrNotFound 订单或缓存条目不存在。
	ErrNotFound = errors.New("not found")
	// ErrTransientStore 主存储超时或连接失败，触发降级，不暴露给最终调用方。
	ErrTransientStore = errors.New("transient store error")
	// ErrUnknownCategory 策略注册表中没有该品类。
	ErrUnknownCategory = errors.New("unknown category")
	// ErrPublishFailure 消息发送失败。
	ErrPublishFailure = errors.New("publish failure")
)

// ValidationError 携带字段级别的校验失败原因，用于 HTTP 400 响应体。
type ValidationError struct {
	Reason string
	Fields map[string]string
}

// NewValidationError 创建一个带字段详情的校验错误。fields 可以为空。
func NewValidationError(reason string, fields map[string]string) *ValidationError {
	return &ValidationError{Reason: reason, Fields: fields}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return fmt.Sprintf("%s: %s (%s)", ErrValidation, e.Reason, strings.Join(parts, "; "))
}

// Is 让 errors.Is(err, ErrValidation) 对 *ValidationError 成立。
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// IsRetryable 判断消费侧是否值得重试该错误。
// 结构性错误和不存在错误重试也不会成功，直接进入死信。
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrValidation) && !errors.Is(err, ErrNotFound)
}

// Kind 返回错误在分类体系中的名字，写入死信消息头。
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "ValidationError"
	case errors.Is(err, ErrNotFound):
		return "NotFoundError"
	case errors.Is(err, ErrTransientStore):
		return "TransientStoreError"
	case errors.Is(err, ErrUnknownCategory):
		return "UnknownCategory"
	case errors.Is(err, ErrPublishFailure):
		return "PublishFailure"
	default:
		return "InternalError"
	}
}

// FieldErrors 提取校验错误中的字段详情，非校验错误返回 nil。
func FieldErrors(err error) map[string]string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	return nil
}
