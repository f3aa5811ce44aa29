// internal/service/order/domain/state.go
package domain

import (
	"strings"

	"github.com/pkg/errors"

	"orderflow/internal/pkg/errs"
)

// Status 定义了订单的生命周期状态
type Status string

const (
	StatusPending    Status = "PENDING"    // 已创建，等待库存检查结果
	StatusProcessing Status = "PROCESSING" // 保留状态，saga 不会自动进入，只能人工设置
	StatusApproved   Status = "APPROVED"   // 库存检查通过，终态
	StatusRejected   Status = "REJECTED"   // 库存检查未通过，终态
)

// IsTerminal 终态订单不再被修改。
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// ParseStatus 大小写不敏感地解析状态。
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusPending, StatusProcessing, StatusApproved, StatusRejected:
		return st, nil
	}
	return "", errors.Wrapf(errs.NewValidationError("invalid order status", map[string]string{
		"status": "must be one of PENDING, PROCESSING, APPROVED, REJECTED",
	}), "parse status %q", s)
}
