// Package validation 配置共享的 validator 实例，并把校验失败翻译为 errs.ValidationError。
package validation

import (
	"reflect"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/event"
)

type rule struct {
	tag string
	fn  validatorv10.Func
}

// rules 自定义规则：
//   - notblank: 字符串去掉空白后非空
//   - category: 属于封闭的品类集合（大小写不敏感）
var rules = []rule{
	{tag: "notblank", fn: func(fl validatorv10.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	}},
	{tag: "category", fn: func(fl validatorv10.FieldLevel) bool {
		_, err := event.ParseCategory(fl.Field().String())
		return err == nil
	}},
}

// New 返回注册了自定义规则的 validator。
func New() (*validatorv10.Validate, error) {
	v := validatorv10.New(validatorv10.WithRequiredStructEnabled())

	// 字段错误使用 json tag 命名，与请求体保持一致
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	if err := register(v, rules); err != nil {
		return nil, err
	}
	return v, nil
}

// MustNew 与 New 相同，注册失败时 panic，用于包级或构造函数中的初始化。
func MustNew() *validatorv10.Validate {
	v, err := New()
	if err != nil {
		panic(err)
	}
	return v
}

func register(v *validatorv10.Validate, rules []rule) error {
	for _, r := range rules {
		if err := v.RegisterValidation(r.tag, r.fn); err != nil {
			return errors.Wrapf(err, "register validation %q", r.tag)
		}
	}
	return nil
}

// Struct 校验 s，失败时返回带字段详情的 *errs.ValidationError。
func Struct(v *validatorv10.Validate, reason string, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validatorv10.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errs.NewValidationError(reason+": "+err.Error(), nil)
	}
	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fieldPath(fe)] = describe(fe)
	}
	return errs.NewValidationError(reason, fields)
}

// fieldPath 去掉顶层结构体名，例如 CreateOrderRequest.items[0].quantity -> items[0].quantity
func fieldPath(fe validatorv10.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validatorv10.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "notblank":
		return "must not be blank"
	case "min":
		return "must contain at least " + fe.Param() + " element(s)"
	case "gt":
		return "must be greater than " + fe.Param()
	case "category":
		return "must be one of DIGITAL, PERISHABLE, STANDARD"
	default:
		return "failed on " + fe.Tag()
	}
}
