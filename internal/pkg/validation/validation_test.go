package validation

import (
	"testing"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"orderflow/internal/pkg/errs"
)

type item struct {
	ProductID string `json:"productId" validate:"notblank"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
	Category  string `json:"category" validate:"category"`
}

type request struct {
	CustomerName string `json:"customerName" validate:"notblank"`
	Items        []item `json:"items" validate:"required,min=1,dive"`
}

func TestStructValid(t *testing.T) {
	v, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	req := request{CustomerName: "Dana", Items: []item{{ProductID: "P1001", Quantity: 2, Category: "standard"}}}
	if err := Struct(v, "invalid order", req); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
}

func TestStructFieldErrors(t *testing.T) {
	v := MustNew()
	cases := []struct {
		name  string
		req   request
		field string
		want  string
	}{
		{"blank customer", request{CustomerName: "  ", Items: []item{{"P1", 1, "DIGITAL"}}}, "customerName", "must not be blank"},
		{"no items", request{CustomerName: "Dana"}, "items", "is required"},
		{"empty items", request{CustomerName: "Dana", Items: []item{}}, "items", "must contain at least 1 element(s)"},
		{"zero quantity", request{CustomerName: "Dana", Items: []item{{"P1", 0, "DIGITAL"}}}, "items[0].quantity", "must be greater than 0"},
		{"blank product", request{CustomerName: "Dana", Items: []item{{"", 1, "DIGITAL"}}}, "items[0].productId", "must not be blank"},
		{"bad category", request{CustomerName: "Dana", Items: []item{{"P1", 1, "FURNITURE"}}}, "items[0].category", "must be one of DIGITAL, PERISHABLE, STANDARD"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Struct(v, "invalid order", tc.req)
			if !errors.Is(err, errs.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			fields := errs.FieldErrors(err)
			if fields[tc.field] != tc.want {
				t.Fatalf("fields[%q] = %q, want %q (all: %v)", tc.field, fields[tc.field], tc.want, fields)
			}
		})
	}
}

func TestRegisterReturnsError(t *testing.T) {
	v := validatorv10.New()
	bad := []rule{{tag: "", fn: func(validatorv10.FieldLevel) bool { return true }}}
	if err := register(v, bad); err == nil {
		t.Fatalf("expected an error for an empty tag")
	}
}
