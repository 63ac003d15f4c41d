// Package validation plugs a shared go-playground validator into echo's
// Validator interface. Controllers hold the same *validator.Validate, so
// struct tags behave identically whether a handler calls c.Validate or
// V.Struct directly.
package validation

import (
	"github.com/go-playground/validator/v10"
)

type Echo struct {
	v *validator.Validate
}

func New(v *validator.Validate) *Echo { return &Echo{v: v} }

func (e *Echo) Validate(i any) error { return e.v.Struct(i) }
