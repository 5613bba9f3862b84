package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// 配置错误：调用方引用了不存在的实体，或在前置条件不满足时操作
var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrRuleNotFound     = errors.New("rule not found")
	ErrNoTemplates      = errors.New("no templates: create a template first")
	ErrValidation       = errors.New("validation failed")
)

var (
	errRequired      = errors.New("is required")
	errInvalidURL    = errors.New("must be an absolute URL")
	errInvalidMethod = errors.New("must be one of GET, POST, PUT, PATCH, DELETE")
	errInvalidField  = errors.New("must be url or title")
	errInvalidOp     = errors.New("must be one of contains, equals, startsWith, endsWith, matches")
	errInvalidRegex  = errors.New("is not a valid regular expression")
	errInvalidTheme  = errors.New("must be system, light or dark")
)

// customErrors 以 Struct.Field.tag 为键映射友好的错误信息
var customErrors = map[string]error{
	"Template.ID.required":     errRequired,
	"Template.Method.oneof":    errInvalidMethod,
	"Rule.Field.required":      errRequired,
	"Rule.Field.oneof":         errInvalidField,
	"Rule.Operator.required":   errRequired,
	"Rule.Operator.oneof":      errInvalidOp,
	"Rule.Value.pattern":       errInvalidRegex,
	"Rule.TemplateID.required": errRequired,
	"Store.Theme.oneof":        errInvalidTheme,
	"Config.URL.required":      errRequired,
	"Config.URL.url":           errInvalidURL,
	"Config.Method.oneof":      errInvalidMethod,
}

// FieldError 单个字段的校验错误
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError 汇总校验失败的字段，errors.Is(err, ErrValidation) 为 true
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// toValidationError 把 validator 的错误转换成 ValidationError
func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &ValidationError{}
	for _, e := range verrs {
		msg := fmt.Sprintf("is invalid (%s)", e.Tag())
		if v, ok := customErrors[structField(e.StructNamespace())+"."+e.Tag()]; ok {
			msg = v.Error()
		}
		out.Fields = append(out.Fields, FieldError{Field: e.Namespace(), Message: msg})
	}
	return out
}

// structField 把 Store.Templates[0].URL 归约成 Template.URL
func structField(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) < 2 {
		return namespace
	}
	owner := parts[len(parts)-2]
	if i := strings.IndexByte(owner, '['); i >= 0 {
		owner = owner[:i]
	}
	switch owner {
	case "Templates":
		owner = "Template"
	case "QuickSendRules":
		owner = "Rule"
	}
	return owner + "." + parts[len(parts)-1]
}
