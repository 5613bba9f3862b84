package store

import (
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/YangQing-Lin/hooky-cli/internal/rules"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator 返回共享的校验器，已注册规则的正则检查
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterStructValidation(ruleStructLevel, rules.Rule{})
	})
	return validate
}

// ruleStructLevel matches 规则的值必须能编译
func ruleStructLevel(sl validator.StructLevel) {
	r := sl.Current().Interface().(rules.Rule)
	if r.Operator == rules.OpMatches && r.Value != "" && !rules.ValidPattern(r.Value) {
		sl.ReportError(r.Value, "Value", "Value", "pattern", "")
	}
}

// ValidateStruct 用共享校验器校验任意带 validate 标签的结构体
func ValidateStruct(v any) error {
	if err := Validator().Struct(v); err != nil {
		return toValidationError(err)
	}
	return nil
}

// ValidateTemplate 校验单个模板
func ValidateTemplate(t Template) error {
	if err := Validator().Struct(t); err != nil {
		return toValidationError(err)
	}
	return nil
}

// ValidateRule 校验单条规则（不检查模板是否存在）
func ValidateRule(r rules.Rule) error {
	if err := Validator().Struct(r); err != nil {
		return toValidationError(err)
	}
	return nil
}

// ValidateStore 校验整个文档，包括规则和指针引用的模板
func ValidateStore(s *Store) error {
	if err := Validator().Struct(s); err != nil {
		return toValidationError(err)
	}

	seen := make(map[string]bool, len(s.Templates))
	for _, t := range s.Templates {
		if seen[t.ID] {
			return &ValidationError{Fields: []FieldError{{Field: "Store.Templates", Message: "duplicate id " + t.ID}}}
		}
		seen[t.ID] = true
	}
	return nil
}
