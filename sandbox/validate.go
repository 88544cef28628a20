package sandbox

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

const (
	TagName = "validate"
)

var defaultValidator = &Validator{}

type Validator struct {
	once     sync.Once
	validate *validator.Validate
}

// Validate 参数验证
func (v *Validator) Validate(obj interface{}) error {
	if obj == nil {
		return nil
	}
	value := reflect.ValueOf(obj)
	switch value.Kind() {
	case reflect.Ptr:
		if value.IsNil() {
			return nil
		}
		return v.Validate(value.Elem().Interface())
	case reflect.Struct:
		v.lazyInit()
		if err := v.validate.Struct(obj); err != nil {
			return translateValidationError(err)
		}
	}

	return nil
}

// lazyInit 延迟初始化
func (v *Validator) lazyInit() {
	v.once.Do(func() {
		v.validate = validator.New()
		v.validate.SetTagName(TagName)
		// 内存必须是偶数 MiB
		_ = v.validate.RegisterValidation("even", func(fl validator.FieldLevel) bool {
			return fl.Field().Int()%2 == 0
		})
	})
}

// translateValidationError 把 validator 的错误转换为面向用户的描述。
func translateValidationError(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err
	}
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "min", "max":
			msgs = append(msgs, fmt.Sprintf("%s must be %s %s, got %v", fe.Field(), map[string]string{"min": "at least", "max": "at most"}[fe.Tag()], fe.Param(), fe.Value()))
		case "even":
			msgs = append(msgs, fmt.Sprintf("%s must be an even number, got %v", fe.Field(), fe.Value()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("invalid build request: %s", strings.Join(msgs, "; "))
}
