package config

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/kochabx/rediskit/errors"
)

// Validator 配置校验器
type Validator interface {
	Struct(s any) error
}

type structValidator struct {
	validate *validator.Validate
	trans    ut.Translator
}

// NewValidator 基于 validator/v10 的校验器
// 字段名取自 mapstructure 标签，与配置文件中的 key 一致；错误消息为英文
func NewValidator() Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})

	locale := en.New()
	trans, _ := ut.New(locale, locale).GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	return &structValidator{validate: v, trans: trans}
}

// Struct 校验失败时返回 INVALID_CONFIG，field 为第一个失败字段的路径
func (v *structValidator) Struct(s any) error {
	if s == nil {
		return errors.InvalidConfigError("target", "validation target cannot be nil")
	}

	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return errors.InvalidConfigError("target", err.Error()).WithCause(err)
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, fe.Translate(v.trans))
	}
	return errors.InvalidConfigError(fieldPath(fieldErrs[0]), strings.Join(messages, "; ")).WithCause(err)
}

// fieldPath 去掉命名空间开头的结构体类型名，例如 App.redis.port -> redis.port
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}
