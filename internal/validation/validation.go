// Package validation содержит локальные проверки форм, выполняемые до обращения к сети.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalid является общей причиной всех ошибок проверки.
var ErrInvalid = errors.New("validation failed")

var phonePattern = regexp.MustCompile(`^\+91\s\d{10}$`)

// Error перечисляет поля, не прошедшие проверку.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, e.Fields[name])
	}
	return fmt.Sprintf("%s: %s", ErrInvalid, strings.Join(parts, "; "))
}

func (e *Error) Unwrap() error {
	return ErrInvalid
}

// Validator проверяет структуры по тегам validate.
type Validator struct {
	validate *validator.Validate
}

// New создаёт проверяющий с правилом inphone для канонических телефонов вида "+91 9876543210".
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("inphone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})

	return &Validator{validate: v}
}

// Struct проверяет структуру и собирает ошибки по именам JSON-полей.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}

	fields := make(map[string]string, len(verrs))
	for _, e := range verrs {
		fields[e.Field()] = describe(e)
	}
	return &Error{Fields: fields}
}

func describe(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", e.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", e.Field())
	case "inphone":
		return fmt.Sprintf("%s must look like +91 followed by 10 digits", e.Field())
	default:
		return fmt.Sprintf("field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
}

// FirstMessage возвращает первое по алфавиту сообщение об ошибке поля.
func FirstMessage(err error) string {
	var verr *Error
	if !errors.As(err, &verr) || len(verr.Fields) == 0 {
		return "Please check the form and try again."
	}
	names := make([]string, 0, len(verr.Fields))
	for name := range verr.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return verr.Fields[names[0]]
}
