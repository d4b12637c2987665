package models

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"financial_underwriting/pkg/core/apperr"

	"github.com/go-playground/validator/v10"
)

var gstinPattern = regexp.MustCompile(`^[0-9]{2}[A-Z0-9]{13}$`)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func recordValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		// Dates validate as their string form so "required" rejects the zero date.
		validate.RegisterCustomTypeFunc(func(v reflect.Value) interface{} {
			return v.Interface().(Date).String()
		}, Date{})
		_ = validate.RegisterValidation("gstin", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			if len(s) != 15 {
				return true
			}
			return gstinPattern.MatchString(s)
		})
	})
	return validate
}

// ValidGSTIN reports whether s has the shape of a GST identification number.
func ValidGSTIN(s string) bool {
	return gstinPattern.MatchString(strings.ToUpper(strings.TrimSpace(s)))
}

func validateRecord(r interface{}) error {
	err := recordValidator().Struct(r)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperr.Validation("%v", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Field()+" failed "+fe.Tag())
	}
	return apperr.Validation("%s", strings.Join(msgs, "; "))
}
