package invoice

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// TagName is the struct tag carrying validation rules. It matches gin's binding tag
// so request DTOs validate identically over HTTP and from the queue.
const TagName = "binding"

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// RegisterTypes teaches v to compare decimal amounts and to report JSON field names.
func RegisterTypes(v *validator.Validate) {
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Validator returns the shared validator configured with TagName and RegisterTypes
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.SetTagName(TagName)
		RegisterTypes(validate)
	})
	return validate
}

// ValidateStruct validates s against its binding tags
func ValidateStruct(s any) error {
	return Validator().Struct(s)
}
