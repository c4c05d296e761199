package services

import (
	"errors"
	"reflect"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"lihkab/internal/core"
)

// messages maps "<Field>.<tag>" to the text shown next to the form field.
var messages = map[string]string{
	"Customer.required": "Müşteri adı boş bırakılamaz.",
	"Customer.max":      "Müşteri adı çok uzun.",
	"Payment.required":  "Ödeme durumu seçilmelidir.",
	"Payment.payment":   "Ödeme durumu seçilmelidir.",
	"Status.job_status": "Geçersiz durum.",
	"Fee.gte":           "Ücret negatif olamaz.",
	"PlotRef.max":       "Ada / parsel çok uzun.",
	"Username.required": "Kullanıcı adı boş bırakılamaz.",
	"Username.username": "Kullanıcı adı yalnızca harf, rakam, nokta, tire ve alt çizgi içerebilir.",
	"Username.max":      "Kullanıcı adı çok uzun.",
	"Password.required": "Şifre boş bırakılamaz.",
	"Password.min":      "Şifre en az 4 karakter olmalıdır.",
	"Role.role":         "Geçersiz rol.",
}

var usernamePattern = regexp.MustCompile(`^[a-z0-9._-]+$`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Decimals are checked as floats so gte/lte apply.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	_ = v.RegisterValidation("job_status", func(fl validator.FieldLevel) bool {
		return core.Status(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("payment", func(fl validator.FieldLevel) bool {
		p := core.PaymentStatus(fl.Field().String())
		return p == core.PaymentPending || p == core.PaymentPaid
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return core.Role(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return v
}

// check runs struct validation and converts failures into a ValidationError.
func check(v *validator.Validate, in interface{}) error {
	err := v.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		msg, ok := messages[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = fe.Field() + " geçersiz."
		}
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: msg})
	}
	return out
}
