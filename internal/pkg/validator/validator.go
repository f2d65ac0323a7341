package validator

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Validator instance
var validate *validator.Validate

var phonePattern = regexp.MustCompile(`^(\+?234|0)[789][01]\d{8}$`)

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// decimal.Decimal is validated through its string form
	validate.RegisterCustomTypeFunc(func(v reflect.Value) interface{} {
		if d, ok := v.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	registerCustomValidations()
}

func registerCustomValidations() {
	// Nigerian mobile number, local or international form
	validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})

	validate.RegisterValidation("meter_type", func(fl validator.FieldLevel) bool {
		switch strings.ToLower(fl.Field().String()) {
		case "prepaid", "postpaid", "":
			return true
		}
		return false
	})

	validate.RegisterValidation("payment_type", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "wallet", "direct", "":
			return true
		}
		return false
	})

	// decimal amounts must be strictly positive with at most two fractional digits
	validate.RegisterValidation("money", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		return d.IsPositive() && d.Equal(d.Round(2))
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"_": err.Error()}
	}

	errors := make(map[string]string)
	for _, err := range verrs {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "email":
			errors[field] = "Invalid email format"
		case "min":
			errors[field] = "Value is too short (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "oneof":
			errors[field] = "Must be one of: " + err.Param()
		case "numeric":
			errors[field] = "Must contain digits only"
		case "phone":
			errors[field] = "Invalid phone number"
		case "meter_type":
			errors[field] = "Invalid meter type. Must be: prepaid or postpaid"
		case "payment_type":
			errors[field] = "Invalid payment type. Must be: wallet or direct"
		case "money":
			errors[field] = "Amount must be positive with at most two decimal places"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}
