package validator

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	playground "github.com/go-playground/validator/v10"
)

// RegisterGinValidators adds the "cine" and "ma_phone" tags to gin's binding engine
func RegisterGinValidators() error {
	engine, ok := binding.Validator.Engine().(*playground.Validate)
	if !ok {
		return fmt.Errorf("unexpected gin validator engine %T", binding.Validator.Engine())
	}
	return Register(engine)
}

// Register adds the custom tags to v
func Register(v *playground.Validate) error {
	if err := v.RegisterValidation("cine", func(fl playground.FieldLevel) bool {
		return IsValidCINE(fl.Field().String())
	}); err != nil {
		return fmt.Errorf("failed to register cine validator: %w", err)
	}

	phones := NewPhoneValidator()
	if err := v.RegisterValidation("ma_phone", func(fl playground.FieldLevel) bool {
		return phones.IsValid(fl.Field().String())
	}); err != nil {
		return fmt.Errorf("failed to register ma_phone validator: %w", err)
	}

	return nil
}
