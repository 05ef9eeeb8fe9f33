package validator

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
)

var (
	once     sync.Once
	validate *CustomValidator
)

// ErrValidation is wrapped by every ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError carries the translated message of every failed field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	text, err := sonic.MarshalString(e.Fields)
	if err != nil {
		return fmt.Sprintf("%s: %v", ErrValidation, e.Fields)
	}

	return fmt.Sprintf("%s: %s", ErrValidation, text)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

type CustomValidator struct {
	uni       *ut.UniversalTranslator
	validator *validator.Validate
}

func New() (*CustomValidator, error) {
	en := en.New()
	uni := ut.New(en, en)
	validate := validator.New(
		validator.WithRequiredStructEnabled(),
	)

	trans, _ := uni.GetTranslator("en")
	if err := entranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, fmt.Errorf("failed to register translations: %w", err)
	}

	return &CustomValidator{
		uni:       uni,
		validator: validate,
	}, nil
}

// Validate implements echo.Validator.
func (cv *CustomValidator) Validate(i interface{}) error {
	err := cv.validator.Struct(i)

	var valErr validator.ValidationErrors
	if errors.As(err, &valErr) {
		trans, _ := cv.uni.GetTranslator("en")
		return &ValidationError{Fields: valErr.Translate(trans)}
	}

	return err
}

// Validate validates i with the shared validator instance.
func Validate(i any) error {
	once.Do(func() {
		var err error
		validate, err = New()
		if err != nil {
			panic(fmt.Sprintf("failed to create validator: %v", err))
		}
	})

	return validate.Validate(i)
}
