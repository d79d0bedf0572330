package services

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/h2non/filetype"
	"github.com/shopspring/decimal"

	"katalog/internal/models"
)

// Field limits shared by create and update.
const (
	MaxNameLength        = 40
	MaxDescriptionLength = 200
)

var (
	MinPrice = decimal.RequireFromString("0.01")
	MaxPrice = decimal.RequireFromString("999999999")
)

type productRules struct {
	Name        string `json:"name" validate:"required,name_length"`
	Description string `json:"description" validate:"required,description_length"`
	Price       string `json:"price" validate:"required,price_number,price_range,price_scale"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterAlias("name_length", fmt.Sprintf("max=%d", MaxNameLength))
	v.RegisterAlias("description_length", fmt.Sprintf("max=%d", MaxDescriptionLength))

	mustRegister(v, "price_number", func(fl validator.FieldLevel) bool {
		_, err := decimal.NewFromString(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "price_range", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && !d.LessThan(MinPrice) && !d.GreaterThan(MaxPrice)
	})
	mustRegister(v, "price_scale", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && d.Equal(d.Round(models.PriceScale))
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// validateInput checks in (already trimmed) and returns a *ValidationError listing
// every violation, or nil.
func (s *ProductService) validateInput(in ProductInput) error {
	var fields []FieldError

	err := s.validate.Struct(productRules{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
	})
	if err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return fmt.Errorf("failed to validate product: %w", err)
		}
		for _, e := range verrs {
			fields = append(fields, FieldError{Field: e.Field(), Description: describe(e)})
		}
	}

	if in.Image != nil && !filetype.IsImage(in.Image.Data) {
		fields = append(fields, FieldError{Field: "image", Description: "image must be a JPEG, PNG, GIF, WebP or other image file"})
	}

	if len(fields) > 0 {
		return NewValidationError(fields...)
	}
	return nil
}

func describe(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", e.Field())
	case "name_length", "description_length":
		return fmt.Sprintf("%s must be at most %s characters", e.Field(), e.Param())
	case "price_number":
		return "price must be a number"
	case "price_range":
		return fmt.Sprintf("price must be between %s and %s", MinPrice, MaxPrice)
	case "price_scale":
		return fmt.Sprintf("price must have at most %d decimal places", models.PriceScale)
	default:
		return fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
}
