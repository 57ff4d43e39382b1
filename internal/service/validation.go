package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/item-catalog/internal/apperror"
	"github.com/sakif/item-catalog/internal/model"
	"github.com/sakif/item-catalog/internal/repository"
)

const MaxNameLength = 64

// reservedNames collide with path segments under /categories/.
var reservedNames = []string{"create", "delete", "edit"}

// ValidationErrors is the outcome of validating a form. Empty means valid.
type ValidationErrors []apperror.FieldError

// Err returns an apperror.ErrValidation carrying every field error, or nil.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return apperror.Invalid(v)
}

// Has reports whether field failed.
func (v ValidationErrors) Has(field string) bool {
	for _, fe := range v {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// CategoryInput is the create/rename category form.
type CategoryInput struct {
	Name string `form:"name" validate:"required,max=64,notreserved"`
}

// ItemInput is the create/edit item form.
type ItemInput struct {
	Name        string `form:"name" validate:"required,max=64,notreserved"`
	Description string `form:"description" validate:"required"`
}

// RegistrationInput is the local sign-up form.
type RegistrationInput struct {
	Name     string `form:"name" validate:"required,max=64"`
	Username string `form:"username" validate:"required,min=3,max=32,alphanum"`
	Email    string `form:"email" validate:"omitempty,email,max=254"`
	Password string `form:"password" validate:"required,min=8,max=72"`
}

// Validator wraps go-playground/validator with the catalog's custom rules
// and messages keyed by form field name.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return strings.ToLower(fld.Name)
		}
		return name
	})

	// The error is always nil for a non-empty tag and a non-nil func.
	_ = v.RegisterValidation("notreserved", func(fl validator.FieldLevel) bool {
		return !IsReservedName(fl.Field().String())
	})

	return &Validator{v: v}
}

// IsReservedName reports whether name is one of the reserved path words,
// ignoring case and surrounding space.
func IsReservedName(name string) bool {
	name = strings.TrimSpace(name)
	for _, r := range reservedNames {
		if strings.EqualFold(name, r) {
			return true
		}
	}
	return false
}

// Struct validates s and returns one FieldError per failing field.
func (val *Validator) Struct(s any) ValidationErrors {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ValidationErrors{{Field: "", Message: err.Error()}}
	}

	out := make(ValidationErrors, 0, len(verrs))
	seen := make(map[string]bool, len(verrs))
	for _, fe := range verrs {
		if seen[fe.Field()] {
			continue
		}
		seen[fe.Field()] = true
		out = append(out, apperror.FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required.", capitalize(field))
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", capitalize(field), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters.", capitalize(field), fe.Param())
	case "notreserved":
		return fmt.Sprintf("%q is a reserved word and cannot be used as a %s.", fe.Value(), field)
	case "alphanum":
		return fmt.Sprintf("%s may only contain letters and digits.", capitalize(field))
	case "email":
		return "Email must be a valid email address."
	default:
		return fmt.Sprintf("%s is invalid.", capitalize(field))
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// =========================================================================
// FORM VALIDATION WITH UNIQUENESS
// =========================================================================

// ValidateCategory trims and validates in, then checks that no other
// category has the same name. current is the category being renamed, or nil
// when creating; it may keep its own name.
func (val *Validator) ValidateCategory(ctx context.Context, repo repository.CategoryRepository, in *CategoryInput, current *model.Category) (ValidationErrors, error) {
	in.Name = strings.TrimSpace(in.Name)

	errs := val.Struct(in)
	if errs.Has("name") {
		return errs, nil
	}

	existing, err := repo.GetCategoryByName(ctx, in.Name)
	switch {
	case errors.Is(err, apperror.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("checking category name: %w", err)
	case current == nil || existing.ID != current.ID:
		errs = append(errs, apperror.FieldError{Field: "name", Message: "A category with that name already exists."})
	}
	return errs, nil
}

// ValidateItem is ValidateCategory for items. Item names are unique across
// the whole catalog, not per category.
func (val *Validator) ValidateItem(ctx context.Context, repo repository.ItemRepository, in *ItemInput, current *model.Item) (ValidationErrors, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)

	errs := val.Struct(in)
	if errs.Has("name") {
		return errs, nil
	}

	existing, err := repo.GetItemByName(ctx, in.Name)
	switch {
	case errors.Is(err, apperror.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("checking item name: %w", err)
	case current == nil || existing.ID != current.ID:
		errs = append(errs, apperror.FieldError{Field: "name", Message: "An item with that name already exists."})
	}
	return errs, nil
}

// ValidateRegistration validates a sign-up form and checks that username
// and email are free.
func (val *Validator) ValidateRegistration(ctx context.Context, repo repository.UserRepository, in *RegistrationInput) (ValidationErrors, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	errs := val.Struct(in)

	if !errs.Has("username") {
		_, err := repo.GetUserByUsername(ctx, in.Username)
		switch {
		case err == nil:
			errs = append(errs, apperror.FieldError{Field: "username", Message: "That username is taken."})
		case !errors.Is(err, apperror.ErrNotFound):
			return nil, fmt.Errorf("checking username: %w", err)
		}
	}

	if in.Email != "" && !errs.Has("email") {
		_, err := repo.GetUserByEmail(ctx, in.Email)
		switch {
		case err == nil:
			errs = append(errs, apperror.FieldError{Field: "email", Message: "That email is already registered."})
		case !errors.Is(err, apperror.ErrNotFound):
			return nil, fmt.Errorf("checking email: %w", err)
		}
	}

	return errs, nil
}
