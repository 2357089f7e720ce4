// Package validation performs the local, pre-submission checks on applicant input.
// Nothing in here talks to the network.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/humanitycalls/volunteer-desk/pkg/core/model"
)

// MinimumAge is the youngest age accepted at submission time
const MinimumAge = 18

var phonePattern = regexp.MustCompile(`^[0-9]{10}$`)

// FieldError describes one invalid field
type FieldError struct {
	Field   string
	Message string
}

// Error is returned when local validation fails. It is never sent to the server.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// UserMessage returns the first problem, which is what a form shows inline
func (e *Error) UserMessage() string {
	if len(e.Fields) == 0 {
		return "Please check the form"
	}
	return e.Fields[0].Message
}

// Has reports whether field failed validation
func (e *Error) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// Validator checks application forms against a clock
type Validator struct {
	validate *validator.Validate
	now      func() time.Time
}

// New creates a Validator. now defaults to time.Now.
func New(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}

	v := &Validator{
		validate: validator.New(),
		now:      now,
	}
	v.validate.RegisterValidation("phone10", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	v.validate.RegisterValidation("adult", func(fl validator.FieldLevel) bool {
		return v.IsAdult(fl.Field().String())
	})

	return v
}

// IsAdult reports whether dob (YYYY-MM-DD) yields an age of at least MinimumAge today.
// Today is the UTC calendar date. An applicant whose 18th birthday is today passes.
func (v *Validator) IsAdult(dob string) bool {
	born, err := time.Parse("2006-01-02", dob)
	if err != nil {
		return false
	}
	today := v.now().UTC()
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	return model.AgeInYears(born, today) >= MinimumAge
}

// ApplicationForm validates an applicant form before anything is uploaded
func (v *Validator) ApplicationForm(form *model.ApplicationForm) error {
	return v.check(form)
}

// Profile validates profile fields alone
func (v *Validator) Profile(p *model.Profile) error {
	return v.check(p)
}

func (v *Validator) check(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate form: %w", err)
	}

	out := &Error{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.Field(),
			Message: messageFor(fe),
		})
	}
	return out
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "required_if":
		return "Please specify your occupation"
	case "phone10":
		return "Phone number must be exactly 10 digits"
	case "adult":
		return fmt.Sprintf("You must be at least %d years old to apply", MinimumAge)
	case "datetime":
		return "Date of birth must be in YYYY-MM-DD format"
	case "email":
		return "Please enter a valid email address"
	case "min":
		return fmt.Sprintf("Select at least one option for %s", fe.Field())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}
