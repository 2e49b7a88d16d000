package tokenkeeper

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/MrEthical07/tokenkeeper/internal/flows"
	"github.com/MrEthical07/tokenkeeper/password"
)

// Input limits applied before any store or hashing work.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 50
	MaxNameLength     = 100
	MaxEmailLength    = 254
)

// ValidationError lists the offending request fields. It wraps
// [ErrInvalidInput].
type ValidationError struct {
	Fields validation.Errors
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrInvalidInput.Error()
	}
	return e.Fields.Error()
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

func wrapValidation(err error) error {
	if err == nil {
		return nil
	}
	var fields validation.Errors
	if errors.As(err, &fields) {
		return &ValidationError{Fields: fields}
	}
	return &ValidationError{Fields: validation.Errors{"request": err}}
}

// Validate checks r against the registration rules. The email is expected
// to be normalized already.
func (r RegisterRequest) Validate() error {
	return wrapValidation(validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, MaxEmailLength), is.Email),
		validation.Field(&r.Username, validation.Required, validation.Length(MinUsernameLength, MaxUsernameLength)),
		validation.Field(&r.Password, validation.Required, validation.Length(password.MinPasswordBytes, password.DefaultMaxPasswordBytes)),
		validation.Field(&r.FirstName, validation.Length(0, MaxNameLength)),
		validation.Field(&r.LastName, validation.Length(0, MaxNameLength)),
	))
}

type loginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r loginInput) Validate() error {
	return wrapValidation(validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	))
}

func validateRegister(req flows.RegisterRequest) error {
	return RegisterRequest(req).Validate()
}

func validateLogin(email, password string) error {
	return loginInput{Email: email, Password: password}.Validate()
}
