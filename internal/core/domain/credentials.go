package domain

import (
	"net/mail"
	"strings"
)

// LoginCredentials is the body of a login request.
type LoginCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks that both fields are present and the email is well formed.
func (c LoginCredentials) Validate() error {
	if err := validateEmail(c.Email); err != nil {
		return err
	}
	if c.Password == "" {
		return ErrMissingField.WithDetails("password")
	}
	return nil
}

// Registration is the body of a sign-up request. It goes to the same
// endpoint as a login.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r Registration) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrMissingField.WithDetails("name")
	}
	return LoginCredentials{Email: r.Email, Password: r.Password}.Validate()
}

func validateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return ErrMissingField.WithDetails("email")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return ErrInvalidEmail.WithDetails(email)
	}
	return nil
}
