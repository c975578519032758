// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package auth

import (
	"net/mail"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/authcore/authcore/internal/fault"
)

// Registration input constraints.
const (
	DefaultMinPasswordLength = 8
	MaxNameLength            = 100
	MaxEmailLength           = 254
)

// RegisterInput is the payload of a registration request.
type RegisterInput struct {
	FirstName string `json:"firstName" jsonschema:"minLength=1,maxLength=100"`
	LastName  string `json:"lastName" jsonschema:"minLength=1,maxLength=100"`
	Email     string `json:"email" jsonschema:"minLength=3,maxLength=254"`
	Password  string `json:"password" jsonschema:"minLength=1"`
}

// Policy validates registration input.
type Policy struct {
	minPasswordLength int
	allowedDomains    []glob.Glob
}

// NewPolicy creates a Policy. minPasswordLength below 1 selects
// DefaultMinPasswordLength. allowedDomains are glob patterns matched against
// the lowercased email domain; an empty list allows every domain.
func NewPolicy(minPasswordLength int, allowedDomains []string) (*Policy, error) {
	if minPasswordLength < 1 {
		minPasswordLength = DefaultMinPasswordLength
	}
	if minPasswordLength > MaxPasswordBytes {
		return nil, oops.Code("POLICY_INVALID").
			With("min_password_length", minPasswordLength).
			Errorf("minimum password length %d exceeds %d bytes", minPasswordLength, MaxPasswordBytes)
	}

	p := &Policy{minPasswordLength: minPasswordLength}
	for _, pattern := range allowedDomains {
		g, err := glob.Compile(strings.ToLower(pattern), '.')
		if err != nil {
			return nil, oops.Code("POLICY_INVALID").With("pattern", pattern).Wrap(err)
		}
		p.allowedDomains = append(p.allowedDomains, g)
	}
	return p, nil
}

// DefaultPolicy returns the policy with no domain restrictions.
func DefaultPolicy() *Policy {
	return &Policy{minPasswordLength: DefaultMinPasswordLength}
}

// Validate checks every field of in and reports all failures together.
func (p *Policy) Validate(in RegisterInput) error {
	var violations []fault.FieldViolation
	add := func(field, msg string) {
		violations = append(violations, fault.FieldViolation{Field: field, Message: msg})
	}

	if msg := validateName(in.FirstName); msg != "" {
		add("firstName", msg)
	}
	if msg := validateName(in.LastName); msg != "" {
		add("lastName", msg)
	}
	if msg := p.validateEmail(in.Email); msg != "" {
		add("email", msg)
	}
	if msg := p.validatePassword(in.Password); msg != "" {
		add("password", msg)
	}

	if len(violations) > 0 {
		return fault.Validation(violations...)
	}
	return nil
}

func validateName(name string) string {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "must not be empty"
	case utf8.RuneCountInString(name) > MaxNameLength:
		return "must be at most 100 characters"
	}
	return ""
}

func (p *Policy) validateEmail(email string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		return "must not be empty"
	}
	if len(email) > MaxEmailLength {
		return "must be at most 254 characters"
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "must be a valid email address"
	}
	if len(p.allowedDomains) == 0 {
		return ""
	}
	domain := strings.ToLower(email[strings.LastIndexByte(email, '@')+1:])
	for _, g := range p.allowedDomains {
		if g.Match(domain) {
			return ""
		}
	}
	return "email domain is not allowed"
}

func (p *Policy) validatePassword(password string) string {
	if utf8.RuneCountInString(password) < p.minPasswordLength {
		return "must be at least " + strconv.Itoa(p.minPasswordLength) + " characters"
	}
	if len(password) > MaxPasswordBytes {
		return "must be at most 72 bytes"
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return "must contain at least one letter and one digit"
	}
	return ""
}
