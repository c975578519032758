// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package authcore

import (
	"context"

	"github.com/authcore/authcore/internal/auth"
	"github.com/authcore/authcore/internal/gate"
)

// Built-in operation names.
const (
	OpRegister    = "register"
	OpConfirmUser = "confirmUser"
	OpLogin       = "login"
	OpMe          = "me"
	OpHello       = "hello"
)

// Greeting is the result of the hello operation.
const Greeting = "Hello World!"

// RegisterResult is the result of the register operation.
type RegisterResult struct {
	User     UserView       `json:"user"`
	Warnings []auth.Warning `json:"warnings,omitempty"`
}

// ConfirmUserInput is the input of the confirmUser operation.
type ConfirmUserInput struct {
	Token string `json:"token"`
}

// LoginInput is the input of the login operation.
type LoginInput struct {
	Email    string `json:"email" jsonschema:"minLength=1,maxLength=254"`
	Password string `json:"password" jsonschema:"minLength=1"`
}

func (s *Service) registerBuiltins() error {
	ops := []Operation{
		{
			Name:    OpRegister,
			Input:   RegisterInput{},
			Handler: s.handleRegister,
			Help:    "Create an unconfirmed account and email a confirmation link.",
		},
		{
			Name:    OpConfirmUser,
			Input:   ConfirmUserInput{},
			Handler: s.handleConfirmUser,
			Help:    "Redeem a confirmation token. Returns false for unknown or expired tokens.",
		},
		{
			Name:    OpLogin,
			Input:   LoginInput{},
			Handler: s.handleLogin,
			Help:    "Check an email and password and return the account.",
		},
		{
			Name:      OpMe,
			Protected: true,
			Handler:   s.handleMe,
			Help:      "Return the account of the current session.",
		},
		{
			Name:      OpHello,
			Protected: true,
			Handler:   handleHello,
			Help:      "Greet an authenticated caller.",
		},
	}
	for _, op := range ops {
		if err := s.registry.Register(op); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) handleRegister(ctx context.Context, call *gate.Call) (any, error) {
	in, err := gate.Bind[RegisterInput](call)
	if err != nil {
		return nil, err
	}
	reg, err := s.registration.Register(ctx, in)
	if err != nil {
		return nil, err
	}
	return RegisterResult{User: reg.User.View(), Warnings: reg.Warnings}, nil
}

func (s *Service) handleConfirmUser(ctx context.Context, call *gate.Call) (any, error) {
	in, err := gate.Bind[ConfirmUserInput](call)
	if err != nil {
		return nil, err
	}
	return s.registration.ConfirmUser(ctx, in.Token)
}

func (s *Service) handleLogin(ctx context.Context, call *gate.Call) (any, error) {
	in, err := gate.Bind[LoginInput](call)
	if err != nil {
		return nil, err
	}
	user, err := s.registration.Authenticate(ctx, in.Email, in.Password)
	if err != nil {
		return nil, err
	}
	return user.View(), nil
}

// handleMe returns nil when the session's user no longer exists.
func (s *Service) handleMe(ctx context.Context, call *gate.Call) (any, error) {
	user, err := s.registration.CurrentUser(ctx, call.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	view := user.View()
	return &view, nil
}

func handleHello(context.Context, *gate.Call) (any, error) {
	return Greeting, nil
}
