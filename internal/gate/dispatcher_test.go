// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package gate_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authcore/authcore/internal/fault"
	"github.com/authcore/authcore/internal/gate"
	"github.com/authcore/authcore/pkg/errutil"
)

type greetInput struct {
	Name string `json:"name" jsonschema:"minLength=1"`
	Age  int    `json:"age,omitempty" jsonschema:"minimum=0"`
}

type fixture struct {
	registry   *gate.Registry
	dispatcher *gate.Dispatcher
	calls      int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{registry: gate.NewRegistry(nil)}

	f.registry.MustRegister(
		gate.Operation{
			Name:  "greet",
			Input: greetInput{},
			Handler: func(_ context.Context, call *gate.Call) (any, error) {
				f.calls++
				in, err := gate.Bind[greetInput](call)
				if err != nil {
					return nil, err
				}
				return "hi " + in.Name, nil
			},
		},
		gate.Operation{
			Name:      "hello",
			Protected: true,
			Handler: func(_ context.Context, call *gate.Call) (any, error) {
				f.calls++
				return call.UserID, nil
			},
		},
		gate.Operation{
			Name: "explode",
			Handler: func(context.Context, *gate.Call) (any, error) {
				f.calls++
				return nil, errors.New("boom")
			},
		},
	)

	d, err := gate.NewDispatcher(f.registry)
	require.NoError(t, err)
	f.dispatcher = d
	return f
}

func TestNewDispatcher_NilRegistry(t *testing.T) {
	_, err := gate.NewDispatcher(nil)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "DISPATCHER_INVALID_CONFIG")
}

func TestDispatch_Success(t *testing.T) {
	f := newFixture(t)
	before := testutil.ToFloat64(gate.OperationExecutions.WithLabelValues("greet", gate.StatusSuccess))

	got, err := f.dispatcher.Dispatch(context.Background(), gate.Anonymous, "greet", json.RawMessage(`{"name":"Ann"}`))
	require.NoError(t, err)
	assert.Equal(t, "hi Ann", got)

	after := testutil.ToFloat64(gate.OperationExecutions.WithLabelValues("greet", gate.StatusSuccess))
	assert.InDelta(t, before+1, after, 0)
}

func TestDispatch_UnknownOperation(t *testing.T) {
	f := newFixture(t)

	_, err := f.dispatcher.Dispatch(context.Background(), gate.ForUser(1), "nope", nil)
	require.Error(t, err)
	assert.Equal(t, fault.KindPublic, fault.KindOf(err))

	pub, ok := fault.AsPublic(err)
	require.True(t, ok)
	assert.Equal(t, gate.CodeUnknownOperation, pub.Code)
}

func TestDispatch_ProtectedOperation(t *testing.T) {
	t.Run("anonymous is denied before the handler runs", func(t *testing.T) {
		f := newFixture(t)

		for _, session := range []gate.Session{nil, gate.Anonymous} {
			_, err := f.dispatcher.Dispatch(context.Background(), session, "hello", nil)
			require.Error(t, err)
			assert.Equal(t, fault.KindAuthorizationDenied, fault.KindOf(err))
			errutil.AssertErrorContext(t, err, "operation", "hello")
		}
		assert.Zero(t, f.calls)
	})

	t.Run("authenticated user runs the handler", func(t *testing.T) {
		f := newFixture(t)

		got, err := f.dispatcher.Dispatch(context.Background(), gate.ForUser(42), "hello", nil)
		require.NoError(t, err)
		assert.Equal(t, int64(42), got)
		assert.Equal(t, 1, f.calls)
	})
}

func TestDispatch_InvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		fields []string
	}{
		{"missing required field", `{}`, []string{"name"}},
		{"empty input", ``, []string{"name"}},
		{"too short", `{"name":""}`, []string{"name"}},
		{"out of range", `{"name":"x","age":-1}`, []string{"age"}},
		{"unknown property", `{"name":"x","nickname":"y"}`, []string{"nickname"}},
		{"wrong type", `{"name":7}`, []string{"name"}},
		{"malformed json", `{"name":`, []string{"input"}},
		{"not an object", `[]`, []string{"input"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.dispatcher.Dispatch(context.Background(), gate.Anonymous, "greet", json.RawMessage(tt.input))
			require.Error(t, err)
			assert.Equal(t, fault.KindValidation, fault.KindOf(err))

			var fields []string
			for _, v := range fault.Violations(err) {
				fields = append(fields, v.Field)
				assert.NotEmpty(t, v.Message)
			}
			assert.Equal(t, tt.fields, fields)
			assert.Zero(t, f.calls, "handler must not run on invalid input")
		})
	}
}

func TestDispatch_HandlerErrorPassesThrough(t *testing.T) {
	f := newFixture(t)

	_, err := f.dispatcher.Dispatch(context.Background(), gate.Anonymous, "explode", nil)
	require.Error(t, err)
	assert.EqualError(t, err, "boom")
	assert.Equal(t, fault.KindInternal, fault.KindOf(err))
}
