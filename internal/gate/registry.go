// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package gate

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"

	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// Call is the invocation passed to a Handler.
type Call struct {
	Operation string
	Session   Session
	// UserID is the session's user, or 0 for anonymous callers.
	UserID int64
	// Input is the raw JSON input, already validated against the
	// operation's schema.
	Input json.RawMessage
}

// Handler executes an operation.
type Handler func(ctx context.Context, call *Call) (any, error)

// Operation describes one entry of the operation table.
type Operation struct {
	Name      string
	Protected bool
	// Input is a prototype value of the input type (e.g. RegisterInput{}).
	// Nil means the operation takes no input.
	Input   any
	Handler Handler
	Help    string
}

type entry struct {
	op     Operation
	schema *jschema.Schema
	raw    []byte
}

// Registry is the operation table. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	ops    map[string]entry
	logger *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		ops:    make(map[string]entry),
		logger: logger,
	}
}

// Register adds op, compiling its input schema. An existing operation with
// the same name is replaced and a warning is logged.
func (r *Registry) Register(op Operation) error {
	if op.Name == "" {
		return oops.Code("OPERATION_INVALID").Errorf("operation name is required")
	}
	if op.Handler == nil {
		return oops.Code("OPERATION_INVALID").With("operation", op.Name).Errorf("operation handler is required")
	}

	e := entry{op: op}
	if op.Input != nil {
		raw, sch, err := compileInputSchema(op.Name, op.Input)
		if err != nil {
			return oops.Code("OPERATION_INVALID").With("operation", op.Name).Wrap(err)
		}
		e.raw = raw
		e.schema = sch
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ops[op.Name]; ok {
		r.logger.Warn("operation conflict: overwriting existing operation", "operation", op.Name)
	}
	r.ops[op.Name] = e
	return nil
}

// MustRegister is Register for static tables; it panics on error.
func (r *Registry) MustRegister(ops ...Operation) {
	for _, op := range ops {
		if err := r.Register(op); err != nil {
			panic(err)
		}
	}
}

// Get retrieves an operation by name.
func (r *Registry) Get(name string) (Operation, bool) {
	e, ok := r.get(name)
	return e.op, ok
}

// Schema returns the JSON Schema of the operation's input, or nil if the
// operation takes no input.
func (r *Registry) Schema(name string) ([]byte, bool) {
	e, ok := r.get(name)
	if !ok {
		return nil, false
	}
	return e.raw, true
}

// All returns all operations sorted by name.
func (r *Registry) All() []Operation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ops := make([]Operation, 0, len(r.ops))
	for _, e := range r.ops {
		ops = append(ops, e.op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Name < ops[j].Name })
	return ops
}

func (r *Registry) get(name string) (entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.ops[name]
	return e, ok
}
