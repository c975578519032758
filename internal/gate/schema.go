// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package gate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/invopop/jsonschema"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/authcore/authcore/internal/fault"
)

// inputField names violations that are not tied to a property.
const inputField = "input"

var printer = message.NewPrinter(language.English)

// compileInputSchema reflects prototype into a JSON Schema and compiles it.
func compileInputSchema(name string, prototype any) ([]byte, *jschema.Schema, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := r.Reflect(prototype)
	schema.Title = name

	raw, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	doc, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse schema JSON: %w", err)
	}

	url := name + ".schema.json"
	c := jschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return raw, sch, nil
}

// validateInput checks raw against sch and returns a fault.Validation error
// listing every failing field. Empty input is validated as {}.
func validateInput(sch *jschema.Schema, raw json.RawMessage) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage("{}")
	}

	inst, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fault.Validation(fault.FieldViolation{Field: inputField, Message: "must be valid JSON"})
	}

	if err := sch.Validate(inst); err != nil {
		return fault.Validation(schemaViolations(err)...)
	}
	return nil
}

// schemaViolations flattens a schema validation error into its leaf causes.
func schemaViolations(err error) []fault.FieldViolation {
	var verr *jschema.ValidationError
	if !errors.As(err, &verr) {
		return []fault.FieldViolation{{Field: inputField, Message: err.Error()}}
	}

	var out []fault.FieldViolation
	var walk func(e *jschema.ValidationError)
	walk = func(e *jschema.ValidationError) {
		if len(e.Causes) > 0 {
			for _, c := range e.Causes {
				walk(c)
			}
			return
		}
		switch k := e.ErrorKind.(type) {
		case *kind.Required:
			for _, prop := range k.Missing {
				out = append(out, fault.FieldViolation{
					Field:   fieldPath(append(slices.Clone(e.InstanceLocation), prop)),
					Message: "is required",
				})
			}
		case *kind.AdditionalProperties:
			for _, prop := range k.Properties {
				out = append(out, fault.FieldViolation{
					Field:   fieldPath(append(slices.Clone(e.InstanceLocation), prop)),
					Message: "is not allowed",
				})
			}
		default:
			out = append(out, fault.FieldViolation{
				Field:   fieldPath(e.InstanceLocation),
				Message: e.ErrorKind.LocalizedString(printer),
			})
		}
	}
	walk(verr)

	slices.SortStableFunc(out, func(a, b fault.FieldViolation) int {
		return strings.Compare(a.Field, b.Field)
	})
	return out
}

func fieldPath(location []string) string {
	if len(location) == 0 {
		return inputField
	}
	return strings.Join(location, ".")
}
