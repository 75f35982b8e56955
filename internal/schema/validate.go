package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ErrInvalid wraps every schema violation reported by Validate.
var ErrInvalid = errors.New("output does not match schema")

const resourceBase = "https://schemas.swingdesk.app/radar/"

// Validator compiles schemas once per name and checks raw JSON against them.
type Validator struct {
	mu       sync.Mutex
	compiled map[string]*jsonschema.Schema
}

// NewValidator returns an empty Validator.
func NewValidator() *Validator {
	return &Validator{compiled: map[string]*jsonschema.Schema{}}
}

// Validate checks raw JSON text against the named schema.
func (v *Validator) Validate(name string, schema map[string]any, raw []byte) error {
	sch, err := v.compile(name, schema)
	if err != nil {
		return err
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(strings.Fields(err.Error()), " "))
	}
	return nil
}

func (v *Validator) compile(name string, schema map[string]any) (*jsonschema.Schema, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if sch, ok := v.compiled[name]; ok {
		return sch, nil
	}

	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema %s: %w", name, err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode schema %s: %w", name, err)
	}

	url := resourceBase + name + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", name, err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	v.compiled[name] = sch
	return sch, nil
}

// ValidateTabular checks a tabular extraction.
func (v *Validator) ValidateTabular(raw []byte) error {
	return v.Validate(NameTabular, Tabular(), raw)
}

// ValidateSmart2Move checks a Smart2Move extraction.
func (v *Validator) ValidateSmart2Move(raw []byte) error {
	return v.Validate(NameSmart2Move, Smart2Move(), raw)
}

// ValidateVerification checks a verification verdict.
func (v *Validator) ValidateVerification(raw []byte, withGraphType bool) error {
	return v.Validate(VerificationName(withGraphType), Verification(withGraphType), raw)
}
