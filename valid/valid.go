// Package valid validates PGXN META.json documents against the PGXN Meta
// Spec JSON schemas. It supports both the v1 and v2 specs, selecting the
// schema generation from the meta-spec.version property of the document
// under validation.
//
// All schema documents are registered and the top-level schemas compiled at
// construction time; a Validator is safe for concurrent use once New
// returns.
package valid

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/pgxn/meta-go/internal/utils/logger"
)

// SchemaBase is the base URL for all PGXN meta schemas.
const SchemaBase = "https://pgxn.org/meta/v"

// ErrUnknownSpec is returned when a document carries no recognizable
// meta-spec version.
var ErrUnknownSpec = errors.New("cannot determine meta-spec version")

// SchemaID returns the canonical URL of the named schema document for a
// spec version, e.g. SchemaID(2, "term") returns
// "https://pgxn.org/meta/v2/term.schema.json".
func SchemaID(version int, name string) string {
	return fmt.Sprintf("%s%d/%s.schema.json", SchemaBase, version, name)
}

// A Violation describes one schema rule that a document failed.
type Violation struct {
	// Instance is the JSON pointer to the offending value.
	Instance string
	// Schema is the absolute location of the keyword that failed.
	Schema string
	// Message describes the failure.
	Message string
}

// A ValidationError collects the violations found while validating one
// document against one schema, in schema traversal order.
type ValidationError struct {
	SchemaID   string
	Violations []Violation
}

func (e *ValidationError) Error() string {
	b := new(strings.Builder)
	fmt.Fprintf(b, "document fails validation against %s", e.SchemaID)
	for _, v := range e.Violations {
		fmt.Fprintf(b, "\n  '%s': %s", v.Instance, v.Message)
	}
	return b.String()
}

// collect flattens a jsonschema validation error tree into violations,
// skipping the outermost wrapper, which only restates the schema URL.
func collect(ve *jsonschema.ValidationError) []Violation {
	var out []Violation
	var walk func(v *jsonschema.ValidationError)
	walk = func(v *jsonschema.ValidationError) {
		out = append(out, Violation{
			Instance: v.InstanceLocation,
			Schema:   v.AbsoluteKeywordLocation,
			Message:  v.Message,
		})
		for _, c := range v.Causes {
			walk(c)
		}
	}
	for _, c := range ve.Causes {
		walk(c)
	}
	if len(out) == 0 {
		out = append(out, Violation{
			Instance: ve.InstanceLocation,
			Schema:   ve.AbsoluteKeywordLocation,
			Message:  ve.Message,
		})
	}
	return out
}

// Validator validates PGXN distribution and release metadata.
type Validator struct {
	mu       sync.Mutex
	compiler *jsonschema.Compiler
	compiled map[string]*jsonschema.Schema
}

// New creates a Validator with every schema document registered and the
// top-level distribution, release, and payload schemas compiled. An error
// means an embedded schema failed to compile, which indicates a broken
// build.
func New() (*Validator, error) {
	c, err := newCompiler()
	if err != nil {
		return nil, err
	}
	v := &Validator{compiler: c, compiled: make(map[string]*jsonschema.Schema)}
	for _, id := range []string{
		SchemaID(1, "distribution"),
		SchemaID(1, "release"),
		SchemaID(2, "distribution"),
		SchemaID(2, "release"),
		SchemaID(2, "payload"),
	} {
		if _, err := v.schemaFor(id); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// MustNew is New for process startup, panicking on a broken schema set.
func MustNew() *Validator {
	v, err := New()
	if err != nil {
		panic(err)
	}
	return v
}

// SpecVersion returns the major meta-spec version declared in meta, or zero
// when meta-spec.version is missing or unrecognized.
func SpecVersion(meta map[string]interface{}) int {
	spec, ok := meta["meta-spec"].(map[string]interface{})
	if !ok {
		return 0
	}
	s, ok := spec["version"].(string)
	if !ok || len(s) < 2 {
		return 0
	}
	switch s[:2] {
	case "1.":
		return 1
	case "2.":
		return 2
	}
	return 0
}

// Validate validates distribution metadata against the distribution schema
// for the meta-spec version declared in the document. It returns the spec
// version (1 or 2) on success.
func (v *Validator) Validate(meta map[string]interface{}) (int, error) {
	return v.validateNamed(meta, "distribution")
}

// ValidateRelease validates release metadata, the distribution metadata
// published by PGXN with added provenance: user, date, and sha1 in v1, and
// a JWS envelope under certs in v2. It returns the spec version (1 or 2) on
// success. The v2 JWS payload is an encoded string; decode it and pass it
// to ValidatePayload separately.
func (v *Validator) ValidateRelease(meta map[string]interface{}) (int, error) {
	return v.validateNamed(meta, "release")
}

// ValidatePayload validates a decoded v2 release JWS payload: the user who
// published the release, the release timestamp, the download URI, and the
// digests of the release archive.
func (v *Validator) ValidatePayload(payload map[string]interface{}) error {
	return v.ValidateSchema(payload, SchemaID(2, "payload"))
}

func (v *Validator) validateNamed(meta map[string]interface{}, name string) (int, error) {
	version := SpecVersion(meta)
	if version == 0 {
		return 0, ErrUnknownSpec
	}
	if err := v.ValidateSchema(meta, SchemaID(version, name)); err != nil {
		return 0, err
	}
	return version, nil
}

// ValidateSchema validates doc against the schema document registered under
// id, which must be the canonical schema URL as returned by SchemaID.
func (v *Validator) ValidateSchema(doc interface{}, id string) error {
	logger.Logger().Debugw("validate", "schema", id)
	sch, err := v.schemaFor(id)
	if err != nil {
		return err
	}
	if err := sch.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return &ValidationError{SchemaID: id, Violations: collect(ve)}
		}
		return fmt.Errorf("validating against %s: %w", id, err)
	}
	return nil
}

// schemaFor returns the compiled schema for id, compiling and caching it on
// first use.
func (v *Validator) schemaFor(id string) (*jsonschema.Schema, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if s, ok := v.compiled[id]; ok {
		return s, nil
	}
	s, err := v.compiler.Compile(id)
	if err != nil {
		return nil, fmt.Errorf("compiling schema %s: %w", id, err)
	}
	v.compiled[id] = s
	return s, nil
}
