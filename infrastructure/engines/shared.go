// Package engines provides the evaluation aggregation and recognition
// engines: cycle lifecycle control, weighted multi-rater aggregation,
// eligibility and rotation gating, annual scoring, and the nomination state
// machine. Engines are stateless value transformations over domain
// snapshots; persistence and transport stay with the caller.
package engines

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Common errors returned by the engines.
var (
	// ErrEmptyEngineName is returned when creating an engine with an empty name.
	ErrEmptyEngineName = errors.New("engine name cannot be empty")

	// ErrInvalidPeriod is returned when a cycle period key is not in YYYY-MM form.
	ErrInvalidPeriod = errors.New("period must be in YYYY-MM form")
)

// periodPattern matches the YYYY-MM period keys used by cycles, nominations,
// and fairness alerts.
var periodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ValidPeriod reports whether the given period key is in YYYY-MM form.
func ValidPeriod(period string) bool { return periodPattern.MatchString(period) }

// Package-level validator instance for configuration validation.
// Uses go-playground/validator v10 for struct tag-based validation.
var validate = validator.New()

// decodeStrict decodes a yaml.Node into out with KnownFields enabled so
// configuration typos fail loudly instead of being silently ignored.
func decodeStrict(params yaml.Node, out any) error {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	if err := encoder.Encode(&params); err != nil {
		return fmt.Errorf("failed to encode YAML node: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to close YAML encoder: %w", err)
	}

	decoder := yaml.NewDecoder(&buf)
	decoder.KnownFields(true)
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("failed to decode parameters (check for typos): %w", err)
	}
	return nil
}
