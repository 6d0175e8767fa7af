package decoder

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/luisvinatea/ChasquiFX-sub002/internal/entities"
)

// ErrNotText is returned when the input is not text-decodable at all
// (binary uploads, truncated multi-byte sequences). Any text input yields at
// least a fallback result, never an error.
var ErrNotText = errors.New("input is not decodable text")

// Result is the decoder output. Exactly one of Value and Fields is set:
// Value holds the fully parsed JSON value (object or array) when Method is
// full; Fields holds the pattern-extracted fragments when Method is fallback.
type Result struct {
	Method entities.ParseMethod
	Value  any
	Fields map[string]any
}

// Object returns the decoded top-level object, or nil when the result is a
// fallback or the value is not an object.
func (r Result) Object() map[string]any {
	m, _ := r.Value.(map[string]any)
	return m
}

// Array returns the decoded top-level array, or nil.
func (r Result) Array() []any {
	a, _ := r.Value.([]any)
	return a
}

// Decode turns a raw snapshot into structured data. Repair passes run in
// order of increasing aggressiveness and stop at the first successful parse.
// Inputs that resist every pass still produce a pattern-extraction result.
func Decode(raw []byte) (Result, error) {
	if !utf8.Valid(raw) {
		return Result{}, fmt.Errorf("%w: invalid UTF-8", ErrNotText)
	}
	text := string(raw)

	// Pass 1: strict parse as-is
	if v, ok := tryParse(text); ok {
		return Result{Method: entities.ParseMethodFull, Value: v}, nil
	}

	// Pass 2: targeted repairs for the malformations observed in captures
	repaired := Repair(text)
	if v, ok := tryParse(repaired); ok {
		return Result{Method: entities.ParseMethodFull, Value: v}, nil
	}

	// Pass 3: repair again from the original, deleting control characters
	// instead of spacing them, which can rejoin split tokens
	if v, ok := tryParse(repairDeletingControls(text)); ok {
		return Result{Method: entities.ParseMethodFull, Value: v}, nil
	}

	// Pass 4: pattern extraction. A partial record beats total failure.
	return Result{Method: entities.ParseMethodFallback, Fields: ExtractFields(text)}, nil
}

func tryParse(text string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, false
	}
	return v, true
}
