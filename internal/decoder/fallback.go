package decoder

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// FallbackRule names one pattern extraction applied when structural parsing
// fails even after repair. Rules are independent: one that does not match
// simply contributes nothing to the partial record.
type FallbackRule struct {
	Field string
	Apply func(text string) (any, bool)
}

// fallbackRules covers the top-level fragments and presence/count signals
// the pipeline can still act on for an unparseable snapshot.
var fallbackRules = []FallbackRule{
	{Field: "search_metadata", Apply: objectFragment("search_metadata")},
	{Field: "search_parameters", Apply: objectFragment("search_parameters")},
	{Field: "has_best_flights", Apply: keyPresence("best_flights")},
	{Field: "price_count", Apply: priceCount},
	{Field: "first_price", Apply: firstPrice},
	{Field: "created_at", Apply: quotedField("created_at")},
}

// ExtractFields runs every fallback rule over the raw text and collects the
// fields that matched.
func ExtractFields(text string) map[string]any {
	fields := make(map[string]any)
	for _, rule := range fallbackRules {
		if v, ok := rule.Apply(text); ok {
			fields[rule.Field] = v
		}
	}
	return fields
}

var priceRe = regexp.MustCompile(`"price"\s*:\s*([0-9]+(?:\.[0-9]+)?)`)

// priceCount counts "price": N occurrences anywhere in the text. The scan is
// global and may count tokens outside the intended array; a known precision
// limit of the fallback path.
func priceCount(text string) (any, bool) {
	n := len(priceRe.FindAllStringIndex(text, -1))
	if n == 0 {
		return nil, false
	}
	return n, true
}

func firstPrice(text string) (any, bool) {
	m := priceRe.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	price, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil, false
	}
	return price, true
}

func keyPresence(key string) func(string) (any, bool) {
	re := regexp.MustCompile(`"` + regexp.QuoteMeta(key) + `"\s*:`)
	return func(text string) (any, bool) {
		if !re.MatchString(text) {
			return nil, false
		}
		return true, true
	}
}

func quotedField(key string) func(string) (any, bool) {
	re := regexp.MustCompile(`"` + regexp.QuoteMeta(key) + `"\s*:\s*"([^"]+)"`)
	return func(text string) (any, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return nil, false
		}
		return CanonicalizeTimestampValue(m[1]), true
	}
}

// objectFragment extracts the named top-level object by balanced-brace
// scanning and parses it in isolation. If the fragment itself is broken it
// is kept as raw text rather than discarded.
func objectFragment(key string) func(string) (any, bool) {
	re := regexp.MustCompile(`"` + regexp.QuoteMeta(key) + `"\s*:\s*\{`)
	return func(text string) (any, bool) {
		loc := re.FindStringIndex(text)
		if loc == nil {
			return nil, false
		}
		fragment, ok := balancedBraces(text[loc[1]-1:])
		if !ok {
			return nil, false
		}

		repaired := Repair(fragment)
		var obj map[string]any
		if err := json.Unmarshal([]byte(repaired), &obj); err == nil {
			return obj, true
		}
		return strings.TrimSpace(fragment), true
	}
}

// balancedBraces returns the substring from the leading '{' through its
// matching '}', honoring string literals and escapes.
func balancedBraces(text string) (string, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[:i+1], true
				}
			}
		}
	}
	return "", false
}
