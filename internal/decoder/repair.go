package decoder

import (
	"regexp"
	"strings"
)

// Regex patterns for the repairs
var (
	// Matches: "created_at": "2025-05-12 18:59:00 UTC"
	// Provider timestamps use a space-separated date/time with a trailing
	// zone abbreviation instead of RFC 3339.
	strictTimestampRe = regexp.MustCompile(`("(?:created_at|processed_at)"\s*:\s*)"(\d{4}-\d{2}-\d{2}) (\d{2}:\d{2}:\d{2}) [A-Z]{1,5}"`)

	// Looser rule: any quoted date-time-zone triple, whatever the field
	looseTimestampRe = regexp.MustCompile(`"(\d{4}-\d{2}-\d{2}) (\d{2}:\d{2}:\d{2}) [A-Za-z]{1,5}"`)

	// Bare date-time-zone triple outside of JSON context, used when
	// canonicalizing a single extracted value
	bareTimestampRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}) (\d{2}:\d{2}:\d{2}) [A-Za-z]{1,5}$`)

	// Trailing comma before a closing bracket: {"a":1,} or [1,2,]
	trailingCommaRe = regexp.MustCompile(`,(\s*[\]}])`)
)

// Repair applies the targeted text repairs for the malformed patterns
// observed in captured snapshots: same-line comments, raw control
// characters, non-RFC-3339 timestamps, and trailing commas.
func Repair(text string) string {
	return repairWith(text, replaceControlRunes)
}

// repairDeletingControls is the aggressive variant: control characters are
// deleted instead of spaced, which can rejoin tokens a stray control
// character split in two.
func repairDeletingControls(text string) string {
	return repairWith(text, stripControlChars)
}

func repairWith(text string, controls func(string) string) string {
	text = stripLineComments(text)
	text = controls(text)
	text = canonicalizeTimestamps(text)
	text = stripTrailingCommas(text)
	return text
}

// stripLineComments removes "//" comments to end of line, ignoring slashes
// inside string literals.
func stripLineComments(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = cutComment(line)
	}
	return strings.Join(lines, "\n")
}

func cutComment(line string) string {
	inString := false
	escaped := false
	for i := 0; i < len(line); i++ {
		c := line[i]
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
		case '/':
			if !inString && i+1 < len(line) && line[i+1] == '/' {
				return line[:i]
			}
		}
	}
	return line
}

// replaceControlRunes maps C0 and C1 control characters (and DEL) to spaces.
// Works on runes, not bytes, so multi-byte UTF-8 sequences stay intact.
func replaceControlRunes(text string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || (r >= 0x7f && r <= 0x9f) {
			return ' '
		}
		return r
	}, text)
}

// stripControlChars removes C0 and C1 control characters (and DEL)
// outright. More aggressive than replaceControlRunes: deletion can rejoin
// tokens that a stray control character split in two.
func stripControlChars(text string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || (r >= 0x7f && r <= 0x9f) {
			return -1
		}
		return r
	}, text)
}

// canonicalizeTimestamps rewrites "YYYY-MM-DD HH:MM:SS TZ" values to
// "YYYY-MM-DDTHH:MM:SSZ". The strict rule targets created_at/processed_at;
// the loose rule catches the same triple under any field name.
func canonicalizeTimestamps(text string) string {
	text = strictTimestampRe.ReplaceAllString(text, `$1"$2T$3Z"`)
	text = looseTimestampRe.ReplaceAllString(text, `"$1T$2Z"`)
	return text
}

// CanonicalizeTimestampValue applies the same rewrite to a single bare value,
// e.g. one pulled out by a fallback rule.
func CanonicalizeTimestampValue(value string) string {
	return bareTimestampRe.ReplaceAllString(value, "$1T$2Z")
}

// stripTrailingCommas removes commas directly preceding a closing brace or
// bracket. Loops because collapsing one comma can expose another (",,]").
func stripTrailingCommas(text string) string {
	for {
		repaired := trailingCommaRe.ReplaceAllString(text, "$1")
		if repaired == text {
			return text
		}
		text = repaired
	}
}
