package decoder

import (
	"testing"

	"github.com/luisvinatea/ChasquiFX-sub002/internal/entities"
)

func TestDecode_StrictJSON(t *testing.T) {
	res, err := Decode([]byte(`{"a": 1, "b": "two"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Method != entities.ParseMethodFull {
		t.Errorf("expected full parse, got %s", res.Method)
	}
	obj := res.Object()
	if obj == nil {
		t.Fatal("expected object result")
	}
	if obj["a"] != float64(1) {
		t.Errorf("expected a=1, got %v", obj["a"])
	}
}

func TestDecode_TopLevelArray(t *testing.T) {
	res, err := Decode([]byte(`[{"iata": "JFK"}, {"iata": "AMM"}]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Method != entities.ParseMethodFull {
		t.Errorf("expected full parse, got %s", res.Method)
	}
	if len(res.Array()) != 2 {
		t.Errorf("expected 2 array entries, got %d", len(res.Array()))
	}
}

func TestDecode_TrailingComma(t *testing.T) {
	res, err := Decode([]byte(`{"a":1,}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Method != entities.ParseMethodFull {
		t.Fatalf("expected full parse after repair, got %s", res.Method)
	}
	if res.Object()["a"] != float64(1) {
		t.Errorf("expected a=1, got %v", res.Object()["a"])
	}
}

func TestDecode_NestedTrailingCommas(t *testing.T) {
	res, err := Decode([]byte(`{"a": [1, 2,], "b": {"c": 3,},}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Method != entities.ParseMethodFull {
		t.Fatalf("expected full parse after repair, got %s", res.Method)
	}
}

func TestDecode_DateRepair(t *testing.T) {
	raw := []byte(`{"search_metadata": {"created_at": "2025-05-12 18:59:00 UTC"}}`)
	res, err := Decode(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	meta, ok := res.Object()["search_metadata"].(map[string]any)
	if !ok {
		t.Fatal("expected search_metadata object")
	}
	if meta["created_at"] != "2025-05-12T18:59:00Z" {
		t.Errorf("expected canonical timestamp, got %v", meta["created_at"])
	}
}

func TestDecode_LooseDateRepair(t *testing.T) {
	// Zone triple under an arbitrary field name
	raw := []byte(`{"fetched": "2025-05-12 18:59:00 CET"}`)
	res, err := Decode(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Object()["fetched"] != "2025-05-12T18:59:00Z" {
		t.Errorf("expected canonical timestamp, got %v", res.Object()["fetched"])
	}
}

func TestDecode_ControlCharacters(t *testing.T) {
	raw := []byte("{\"a\": \"x\x01y\", \"b\": 2}")
	res, err := Decode(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Method != entities.ParseMethodFull {
		t.Fatalf("expected full parse after repair, got %s", res.Method)
	}
	if res.Object()["a"] != "x y" {
		t.Errorf("expected control char replaced by space, got %q", res.Object()["a"])
	}
}

func TestDecode_ControlCharacterInsideNumber(t *testing.T) {
	// Replacing the control char with a space leaves "12 34", which never
	// parses; only deleting it rejoins the number. Other repairs (the
	// trailing comma here) must still apply in the same pass.
	raw := []byte("{\"price\": 12\x0134,}")
	res, err := Decode(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Method != entities.ParseMethodFull {
		t.Fatalf("expected full parse after aggressive repair, got %s", res.Method)
	}
	if res.Object()["price"] != float64(1234) {
		t.Errorf("expected rejoined number 1234, got %v", res.Object()["price"])
	}
}

func TestDecode_LineComments(t *testing.T) {
	raw := []byte("{\n\"a\": 1, // captured note\n\"url\": \"https://example.com/x\"\n}")
	res, err := Decode(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Method != entities.ParseMethodFull {
		t.Fatalf("expected full parse after repair, got %s", res.Method)
	}
	// Slashes inside string values must survive comment stripping
	if res.Object()["url"] != "https://example.com/x" {
		t.Errorf("url mangled: %v", res.Object()["url"])
	}
}

func TestDecode_FallbackExtraction(t *testing.T) {
	// Broken beyond structural repair: unbalanced brackets
	raw := []byte(`{"search_metadata": {"id": "abc", "created_at": "2025-05-12 18:59:00 UTC"}, "best_flights": [{"price": 450}, {"price": 512}`)
	res, err := Decode(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Method != entities.ParseMethodFallback {
		t.Fatalf("expected fallback parse, got %s", res.Method)
	}

	meta, ok := res.Fields["search_metadata"].(map[string]any)
	if !ok {
		t.Fatalf("expected extracted search_metadata object, got %T", res.Fields["search_metadata"])
	}
	if meta["id"] != "abc" {
		t.Errorf("expected id=abc, got %v", meta["id"])
	}
	if res.Fields["has_best_flights"] != true {
		t.Error("expected has_best_flights=true")
	}
	if res.Fields["price_count"] != 2 {
		t.Errorf("expected price_count=2, got %v", res.Fields["price_count"])
	}
	if res.Fields["first_price"] != float64(450) {
		t.Errorf("expected first_price=450, got %v", res.Fields["first_price"])
	}
	if res.Fields["created_at"] != "2025-05-12T18:59:00Z" {
		t.Errorf("expected canonical created_at, got %v", res.Fields["created_at"])
	}
}

func TestDecode_NeverFailsOnText(t *testing.T) {
	inputs := []string{
		"",
		"not json at all",
		"{{{{",
		`"dangling`,
		"}{",
	}
	for _, in := range inputs {
		res, err := Decode([]byte(in))
		if err != nil {
			t.Errorf("Decode(%q) returned error: %v", in, err)
			continue
		}
		if res.Method != entities.ParseMethodFull && res.Method != entities.ParseMethodFallback {
			t.Errorf("Decode(%q) returned method %q", in, res.Method)
		}
	}
}

func TestDecode_BinaryInput(t *testing.T) {
	raw := []byte{0xff, 0xfe, 0x00, 0x42, 0x81}
	_, err := Decode(raw)
	if err == nil {
		t.Fatal("expected error for binary input")
	}
}

func TestRepair_TrailingCommaChain(t *testing.T) {
	got := stripTrailingCommas(`[1,,]`)
	if got != `[1]` {
		t.Errorf("expected [1], got %s", got)
	}
}

func TestExtractFields_NoSignals(t *testing.T) {
	fields := ExtractFields("plain text, nothing structured")
	if len(fields) != 0 {
		t.Errorf("expected no fields, got %v", fields)
	}
}
