package extract

import (
	"strings"
	"testing"
)

func TestParseExtractionResponseBareJSON(t *testing.T) {
	raw := `{"states":[{"name":"OrderStatus","values":["pending","shipped"],"description":"order lifecycle"}],"tables":[{"name":"users","description":"","fields":[{"name":"id","type":"INT","description":"","required":true}]}]}`
	states, tables := ParseExtractionResponse(raw)
	if len(states) != 1 || len(tables) != 1 {
		t.Fatalf("states=%d tables=%d", len(states), len(tables))
	}
	if states[0].Name != "OrderStatus" || len(states[0].Values) != 2 {
		t.Errorf("state = %+v", states[0])
	}
	if tables[0].Fields[0].Type != "int" {
		t.Errorf("type should be normalized, got %q", tables[0].Fields[0].Type)
	}
	if !tables[0].Fields[0].Required {
		t.Errorf("required flag lost")
	}
}

func TestParseExtractionResponseFencedBlock(t *testing.T) {
	raw := "Here is the result:\n```json\n{\"states\":[{\"name\":\"s\",\"values\":[\"a\"]}],\"tables\":[]}\n```\nHope this helps!"
	states, tables := ParseExtractionResponse(raw)
	if len(states) != 1 || len(tables) != 0 {
		t.Fatalf("states=%d tables=%d", len(states), len(tables))
	}
}

func TestParseExtractionResponseGarbage(t *testing.T) {
	tests := []string{
		"",
		"sorry, I cannot help with that",
		"{not json at all",
		`{"states": "oops", "tables": 42}`,
	}
	for _, raw := range tests {
		states, tables := ParseExtractionResponse(raw)
		if len(states) != 0 || len(tables) != 0 {
			t.Errorf("raw %q: expected empty results, got %d/%d", raw, len(states), len(tables))
		}
	}
}

func TestParseExtractionResponseSkipsInvalidEntries(t *testing.T) {
	raw := `{"states":[{"name":"","values":["a"]},{"name":"ok","values":[]},{"name":"kept","values":["x"]}],"tables":[{"name":"empty","fields":[]},{"name":"t","fields":[{"name":"f","type":"bool"}]}]}`
	states, tables := ParseExtractionResponse(raw)
	if len(states) != 1 || states[0].Name != "kept" {
		t.Fatalf("states = %+v", states)
	}
	if len(tables) != 1 || tables[0].Fields[0].Type != "boolean" {
		t.Fatalf("tables = %+v", tables)
	}
}

func TestBuildExtractionPromptEmbedsDocument(t *testing.T) {
	doc := "## 订单状态：待支付、已支付"
	prompt := BuildExtractionPrompt(doc)
	if !strings.Contains(prompt, doc) {
		t.Errorf("prompt does not embed the document")
	}
	if !strings.Contains(prompt, `"states"`) || !strings.Contains(prompt, `"tables"`) {
		t.Errorf("prompt does not describe the JSON schema")
	}
}
