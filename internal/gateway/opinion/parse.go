package opinion

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"

	"autopilot/internal/types"
)

const signalSchemaText = `{
  "type": "object",
  "required": ["action", "confidence"],
  "properties": {
    "action": {"type": "string", "enum": ["BUY", "SELL", "HOLD"]},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "rationale": {"type": "string"}
  }
}`

var signalSchema = jsonschema.MustCompileString("signal.json", signalSchemaText)

// ParseSignal pulls the first JSON object out of a model reply, validates it
// against the signal schema and maps it to a Signal. Models wrap the object
// in prose or markdown fences often enough that a strict unmarshal of the
// whole reply would throw away good answers.
func ParseSignal(reply string) (types.Signal, error) {
	raw, ok := extractObject(reply)
	if !ok {
		return types.Signal{}, fmt.Errorf("no JSON object in reply")
	}
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return types.Signal{}, fmt.Errorf("malformed JSON object: %w", err)
	}
	if err := signalSchema.Validate(doc); err != nil {
		return types.Signal{}, fmt.Errorf("signal rejected by schema: %w", err)
	}
	return types.Signal{
		Action:     types.NormalizeAction(gjson.Get(raw, "action").String()),
		Confidence: gjson.Get(raw, "confidence").Float(),
		Rationale:  strings.TrimSpace(gjson.Get(raw, "rationale").String()),
	}, nil
}

// extractObject returns the first balanced top-level JSON object, skipping
// braces inside string literals.
func extractObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	if start == -1 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[start : i+1]), true
			}
		}
	}
	return "", false
}
