package livehttp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"verge/internal/session"
)

// strategySchema guards strategy creation before the body reaches the
// service. Percentages are whole percent.
const strategySchema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "name":            {"type": "string", "maxLength": 128},
    "direction":       {"enum": ["Long", "Short", "Auto"]},
    "symbols":         {"type": "array", "items": {"type": "string", "minLength": 1}, "maxItems": 50},
    "style":           {"enum": ["Scalping", "DayTrading", "SwingTrading", "PositionTrading", "HODL", "GridTrading", "Auto"]},
    "leverage":        {"type": "integer", "minimum": 1, "maximum": 125},
    "capital":         {"type": ["number", "string"]},
    "take_profit_pct": {"type": ["number", "string"]},
    "stop_loss_pct":   {"type": ["number", "string"]},
    "auto_mode":       {"type": "boolean"},
    "notifications":   {"type": "boolean"}
  }
}`

func compileSchema(raw string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("strategy.json", strings.NewReader(raw)); err != nil {
		return nil, err
	}
	return compiler.Compile("strategy.json")
}

// decodeStrategy validates raw against the schema before binding it.
func decodeStrategy(schema *jsonschema.Schema, raw []byte) (session.StrategyInput, error) {
	var in session.StrategyInput
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return in, fmt.Errorf("invalid json: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return in, err
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return in, err
	}
	return in, nil
}
