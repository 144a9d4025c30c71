// Package utils holds the lenient decoders used for hand-written scenario files and the
// Markdown renderer behind the analysis report.
package utils

import (
	"bytes"
	"encoding/json"
	"fmt"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// Strategy names the decoder that accepted an input.
type Strategy string

const (
	StrategyJSON     Strategy = "json"
	StrategyRepaired Strategy = "json-repair"
	StrategyHjson    Strategy = "hjson"
)

// DecodeStrict unmarshals JSON and rejects fields v does not declare.
func DecodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("json: %w", err)
	}
	return nil
}

// RepairJSON fixes trailing commas, single quotes, unquoted keys, comments and
// unclosed brackets in hand-edited JSON.
func RepairJSON(malformed string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(malformed)
	if err != nil {
		return "", fmt.Errorf("json repair: %w", err)
	}
	return repaired, nil
}

// ParseHJSON converts Hjson (comments, unquoted keys and strings, optional commas) to
// standard JSON.
func ParseHJSON(data []byte) ([]byte, error) {
	var result any
	if err := hjson.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("hjson: %w", err)
	}
	out, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("hjson to json: %w", err)
	}
	return out, nil
}

// SmartParse tries multiple parsing strategies, strictest first:
// 1. Standard JSON
// 2. JSON repair
// 3. Hjson (most lenient)
func SmartParse(input []byte, v any) (Strategy, error) {
	first := DecodeStrict(input, v)
	if first == nil {
		return StrategyJSON, nil
	}

	if repaired, err := RepairJSON(string(input)); err == nil {
		if err := DecodeStrict([]byte(repaired), v); err == nil {
			return StrategyRepaired, nil
		}
	}

	if converted, err := ParseHJSON(input); err == nil {
		if err := DecodeStrict(converted, v); err == nil {
			return StrategyHjson, nil
		}
	}

	return "", fmt.Errorf("all parsing strategies failed: %w", first)
}
