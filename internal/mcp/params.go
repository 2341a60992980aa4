package mcp

import (
	"encoding/json"
	"math"
	"strings"

	pdferrors "github.com/a3tai/mcp-pdf-processor/internal/pdf/errors"
)

// requireString returns a non-blank string argument
func requireString(args map[string]any, name string) (string, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return "", pdferrors.Newf(pdferrors.KindValidation, "missing required parameter: %s", name)
	}

	s, ok := raw.(string)
	if !ok {
		return "", pdferrors.Newf(pdferrors.KindValidation, "parameter %s must be a string", name)
	}
	if strings.TrimSpace(s) == "" {
		return "", pdferrors.Newf(pdferrors.KindValidation, "parameter %s cannot be empty", name)
	}
	return s, nil
}

// requirePositiveInt returns an integer argument that must be present and >= 1
func requirePositiveInt(args map[string]any, name string) (int, error) {
	n, present, err := optionalPositiveInt(args, name)
	if err != nil {
		return 0, err
	}
	if !present {
		return 0, pdferrors.Newf(pdferrors.KindValidation, "missing required parameter: %s", name)
	}
	return n, nil
}

// optionalPositiveInt returns (0, false, nil) when the argument is absent or null
func optionalPositiveInt(args map[string]any, name string) (int, bool, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return 0, false, nil
	}

	n, ok := toInt(raw)
	if !ok {
		return 0, true, pdferrors.Newf(pdferrors.KindValidation, "parameter %s must be an integer", name)
	}
	if n < 1 {
		return 0, true, pdferrors.Newf(pdferrors.KindValidation, "parameter %s must be a positive integer, got %d", name, n)
	}
	return n, true, nil
}

// toInt accepts the numeric shapes JSON decoding and Go callers produce. Strings
// are rejected rather than coerced.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		if n > math.MaxInt32 || n < math.MinInt32 {
			return 0, false
		}
		return int(n), true
	case float64:
		return floatToInt(n)
	case float32:
		return floatToInt(float64(n))
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return toInt(i)
		}
		if f, err := n.Float64(); err == nil {
			return floatToInt(f)
		}
	}
	return 0, false
}

func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}
