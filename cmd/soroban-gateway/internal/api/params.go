package api

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/stellar/go/xdr"

	"github.com/stellar/soroban-gateway/cmd/soroban-gateway/internal/invoke"
)

// paramSpec is one typed contract parameter on the wire. The type tag selects
// how value is interpreted before it is handed to the invocation builder.
type paramSpec struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

func decodeParams(specs []paramSpec) ([]interface{}, error) {
	params := make([]interface{}, 0, len(specs))
	for i, spec := range specs {
		value, err := decodeParam(spec)
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}
		params = append(params, value)
	}
	return params, nil
}

func decodeParam(spec paramSpec) (interface{}, error) {
	switch spec.Type {
	case "bool":
		var v bool
		if err := json.Unmarshal(spec.Value, &v); err != nil {
			return nil, fmt.Errorf("expected a boolean: %w", err)
		}
		return v, nil
	case "u32":
		raw, err := decodeIntegerString(spec.Value)
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("value %q does not fit in u32", raw)
		}
		return uint32(v), nil
	case "i32":
		raw, err := decodeIntegerString(spec.Value)
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("value %q does not fit in i32", raw)
		}
		return int32(v), nil
	case "u64":
		raw, err := decodeIntegerString(spec.Value)
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("value %q does not fit in u64", raw)
		}
		return v, nil
	case "i64":
		raw, err := decodeIntegerString(spec.Value)
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("value %q does not fit in i64", raw)
		}
		return v, nil
	case "string":
		var v string
		if err := json.Unmarshal(spec.Value, &v); err != nil {
			return nil, fmt.Errorf("expected a string: %w", err)
		}
		return v, nil
	case "symbol":
		var v string
		if err := json.Unmarshal(spec.Value, &v); err != nil {
			return nil, fmt.Errorf("expected a string: %w", err)
		}
		return invoke.Symbol(v), nil
	case "bytes":
		var v string
		if err := json.Unmarshal(spec.Value, &v); err != nil {
			return nil, fmt.Errorf("expected a base64 string: %w", err)
		}
		decoded, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("invalid base64: %w", err)
		}
		return decoded, nil
	case "address":
		var v string
		if err := json.Unmarshal(spec.Value, &v); err != nil {
			return nil, fmt.Errorf("expected a string: %w", err)
		}
		return invoke.Address(v), nil
	case "scval":
		var v string
		if err := json.Unmarshal(spec.Value, &v); err != nil {
			return nil, fmt.Errorf("expected a base64 string: %w", err)
		}
		var scVal xdr.ScVal
		if err := xdr.SafeUnmarshalBase64(v, &scVal); err != nil {
			return nil, fmt.Errorf("invalid ScVal XDR: %w", err)
		}
		return scVal, nil
	case "":
		return nil, fmt.Errorf("missing parameter type")
	default:
		return nil, fmt.Errorf("unsupported parameter type %q", spec.Type)
	}
}

// decodeIntegerString accepts either a JSON number or a decimal string, so
// 64-bit values survive clients whose JSON numbers are floats.
func decodeIntegerString(raw json.RawMessage) (string, error) {
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		return num.String(), nil
	}
	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return "", fmt.Errorf("expected a number or numeric string")
	}
	return str, nil
}
