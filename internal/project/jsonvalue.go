package project

import (
	"bytes"
	"encoding/json"
)

// Typed views over raw JSON values. Each reports false when the value has a
// different JSON type, so callers can name the offending key.

func asString(raw json.RawMessage) (string, bool) {
	var s string
	if json.Unmarshal(raw, &s) != nil || isNull(raw) {
		return "", false
	}
	return s, true
}

// asInt accepts only integer literals; 1.0 is not an integer.
func asInt(raw json.RawMessage) (int, bool) {
	if !isInteger(raw) {
		return 0, false
	}
	var v int
	if json.Unmarshal(raw, &v) != nil {
		return 0, false
	}
	return v, true
}

func asObject(raw json.RawMessage) (object, bool) {
	var o object
	if json.Unmarshal(raw, &o) != nil || o == nil {
		return nil, false
	}
	return o, true
}

func asArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	var a []json.RawMessage
	if json.Unmarshal(raw, &a) != nil || a == nil {
		return nil, false
	}
	return a, true
}

// asIntArray fills dst from an array of exactly len(dst) integers.
func asIntArray(raw json.RawMessage, dst []int64) bool {
	a, ok := asArray(raw)
	if !ok || len(a) != len(dst) {
		return false
	}
	for i, e := range a {
		if !isInteger(e) || json.Unmarshal(e, &dst[i]) != nil {
			return false
		}
	}
	return true
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func isBool(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return bytes.Equal(t, []byte("true")) || bytes.Equal(t, []byte("false"))
}

func isNumber(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && (t[0] == '-' || (t[0] >= '0' && t[0] <= '9'))
}

func isInteger(raw json.RawMessage) bool {
	return isNumber(raw) && !bytes.ContainsAny(bytes.TrimSpace(raw), ".eE")
}

func isDouble(raw json.RawMessage) bool {
	return isNumber(raw) && bytes.ContainsAny(bytes.TrimSpace(raw), ".eE")
}

func intInto(dst *int) func(json.RawMessage) bool {
	return func(raw json.RawMessage) bool {
		v, ok := asInt(raw)
		if ok {
			*dst = v
		}
		return ok
	}
}

func stringInto(dst *string) func(json.RawMessage) bool {
	return func(raw json.RawMessage) bool {
		v, ok := asString(raw)
		if ok {
			*dst = v
		}
		return ok
	}
}

func boolInto(dst *bool) func(json.RawMessage) bool {
	return func(raw json.RawMessage) bool {
		if !isBool(raw) {
			return false
		}
		*dst = bytes.Equal(bytes.TrimSpace(raw), []byte("true"))
		return true
	}
}

func floatInto(dst *float64) func(json.RawMessage) bool {
	return func(raw json.RawMessage) bool {
		if !isNumber(raw) {
			return false
		}
		return json.Unmarshal(raw, dst) == nil
	}
}
