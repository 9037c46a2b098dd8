package model

import (
	"bytes"
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// UnmarshalJSON decodes a user payload. role, latitude and longitude accept
// JSON numbers and numeric strings ("3", "40.7"); any other value is a
// *json.UnmarshalTypeError naming the field.
func (p *UserPayload) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	role, hasRole := popField(fields, "role")
	lat, hasLat := popField(fields, "latitude")
	lng, hasLng := popField(fields, "longitude")

	rest, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	type plain UserPayload
	if err := json.Unmarshal(rest, (*plain)(p)); err != nil {
		return err
	}

	if hasRole {
		if p.Role, err = decodeInt("role", role); err != nil {
			return err
		}
	}
	if hasLat {
		if p.Latitude, err = decodeFloat("latitude", lat); err != nil {
			return err
		}
	}
	if hasLng {
		if p.Longitude, err = decodeFloat("longitude", lng); err != nil {
			return err
		}
	}
	return nil
}

func popField(fields map[string]json.RawMessage, name string) (json.RawMessage, bool) {
	raw, ok := fields[name]
	delete(fields, name)
	return raw, ok
}

// numericText returns the digits of a JSON number or numeric string. isNull
// is set for a JSON null.
func numericText(raw json.RawMessage) (text, kind string, isNull bool) {
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		return "", "", true
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", "string", false
		}
		return strings.TrimSpace(s), "string", false
	case raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9'):
		return string(raw), "number", false
	case raw[0] == 't' || raw[0] == 'f':
		return "", "bool", false
	case raw[0] == '[':
		return "", "array", false
	default:
		return "", "object", false
	}
}

func decodeInt(field string, raw json.RawMessage) (*int, error) {
	text, kind, isNull := numericText(raw)
	if isNull {
		return nil, nil
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return nil, &json.UnmarshalTypeError{Value: kind, Type: reflect.TypeOf(0), Field: field}
	}
	return &n, nil
}

func decodeFloat(field string, raw json.RawMessage) (*float64, error) {
	text, kind, isNull := numericText(raw)
	if isNull {
		return nil, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || strings.ContainsAny(text, "xX_") {
		return nil, &json.UnmarshalTypeError{Value: kind, Type: reflect.TypeOf(0.0), Field: field}
	}
	return &f, nil
}
