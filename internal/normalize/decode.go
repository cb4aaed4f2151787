package normalize

import (
	"fmt"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
)

// timeHook converts the timestamp shapes the conversation service emits
// into time.Time: RFC3339 strings on REST payloads, epoch milliseconds
// on some push payloads.
func timeHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != reflect.TypeOf(time.Time{}) {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		if v == "" {
			return time.Time{}, nil
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", v, err)
		}
		return t, nil
	case float64:
		return time.UnixMilli(int64(v)).UTC(), nil
	case int64:
		return time.UnixMilli(v).UTC(), nil
	case int:
		return time.UnixMilli(int64(v)).UTC(), nil
	default:
		return data, nil
	}
}

// decode runs a weakly-typed mapstructure decode with the timestamp hook
// installed. Raw payloads are duck-typed JSON; weak decoding tolerates
// numbers arriving as float64 and booleans as strings.
func decode(raw interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       timeHook,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// items unwraps the {items: [...]} envelope the conversation service
// wraps collections in. A bare list is passed through.
func items(raw interface{}) []interface{} {
	switch v := raw.(type) {
	case map[string]interface{}:
		if inner, ok := v["items"].([]interface{}); ok {
			return inner
		}
		return nil
	case []interface{}:
		return v
	default:
		return nil
	}
}
