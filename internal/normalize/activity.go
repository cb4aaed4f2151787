package normalize

import (
	"fmt"

	"github.com/parleyhq/parley-go/internal/types"
)

// DecodeActivity converts one raw activity payload, REST-fetched or
// push-delivered, into a canonical Activity. Both paths must go through
// here so the stores only ever see one shape.
func DecodeActivity(raw map[string]interface{}) (types.Activity, error) {
	raw = unwrapFilesEnvelope(raw)
	var a types.Activity
	if err := decode(raw, &a); err != nil {
		return types.Activity{}, fmt.Errorf("decode activity: %w", err)
	}
	if a.ID == "" {
		return types.Activity{}, fmt.Errorf("decode activity: payload has no id")
	}
	return a, nil
}

// unwrapFilesEnvelope flattens object.files from the {items: [...]}
// envelope some payloads wrap it in, leaving bare lists alone. The
// input map is not mutated.
func unwrapFilesEnvelope(raw map[string]interface{}) map[string]interface{} {
	obj, ok := raw["object"].(map[string]interface{})
	if !ok {
		return raw
	}
	env, ok := obj["files"].(map[string]interface{})
	if !ok {
		return raw
	}
	inner, ok := env["items"].([]interface{})
	if !ok {
		return raw
	}

	objCopy := make(map[string]interface{}, len(obj))
	for k, v := range obj {
		objCopy[k] = v
	}
	objCopy["files"] = inner

	rawCopy := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		rawCopy[k] = v
	}
	rawCopy["object"] = objCopy
	return rawCopy
}

// DecodeActivities converts the activity collection of a conversation
// payload, unwrapping the {items: [...]} envelope. Payloads that fail to
// decode are dropped rather than poisoning the batch.
func DecodeActivities(raw interface{}) []types.Activity {
	list := items(raw)
	out := make([]types.Activity, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		a, err := DecodeActivity(m)
		if err != nil {
			continue
		}
		out = append(out, a)
	}
	return out
}

// IsReadable reports whether an activity counts toward the unread state
// of its space. Comment posts and content shares are readable; system
// events, acknowledgements and tombstones are not.
func IsReadable(a types.Activity) bool {
	switch a.Verb {
	case types.VerbPost, types.VerbShare:
		return true
	default:
		return false
	}
}
