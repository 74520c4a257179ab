package hujsonutil

import (
	"encoding/json"
	"fmt"

	"github.com/tailscale/hujson"
)

// Value wraps hujson.Value to provide convenience helpers.
type Value struct {
	*hujson.Value
}

// NewValue wraps a hujson.Value.
func NewValue(v *hujson.Value) *Value {
	return &Value{Value: v}
}

// InsertToArray inserts value at the end of the array located at path.
// The path uses JSON Pointer syntax. If the array does not exist, it is created.
// Returns an error if the path points to a non-array value.
func (v *Value) InsertToArray(path string, val any) error {
	if v.Value == nil {
		return fmt.Errorf("nil Value")
	}

	// Marshal the inserted value so we can parse it as HuJSON.
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	elem, err := hujson.Parse(b)
	if err != nil {
		return err
	}

	// See if the array exists.
	existing := v.Find(path)
	if existing != nil {
		if _, ok := existing.Value.(*hujson.Array); !ok {
			return fmt.Errorf("path %s is not an array", path)
		}
		patch := fmt.Sprintf(`[{"op":"add","path":"%s/-","value":%s}]`, path, elem.Pack())
		return v.Patch([]byte(patch))
	}

	// Create the array and insert the element.
	patch := fmt.Sprintf(`[`+
		`{"op":"add","path":"%s","value":[]},`+
		`{"op":"add","path":"%s/-","value":%s}`+
		`]`, path, path, elem.Pack())
	return v.Patch([]byte(patch))
}

// RemoveFromArray removes the element at index from the array located at
// path. Comments leading other elements are preserved; the removed
// element's leading comment goes with it.
func (v *Value) RemoveFromArray(path string, index int) error {
	if v.Value == nil {
		return fmt.Errorf("nil Value")
	}
	existing := v.Find(path)
	if existing == nil {
		return fmt.Errorf("path %s not found", path)
	}
	arr, ok := existing.Value.(*hujson.Array)
	if !ok {
		return fmt.Errorf("path %s is not an array", path)
	}
	if index < 0 || index >= len(arr.Elements) {
		return fmt.Errorf("index %d out of range for %s (len %d)", index, path, len(arr.Elements))
	}
	patch := fmt.Sprintf(`[{"op":"remove","path":"%s/%d"}]`, path, index)
	return v.Patch([]byte(patch))
}

// Decode unmarshals the standardized form of v into dest.
func (v *Value) Decode(dest any) error {
	if v.Value == nil {
		return fmt.Errorf("nil Value")
	}
	std := v.Clone()
	std.Standardize()
	return json.Unmarshal(std.Pack(), dest)
}
