package hujsonutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tailscale/hujson"
)

func TestInsertToArrayCreate(t *testing.T) {
	assert := assert.New(t)

	v, err := hujson.Parse([]byte(`{"foo":"bar"}`))
	assert.NoError(err)

	w := NewValue(&v)
	err = w.InsertToArray("/items", 1)
	assert.NoError(err)

	vStd := w.Clone()
	vStd.Standardize()

	var obj map[string]interface{}
	err = json.Unmarshal(vStd.Pack(), &obj)
	assert.NoError(err)

	arr, ok := obj["items"].([]interface{})
	assert.True(ok)
	assert.Equal([]interface{}{float64(1)}, arr)
}

func TestInsertToArrayAppend(t *testing.T) {
	assert := assert.New(t)

	v, err := hujson.Parse([]byte(`{"items":[1]}`))
	assert.NoError(err)

	w := NewValue(&v)
	err = w.InsertToArray("/items", 2)
	assert.NoError(err)

	vStd := w.Clone()
	vStd.Standardize()
	var obj map[string]interface{}
	err = json.Unmarshal(vStd.Pack(), &obj)
	assert.NoError(err)

	arr, ok := obj["items"].([]interface{})
	assert.True(ok)
	assert.Equal([]interface{}{float64(1), float64(2)}, arr)
}

func TestInsertToArrayNested(t *testing.T) {
	assert := assert.New(t)

	v, err := hujson.Parse([]byte(`{"a":{}}`))
	assert.NoError(err)

	w := NewValue(&v)
	err = w.InsertToArray("/a/b", "x")
	assert.NoError(err)

	vStd := w.Clone()
	vStd.Standardize()
	var obj map[string]interface{}
	err = json.Unmarshal(vStd.Pack(), &obj)
	assert.NoError(err)

	a := obj["a"].(map[string]interface{})
	arr, ok := a["b"].([]interface{})
	assert.True(ok)
	assert.Equal([]interface{}{"x"}, arr)
}

func TestInsertToArrayNonArray(t *testing.T) {
	assert := assert.New(t)

	v, err := hujson.Parse([]byte(`{"items": {}}`))
	assert.NoError(err)

	w := NewValue(&v)
	err = w.InsertToArray("/items", 1)
	assert.Error(err)
}

func TestRemoveFromArray(t *testing.T) {
	assert := assert.New(t)

	v, err := hujson.Parse([]byte(`{
	// keep me
	"items": [
		// first
		"a",
		// second
		"b",
		// third
		"c",
	],
}`))
	assert.NoError(err)

	w := NewValue(&v)
	assert.NoError(w.RemoveFromArray("/items", 1))

	var obj struct{ Items []string }
	assert.NoError(w.Decode(&obj))
	assert.Equal([]string{"a", "c"}, obj.Items)

	out := string(w.Pack())
	assert.Contains(out, "// keep me")
	assert.Contains(out, "// first")
	assert.NotContains(out, "// second")
	assert.Contains(out, "// third")
}

func TestRemoveFromArrayErrors(t *testing.T) {
	assert := assert.New(t)

	v, err := hujson.Parse([]byte(`{"items":[1],"obj":{}}`))
	assert.NoError(err)
	w := NewValue(&v)

	assert.Error(w.RemoveFromArray("/items", 1))
	assert.Error(w.RemoveFromArray("/items", -1))
	assert.Error(w.RemoveFromArray("/obj", 0))
	assert.Error(w.RemoveFromArray("/missing", 0))
}
