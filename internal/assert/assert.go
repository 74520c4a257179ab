package assert

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Assert is a wrapper around assert.Assertions and testing.T
type Assert struct {
	*assert.Assertions
	T *testing.T
}

// New creates a new Assert object
func New(t *testing.T) *Assert {
	return &Assert{
		Assertions: assert.New(t),
		T:          t,
	}
}

// FixturePath is where EqualToJSONFixture keeps the fixture for the running
// test: fixtures/<TestName>_<fixtureName>.json, with subtest slashes
// flattened to underscores.
func (a *Assert) FixturePath(fixtureName string) string {
	testName := strings.ReplaceAll(a.T.Name(), "/", "_")
	return filepath.Join("fixtures", fmt.Sprintf("%s_%s.json", testName, fixtureName))
}

// EqualToJSONFixture marshals result and compares it with the fixture file
// as JSON, so whitespace differences do not matter.
// With GEN_FIXTURE=true the fixture is (re)written and the comparison skipped.
func (a *Assert) EqualToJSONFixture(fixtureName string, result any) {
	a.T.Helper()

	resultJSON, err := json.MarshalIndent(result, "", "  ")
	if !a.NoError(err, "marshal result") {
		return
	}

	fixturePath := a.FixturePath(fixtureName)

	if os.Getenv("GEN_FIXTURE") == "true" {
		a.NoError(os.MkdirAll(filepath.Dir(fixturePath), 0o755), "create fixture directory")
		a.NoError(os.WriteFile(fixturePath, append(resultJSON, '\n'), 0o644), "write fixture")
		return
	}

	expected, err := os.ReadFile(fixturePath)
	if !a.NoError(err, "read fixture %s (run with GEN_FIXTURE=true to create it)", fixturePath) {
		return
	}
	a.JSONEq(string(expected), string(resultJSON), "result does not match %s", fixturePath)
}
