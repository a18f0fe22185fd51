// Package testutil provides shared test helpers: error assertions and a
// small assembler for WebAssembly test artifacts.
package testutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/reglet-dev/extbridge/domain/errors"
)

// RequireErrorKind fails the test unless err is an *errors.Error of kind.
func RequireErrorKind(t *testing.T, err error, kind errs.Kind, msgAndArgs ...interface{}) *errs.Error {
	t.Helper()
	require.Error(t, err, msgAndArgs...)
	var e *errs.Error
	require.ErrorAs(t, err, &e, msgAndArgs...)
	require.Equal(t, kind, e.Kind, "error: %v", err)
	return e
}

// AssertErrorKind is the non-fatal form of RequireErrorKind.
func AssertErrorKind(t *testing.T, err error, kind errs.Kind, msgAndArgs ...interface{}) bool {
	t.Helper()
	if !assert.Error(t, err, msgAndArgs...) {
		return false
	}
	return assert.Equal(t, kind, errs.KindOf(err), msgAndArgs...)
}

// AssertJSONEqual compares two JSON documents ignoring formatting.
func AssertJSONEqual(t *testing.T, expected, actual string, msgAndArgs ...interface{}) {
	t.Helper()

	var expectedJSON, actualJSON interface{}
	require.NoError(t, json.Unmarshal([]byte(expected), &expectedJSON), "expected JSON is invalid")
	require.NoError(t, json.Unmarshal([]byte(actual), &actualJSON), "actual JSON is invalid")

	assert.Equal(t, expectedJSON, actualJSON, msgAndArgs...)
}
