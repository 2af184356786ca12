package featureflow

import (
	"reflect"
	"testing"
)

// LogUnexpected fails the test, printing both values for diffing.
func LogUnexpected(t *testing.T, expected, got interface{}) {
	t.Helper()
	t.Fatalf("\nexpected: %#v\ngot:      %#v", expected, got)
}

// AssertEquals fails the test unless res and std are deeply equal.
func AssertEquals(t *testing.T, res, std interface{}) {
	t.Helper()
	if !reflect.DeepEqual(res, std) {
		LogUnexpected(t, std, res)
	}
}

// jsonNumber reads key out of a decoded JSON object (map[string]interface{},
// as codec.JSON.Decode returns it) as an int, failing the test if v isn't a
// map or the value isn't numeric.
func jsonNumber(t *testing.T, v interface{}, key string) int {
	t.Helper()
	m, ok := v.(map[string]interface{})
	if !ok {
		t.Fatalf("expected a map, got %T", v)
	}
	n, ok := m[key].(float64)
	if !ok {
		t.Fatalf("expected a numeric value for %q, got %#v", key, m[key])
	}
	return int(n)
}
