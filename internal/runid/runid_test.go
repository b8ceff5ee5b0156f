package runid

import "testing"

func TestNewProducesDistinctNonEmptyIDs(t *testing.T) {
	a := New()
	b := New()
	if a == "" || b == "" {
		t.Fatalf("expected non-empty ids, got %q and %q", a, b)
	}
	if a == b {
		t.Fatalf("expected two calls to New to produce distinct ids")
	}
}
