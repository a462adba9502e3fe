package xid

import (
	"strings"
	"testing"
)

func TestNewIsPrefixedAndUnique(t *testing.T) {
	a := New("po")
	b := New("po")
	if !strings.HasPrefix(a, "po-") {
		t.Fatalf("expected po- prefix, got %s", a)
	}
	if a == b {
		t.Fatalf("expected distinct ids, got %s twice", a)
	}
	if strings.Contains(New(""), "-") {
		t.Fatalf("expected bare id without separators")
	}
}
