package cache

import (
	"strings"
	"testing"
)

func TestKeyNormalizesWhitespaceAndCase(t *testing.T) {
	a := Key("Show me all hot leads")
	b := Key("  show  me all HOT leads ")
	if a != b {
		t.Fatalf("equivalent queries hashed differently: %q vs %q", a, b)
	}
	if !strings.HasPrefix(a, "assist:") {
		t.Fatalf("key missing namespace prefix: %q", a)
	}
}

func TestKeyDistinguishesQueries(t *testing.T) {
	if Key("show hot leads") == Key("show cold leads") {
		t.Fatal("distinct queries collided")
	}
}
