package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	s := String()
	if !strings.HasPrefix(s, "pairplot "+Version) {
		t.Errorf("String() = %q, want prefix %q", s, "pairplot "+Version)
	}
}
