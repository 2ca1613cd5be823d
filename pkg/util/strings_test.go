package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeFileName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"plain file", "types.xsd", true},
		{"dotted file", "service.v2.xsd", true},

		// Traversal and path components must be rejected.
		{"simple traversal", "../types.xsd", false},
		{"double traversal", "../../etc/passwd", false},
		{"subdirectory", "schemas/types.xsd", false},
		{"absolute", "/etc/passwd", false},
		{"backslash", `..\types.xsd`, false},
		{"dot", ".", false},
		{"dot-dot", "..", false},
		{"empty", "", false},
		{"embedded dot-dot", "a..b.xsd", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeFileName(tt.input), "SafeFileName(%q)", tt.input)
		})
	}
}

func TestTruncateBody(t *testing.T) {
	t.Parallel()

	short := "hello"
	assert.Equal(t, short, TruncateBody(short, 10))

	long := strings.Repeat("x", 20)
	got := TruncateBody(long, 10)
	assert.Equal(t, strings.Repeat("x", 10)+"...(truncated)", got)

	// Zero max falls back to the default cap.
	assert.Equal(t, short, TruncateBody(short, 0))
}
