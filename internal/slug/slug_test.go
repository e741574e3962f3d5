package slug

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMake(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Best CRM for small business", "best-crm-for-small-business"},
		{"  leading and trailing  ", "leading-and-trailing"},
		{"what's the #1 tool?", "what-s-the-1-tool"},
		{"café négocier", "cafe-negocier"},
		{"already-a-slug", "already-a-slug"},
		{"UPPER case", "upper-case"},
		{"multiple   spaces", "multiple-spaces"},
		{"", ""},
		{"---", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Make(tt.in), "input %q", tt.in)
	}
}

func TestMakeCapsLength(t *testing.T) {
	long := strings.Repeat("query ", 40)
	got := Make(long)
	assert.LessOrEqual(t, len(got), 80)
	assert.False(t, strings.HasSuffix(got, "-"))
	assert.False(t, strings.HasPrefix(got, "-"))
}
