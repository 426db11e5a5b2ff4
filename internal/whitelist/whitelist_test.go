package whitelist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestIsWhitelisted(t *testing.T) {
	checker := NewChecker([]string{" Example.com ", "@trusted.org", ""}, zap.NewNop())
	assert.Equal(t, 2, checker.Len())

	tests := []struct {
		name string
		from string
		want bool
	}{
		{"bare address", "alice@example.com", true},
		{"display name", "Alice <alice@EXAMPLE.com>", true},
		{"subdomain", "bob@mail.trusted.org", true},
		{"other domain", "eve@example.net", false},
		{"suffix without dot boundary", "eve@notexample.com", false},
		{"no domain", "postmaster", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, checker.IsWhitelisted(tt.from))
		})
	}
}

func TestNilAndEmptyChecker(t *testing.T) {
	var nilChecker *Checker
	assert.False(t, nilChecker.IsWhitelisted("alice@example.com"))

	empty := NewChecker(nil, nil)
	assert.False(t, empty.IsWhitelisted("alice@example.com"))
}
