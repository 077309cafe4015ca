package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	token, hash, prefix, err := GenerateToken()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(token, TokenPrefix))
	assert.Len(t, hash, 64)
	assert.True(t, strings.HasPrefix(prefix, TokenPrefix))
	assert.Len(t, prefix, len(TokenPrefix)+8)

	assert.Equal(t, hash, HashToken(token))
	assert.NoError(t, ValidateTokenFormat(token))
	assert.Equal(t, prefix, ExtractPrefix(token))
}

func TestGenerateTokenUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		token, _, _, err := GenerateToken()
		require.NoError(t, err)
		assert.False(t, seen[token])
		seen[token] = true
	}
}

func TestValidateTokenFormat(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{"missing prefix", "abc123def456", true},
		{"prefix only", "mk_", true},
		{"invalid base64url", "mk_!!!not-base64!!!", true},
		{"valid", "mk_abc123def456", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTokenFormat(tt.token)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestExtractPrefix(t *testing.T) {
	assert.Equal(t, "mk_abc123de", ExtractPrefix("mk_abc123def456"))
	assert.Equal(t, "mk_abc", ExtractPrefix("mk_abc"))
	assert.Equal(t, "", ExtractPrefix("other_abc123"))
}
