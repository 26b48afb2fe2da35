package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemVer(t *testing.T) {
	v, err := ParseSemVer("v1.4.9")
	require.NoError(t, err)
	assert.Equal(t, "v1.4.9", v.String())

	for _, bad := range []string{"1.4.9", "v1.4", "v1.4.9-rc1", ""} {
		_, err := ParseSemVer(bad)
		assert.Error(t, err, bad)
	}

	tests := []struct {
		part string
		want string
	}{
		{"major", "v2.0.0"},
		{"minor", "v1.5.0"},
		{"patch", "v1.4.10"},
		{"v3.0.1", "v3.0.1"},
	}
	for _, tt := range tests {
		next, err := v.Bump(tt.part)
		require.NoError(t, err)
		assert.Equal(t, tt.want, next.String())
	}

	_, err = v.Bump("huge")
	assert.Error(t, err)
}

func TestLdflags(t *testing.T) {
	flags := ldflags(SemanticVersion{major: 1}, "abc123", time.Unix(1700000000, 0))

	assert.Contains(t, flags, "-X main.version=v1.0.0")
	assert.Contains(t, flags, "-X main.buildUnixTimestamp=1700000000")
	assert.True(t, strings.HasSuffix(flags, "-X main.commitHash=abc123"))
}
