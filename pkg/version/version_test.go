// pkg/version/version_test.go
package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo_ReturnsFormattedString(t *testing.T) {
	// vars set at build-time, here using default "dev"
	info := Info()

	assert.True(t, strings.HasPrefix(info, "botkit "))
	assert.Contains(t, info, Version)
	assert.Contains(t, info, Commit)
	assert.Contains(t, info, BuildDate)
}

func TestGet_ReturnsCorrectStruct(t *testing.T) {
	v := Get()

	assert.Equal(t, Version, v.Version)
	assert.Equal(t, Commit, v.Commit)
	assert.NotEmpty(t, v.GoVersion)
	assert.Contains(t, v.Platform, "/")
	assert.False(t, v.Release, "dev build is not a release")
}

func TestIsRelease(t *testing.T) {
	tests := map[string]bool{
		"1.2.0":      true,
		"v1.2.0":     true,
		"1.2":        true,
		"1.2.0-rc.1": false,
		"dev":        false,
		"":           false,
	}
	for in, want := range tests {
		assert.Equal(t, want, IsRelease(in), in)
	}
}
