package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	info := Get()
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, CommitHash, info.CommitHash)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
}

func TestShort(t *testing.T) {
	assert.Equal(t, "a1b2c3d", Info{CommitHash: "a1b2c3d4e5f6789"}.Short())
	assert.Equal(t, "unknown", Info{CommitHash: "unknown"}.Short())
}

func TestString(t *testing.T) {
	info := Info{Version: "v0.3.0", CommitHash: "a1b2c3d4e5f6789", BuildTime: "2026-08-31"}
	assert.Equal(t, "runpack v0.3.0 (a1b2c3d, built 2026-08-31)", info.String())
}
