package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet_LdflagsOverride(t *testing.T) {
	old := version
	t.Cleanup(func() { version = old })

	version = "1.4.0"
	assert.Equal(t, "1.4.0", Get())
}

func TestInfo(t *testing.T) {
	oldVersion, oldCommit, oldDate := version, gitCommit, buildDate
	t.Cleanup(func() { version, gitCommit, buildDate = oldVersion, oldCommit, oldDate })

	version, gitCommit, buildDate = "1.4.0", "abc1234", "2026-05-01"
	assert.Equal(t, "liveinterview version 1.4.0\ncommit: abc1234\nbuilt: 2026-05-01", Info("liveinterview"))
	assert.Equal(t, []any{"version", "1.4.0", "commit", "abc1234"}, LogAttrs())

	buildDate = ""
	assert.False(t, strings.Contains(Info("liveinterview"), "built:"))
}
