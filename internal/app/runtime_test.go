package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	_ "github.com/sparkleops/sparkle-ops/internal/testing/guard"
)

func TestTestModeFromEnvironment(t *testing.T) {
	t.Cleanup(RefreshTestMode)
	RefreshTestMode()
	assert.True(t, InTestMode())

	t.Setenv(testModeEnv, "0")
	RefreshTestMode()
	assert.False(t, InTestMode())

}
