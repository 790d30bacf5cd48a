package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDPrefersEnv(t *testing.T) {
	t.Setenv(envInstanceID, " cron-7 ")
	assert.Equal(t, "cron-7", ID())
}

func TestIDFallsBackToHost(t *testing.T) {
	t.Setenv(envInstanceID, "")
	assert.NotEmpty(t, ID())
}
