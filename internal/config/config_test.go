package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadExpandsEnvAndAppliesDefaults(t *testing.T) {
	t.Setenv("TEST_SECRET", "s3cret")

	c, err := LoadFromBytes([]byte(`
auth:
  accessSecret: ${TEST_SECRET}
model:
  provider: anthropic
  name: claude-sonnet-4-5
`))
	require.NoError(t, err)

	assert.Equal(t, "s3cret", c.Auth.AccessSecret)
	assert.Equal(t, "anthropic", c.Model.Provider)
	assert.Equal(t, 8080, c.Port)
	assert.Equal(t, 5, c.Model.MaxIterations)
	assert.Equal(t, 2, c.Model.MaxRetries)
	assert.Equal(t, 60*time.Second, c.RequestTimeout())
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	_, err := LoadFromBytes([]byte(`
model:
  provider: bedrock
`))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, "openai", c.Model.Provider)
	assert.Equal(t, "@every 5m", c.Recurring.Spec)
	assert.NotEmpty(t, c.Database.SQLitePath)
}
