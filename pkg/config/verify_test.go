package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

func TestVerifyAgainstEmbeddedSchema(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		err := VerifyAgainstEmbeddedSchema(validConfig())
		require.NoError(t, err)
	})

	t.Run("missing server listen", func(t *testing.T) {
		cfg := validConfig()
		cfg.Server.Listen = ""

		err := VerifyAgainstEmbeddedSchema(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "server.listen is required")
	})

	t.Run("llm enabled without endpoint", func(t *testing.T) {
		cfg := validConfig()
		cfg.LLM.Enabled = true
		cfg.LLM.Endpoint = ""
		cfg.LLM.Model = "gpt-4o-mini"

		err := VerifyAgainstEmbeddedSchema(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "llm.endpoint is required")
	})
}

func TestValidateRequiredFields(t *testing.T) {
	t.Run("valid minimal config", func(t *testing.T) {
		err := validateRequiredFields(validConfig())
		require.NoError(t, err)
	})

	t.Run("missing server timeout", func(t *testing.T) {
		cfg := validConfig()
		cfg.Server.Timeout = 0

		err := validateRequiredFields(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "server.timeout is required")
	})

	t.Run("llm enabled without timeout", func(t *testing.T) {
		cfg := validConfig()
		cfg.LLM.Enabled = true
		cfg.LLM.Endpoint = "http://localhost:8080"
		cfg.LLM.Model = "test-model"
		cfg.LLM.Timeout = 0

		err := validateRequiredFields(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "llm.timeout is required")
	})
}

func TestGenerateSchema(t *testing.T) {
	schema, err := GenerateSchema()
	require.NoError(t, err)
	require.NotNil(t, schema)

	data, err := schema.MarshalJSON()
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	schemaStr := string(data)
	assert.Contains(t, schemaStr, "Config")
	assert.Contains(t, schemaStr, "server")
	assert.Contains(t, schemaStr, "thresholds")
}

func TestConfigTimes(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, 30*time.Second, cfg.Server.Timeout)
	assert.Equal(t, 15*time.Minute, cfg.Schedule.ScanInterval)
}
