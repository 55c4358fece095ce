package internal

import (
	"testing"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	req := require.New(t)
	var config Config

	// When nothing is set in the environment
	err := env.Unmarshal(env.EnvSet{}, &config)

	// Then every default is valid
	req.NoError(err)
	req.NoError(config.Validate())
	req.Equal("INFO", config.LogLevel)
	req.Equal(300*time.Millisecond, config.SearchDebounce)
	req.Equal(30*time.Second, config.RefreshInterval)
	req.Equal(3*time.Second, config.ReconnectDelay)
	req.Equal(2*time.Second, config.FetchLatencyMax)
	req.Equal(100, config.MaxInboundMessages)
}

func TestConfig_Overrides(t *testing.T) {
	req := require.New(t)
	var config Config

	err := env.Unmarshal(env.EnvSet{
		"LOG_LEVEL":       "DEBUG",
		"SEARCH_DEBOUNCE": "150ms",
		"SEED_FILE":       "/tmp/users.toml",
	}, &config)

	req.NoError(err)
	req.NoError(config.Validate())
	req.Equal("DEBUG", config.LogLevel)
	req.Equal(150*time.Millisecond, config.SearchDebounce)
	req.Equal("/tmp/users.toml", config.SeedFile)
}

func TestConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  env.EnvSet
	}{
		{name: "Unknown log level", env: env.EnvSet{"LOG_LEVEL": "LOUD"}},
		{name: "Inverted latency", env: env.EnvSet{"FETCH_LATENCY_MIN": "3s", "FETCH_LATENCY_MAX": "1s"}},
		{name: "Empty buffer", env: env.EnvSet{"BUFFER_SIZE": "0"}},
		{name: "Two characters", env: env.EnvSet{"CHARACTER_REPLACEMENT": "**"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var config Config
			err := env.Unmarshal(tt.env, &config)
			require.NoError(t, err)
			require.Error(t, config.Validate())
		})
	}
}

func TestCharacterRune(t *testing.T) {
	req := require.New(t)

	r, err := CharacterRune("#")
	req.NoError(err)
	req.Equal('#', r)

	_, err = CharacterRune("")
	req.Error(err)
}
