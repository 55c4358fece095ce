package internal

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	LogLevel             string        `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR"`
	BufferSize           int           `env:"BUFFER_SIZE,default=64" validate:"gte=1"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=2s" validate:"gt=0"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"gt=0"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=5s" validate:"gt=0"`
	LowCapacityThreshold int           `env:"LOW_CAPACITY_THRESHOLD,default=8" validate:"gte=0"`

	SearchDebounce  time.Duration `env:"SEARCH_DEBOUNCE,default=300ms" validate:"gt=0"`
	RefreshInterval time.Duration `env:"REFRESH_INTERVAL,default=30s" validate:"gt=0"`
	SessionTick     time.Duration `env:"SESSION_TICK,default=1s" validate:"gt=0"`

	ConnectDelay    time.Duration `env:"CONNECT_DELAY,default=1s" validate:"gt=0"`
	MessageInterval time.Duration `env:"MESSAGE_INTERVAL,default=10s" validate:"gt=0"`
	StatusInterval  time.Duration `env:"STATUS_INTERVAL,default=15s" validate:"gt=0"`
	ReconnectDelay  time.Duration `env:"RECONNECT_DELAY,default=3s" validate:"gt=0"`

	FetchLatencyMin time.Duration `env:"FETCH_LATENCY_MIN,default=500ms" validate:"gte=0"`
	FetchLatencyMax time.Duration `env:"FETCH_LATENCY_MAX,default=2s" validate:"gtefield=FetchLatencyMin"`
	UpdateLatency   time.Duration `env:"UPDATE_LATENCY,default=500ms" validate:"gte=0"`
	SendLatency     time.Duration `env:"SEND_LATENCY,default=300ms" validate:"gte=0"`

	MaxInboundMessages int    `env:"MAX_INBOUND_MESSAGES,default=100" validate:"gte=1"`
	BadgerFilepath     string `env:"BADGER_FILEPATH,default=./data/badger" validate:"required"`
	SeedFile           string `env:"SEED_FILE"`
	CharReplacement    string `env:"CHARACTER_REPLACEMENT,default=*"`
	DebugPort          int    `env:"DEBUG_PORT,default=0" validate:"gte=0,lte=65535"`
}

var validate = validator.New()

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	_, err := CharacterRune(c.CharReplacement)
	return err
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
