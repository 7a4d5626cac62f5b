// Package config loads, validates and hot-reloads the declarative
// configuration that drives generation, compliance injection and publishing.
package config

import (
	"time"

	"github.com/jamesenki/payments-ingestion-sub001/internal/compliance"
	"github.com/jamesenki/payments-ingestion-sub001/internal/distribution"
	"github.com/jamesenki/payments-ingestion-sub001/internal/telemetry"
)

// Generated field names a distribution spec may be attached to.
const (
	FieldAmount           = "amount"
	FieldCurrency         = "currency"
	FieldPaymentMethod    = "payment_method"
	FieldStatus           = "status"
	FieldCustomerCountry  = "customer_country"
	FieldMerchantCategory = "merchant_category"
	FieldRiskScore        = "risk_score"
)

// categoricalFields marks which fields require a categorical spec; the rest
// require a numeric one.
var categoricalFields = map[string]bool{
	FieldAmount:           false,
	FieldCurrency:         true,
	FieldPaymentMethod:    true,
	FieldStatus:           true,
	FieldCustomerCountry:  true,
	FieldMerchantCategory: true,
	FieldRiskScore:        false,
}

// SinkKind selects the publish destination.
type SinkKind string

const (
	SinkMemory SinkKind = "memory"
	SinkFile   SinkKind = "file"
	SinkBus    SinkKind = "bus"
)

// Output formats for the file sink.
const (
	FormatNDJSON = "ndjson"
	FormatArray  = "array"
)

// FileSinkConfig tunes the file-append sink.
type FileSinkConfig struct {
	Path   string `yaml:"path" mapstructure:"path"`
	Append bool   `yaml:"append" mapstructure:"append"`
	Format string `yaml:"format" mapstructure:"format" validate:"omitempty,oneof=ndjson array"`
}

// BusSinkConfig tunes the message-bus sink and its retry policy.
type BusSinkConfig struct {
	Endpoint    string        `yaml:"endpoint" mapstructure:"endpoint"`
	MaxAttempts int           `yaml:"max_attempts" mapstructure:"max_attempts" validate:"omitempty,gte=1"`
	BackoffBase time.Duration `yaml:"backoff_base" mapstructure:"backoff_base" validate:"gte=0"`
	BackoffMax  time.Duration `yaml:"backoff_max" mapstructure:"backoff_max" validate:"gte=0"`
}

// SinkConfig selects and tunes the output sink.
type SinkConfig struct {
	Kind SinkKind       `yaml:"kind" mapstructure:"kind" validate:"oneof=memory file bus"`
	File FileSinkConfig `yaml:"file" mapstructure:"file"`
	Bus  BusSinkConfig  `yaml:"bus" mapstructure:"bus"`
}

// Config is the process-wide configuration, loaded at startup and optionally
// hot-swapped by the Watcher. A Config that passed Validate is immutable; a
// reload builds a fresh one.
type Config struct {
	// Rate is the generation rate in transactions per second.
	Rate float64 `yaml:"rate" mapstructure:"rate" validate:"gt=0"`

	// BatchSize is the number of transactions per generation cycle.
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size" validate:"gt=0"`

	// Seed makes a run deterministic when non-zero.
	Seed int64 `yaml:"seed" mapstructure:"seed"`

	// TimestampJitter spreads generated timestamps within a window around
	// now. Zero means exact timestamps.
	TimestampJitter time.Duration `yaml:"timestamp_jitter" mapstructure:"timestamp_jitter" validate:"gte=0"`

	// Fields maps generated field names to distribution specs. Fields
	// without a spec use the generator's documented defaults.
	Fields map[string]distribution.Spec `yaml:"fields" mapstructure:"fields"`

	// Scenarios lists compliance violation-injection rules, evaluated in
	// declaration order.
	Scenarios []compliance.ScenarioConfig `yaml:"scenarios" mapstructure:"scenarios"`

	Sink      SinkConfig       `yaml:"sink" mapstructure:"sink"`
	Telemetry telemetry.Config `yaml:"telemetry" mapstructure:"telemetry"`
}

// Default returns the configuration used when keys are absent from the file.
func Default() *Config {
	return &Config{
		Rate:      10,
		BatchSize: 10,
		Sink: SinkConfig{
			Kind: SinkFile,
			File: FileSinkConfig{
				Path:   "transactions.ndjson",
				Append: true,
				Format: FormatNDJSON,
			},
			Bus: BusSinkConfig{
				MaxAttempts: 5,
				BackoffBase: 100 * time.Millisecond,
				BackoffMax:  5 * time.Second,
			},
		},
	}
}
