package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ValidationError aggregates every problem found in a candidate
// configuration. A configuration with any issue is rejected wholesale; it
// never becomes active.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", strings.Join(e.Issues, "; "))
}

var structValidator = validator.New()

// Load reads and validates the YAML configuration at path. Keys absent from
// the file keep their Default values. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every invariant a configuration must satisfy before it may
// drive generation. It returns a *ValidationError listing all issues found.
func (c *Config) Validate() error {
	var issues []string

	if err := structValidator.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				issues = append(issues, fmt.Sprintf("%s fails %q constraint", fe.Namespace(), fe.Tag()))
			}
		} else {
			issues = append(issues, err.Error())
		}
	}

	for name, spec := range c.Fields {
		categorical, known := categoricalFields[name]
		if !known {
			issues = append(issues, fmt.Sprintf("field %q: no such generated field", name))
			continue
		}
		if err := spec.Validate(); err != nil {
			issues = append(issues, fmt.Sprintf("field %q: %v", name, err))
			continue
		}
		if categorical && spec.Numeric() {
			issues = append(issues, fmt.Sprintf("field %q requires a categorical spec, got %q", name, spec.Kind))
		}
		if !categorical && !spec.Numeric() {
			issues = append(issues, fmt.Sprintf("field %q requires a numeric spec, got %q", name, spec.Kind))
		}
	}

	for i, sc := range c.Scenarios {
		if err := sc.Validate(); err != nil {
			issues = append(issues, fmt.Sprintf("scenario %d: %v", i, err))
		}
	}

	if c.Sink.Kind == SinkFile && c.Sink.File.Path == "" {
		issues = append(issues, "file sink requires a path")
	}
	if c.Sink.Kind == SinkBus && c.Sink.Bus.MaxAttempts < 1 {
		issues = append(issues, "bus sink requires max_attempts >= 1")
	}
	if c.Sink.Kind == SinkBus && c.Sink.Bus.BackoffMax > 0 && c.Sink.Bus.BackoffMax < c.Sink.Bus.BackoffBase {
		issues = append(issues, "bus sink backoff_max below backoff_base")
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}
