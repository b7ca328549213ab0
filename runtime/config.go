package runtime

// Config is the runtime configuration object of spec.md §6, tagged for
// config.Loader (viper-backed) and validation.Validate.
type Config struct {
	DefaultSourceIntervalSeconds float64 `yaml:"default_source_interval_seconds" mapstructure:"default_source_interval_seconds" validate:"gte=0"`
	DefaultEdgeCapacity          int     `yaml:"default_edge_capacity" mapstructure:"default_edge_capacity" validate:"gt=0"`
	AsyncEdgeCapacity            int     `yaml:"async_edge_capacity" mapstructure:"async_edge_capacity" validate:"gt=0"`
	ConsecutiveFailureLimit      int     `yaml:"consecutive_failure_limit" mapstructure:"consecutive_failure_limit" validate:"gt=0"`
	ShutdownGraceSeconds         float64 `yaml:"shutdown_grace_seconds" mapstructure:"shutdown_grace_seconds" validate:"gte=0"`
}

// DefaultConfig returns the defaults named in spec.md §6.
func DefaultConfig() Config {
	return Config{
		DefaultSourceIntervalSeconds: 1.0 / 30.0,
		DefaultEdgeCapacity:          10,
		AsyncEdgeCapacity:            20,
		ConsecutiveFailureLimit:      16,
		ShutdownGraceSeconds:         2.0,
	}
}
