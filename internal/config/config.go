// Package config loads engine tunables from a YAML file with environment
// variable overrides. Grounded on the pack's viper usage in
// SoySergo-location_microservice's go.mod (spf13/viper alongside
// jmoiron/sqlx/jackc/pgx) — azybler-map_router itself has no configuration
// layer (its CLI tools take flags directly), so this follows the rest of
// the pack's idiom for a long-running service.
package config

import (
	"fmt"
	"reflect"

	"github.com/spf13/viper"
)

// Config holds every tunable the map-matching engine needs.
type Config struct {
	SearchRadius         float64 `mapstructure:"search_radius"`
	MinPoints            int     `mapstructure:"min_points"`
	MaxVelocity          float64 `mapstructure:"max_velocity"`
	SigmaZ               float64 `mapstructure:"sigma_z"`
	Beta                 float64 `mapstructure:"beta"`
	MaxIter              int     `mapstructure:"max_iter"`
	MinPointDistance     float64 `mapstructure:"min_point_distance"`
	ParameterWindow      int     `mapstructure:"parameter_window"`
	BearingPenaltyWeight float64 `mapstructure:"bearing_penalty_weight"`
	ViterbiLookahead     int     `mapstructure:"viterbi_lookahead"`
	LazyProbabilities    bool    `mapstructure:"lazy_probabilities"`
	PointsSummary        bool    `mapstructure:"points_summary"`
	SegmentsSummary      bool    `mapstructure:"segments_summary"`
	StatsSummary         bool    `mapstructure:"stats_summary"`
	DBThreads            int     `mapstructure:"db_threads"`

	DatabaseDSN     string `mapstructure:"database_dsn"`
	DatabasePoolMax int    `mapstructure:"database_pool_max"`

	LogLevel string `mapstructure:"log_level"`
}

// Default returns the engine's documented default tunables.
func Default() Config {
	return Config{
		SearchRadius:         50,
		MinPoints:            10,
		MaxVelocity:          250,
		SigmaZ:               10,
		Beta:                 10.0,
		MaxIter:              1,
		MinPointDistance:     30,
		ParameterWindow:      3,
		BearingPenaltyWeight: 1.0,
		ViterbiLookahead:     1,
		LazyProbabilities:    true,
		PointsSummary:        true,
		SegmentsSummary:      true,
		StatsSummary:         true,
		DBThreads:            20,
		DatabasePoolMax:      10,
		LogLevel:             "info",
	}
}

// Load reads a YAML config file at path (if non-empty) over the defaults,
// then applies MAPMATCH_-prefixed environment variable overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("mapmatch")
	v.AutomaticEnv()
	// Unmarshal only sees keys viper already knows, so bind every field's
	// key explicitly; otherwise env vars would apply only to keys the file sets.
	t := reflect.TypeOf(cfg)
	for i := 0; i < t.NumField(); i++ {
		if err := v.BindEnv(t.Field(i).Tag.Get("mapstructure")); err != nil {
			return cfg, fmt.Errorf("config: binding env: %w", err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("config: unmarshaling: %w", err)
	}
	return cfg, nil
}
