// Package host parses trap host command flags and composes the host app.
package host

import (
	"context"
	"flag"
	"fmt"

	entrypoint "github.com/louisbranch/trapmacros/internal/platform/cmd"
	"github.com/louisbranch/trapmacros/internal/services/traps/app"
)

// Config holds host command configuration.
type Config struct {
	HTTPAddr         string   `env:"TRAPMACROS_HTTP_ADDR"          envDefault:":8090"`
	Store            string   `env:"TRAPMACROS_STORE"              envDefault:"sqlite"`
	StorePath        string   `env:"TRAPMACROS_STORE_PATH"         envDefault:"data/trapmacros.db"`
	ScenePath        string   `env:"TRAPMACROS_SCENE"`
	ScriptsDir       string   `env:"TRAPMACROS_SCRIPTS_DIR"`
	Ruleset          string   `env:"TRAPMACROS_RULESET"            envDefault:"generic"`
	Locale           string   `env:"TRAPMACROS_LOCALE"             envDefault:"en-US"`
	TokenSecret      string   `env:"TRAPMACROS_TOKEN_SECRET"`
	OriginPatterns   []string `env:"TRAPMACROS_ORIGIN_PATTERNS"    envSeparator:","`
	DiceSeed         int64    `env:"TRAPMACROS_DICE_SEED"`
	SeedDefaultTraps bool     `env:"TRAPMACROS_SEED_DEFAULT_TRAPS"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "host HTTP listen address")
	fs.StringVar(&cfg.Store, "store", cfg.Store, "settings backend: memory, sqlite or bbolt")
	fs.StringVar(&cfg.StorePath, "store-path", cfg.StorePath, "settings database path")
	fs.StringVar(&cfg.ScenePath, "scene", cfg.ScenePath, "scene JSON file")
	fs.StringVar(&cfg.ScriptsDir, "scripts", cfg.ScriptsDir, "directory of <archetype>.lua trigger handlers")
	fs.StringVar(&cfg.Ruleset, "ruleset", cfg.Ruleset, "active ruleset: generic, dnd5e, pf2e or daggerheart")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "narration locale")
	fs.Int64Var(&cfg.DiceSeed, "dice-seed", cfg.DiceSeed, "dice seed; 0 seeds from the clock")
	fs.BoolVar(&cfg.SeedDefaultTraps, "seed-default-traps", cfg.SeedDefaultTraps, "register one trap per archetype when none are saved")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run builds the host app and serves until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceHost, func(ctx context.Context) error {
		if err := app.Run(ctx, app.Config{
			HTTPAddr:         cfg.HTTPAddr,
			Store:            cfg.Store,
			StorePath:        cfg.StorePath,
			ScenePath:        cfg.ScenePath,
			ScriptsDir:       cfg.ScriptsDir,
			Ruleset:          cfg.Ruleset,
			Locale:           cfg.Locale,
			TokenSecret:      cfg.TokenSecret,
			OriginPatterns:   cfg.OriginPatterns,
			DiceSeed:         cfg.DiceSeed,
			SeedDefaultTraps: cfg.SeedDefaultTraps,
		}); err != nil {
			return fmt.Errorf("serve trap host: %w", err)
		}
		return nil
	})
}
