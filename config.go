package docpager

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v6"
	"gopkg.in/mgo.v2/bson"
)

// EnvPrefix is the prefix of the environment variables read by LoadConfig.
const EnvPrefix = "DOCPAGER_"

// Config carries the pagination settings that used to be process-wide.
// It is passed by value into every pager; the zero value is not usable,
// start from DefaultConfig or LoadConfig.
type Config struct {
	// DefaultLimit is used when a request does not specify a limit.
	DefaultLimit int `env:"DEFAULT_LIMIT"`
	// MaxLimit is the upper bound every requested limit is clamped to.
	MaxLimit int `env:"MAX_LIMIT"`
	// AllowUnbounded permits NoLimit requests. When false, NoLimit is
	// clamped to MaxLimit.
	AllowUnbounded bool `env:"ALLOW_UNBOUNDED"`
	// IDField is the unique identity field used as the final tie-break.
	IDField string `env:"ID_FIELD"`

	// Logger receives debug and warning records. Nil discards them.
	Logger *slog.Logger
	// ParseID converts an after/before shorthand from its wire form into
	// the store's identity value. Nil means DefaultParseID.
	ParseID func(string) (any, error)
}

func DefaultConfig() Config {
	return Config{
		DefaultLimit:   DefaultLimit,
		MaxLimit:       MaxLimit,
		AllowUnbounded: false,
		IDField:        "_id",
	}
}

// LoadConfig starts from DefaultConfig and overrides it with DOCPAGER_*
// environment variables.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	err := env.Parse(&cfg, env.Options{Prefix: EnvPrefix})
	if err != nil {
		return Config{}, fmt.Errorf("cannot load config: %w", err)
	}

	return cfg, cfg.validate()
}

// NormalizeLimit clamps a requested limit according to the config. Unset
// limits of the config fall back to DefaultConfig, so the result is never
// below 1 unless it is NoLimit.
func (c Config) NormalizeLimit(limit int) int {
	c = c.orDefault()

	if limit == NoLimit {
		if c.AllowUnbounded {
			return NoLimit
		}

		return c.MaxLimit
	}

	ret, _ := IsNormalizedLimit(limit, c.DefaultLimit, c.MaxLimit)

	return ret
}

func (c Config) validate() error {
	if c.MaxLimit < 1 {
		return fmt.Errorf("max limit must be positive, got %d", c.MaxLimit)
	}

	if c.IDField == "" {
		return fmt.Errorf("id field must not be empty")
	}

	return nil
}

func (c Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}

	return c.Logger
}

func (c Config) parseID(raw string) (any, error) {
	if c.ParseID == nil {
		return DefaultParseID(raw)
	}

	return c.ParseID(raw)
}

// DefaultParseID treats 24-character hex strings as ObjectIds and leaves
// everything else as a plain string.
func DefaultParseID(raw string) (any, error) {
	if bson.IsObjectIdHex(raw) {
		return bson.ObjectIdHex(raw), nil
	}

	return raw, nil
}

// orDefault fills every unset field from DefaultConfig so that pagers
// created with new() or a partial Config keep working.
func (c Config) orDefault() Config {
	def := DefaultConfig()

	if c.IDField == "" {
		c.IDField = def.IDField
	}

	if c.MaxLimit < 1 {
		c.MaxLimit = def.MaxLimit
	}

	if c.DefaultLimit < 1 {
		c.DefaultLimit = min(def.DefaultLimit, c.MaxLimit)
	}

	return c
}
