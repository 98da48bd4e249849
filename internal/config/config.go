package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mutker/evdash/internal/errors"
	"codeberg.org/mutker/evdash/internal/vehicle"
	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultEnvPrefix         = "EVDASH"
	DefaultLogLevel          = "info"
	DefaultTitle             = "RAIDER SAI"
	DefaultRecorderBatchSize = 20

	configName = "evdash"
	configType = "toml"
	configEnv  = "CONFIG"
)

type RecorderConfig struct {
	Enabled   bool `mapstructure:"enabled"`
	BatchSize int  `mapstructure:"batch_size"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type Config struct {
	TickInterval   time.Duration  `mapstructure:"tick_interval"`
	InitialBattery float64        `mapstructure:"initial_battery"`
	Seed           uint64         `mapstructure:"seed"`
	AutoStart      bool           `mapstructure:"auto_start"`
	Ticks          int            `mapstructure:"ticks"`
	LogLevel       string         `mapstructure:"log_level"`
	Render         bool           `mapstructure:"render"`
	Title          string         `mapstructure:"title"`
	PIDFile        string         `mapstructure:"pid_file"`
	Recorder       RecorderConfig `mapstructure:"recorder"`
	Metrics        MetricsConfig  `mapstructure:"metrics"`

	// Path is the config file that was read, empty when none was found.
	Path string `mapstructure:"-"`

	v *viper.Viper
}

// flagSet is satisfied by *pflag.FlagSet.
type flagSet interface {
	Lookup(name string) *pflag.Flag
}

// flag name -> config key
var flagKeys = map[string]string{
	"tick-interval":   "tick_interval",
	"initial-battery": "initial_battery",
	"seed":            "seed",
	"auto-start":      "auto_start",
	"ticks":           "ticks",
	"log-level":       "log_level",
	"render":          "render",
	"title":           "title",
	"pid-file":        "pid_file",
	"recorder":        "recorder.enabled",
	"recorder-batch":  "recorder.batch_size",
	"metrics-addr":    "metrics.addr",
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.Duration("tick-interval", d.TickInterval, "Telemetry tick period")
	fs.Float64("initial-battery", d.InitialBattery, "Battery level at start (0-100)")
	fs.Uint64("seed", d.Seed, "Random seed, 0 for time-seeded")
	fs.Bool("auto-start", d.AutoStart, "Start the vehicle immediately")
	fs.Int("ticks", d.Ticks, "Stop and exit after this many ticks, 0 to run until interrupted")
	fs.String("log-level", d.LogLevel, "Log level (debug, info, warning, error)")
	fs.Bool("render", d.Render, "Render the dashboard on every update")
	fs.String("title", d.Title, "Dashboard title")
	fs.String("pid-file", d.PIDFile, "Refuse to start when another instance holds this PID file")
	fs.Bool("recorder", d.Recorder.Enabled, "Record the trip in memory for the summary")
	fs.Int("recorder-batch", d.Recorder.BatchSize, "Samples buffered before the recorder writes")
	fs.String("metrics-addr", d.Metrics.Addr, "Serve Prometheus metrics on this address")
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		TickInterval:   vehicle.DefaultPeriod,
		InitialBattery: vehicle.DefaultInitialBattery,
		LogLevel:       DefaultLogLevel,
		Render:         true,
		Title:          DefaultTitle,
		Recorder: RecorderConfig{
			Enabled:   true,
			BatchSize: DefaultRecorderBatchSize,
		},
	}
}

func defaultSearchPaths() []string {
	var paths []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, configName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", configName))
	}
	return append(paths, filepath.Join("/etc", configName))
}

// DefaultPath is where `config init` writes when no path is given.
func DefaultPath() string {
	return filepath.Join(defaultSearchPaths()[0], configName+"."+configType)
}

// Load reads the configuration from defaults, the config file, the
// environment and flags, in increasing order of precedence.
func Load(opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{
		envPrefix:   DefaultEnvPrefix,
		searchPaths: defaultSearchPaths(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if o.configPath == "" {
		o.configPath = os.Getenv(o.envPrefix + "_" + configEnv)
	}

	if o.configPath != "" {
		v.SetConfigFile(o.configPath)
		v.SetConfigType(configType)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		for _, p := range o.searchPaths {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	if o.flags != nil {
		for name, key := range flagKeys {
			f := o.flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, errFactory.Wrap(errors.ErrBindFlags, err)
			}
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("tick_interval", d.TickInterval)
	v.SetDefault("initial_battery", d.InitialBattery)
	v.SetDefault("seed", d.Seed)
	v.SetDefault("auto_start", d.AutoStart)
	v.SetDefault("ticks", d.Ticks)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("render", d.Render)
	v.SetDefault("title", d.Title)
	v.SetDefault("pid_file", d.PIDFile)
	v.SetDefault("recorder.enabled", d.Recorder.Enabled)
	v.SetDefault("recorder.batch_size", d.Recorder.BatchSize)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.New().Wrap(errors.ErrInvalidConfig, err)
	}
	cfg.Path = v.ConfigFileUsed()
	cfg.v = v
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.TickInterval <= 0 {
		return errFactory.Wrap(errors.ErrInvalidInterval, &validationError{
			field: "tick_interval", value: c.TickInterval, reason: "must be positive",
		})
	}
	if c.InitialBattery < vehicle.MinBattery || c.InitialBattery > vehicle.MaxBattery {
		return errFactory.Wrap(errors.ErrInvalidBattery, &validationError{
			field: "initial_battery", value: c.InitialBattery, reason: "must be within 0-100",
		})
	}
	if !LogLevel(strings.ToLower(c.LogLevel)).IsValid() {
		return errFactory.Wrap(errors.ErrInvalidLogLevel, &validationError{
			field: "log_level", value: c.LogLevel, reason: "must be debug, info, warning or error",
		})
	}
	if c.Ticks < 0 {
		return errFactory.Wrap(errors.ErrInvalidConfig, &validationError{
			field: "ticks", value: c.Ticks, reason: "must not be negative",
		})
	}
	if c.Recorder.Enabled && c.Recorder.BatchSize < 1 {
		return errFactory.Wrap(errors.ErrInvalidConfig, &validationError{
			field: "recorder.batch_size", value: c.Recorder.BatchSize, reason: "must be at least 1",
		})
	}

	return nil
}

func (c *Config) GetTickInterval() time.Duration { return c.TickInterval }
func (c *Config) GetInitialBattery() float64     { return c.InitialBattery }
func (c *Config) GetSeed() uint64                { return c.Seed }
func (c *Config) GetLogLevel() string            { return c.LogLevel }
func (c *Config) IsRecorderEnabled() bool        { return c.Recorder.Enabled }
func (c *Config) GetMetricsAddr() string         { return c.Metrics.Addr }

// Watch re-reads the config file on every change and hands valid results
// to callback until ctx is done. Invalid edits are reported through
// onError and otherwise ignored.
func (c *Config) Watch(ctx context.Context, callback func(*Config), onError func(error)) error {
	if c.v == nil || c.Path == "" {
		return errors.New().WithData(errors.ErrWatchConfig, "no config file in use")
	}

	c.v.OnConfigChange(func(e fsnotify.Event) {
		if ctx.Err() != nil || e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}

		next, err := decode(c.v)
		if err == nil {
			err = next.Validate()
		}
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		callback(next)
	})
	c.v.WatchConfig()

	<-ctx.Done()
	return nil
}

// fileConfig is the on-disk layout written by WriteDefault.
type fileConfig struct {
	TickInterval   string  `toml:"tick_interval"`
	InitialBattery float64 `toml:"initial_battery"`
	Seed           uint64  `toml:"seed"`
	AutoStart      bool    `toml:"auto_start"`
	Ticks          int     `toml:"ticks"`
	LogLevel       string  `toml:"log_level"`
	Render         bool    `toml:"render"`
	Title          string  `toml:"title"`
	PIDFile        string  `toml:"pid_file"`
	Recorder       struct {
		Enabled   bool `toml:"enabled"`
		BatchSize int  `toml:"batch_size"`
	} `toml:"recorder"`
	Metrics struct {
		Addr string `toml:"addr"`
	} `toml:"metrics"`
}

// Marshal renders c as TOML in the layout Load reads.
func (c *Config) Marshal() ([]byte, error) {
	fc := fileConfig{
		TickInterval:   c.TickInterval.String(),
		InitialBattery: c.InitialBattery,
		Seed:           c.Seed,
		AutoStart:      c.AutoStart,
		Ticks:          c.Ticks,
		LogLevel:       c.LogLevel,
		Render:         c.Render,
		Title:          c.Title,
		PIDFile:        c.PIDFile,
	}
	fc.Recorder.Enabled = c.Recorder.Enabled
	fc.Recorder.BatchSize = c.Recorder.BatchSize
	fc.Metrics.Addr = c.Metrics.Addr

	data, err := toml.Marshal(fc)
	if err != nil {
		return nil, errors.New().Wrap(errors.ErrWriteConfig, err)
	}
	return data, nil
}

// WriteDefault writes the built-in configuration to path. An existing file
// is only replaced when overwrite is set.
func WriteDefault(path string, overwrite bool) error {
	errFactory := errors.New()

	if _, err := os.Stat(path); err == nil && !overwrite {
		return errFactory.WithData(errors.ErrWriteConfig, struct {
			Path  string
			Error string
		}{
			Path:  path,
			Error: "file exists",
		})
	}

	d := Default()
	data, err := d.Marshal()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errFactory.Wrap(errors.ErrWriteConfig, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errFactory.Wrap(errors.ErrWriteConfig, err)
	}

	return nil
}
