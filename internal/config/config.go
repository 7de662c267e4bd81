package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"lightdark-study/internal/calibration"
	"lightdark-study/internal/models"
	"lightdark-study/internal/prediction"
)

// Conf holds the configuration loaded at startup, making it accessible globally.
// Values that may change under hot reload are read through Current.
var Conf *Config

var current atomic.Pointer[Config]

// Set installs c as the active configuration.
func Set(c *Config) {
	Conf = c
	current.Store(c)
}

// Current returns the most recently loaded valid configuration.
func Current() *Config {
	if c := current.Load(); c != nil {
		return c
	}
	return Conf
}

// Config struct is the top-level configuration structure.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Study    StudyConfig    `mapstructure:"study"`
}

// ServerConfig holds server-related settings.
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           string        `mapstructure:"port"`
	SessionSecret  string        `mapstructure:"session_secret"`
	AssetsDir      string        `mapstructure:"assets_dir"`
	Debug          bool          `mapstructure:"debug"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	StartRateLimit int           `mapstructure:"start_rate_limit"`
}

// Addr is the listen address of the study host.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// DatabaseConfig holds the completed-session archive settings.
type DatabaseConfig struct {
	Archive  bool   `mapstructure:"archive"`
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// LoggingConfig holds settings for the logger.
type LoggingConfig struct {
	Directory  string `mapstructure:"directory"`
	Level      string `mapstructure:"level"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

type StudyConfig struct {
	ProtocolFile string            `mapstructure:"protocol_file"`
	Calibration  CalibrationConfig `mapstructure:"calibration"`
	Prediction   PredictionConfig  `mapstructure:"prediction"`
}

// CalibrationConfig holds the trial design, fitting thresholds and ready delays.
type CalibrationConfig struct {
	FittsWidths      []float64     `mapstructure:"fitts_widths"`
	FittsDistances   []float64     `mapstructure:"fitts_distances"`
	FittsRepetitions int           `mapstructure:"fitts_repetitions"`
	HicksLevels      []int         `mapstructure:"hicks_levels"`
	HicksRepetitions int           `mapstructure:"hicks_repetitions"`
	KeyAlphabet      []string      `mapstructure:"key_alphabet"`
	MinTrials        int           `mapstructure:"min_trials"`
	TrimAbove        int           `mapstructure:"trim_above"`
	TrimCount        int           `mapstructure:"trim_count"`
	MinLevels        int           `mapstructure:"min_levels"`
	MinReactionMs    float64       `mapstructure:"min_reaction_ms"`
	MaxReactionMs    float64       `mapstructure:"max_reaction_ms"`
	FallbackA        float64       `mapstructure:"fallback_a"`
	FallbackB        float64       `mapstructure:"fallback_b"`
	FittsReadyDelay  time.Duration `mapstructure:"fitts_ready_delay"`
	HicksMinDelay    time.Duration `mapstructure:"hicks_min_delay"`
	HicksMaxDelay    time.Duration `mapstructure:"hicks_max_delay"`
}

func (c CalibrationConfig) Design() calibration.Design {
	return calibration.Design{
		FittsWidths:      c.FittsWidths,
		FittsDistances:   c.FittsDistances,
		FittsRepetitions: c.FittsRepetitions,
		HicksLevels:      c.HicksLevels,
		HicksRepetitions: c.HicksRepetitions,
		KeyAlphabet:      c.KeyAlphabet,
	}
}

func (c CalibrationConfig) Params() calibration.Params {
	return calibration.Params{
		MinTrials:     c.MinTrials,
		TrimAbove:     c.TrimAbove,
		TrimCount:     c.TrimCount,
		MinLevels:     c.MinLevels,
		MinReactionMs: c.MinReactionMs,
		MaxReactionMs: c.MaxReactionMs,
		Fallback:      models.Equation{A: c.FallbackA, B: c.FallbackB},
	}
}

type PredictionConfig struct {
	KeystrokeSeconds    float64 `mapstructure:"keystroke_seconds"`
	VisualSearchFloorMs float64 `mapstructure:"visual_search_floor_ms"`
}

func (p PredictionConfig) Params() prediction.Params {
	return prediction.Params{
		KeystrokeSeconds:    p.KeystrokeSeconds,
		VisualSearchFloorMs: p.VisualSearchFloorMs,
	}
}

// Validate rejects configurations the study cannot run with.
func (c *Config) Validate() error {
	cal := c.Study.Calibration
	if err := cal.Design().Validate(); err != nil {
		return fmt.Errorf("study.calibration: %w", err)
	}

	var errs []error
	if cal.MinTrials < 1 || cal.MinLevels < 1 {
		errs = append(errs, errors.New("study.calibration: min_trials and min_levels must be at least 1"))
	}
	if cal.TrimAbove < 0 || cal.TrimCount < 0 {
		errs = append(errs, errors.New("study.calibration: trim settings must not be negative"))
	}
	if cal.MinReactionMs < 0 || cal.MaxReactionMs < cal.MinReactionMs {
		errs = append(errs, fmt.Errorf("study.calibration: reaction window [%v, %v] is invalid", cal.MinReactionMs, cal.MaxReactionMs))
	}
	if cal.FittsReadyDelay < 0 || cal.HicksMinDelay < 0 || cal.HicksMaxDelay < cal.HicksMinDelay {
		errs = append(errs, errors.New("study.calibration: delays must be non-negative and hicks_max_delay >= hicks_min_delay"))
	}
	if c.Study.Prediction.KeystrokeSeconds <= 0 {
		errs = append(errs, errors.New("study.prediction: keystroke_seconds must be positive"))
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not supported", c.Database.Driver))
	}
	if c.Server.IdleTimeout < 0 {
		errs = append(errs, errors.New("server.idle_timeout must not be negative"))
	}
	return errors.Join(errs...)
}

// setDefaults sets the default values for the configuration.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "5050")
	v.SetDefault("server.session_secret", "change-me-in-config")
	v.SetDefault("server.assets_dir", "web")
	v.SetDefault("server.debug", false)
	v.SetDefault("server.idle_timeout", 30*time.Minute)
	v.SetDefault("server.start_rate_limit", 5) // starts per minute

	// Database defaults
	v.SetDefault("database.archive", false)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/archive.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "study")
	v.SetDefault("database.password", "study")
	v.SetDefault("database.dbname", "lightdark-study")
	v.SetDefault("database.sslmode", "disable")

	// Logging defaults
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.level", "debug")
	v.SetDefault("logging.max_size", 10)   // 10 MB
	v.SetDefault("logging.max_backups", 3) // Keep 3 backups
	v.SetDefault("logging.max_age", 7)     // 7 days
	v.SetDefault("logging.compress", true) // Compress old logs

	// Study defaults
	design := calibration.DefaultDesign()
	params := calibration.DefaultParams()
	v.SetDefault("study.protocol_file", "")
	v.SetDefault("study.calibration.fitts_widths", design.FittsWidths)
	v.SetDefault("study.calibration.fitts_distances", design.FittsDistances)
	v.SetDefault("study.calibration.fitts_repetitions", design.FittsRepetitions)
	v.SetDefault("study.calibration.hicks_levels", design.HicksLevels)
	v.SetDefault("study.calibration.hicks_repetitions", design.HicksRepetitions)
	v.SetDefault("study.calibration.key_alphabet", design.KeyAlphabet)
	v.SetDefault("study.calibration.min_trials", params.MinTrials)
	v.SetDefault("study.calibration.trim_above", params.TrimAbove)
	v.SetDefault("study.calibration.trim_count", params.TrimCount)
	v.SetDefault("study.calibration.min_levels", params.MinLevels)
	v.SetDefault("study.calibration.min_reaction_ms", params.MinReactionMs)
	v.SetDefault("study.calibration.max_reaction_ms", params.MaxReactionMs)
	v.SetDefault("study.calibration.fallback_a", params.Fallback.A)
	v.SetDefault("study.calibration.fallback_b", params.Fallback.B)
	v.SetDefault("study.calibration.fitts_ready_delay", 500*time.Millisecond)
	v.SetDefault("study.calibration.hicks_min_delay", 500*time.Millisecond)
	v.SetDefault("study.calibration.hicks_max_delay", 2000*time.Millisecond)
	v.SetDefault("study.prediction.keystroke_seconds", 0.2)
	v.SetDefault("study.prediction.visual_search_floor_ms", 100)
}

func newViper(projectRoot string) *viper.Viper {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// --- File Configuration ---
	v.AddConfigPath(filepath.Join(projectRoot, "config"))
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// --- Environment Variable Binding ---
	v.SetEnvPrefix("LDSTUDY") // e.g., LDSTUDY_SERVER_PORT
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &c, nil
}

// Load reads and validates the configuration without installing it.
func Load(projectRoot string) (*Config, error) {
	v := newViper(projectRoot)

	// It's okay if the file doesn't exist; defaults and env vars will be used.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return decode(v)
}

// Init loads the configuration into Conf and watches the file for changes.
// A reloaded configuration that fails validation is logged and ignored.
func Init(projectRoot string, log *zap.Logger) error {
	v := newViper(projectRoot)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		fileFound = false
	}

	c, err := decode(v)
	if err != nil {
		return err
	}
	Set(c)

	// Set up a watch for configuration changes for hot-reloading
	if fileFound {
		v.OnConfigChange(func(e fsnotify.Event) {
			log.Info("Configuration file changed, reloading.", zap.String("file", e.Name))
			reloaded, err := decode(v)
			if err != nil {
				log.Error("Error reloading configuration", zap.Error(err))
				return
			}
			current.Store(reloaded)
		})
		v.WatchConfig()
	}

	log.Info("Configuration loaded successfully", zap.Bool("file", fileFound))
	return nil
}
