// Package config loads the process configuration of the directory service and CLI.
//
// Values are resolved, highest precedence first, from changed command line flags, environment
// variables with the DIRECTORY_ prefix, an optional .env file and the defaults below.
// The environment name of a key is the prefix plus the upper-cased key with dots replaced by
// underscores, e.g. backend.block_size is DIRECTORY_BACKEND_BLOCK_SIZE.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/AntonStoeckl/provider-directory-go/directory/blobstore"
)

// EnvPrefix is the prefix of all environment variables read by Load.
const EnvPrefix = "DIRECTORY"

// DefaultEnvFile is the optional dotenv file read when no other file is given.
const DefaultEnvFile = ".env"

// Snapshot source kinds.
const (
	SourceLocal = "local"
	SourceHTTP  = "http"
	SourceMinIO = "minio"
	SourceS3    = "s3"
)

// Upstream driver kinds for build-snapshot.
const (
	DriverPGX  = "pgx"
	DriverPQ   = "pq"
	DriverSQLX = "sqlx"
)

// ErrInvalidConfig is returned by Validate and Load for unusable configuration values.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete process configuration.
type Config struct {
	Backend  BackendConfig  `mapstructure:"backend"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	Search   SearchConfig   `mapstructure:"search"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Log      LogConfig      `mapstructure:"log"`
}

// BackendConfig selects and tunes the query backend.
type BackendConfig struct {
	Mode        string `mapstructure:"mode"`
	Adapter     string `mapstructure:"adapter"`
	Debug       bool   `mapstructure:"debug"`
	BlockSize   int64  `mapstructure:"block_size"`
	CacheBlocks int    `mapstructure:"cache_blocks"`
}

// SnapshotConfig locates the snapshot blobs.
// Name overrides the variant's default blob name when set.
type SnapshotConfig struct {
	Source    string `mapstructure:"source"`
	Name      string `mapstructure:"name"`
	Dir       string `mapstructure:"dir"`
	URL       string `mapstructure:"url"`
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Secure    bool   `mapstructure:"secure"`
}

// SearchConfig tunes the consumer API.
type SearchConfig struct {
	Language  string `mapstructure:"language"`
	ChunkSize int    `mapstructure:"chunk_size"`
}

// HTTPConfig configures the HTTP facade.
type HTTPConfig struct {
	Listen          string        `mapstructure:"listen"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	DefaultPageSize int           `mapstructure:"default_page_size"`
	MaxPageSize     int           `mapstructure:"max_page_size"`
}

// PostgresConfig is the upstream database build-snapshot copies from.
// ReplicaDSN is optional and only supported by the pgx driver; the tables are then read from the replica.
type PostgresConfig struct {
	DSN        string `mapstructure:"dsn"`
	ReplicaDSN string `mapstructure:"replica_dsn"`
	Driver     string `mapstructure:"driver"`
	Schema     string `mapstructure:"schema"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var defaults = map[string]any{
	"backend.mode":           "snapshot",
	"backend.adapter":        "sql",
	"backend.debug":          false,
	"backend.block_size":     blobstore.DefaultBlockSize,
	"backend.cache_blocks":   blobstore.DefaultCacheBlocks,
	"snapshot.source":        SourceLocal,
	"snapshot.name":          "",
	"snapshot.dir":           ".",
	"snapshot.url":           "",
	"snapshot.endpoint":      "",
	"snapshot.bucket":        "",
	"snapshot.prefix":        "",
	"snapshot.access_key":    "",
	"snapshot.secret_key":    "",
	"snapshot.secure":        true,
	"search.language":        "pt-BR",
	"search.chunk_size":      500,
	"http.listen":            ":8080",
	"http.read_timeout":      "10s",
	"http.write_timeout":     "30s",
	"http.shutdown_timeout":  "10s",
	"http.default_page_size": 20,
	"http.max_page_size":     200,
	"postgres.dsn":           "",
	"postgres.replica_dsn":   "",
	"postgres.driver":        DriverPGX,
	"postgres.schema":        "public",
	"log.level":              "info",
	"log.format":             "json",
}

// Loader resolves a Config. The zero value is not usable; create one with NewLoader.
type Loader struct {
	v       *viper.Viper
	envFile string
}

// NewLoader creates a Loader reading envFile if it exists. An empty envFile means DefaultEnvFile.
func NewLoader(envFile string) *Loader {
	if envFile == "" {
		envFile = DefaultEnvFile
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{v: v, envFile: envFile}
}

// BindFlag lets a changed command line flag override key.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("%w: no flag for %s", ErrInvalidConfig, key)
	}

	return l.v.BindPFlag(key, flag)
}

// Load resolves and validates the configuration.
func (l *Loader) Load() (Config, error) {
	if err := l.mergeEnvFile(); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Load resolves the configuration from the environment and envFile only.
func Load(envFile string) (Config, error) {
	return NewLoader(envFile).Load()
}

// mergeEnvFile reads the dotenv file into the config layer, below environment variables.
// Only DIRECTORY_ entries naming a known key are taken.
func (l *Loader) mergeEnvFile() error {
	if _, err := os.Stat(l.envFile); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	file := viper.New()
	file.SetConfigFile(l.envFile)
	file.SetConfigType("env")

	if err := file.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: reading %s: %w", ErrInvalidConfig, l.envFile, err)
	}

	byEnvName := make(map[string]string, len(defaults))
	for key := range defaults {
		byEnvName[envName(key)] = key
	}

	values := map[string]any{}
	for _, name := range file.AllKeys() {
		key, known := byEnvName[strings.ToUpper(name)]
		if !known {
			continue
		}
		setNested(values, strings.Split(key, "."), file.Get(name))
	}

	return l.v.MergeConfigMap(values)
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func setNested(m map[string]any, path []string, value any) {
	if len(path) == 1 {
		m[path[0]] = value
		return
	}

	child, ok := m[path[0]].(map[string]any)
	if !ok {
		child = map[string]any{}
		m[path[0]] = child
	}

	setNested(child, path[1:], value)
}

// Validate checks the values that cannot be checked by the components themselves.
func (c Config) Validate() error {
	var errs []error

	switch c.Snapshot.Source {
	case SourceLocal:
		if c.Snapshot.Dir == "" {
			errs = append(errs, errors.New("snapshot.dir is required for the local source"))
		}
	case SourceHTTP:
		if c.Snapshot.URL == "" {
			errs = append(errs, errors.New("snapshot.url is required for the http source"))
		}
	case SourceMinIO:
		if c.Snapshot.Endpoint == "" || c.Snapshot.Bucket == "" {
			errs = append(errs, errors.New("snapshot.endpoint and snapshot.bucket are required for the minio source"))
		}
	case SourceS3:
		if c.Snapshot.Bucket == "" {
			errs = append(errs, errors.New("snapshot.bucket is required for the s3 source"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown snapshot.source %q", c.Snapshot.Source))
	}

	switch c.Postgres.Driver {
	case DriverPGX, DriverPQ, DriverSQLX:
	default:
		errs = append(errs, fmt.Errorf("unknown postgres.driver %q", c.Postgres.Driver))
	}

	if c.Postgres.ReplicaDSN != "" && c.Postgres.Driver != DriverPGX {
		errs = append(errs, fmt.Errorf("postgres.replica_dsn requires the %s driver", DriverPGX))
	}

	if c.HTTP.DefaultPageSize <= 0 || c.HTTP.MaxPageSize < c.HTTP.DefaultPageSize {
		errs = append(errs, fmt.Errorf(
			"http.default_page_size %d must be positive and not above http.max_page_size %d",
			c.HTTP.DefaultPageSize, c.HTTP.MaxPageSize,
		))
	}

	if len(errs) == 0 {
		return nil
	}

	return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
}
