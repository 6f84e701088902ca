package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/AntonStoeckl/asyncsql-go/asyncsql"
)

// Adapter types select the toolkit pool the engine is built from.
const (
	AdapterPGXPool = "pgx.pool"
	AdapterSQLDB   = "sql.db"
	AdapterSQLXDB  = "sqlx.db"
)

// Driver names as registered with database/sql by lib/pq and go-sql-driver/mysql.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

const envPrefix = "ASYNCSQL"

var (
	ErrUnsupportedAdapter = errors.New("unsupported adapter type")
	ErrUnsupportedDriver  = errors.New("unsupported database driver")
	ErrEmptyDSN           = errors.New("empty dsn supplied")
	ErrDialectMismatch    = errors.New("dialect does not match the adapter or driver")
	ErrInvalidPoolSize    = errors.New("pool sizes must not be negative")
)

// Config describes the database an engine connects to.
type Config struct {
	Adapter string `mapstructure:"adapter"`
	Driver  string `mapstructure:"driver"`
	DSN     string `mapstructure:"dsn"`
	Dialect string `mapstructure:"dialect"`

	Pool struct {
		MaxOpenConns    int           `mapstructure:"max_open_conns"`
		MaxIdleConns    int           `mapstructure:"max_idle_conns"`
		MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
		MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
		ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	} `mapstructure:"pool"`

	Engine struct {
		ArraySize int `mapstructure:"array_size"`
	} `mapstructure:"engine"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

// Default returns the configuration used for keys that neither the file nor the environment set.
func Default() Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg) // defaults always decode
	cfg.Dialect = cfg.defaultDialect()

	return cfg
}

// Load reads the YAML file at path, if any, and applies ASYNCSQL_* environment overrides,
// e.g. ASYNCSQL_DSN or ASYNCSQL_POOL_MAX_OPEN_CONNS.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Dialect == "" {
		cfg.Dialect = cfg.defaultDialect()
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("adapter", AdapterPGXPool)
	v.SetDefault("driver", DriverPostgres)
	v.SetDefault("dsn", "")
	v.SetDefault("dialect", "")
	v.SetDefault("pool.max_open_conns", 10)
	v.SetDefault("pool.max_idle_conns", 2)
	v.SetDefault("pool.max_conn_lifetime", time.Hour)
	v.SetDefault("pool.max_conn_idle_time", 5*time.Minute)
	v.SetDefault("pool.connect_timeout", 5*time.Second)
	v.SetDefault("engine.array_size", 1)
	v.SetDefault("log.level", "info")
}

func (c Config) defaultDialect() string {
	if c.Adapter != AdapterPGXPool && c.Driver == DriverMySQL {
		return asyncsql.DialectMySQL
	}

	return asyncsql.DialectPostgres
}

// Validate checks that the adapter, driver and dialect fit together.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DSN) == "" {
		return ErrEmptyDSN
	}

	if err := asyncsql.ValidateDialect(c.Dialect); err != nil {
		return err
	}

	if c.Engine.ArraySize <= 0 {
		return asyncsql.ErrInvalidArraySize
	}

	if c.Pool.MaxOpenConns < 0 || c.Pool.MaxIdleConns < 0 {
		return ErrInvalidPoolSize
	}

	switch c.Adapter {
	case AdapterPGXPool:
		if c.Dialect != asyncsql.DialectPostgres {
			return ErrDialectMismatch
		}

	case AdapterSQLDB, AdapterSQLXDB:
		switch c.Driver {
		case DriverPostgres:
			if c.Dialect != asyncsql.DialectPostgres {
				return ErrDialectMismatch
			}

		case DriverMySQL:
			if c.Dialect != asyncsql.DialectMySQL {
				return ErrDialectMismatch
			}

		default:
			return fmt.Errorf("%w: %q", ErrUnsupportedDriver, c.Driver)
		}

	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedAdapter, c.Adapter)
	}

	return nil
}
