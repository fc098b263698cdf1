package xmodel

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/viper"
)

// Config describes how to reach the database and how to size the pool.
type Config struct {
	Driver      string        `mapstructure:"driver"`   // "mysql" or "sqlite"
	Host        string        `mapstructure:"host"`     // mysql only
	Port        int           `mapstructure:"port"`     // mysql only
	User        string        `mapstructure:"user"`     // mysql only
	Password    string        `mapstructure:"password"` // mysql only
	Database    string        `mapstructure:"database"` // schema name, or file path for sqlite
	Charset     string        `mapstructure:"charset"`
	Autocommit  bool          `mapstructure:"autocommit"`
	MinSize     int           `mapstructure:"min_size"` // connections opened eagerly
	MaxSize     int           `mapstructure:"max_size"` // bound on live connections
	MaxLifetime time.Duration `mapstructure:"max_lifetime"`
	Strict      bool          `mapstructure:"strict"` // fail writes that do not affect exactly one row
}

// DefaultConfig mirrors the defaults of a local MySQL server.
func DefaultConfig() Config {
	return Config{
		Driver:     "mysql",
		Host:       "localhost",
		Port:       3306,
		Charset:    "utf8",
		Autocommit: true,
		MinSize:    1,
		MaxSize:    10,
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("driver", d.Driver)
	v.SetDefault("host", d.Host)
	v.SetDefault("port", d.Port)
	v.SetDefault("charset", d.Charset)
	v.SetDefault("autocommit", d.Autocommit)
	v.SetDefault("min_size", d.MinSize)
	v.SetDefault("max_size", d.MaxSize)
	v.SetDefault("max_lifetime", d.MaxLifetime)
	v.SetDefault("strict", d.Strict)
}

// LoadConfig reads a pool configuration file (YAML, TOML or JSON, chosen by
// extension). XMODEL_* environment variables override file values, e.g.
// XMODEL_PASSWORD. An empty path reads the environment and defaults only.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("xmodel")
	v.AutomaticEnv()
	for _, key := range []string{"user", "password", "database"} {
		if err := v.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("binding env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config to struct : %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the pool bounds and the driver name.
func (c Config) Validate() error {
	switch c.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("xmodel: unsupported driver %q", c.Driver)
	}
	if c.MaxSize < 1 {
		return errors.New("xmodel: max_size must be at least 1")
	}
	if c.MinSize < 0 || c.MinSize > c.MaxSize {
		return fmt.Errorf("xmodel: min_size %d out of range [0, %d]", c.MinSize, c.MaxSize)
	}
	return nil
}

// DSN renders the data source name for the configured driver.
func (c Config) DSN() (string, error) {
	switch c.Driver {
	case "sqlite":
		if c.Database == "" {
			return "", errors.New("xmodel: sqlite needs a database path")
		}
		return c.Database, nil
	case "mysql":
		mc := mysql.NewConfig()
		mc.User = c.User
		mc.Passwd = c.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
		mc.DBName = c.Database
		mc.ParseTime = true
		mc.Params = map[string]string{"autocommit": strconv.FormatBool(c.Autocommit)}
		dsn := mc.FormatDSN()
		if c.Charset != "" {
			sep := "?"
			if strings.Contains(dsn, "?") {
				sep = "&"
			}
			dsn += sep + "charset=" + c.Charset
		}
		// Round-trip through the driver's parser so a bad charset or address
		// fails here rather than on first use.
		if _, err := mysql.ParseDSN(dsn); err != nil {
			return "", fmt.Errorf("xmodel: building mysql dsn: %w", err)
		}
		return dsn, nil
	default:
		return "", fmt.Errorf("xmodel: unsupported driver %q", c.Driver)
	}
}
