// Package config loads application configuration from file, environment
// and flags via viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Version is the build version reported by the CLI.
const Version = "0.1.0"

// Config holds application-wide configuration.
type Config struct {
	REST    RESTConfig    `mapstructure:"rest"`
	OpenAPI OpenAPIConfig `mapstructure:"openapi"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type RESTConfig struct {
	PG             PGConfig          `mapstructure:"pg"`
	ListenAddr     string            `mapstructure:"listenAddr"`
	BaseURL        string            `mapstructure:"baseURL"`
	ExcludedTables []string          `mapstructure:"excludedTables"`
	OwnedTables    map[string]string `mapstructure:"ownedTables"` // table name -> owner column
	JWT            JWTConfig         `mapstructure:"jwt"`
}

type PGConfig struct {
	ConnString string `mapstructure:"connString"`
	Schema     string `mapstructure:"schema"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type OpenAPIConfig struct {
	Title       string   `mapstructure:"title"`
	Description string   `mapstructure:"description"`
	Version     string   `mapstructure:"version"`
	Servers     []string `mapstructure:"servers"`
}

type MetricsConfig struct {
	ListenAddr string `mapstructure:"listenAddr"`
	Path       string `mapstructure:"path"`
}

func DefaultRESTConfig() RESTConfig {
	return RESTConfig{
		ListenAddr: ":8080",
		PG:         PGConfig{Schema: "public"},
	}
}

// Load reads config from file or environment.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("tablerest")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config"))
		}
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("TABLEREST")

	v.SetDefault("rest.listenAddr", ":8080")
	v.SetDefault("rest.pg.schema", "public")
	v.SetDefault("openapi.title", "tablerest API")
	v.SetDefault("openapi.version", Version)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		fmt.Println("Using config file:", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	return &cfg, nil
}
