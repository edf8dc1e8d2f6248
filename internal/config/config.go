package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the Reddit API credentials and local paths for a run.
// It is constructed once at startup and passed into the client explicitly.
type Config struct {
	ClientID     string
	ClientSecret string
	Username     string
	OutputDir    string
	DataDir      string
}

// Load reads configuration from a .env file, an optional config.yaml in the
// working directory, and the environment. Environment variables override file
// values. Credentials are required; paths fall back to defaults.
func Load() (*Config, error) {
	// .env is optional; environment variables may already be set.
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, relying on environment variables")
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// AutomaticEnv only checks the uppercased form of a key, while .env
	// files carry the lowercase names. Both spellings must resolve.
	for _, key := range []string{"client_id", "client_secret", "username", "output_dir", "data_dir"} {
		viper.BindEnv(key, key, strings.ToUpper(key))
	}

	viper.SetDefault("output_dir", "output")
	viper.SetDefault("data_dir", "data")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		ClientID:     viper.GetString("client_id"),
		ClientSecret: viper.GetString("client_secret"),
		Username:     viper.GetString("username"),
		OutputDir:    viper.GetString("output_dir"),
		DataDir:      viper.GetString("data_dir"),
	}

	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.Username == "" {
		return nil, fmt.Errorf("missing Reddit credentials: client_id, client_secret and username are required")
	}

	return cfg, nil
}

// UserAgent builds the user agent string Reddit expects from script apps.
func (c *Config) UserAgent() string {
	return fmt.Sprintf("mac:%s:v1.0 (by u/%s)", c.ClientID, c.Username)
}
