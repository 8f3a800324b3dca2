// Package config loads service settings from defaults, an optional config
// file named by CONFIG_FILE and environment variables, in rising precedence.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/jun/coursecast/internal/youtube"
	"github.com/spf13/viper"
)

type Config struct {
	DevMode     bool   `mapstructure:"dev_mode"`
	LogLevel    string `mapstructure:"log_level"`
	ListenAddr  string `mapstructure:"listen_addr"`
	FrontendURL string `mapstructure:"frontend_url"`

	GoogleClientID          string `mapstructure:"google_client_id"`
	GoogleRedirectURL       string `mapstructure:"google_redirect_url"`
	GoogleClientSecretParam string `mapstructure:"google_client_secret_param"`
	JWTSecretParam          string `mapstructure:"jwt_secret_param"`
	APIGatewaySecretParam   string `mapstructure:"api_gateway_secret_param"`
	KMSKeyID                string `mapstructure:"kms_key_id"`

	InMemoryStores bool   `mapstructure:"in_memory_stores"`
	TokensTable    string `mapstructure:"youtube_tokens_table"`
	NoncesTable    string `mapstructure:"oauth_nonces_table"`
	JobsTable      string `mapstructure:"upload_jobs_table"`

	MediaBucket string `mapstructure:"media_bucket"`
	MediaDir    string `mapstructure:"media_dir"`

	YouTubeUploadURL string `mapstructure:"youtube_upload_url"`
	YouTubeAPIURL    string `mapstructure:"youtube_api_url"`
	YouTubeWatchURL  string `mapstructure:"youtube_watch_url"`
	MinUploadBytes   int64  `mapstructure:"min_upload_bytes"`
	MaxUploadBytes   int64  `mapstructure:"max_upload_bytes"`

	// AsyncUploads answers POST /uploads before the transfer finishes.
	// Only for long-lived processes; a Lambda is frozen once it responds.
	AsyncUploads bool `mapstructure:"async_uploads"`

	BackendURL string `mapstructure:"backend_url"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("dev_mode", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("frontend_url", "http://localhost:3000")

	v.SetDefault("google_client_id", "")
	v.SetDefault("google_redirect_url", "")
	v.SetDefault("google_client_secret_param", "/coursecast/google-client-secret")
	v.SetDefault("jwt_secret_param", "/coursecast/jwt-secret")
	v.SetDefault("api_gateway_secret_param", "/coursecast/api-gateway-secret")
	v.SetDefault("kms_key_id", "alias/coursecast-token-key")

	v.SetDefault("in_memory_stores", false)
	v.SetDefault("youtube_tokens_table", "YouTubeTokens")
	v.SetDefault("oauth_nonces_table", "OAuthNonces")
	v.SetDefault("upload_jobs_table", "UploadJobs")

	v.SetDefault("media_bucket", "")
	v.SetDefault("media_dir", "./media")

	v.SetDefault("youtube_upload_url", youtube.DefaultUploadURL)
	v.SetDefault("youtube_api_url", "")
	v.SetDefault("youtube_watch_url", youtube.DefaultWatchURL)
	v.SetDefault("min_upload_bytes", youtube.DefaultMinBytes)
	v.SetDefault("max_upload_bytes", youtube.DefaultMaxBytes)

	v.SetDefault("async_uploads", false)
	v.SetDefault("backend_url", "")
}

// Load reads the configuration. Every key can be overridden by the
// upper-cased environment variable of the same name, e.g. DEV_MODE.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.GoogleRedirectURL == "" {
		if cfg.DevMode {
			cfg.GoogleRedirectURL = "http://localhost" + cfg.ListenAddr + "/youtube/callback"
		} else {
			cfg.GoogleRedirectURL = strings.TrimSuffix(cfg.FrontendURL, "/") + "/api/youtube/callback"
		}
	}
	if cfg.MinUploadBytes < 0 || cfg.MaxUploadBytes <= cfg.MinUploadBytes {
		return nil, fmt.Errorf("invalid upload size bounds: min %d, max %d", cfg.MinUploadBytes, cfg.MaxUploadBytes)
	}
	return &cfg, nil
}

// Constraints returns the upload constraints implied by the config.
func (c *Config) Constraints() youtube.Constraints {
	cs := youtube.DefaultConstraints()
	cs.MinBytes = c.MinUploadBytes
	cs.MaxBytes = c.MaxUploadBytes
	return cs
}
