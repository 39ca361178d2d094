package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Version はRSSのdescriptionやUser-Agentに埋め込むアプリケーションのバージョン。
const Version = "0.5.0"

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、コマンドラインフラグで上書きした後はイミュータブルとして扱う。
type Config struct {
	// Server
	ServerPort string

	// Logging
	// 空の場合は標準出力のみに出力する
	LogDir string

	// Feed
	MaxResults  int
	SiteBaseURL string

	// Credential
	ConfigDir      string
	TokenURL       string
	ReauthInterval time.Duration

	// Fetch
	APIBaseURL   string
	FetchTimeout time.Duration

	// Rate Limit
	RateLimitFeed int
}

// LoadDotEnv は指定された.envファイルを環境変数に読み込む。
// 存在しないファイルは無視する。既に設定済みの環境変数は上書きしない。
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load は環境変数からConfigを読み込む。
// 値が不正な場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:     getEnvString("SERVER_PORT", "8080"),
		LogDir:         getEnvString("LOG_DIR", ""),
		MaxResults:     getEnvInt("MAX_RESULTS", 4),
		SiteBaseURL:    getEnvString("ACTIVITY_SITE_BASE_URL", "https://plus.google.com"),
		ConfigDir:      getEnvString("CONFIG_DIR", "./config"),
		TokenURL:       getEnvString("OAUTH_TOKEN_URL", "https://oauth2.googleapis.com/token"),
		ReauthInterval: getEnvDuration("REAUTH_INTERVAL", 300*time.Second),
		APIBaseURL:     getEnvString("ACTIVITY_API_BASE_URL", "https://www.googleapis.com"),
		FetchTimeout:   getEnvDuration("FETCH_TIMEOUT", 10*time.Second),
		RateLimitFeed:  getEnvInt("RATE_LIMIT_FEED", 60),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate は設定値の整合性を検証する。
// フラグで値を上書きした後にも呼び出す。
func (c *Config) Validate() error {
	var invalid []string

	if c.ServerPort == "" {
		invalid = append(invalid, "SERVER_PORT")
	}
	if c.MaxResults <= 0 {
		invalid = append(invalid, "MAX_RESULTS")
	}
	if c.ConfigDir == "" {
		invalid = append(invalid, "CONFIG_DIR")
	}
	if !isAbsoluteURL(c.TokenURL) {
		invalid = append(invalid, "OAUTH_TOKEN_URL")
	}
	if !isAbsoluteURL(c.APIBaseURL) {
		invalid = append(invalid, "ACTIVITY_API_BASE_URL")
	}
	if !isAbsoluteURL(c.SiteBaseURL) {
		invalid = append(invalid, "ACTIVITY_SITE_BASE_URL")
	}
	if c.FetchTimeout <= 0 {
		invalid = append(invalid, "FETCH_TIMEOUT")
	}
	if c.ReauthInterval <= 0 {
		invalid = append(invalid, "REAUTH_INTERVAL")
	}
	if c.RateLimitFeed <= 0 {
		invalid = append(invalid, "RATE_LIMIT_FEED")
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid configuration values: %v", invalid)
	}
	return nil
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// getEnvDuration はtime.ParseDuration形式に加え、単位なしの整数を秒として解釈する。
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
