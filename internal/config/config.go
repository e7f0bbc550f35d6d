// Package config は環境変数からのアプリケーション設定読み込みを提供する。
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
// すべての項目にローカル開発用のデフォルト値がある。
type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Session
	SessionSecret string
	TokenTTL      time.Duration

	// Rate Limit
	LoginRateLimit   int           // ログイン試行の上限回数（ウィンドウごと）
	LoginRateWindow  time.Duration // ログインレート制限のウィンドウ幅
	RateLimitGeneral int           // 認証済みAPI全般のレート（req/min/user）

	// Cache
	IssueTypeCacheTTL time.Duration

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 未設定の項目にはローカル開発用のデフォルト値を適用する。
// SESSION_SECRETがデフォルトのままの場合は呼び出し側で警告ログを出すこと。
func Load() (*Config, error) {
	cfg := &Config{
		DBHost:     getEnvString("DB_HOST", "localhost"),
		DBPort:     getEnvString("DB_PORT", "5432"),
		DBUser:     getEnvString("DB_USER", "issuedesk"),
		DBPassword: getEnvString("DB_PASSWORD", "issuedesk"),
		DBName:     getEnvString("DB_NAME", "issuedesk"),
		DBSSLMode:  getEnvString("DB_SSLMODE", "disable"),

		SessionSecret: getEnvString("SESSION_SECRET", DefaultSessionSecret),
		TokenTTL:      getEnvDuration("TOKEN_TTL", 5*time.Hour),

		LoginRateLimit:   getEnvInt("LOGIN_RATE_LIMIT", 5),
		LoginRateWindow:  getEnvDuration("LOGIN_RATE_WINDOW", 60*time.Second),
		RateLimitGeneral: getEnvInt("RATE_LIMIT_GENERAL", 120),

		IssueTypeCacheTTL: getEnvDuration("ISSUE_TYPE_CACHE_TTL", 5*time.Minute),

		ServerPort: getEnvString("SERVER_PORT", "8080"),
		BaseURL:    getEnvString("BASE_URL", "http://localhost:8080"),

		CookieDomain: getEnvString("COOKIE_DOMAIN", ""),

		CORSAllowedOrigin: getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000"),
	}

	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("TOKEN_TTL must be positive")
	}
	if cfg.LoginRateLimit <= 0 || cfg.LoginRateWindow <= 0 {
		return nil, fmt.Errorf("login rate limit settings must be positive")
	}

	// 本番（https配信）ではSecure Cookieを強制する
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")

	return cfg, nil
}

// DefaultSessionSecret はローカル開発用のセッション署名シークレット。
// 本番環境では必ずSESSION_SECRETで上書きすること。
const DefaultSessionSecret = "dev-only-insecure-secret"

// DatabaseURL はPostgreSQL接続URLを組み立てて返す。
// ユーザー名・パスワードに記号が含まれる場合も正しくエスケープする。
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     c.DBName,
		RawQuery: "sslmode=" + c.DBSSLMode,
	}
	return u.String()
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

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
