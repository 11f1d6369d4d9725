package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr    string
	Port          string
	DatabasePath  string
	SessionSecret string
	GinMode       string
	SiteBaseURL   string

	// Access gate
	AccessTeamDomain string
	AccessAudiences  []string

	// GitHub publishing
	GitHubToken  string
	GitHubOwner  string
	GitHubRepo   string
	GitHubAPIURL string

	// Content store
	BackendAPIURL      string
	BackendAPIToken    string
	ContentFile        string
	ContentCacheTTL    time.Duration
	ContentWriteSecret string
	RevalidateSecret   string

	// Feed sources
	FeedNewsURL    string
	FeedMatchesURL string
}

// LoadDotEnv 尝试加载工作目录下的 .env 文件，不存在时静默跳过。
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[config] failed to load .env: %v", err)
	}
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
func Load() AppConfig {
	port := env("PORT", "8080")

	listenAddr := env("LISTEN_ADDR", fmt.Sprintf(":%s", port))

	return AppConfig{
		ListenAddr:    listenAddr,
		Port:          port,
		DatabasePath:  env("DATABASE_PATH", "clubsite.db"),
		SessionSecret: env("SESSION_SECRET", "clubsite-dev-secret"),
		GinMode:       env("GIN_MODE", "release"),
		SiteBaseURL:   env("SITE_BASE_URL", "http://localhost:8080"),

		AccessTeamDomain: env("ACCESS_TEAM_DOMAIN", ""),
		AccessAudiences:  SplitList(os.Getenv("ACCESS_AUD")),

		GitHubToken:  env("GITHUB_TOKEN", ""),
		GitHubOwner:  env("GITHUB_OWNER", ""),
		GitHubRepo:   env("GITHUB_REPO", ""),
		GitHubAPIURL: env("GITHUB_API_URL", ""),

		BackendAPIURL:      strings.TrimRight(env("BACKEND_API_URL", ""), "/"),
		BackendAPIToken:    env("BACKEND_API_TOKEN", ""),
		ContentFile:        env("CONTENT_FILE", "content/site.json"),
		ContentCacheTTL:    duration("CONTENT_CACHE_TTL", 60*time.Second),
		ContentWriteSecret: env("CONTENT_WRITE_SECRET", ""),
		RevalidateSecret:   env("REVALIDATE_SECRET", ""),

		FeedNewsURL:    env("FEED_NEWS_URL", ""),
		FeedMatchesURL: env("FEED_MATCHES_URL", ""),
	}
}

// SplitList 将逗号分隔的配置拆分为去空白后的非空切片。
func SplitList(raw string) []string {
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		values = append(values, trimmed)
	}
	return values
}

func env(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func duration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed < 0 {
		log.Printf("[config] invalid %s=%q, using %s", key, raw, fallback)
		return fallback
	}
	return parsed
}
