package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/clubsite/internal/auth"
	"github.com/clubsite/internal/config"
	"github.com/clubsite/internal/ratelimit"
	"github.com/clubsite/internal/service"
	"gorm.io/gorm"
)

// Publisher 将内容改动发布为 PR，并可读取仓库中的现有文件。
type Publisher interface {
	Publish(ctx context.Context, req service.PublishRequest) (service.PublishResult, error)
	ReadFile(ctx context.Context, path string) (string, error)
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db               *gorm.DB
	gate             *auth.Gate
	publisher        Publisher
	publishLog       *service.PublishLogService
	content          *service.ContentService
	pages            *service.PageService
	feed             *service.FeedService
	limiter          *ratelimit.Limiter
	writeSecret      string
	revalidateSecret string
	secureCookies    bool
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, cfg config.AppConfig) *API {
	contentService := service.NewContentService(cfg.BackendAPIURL, cfg.BackendAPIToken, cfg.ContentFile, cfg.ContentCacheTTL)

	publisher := service.NewPublishService(cfg.GitHubToken, cfg.GitHubOwner, cfg.GitHubRepo)
	if err := publisher.SetBaseURL(cfg.GitHubAPIURL); err != nil {
		log.Printf("[api] ignoring GITHUB_API_URL: %v", err)
	}

	return &API{
		db:               gdb,
		gate:             auth.NewGate(cfg.AccessTeamDomain, cfg.AccessAudiences, &http.Client{Timeout: 10 * time.Second}),
		publisher:        publisher,
		publishLog:       service.NewPublishLogService(gdb),
		content:          contentService,
		pages:            service.NewPageService(contentService),
		feed:             service.NewFeedService(gdb, cfg.FeedNewsURL, cfg.FeedMatchesURL),
		limiter:          ratelimit.New(ratelimit.DefaultLimit, ratelimit.DefaultWindow),
		writeSecret:      cfg.ContentWriteSecret,
		revalidateSecret: cfg.RevalidateSecret,
		secureCookies:    isHTTPS(cfg.SiteBaseURL),
	}
}

// DB exposes the underlying gorm instance.
func (a *API) DB() *gorm.DB {
	return a.db
}

// Gate 返回保护编辑路由的访问网关。
func (a *API) Gate() *auth.Gate {
	return a.gate
}

// SetPublisher 替换发布适配器，主要用于测试。
func (a *API) SetPublisher(publisher Publisher) {
	a.publisher = publisher
}

// Limiter exposes the commit rate limiter.
func (a *API) Limiter() *ratelimit.Limiter {
	return a.limiter
}
