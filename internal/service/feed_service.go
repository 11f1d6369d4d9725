package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/clubsite/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const feedUserAgent = "clubsite-feed/1.0"

var ErrUnknownFeedKind = errors.New("unknown feed kind")

// FeedSource 描述一个待抓取的第三方页面。
type FeedSource struct {
	Kind string
	URL  string
}

// FeedRefreshResult 汇总一次抓取的条目数量。
type FeedRefreshResult struct {
	News    int `json:"news"`
	Matches int `json:"matches"`
}

// FeedService 抓取新闻/赛程页面并写入 feed_items 表。
type FeedService struct {
	db      *gorm.DB
	http    httpDoer
	sources []FeedSource
	now     func() time.Time
}

// NewFeedService 构造 FeedService，空地址的来源会被忽略。
func NewFeedService(gdb *gorm.DB, newsURL, matchesURL string) *FeedService {
	svc := &FeedService{
		db:   gdb,
		http: &http.Client{Timeout: 30 * time.Second},
		now:  time.Now,
	}
	if u := strings.TrimSpace(newsURL); u != "" {
		svc.sources = append(svc.sources, FeedSource{Kind: db.FeedKindNews, URL: u})
	}
	if u := strings.TrimSpace(matchesURL); u != "" {
		svc.sources = append(svc.sources, FeedSource{Kind: db.FeedKindMatch, URL: u})
	}
	return svc
}

func (s *FeedService) SetHTTPClient(client httpDoer) {
	if client == nil {
		s.http = &http.Client{Timeout: 30 * time.Second}
		return
	}
	s.http = client
}

// Sources 返回已配置的抓取来源。
func (s *FeedService) Sources() []FeedSource {
	return append([]FeedSource(nil), s.sources...)
}

// Refresh 依次抓取每个来源；单个来源失败不影响其他来源，所有错误合并返回。
func (s *FeedService) Refresh(ctx context.Context) (FeedRefreshResult, error) {
	var (
		result FeedRefreshResult
		errs   []error
	)

	for _, source := range s.sources {
		items, err := s.fetch(ctx, source)
		if err != nil {
			log.Printf("[feed] %s source %s failed: %v", source.Kind, source.URL, err)
			errs = append(errs, fmt.Errorf("%s: %w", source.Kind, err))
			continue
		}

		if err := s.upsert(items); err != nil {
			errs = append(errs, fmt.Errorf("%s: store items: %w", source.Kind, err))
			continue
		}

		switch source.Kind {
		case db.FeedKindNews:
			result.News += len(items)
		case db.FeedKindMatch:
			result.Matches += len(items)
		}
		log.Printf("[feed] stored %d %s items from %s", len(items), source.Kind, source.URL)
	}

	return result, errors.Join(errs...)
}

// List 返回指定类型的条目，按发布时间倒序；kind 为空时返回全部。
func (s *FeedService) List(kind string, limit int) ([]db.FeedItem, error) {
	kind = strings.TrimSpace(kind)
	if kind != "" && kind != db.FeedKindNews && kind != db.FeedKindMatch {
		return nil, ErrUnknownFeedKind
	}
	limit = clampLimit(limit)

	query := s.db.Model(&db.FeedItem{})
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}

	var items []db.FeedItem
	if err := query.
		Order("published_at IS NULL").
		Order("published_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *FeedService) fetch(ctx context.Context, source FeedSource) ([]db.FeedItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", feedUserAgent)

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	switch source.Kind {
	case db.FeedKindNews:
		return s.parseNews(resp.Body, source.URL)
	case db.FeedKindMatch:
		return s.parseMatches(resp.Body, source.URL)
	default:
		return nil, ErrUnknownFeedKind
	}
}

// parseNews 将每个 article 元素解析为一条新闻。
func (s *FeedService) parseNews(r io.Reader, sourceURL string) ([]db.FeedItem, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	base, _ := url.Parse(sourceURL)
	fetchedAt := s.now()
	items := make([]db.FeedItem, 0)
	seen := make(map[string]bool)

	doc.Find("article").Each(func(_ int, sel *goquery.Selection) {
		title := cleanText(sel.Find("h1, h2, h3").First().Text())
		if title == "" {
			return
		}

		link := ""
		if href, ok := sel.Find("a[href]").First().Attr("href"); ok {
			link = resolveLink(base, href)
		}

		timeSel := sel.Find("time").First()
		dateText := cleanText(timeSel.Text())
		var publishedAt *time.Time
		if raw, ok := timeSel.Attr("datetime"); ok {
			publishedAt = parseFeedDate(raw)
			if dateText == "" {
				dateText = raw
			}
		}

		item := db.FeedItem{
			ExternalID:  feedExternalID(db.FeedKindNews, link, title),
			Kind:        db.FeedKindNews,
			Title:       title,
			Summary:     cleanText(sel.Find("p").First().Text()),
			Link:        link,
			DateText:    dateText,
			PublishedAt: publishedAt,
			SourceURL:   sourceURL,
			FetchedAt:   fetchedAt,
		}
		if seen[item.ExternalID] {
			return
		}
		seen[item.ExternalID] = true
		items = append(items, item)
	})

	return items, nil
}

// parseMatches 将赛程表中每一行（至少三列：日期、主队、客队、可选比分）解析为一条比赛。
func (s *FeedService) parseMatches(r io.Reader, sourceURL string) ([]db.FeedItem, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	fetchedAt := s.now()
	items := make([]db.FeedItem, 0)
	seen := make(map[string]bool)

	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}

		dateText := cleanText(cells.Eq(0).Text())
		home := cleanText(cells.Eq(1).Text())
		away := cleanText(cells.Eq(2).Text())
		if home == "" || away == "" {
			return
		}
		score := ""
		if cells.Length() > 3 {
			score = cleanText(cells.Eq(3).Text())
		}

		title := home + " – " + away
		item := db.FeedItem{
			ExternalID:  feedExternalID(db.FeedKindMatch, dateText, title),
			Kind:        db.FeedKindMatch,
			Title:       title,
			HomeTeam:    home,
			AwayTeam:    away,
			Result:      score,
			DateText:    dateText,
			PublishedAt: parseFeedDate(dateText),
			SourceURL:   sourceURL,
			FetchedAt:   fetchedAt,
		}
		if seen[item.ExternalID] {
			return
		}
		seen[item.ExternalID] = true
		items = append(items, item)
	})

	return items, nil
}

func (s *FeedService) upsert(items []db.FeedItem) error {
	if len(items) == 0 {
		return nil
	}
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "summary", "link", "home_team", "away_team", "result",
			"date_text", "published_at", "source_url", "fetched_at", "updated_at",
		}),
	}).Create(&items).Error
}

func feedExternalID(kind, primary, secondary string) string {
	sum := sha256.Sum256([]byte(kind + "|" + primary + "|" + secondary))
	return hex.EncodeToString(sum[:])
}

func cleanText(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

var feedDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02",
	"02.01.2006 15:04",
	"02.01.2006",
	"02.01.06",
}

// parseFeedDate 支持 ISO 与德式日期写法，无法识别时返回 nil。
func parseFeedDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range feedDateLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return &parsed
		}
	}
	return nil
}
