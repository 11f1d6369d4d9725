package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/clubsite/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const newsFixture = `<html><body>
<main>
  <article>
    <h2><a href="/news/sieg-im-derby">Sieg im Derby</a></h2>
    <time datetime="2026-09-14">14.09.2026</time>
    <p>Die Erste gewinnt   mit 3:1 gegen den Nachbarn.</p>
  </article>
  <article>
    <h3>Neue Trainingszeiten</h3>
    <a href="https://other.example/trainings">Details</a>
    <time datetime="2026-09-20T18:00:00+02:00"></time>
    <p>Ab Oktober trainiert die Jugend dienstags.</p>
  </article>
  <article><p>Ohne Titel wird übersprungen</p></article>
</main>
</body></html>`

const matchesFixture = `<html><body>
<table>
  <tr><th>Datum</th><th>Heim</th><th>Gast</th><th>Ergebnis</th></tr>
  <tr><td>12.10.2026</td><td>SV Blau-Weiss</td><td>FC Rot</td><td>2:0</td></tr>
  <tr><td>19.10.2026</td><td>TSV Grün</td><td>SV Blau-Weiss</td><td></td></tr>
  <tr><td colspan="3">spielfrei</td></tr>
</table>
</body></html>`

func setupFeedTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

func htmlClient(pages map[string]string) fakeHTTPClient {
	return fakeHTTPClient{handler: func(r *http.Request) (*http.Response, error) {
		body, ok := pages[r.URL.String()]
		if !ok {
			return &http.Response{StatusCode: http.StatusNotFound, Body: io.NopCloser(strings.NewReader(""))}, nil
		}
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(body))}, nil
	}}
}

func TestParseNews(t *testing.T) {
	svc := NewFeedService(nil, "", "")
	items, err := svc.parseNews(strings.NewReader(newsFixture), "https://verband.example/club/news")
	if err != nil {
		t.Fatalf("parseNews failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 news items, got %d", len(items))
	}

	first := items[0]
	if first.Title != "Sieg im Derby" {
		t.Fatalf("unexpected title %q", first.Title)
	}
	if first.Link != "https://verband.example/news/sieg-im-derby" {
		t.Fatalf("expected resolved link, got %q", first.Link)
	}
	if first.Summary != "Die Erste gewinnt mit 3:1 gegen den Nachbarn." {
		t.Fatalf("expected collapsed whitespace, got %q", first.Summary)
	}
	if first.PublishedAt == nil || first.PublishedAt.Format("2006-01-02") != "2026-09-14" {
		t.Fatalf("unexpected published date %v", first.PublishedAt)
	}
	if first.DateText != "14.09.2026" {
		t.Fatalf("unexpected date text %q", first.DateText)
	}

	if items[1].Link != "https://other.example/trainings" || items[1].DateText == "" {
		t.Fatalf("unexpected second item %#v", items[1])
	}
}

func TestParseMatches(t *testing.T) {
	svc := NewFeedService(nil, "", "")
	items, err := svc.parseMatches(strings.NewReader(matchesFixture), "https://verband.example/club/spiele")
	if err != nil {
		t.Fatalf("parseMatches failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(items))
	}
	if items[0].HomeTeam != "SV Blau-Weiss" || items[0].AwayTeam != "FC Rot" || items[0].Result != "2:0" {
		t.Fatalf("unexpected first match %#v", items[0])
	}
	if items[1].Result != "" {
		t.Fatalf("expected open fixture without result, got %q", items[1].Result)
	}
	if items[0].PublishedAt == nil || items[0].PublishedAt.Day() != 12 {
		t.Fatalf("expected parsed german date, got %v", items[0].PublishedAt)
	}
}

func TestFeedRefreshIsIdempotent(t *testing.T) {
	gdb := setupFeedTestDB(t)
	svc := NewFeedService(gdb, "https://verband.example/news", "https://verband.example/spiele")
	svc.SetHTTPClient(htmlClient(map[string]string{
		"https://verband.example/news":   newsFixture,
		"https://verband.example/spiele": matchesFixture,
	}))

	for i := 0; i < 2; i++ {
		result, err := svc.Refresh(context.Background())
		if err != nil {
			t.Fatalf("Refresh returned error: %v", err)
		}
		if result.News != 2 || result.Matches != 2 {
			t.Fatalf("unexpected refresh result %#v", result)
		}
	}

	var count int64
	if err := gdb.Model(&db.FeedItem{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count items: %v", err)
	}
	if count != 4 {
		t.Fatalf("expected 4 stored items after two refreshes, got %d", count)
	}

	news, err := svc.List(db.FeedKindNews, 10)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(news) != 2 || news[0].Title != "Neue Trainingszeiten" {
		t.Fatalf("expected newest news first, got %#v", news)
	}
}

func TestFeedRefreshContinuesAfterSourceFailure(t *testing.T) {
	gdb := setupFeedTestDB(t)
	svc := NewFeedService(gdb, "https://verband.example/down", "https://verband.example/spiele")
	svc.now = func() time.Time { return time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC) }
	svc.SetHTTPClient(htmlClient(map[string]string{
		"https://verband.example/spiele": matchesFixture,
	}))

	result, err := svc.Refresh(context.Background())
	if err == nil {
		t.Fatal("expected joined error for failing source")
	}
	if result.Matches != 2 || result.News != 0 {
		t.Fatalf("expected matches to be stored, got %#v", result)
	}

	matches, err := svc.List(db.FeedKindMatch, 0)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
}

func TestFeedListRejectsUnknownKind(t *testing.T) {
	gdb := setupFeedTestDB(t)
	svc := NewFeedService(gdb, "", "")
	if _, err := svc.List("rumours", 5); err != ErrUnknownFeedKind {
		t.Fatalf("expected ErrUnknownFeedKind, got %v", err)
	}
}
