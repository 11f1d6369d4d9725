package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newPageTestService(t *testing.T, mutate func(*PageContent)) *PageService {
	t.Helper()
	path := filepath.Join(t.TempDir(), "site.json")
	content := NewContentService("", "", path, time.Minute)
	doc := DefaultPageContent()
	if mutate != nil {
		mutate(&doc)
	}
	if result := content.Save(context.Background(), doc); !result.Success {
		t.Fatalf("failed to seed content: %s", result.Message)
	}
	return NewPageService(content)
}

func TestGetBySlugRendersMarkdown(t *testing.T) {
	svc := newPageTestService(t, func(doc *PageContent) {
		doc.AboutClub.Body = "# Geschichte\nGegründet **1921**"
	})

	page, err := svc.GetBySlug(context.Background(), "home")
	if err != nil {
		t.Fatalf("GetBySlug returned error: %v", err)
	}
	if !strings.Contains(string(page.HTML), "<strong>1921</strong>") {
		t.Fatalf("expected rendered markdown, got %s", page.HTML)
	}
	if page.Summary != "Geschichte Gegründet 1921" {
		t.Fatalf("unexpected summary %q", page.Summary)
	}
	if page.Theme.PrimaryColor == "" {
		t.Fatal("expected theme to be attached")
	}
}

func TestGetBySlugSanitizesHTML(t *testing.T) {
	svc := newPageTestService(t, func(doc *PageContent) {
		doc.KontaktPage.Intro = "Hallo <script>alert(1)</script> [Mail](mailto:info@example.org)"
	})

	page, err := svc.GetBySlug(context.Background(), "Kontakt")
	if err != nil {
		t.Fatalf("GetBySlug returned error: %v", err)
	}
	if strings.Contains(string(page.HTML), "<script>") {
		t.Fatalf("expected script to be stripped, got %s", page.HTML)
	}
	if page.Slug != PageSlugKontakt {
		t.Fatalf("expected normalized slug, got %q", page.Slug)
	}
}

func TestGetBySlugUnknown(t *testing.T) {
	svc := newPageTestService(t, nil)
	if _, err := svc.GetBySlug(context.Background(), "impressum"); !errors.Is(err, ErrPageNotFound) {
		t.Fatalf("expected ErrPageNotFound, got %v", err)
	}
}

func TestSummarizeContentTruncates(t *testing.T) {
	long := strings.Repeat("Fußball ", 40)
	summary := summarizeContent(long)
	if !strings.HasSuffix(summary, "…") {
		t.Fatalf("expected ellipsis, got %q", summary)
	}
}

func TestGetBySlugRendersTablesAndBareLinks(t *testing.T) {
	svc := newPageTestService(t, func(doc *PageContent) {
		doc.PartnersPage.Intro = "Mehr unter https://club.example/partner\n\n| Stufe | Partner |\n| --- | --- |\n| Gold | Bäckerei Nord |"
	})

	page, err := svc.GetBySlug(context.Background(), "partner")
	if err != nil {
		t.Fatalf("GetBySlug returned error: %v", err)
	}
	html := string(page.HTML)
	if !strings.Contains(html, "<table>") || !strings.Contains(html, "<td>Bäckerei Nord</td>") {
		t.Fatalf("expected GFM table, got %s", html)
	}
	if !strings.Contains(html, `<a href="https://club.example/partner"`) {
		t.Fatalf("expected bare url to be linked, got %s", html)
	}
}
