package service

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var ErrPageNotFound = errors.New("page not found")

const (
	PageSlugHome    = "home"
	PageSlugKontakt = "kontakt"
	PageSlugPartner = "partner"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

// PageView 是营销页面对外输出的数据。
type PageView struct {
	Slug    string        `json:"slug"`
	Title   string        `json:"title"`
	Summary string        `json:"summary"`
	HTML    template.HTML `json:"html"`
	Data    interface{}   `json:"data"`
	Theme   Theme         `json:"theme"`
}

type homePageData struct {
	Hero      HeroSection      `json:"hero"`
	AboutClub AboutClubSection `json:"aboutClub"`
	Stats     []StatItem       `json:"stats"`
	Partners  []Partner        `json:"partners"`
}

type partnerPageData struct {
	Page     PartnersPage `json:"page"`
	Partners []Partner    `json:"partners"`
}

// PageService provides the marketing pages built from the content document.
type PageService struct {
	content *ContentService
}

// NewPageService returns a new PageService instance.
func NewPageService(content *ContentService) *PageService {
	return &PageService{content: content}
}

// Slugs 返回支持的页面标识。
func (s *PageService) Slugs() []string {
	return []string{PageSlugHome, PageSlugKontakt, PageSlugPartner}
}

// GetBySlug 组装指定页面，Markdown 字段渲染为经过清洗的 HTML。
func (s *PageService) GetBySlug(ctx context.Context, slug string) (*PageView, error) {
	doc := s.content.Load(ctx)

	var (
		view     PageView
		markdown string
	)
	switch strings.ToLower(strings.TrimSpace(slug)) {
	case PageSlugHome:
		view = PageView{
			Slug:  PageSlugHome,
			Title: doc.Hero.Title,
			Data: homePageData{
				Hero:      doc.Hero,
				AboutClub: doc.AboutClub,
				Stats:     doc.Stats,
				Partners:  doc.Partners,
			},
		}
		markdown = doc.AboutClub.Body
	case PageSlugKontakt:
		view = PageView{Slug: PageSlugKontakt, Title: doc.KontaktPage.Title, Data: doc.KontaktPage}
		markdown = doc.KontaktPage.Intro
	case PageSlugPartner:
		view = PageView{
			Slug:  PageSlugPartner,
			Title: doc.PartnersPage.Title,
			Data:  partnerPageData{Page: doc.PartnersPage, Partners: doc.Partners},
		}
		markdown = doc.PartnersPage.Intro
	default:
		return nil, ErrPageNotFound
	}

	rendered, err := renderMarkdown(markdown)
	if err != nil {
		return nil, err
	}
	view.HTML = rendered
	view.Summary = summarizeContent(markdown)
	view.Theme = doc.Theme
	return &view, nil
}

func renderMarkdown(source string) (template.HTML, error) {
	if strings.TrimSpace(source) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return template.HTML(sanitizer.SanitizeBytes(buf.Bytes())), nil
}

func summarizeContent(markdown string) string {
	plain := markdown
	replacer := strings.NewReplacer(
		"#", " ",
		"*", " ",
		"`", " ",
		"_", " ",
		">", " ",
		"[", " ",
		"]", " ",
		"(", " ",
		")", " ",
	)
	plain = replacer.Replace(plain)
	plain = strings.Join(strings.Fields(plain), " ")
	if plain == "" {
		return ""
	}

	const limit = 120
	if utf8.RuneCountInString(plain) <= limit {
		return plain
	}

	runes := []rune(plain)
	return string(runes[:limit]) + "…"
}
