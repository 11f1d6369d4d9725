package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ContentSource 表示一次 Load 的数据来源。
type ContentSource string

const (
	ContentSourceBackend  ContentSource = "backend"
	ContentSourceFile     ContentSource = "file"
	ContentSourceDefaults ContentSource = "defaults"
)

// SaveResult 描述一次保存的结果；保存不会向调用方返回 error。
type SaveResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

const maxContentBodyBytes = 1 << 20

// ContentService 读写页面文案文档，优先使用远端后端，其次本地文件，最后回退到默认文档。
// 并发保存之间没有冲突检测，后写入者覆盖先写入者。
type ContentService struct {
	http         httpDoer
	backendURL   string
	backendToken string
	filePath     string
	ttl          time.Duration
	now          func() time.Time

	mu       sync.Mutex
	cached   *PageContent
	source   ContentSource
	cachedAt time.Time

	// generation 每次 Invalidate 自增，读取期间发生变化的结果不写入缓存。
	generation uint64
}

// NewContentService 构造 ContentService。backendURL 为空时使用 filePath 指向的本地 JSON 文件。
func NewContentService(backendURL, backendToken, filePath string, ttl time.Duration) *ContentService {
	return &ContentService{
		http:         &http.Client{Timeout: 10 * time.Second},
		backendURL:   strings.TrimRight(strings.TrimSpace(backendURL), "/"),
		backendToken: strings.TrimSpace(backendToken),
		filePath:     strings.TrimSpace(filePath),
		ttl:          ttl,
		now:          time.Now,
	}
}

func (s *ContentService) SetHTTPClient(client httpDoer) {
	if client == nil {
		s.http = &http.Client{Timeout: 10 * time.Second}
		return
	}
	s.http = client
}

// Load 返回当前文档。后端不可达、返回非 2xx 或内容无法解析时回退到默认文档。
func (s *ContentService) Load(ctx context.Context) PageContent {
	doc, _ := s.LoadWithSource(ctx)
	return doc
}

// LoadWithSource is Load plus the source the document came from.
func (s *ContentService) LoadWithSource(ctx context.Context) (PageContent, ContentSource) {
	s.mu.Lock()
	if s.cached != nil && s.ttl > 0 && s.now().Sub(s.cachedAt) < s.ttl {
		doc, source := s.cached.clone(), s.source
		s.mu.Unlock()
		return doc, source
	}
	generation := s.generation
	s.mu.Unlock()

	var (
		doc    PageContent
		source ContentSource
		err    error
	)
	switch {
	case s.backendURL != "":
		doc, err = s.fetchRemote(ctx)
		source = ContentSourceBackend
	case s.filePath != "":
		doc, err = s.readFile()
		source = ContentSourceFile
	default:
		return DefaultPageContent(), ContentSourceDefaults
	}

	if err != nil {
		log.Printf("[content] load from %s failed, using defaults: %v", source, err)
		return DefaultPageContent(), ContentSourceDefaults
	}

	doc = withDefaultImages(doc)

	s.mu.Lock()
	if s.generation == generation {
		stored := doc.clone()
		s.cached = &stored
		s.source = source
		s.cachedAt = s.now()
	}
	s.mu.Unlock()

	return doc, source
}

// Save 将完整文档写入后端（携带 Bearer 凭证）或本地文件。
func (s *ContentService) Save(ctx context.Context, doc PageContent) SaveResult {
	var err error
	switch {
	case s.backendURL != "":
		err = s.postRemote(ctx, doc)
	case s.filePath != "":
		err = s.writeFile(doc)
	default:
		err = errors.New("no content backend configured")
	}

	if err != nil {
		log.Printf("[content] save failed: %v", err)
		return SaveResult{Success: false, Message: err.Error()}
	}

	s.Invalidate()
	return SaveResult{Success: true, Message: "content saved"}
}

// Invalidate 清空内存缓存，下次 Load 会重新读取。
func (s *ContentService) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = nil
	s.source = ""
	s.cachedAt = time.Time{}
	s.generation++
}

func (s *ContentService) fetchRemote(ctx context.Context) (PageContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.backendURL+"/content", nil)
	if err != nil {
		return PageContent{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client().Do(req)
	if err != nil {
		return PageContent{}, fmt.Errorf("fetch content: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return PageContent{}, fmt.Errorf("backend returned status %d", resp.StatusCode)
	}

	var doc PageContent
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxContentBodyBytes)).Decode(&doc); err != nil {
		return PageContent{}, fmt.Errorf("decode content: %w", err)
	}
	return doc, nil
}

func (s *ContentService) postRemote(ctx context.Context, doc PageContent) error {
	if s.backendToken == "" {
		return errors.New("backend token is not configured")
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode content: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.backendURL+"/content", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.backendToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client().Do(req)
	if err != nil {
		return fmt.Errorf("post content: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxContentBodyBytes))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("backend returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *ContentService) readFile() (PageContent, error) {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return PageContent{}, fmt.Errorf("read content file: %w", err)
	}
	var doc PageContent
	if err := json.Unmarshal(data, &doc); err != nil {
		return PageContent{}, fmt.Errorf("decode content file: %w", err)
	}
	return doc, nil
}

func (s *ContentService) writeFile(doc PageContent) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode content: %w", err)
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create content dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".content-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.filePath); err != nil {
		return fmt.Errorf("replace content file: %w", err)
	}
	return nil
}

func (s *ContentService) client() httpDoer {
	if s.http == nil {
		return http.DefaultClient
	}
	return s.http
}
