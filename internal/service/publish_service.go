package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"
)

const (
	// ContentPathPrefix 为允许写入的仓库目录前缀。
	ContentPathPrefix = "content/"
	branchPrefix      = "content-edit-"
)

var (
	ErrPublishNotConfigured = errors.New("github publishing is not configured")
	ErrNoChanges            = errors.New("at least one change is required")
	ErrInvalidContentPath   = errors.New("filePath must start with content/ and must not contain ..")
	ErrContentFileNotFound  = errors.New("content file not found")
)

// ContentChange 是一次保存中单个文件的新内容。
type ContentChange struct {
	FilePath string `json:"filePath"`
	Content  string `json:"content"`
}

// PublishRequest 描述一次提交批次。
type PublishRequest struct {
	Changes []ContentChange
	Editor  string
}

// PublishResult 为创建的分支与 PR 信息。
type PublishResult struct {
	Branch   string
	BaseRef  string
	PRNumber int
	PRURL    string
	Files    int
}

// ValidateContentPath 校验单个路径：必须以 content/ 开头且不含 ..。
func ValidateContentPath(path string) error {
	if !strings.HasPrefix(path, ContentPathPrefix) || strings.Contains(path, "..") {
		return ErrInvalidContentPath
	}
	return nil
}

// ValidateChanges 校验整个批次。
func ValidateChanges(changes []ContentChange) error {
	if len(changes) == 0 {
		return ErrNoChanges
	}
	for _, change := range changes {
		if err := ValidateContentPath(change.FilePath); err != nil {
			return fmt.Errorf("%w: %q", err, change.FilePath)
		}
	}
	return nil
}

// PublishService 将内容改动写入 GitHub 仓库的新分支并发起 PR。
//
// 每个文件单独调用一次 contents API，不是原子提交；中途失败时分支保留已写入的部分，不做回滚。
type PublishService struct {
	client *github.Client
	owner  string
	repo   string
	token  string
	now    func() time.Time
}

// NewPublishService 构造 PublishService。token/owner/repo 任一为空时 Publish 返回 ErrPublishNotConfigured。
func NewPublishService(token, owner, repo string) *PublishService {
	token = strings.TrimSpace(token)
	httpClient := oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	return &PublishService{
		client: github.NewClient(httpClient),
		owner:  strings.TrimSpace(owner),
		repo:   strings.TrimSpace(repo),
		token:  token,
		now:    time.Now,
	}
}

// SetBaseURL 指向 GitHub Enterprise 或测试服务器。
func (s *PublishService) SetBaseURL(base string) error {
	base = strings.TrimSpace(base)
	if base == "" {
		return nil
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("parse github api url: %w", err)
	}
	s.client.BaseURL = parsed
	return nil
}

// Configured 表示是否具备访问仓库所需的配置。
func (s *PublishService) Configured() bool {
	return s.token != "" && s.owner != "" && s.repo != ""
}

// Publish creates a branch from the default branch head, writes every change
// onto it and opens a pull request back into the default branch.
func (s *PublishService) Publish(ctx context.Context, req PublishRequest) (PublishResult, error) {
	if !s.Configured() {
		return PublishResult{}, ErrPublishNotConfigured
	}
	if err := ValidateChanges(req.Changes); err != nil {
		return PublishResult{}, err
	}

	base, err := s.defaultBranch(ctx)
	if err != nil {
		return PublishResult{}, err
	}

	headRef, _, err := s.client.Git.GetRef(ctx, s.owner, s.repo, "heads/"+base)
	if err != nil {
		return PublishResult{}, fmt.Errorf("read head of %s: %w", base, err)
	}
	headSHA := headRef.GetObject().GetSHA()

	branch := fmt.Sprintf("%s%d", branchPrefix, s.now().UnixMilli())
	if _, _, err := s.client.Git.CreateRef(ctx, s.owner, s.repo, &github.Reference{
		Ref:    github.String("refs/heads/" + branch),
		Object: &github.GitObject{SHA: github.String(headSHA)},
	}); err != nil {
		return PublishResult{}, fmt.Errorf("create branch %s: %w", branch, err)
	}
	log.Printf("[publish] created branch %s from %s@%s", branch, base, shortSHA(headSHA))

	result := PublishResult{Branch: branch, BaseRef: base}
	for _, change := range req.Changes {
		if err := s.writeFile(ctx, branch, change, req.Editor); err != nil {
			return result, err
		}
		result.Files++
		log.Printf("[publish] wrote %s on %s", change.FilePath, branch)
	}

	pr, _, err := s.client.PullRequests.Create(ctx, s.owner, s.repo, &github.NewPullRequest{
		Title: github.String(pullRequestTitle(req)),
		Head:  github.String(branch),
		Base:  github.String(base),
		Body:  github.String(pullRequestBody(req)),
	})
	if err != nil {
		return result, fmt.Errorf("open pull request: %w", err)
	}

	result.PRNumber = pr.GetNumber()
	result.PRURL = pr.GetHTMLURL()
	log.Printf("[publish] opened PR #%d %s", result.PRNumber, result.PRURL)
	return result, nil
}

// ReadFile 读取默认分支上的文件内容。
func (s *PublishService) ReadFile(ctx context.Context, path string) (string, error) {
	if !s.Configured() {
		return "", ErrPublishNotConfigured
	}
	if err := ValidateContentPath(path); err != nil {
		return "", err
	}

	file, _, resp, err := s.client.Repositories.GetContents(ctx, s.owner, s.repo, path, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return "", ErrContentFileNotFound
		}
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if file == nil {
		return "", ErrContentFileNotFound
	}

	// contents API 对超过 1 MB 的文件不返回正文（encoding 为 none），改读 blob。
	if file.GetEncoding() == "none" {
		raw, _, err := s.client.Git.GetBlobRaw(ctx, s.owner, s.repo, file.GetSHA())
		if err != nil {
			return "", fmt.Errorf("read blob for %s: %w", path, err)
		}
		return string(raw), nil
	}

	content, err := file.GetContent()
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}
	return content, nil
}

func (s *PublishService) defaultBranch(ctx context.Context) (string, error) {
	repo, _, err := s.client.Repositories.Get(ctx, s.owner, s.repo)
	if err != nil {
		return "", fmt.Errorf("load repository %s/%s: %w", s.owner, s.repo, err)
	}
	if branch := repo.GetDefaultBranch(); branch != "" {
		return branch, nil
	}
	return "main", nil
}

// writeFile 调用 contents API 的 create-or-update；文件已存在时需带上当前 SHA。
func (s *PublishService) writeFile(ctx context.Context, branch string, change ContentChange, editor string) error {
	existing, _, resp, err := s.client.Repositories.GetContents(ctx, s.owner, s.repo, change.FilePath, &github.RepositoryContentGetOptions{Ref: branch})
	var sha *string
	switch {
	case err == nil && existing != nil:
		sha = existing.SHA
	case err != nil && (resp == nil || resp.StatusCode != http.StatusNotFound):
		return fmt.Errorf("look up %s: %w", change.FilePath, err)
	}

	message := "Update " + change.FilePath
	if editor != "" {
		message += " (via site editor, " + editor + ")"
	}
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: []byte(change.Content),
		Branch:  github.String(branch),
		SHA:     sha,
	}

	if sha == nil {
		_, _, err = s.client.Repositories.CreateFile(ctx, s.owner, s.repo, change.FilePath, opts)
	} else {
		_, _, err = s.client.Repositories.UpdateFile(ctx, s.owner, s.repo, change.FilePath, opts)
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", change.FilePath, err)
	}
	return nil
}

func pullRequestTitle(req PublishRequest) string {
	if len(req.Changes) == 1 {
		return "Content update: " + req.Changes[0].FilePath
	}
	return fmt.Sprintf("Content update: %d files", len(req.Changes))
}

func pullRequestBody(req PublishRequest) string {
	var b strings.Builder
	b.WriteString("Changes submitted from the site editor")
	if req.Editor != "" {
		b.WriteString(" by ")
		b.WriteString(req.Editor)
	}
	b.WriteString(":\n\n")
	for _, change := range req.Changes {
		b.WriteString("- `")
		b.WriteString(change.FilePath)
		b.WriteString("`\n")
	}
	return b.String()
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
