package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/clubsite/internal/auth"
	"github.com/clubsite/internal/service"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	// EditCookieName 为编辑模式开关 Cookie，与身份令牌相互独立。
	EditCookieName = "edit"
	// MaxCommitBodyBytes 为提交接口允许的最大请求体。
	MaxCommitBodyBytes = 1_000_000

	editCookieMaxAge   = 8 * 60 * 60
	sessionEditorKey   = "editor"
	sessionEditModeKey = "edit_mode"
)

type commitPayload struct {
	Changes []service.ContentChange `json:"changes"`
}

type editModePayload struct {
	Enabled *bool `json:"enabled"`
}

// CommitChanges 校验并把一批内容改动发布为 GitHub PR。
//
// 校验顺序：访问令牌、编辑 Cookie、调用方地址限流、请求体大小、批次结构。
// 任一步失败即返回 4xx，不会调用发布适配器。
func (a *API) CommitChanges(c *gin.Context) {
	// 路由组上已有网关中间件，这里仍按接口自身的约定再校验一次。
	identity, err := a.gate.Authenticate(c.Request)
	if err != nil {
		log.Printf("[edit] commit rejected: %v", err)
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	auth.WithIdentity(c, identity)

	if value, err := c.Cookie(EditCookieName); err != nil || value != "1" {
		respondError(c, http.StatusUnauthorized, "edit mode is not enabled")
		return
	}

	address := clientAddress(c.Request)
	if !a.limiter.Allow(address) {
		log.Printf("[edit] rate limit exceeded for %s", address)
		respondError(c, http.StatusTooManyRequests, "too many requests, try again in a minute")
		return
	}

	if c.Request.ContentLength > MaxCommitBodyBytes {
		respondError(c, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, MaxCommitBodyBytes+1))
	if err != nil {
		respondError(c, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) > MaxCommitBodyBytes {
		respondError(c, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	var payload commitPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		respondError(c, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := service.ValidateChanges(payload.Changes); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := a.publisher.Publish(c.Request.Context(), service.PublishRequest{
		Changes: payload.Changes,
		Editor:  identity.Email,
	})
	a.recordPublish(identity.Email, address, payload.Changes, result, err)
	if err != nil {
		log.Printf("[edit] publish failed for %s: %v", identity.Email, err)
		respondError(c, http.StatusInternalServerError, "failed to publish changes")
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "prUrl": result.PRURL})
}

func (a *API) recordPublish(editor, address string, changes []service.ContentChange, result service.PublishResult, publishErr error) {
	if a.publishLog == nil || a.db == nil {
		return
	}
	if _, err := a.publishLog.Record(service.PublishLogEntry{
		Editor:   editor,
		ClientIP: address,
		Changes:  changes,
		Result:   result,
		Err:      publishErr,
	}); err != nil {
		log.Printf("[edit] failed to record publish attempt: %v", err)
	}
}

// GetEditFile 返回仓库默认分支上指定文件的内容。
func (a *API) GetEditFile(c *gin.Context) {
	path := strings.TrimSpace(c.Query("filePath"))
	if err := service.ValidateContentPath(path); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	content, err := a.publisher.ReadFile(c.Request.Context(), path)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrContentFileNotFound):
			respondError(c, http.StatusNotFound, "file not found")
		case errors.Is(err, service.ErrInvalidContentPath):
			respondError(c, http.StatusBadRequest, err.Error())
		default:
			log.Printf("[edit] read %s failed: %v", path, err)
			respondError(c, http.StatusInternalServerError, "failed to read file")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"content": content})
}

// SetEditMode 打开或关闭编辑模式。
func (a *API) SetEditMode(c *gin.Context) {
	var payload editModePayload
	if !bindJSON(c, &payload, "invalid JSON body") {
		return
	}
	if payload.Enabled == nil {
		respondError(c, http.StatusBadRequest, "enabled is required")
		return
	}

	session := sessions.Default(c)
	if *payload.Enabled {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(EditCookieName, "1", editCookieMaxAge, "/", "", a.secureCookies, false)
		if identity, ok := auth.IdentityFrom(c); ok {
			session.Set(sessionEditorKey, identity.Email)
		}
		session.Set(sessionEditModeKey, true)
	} else {
		c.SetCookie(EditCookieName, "", -1, "/", "", a.secureCookies, false)
		session.Delete(sessionEditModeKey)
	}
	if err := session.Save(); err != nil {
		log.Printf("[edit] failed to save session: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{"editMode": *payload.Enabled})
}

// GetEditSession 返回当前编辑者与编辑模式状态。
func (a *API) GetEditSession(c *gin.Context) {
	email := ""
	if identity, ok := auth.IdentityFrom(c); ok {
		email = identity.Email
	} else if stored, ok := sessions.Default(c).Get(sessionEditorKey).(string); ok {
		email = stored
	}

	value, _ := c.Cookie(EditCookieName)
	c.JSON(http.StatusOK, gin.H{
		"email":    email,
		"editMode": value == "1",
	})
}

// ListPublishHistory 返回最近的提交记录。
func (a *API) ListPublishHistory(c *gin.Context) {
	limit := parsePositiveInt(c.DefaultQuery("limit", "20"), 20)
	records, err := a.publishLog.Recent(limit)
	if err != nil {
		log.Printf("[edit] load history failed: %v", err)
		respondError(c, http.StatusInternalServerError, "failed to load history")
		return
	}

	items := make([]gin.H, 0, len(records))
	for _, record := range records {
		items = append(items, gin.H{
			"requestId": record.RequestID,
			"editor":    record.Editor,
			"branch":    record.Branch,
			"prUrl":     record.PRURL,
			"fileCount": record.FileCount,
			"status":    record.Status,
			"error":     record.Error,
			"createdAt": record.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
