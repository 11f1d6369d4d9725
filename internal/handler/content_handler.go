package handler

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/clubsite/internal/service"
	"github.com/gin-gonic/gin"
)

const maxContentBodyBytes = 1 << 20

// GetContent 返回完整的页面文案文档。
func (a *API) GetContent(c *gin.Context) {
	doc, source := a.content.LoadWithSource(c.Request.Context())
	c.Header("X-Content-Source", string(source))
	c.JSON(http.StatusOK, doc)
}

// SaveContent 使用共享密钥保护，写入完整文档。
func (a *API) SaveContent(c *gin.Context) {
	if !secretMatches(a.writeSecret, bearerToken(c.Request)) {
		respondError(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxContentBodyBytes+1))
	if err != nil {
		respondError(c, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) > maxContentBodyBytes {
		respondError(c, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	var doc service.PageContent
	if err := json.Unmarshal(body, &doc); err != nil {
		respondError(c, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result := a.content.Save(c.Request.Context(), doc)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusInternalServerError
	}
	c.JSON(status, result)
}

// Revalidate 清空内容缓存，使下一次读取直接访问存储。
func (a *API) Revalidate(c *gin.Context) {
	provided := strings.TrimSpace(c.Query("secret"))
	if provided == "" {
		provided = strings.TrimSpace(c.GetHeader("X-Revalidate-Secret"))
	}
	if !secretMatches(a.revalidateSecret, provided) {
		respondError(c, http.StatusUnauthorized, "invalid revalidation secret")
		return
	}

	a.content.Invalidate()
	log.Printf("[content] cache revalidated")
	c.JSON(http.StatusOK, gin.H{"revalidated": true, "now": time.Now().UnixMilli()})
}
