package handler

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/clubsite/internal/service"
	"github.com/gin-gonic/gin"
)

// ListFeed 返回已抓取的新闻或比赛条目。
func (a *API) ListFeed(c *gin.Context) {
	kind := strings.TrimSpace(c.Query("kind"))
	limit := parsePositiveInt(c.DefaultQuery("limit", "20"), 20)

	items, err := a.feed.List(kind, limit)
	if err != nil {
		if errors.Is(err, service.ErrUnknownFeedKind) {
			respondError(c, http.StatusBadRequest, "kind must be news or match")
			return
		}
		log.Printf("[feed] list failed: %v", err)
		respondError(c, http.StatusInternalServerError, "failed to load feed")
		return
	}

	payload := make([]gin.H, 0, len(items))
	for _, item := range items {
		entry := gin.H{
			"id":       item.ExternalID,
			"kind":     item.Kind,
			"title":    item.Title,
			"summary":  item.Summary,
			"link":     item.Link,
			"dateText": item.DateText,
		}
		if item.PublishedAt != nil {
			entry["publishedAt"] = item.PublishedAt
		}
		if item.HomeTeam != "" {
			entry["homeTeam"] = item.HomeTeam
			entry["awayTeam"] = item.AwayTeam
			entry["result"] = item.Result
		}
		payload = append(payload, entry)
	}

	c.JSON(http.StatusOK, gin.H{"items": payload})
}

// RefreshFeed 立即抓取所有来源。
func (a *API) RefreshFeed(c *gin.Context) {
	result, err := a.feed.Refresh(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "some feed sources failed",
			"news":    result.News,
			"matches": result.Matches,
		})
		return
	}
	c.JSON(http.StatusOK, result)
}
