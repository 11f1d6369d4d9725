package handler

import (
	"errors"
	"net/http"

	"github.com/clubsite/internal/service"
	"github.com/gin-gonic/gin"
)

// ListPages returns the available marketing page slugs.
func (a *API) ListPages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pages": a.pages.Slugs()})
}

// GetPage 返回营销页面数据及渲染后的 HTML。
func (a *API) GetPage(c *gin.Context) {
	page, err := a.pages.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, service.ErrPageNotFound) {
			respondError(c, http.StatusNotFound, "page not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to render page")
		return
	}
	c.JSON(http.StatusOK, page)
}
