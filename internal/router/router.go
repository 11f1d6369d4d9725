package router

import (
	"github.com/clubsite/internal/auth"
	"github.com/clubsite/internal/config"
	"github.com/clubsite/internal/db"
	"github.com/clubsite/internal/handler"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

// SetupRouter 使用全局数据库连接与配置构建 Gin 引擎。
func SetupRouter(cfg config.AppConfig) *gin.Engine {
	return New(handler.NewAPI(db.DB, cfg), cfg.SessionSecret)
}

// New 配置 Gin 引擎和路由
func New(api *handler.API, sessionSecret string) *gin.Engine {
	r := gin.Default()

	// 配置会话中间件
	store := cookie.NewStore([]byte(sessionSecret))
	store.Options(sessions.Options{Path: "/", HttpOnly: true, MaxAge: 8 * 60 * 60})
	r.Use(sessions.Sessions("clubsite_session", store))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/content", api.GetContent)
		apiGroup.POST("/content", api.SaveContent)
		apiGroup.POST("/revalidate", api.Revalidate)

		apiGroup.GET("/pages", api.ListPages)
		apiGroup.GET("/pages/:slug", api.GetPage)

		apiGroup.GET("/feed", api.ListFeed)
		apiGroup.POST("/feed/refresh", auth.Middleware(api.Gate()), api.RefreshFeed)

		// 会话状态供页面导航读取，允许框架预取；其余编辑接口一律校验令牌
		apiGroup.GET("/edit/session", auth.Middleware(api.Gate(), auth.AllowPrefetch()), api.GetEditSession)

		// 编辑相关路由统一经过访问网关
		edit := apiGroup.Group("/edit")
		edit.Use(auth.Middleware(api.Gate()))
		{
			edit.POST("/commit", api.CommitChanges)
			edit.GET("/file", api.GetEditFile)
			edit.POST("/mode", api.SetEditMode)
			edit.GET("/history", api.ListPublishHistory)
		}
	}

	return r
}
