package api

import "github.com/gin-gonic/gin"

// RegisterRoutes 注册所有路由。除登录注册外都需要令牌。
func RegisterRoutes(router *gin.Engine, a *API) {
	auth := AuthMiddleware(a.tokens)

	v1 := router.Group("/api/v1")
	{
		public := v1.Group("/auth")
		public.POST("/signup", a.SignUpHandler)
		public.POST("/login", a.LoginHandler)
		public.POST("/local", a.LocalLoginHandler)
		v1.POST("/auth/logout", auth, a.LogoutHandler)

		sessions := v1.Group("/sessions", auth)
		{
			sessions.GET("", a.ListSessionsHandler)
			sessions.POST("", a.CreateSessionHandler)
			sessions.POST("/:id/select", a.SelectSessionHandler)
			sessions.PATCH("/:id", a.RenameSessionHandler)
			sessions.DELETE("/:id", a.DeleteSessionHandler)
			sessions.POST("/:id/turns", a.SubmitTurnHandler)
			sessions.POST("/:id/cancel", a.CancelTurnHandler)
		}

		memory := v1.Group("/memory", auth)
		{
			memory.GET("", a.ListMemoryHandler)
			memory.DELETE("", a.ClearMemoryHandler)
			memory.DELETE("/:id", a.DeleteMemoryHandler)
		}

		prefs := v1.Group("/preferences", auth)
		{
			prefs.GET("", a.GetPreferencesHandler)
			prefs.PUT("", a.UpdatePreferencesHandler)
		}

		v1.POST("/avatar", auth, a.AvatarHandler)
		v1.POST("/speech", auth, a.SpeechHandler)
		v1.POST("/scripts", auth, a.ScriptHandler)
	}

	router.GET("/ws/chat", auth, a.ChatSocketHandler)
	router.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
}
