package handler

import (
	"bkpconnect/backend/internal/auth"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the REST, websocket and SSE endpoints on router.
func (h *Handler) RegisterRoutes(router *gin.Engine, jwtSecret string) {
	// Auth routes
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/signup", h.Signup)
		authRoutes.POST("/login", h.Login)
	}

	// Public profile, the token only adds relationship flags
	router.GET("/api/userprofile", auth.OptionalAuthMiddleware(jwtSecret), h.GetUserProfile)

	// Websocket, authenticated by query token
	router.GET("/api/ws", auth.QueryTokenMiddleware(jwtSecret), h.ServeWS)

	api := router.Group("/api")
	api.Use(auth.AuthMiddleware(jwtSecret))
	{
		// Posts and comments
		api.GET("/posts", h.GetFeed)
		api.POST("/posts", h.CreatePost)
		api.GET("/posts/:id", h.GetPost)
		api.GET("/posts/:id/comments", h.GetComments)
		api.POST("/posts/:id/comments", h.AddComment)
		api.GET("/posts/:id/events", h.StreamPostEvents)

		// Likes
		api.POST("/like", h.LikePost)
		api.DELETE("/like", h.UnlikePost)
		api.GET("/like", h.GetLikedPosts)
		api.GET("/check", h.CheckLike)

		// Suggestions
		api.POST("/sentreq", h.RegisterSuggestion)
		api.GET("/sentreq", h.GetSuggestions)
		api.POST("/delsentreq", h.DismissSuggestion)
		api.GET("/user/delsentreq", h.GetDismissed)

		// Friend requests and friends
		api.POST("/incomingreq", h.SendRequest)
		api.GET("/incomingreq", h.GetIncoming)
		api.DELETE("/incomingreq/:userId", h.DeclineRequest)
		api.POST("/friend", h.AcceptRequest)
		api.GET("/friend", h.GetFriends)
		api.POST("/friend/reconcile", h.ReconcileFriends)

		// Profile
		api.POST("/user", h.UpdateAvatar)
		api.GET("/userprofile/posted", h.GetPostedByUser)

		// Chat
		api.POST("/chat/upload", h.UploadAttachment) // Must be before /:roomKey
		api.GET("/chat/with/:userId", h.GetRoomWith)
		room := api.Group("/chat/:roomKey", auth.RoomMemberMiddleware())
		{
			room.GET("", h.GetChat)
			room.POST("", h.SendMessage)
			room.POST("/upload", h.UploadAndSend)
		}
		api.GET("/rooms/:roomKey/events", auth.RoomMemberMiddleware(), h.StreamRoomEvents)
	}
}
