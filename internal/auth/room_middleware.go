package auth

import (
	"net/http"

	"bkpconnect/backend/internal/roomlog"

	"github.com/gin-gonic/gin"
)

// RoomMemberMiddleware checks that the user owns a seat in the :roomKey chat room.
// It must be used AFTER the standard AuthMiddleware.
func RoomMemberMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := UserID(c)
		if userID == "" {
			// This should not happen if AuthMiddleware is used before it
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated", "code": "UNAUTHORIZED"})
			return
		}

		key := c.Param("roomKey")
		if _, _, ok := roomlog.Participants(key); !ok {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "malformed room key", "code": "INVALID_ROOM_KEY"})
			return
		}
		if !roomlog.IsParticipant(key, userID) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not a participant of this room", "code": "FORBIDDEN"})
			return
		}

		c.Next()
	}
}
