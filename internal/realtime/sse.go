package realtime

import (
	"io"
	"log"
	"net/http"
	"time"

	"bkpconnect/backend/internal/hub"

	"github.com/gin-gonic/gin"
)

const sseKeepAlive = 30 * time.Second

// StreamSSE subscribes an SSE stream of userID to topic and forwards every event until
// the request ends.
func (s *Server) StreamSSE(c *gin.Context, userID, topic string) {
	client, err := hub.NewClient(userID, hub.DefaultBuffer)
	if err != nil {
		log.Printf("sse: failed to create client: %v", err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	s.hub.Subscribe(topic, client)
	defer s.hub.Disconnect(client)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-client.Messages():
			if !ok {
				return false
			}
			c.SSEvent("message", string(msg))
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", "")
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
