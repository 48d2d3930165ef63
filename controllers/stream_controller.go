package controllers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/renewloop/ewaste-repair-api/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS is enforced by the router middleware; the browser origin check
	// here would reject the dev frontend.
	CheckOrigin: func(r *http.Request) bool { return true },
}

var streamFeed *realtime.Feed

// SetStreamFeed wires the change feed consumed by Stream
func SetStreamFeed(feed *realtime.Feed) {
	streamFeed = feed
}

// Stream handles GET /api/v1/stream - forwards change feed events to the
// client over a WebSocket as JSON frames. The subscription is explicitly
// closed when the connection drops so listeners never leak.
func Stream(c *gin.Context) {
	if _, ok := currentProfile(c); !ok {
		return
	}

	if streamFeed == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "STREAM_UNAVAILABLE",
				"message": "Change feed is not running",
			},
		})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade stream connection: %v", err)
		return
	}

	sub := streamFeed.Subscribe()
	defer sub.Close()
	defer conn.Close()

	// Reader goroutine: we never expect client frames, but reading is what
	// surfaces the close notification.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-sub.C:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				log.Printf("Failed to write stream event: %v", err)
				return
			}
		case <-done:
			return
		}
	}
}
