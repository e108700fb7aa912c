package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/jmelendez07/MathG/internal/auth"
	"github.com/jmelendez07/MathG/internal/store"
	"github.com/jmelendez07/MathG/internal/stream"
)

// LogReader is the read-only query surface over persisted activity.
type LogReader interface {
	Recent(ctx context.Context, n int) ([]store.Record, error)
	ForUser(ctx context.Context, userID int64) ([]store.Record, error)
	Count(ctx context.Context) (int64, error)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboards live on other origins behind the proxy; the bearer token
	// is the access control, not the Origin header.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RegisterDashboard mounts the admin-only query and live-stream surface on
// the consumer process.
func RegisterDashboard(r *gin.Engine, logs LogReader, hub *stream.Hub, verifier *auth.Verifier, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	admin := r.Group("/", requireAdmin(verifier))

	admin.GET("/logs", func(c *gin.Context) {
		limit := 10
		if raw := c.Query("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil {
				limit = n
			}
		}
		records, err := logs.Recent(c.Request.Context(), limit)
		if err != nil {
			logger.Error("failed to list recent logs", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list logs"})
			return
		}
		count, err := logs.Count(c.Request.Context())
		if err != nil {
			logger.Error("failed to count logs", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count logs"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"logs": emptyIfNil(records), "logs_count": count})
	})

	admin.GET("/logs/user/:id", func(c *gin.Context) {
		userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
			return
		}
		records, err := logs.ForUser(c.Request.Context(), userID)
		if err != nil {
			logger.Error("failed to list user logs", "user_id", userID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list logs"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "logs": emptyIfNil(records)})
	})

	admin.GET("/ws/logs", func(c *gin.Context) {
		serveStream(c, hub, stream.GlobalChannel, logger)
	})

	admin.GET("/ws/logs/:id", func(c *gin.Context) {
		userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
			return
		}
		serveStream(c, hub, stream.UserChannel(userID), logger)
	})
}

// requireAdmin gates the surface at join time: only administrators may read
// the feed or subscribe to either stream. Browsers cannot set headers on
// websocket dials, so the token is also accepted as a query parameter.
func requireAdmin(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing credentials"})
			return
		}
		if _, err := verifier.RequireAdmin(token); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Administrative role required"})
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}

func serveStream(c *gin.Context, hub *stream.Hub, channel string, logger *slog.Logger) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", "channel", channel, "error", err)
		return
	}

	sub := hub.Subscribe(channel, 32)
	defer sub.Close()
	defer conn.Close()

	// Detect client disconnects; inbound payloads are ignored.
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
		case frame, ok := <-sub.C:
			if !ok {
				return
			}
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

func emptyIfNil(records []store.Record) []store.Record {
	if records == nil {
		return []store.Record{}
	}
	return records
}
