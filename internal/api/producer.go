package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jmelendez07/MathG/internal/activitylog"
	"github.com/jmelendez07/MathG/internal/event"
)

type ingestRequest struct {
	Action     string         `json:"action" binding:"required"`
	UserID     *int64         `json:"user_id"`
	StatusCode *int           `json:"status_code"`
	Metadata   map[string]any `json:"metadata"`
}

// RegisterProducer mounts the ingest boundary: out-of-process collaborators
// (the game client tier) POST actions here; in-process code calls the
// activity logger directly.
func RegisterProducer(r *gin.Engine, logger *activitylog.Logger) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	r.POST("/activity", func(c *gin.Context) {
		var req ingestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		outcome := event.UnknownOutcome()
		if req.StatusCode != nil {
			outcome = event.KnownOutcome(*req.StatusCode)
		}

		logger.Log(requestInfo(c), event.Input{
			Action:   req.Action,
			UserID:   req.UserID,
			Outcome:  outcome,
			Metadata: req.Metadata,
		})

		// Queued, not delivered: transport happens out of band.
		c.JSON(http.StatusAccepted, gin.H{"message": "Activity queued successfully"})
	})
}

// RequestLogger logs every handled request as an activity event after the
// response is written. resolveUser extracts the acting principal from the
// request context; return nil for guests.
func RequestLogger(al *activitylog.Logger, resolveUser func(*gin.Context) *int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		info := requestInfo(c)

		c.Next()

		var userID *int64
		if resolveUser != nil {
			userID = resolveUser(c)
		}
		action := c.Request.Method + " " + info.Route
		al.Log(info, event.Input{
			Action:    action,
			UserID:    userID,
			Outcome:   event.KnownOutcome(c.Writer.Status()),
			StartedAt: start,
		})
	}
}

func requestInfo(c *gin.Context) event.RequestInfo {
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	return event.RequestInfo{
		Route:          route,
		Path:           c.Request.URL.Path,
		FullURL:        fullURL(c.Request),
		Method:         c.Request.Method,
		IP:             c.ClientIP(),
		UserAgent:      c.Request.UserAgent(),
		Referer:        c.Request.Referer(),
		ForwardedProto: c.GetHeader("X-Forwarded-Proto"),
	}
}

func fullURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	uri := r.RequestURI
	if uri == "" {
		uri = r.URL.RequestURI()
	}
	return scheme + "://" + r.Host + uri
}
