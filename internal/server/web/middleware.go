package web

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/voicetranslator/internal/common"
	"github.com/dmitrijs2005/voicetranslator/internal/logging"
	"github.com/dmitrijs2005/voicetranslator/internal/server/auth"
	"github.com/gin-gonic/gin"
)

const sessionKey = "session"

// flashTTL bounds how long an unread flash survives.
const flashTTL = 60

type flash struct {
	Category string
	Message  string
}

func requestLogger(l logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if c.Request.URL.Path == "/health" {
			return
		}
		l.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start))
	}
}

// sessionMiddleware attaches the session carried by the cookie, if any.
// Cookies that are invalid, expired or name a missing account are cleared.
func (s *Server) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(common.SessionCookieName)
		if err != nil || token == "" {
			c.Next()
			return
		}

		sess, err := s.accounts.ResolveSession(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, common.ErrorUnauthorized) {
				s.logger.Error(c.Request.Context(), "resolve session", "error", err)
				s.page(c, http.StatusInternalServerError, "error.html", "Error", nil)
				c.Abort()
				return
			}
			clearCookie(c, common.SessionCookieName)
			c.Next()
			return
		}

		c.Set(sessionKey, sess)
		c.Next()
	}
}

func requireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentSession(c) == nil {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

func currentSession(c *gin.Context) *auth.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*auth.Session)
	return sess
}

func setSessionCookie(c *gin.Context, token string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(common.SessionCookieName, token, int(ttl.Seconds()), "/", "", false, true)
}

func clearCookie(c *gin.Context, name string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, "", -1, "/", "", false, true)
}

func setFlash(c *gin.Context, category, message string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(common.FlashCookieName, category+"|"+message, flashTTL, "/", "", false, true)
}

// popFlash reads and clears the pending flash. gin escapes cookie values
// on write and unescapes them on read.
func popFlash(c *gin.Context) *flash {
	raw, err := c.Cookie(common.FlashCookieName)
	if err != nil || raw == "" {
		return nil
	}
	clearCookie(c, common.FlashCookieName)

	category, message, ok := strings.Cut(raw, "|")
	if !ok {
		return &flash{Category: "info", Message: raw}
	}
	return &flash{Category: category, Message: message}
}
