package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/tl-its-umich-edu/m-voice/internal/httperror"
	"github.com/tl-its-umich-edu/m-voice/internal/secrets"
)

// CronAuthFailed: the body of a rejected /cron request.
const CronAuthFailed = "Authentication failed."

const authUserKey = "auth_user"

// BasicAuth: checks the Authorization header against the stored credentials.
func BasicAuth(provider secrets.Provider, logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *gin.Context) {
		creds, err := provider.Credentials(c.Request.Context())
		if err != nil {
			logger.Error("credentials_lookup_failed", "path", c.Request.URL.Path, "err", err)
			status, payload := httperror.Response(err, GetRequestID(c))
			c.AbortWithStatusJSON(status, payload)
			return
		}

		user, pass, ok := c.Request.BasicAuth()
		if !ok || !secrets.Verify(creds, user, pass) {
			details := map[string]any{"path": c.Request.URL.Path}
			status, payload := httperror.Response(httperror.NewUnauthorized(details), GetRequestID(c))
			c.AbortWithStatusJSON(status, payload)
			return
		}

		c.Set(authUserKey, user)
		c.Next()
	}
}

type cronCredentials struct {
	User string `json:"user"`
	Pass string `json:"pass"`
}

// CronAuth: accepts Basic Auth or the older {"user","pass"} JSON body.
func CronAuth(provider secrets.Provider, logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *gin.Context) {
		creds, err := provider.Credentials(c.Request.Context())
		if err != nil {
			logger.Error("credentials_lookup_failed", "path", c.Request.URL.Path, "err", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, CronAuthFailed)
			return
		}

		user, pass, ok := c.Request.BasicAuth()
		if !ok {
			var body cronCredentials
			if c.Request.ContentLength != 0 && c.ShouldBindBodyWith(&body, binding.JSON) == nil {
				user, pass, ok = body.User, body.Pass, true
			}
		}
		if !ok || !secrets.Verify(creds, user, pass) {
			logger.Warn("cron_auth_rejected", "client_ip", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, CronAuthFailed)
			return
		}

		c.Set(authUserKey, user)
		c.Next()
	}
}

// AuthUser: returns the user accepted by BasicAuth or CronAuth.
func AuthUser(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(authUserKey)
}
