package server

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/tl-its-umich-edu/m-voice/internal/config"
)

const (
	readHeaderTimeout = 5 * time.Second
	idleTimeout       = 60 * time.Second
	minWriteTimeout   = 15 * time.Second
)

// NewHTTPServer: builds the webhook server. With HTTP2Enabled the router is served over h2c.
func NewHTTPServer(cfg *config.Config, router *gin.Engine) *http.Server {
	addr := net.JoinHostPort(cfg.HTTP.Host, strconv.Itoa(cfg.HTTP.Port))
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout(cfg.Menu),
		IdleTimeout:       idleTimeout,
	}

	if cfg.HTTP.HTTP2Enabled {
		server.Handler = h2c.NewHandler(router, &http2.Server{})
	}

	return server
}

func writeTimeout(menu config.MenuConfig) time.Duration {
	timeout := 2*menu.Timeout() + readHeaderTimeout
	if timeout < minWriteTimeout {
		return minWriteTimeout
	}
	return timeout
}
