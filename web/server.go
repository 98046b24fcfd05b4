// Package web serves the liveness endpoints used by uptime pingers, plus
// Prometheus metrics.
package web

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	shutdownTimeout = 5 * time.Second
	serviceName     = "telegram-quiz-bot"
)

// StatusSource reports live numbers for /status.
type StatusSource interface {
	Total() int
	ActiveSessions() int
}

// Info is static bot metadata shown on / and /status.
type Info struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Bot     string `json:"bot_username,omitempty"`
}

type Server struct {
	srv *http.Server
}

// New builds the server. It does not listen until Run.
func New(port int, info Info, status StatusSource) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           NewRouter(info, status),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// NewRouter returns the gin engine with all routes.
func NewRouter(info Info, status StatusSource) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(homePage(info)))
	})
	r.HEAD("/", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"bot":       "running",
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   serviceName,
		})
	})

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message":   "pong",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	r.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"bot_info":        info,
			"status":          "active",
			"questions_count": status.Total(),
			"active_sessions": status.ActiveSessions(),
			"timestamp":       time.Now().Format(time.RFC3339),
		})
	})

	r.GET("/api/info", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":            info.Name,
			"version":         info.Version,
			"bot_username":    info.Bot,
			"questions_count": status.Total(),
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Liveness server listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down liveness server: %w", err)
	}
	log.Println("Liveness server stopped")
	return nil
}

func homePage(info Info) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>%[1]s</title>
</head>
<body style="font-family: sans-serif; text-align: center; padding: 50px;">
<h1>🤖 %[1]s</h1>
<p>✅ The bot is running!</p>
<p>Version %[2]s</p>
</body>
</html>`, html.EscapeString(info.Name), html.EscapeString(info.Version))
}
