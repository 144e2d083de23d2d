// Package bootstrap builds the API for serverless hosts, where there is no
// long-running main to own startup.
package bootstrap

import (
	"net/http"
	"sync"

	"tradedesk-backend/internal/config"
	"tradedesk-backend/internal/interfaces/router"
	"tradedesk-backend/internal/logging"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// New loads configuration and creates the app.
func New() (*fiber.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg)
	app, _, _, err := router.CreateApp(cfg)
	return app, err
}

// Lazy creates the app on first use. A failed start is retried by the next
// request instead of taking the whole function down.
type Lazy struct {
	mu      sync.Mutex
	handler http.Handler
	build   func() (*fiber.App, error)
}

// NewLazy returns a Lazy that builds the app with New.
func NewLazy() *Lazy {
	return &Lazy{build: New}
}

func (l *Lazy) get() (http.Handler, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.handler != nil {
		return l.handler, nil
	}
	app, err := l.build()
	if err != nil {
		return nil, err
	}
	l.handler = router.Handler(app)
	return l.handler, nil
}

func (l *Lazy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h, err := l.get()
	if err != nil {
		log.Error().Err(err).Msg("api startup failed")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"error","error":{"message":"Service starting","statusCode":503}}`))
		return
	}
	h.ServeHTTP(w, r)
}
