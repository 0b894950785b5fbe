package restserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chrissnell/cplcurtain/internal/cpl"
	"github.com/chrissnell/cplcurtain/pkg/config"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Controller represents the REST server controller
type Controller struct {
	ctx        context.Context
	wg         *sync.WaitGroup
	restConfig config.RESTServerData
	Server     http.Server
	Session    *cpl.Session
	Curtain    config.CurtainData
	logger     *zap.SugaredLogger
	handlers   *Handlers
}

// NewController creates a new REST server controller serving views of session
func NewController(ctx context.Context, wg *sync.WaitGroup, session *cpl.Session, rc config.RESTServerData, cd config.CurtainData, logger *zap.SugaredLogger) (*Controller, error) {
	if session == nil {
		return nil, fmt.Errorf("REST server requires a loaded session")
	}

	ctrl := &Controller{
		ctx:        ctx,
		wg:         wg,
		restConfig: rc,
		Session:    session,
		Curtain:    cd,
		logger:     logger,
	}

	// If a ListenAddr was not provided, listen on all interfaces
	if ctrl.restConfig.ListenAddr == "" {
		logger.Info("rest.listen-addr not provided; defaulting to 0.0.0.0 (all interfaces)")
		ctrl.restConfig.ListenAddr = "0.0.0.0"
	}

	// Set default HTTP port if not specified
	if ctrl.restConfig.Port == 0 {
		logger.Info("rest.port not provided; defaulting to 8080")
		ctrl.restConfig.Port = 8080
	}

	ctrl.handlers = NewHandlers(ctrl)

	ctrl.Server.Addr = fmt.Sprintf("%v:%v", ctrl.restConfig.ListenAddr, ctrl.restConfig.Port)
	ctrl.Server.Handler = ctrl.setupRouter()
	ctrl.Server.ReadHeaderTimeout = 10 * time.Second

	return ctrl, nil
}

// StartController starts the REST server
func (c *Controller) StartController() error {
	c.logger.Infof("Starting REST server on %s...", c.Server.Addr)
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
			c.logger.Errorf("REST server error: %v", err)
		}
	}()

	go func() {
		<-c.ctx.Done()
		c.logger.Info("Shutting down the REST server...")
		c.Server.Shutdown(context.Background())
	}()

	return nil
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(c.logMiddleware)

	router.HandleFunc("/session", c.handlers.GetSession).Methods(http.MethodGet)
	router.HandleFunc("/windows", c.handlers.GetWindows).Methods(http.MethodGet)
	router.HandleFunc("/windows/{index:[0-9]+}", c.handlers.GetWindow).Methods(http.MethodGet)
	router.HandleFunc("/track", c.handlers.GetTrack).Methods(http.MethodGet)
	router.HandleFunc("/fields", c.handlers.GetFields).Methods(http.MethodGet)
	router.HandleFunc("/curtain", c.handlers.GetCurtain).Methods(http.MethodGet)
	router.HandleFunc("/curtain/{field}", c.handlers.GetCurtain).Methods(http.MethodGet)

	return router
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

// logMiddleware logs every request at debug level
func (c *Controller) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		c.logger.Debugw("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"size", rec.size,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_addr", r.RemoteAddr,
		)
	})
}
