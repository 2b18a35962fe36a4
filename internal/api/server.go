package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vapi/internal/catalog"
	"vapi/internal/events"
	"vapi/internal/reconciler"
	"vapi/internal/resource"
	"vapi/internal/validation"
	"vapi/pkg/logging"
)

// ServiceStore is the configuration surface the admin API writes through.
type ServiceStore interface {
	ListNames(ctx context.Context) ([]string, error)
	Get(ctx context.Context, name string) (*catalog.ServiceConfig, error)
	Put(ctx context.Context, name string, svc *catalog.ServiceConfig) error
	Create(ctx context.Context, svc *catalog.ServiceConfig) error
	Delete(ctx context.Context, name string) (bool, error)
}

// Lifecycle is the part of the reconciler the admin API drives.
type Lifecycle interface {
	RenameService(ctx context.Context, oldName, newName string) error
	RenameEntity(ctx context.Context, serviceName, oldName, newName string) error
	Reconcile(ctx context.Context) (reconciler.PassResult, error)
	Status() reconciler.Status
	Trigger()
}

// Dependencies are the components the HTTP surface is built on. Broker may
// be nil, in which case no events are published and /admin/ws is unavailable.
type Dependencies struct {
	Services  ServiceStore
	Resolver  *validation.Resolver
	Gateway   *resource.Gateway
	Lifecycle Lifecycle
	Broker    *events.Broker
}

// Server serves the emulated APIs and the admin API.
type Server struct {
	deps       Dependencies
	router     *chi.Mux
	httpServer *http.Server
}

// NewServer creates a server listening on addr.
func NewServer(deps Dependencies, addr string) *Server {
	s := &Server{
		deps:   deps,
		router: chi.NewRouter(),
	}

	s.router.Use(Recovery)
	s.router.Use(Logger)
	s.router.Use(JSONContentType)

	s.setupRoutes()

	// No WriteTimeout: /admin/ws connections stay open.
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.health)

	// Emulated APIs
	s.router.Route("/api/{service}/{entity}/{route}", func(r chi.Router) {
		r.Get("/", s.listDocuments)
		r.Post("/", s.createDocument)
		r.Get("/{id}", s.getDocument)
		r.Put("/{id}", s.updateDocument)
		r.Delete("/{id}", s.deleteDocument)
	})

	s.router.Route("/admin", func(r chi.Router) {
		r.Route("/services", func(r chi.Router) {
			r.Get("/", s.listServices)
			r.Post("/", s.createService)
			r.Get("/{name}", s.getService)
			r.Put("/{name}", s.putService)
			r.Delete("/{name}", s.deleteService)
			r.Post("/{name}/rename", s.renameService)
			r.Post("/{name}/entities/{entity}/rename", s.renameEntity)
		})

		r.Post("/reconcile", s.reconcile)
		r.Get("/reconcile/status", s.reconcileStatus)

		r.Get("/ws", s.streamEvents)
	})
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start listens and serves until Stop is called.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener until Stop is called.
func (s *Server) Serve(ln net.Listener) error {
	logging.Info("API", "Listening on %s", ln.Addr())
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	logging.Info("API", "Shutting down server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
