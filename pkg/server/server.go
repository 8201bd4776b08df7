package server

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"ropix/pkg/config"
	"ropix/pkg/gateway"
	"ropix/pkg/room"
	"ropix/pkg/transfer"
)

// Server wires the room registry, transfer sessions and broadcast gateway
// behind the HTTP and WebSocket surface. All shared state is owned by the
// injected components; the server itself holds no mutable maps.
type Server struct {
	cfg       *config.Config
	logger    *zap.Logger
	registry  *room.Registry
	sessions  *transfer.Manager
	hub       *gateway.Hub
	maxUpload int64

	httpServer *http.Server
}

func New(cfg *config.Config, logger *zap.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		logger:    logger,
		registry:  room.New(cfg.MaxDevicesPerRoom, logger),
		maxUpload: cfg.MaxUploadBytes(),
	}
	s.hub = gateway.NewHub(s.registry, s, logger)
	s.sessions = transfer.NewManager(s.hub, cfg.SessionTTLDuration(), logger)
	return s
}

// Registry exposes the room registry for diagnostics and tests.
func (s *Server) Registry() *room.Registry { return s.registry }

// Sessions exposes the transfer session manager.
func (s *Server) Sessions() *transfer.Manager { return s.sessions }

// Hub exposes the websocket gateway.
func (s *Server) Hub() *gateway.Hub { return s.hub }

// Router builds the full HTTP surface.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/ws", s.hub.ServeWS)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/rooms", s.handleCreateRoom).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{code}/join", s.handleJoinCheck).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{code}/upload", s.handleUpload).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{code}/files", s.handleListFiles).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{code}/files/{id}/download", s.handleDownload).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{code}/files/{id}/info", s.handleFileInfo).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{code}/files/{id}/metadata", s.handleMetadata).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{code}/files/{id}/preview", s.handlePreview).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{code}/files/{id}/delete", s.handleDelete).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{code}/archive", s.handleArchive).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{code}/clear", s.handleClear).Methods(http.MethodPost)
	api.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})

	r.PathPrefix("/").Handler(s.frontendHandler())

	return r
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.ListenAddress,
		Handler:      s.Router(),
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
	}

	go s.sessions.Run(ctx)

	s.logger.Info("http server listening", zap.String("address", s.cfg.ListenAddress))
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// frontendHandler serves the built frontend with an index.html fallback so
// client-side routes resolve after a refresh.
func (s *Server) frontendHandler() http.Handler {
	dist := s.cfg.FrontendDir
	fileServer := http.FileServer(http.Dir(dist))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested := filepath.Join(dist, filepath.Clean("/"+r.URL.Path))
		if info, err := os.Stat(requested); err == nil && !info.IsDir() {
			fileServer.ServeHTTP(w, r)
			return
		}

		index := filepath.Join(dist, "index.html")
		if _, err := os.Stat(index); err != nil {
			writeJSON(w, http.StatusOK, map[string]string{
				"message": "Frontend build not found. Build the project inside the frontend/ directory first.",
			})
			return
		}
		http.ServeFile(w, r, index)
	})
}
