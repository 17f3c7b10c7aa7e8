package server

import (
	"bubble-relay/auth"
	"bubble-relay/domain"
	"bubble-relay/errors"
	"bubble-relay/observability"
	"bubble-relay/services"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
)

// Services groups what the handlers call into.
type Services struct {
	Auth        services.IAuthService
	Users       services.IUserService
	Clients     services.IClientService
	KeyPackages services.IKeyPackageService
	Mailbox     services.IMailboxService
}

type Server struct {
	log          *slog.Logger
	services     Services
	gate         *auth.Gate
	metrics      *observability.Metrics
	probe        *observability.ProcessProbe
	validate     *validator.Validate
	maxBodyBytes int64
	startedAt    time.Time
}

func NewServer(
	log *slog.Logger,
	services Services,
	gate *auth.Gate,
	metrics *observability.Metrics,
	probe *observability.ProcessProbe,
	maxBodyBytes int64,
) *Server {
	return &Server{
		log:          log,
		services:     services,
		gate:         gate,
		metrics:      metrics,
		probe:        probe,
		validate:     validator.New(),
		maxBodyBytes: maxBodyBytes,
		startedAt:    time.Now(),
	}
}

// Handler returns the routed and instrumented HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.health)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("POST /v1/user/register", s.register)
	mux.HandleFunc("POST /v1/user/login", s.login)
	mux.HandleFunc("GET /v1/user/search", s.searchUsers)
	mux.HandleFunc("GET /v1/user/{uuid}", s.getUser)
	mux.Handle("DELETE /v1/user/session", s.protect(s.logout))
	mux.Handle("PATCH /v1/user", s.protect(s.updateProfile))
	mux.Handle("PUT /v1/user/identity", s.protect(s.updateIdentity))
	mux.Handle("DELETE /v1/user", s.protect(s.deleteUser))
	mux.Handle("GET /v1/user/{uuid}/clients", s.protect(s.listClients))

	mux.Handle("POST /v1/client", s.protect(s.createClient))
	mux.Handle("GET /v1/client/{uuid}", s.protect(s.getClient))
	mux.Handle("PATCH /v1/client/{uuid}", s.protect(s.updateClient))
	mux.Handle("DELETE /v1/client/{uuid}", s.protect(s.deleteClient))
	mux.Handle("POST /v1/client/{uuid}/key_packages", s.protect(s.replaceKeyPackages))
	mux.Handle("GET /v1/client/{uuid}/key_package", s.protect(s.fetchKeyPackage))
	mux.Handle("GET /v1/client/{uuid}/key_packages/count", s.protect(s.countKeyPackages))

	mux.Handle("POST /v1/message", s.protect(s.sendMessage))
	mux.Handle("GET /v1/client/{uuid}/messages", s.protect(s.receiveMessages))
	mux.Handle("POST /v1/client/{uuid}/messages/ack", s.protect(s.acknowledgeMessages))

	return s.instrument(s.recoverer(mux))
}

func (s *Server) protect(h http.HandlerFunc) http.Handler {
	return s.gate.Require(h, s.fail)
}

// decode reads a JSON body into dst. Unknown fields, trailing data and
// oversized bodies are InvalidRequest.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed body: %v", errors.ErrInvalidRequest, err)
	}
	if _, err := decoder.Token(); err != io.EOF {
		return fmt.Errorf("%w: trailing data after body", errors.ErrInvalidRequest)
	}
	if err := s.validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidRequest, err)
	}
	return nil
}

func (s *Server) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		body = struct{}{}
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Warn("Failed to write response", "error", err)
	}
}

// fail maps err to its status. Only the error kind reaches the caller;
// the detail is logged.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		s.log.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		s.log.Debug("Request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	s.respond(w, status, errorResponse{Error: errors.Public(err)})
}

// requester reads the user the gate placed in the context. Handlers
// behind protect always have one.
func (s *Server) requester(r *http.Request) (domain.Requester, error) {
	requester, ok := auth.RequesterFrom(r.Context())
	if !ok {
		return domain.Requester{}, errors.Internalf("no requester for %s", r.URL.Path)
	}
	return requester, nil
}
