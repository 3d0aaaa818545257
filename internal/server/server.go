package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"bookify/internal/app"
	"bookify/internal/util"
	"bookify/pkg/auth"
	"bookify/pkg/domain"
)

// Limiter is the request-quota check applied to public write routes.
type Limiter interface {
	Allow(key string) bool
}

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	Limiter        Limiter
	TrustedProxies *util.TrustedProxies
	AllowedOrigins []string
	MaxUploadBytes int64
}

// Server exposes the REST API.
type Server struct {
	app            *app.App
	limiter        Limiter
	trustedProxies *util.TrustedProxies
	allowedOrigins []string
	mux            *http.ServeMux
	maxUploadBytes int64
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	maxUploadBytes := cfg.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = 100 << 20
	}
	s := &Server{
		app:            cfg.App,
		limiter:        cfg.Limiter,
		trustedProxies: cfg.TrustedProxies,
		allowedOrigins: cfg.AllowedOrigins,
		mux:            http.NewServeMux(),
		maxUploadBytes: maxUploadBytes,
	}
	s.routes()
	return s
}

// Router returns the configured handler wrapped in the middleware chain.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithSecurityHeaders(util.WithCORS(s.allowedOrigins, s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleRoot)
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// users
	s.mux.HandleFunc("/api/users/register", s.rateLimited(s.handleRegister))
	s.mux.HandleFunc("/api/users/login", s.rateLimited(s.handleLogin))
	s.mux.Handle("/api/users/wishlist", s.authenticated(s.handleWishlist))
	s.mux.Handle("/api/users/wishlist/", s.authenticated(s.handleWishlistByID))

	// books
	s.mux.HandleFunc("/api/books", s.handleBooks)
	s.mux.HandleFunc("/api/books/", s.handleBookSubtree)

	// public book requests
	s.mux.HandleFunc("/api/request-book", s.rateLimited(s.handleRequestBook))

	// admin
	s.mux.Handle("/api/admin/users", s.adminOnly(s.handleAdminUsers))
	s.mux.Handle("/api/admin/users/", s.adminOnly(s.handleAdminUserByID))
	s.mux.Handle("/api/admin/stats", s.adminOnly(s.handleAdminStats))
	s.mux.Handle("/api/admin/book-requests", s.adminOnly(s.handleAdminBookRequests))
	s.mux.Handle("/api/admin/book-requests/", s.adminOnly(s.handleAdminBookRequestByID))
	s.mux.Handle("/api/admin/top-viewed-books", s.adminOnly(s.handleAdminTopViewed))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		notFound(w, "not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the Bookify API"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type userHandler func(http.ResponseWriter, *http.Request, domain.User)

// authenticated requires a valid bearer token and re-fetches the user from
// storage so role changes take effect immediately.
func (s *Server) authenticated(next userHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		user, ok := s.app.UserFromToken(token)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, user)
	})
}

// adminOnly is authenticated plus a stored-role check.
func (s *Server) adminOnly(next userHandler) http.Handler {
	return s.authenticated(func(w http.ResponseWriter, r *http.Request, user domain.User) {
		if user.Role != domain.RoleAdmin {
			writeError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next(w, r, user)
	})
}

// optionalUser resolves the caller when a bearer token is present. A missing
// header is anonymous; a present but invalid one is rejected.
func (s *Server) optionalUser(w http.ResponseWriter, r *http.Request) (domain.User, bool, bool) {
	if strings.TrimSpace(r.Header.Get("Authorization")) == "" {
		return domain.User{}, false, true
	}
	token, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return domain.User{}, false, false
	}
	user, ok := s.app.UserFromToken(token)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return domain.User{}, false, false
	}
	return user, true, true
}

func (s *Server) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil {
			ip := util.ClientIP(r, s.trustedProxies)
			if !s.limiter.Allow(ip) {
				writeError(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
		}
		next(w, r)
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// writeAppError maps application sentinels onto HTTP statuses. Unknown
// errors become generic 500s so internals never leak.
func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrAllFieldsRequired),
		errors.Is(err, app.ErrUserAlreadyExists),
		errors.Is(err, app.ErrInvalidCredentials),
		errors.Is(err, app.ErrInvalidBookID),
		errors.Is(err, app.ErrInvalidBookType),
		errors.Is(err, app.ErrCoverImageRequired),
		errors.Is(err, app.ErrBookFileRequired),
		errors.Is(err, app.ErrAudioFileRequired),
		errors.Is(err, app.ErrInvalidRating),
		errors.Is(err, app.ErrAlreadyReviewed),
		errors.Is(err, app.ErrAlreadyInWishlist),
		errors.Is(err, app.ErrInvalidStatus),
		errors.Is(err, auth.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrNotOwner),
		errors.Is(err, app.ErrAdminUndeletable):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, app.ErrBookNotFound),
		errors.Is(err, app.ErrUserNotFound),
		errors.Is(err, app.ErrRequestNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func notFound(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusNotFound, msg)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		Code:      errorCode(status, msg),
		RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
	})
}

func errorCode(status int, msg string) string {
	message := strings.ToLower(strings.TrimSpace(msg))
	switch message {
	case "unauthorized":
		return "AUTH_INVALID_TOKEN"
	case "admin access required":
		return "AUTH_ADMIN_REQUIRED"
	case "invalid credentials":
		return "AUTH_INVALID_CREDENTIALS"
	case "password must be at least 8 characters":
		return "AUTH_WEAK_PASSWORD"
	case "user already exists":
		return "USER_ALREADY_EXISTS"
	case "user not found":
		return "USER_NOT_FOUND"
	case "admin user cannot be deleted":
		return "USER_ADMIN_UNDELETABLE"
	case "book not found":
		return "BOOK_NOT_FOUND"
	case "invalid book id":
		return "BOOK_INVALID_ID"
	case "invalid book type":
		return "BOOK_INVALID_TYPE"
	case "not allowed":
		return "BOOK_FORBIDDEN"
	case "rating must be between 1 and 5":
		return "REVIEW_INVALID_RATING"
	case "already reviewed":
		return "REVIEW_DUPLICATE"
	case "already in wishlist":
		return "WISHLIST_DUPLICATE"
	case "book request not found":
		return "REQUEST_NOT_FOUND"
	case "invalid status":
		return "REQUEST_INVALID_STATUS"
	case "too many requests":
		return "RATE_LIMITED"
	case "invalid json body", "invalid form data":
		return "SYSTEM_INVALID_REQUEST"
	case "method not allowed":
		return "SYSTEM_METHOD_NOT_ALLOWED"
	case "not found":
		return "SYSTEM_NOT_FOUND"
	}

	switch status {
	case http.StatusBadRequest:
		return "SYSTEM_INVALID_REQUEST"
	case http.StatusUnauthorized:
		return "AUTH_INVALID_TOKEN"
	case http.StatusForbidden:
		return "AUTH_FORBIDDEN"
	case http.StatusNotFound:
		return "SYSTEM_NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "SYSTEM_METHOD_NOT_ALLOWED"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	default:
		return "SYSTEM_INTERNAL_ERROR"
	}
}
