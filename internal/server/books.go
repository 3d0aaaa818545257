package server

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"

	"bookify/internal/app"
	"bookify/pkg/domain"
)

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListBooks(w)
	case http.MethodPost:
		s.authenticated(s.handleCreateBook).ServeHTTP(w, r)
	default:
		methodNotAllowed(w)
	}
}

// /api/books/{id}, /api/books/{id}/similar, /api/books/{id}/reviews,
// /api/books/recommendations/me
func (s *Server) handleBookSubtree(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/books/")
	if path == "recommendations/me" {
		s.authenticated(s.handleRecommendations).ServeHTTP(w, r)
		return
	}
	parts := strings.SplitN(path, "/", 2)
	id := parts[0]
	if id == "" {
		notFound(w, "not found")
		return
	}
	if len(parts) == 2 {
		switch parts[1] {
		case "similar":
			s.handleSimilar(w, r, id)
		case "reviews":
			s.authenticated(func(w http.ResponseWriter, r *http.Request, user domain.User) {
				s.handleAddReview(w, r, user, id)
			}).ServeHTTP(w, r)
		default:
			notFound(w, "not found")
		}
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.handleGetBook(w, r, id)
	case http.MethodPatch:
		s.authenticated(func(w http.ResponseWriter, r *http.Request, user domain.User) {
			s.handleUpdateBook(w, r, user, id)
		}).ServeHTTP(w, r)
	case http.MethodDelete:
		s.authenticated(func(w http.ResponseWriter, r *http.Request, user domain.User) {
			s.handleDeleteBook(w, r, user, id)
		}).ServeHTTP(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleListBooks(w http.ResponseWriter) {
	books, err := s.app.ListBooks()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": books,
		"count": len(books),
	})
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request, id string) {
	user, authed, ok := s.optionalUser(w, r)
	if !ok {
		return
	}
	viewerID := ""
	if authed {
		viewerID = user.ID
	}
	book, err := s.app.GetBook(id, viewerID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request, user domain.User) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusBadRequest, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	in := app.CreateBookInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		AuthorName:  r.FormValue("authorName"),
		Genre:       r.FormValue("genre"),
		BookType:    r.FormValue("bookType"),
		Duration:    r.FormValue("duration"),
		Tags:        parseTags(r.MultipartForm.Value["tags"]),
	}
	if v := r.FormValue("isPaid"); v != "" {
		in.IsPaid, _ = strconv.ParseBool(v)
	}
	if v := r.FormValue("price"); v != "" {
		if price, err := strconv.ParseFloat(v, 64); err == nil {
			in.Price = price
		}
	}

	for _, field := range []struct {
		name string
		dst  **app.Upload
	}{
		{"coverImage", &in.Cover},
		{"file", &in.File},
		{"audioFile", &in.Audio},
	} {
		upload, cleanup, err := spoolUpload(r, field.name)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid form data")
			return
		}
		if upload != nil {
			defer cleanup()
			*field.dst = upload
		}
	}

	book, err := s.app.CreateBook(r.Context(), user, in)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request, user domain.User, id string) {
	var req struct {
		Title       *string  `json:"title"`
		Description *string  `json:"description"`
		AuthorName  *string  `json:"authorName"`
		Genre       *string  `json:"genre"`
		IsPaid      *bool    `json:"isPaid"`
		Price       *float64 `json:"price"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	book, err := s.app.UpdateBook(user, id, app.UpdateBookInput{
		Title:       req.Title,
		Description: req.Description,
		AuthorName:  req.AuthorName,
		Genre:       req.Genre,
		IsPaid:      req.IsPaid,
		Price:       req.Price,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request, user domain.User, id string) {
	if err := s.app.DeleteBook(r.Context(), user, id); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddReview(w http.ResponseWriter, r *http.Request, user domain.User, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	avg, count, err := s.app.AddReview(user, id, req.Rating, req.Comment)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"averageRating": avg,
		"ratingsCount":  count,
	})
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	books, err := s.app.SimilarBooks(id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": books,
		"count": len(books),
	})
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	books, err := s.app.Recommendations(user.ID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": books,
		"count": len(books),
	})
}

// spoolUpload copies a multipart file to a temp file so the application
// layer can re-read it. Returns nil when the field is absent.
func spoolUpload(r *http.Request, field string) (*app.Upload, func(), error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", "bookify-upload-*")
	if err != nil {
		return nil, nil, err
	}
	size, err := io.Copy(tmp, file)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return nil, nil, err
	}
	cleanup := func() {
		if err := os.Remove(tmp.Name()); err != nil {
			slog.Warn("remove spooled upload", "path", tmp.Name(), "error", err)
		}
	}
	return &app.Upload{
		Path:        tmp.Name(),
		Name:        header.Filename,
		Size:        size,
		ContentType: contentTypeOf(header),
	}, cleanup, nil
}

func contentTypeOf(header *multipart.FileHeader) string {
	return strings.TrimSpace(header.Header.Get("Content-Type"))
}

func parseTags(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, tag := range strings.Split(value, ",") {
			tag = strings.TrimSpace(tag)
			if tag != "" {
				out = append(out, tag)
			}
		}
	}
	return out
}
