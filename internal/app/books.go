package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"bookify/internal/util"
	"bookify/pkg/domain"
	"bookify/pkg/store"
)

const (
	similarLimit        = 6
	recommendationLimit = 10
)

// Upload describes a file the handler spooled to disk before handing it to
// the application layer.
type Upload struct {
	Path        string
	Name        string
	Size        int64
	ContentType string
}

// CreateBookInput carries the multipart fields of a catalog upload.
type CreateBookInput struct {
	Title       string
	Description string
	AuthorName  string
	Genre       string
	BookType    string
	Duration    string
	Tags        []string
	IsPaid      bool
	Price       float64

	Cover *Upload
	File  *Upload
	Audio *Upload
}

// UpdateBookInput carries the mutable catalog fields. Nil means unchanged.
type UpdateBookInput struct {
	Title       *string
	Description *string
	AuthorName  *string
	Genre       *string
	IsPaid      *bool
	Price       *float64
}

// CreateBook relays the uploaded media to object storage and persists the
// catalog entry. A new-book notice goes out to opted-in readers afterwards.
func (a *App) CreateBook(ctx context.Context, uploader domain.User, in CreateBookInput) (domain.Book, error) {
	title := strings.TrimSpace(in.Title)
	genre := strings.TrimSpace(in.Genre)
	description := strings.TrimSpace(in.Description)
	authorName := strings.TrimSpace(in.AuthorName)
	if title == "" || genre == "" || description == "" || authorName == "" {
		return domain.Book{}, ErrAllFieldsRequired
	}
	bookType := domain.BookType(strings.TrimSpace(strings.ToLower(in.BookType)))
	switch bookType {
	case domain.TypePDF, domain.TypeAudio:
	case "":
		bookType = domain.TypePDF
	default:
		return domain.Book{}, ErrInvalidBookType
	}
	if in.Cover == nil {
		return domain.Book{}, ErrCoverImageRequired
	}
	if bookType == domain.TypePDF && in.File == nil {
		return domain.Book{}, ErrBookFileRequired
	}
	if bookType == domain.TypeAudio && in.Audio == nil {
		return domain.Book{}, ErrAudioFileRequired
	}

	id := util.NewID()
	now := time.Now().UTC()
	book := domain.Book{
		ID:          id,
		Title:       title,
		Description: description,
		UploaderID:  uploader.ID,
		AuthorName:  authorName,
		BookType:    bookType,
		Duration:    strings.TrimSpace(in.Duration),
		Genre:       genre,
		Tags:        normalizeTags(in.Tags),
		IsPaid:      in.IsPaid,
		Price:       in.Price,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var storedKeys []string
	cleanup := func() {
		for _, key := range storedKeys {
			if err := a.objects.Delete(context.Background(), key); err != nil {
				slog.Warn("cleanup stored object", "key", key, "error", err)
			}
		}
	}

	coverKey := objectKey("covers", id, in.Cover.Name)
	coverURL, err := a.putUpload(ctx, coverKey, in.Cover)
	if err != nil {
		return domain.Book{}, fmt.Errorf("store cover: %w", err)
	}
	storedKeys = append(storedKeys, coverKey)
	book.CoverImage = coverURL

	switch bookType {
	case domain.TypePDF:
		fileKey := objectKey("files", id, in.File.Name)
		fileURL, err := a.putUpload(ctx, fileKey, in.File)
		if err != nil {
			cleanup()
			return domain.Book{}, fmt.Errorf("store file: %w", err)
		}
		storedKeys = append(storedKeys, fileKey)
		book.File = fileURL
		book.Pages = countPDFPages(in.File.Path)
	case domain.TypeAudio:
		audioKey := objectKey("audio", id, in.Audio.Name)
		audioURL, err := a.putUpload(ctx, audioKey, in.Audio)
		if err != nil {
			cleanup()
			return domain.Book{}, fmt.Errorf("store audio: %w", err)
		}
		storedKeys = append(storedKeys, audioKey)
		book.AudioFile = audioURL
	}

	if err := a.store.SaveBook(book); err != nil {
		cleanup()
		return domain.Book{}, fmt.Errorf("save book: %w", err)
	}

	a.notifier.BookAdded(ctx, book)
	return book, nil
}

// ListBooks returns the whole catalog, newest first.
func (a *App) ListBooks() ([]domain.Book, error) {
	return a.store.ListBooks()
}

// GetBook fetches a single book and records the view. An authenticated
// viewer also gets the book added to their viewed history.
func (a *App) GetBook(bookID, viewerID string) (domain.Book, error) {
	book, ok, err := a.store.GetBook(bookID)
	if err != nil {
		return domain.Book{}, fmt.Errorf("fetch book: %w", err)
	}
	if !ok {
		return domain.Book{}, ErrBookNotFound
	}
	if err := a.store.IncrementBookViews(bookID); err != nil {
		slog.Warn("increment book views", "bookId", bookID, "error", err)
	} else {
		book.ViewsCount++
	}
	if viewerID != "" {
		if err := a.store.MarkBookViewed(viewerID, bookID); err != nil {
			slog.Warn("mark book viewed", "bookId", bookID, "userId", viewerID, "error", err)
		}
	}
	return book, nil
}

// UpdateBook mutates catalog fields. Only the original uploader may update,
// regardless of role.
func (a *App) UpdateBook(user domain.User, bookID string, in UpdateBookInput) (domain.Book, error) {
	book, ok, err := a.store.GetBook(bookID)
	if err != nil {
		return domain.Book{}, fmt.Errorf("fetch book: %w", err)
	}
	if !ok {
		return domain.Book{}, ErrBookNotFound
	}
	if book.UploaderID != user.ID {
		return domain.Book{}, ErrNotOwner
	}
	if in.Title != nil {
		book.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		book.Description = strings.TrimSpace(*in.Description)
	}
	if in.AuthorName != nil {
		book.AuthorName = strings.TrimSpace(*in.AuthorName)
	}
	if in.Genre != nil {
		book.Genre = strings.TrimSpace(*in.Genre)
	}
	if in.IsPaid != nil {
		book.IsPaid = *in.IsPaid
	}
	if in.Price != nil {
		book.Price = *in.Price
	}
	if book.Title == "" || book.Genre == "" || book.Description == "" || book.AuthorName == "" {
		return domain.Book{}, ErrAllFieldsRequired
	}
	book.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveBook(book); err != nil {
		return domain.Book{}, fmt.Errorf("save book: %w", err)
	}
	return book, nil
}

// DeleteBook removes the catalog entry and its stored media. Only the
// original uploader may delete, regardless of role.
func (a *App) DeleteBook(ctx context.Context, user domain.User, bookID string) error {
	book, ok, err := a.store.GetBook(bookID)
	if err != nil {
		return fmt.Errorf("fetch book: %w", err)
	}
	if !ok {
		return ErrBookNotFound
	}
	if book.UploaderID != user.ID {
		return ErrNotOwner
	}
	if err := a.store.DeleteBook(bookID); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	for _, key := range bookObjectKeys(book) {
		if err := a.objects.Delete(ctx, key); err != nil {
			slog.Warn("delete stored object", "key", key, "error", err)
		}
	}
	return nil
}

// AddReview appends a rating and returns the recomputed average and count.
func (a *App) AddReview(user domain.User, bookID string, rating int, comment string) (float64, int, error) {
	if rating < 1 || rating > 5 {
		return 0, 0, ErrInvalidRating
	}
	_, ok, err := a.store.GetBook(bookID)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch book: %w", err)
	}
	if !ok {
		return 0, 0, ErrBookNotFound
	}
	avg, count, err := a.store.AddReview(bookID, domain.Review{
		UserID:    user.ID,
		Rating:    rating,
		Comment:   strings.TrimSpace(comment),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return 0, 0, ErrAlreadyReviewed
		}
		return 0, 0, fmt.Errorf("add review: %w", err)
	}
	return avg, count, nil
}

// SimilarBooks lists same-genre books, excluding the book itself.
func (a *App) SimilarBooks(bookID string) ([]domain.Book, error) {
	book, ok, err := a.store.GetBook(bookID)
	if err != nil {
		return nil, fmt.Errorf("fetch book: %w", err)
	}
	if !ok {
		return nil, ErrBookNotFound
	}
	return a.store.ListBooksByGenre(book.Genre, book.ID, similarLimit)
}

// Recommendations suggests unseen books sharing a genre with the user's
// viewed history. With no history the newest books are returned.
func (a *App) Recommendations(userID string) ([]domain.Book, error) {
	viewedIDs, err := a.store.ListViewedBookIDs(userID)
	if err != nil {
		return nil, fmt.Errorf("list viewed books: %w", err)
	}
	if len(viewedIDs) == 0 {
		return a.store.ListLatestBooks(recommendationLimit)
	}
	viewed, err := a.store.ListBooksByIDs(viewedIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve viewed books: %w", err)
	}
	seenGenres := make(map[string]struct{}, len(viewed))
	genres := make([]string, 0, len(viewed))
	for _, b := range viewed {
		if _, ok := seenGenres[b.Genre]; ok {
			continue
		}
		seenGenres[b.Genre] = struct{}{}
		genres = append(genres, b.Genre)
	}
	return a.store.ListUnseenBooksByGenres(genres, viewedIDs, recommendationLimit)
}

func (a *App) putUpload(ctx context.Context, key string, up *Upload) (string, error) {
	f, err := os.Open(up.Path)
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	contentType := up.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(up.Name)))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return a.objects.Put(ctx, key, f, up.Size, contentType)
}

func objectKey(prefix, bookID, filename string) string {
	name := sanitizeFilename(filepath.Base(filename))
	if name == "" {
		name = "upload"
	}
	return path.Join(prefix, bookID, name)
}

// bookObjectKeys recovers storage keys from the recorded public URLs. Keys
// are always "<prefix>/<bookID>/<name>", so the URL tail is authoritative.
func bookObjectKeys(book domain.Book) []string {
	keys := make([]string, 0, 3)
	for prefix, url := range map[string]string{
		"covers": book.CoverImage,
		"files":  book.File,
		"audio":  book.AudioFile,
	} {
		if url == "" {
			continue
		}
		marker := "/" + prefix + "/" + book.ID + "/"
		if idx := strings.Index(url, marker); idx >= 0 {
			keys = append(keys, url[idx+1:])
		}
	}
	return keys
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(name))
	lastUnderscore := false
	for _, r := range name {
		if r <= 0x7f {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
				b.WriteRune(r)
				lastUnderscore = false
				continue
			}
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}

// countPDFPages is best effort; a malformed PDF just yields zero pages.
func countPDFPages(path string) int {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()
	pages := reader.NumPage()
	if pages < 0 {
		return 0
	}
	return pages
}
