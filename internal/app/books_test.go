package app

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestCreateBookRequiresFields(t *testing.T) {
	a := newTestApp(t)
	uploader := registerUser(t, a, "Uploader", "uploader@example.com")

	_, err := a.CreateBook(context.Background(), uploader, CreateBookInput{
		Title:      "Dune",
		AuthorName: "Frank Herbert",
		Genre:      "sci-fi",
	})
	if !errors.Is(err, ErrAllFieldsRequired) {
		t.Fatalf("expected missing description to fail, got %v", err)
	}

	_, err = a.CreateBook(context.Background(), uploader, CreateBookInput{
		Title:       "Dune",
		Description: "classic",
		AuthorName:  "Frank Herbert",
		Genre:       "sci-fi",
		BookType:    "pdf",
	})
	if !errors.Is(err, ErrCoverImageRequired) {
		t.Fatalf("expected missing cover to fail, got %v", err)
	}

	_, err = a.CreateBook(context.Background(), uploader, CreateBookInput{
		Title:       "Dune",
		Description: "classic",
		AuthorName:  "Frank Herbert",
		Genre:       "sci-fi",
		BookType:    "audio",
		Cover:       tempUpload(t, "cover.jpg", "jpeg-bytes"),
	})
	if !errors.Is(err, ErrAudioFileRequired) {
		t.Fatalf("expected missing audio file to fail, got %v", err)
	}

	_, err = a.CreateBook(context.Background(), uploader, CreateBookInput{
		Title:       "Dune",
		Description: "classic",
		AuthorName:  "Frank Herbert",
		Genre:       "sci-fi",
		BookType:    "vinyl",
		Cover:       tempUpload(t, "cover.jpg", "jpeg-bytes"),
	})
	if !errors.Is(err, ErrInvalidBookType) {
		t.Fatalf("expected unknown book type to fail, got %v", err)
	}
}

func TestCreateBookStoresMediaAndNotifies(t *testing.T) {
	a := newTestApp(t)
	uploader := registerUser(t, a, "Uploader", "uploader@example.com")

	book := createBook(t, a, uploader, "Dune", "sci-fi")

	if book.CoverImage == "" || book.File == "" {
		t.Fatalf("expected stored media URLs, got %+v", book)
	}
	if book.AudioFile != "" {
		t.Fatalf("pdf book should not carry an audio URL")
	}
	if len(a.objects.stored) != 2 {
		t.Fatalf("expected cover and file in object store, got %v", a.objects.stored)
	}
	if len(a.notifier.added) != 1 || a.notifier.added[0].ID != book.ID {
		t.Fatalf("expected a new-book notice, got %+v", a.notifier.added)
	}

	stored, err := a.GetBook(book.ID, "")
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	if stored.Title != "Dune" || stored.UploaderID != uploader.ID {
		t.Fatalf("unexpected stored book: %+v", stored)
	}
}

func TestCreateBookCompensatesOnPartialFailure(t *testing.T) {
	a := newTestApp(t)
	uploader := registerUser(t, a, "Uploader", "uploader@example.com")
	a.objects.failOnPut = "files/"

	_, err := a.CreateBook(context.Background(), uploader, CreateBookInput{
		Title:       "Dune",
		Description: "classic",
		AuthorName:  "Frank Herbert",
		Genre:       "sci-fi",
		BookType:    "pdf",
		Cover:       tempUpload(t, "cover.jpg", "jpeg-bytes"),
		File:        tempUpload(t, "book.pdf", "pdf-bytes"),
	})
	if err == nil {
		t.Fatalf("expected create to fail when content upload fails")
	}
	if len(a.objects.stored) != 0 {
		t.Fatalf("expected cover to be cleaned up, still stored: %v", a.objects.stored)
	}
	books, err := a.ListBooks()
	if err != nil {
		t.Fatalf("list books: %v", err)
	}
	if len(books) != 0 {
		t.Fatalf("no book should be persisted on failure, got %d", len(books))
	}
	if len(a.notifier.added) != 0 {
		t.Fatalf("no notice should go out on failure")
	}
}

func TestGetBookTracksViews(t *testing.T) {
	a := newTestApp(t)
	uploader := registerUser(t, a, "Uploader", "uploader@example.com")
	reader := registerUser(t, a, "Reader", "reader@example.com")
	book := createBook(t, a, uploader, "Dune", "sci-fi")

	got, err := a.GetBook(book.ID, reader.ID)
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	if got.ViewsCount != 1 {
		t.Fatalf("expected one view, got %d", got.ViewsCount)
	}
	viewed, err := a.store.ListViewedBookIDs(reader.ID)
	if err != nil {
		t.Fatalf("list viewed: %v", err)
	}
	if len(viewed) != 1 || viewed[0] != book.ID {
		t.Fatalf("expected viewed history to record the book, got %v", viewed)
	}

	if _, err := a.GetBook("missing", ""); !errors.Is(err, ErrBookNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateBookOwnership(t *testing.T) {
	a := newTestApp(t)
	admin := registerUser(t, a, "Root", "root@example.com")
	uploader := registerUser(t, a, "Uploader", "uploader@example.com")
	other := registerUser(t, a, "Other", "other@example.com")
	book := createBook(t, a, uploader, "Dune", "sci-fi")

	newTitle := "Dune Messiah"
	if _, err := a.UpdateBook(other, book.ID, UpdateBookInput{Title: &newTitle}); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected non-owner update to fail, got %v", err)
	}
	if _, err := a.UpdateBook(admin, book.ID, UpdateBookInput{Title: &newTitle}); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected admin non-owner update to fail, got %v", err)
	}

	updated, err := a.UpdateBook(uploader, book.ID, UpdateBookInput{Title: &newTitle})
	if err != nil {
		t.Fatalf("owner update: %v", err)
	}
	if updated.Title != "Dune Messiah" {
		t.Fatalf("title not updated: %q", updated.Title)
	}

	empty := "  "
	if _, err := a.UpdateBook(uploader, book.ID, UpdateBookInput{Genre: &empty}); !errors.Is(err, ErrAllFieldsRequired) {
		t.Fatalf("expected blanking a required field to fail, got %v", err)
	}
}

func TestDeleteBookRemovesStoredMedia(t *testing.T) {
	a := newTestApp(t)
	admin := registerUser(t, a, "Root", "root@example.com")
	uploader := registerUser(t, a, "Uploader", "uploader@example.com")
	other := registerUser(t, a, "Other", "other@example.com")
	book := createBook(t, a, uploader, "Dune", "sci-fi")

	if err := a.DeleteBook(context.Background(), other, book.ID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected non-owner delete to fail, got %v", err)
	}
	if err := a.DeleteBook(context.Background(), admin, book.ID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected admin non-owner delete to fail, got %v", err)
	}
	if err := a.DeleteBook(context.Background(), uploader, book.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if len(a.objects.stored) != 0 {
		t.Fatalf("expected stored media to be removed, got %v", a.objects.stored)
	}
	if _, err := a.GetBook(book.ID, ""); !errors.Is(err, ErrBookNotFound) {
		t.Fatalf("expected book to be gone, got %v", err)
	}
}

func TestAddReviewValidatesAndDedupes(t *testing.T) {
	a := newTestApp(t)
	uploader := registerUser(t, a, "Uploader", "uploader@example.com")
	reader := registerUser(t, a, "Reader", "reader@example.com")
	book := createBook(t, a, uploader, "Dune", "sci-fi")

	if _, _, err := a.AddReview(reader, book.ID, 0, ""); !errors.Is(err, ErrInvalidRating) {
		t.Fatalf("expected rating below 1 to fail, got %v", err)
	}
	if _, _, err := a.AddReview(reader, book.ID, 6, ""); !errors.Is(err, ErrInvalidRating) {
		t.Fatalf("expected rating above 5 to fail, got %v", err)
	}

	avg, count, err := a.AddReview(reader, book.ID, 4, "good")
	if err != nil {
		t.Fatalf("add review: %v", err)
	}
	if avg != 4 || count != 1 {
		t.Fatalf("expected avg=4 count=1, got avg=%v count=%d", avg, count)
	}

	if _, _, err := a.AddReview(reader, book.ID, 5, "again"); !errors.Is(err, ErrAlreadyReviewed) {
		t.Fatalf("expected duplicate review to fail, got %v", err)
	}

	avg, count, err = a.AddReview(uploader, book.ID, 2, "meh")
	if err != nil {
		t.Fatalf("second reviewer: %v", err)
	}
	if avg != 3 || count != 2 {
		t.Fatalf("expected avg=3 count=2, got avg=%v count=%d", avg, count)
	}
}

func TestSimilarBooksSameGenreExcludingSelf(t *testing.T) {
	a := newTestApp(t)
	uploader := registerUser(t, a, "Uploader", "uploader@example.com")
	target := createBook(t, a, uploader, "Dune", "sci-fi")
	for i := 0; i < 8; i++ {
		createBook(t, a, uploader, "SciFi-"+strings.Repeat("x", i+1), "sci-fi")
	}
	createBook(t, a, uploader, "History", "history")

	similar, err := a.SimilarBooks(target.ID)
	if err != nil {
		t.Fatalf("similar: %v", err)
	}
	if len(similar) != 6 {
		t.Fatalf("expected similar list capped at 6, got %d", len(similar))
	}
	for _, b := range similar {
		if b.ID == target.ID {
			t.Fatalf("similar list must exclude the book itself")
		}
		if b.Genre != "sci-fi" {
			t.Fatalf("similar list leaked genre %q", b.Genre)
		}
	}
}

func TestRecommendationsFallBackToNewest(t *testing.T) {
	a := newTestApp(t)
	uploader := registerUser(t, a, "Uploader", "uploader@example.com")
	reader := registerUser(t, a, "Reader", "reader@example.com")
	for i := 0; i < 12; i++ {
		createBook(t, a, uploader, "Book-"+strings.Repeat("x", i+1), "sci-fi")
	}

	recs, err := a.Recommendations(reader.ID)
	if err != nil {
		t.Fatalf("recommendations: %v", err)
	}
	if len(recs) != 10 {
		t.Fatalf("expected newest 10 with no history, got %d", len(recs))
	}
}

func TestRecommendationsUseViewedGenres(t *testing.T) {
	a := newTestApp(t)
	uploader := registerUser(t, a, "Uploader", "uploader@example.com")
	reader := registerUser(t, a, "Reader", "reader@example.com")
	seen := createBook(t, a, uploader, "Dune", "sci-fi")
	fresh := createBook(t, a, uploader, "Foundation", "sci-fi")
	createBook(t, a, uploader, "Rome", "history")

	if _, err := a.GetBook(seen.ID, reader.ID); err != nil {
		t.Fatalf("view book: %v", err)
	}

	recs, err := a.Recommendations(reader.ID)
	if err != nil {
		t.Fatalf("recommendations: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != fresh.ID {
		t.Fatalf("expected only the unseen sci-fi book, got %+v", recs)
	}
}
