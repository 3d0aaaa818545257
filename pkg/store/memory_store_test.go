package store

import (
	"errors"
	"testing"
	"time"

	"bookify/pkg/domain"
)

func seedBook(t *testing.T, s *MemoryStore, id, genre string, createdAt time.Time) domain.Book {
	t.Helper()
	book := domain.Book{
		ID:         id,
		Title:      "title-" + id,
		Genre:      genre,
		BookType:   domain.TypePDF,
		UploaderID: "uploader",
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
	if err := s.SaveBook(book); err != nil {
		t.Fatalf("save book %s: %v", id, err)
	}
	return book
}

func TestListBooksNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	base := time.Now().UTC()
	seedBook(t, s, "b1", "fiction", base.Add(-2*time.Hour))
	seedBook(t, s, "b2", "fiction", base.Add(-1*time.Hour))
	seedBook(t, s, "b3", "fiction", base)

	books, err := s.ListBooks()
	if err != nil {
		t.Fatalf("list books: %v", err)
	}
	if len(books) != 3 {
		t.Fatalf("expected 3 books, got %d", len(books))
	}
	if books[0].ID != "b3" || books[2].ID != "b1" {
		t.Fatalf("expected newest-first ordering, got %s..%s", books[0].ID, books[2].ID)
	}
}

func TestWishlistAddIsIdempotent(t *testing.T) {
	s := NewMemoryStore()
	seedBook(t, s, "b1", "fiction", time.Now().UTC())
	for i := 0; i < 2; i++ {
		if err := s.AddWishlistBook("u1", "b1"); err != nil {
			t.Fatalf("add wishlist: %v", err)
		}
	}
	books, err := s.ListWishlistBooks("u1")
	if err != nil {
		t.Fatalf("list wishlist: %v", err)
	}
	if len(books) != 1 {
		t.Fatalf("expected exactly one wishlist entry, got %d", len(books))
	}
}

func TestAddReviewRecomputesAverage(t *testing.T) {
	s := NewMemoryStore()
	seedBook(t, s, "b1", "fiction", time.Now().UTC())

	avg, count, err := s.AddReview("b1", domain.Review{UserID: "u1", Rating: 5, CreatedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("add first review: %v", err)
	}
	if avg != 5 || count != 1 {
		t.Fatalf("expected avg=5 count=1, got avg=%v count=%d", avg, count)
	}

	avg, count, err = s.AddReview("b1", domain.Review{UserID: "u2", Rating: 2, CreatedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("add second review: %v", err)
	}
	if avg != 3.5 || count != 2 {
		t.Fatalf("expected avg=3.5 count=2, got avg=%v count=%d", avg, count)
	}

	if _, _, err := s.AddReview("b1", domain.Review{UserID: "u1", Rating: 4}); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected duplicate review to fail, got %v", err)
	}

	book, ok, err := s.GetBook("b1")
	if err != nil || !ok {
		t.Fatalf("get book: ok=%v err=%v", ok, err)
	}
	if book.AverageRating != 3.5 || book.RatingsCount != 2 {
		t.Fatalf("book aggregates not updated: avg=%v count=%d", book.AverageRating, book.RatingsCount)
	}
	if len(book.Reviews) != 2 {
		t.Fatalf("expected 2 embedded reviews, got %d", len(book.Reviews))
	}
}

func TestListUnseenBooksByGenres(t *testing.T) {
	s := NewMemoryStore()
	base := time.Now().UTC()
	seedBook(t, s, "seen", "fiction", base.Add(-3*time.Hour))
	seedBook(t, s, "fresh", "fiction", base.Add(-2*time.Hour))
	seedBook(t, s, "other", "history", base.Add(-1*time.Hour))

	books, err := s.ListUnseenBooksByGenres([]string{"fiction"}, []string{"seen"}, 10)
	if err != nil {
		t.Fatalf("list unseen: %v", err)
	}
	if len(books) != 1 || books[0].ID != "fresh" {
		t.Fatalf("expected only the unseen fiction book, got %+v", books)
	}
}

func TestTopViewedBooks(t *testing.T) {
	s := NewMemoryStore()
	base := time.Now().UTC()
	seedBook(t, s, "b1", "fiction", base.Add(-2*time.Hour))
	seedBook(t, s, "b2", "fiction", base.Add(-1*time.Hour))
	for i := 0; i < 3; i++ {
		if err := s.IncrementBookViews("b2"); err != nil {
			t.Fatalf("increment views: %v", err)
		}
	}
	if err := s.IncrementBookViews("b1"); err != nil {
		t.Fatalf("increment views: %v", err)
	}

	top, err := s.TopViewedBooks(1)
	if err != nil {
		t.Fatalf("top viewed: %v", err)
	}
	if len(top) != 1 || top[0].ID != "b2" || top[0].ViewsCount != 3 {
		t.Fatalf("expected b2 with 3 views on top, got %+v", top)
	}
}

func TestNotifiableEmailsSkipAdminsAndOptOuts(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now().UTC()
	users := []domain.User{
		{ID: "u1", Email: "reader@example.com", Role: domain.RoleUser, EmailNotifications: true, CreatedAt: now},
		{ID: "u2", Email: "quiet@example.com", Role: domain.RoleUser, EmailNotifications: false, CreatedAt: now},
		{ID: "u3", Email: "admin@example.com", Role: domain.RoleAdmin, EmailNotifications: true, CreatedAt: now},
	}
	for _, u := range users {
		if err := s.SaveUser(u); err != nil {
			t.Fatalf("save user: %v", err)
		}
	}
	emails, err := s.ListNotifiableEmails()
	if err != nil {
		t.Fatalf("list notifiable: %v", err)
	}
	if len(emails) != 1 || emails[0] != "reader@example.com" {
		t.Fatalf("expected only the opted-in reader, got %v", emails)
	}
}

func TestDeleteUserCleansWishlist(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now().UTC()
	if err := s.SaveUser(domain.User{ID: "u1", Email: "a@example.com", Role: domain.RoleUser, CreatedAt: now}); err != nil {
		t.Fatalf("save user: %v", err)
	}
	seedBook(t, s, "b1", "fiction", now)
	if err := s.AddWishlistBook("u1", "b1"); err != nil {
		t.Fatalf("add wishlist: %v", err)
	}
	if err := s.DeleteUser("u1"); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if _, ok, _ := s.GetUserByID("u1"); ok {
		t.Fatalf("expected user to be gone")
	}
	if ok, _ := s.HasUserEmail("a@example.com"); ok {
		t.Fatalf("expected email index to be cleaned")
	}
}

func TestUpsertReadingProgressOverwritesAndCountsVisits(t *testing.T) {
	s := NewMemoryStore()
	if err := s.UpsertReadingProgress("u1", "b1", 10); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := s.UpsertReadingProgress("u1", "b1", 70); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if err := s.UpsertReadingProgress("u1", "b2", 5); err != nil {
		t.Fatalf("other-book upsert: %v", err)
	}

	if len(s.progress) != 2 {
		t.Fatalf("expected one entry per user/book pair, got %d", len(s.progress))
	}
	p := s.progress["u1|b1"]
	if p.Progress != 70 {
		t.Fatalf("expected progress overwritten to 70, got %d", p.Progress)
	}
	if p.VisitCount != 2 {
		t.Fatalf("expected visit count 2, got %d", p.VisitCount)
	}
	if p.LastReadAt.IsZero() {
		t.Fatalf("expected last-read timestamp to be set")
	}
}
