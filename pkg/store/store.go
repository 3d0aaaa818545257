package store

import (
	"errors"

	"bookify/pkg/domain"
)

// ErrAlreadyExists signals a unique-constraint style conflict (duplicate
// review, duplicate email).
var ErrAlreadyExists = errors.New("already exists")

// Store defines persistence for users, books, reviews, and book requests.
// List operations return newest-first unless noted.
type Store interface {
	// users
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)
	ListUsers() ([]domain.User, error)
	ListRecentUsers(limit int) ([]domain.User, error)
	DeleteUser(id string) error
	CountUsers() (int64, error)
	CountUsersByRole(role domain.UserRole) (int64, error)
	// ListNotifiableEmails returns addresses of non-admin users who have
	// email notifications enabled.
	ListNotifiableEmails() ([]string, error)

	// wishlist
	HasWishlistBook(userID, bookID string) (bool, error)
	AddWishlistBook(userID, bookID string) error
	RemoveWishlistBook(userID, bookID string) error
	ListWishlistBooks(userID string) ([]domain.Book, error)

	// viewed-books history (ordered, feeds recommendations)
	MarkBookViewed(userID, bookID string) error
	ListViewedBookIDs(userID string) ([]string, error)

	// books
	SaveBook(domain.Book) error
	GetBook(id string) (domain.Book, bool, error)
	ListBooks() ([]domain.Book, error)
	ListRecentBooks(limit int) ([]domain.Book, error)
	DeleteBook(id string) error
	CountBooks() (int64, error)
	IncrementBookViews(id string) error
	ListBooksByGenre(genre, excludeID string, limit int) ([]domain.Book, error)
	ListLatestBooks(limit int) ([]domain.Book, error)
	ListBooksByIDs(ids []string) ([]domain.Book, error)
	// ListUnseenBooksByGenres returns books in any of the genres whose id is
	// not in seenIDs.
	ListUnseenBooksByGenres(genres []string, seenIDs []string, limit int) ([]domain.Book, error)
	TopViewedBooks(limit int) ([]domain.Book, error)

	// reviews
	HasReview(bookID, userID string) (bool, error)
	// AddReview appends a review and returns the recomputed average rating
	// and ratings count. ErrAlreadyExists when the user already reviewed.
	AddReview(bookID string, review domain.Review) (float64, int, error)

	// book requests
	SaveBookRequest(domain.BookRequest) error
	GetBookRequest(id string) (domain.BookRequest, bool, error)
	ListBookRequests() ([]domain.BookRequest, error)
	ListRecentBookRequests(limit int) ([]domain.BookRequest, error)
	CountBookRequests() (int64, error)
	SetBookRequestStatus(id string, status domain.RequestStatus, adminNote string) error

	// reading history
	UpsertReadingProgress(userID, bookID string, progress int) error
}
