package app

import "errors"

// Sentinel errors returned by the application layer. Messages are shown to
// end users, so they mirror what the web client expects.
var (
	ErrAllFieldsRequired  = errors.New("All fields are required")
	ErrUserAlreadyExists  = errors.New("User already exists")
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrUserNotFound       = errors.New("User not found")

	ErrBookNotFound    = errors.New("Book not found")
	ErrInvalidBookID   = errors.New("Invalid book id")
	ErrInvalidBookType = errors.New("Invalid book type")
	ErrNotOwner        = errors.New("Not allowed")

	ErrCoverImageRequired = errors.New("Cover image is required")
	ErrBookFileRequired   = errors.New("A PDF file is required for this book type")
	ErrAudioFileRequired  = errors.New("An audio file is required for this book type")

	ErrInvalidRating   = errors.New("Rating must be between 1 and 5")
	ErrAlreadyReviewed = errors.New("Already reviewed")

	ErrAlreadyInWishlist = errors.New("Already in wishlist")

	ErrAdminUndeletable = errors.New("Admin user cannot be deleted")
	ErrInvalidStatus    = errors.New("Invalid status")
	ErrRequestNotFound  = errors.New("Book request not found")
)
