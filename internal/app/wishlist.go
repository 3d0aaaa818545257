package app

import (
	"fmt"

	"bookify/pkg/domain"
)

// AddToWishlist puts a book on the user's wishlist. Duplicates are rejected.
func (a *App) AddToWishlist(userID, bookID string) error {
	_, ok, err := a.store.GetBook(bookID)
	if err != nil {
		return fmt.Errorf("fetch book: %w", err)
	}
	if !ok {
		return ErrInvalidBookID
	}
	has, err := a.store.HasWishlistBook(userID, bookID)
	if err != nil {
		return fmt.Errorf("check wishlist: %w", err)
	}
	if has {
		return ErrAlreadyInWishlist
	}
	if err := a.store.AddWishlistBook(userID, bookID); err != nil {
		return fmt.Errorf("add wishlist: %w", err)
	}
	return nil
}

// RemoveFromWishlist drops a book from the wishlist. Removing an absent
// entry is a no-op.
func (a *App) RemoveFromWishlist(userID, bookID string) error {
	if err := a.store.RemoveWishlistBook(userID, bookID); err != nil {
		return fmt.Errorf("remove wishlist: %w", err)
	}
	return nil
}

// Wishlist returns the user's wishlisted books, most recently added first.
func (a *App) Wishlist(userID string) ([]domain.Book, error) {
	_, ok, err := a.store.GetUserByID(userID)
	if err != nil {
		return nil, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return nil, ErrUserNotFound
	}
	return a.store.ListWishlistBooks(userID)
}
