package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bookify/internal/util"
	"bookify/pkg/domain"
)

// SubmitBookRequest records a public catalog request and notifies the admin
// best effort. The request is persisted before any email is attempted.
func (a *App) SubmitBookRequest(ctx context.Context, bookName, authorName, category, userEmail, message string) (domain.BookRequest, error) {
	bookName = strings.TrimSpace(bookName)
	authorName = strings.TrimSpace(authorName)
	category = strings.TrimSpace(category)
	userEmail = strings.TrimSpace(strings.ToLower(userEmail))
	if bookName == "" || authorName == "" || category == "" || userEmail == "" {
		return domain.BookRequest{}, ErrAllFieldsRequired
	}
	now := time.Now().UTC()
	req := domain.BookRequest{
		ID:         util.NewID(),
		BookName:   bookName,
		AuthorName: authorName,
		Category:   category,
		UserEmail:  userEmail,
		Message:    strings.TrimSpace(message),
		Status:     domain.RequestPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := a.store.SaveBookRequest(req); err != nil {
		return domain.BookRequest{}, fmt.Errorf("save book request: %w", err)
	}
	a.notifier.BookRequested(ctx, req)
	return req, nil
}

// ListBookRequests returns all requests, newest first.
func (a *App) ListBookRequests() ([]domain.BookRequest, error) {
	return a.store.ListBookRequests()
}

// TriageBookRequest lets an admin approve or reject a pending request.
func (a *App) TriageBookRequest(id, status, adminNote string) (domain.BookRequest, error) {
	newStatus := domain.RequestStatus(strings.TrimSpace(strings.ToLower(status)))
	switch newStatus {
	case domain.RequestApproved, domain.RequestRejected, domain.RequestPending:
	default:
		return domain.BookRequest{}, ErrInvalidStatus
	}
	req, ok, err := a.store.GetBookRequest(id)
	if err != nil {
		return domain.BookRequest{}, fmt.Errorf("fetch book request: %w", err)
	}
	if !ok {
		return domain.BookRequest{}, ErrRequestNotFound
	}
	adminNote = strings.TrimSpace(adminNote)
	if err := a.store.SetBookRequestStatus(id, newStatus, adminNote); err != nil {
		return domain.BookRequest{}, fmt.Errorf("set request status: %w", err)
	}
	req.Status = newStatus
	req.AdminNote = adminNote
	req.UpdatedAt = time.Now().UTC()
	return req, nil
}
