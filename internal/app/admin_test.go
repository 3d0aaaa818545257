package app

import (
	"context"
	"errors"
	"testing"

	"bookify/pkg/domain"
)

func TestSubmitBookRequest(t *testing.T) {
	a := newTestApp(t)

	if _, err := a.SubmitBookRequest(context.Background(), "Dune", "", "sci-fi", "reader@example.com", ""); !errors.Is(err, ErrAllFieldsRequired) {
		t.Fatalf("expected missing author to fail, got %v", err)
	}

	req, err := a.SubmitBookRequest(context.Background(), "Dune", "Frank Herbert", "sci-fi", "Reader@Example.com", "please")
	if err != nil {
		t.Fatalf("submit request: %v", err)
	}
	if req.Status != domain.RequestPending {
		t.Fatalf("expected pending status, got %s", req.Status)
	}
	if req.UserEmail != "reader@example.com" {
		t.Fatalf("expected lowercased email, got %q", req.UserEmail)
	}
	if len(a.notifier.requests) != 1 {
		t.Fatalf("expected an admin notice, got %d", len(a.notifier.requests))
	}

	listed, err := a.ListBookRequests()
	if err != nil {
		t.Fatalf("list requests: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != req.ID {
		t.Fatalf("unexpected request listing: %+v", listed)
	}
}

func TestTriageBookRequest(t *testing.T) {
	a := newTestApp(t)
	req, err := a.SubmitBookRequest(context.Background(), "Dune", "Frank Herbert", "sci-fi", "reader@example.com", "")
	if err != nil {
		t.Fatalf("submit request: %v", err)
	}

	if _, err := a.TriageBookRequest(req.ID, "archived", ""); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected invalid status to fail, got %v", err)
	}
	if _, err := a.TriageBookRequest("missing", "approved", ""); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("expected unknown request to fail, got %v", err)
	}

	updated, err := a.TriageBookRequest(req.ID, "approved", "ordered a copy")
	if err != nil {
		t.Fatalf("triage: %v", err)
	}
	if updated.Status != domain.RequestApproved || updated.AdminNote != "ordered a copy" {
		t.Fatalf("unexpected triage result: %+v", updated)
	}

	stored, ok, err := a.store.GetBookRequest(req.ID)
	if err != nil || !ok {
		t.Fatalf("get request: ok=%v err=%v", ok, err)
	}
	if stored.Status != domain.RequestApproved {
		t.Fatalf("status not persisted: %s", stored.Status)
	}
}

func TestStatsAggregates(t *testing.T) {
	a := newTestApp(t)
	admin := registerUser(t, a, "Root", "root@example.com")
	registerUser(t, a, "Reader", "reader@example.com")
	createBook(t, a, admin, "Dune", "sci-fi")
	if _, err := a.SubmitBookRequest(context.Background(), "Hyperion", "Dan Simmons", "sci-fi", "reader@example.com", ""); err != nil {
		t.Fatalf("submit request: %v", err)
	}

	stats, err := a.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Totals.TotalUsers != 2 || stats.Totals.TotalAdmins != 1 {
		t.Fatalf("unexpected user totals: %+v", stats.Totals)
	}
	if stats.Totals.TotalBooks != 1 || stats.Totals.TotalBookRequests != 1 {
		t.Fatalf("unexpected book totals: %+v", stats.Totals)
	}
	if len(stats.RecentUsers) != 2 || len(stats.RecentBooks) != 1 || len(stats.RecentRequests) != 1 {
		t.Fatalf("unexpected recent slices: %+v", stats)
	}
}

func TestDeleteUserProtectsAdmins(t *testing.T) {
	a := newTestApp(t)
	admin := registerUser(t, a, "Root", "root@example.com")
	reader := registerUser(t, a, "Reader", "reader@example.com")

	if err := a.DeleteUser(admin.ID); !errors.Is(err, ErrAdminUndeletable) {
		t.Fatalf("expected admin deletion to fail, got %v", err)
	}
	if err := a.DeleteUser("missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected unknown user to fail, got %v", err)
	}
	if err := a.DeleteUser(reader.ID); err != nil {
		t.Fatalf("delete reader: %v", err)
	}
	users, err := a.ListUsers()
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 1 || users[0].ID != admin.ID {
		t.Fatalf("unexpected remaining users: %+v", users)
	}
}

func TestTopViewedBooks(t *testing.T) {
	a := newTestApp(t)
	uploader := registerUser(t, a, "Uploader", "uploader@example.com")
	quiet := createBook(t, a, uploader, "Quiet", "sci-fi")
	popular := createBook(t, a, uploader, "Popular", "sci-fi")
	for i := 0; i < 3; i++ {
		if _, err := a.GetBook(popular.ID, ""); err != nil {
			t.Fatalf("view popular: %v", err)
		}
	}
	if _, err := a.GetBook(quiet.ID, ""); err != nil {
		t.Fatalf("view quiet: %v", err)
	}

	top, err := a.TopViewedBooks()
	if err != nil {
		t.Fatalf("top viewed: %v", err)
	}
	if len(top) != 2 || top[0].ID != popular.ID {
		t.Fatalf("unexpected top viewed order: %+v", top)
	}
}
