package app

import (
	"fmt"

	"bookify/pkg/domain"
)

const recentLimit = 5

// StatsOverview is the admin dashboard payload.
type StatsOverview struct {
	Totals         domain.AdminStats    `json:"totals"`
	RecentUsers    []domain.User        `json:"recentUsers"`
	RecentBooks    []domain.Book        `json:"recentBooks"`
	RecentRequests []domain.BookRequest `json:"recentRequests"`
}

// Stats aggregates counts and the most recent records for the dashboard.
func (a *App) Stats() (StatsOverview, error) {
	var out StatsOverview
	var err error
	if out.Totals.TotalUsers, err = a.store.CountUsers(); err != nil {
		return StatsOverview{}, fmt.Errorf("count users: %w", err)
	}
	if out.Totals.TotalAdmins, err = a.store.CountUsersByRole(domain.RoleAdmin); err != nil {
		return StatsOverview{}, fmt.Errorf("count admins: %w", err)
	}
	if out.Totals.TotalBooks, err = a.store.CountBooks(); err != nil {
		return StatsOverview{}, fmt.Errorf("count books: %w", err)
	}
	if out.Totals.TotalBookRequests, err = a.store.CountBookRequests(); err != nil {
		return StatsOverview{}, fmt.Errorf("count requests: %w", err)
	}
	if out.RecentUsers, err = a.store.ListRecentUsers(recentLimit); err != nil {
		return StatsOverview{}, fmt.Errorf("recent users: %w", err)
	}
	if out.RecentBooks, err = a.store.ListRecentBooks(recentLimit); err != nil {
		return StatsOverview{}, fmt.Errorf("recent books: %w", err)
	}
	if out.RecentRequests, err = a.store.ListRecentBookRequests(recentLimit); err != nil {
		return StatsOverview{}, fmt.Errorf("recent requests: %w", err)
	}
	return out, nil
}

// ListUsers returns every account for the admin panel.
func (a *App) ListUsers() ([]domain.User, error) {
	return a.store.ListUsers()
}

// DeleteUser removes a non-admin account and its dependent rows.
func (a *App) DeleteUser(id string) error {
	user, ok, err := a.store.GetUserByID(id)
	if err != nil {
		return fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return ErrUserNotFound
	}
	if user.Role == domain.RoleAdmin {
		return ErrAdminUndeletable
	}
	if err := a.store.DeleteUser(id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// TopViewedBooks returns the five most viewed books.
func (a *App) TopViewedBooks() ([]domain.Book, error) {
	return a.store.TopViewedBooks(recentLimit)
}
