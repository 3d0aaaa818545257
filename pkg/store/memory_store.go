package store

import (
	"sort"
	"sync"
	"time"

	"bookify/pkg/domain"
)

// MemoryStore keeps everything in-process. It backs unit tests and mirrors
// the GormStore ordering semantics (newest first).
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]domain.User
	userOrder []string
	email     map[string]string // email -> user ID

	books     map[string]domain.Book
	bookOrder []string
	reviews   map[string][]domain.Review // book ID -> reviews

	wishlist map[string][]string // user ID -> book IDs, oldest first
	viewed   map[string][]string // user ID -> book IDs, oldest first

	requests     map[string]domain.BookRequest
	requestOrder []string

	progress map[string]domain.ReadingProgress // user|book -> progress
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]domain.User),
		email:    make(map[string]string),
		books:    make(map[string]domain.Book),
		reviews:  make(map[string][]domain.Review),
		wishlist: make(map[string][]string),
		viewed:   make(map[string][]string),
		requests: make(map[string]domain.BookRequest),
		progress: make(map[string]domain.ReadingProgress),
	}
}

func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[u.ID]; !exists {
		m.userOrder = append(m.userOrder, u.ID)
	}
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return nil
}

func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.email[email]
	return ok, nil
}

func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.email[email]
	if !ok {
		return domain.User{}, false, nil
	}
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) ListUsers() ([]domain.User, error) {
	return m.listUsers(0)
}

func (m *MemoryStore) ListRecentUsers(limit int) ([]domain.User, error) {
	return m.listUsers(limit)
}

func (m *MemoryStore) listUsers(limit int) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.User, 0, len(m.userOrder))
	for i := len(m.userOrder) - 1; i >= 0; i-- {
		if u, ok := m.users[m.userOrder[i]]; ok {
			res = append(res, u)
		}
	}
	sortNewestFirst(res, func(u domain.User) time.Time { return u.CreatedAt })
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (m *MemoryStore) DeleteUser(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		delete(m.email, u.Email)
	}
	delete(m.users, id)
	delete(m.wishlist, id)
	delete(m.viewed, id)
	m.userOrder = removeString(m.userOrder, id)
	return nil
}

func (m *MemoryStore) CountUsers() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.users)), nil
}

func (m *MemoryStore) CountUsersByRole(role domain.UserRole) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var count int64
	for _, u := range m.users {
		if u.Role == role {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) ListNotifiableEmails() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	emails := make([]string, 0, len(m.userOrder))
	for _, id := range m.userOrder {
		u, ok := m.users[id]
		if ok && u.Role == domain.RoleUser && u.EmailNotifications {
			emails = append(emails, u.Email)
		}
	}
	return emails, nil
}

func (m *MemoryStore) HasWishlistBook(userID, bookID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return containsString(m.wishlist[userID], bookID), nil
}

func (m *MemoryStore) AddWishlistBook(userID, bookID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if containsString(m.wishlist[userID], bookID) {
		return nil
	}
	m.wishlist[userID] = append(m.wishlist[userID], bookID)
	return nil
}

func (m *MemoryStore) RemoveWishlistBook(userID, bookID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wishlist[userID] = removeString(m.wishlist[userID], bookID)
	return nil
}

func (m *MemoryStore) ListWishlistBooks(userID string) ([]domain.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.wishlist[userID]
	res := make([]domain.Book, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if b, ok := m.books[ids[i]]; ok {
			res = append(res, m.withReviews(b))
		}
	}
	return res, nil
}

func (m *MemoryStore) MarkBookViewed(userID, bookID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if containsString(m.viewed[userID], bookID) {
		return nil
	}
	m.viewed[userID] = append(m.viewed[userID], bookID)
	return nil
}

func (m *MemoryStore) ListViewedBookIDs(userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.viewed[userID]...), nil
}

func (m *MemoryStore) SaveBook(b domain.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.books[b.ID]; !exists {
		m.bookOrder = append(m.bookOrder, b.ID)
	}
	m.books[b.ID] = b
	return nil
}

func (m *MemoryStore) GetBook(id string) (domain.Book, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.books[id]
	if !ok {
		return domain.Book{}, false, nil
	}
	return m.withReviews(b), true, nil
}

func (m *MemoryStore) ListBooks() ([]domain.Book, error) {
	return m.listBooks(0, nil)
}

func (m *MemoryStore) ListRecentBooks(limit int) ([]domain.Book, error) {
	return m.listBooks(limit, nil)
}

func (m *MemoryStore) ListLatestBooks(limit int) ([]domain.Book, error) {
	return m.listBooks(limit, nil)
}

func (m *MemoryStore) listBooks(limit int, keep func(domain.Book) bool) ([]domain.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Book, 0, len(m.bookOrder))
	for i := len(m.bookOrder) - 1; i >= 0; i-- {
		b, ok := m.books[m.bookOrder[i]]
		if !ok {
			continue
		}
		if keep != nil && !keep(b) {
			continue
		}
		res = append(res, b)
	}
	sortNewestFirst(res, func(b domain.Book) time.Time { return b.CreatedAt })
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (m *MemoryStore) DeleteBook(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.books, id)
	delete(m.reviews, id)
	m.bookOrder = removeString(m.bookOrder, id)
	for userID := range m.wishlist {
		m.wishlist[userID] = removeString(m.wishlist[userID], id)
	}
	for userID := range m.viewed {
		m.viewed[userID] = removeString(m.viewed[userID], id)
	}
	return nil
}

func (m *MemoryStore) CountBooks() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.books)), nil
}

func (m *MemoryStore) IncrementBookViews(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return nil
	}
	b.ViewsCount++
	m.books[id] = b
	return nil
}

func (m *MemoryStore) ListBooksByGenre(genre, excludeID string, limit int) ([]domain.Book, error) {
	return m.listBooks(limit, func(b domain.Book) bool {
		return b.Genre == genre && b.ID != excludeID
	})
}

func (m *MemoryStore) ListBooksByIDs(ids []string) ([]domain.Book, error) {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return m.listBooks(0, func(b domain.Book) bool {
		_, ok := set[b.ID]
		return ok
	})
}

func (m *MemoryStore) ListUnseenBooksByGenres(genres []string, seenIDs []string, limit int) ([]domain.Book, error) {
	if len(genres) == 0 {
		return []domain.Book{}, nil
	}
	genreSet := make(map[string]struct{}, len(genres))
	for _, g := range genres {
		genreSet[g] = struct{}{}
	}
	seen := make(map[string]struct{}, len(seenIDs))
	for _, id := range seenIDs {
		seen[id] = struct{}{}
	}
	return m.listBooks(limit, func(b domain.Book) bool {
		if _, ok := genreSet[b.Genre]; !ok {
			return false
		}
		_, viewed := seen[b.ID]
		return !viewed
	})
}

func (m *MemoryStore) TopViewedBooks(limit int) ([]domain.Book, error) {
	books, err := m.listBooks(0, nil)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(books, func(i, j int) bool {
		return books[i].ViewsCount > books[j].ViewsCount
	})
	if limit > 0 && len(books) > limit {
		books = books[:limit]
	}
	return books, nil
}

func (m *MemoryStore) HasReview(bookID, userID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.reviews[bookID] {
		if r.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) AddReview(bookID string, review domain.Review) (float64, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reviews[bookID] {
		if r.UserID == review.UserID {
			return 0, 0, ErrAlreadyExists
		}
	}
	m.reviews[bookID] = append(m.reviews[bookID], review)
	sum := 0
	for _, r := range m.reviews[bookID] {
		sum += r.Rating
	}
	count := len(m.reviews[bookID])
	avg := float64(sum) / float64(count)
	if b, ok := m.books[bookID]; ok {
		b.AverageRating = avg
		b.RatingsCount = count
		m.books[bookID] = b
	}
	return avg, count, nil
}

func (m *MemoryStore) SaveBookRequest(r domain.BookRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.requests[r.ID]; !exists {
		m.requestOrder = append(m.requestOrder, r.ID)
	}
	m.requests[r.ID] = r
	return nil
}

func (m *MemoryStore) GetBookRequest(id string) (domain.BookRequest, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.requests[id]
	return r, ok, nil
}

func (m *MemoryStore) ListBookRequests() ([]domain.BookRequest, error) {
	return m.listBookRequests(0)
}

func (m *MemoryStore) ListRecentBookRequests(limit int) ([]domain.BookRequest, error) {
	return m.listBookRequests(limit)
}

func (m *MemoryStore) listBookRequests(limit int) ([]domain.BookRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.BookRequest, 0, len(m.requestOrder))
	for i := len(m.requestOrder) - 1; i >= 0; i-- {
		if r, ok := m.requests[m.requestOrder[i]]; ok {
			res = append(res, r)
		}
	}
	sortNewestFirst(res, func(r domain.BookRequest) time.Time { return r.CreatedAt })
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (m *MemoryStore) CountBookRequests() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.requests)), nil
}

func (m *MemoryStore) SetBookRequestStatus(id string, status domain.RequestStatus, adminNote string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil
	}
	r.Status = status
	r.AdminNote = adminNote
	r.UpdatedAt = time.Now().UTC()
	m.requests[id] = r
	return nil
}

func (m *MemoryStore) UpsertReadingProgress(userID, bookID string, progress int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := userID + "|" + bookID
	p, ok := m.progress[key]
	if !ok {
		p = domain.ReadingProgress{UserID: userID, BookID: bookID}
	}
	p.Progress = progress
	p.VisitCount++
	p.LastReadAt = time.Now().UTC()
	m.progress[key] = p
	return nil
}

func (m *MemoryStore) withReviews(b domain.Book) domain.Book {
	if reviews := m.reviews[b.ID]; len(reviews) > 0 {
		b.Reviews = append([]domain.Review(nil), reviews...)
	}
	return b
}

// sortNewestFirst orders by timestamp descending, keeping reverse insertion
// order for equal timestamps.
func sortNewestFirst[T any](items []T, at func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return at(items[i]).After(at(items[j]))
	})
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func removeString(list []string, s string) []string {
	filtered := list[:0]
	for _, item := range list {
		if item != s {
			filtered = append(filtered, item)
		}
	}
	return filtered
}
