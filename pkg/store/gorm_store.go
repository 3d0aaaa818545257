package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"bookify/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(
		&UserModel{},
		&BookModel{},
		&ReviewModel{},
		&WishlistItemModel{},
		&ViewedBookModel{},
		&PurchasedBookModel{},
		&BookRequestModel{},
		&ReadingHistoryModel{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// SaveUser registers or updates a user.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "email", "password_hash", "role", "email_notifications", "updated_at"}),
	}).Create(&model).Error
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// ListUsers returns all users, newest first.
func (s *GormStore) ListUsers() ([]domain.User, error) {
	return s.listUsers(0)
}

// ListRecentUsers returns the most recently registered users.
func (s *GormStore) ListRecentUsers(limit int) ([]domain.User, error) {
	return s.listUsers(limit)
}

func (s *GormStore) listUsers(limit int) ([]domain.User, error) {
	var models []UserModel
	tx := s.db.Order("created_at DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.User, 0, len(models))
	for _, m := range models {
		res = append(res, userFromModel(m))
	}
	return res, nil
}

// DeleteUser removes the user and its wishlist/history rows.
func (s *GormStore) DeleteUser(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&WishlistItemModel{}, "user_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&ViewedBookModel{}, "user_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&ReadingHistoryModel{}, "user_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&UserModel{}, "id = ?", id).Error
	})
}

// CountUsers returns the number of users.
func (s *GormStore) CountUsers() (int64, error) {
	var count int64
	err := s.db.Model(&UserModel{}).Count(&count).Error
	return count, err
}

// CountUsersByRole counts users with the given role.
func (s *GormStore) CountUsersByRole(role domain.UserRole) (int64, error) {
	var count int64
	err := s.db.Model(&UserModel{}).Where("role = ?", string(role)).Count(&count).Error
	return count, err
}

// ListNotifiableEmails returns opted-in non-admin addresses.
func (s *GormStore) ListNotifiableEmails() ([]string, error) {
	var emails []string
	err := s.db.Model(&UserModel{}).
		Where("role = ? AND email_notifications = ?", string(domain.RoleUser), true).
		Pluck("email", &emails).Error
	return emails, err
}

// HasWishlistBook reports whether the book is already wishlisted.
func (s *GormStore) HasWishlistBook(userID, bookID string) (bool, error) {
	var count int64
	err := s.db.Model(&WishlistItemModel{}).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Count(&count).Error
	return count > 0, err
}

// AddWishlistBook appends a wishlist entry; duplicate inserts are ignored.
func (s *GormStore) AddWishlistBook(userID, bookID string) error {
	item := WishlistItemModel{UserID: userID, BookID: bookID, CreatedAt: time.Now().UTC()}
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&item).Error
}

// RemoveWishlistBook removes a wishlist entry; no-op when absent.
func (s *GormStore) RemoveWishlistBook(userID, bookID string) error {
	return s.db.Delete(&WishlistItemModel{}, "user_id = ? AND book_id = ?", userID, bookID).Error
}

// ListWishlistBooks returns full book documents for the user's wishlist.
func (s *GormStore) ListWishlistBooks(userID string) ([]domain.Book, error) {
	var models []BookModel
	if err := s.db.Model(&BookModel{}).
		Joins("JOIN wishlist_item_models w ON w.book_id = book_models.id").
		Where("w.user_id = ?", userID).
		Order("w.created_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return booksFromModels(models), nil
}

// MarkBookViewed records the book in the user's viewed history.
func (s *GormStore) MarkBookViewed(userID, bookID string) error {
	item := ViewedBookModel{UserID: userID, BookID: bookID, CreatedAt: time.Now().UTC()}
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&item).Error
}

// ListViewedBookIDs returns viewed book ids, oldest first.
func (s *GormStore) ListViewedBookIDs(userID string) ([]string, error) {
	var ids []string
	err := s.db.Model(&ViewedBookModel{}).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Pluck("book_id", &ids).Error
	return ids, err
}

// SaveBook stores or updates a book.
func (s *GormStore) SaveBook(b domain.Book) error {
	model := bookToModel(b)
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "description", "author_name", "cover_image", "book_type",
			"file_url", "audio_url", "duration", "pages", "genre", "tags",
			"is_paid", "price", "updated_at",
		}),
	}).Create(&model).Error
}

// GetBook retrieves a book with its reviews.
func (s *GormStore) GetBook(id string) (domain.Book, bool, error) {
	var model BookModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Book{}, false, nil
		}
		return domain.Book{}, false, err
	}
	book := bookFromModel(model)
	var reviews []ReviewModel
	if err := s.db.Where("book_id = ?", id).Order("created_at ASC").Find(&reviews).Error; err != nil {
		return domain.Book{}, false, err
	}
	for _, r := range reviews {
		book.Reviews = append(book.Reviews, reviewFromModel(r))
	}
	return book, true, nil
}

// ListBooks returns all books, newest first.
func (s *GormStore) ListBooks() ([]domain.Book, error) {
	return s.listBooks(0, "created_at DESC")
}

// ListRecentBooks returns the most recently added books.
func (s *GormStore) ListRecentBooks(limit int) ([]domain.Book, error) {
	return s.listBooks(limit, "created_at DESC")
}

// ListLatestBooks is the empty-history recommendation fallback.
func (s *GormStore) ListLatestBooks(limit int) ([]domain.Book, error) {
	return s.listBooks(limit, "created_at DESC")
}

// TopViewedBooks ranks books by view counter.
func (s *GormStore) TopViewedBooks(limit int) ([]domain.Book, error) {
	return s.listBooks(limit, "views_count DESC")
}

func (s *GormStore) listBooks(limit int, order string, conds ...any) ([]domain.Book, error) {
	var models []BookModel
	tx := s.db.Order(order)
	if len(conds) > 0 {
		tx = tx.Where(conds[0], conds[1:]...)
	}
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	return booksFromModels(models), nil
}

// DeleteBook removes the book and its dependent rows.
func (s *GormStore) DeleteBook(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&ReviewModel{}, "book_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&WishlistItemModel{}, "book_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&ViewedBookModel{}, "book_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&ReadingHistoryModel{}, "book_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&BookModel{}, "id = ?", id).Error
	})
}

// CountBooks returns the number of books.
func (s *GormStore) CountBooks() (int64, error) {
	var count int64
	err := s.db.Model(&BookModel{}).Count(&count).Error
	return count, err
}

// IncrementBookViews bumps the view counter atomically.
func (s *GormStore) IncrementBookViews(id string) error {
	return s.db.Model(&BookModel{}).
		Where("id = ?", id).
		UpdateColumn("views_count", gorm.Expr("views_count + 1")).Error
}

// ListBooksByGenre returns same-genre books, excluding one id.
func (s *GormStore) ListBooksByGenre(genre, excludeID string, limit int) ([]domain.Book, error) {
	return s.listBooks(limit, "created_at DESC", "genre = ? AND id <> ?", genre, excludeID)
}

// ListBooksByIDs returns the books with the given ids.
func (s *GormStore) ListBooksByIDs(ids []string) ([]domain.Book, error) {
	if len(ids) == 0 {
		return []domain.Book{}, nil
	}
	return s.listBooks(0, "created_at DESC", "id IN ?", ids)
}

// ListUnseenBooksByGenres returns genre matches the user has not viewed.
func (s *GormStore) ListUnseenBooksByGenres(genres []string, seenIDs []string, limit int) ([]domain.Book, error) {
	if len(genres) == 0 {
		return []domain.Book{}, nil
	}
	if len(seenIDs) == 0 {
		return s.listBooks(limit, "created_at DESC", "genre IN ?", genres)
	}
	return s.listBooks(limit, "created_at DESC", "genre IN ? AND id NOT IN ?", genres, seenIDs)
}

// HasReview reports whether the user already reviewed the book.
func (s *GormStore) HasReview(bookID, userID string) (bool, error) {
	var count int64
	err := s.db.Model(&ReviewModel{}).
		Where("book_id = ? AND user_id = ?", bookID, userID).
		Count(&count).Error
	return count > 0, err
}

// AddReview inserts a review and recomputes the book's average rating.
func (s *GormStore) AddReview(bookID string, review domain.Review) (float64, int, error) {
	var avg float64
	var count int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		model := ReviewModel{
			BookID:    bookID,
			UserID:    review.UserID,
			Rating:    review.Rating,
			Comment:   review.Comment,
			CreatedAt: review.CreatedAt,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyExists
		}
		row := tx.Model(&ReviewModel{}).
			Select("COALESCE(AVG(rating), 0), COUNT(*)").
			Where("book_id = ?", bookID).
			Row()
		if err := row.Scan(&avg, &count); err != nil {
			return err
		}
		return tx.Model(&BookModel{}).
			Where("id = ?", bookID).
			Updates(map[string]any{
				"average_rating": avg,
				"ratings_count":  count,
				"updated_at":     time.Now().UTC(),
			}).Error
	})
	if err != nil {
		return 0, 0, err
	}
	return avg, int(count), nil
}

// SaveBookRequest persists a request.
func (s *GormStore) SaveBookRequest(r domain.BookRequest) error {
	model := requestToModel(r)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "admin_note", "updated_at"}),
	}).Create(&model).Error
}

// GetBookRequest returns one request by id.
func (s *GormStore) GetBookRequest(id string) (domain.BookRequest, bool, error) {
	var model BookRequestModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.BookRequest{}, false, nil
		}
		return domain.BookRequest{}, false, err
	}
	return requestFromModel(model), true, nil
}

// ListBookRequests returns all requests, newest first.
func (s *GormStore) ListBookRequests() ([]domain.BookRequest, error) {
	return s.listBookRequests(0)
}

// ListRecentBookRequests returns the most recent requests.
func (s *GormStore) ListRecentBookRequests(limit int) ([]domain.BookRequest, error) {
	return s.listBookRequests(limit)
}

func (s *GormStore) listBookRequests(limit int) ([]domain.BookRequest, error) {
	var models []BookRequestModel
	tx := s.db.Order("created_at DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.BookRequest, 0, len(models))
	for _, m := range models {
		res = append(res, requestFromModel(m))
	}
	return res, nil
}

// CountBookRequests returns the number of requests.
func (s *GormStore) CountBookRequests() (int64, error) {
	var count int64
	err := s.db.Model(&BookRequestModel{}).Count(&count).Error
	return count, err
}

// SetBookRequestStatus updates the workflow status and admin note.
func (s *GormStore) SetBookRequestStatus(id string, status domain.RequestStatus, adminNote string) error {
	return s.db.Model(&BookRequestModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     string(status),
			"admin_note": adminNote,
			"updated_at": time.Now().UTC(),
		}).Error
}

// UpsertReadingProgress records or advances per-user reading progress.
func (s *GormStore) UpsertReadingProgress(userID, bookID string, progress int) error {
	now := time.Now().UTC()
	model := ReadingHistoryModel{
		UserID:     userID,
		BookID:     bookID,
		Progress:   progress,
		VisitCount: 1,
		LastReadAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "book_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"progress":     progress,
			"visit_count":  gorm.Expr("reading_history_models.visit_count + 1"),
			"last_read_at": now,
			"updated_at":   now,
		}),
	}).Create(&model).Error
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:                 u.ID,
		Name:               u.Name,
		Email:              u.Email,
		PasswordHash:       u.PasswordHash,
		Role:               string(u.Role),
		EmailNotifications: u.EmailNotifications,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:                 m.ID,
		Name:               m.Name,
		Email:              m.Email,
		PasswordHash:       m.PasswordHash,
		Role:               domain.UserRole(m.Role),
		EmailNotifications: m.EmailNotifications,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func bookToModel(b domain.Book) BookModel {
	tags, _ := json.Marshal(b.Tags)
	return BookModel{
		ID:            b.ID,
		Title:         b.Title,
		Description:   b.Description,
		UploaderID:    b.UploaderID,
		AuthorName:    b.AuthorName,
		CoverImage:    b.CoverImage,
		BookType:      string(b.BookType),
		FileURL:       b.File,
		AudioURL:      b.AudioFile,
		Duration:      b.Duration,
		Pages:         b.Pages,
		Genre:         b.Genre,
		Tags:          tags,
		ViewsCount:    b.ViewsCount,
		IsPaid:        b.IsPaid,
		Price:         b.Price,
		AverageRating: b.AverageRating,
		RatingsCount:  b.RatingsCount,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

func bookFromModel(m BookModel) domain.Book {
	var tags []string
	if len(m.Tags) > 0 {
		_ = json.Unmarshal(m.Tags, &tags)
	}
	if tags == nil {
		tags = []string{}
	}
	return domain.Book{
		ID:            m.ID,
		Title:         m.Title,
		Description:   m.Description,
		UploaderID:    m.UploaderID,
		AuthorName:    m.AuthorName,
		CoverImage:    m.CoverImage,
		BookType:      domain.BookType(m.BookType),
		File:          m.FileURL,
		AudioFile:     m.AudioURL,
		Duration:      m.Duration,
		Pages:         m.Pages,
		Genre:         m.Genre,
		Tags:          tags,
		ViewsCount:    m.ViewsCount,
		IsPaid:        m.IsPaid,
		Price:         m.Price,
		AverageRating: m.AverageRating,
		RatingsCount:  m.RatingsCount,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func booksFromModels(models []BookModel) []domain.Book {
	res := make([]domain.Book, 0, len(models))
	for _, m := range models {
		res = append(res, bookFromModel(m))
	}
	return res
}

func reviewFromModel(m ReviewModel) domain.Review {
	return domain.Review{
		UserID:    m.UserID,
		Rating:    m.Rating,
		Comment:   m.Comment,
		CreatedAt: m.CreatedAt,
	}
}

func requestToModel(r domain.BookRequest) BookRequestModel {
	return BookRequestModel{
		ID:         r.ID,
		BookName:   r.BookName,
		AuthorName: r.AuthorName,
		Category:   r.Category,
		UserEmail:  r.UserEmail,
		Message:    r.Message,
		Status:     string(r.Status),
		AdminNote:  r.AdminNote,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func requestFromModel(m BookRequestModel) domain.BookRequest {
	return domain.BookRequest{
		ID:         m.ID,
		BookName:   m.BookName,
		AuthorName: m.AuthorName,
		Category:   m.Category,
		UserEmail:  m.UserEmail,
		Message:    m.Message,
		Status:     domain.RequestStatus(m.Status),
		AdminNote:  m.AdminNote,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}
