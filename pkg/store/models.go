package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID                 string `gorm:"primaryKey"`
	Name               string `gorm:"not null"`
	Email              string `gorm:"uniqueIndex;not null"`
	PasswordHash       string `gorm:"not null"`
	Role               string `gorm:"not null"`
	EmailNotifications bool   `gorm:"not null;default:true"`
	CreatedAt          time.Time `gorm:"not null;index"`
	UpdatedAt          time.Time
}

type BookModel struct {
	ID          string `gorm:"primaryKey"`
	Title       string `gorm:"not null"`
	Description string `gorm:"type:text;not null"`
	UploaderID  string `gorm:"not null;index"`
	AuthorName  string `gorm:"not null"`
	CoverImage  string `gorm:"not null"`
	BookType    string `gorm:"not null"`
	FileURL     string
	AudioURL    string
	Duration    string
	Pages       int
	Genre       string         `gorm:"not null;index"`
	Tags        datatypes.JSON `gorm:"type:jsonb"`
	ViewsCount  int64          `gorm:"not null;index"`
	IsPaid      bool           `gorm:"not null"`
	Price       float64        `gorm:"not null"`

	AverageRating float64 `gorm:"not null"`
	RatingsCount  int     `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ReviewModel: the composite key enforces one review per user per book.
type ReviewModel struct {
	BookID    string `gorm:"primaryKey"`
	UserID    string `gorm:"primaryKey"`
	Rating    int    `gorm:"not null"`
	Comment   string
	CreatedAt time.Time `gorm:"not null"`
}

type WishlistItemModel struct {
	UserID    string    `gorm:"primaryKey"`
	BookID    string    `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"not null;index"`
}

type ViewedBookModel struct {
	UserID    string    `gorm:"primaryKey"`
	BookID    string    `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"not null;index"`
}

// PurchasedBookModel is reserved for payment integration.
type PurchasedBookModel struct {
	UserID    string    `gorm:"primaryKey"`
	BookID    string    `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
}

type BookRequestModel struct {
	ID         string `gorm:"primaryKey"`
	BookName   string `gorm:"not null"`
	AuthorName string `gorm:"not null"`
	Category   string `gorm:"not null"`
	UserEmail  string `gorm:"not null"`
	Message    string
	Status     string `gorm:"not null;index"`
	AdminNote  string
	CreatedAt  time.Time `gorm:"not null;index"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// ReadingHistoryModel: the composite key prevents duplicate history rows
// for the same user and book.
type ReadingHistoryModel struct {
	UserID     string `gorm:"primaryKey"`
	BookID     string `gorm:"primaryKey"`
	Progress   int    `gorm:"not null"`
	VisitCount int    `gorm:"not null"`
	LastReadAt time.Time `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time
}
