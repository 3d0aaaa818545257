package domain

import "time"

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type BookType string

const (
	TypePDF   BookType = "pdf"
	TypeAudio BookType = "audio"
)

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

type User struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	PasswordHash       string    `json:"-"`
	Role               UserRole  `json:"role"`
	EmailNotifications bool      `json:"emailNotifications"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Review is a single user rating embedded in a book payload.
// A user reviews a given book at most once.
type Review struct {
	UserID    string    `json:"userId"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Book is a catalog entry. Exactly one of File/AudioFile is set,
// matching BookType.
type Book struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	UploaderID  string   `json:"uploaderId"`
	AuthorName  string   `json:"authorName"`
	CoverImage  string   `json:"coverImage"`
	BookType    BookType `json:"bookType"`
	File        string   `json:"file,omitempty"`
	AudioFile   string   `json:"audioFile,omitempty"`
	Duration    string   `json:"duration,omitempty"`
	Pages       int      `json:"pages,omitempty"`
	Genre       string   `json:"genre"`
	Tags        []string `json:"tags"`
	ViewsCount  int64    `json:"viewsCount"`
	IsPaid      bool     `json:"isPaid"`
	Price       float64  `json:"price"`

	Reviews       []Review `json:"reviews,omitempty"`
	AverageRating float64  `json:"averageRating"`
	RatingsCount  int      `json:"ratingsCount"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BookRequest is a visitor's ask for a title the catalog is missing.
type BookRequest struct {
	ID         string        `json:"id"`
	BookName   string        `json:"bookName"`
	AuthorName string        `json:"authorName"`
	Category   string        `json:"category"`
	UserEmail  string        `json:"userEmail"`
	Message    string        `json:"message,omitempty"`
	Status     RequestStatus `json:"status"`
	AdminNote  string        `json:"adminNote,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// ReadingProgress tracks per-user, per-book reading position.
type ReadingProgress struct {
	UserID     string    `json:"userId"`
	BookID     string    `json:"bookId"`
	Progress   int       `json:"progress"`
	VisitCount int       `json:"visitCount"`
	LastReadAt time.Time `json:"lastReadAt"`
}

// AdminStats is the dashboard aggregate payload.
type AdminStats struct {
	TotalUsers        int64 `json:"totalUsers"`
	TotalAdmins       int64 `json:"totalAdmins"`
	TotalBooks        int64 `json:"totalBooks"`
	TotalBookRequests int64 `json:"totalBookRequests"`
}
