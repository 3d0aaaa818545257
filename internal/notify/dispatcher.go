package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"bookify/pkg/domain"
	"bookify/pkg/mail"
	"bookify/pkg/queue"
	"bookify/pkg/store"
)

const (
	kindBookRequest = "book-request"
	kindNewBook     = "new-book"

	// fanOutLimit bounds concurrent SMTP connections per job.
	fanOutLimit = 4
)

// JobQueue is the slice of the queue API the dispatcher needs.
type JobQueue interface {
	Enqueue(ctx context.Context, kind, payload string) (queue.JobStatus, error)
	Start(ctx context.Context, concurrency int, handler func(context.Context, queue.JobStatus) error)
}

// Dispatcher queues notification emails and delivers them in the background.
// Delivery is best effort: enqueue failures fall back to a direct send and
// are never surfaced to the caller.
type Dispatcher struct {
	queue  JobQueue
	mailer mail.Mailer
	store  store.Store
}

func NewDispatcher(q JobQueue, mailer mail.Mailer, st store.Store) *Dispatcher {
	return &Dispatcher{queue: q, mailer: mailer, store: st}
}

// Start launches background consumers that deliver queued notices.
func (d *Dispatcher) Start(ctx context.Context, concurrency int) {
	d.queue.Start(ctx, concurrency, d.handle)
}

// BookRequested notifies the admin that a catalog request came in.
func (d *Dispatcher) BookRequested(ctx context.Context, req domain.BookRequest) {
	notice := mail.BookRequestNotice{
		UserEmail:  req.UserEmail,
		BookName:   req.BookName,
		AuthorName: req.AuthorName,
		Category:   req.Category,
		Message:    req.Message,
	}
	d.enqueueOrSend(ctx, kindBookRequest, notice, func() error {
		return d.mailer.SendBookRequestNotice(notice)
	})
}

// BookAdded announces a new book to every opted-in reader.
func (d *Dispatcher) BookAdded(ctx context.Context, book domain.Book) {
	notice := mail.NewBookNotice{
		Title:      book.Title,
		AuthorName: book.AuthorName,
		Genre:      book.Genre,
	}
	d.enqueueOrSend(ctx, kindNewBook, notice, func() error {
		return d.fanOut(ctx, notice)
	})
}

func (d *Dispatcher) enqueueOrSend(ctx context.Context, kind string, notice any, send func() error) {
	payload, err := json.Marshal(notice)
	if err != nil {
		slog.Error("notify: encode payload", "kind", kind, "error", err)
		return
	}
	_, err = d.queue.Enqueue(ctx, kind, string(payload))
	if err == nil {
		return
	}
	slog.Warn("notify: enqueue failed, sending directly", "kind", kind, "error", err)

	if err := send(); err != nil {
		slog.Error("notify: direct send failed", "kind", kind, "error", err)
	}
}

func (d *Dispatcher) handle(ctx context.Context, job queue.JobStatus) error {
	switch job.Kind {
	case kindBookRequest:
		var notice mail.BookRequestNotice
		if err := json.Unmarshal([]byte(job.Payload), &notice); err != nil {
			return fmt.Errorf("decode book-request payload: %w", err)
		}
		return d.mailer.SendBookRequestNotice(notice)
	case kindNewBook:
		var notice mail.NewBookNotice
		if err := json.Unmarshal([]byte(job.Payload), &notice); err != nil {
			return fmt.Errorf("decode new-book payload: %w", err)
		}
		return d.fanOut(ctx, notice)
	default:
		// Unknown kinds are dropped rather than retried forever.
		slog.Warn("notify: unknown job kind", "kind", job.Kind)
		return nil
	}
}

func (d *Dispatcher) fanOut(ctx context.Context, notice mail.NewBookNotice) error {
	emails, err := d.store.ListNotifiableEmails()
	if err != nil {
		return fmt.Errorf("list recipients: %w", err)
	}
	if len(emails) == 0 {
		return nil
	}
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	for _, email := range emails {
		email := email
		g.Go(func() error {
			if err := d.mailer.SendNewBookNotice(email, notice); err != nil {
				return fmt.Errorf("send to %s: %w", email, err)
			}
			return nil
		})
	}
	return g.Wait()
}
