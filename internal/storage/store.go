// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/Jaiharishan/Split-Generator-Backend/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a unique key is taken.
	ErrAlreadyExists = errors.New("already exists")
)

// Store defines the interface for all storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	UserStore
	BillStore
	TemplateStore
	SubscriptionStore
	ReceiptStore

	// Close releases any resources held by the store.
	Close() error
}

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	// GetUserByEmail returns nil, nil when no user has the address.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// GetUserByID returns ErrNotFound when the user does not exist.
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// BillStore persists bills and everything they own. Every mutation bumps
// the bill's revision in the same transaction.
type BillStore interface {
	// CreateBill persists a bill with its participants and products.
	// IDs and timestamps are filled in by the store.
	CreateBill(ctx context.Context, bill *models.Bill) error

	// GetBill loads the full bill graph in one read transaction.
	GetBill(ctx context.Context, billID string) (*models.Bill, error)

	// GetBillHeader loads the bill row only, without participants or products.
	GetBillHeader(ctx context.Context, billID string) (*models.Bill, error)

	// ListBills returns the owner's bill headers, newest first.
	ListBills(ctx context.Context, ownerID string) ([]*models.Bill, error)

	// UpdateBill saves title, description and stated total.
	UpdateBill(ctx context.Context, bill *models.Bill) error

	// DeleteBill removes the bill and cascades to everything it owns.
	DeleteBill(ctx context.Context, billID string) error

	// CountBillsSince counts the owner's bills created at or after since (Unix seconds).
	CountBillsSince(ctx context.Context, ownerID string, since int64) (int, error)

	AddParticipant(ctx context.Context, billID string, p *models.Participant) error
	UpdateParticipant(ctx context.Context, billID string, p *models.Participant) error
	// RemoveParticipant also removes the participant's allocations.
	RemoveParticipant(ctx context.Context, billID, participantID string) error
	CountParticipants(ctx context.Context, billID string) (int, error)

	// AddProduct persists a product and its allocations.
	AddProduct(ctx context.Context, billID string, p *models.Product) error
	// UpdateProduct saves name, price and quantity. Allocations are unchanged.
	UpdateProduct(ctx context.Context, billID string, p *models.Product) error
	DeleteProduct(ctx context.Context, billID, productID string) error
	// SetAllocations replaces a product's allocations.
	SetAllocations(ctx context.Context, billID, productID string, allocs []models.Allocation) error
}

// TemplateStore persists participant templates.
type TemplateStore interface {
	CreateTemplate(ctx context.Context, tpl *models.Template) error
	GetTemplate(ctx context.Context, templateID string) (*models.Template, error)
	ListTemplates(ctx context.Context, ownerID string) ([]*models.Template, error)
	DeleteTemplate(ctx context.Context, templateID string) error
	CountTemplates(ctx context.Context, ownerID string) (int, error)
}

// SubscriptionTx is the view of the store inside ApplyEvent.
type SubscriptionTx interface {
	// FindSubscription looks a subscription up by user, provider customer or
	// provider subscription ID, whichever is non-empty first. It returns
	// nil, nil when none matches.
	FindSubscription(ctx context.Context, userID, customerID, subscriptionID string) (*models.Subscription, error)

	// SaveSubscription upserts the subscription and sets the user's tier to
	// its effective tier.
	SaveSubscription(ctx context.Context, sub *models.Subscription) error
}

// SubscriptionStore persists subscription state and processed events.
type SubscriptionStore interface {
	// GetSubscription returns ErrNotFound when the user never subscribed.
	GetSubscription(ctx context.Context, userID string) (*models.Subscription, error)

	// ApplyEvent records event and runs fn in the same transaction. If the
	// event ID was recorded before, fn is not run and applied is false.
	ApplyEvent(ctx context.Context, event models.ProcessedEvent, fn func(ctx context.Context, tx SubscriptionTx) error) (applied bool, err error)

	// ListLapsedSubscriptions returns subscriptions set to cancel whose
	// period ended before now but that still grant a paid tier.
	ListLapsedSubscriptions(ctx context.Context, now int64) ([]*models.Subscription, error)

	// ExpireSubscription marks a lapsed subscription canceled and drops the
	// user to the free tier.
	ExpireSubscription(ctx context.Context, userID string, now int64) error

	// PruneProcessedEvents deletes event records processed before the cutoff.
	PruneProcessedEvents(ctx context.Context, before int64) (int64, error)
}

// ReceiptStore persists receipt metadata. Blobs live elsewhere.
type ReceiptStore interface {
	CreateReceipt(ctx context.Context, r *models.Receipt) error
	ListReceipts(ctx context.Context, billID string) ([]*models.Receipt, error)
	GetReceipt(ctx context.Context, billID, receiptID string) (*models.Receipt, error)
}
