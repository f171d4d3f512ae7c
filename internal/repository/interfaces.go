package repository

import (
	"context"
	"time"

	"github.com/Sophie-Muchiri12/rentmg/internal/models"
	"github.com/Sophie-Muchiri12/rentmg/internal/scope"
)

// Every read and mutation that touches role-owned data takes the caller's
// scope.Identity and composes the matching visibility predicate into the
// query itself. Out-of-scope rows are never materialized; the stores report
// them exactly like absent rows (nil, nil), so callers answer NOT_FOUND
// without leaking existence.
//
// All methods take a context.Context; request cancellation propagates into
// the database driver.

// NewProperty is the allow-listed input for property creation.
type NewProperty struct {
	Name         string
	PropertyType string
	Address      string
	City         string
	Country      string
}

// NewUnit is the allow-listed input for unit creation.
type NewUnit struct {
	PropertyID int64
	UnitNumber string
	Bedrooms   int
	Bathrooms  int
	RentAmount int64
}

// NewLease is the allow-listed input for lease creation.
type NewLease struct {
	UnitID     int64
	TenantID   int64
	StartDate  time.Time
	EndDate    *time.Time
	RentAmount int64
}

// NewIssue is the allow-listed input for issue creation.
type NewIssue struct {
	Title       string
	Description string
	Priority    models.IssuePriority
	ReporterID  int64
	PropertyID  *int64
	UnitID      *int64
}

// IssueUpdate carries the only fields an authorized caller may patch.
// Nil pointers leave the column unchanged.
type IssueUpdate struct {
	Title       *string
	Description *string
	Status      *models.IssueStatus
	Priority    *models.IssuePriority
	AssigneeID  *int64
}

// UserRepository handles account records. Lookups by email are global
// (login happens before any identity exists).
type UserRepository interface {
	Create(ctx context.Context, email, passwordHash string, role models.Role, fullName, phone string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type PropertyRepository interface {
	// Create inserts a property owned by ownerID.
	Create(ctx context.Context, ownerID int64, in NewProperty) (*models.Property, error)

	// GetByID returns a property visible to the caller. Returns nil, nil
	// when absent or out of scope.
	GetByID(ctx context.Context, ident scope.Identity, id int64) (*models.Property, error)

	// List returns all properties visible to the caller, newest first.
	// Returns an empty slice (not nil) so JSON serializes to [].
	List(ctx context.Context, ident scope.Identity) ([]models.Property, error)

	// Summary aggregates unit occupancy, open issues and the current
	// month's completed payment total for one visible property.
	Summary(ctx context.Context, ident scope.Identity, id int64) (*models.PropertySummary, error)
}

type UnitRepository interface {
	// Create inserts a unit. A duplicate unit number within the property
	// yields a CONFLICT error.
	Create(ctx context.Context, in NewUnit) (*models.Unit, error)

	GetByID(ctx context.Context, ident scope.Identity, id int64) (*models.Unit, error)
	ListByProperty(ctx context.Context, ident scope.Identity, propertyID int64) ([]models.Unit, error)
}

type LeaseRepository interface {
	// Create inserts a lease and, when it is active, flips the unit's
	// occupancy flag in the same transaction. A unit that already has an
	// active lease yields a CONFLICT error; the check-and-set runs under a
	// row lock and is additionally backed by a partial unique index, so
	// concurrent creations cannot both succeed.
	Create(ctx context.Context, in NewLease) (*models.Lease, error)

	GetByID(ctx context.Context, ident scope.Identity, id int64) (*models.Lease, error)
	List(ctx context.Context, ident scope.Identity) ([]models.Lease, error)

	// UpdateStatus sets the lease status and recomputes the owning unit's
	// occupancy flag in the same transaction.
	UpdateStatus(ctx context.Context, id int64, status models.LeaseStatus) (*models.Lease, error)

	// ActiveByProperty lists active tenancies (lease + tenant + unit info)
	// for one visible property.
	ActiveByProperty(ctx context.Context, ident scope.Identity, propertyID int64) ([]models.Tenancy, error)
}

type PaymentRepository interface {
	// Create persists a new ledger row. For the gateway flow the row is
	// written with status pending before any outbound call is made.
	Create(ctx context.Context, leaseID, amount int64, method models.PaymentMethod, status models.PaymentStatus, reference string) (*models.Payment, error)

	// AttachCheckout records the gateway-assigned checkout id after a
	// successful dispatch.
	AttachCheckout(ctx context.Context, id int64, checkoutID string) error

	// MarkFailed forces a row to failed after a dispatch error.
	MarkFailed(ctx context.Context, id int64) error

	// Resolve applies a callback outcome to the row matching checkoutID,
	// only if that row is still pending. A non-empty receipt replaces the
	// reference; an empty receipt leaves it unchanged. Returns whether a
	// row transitioned, so redelivered callbacks and unknown checkout ids
	// fall through as no-ops.
	Resolve(ctx context.Context, checkoutID string, status models.PaymentStatus, receipt string) (bool, error)

	GetByID(ctx context.Context, ident scope.Identity, id int64) (*models.Payment, error)

	// List returns payments visible to the caller, newest first,
	// optionally filtered to one lease.
	List(ctx context.Context, ident scope.Identity, leaseID *int64) ([]models.Payment, error)

	// Cancel moves a still-pending row to cancelled. Returns whether the
	// row transitioned.
	Cancel(ctx context.Context, id int64) (bool, error)
}

type IssueRepository interface {
	Create(ctx context.Context, in NewIssue) (*models.Issue, error)
	GetByID(ctx context.Context, ident scope.Identity, id int64) (*models.Issue, error)
	List(ctx context.Context, ident scope.Identity) ([]models.Issue, error)

	// Update patches the allow-listed fields of a visible issue. Returns
	// nil, nil when the issue is absent or out of the caller's scope.
	Update(ctx context.Context, ident scope.Identity, id int64, patch IssueUpdate) (*models.Issue, error)
}
