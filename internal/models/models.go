package models

import "time"

// Role classifies a user. It is assigned at registration and never changes;
// there is no role-transition flow.
type Role string

const (
	RoleLandlord        Role = "landlord"
	RolePropertyManager Role = "property_manager"
	RoleTenant          Role = "tenant"
)

// IsOwner reports whether the role may own properties.
func (r Role) IsOwner() bool {
	return r == RoleLandlord || r == RolePropertyManager
}

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleLandlord || r == RolePropertyManager || r == RoleTenant
}

// LeaseStatus is the lifecycle state of a lease.
type LeaseStatus string

const (
	LeaseActive     LeaseStatus = "active"
	LeaseExpired    LeaseStatus = "expired"
	LeaseTerminated LeaseStatus = "terminated"
)

func (s LeaseStatus) Valid() bool {
	return s == LeaseActive || s == LeaseExpired || s == LeaseTerminated
}

// PaymentStatus is the ledger state of a payment.
//
// A payment starts pending and moves to exactly one terminal state:
// completed or failed via the gateway callback (or failed synchronously if
// dispatch itself errors), or cancelled via manual operator action.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
)

// Terminal reports whether no further transition is defined out of s.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentCompleted || s == PaymentFailed || s == PaymentCancelled
}

// PaymentMethod is how a payment was (or will be) made.
type PaymentMethod string

const (
	MethodMpesa  PaymentMethod = "mpesa"
	MethodBank   PaymentMethod = "bank"
	MethodCash   PaymentMethod = "cash"
	MethodCheque PaymentMethod = "cheque"
)

func (m PaymentMethod) Valid() bool {
	return m == MethodMpesa || m == MethodBank || m == MethodCash || m == MethodCheque
}

// IssueStatus classifies maintenance tickets. Issues have no state machine
// beyond field updates by authorized actors.
type IssueStatus string

const (
	IssueOpen       IssueStatus = "open"
	IssueInProgress IssueStatus = "in_progress"
	IssueResolved   IssueStatus = "resolved"
	IssueClosed     IssueStatus = "closed"
)

func (s IssueStatus) Valid() bool {
	return s == IssueOpen || s == IssueInProgress || s == IssueResolved || s == IssueClosed
}

type IssuePriority string

const (
	PriorityLow    IssuePriority = "low"
	PriorityNormal IssuePriority = "normal"
	PriorityHigh   IssuePriority = "high"
)

func (p IssuePriority) Valid() bool {
	return p == PriorityLow || p == PriorityNormal || p == PriorityHigh
}

// User is an account holder: a landlord, a property manager, or a tenant.
// PasswordHash is never serialized.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	FullName     string    `json:"full_name"`
	PhoneNumber  string    `json:"phone_number,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Property is a building owned by exactly one landlord or manager.
type Property struct {
	ID           int64     `json:"id"`
	OwnerID      int64     `json:"owner_id"`
	Name         string    `json:"name"`
	PropertyType string    `json:"property_type,omitempty"`
	Address      string    `json:"address"`
	City         string    `json:"city,omitempty"`
	Country      string    `json:"country,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PropertySummary is the aggregate view backing the owner dashboard.
type PropertySummary struct {
	PropertyID         int64 `json:"property_id"`
	TotalUnits         int64 `json:"total_units"`
	OccupiedUnits      int64 `json:"occupied_units"`
	VacantUnits        int64 `json:"vacant_units"`
	OpenIssues         int64 `json:"open_issues"`
	CollectedThisMonth int64 `json:"collected_this_month"`
}

// Unit is a rentable unit within a property.
//
// IsOccupied mirrors "the unit has a lease in active status" and is kept in
// sync transactionally by every lease-status write.
type Unit struct {
	ID         int64     `json:"id"`
	PropertyID int64     `json:"property_id"`
	UnitNumber string    `json:"unit_number"`
	Bedrooms   int       `json:"bedrooms"`
	Bathrooms  int       `json:"bathrooms"`
	RentAmount int64     `json:"rent_amount"`
	IsOccupied bool      `json:"is_occupied"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Lease binds one tenant to one unit for a time interval. At most one
// active lease exists per unit at any time.
type Lease struct {
	ID         int64       `json:"id"`
	UnitID     int64       `json:"unit_id"`
	TenantID   int64       `json:"tenant_id"`
	StartDate  time.Time   `json:"start_date"`
	EndDate    *time.Time  `json:"end_date,omitempty"`
	RentAmount int64       `json:"rent_amount"`
	Status     LeaseStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// Tenancy is a lease joined with tenant and unit info, returned by the
// property-tenants listing.
type Tenancy struct {
	Lease
	TenantName  string `json:"tenant_name"`
	TenantEmail string `json:"tenant_email"`
	UnitNumber  string `json:"unit_number"`
}

// Payment is one ledger row against a lease.
//
// Reference is the settlement reference: the gateway receipt number for
// mpesa payments (captured on completion), or the operator-supplied
// reference for manual records. CheckoutID is the gateway-assigned
// correlation key for the asynchronous callback; once assigned it is unique
// across all payments.
type Payment struct {
	ID         int64         `json:"id"`
	LeaseID    int64         `json:"lease_id"`
	Amount     int64         `json:"amount"`
	Method     PaymentMethod `json:"method"`
	Status     PaymentStatus `json:"status"`
	Reference  string        `json:"reference,omitempty"`
	CheckoutID string        `json:"checkout_id,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Issue is a maintenance ticket.
type Issue struct {
	ID          int64         `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Status      IssueStatus   `json:"status"`
	Priority    IssuePriority `json:"priority"`
	ReporterID  int64         `json:"reporter_id"`
	AssigneeID  *int64        `json:"assignee_id,omitempty"`
	PropertyID  *int64        `json:"property_id,omitempty"`
	UnitID      *int64        `json:"unit_id,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
