package types

import "time"

// Role identifies where an account sits in the administrative hierarchy.
type Role string

const (
	RoleDistrictCollector Role = "District Collector"
	RoleHospital          Role = "Hospital"
	RoleVillager          Role = "Villager"
	RoleAssociate         Role = "Associate"
	RoleTalukaHead        Role = "Taluka Head"
	RoleGroundWorker      Role = "Ground Worker"
)

// HasProfile reports whether accounts of this role carry a role-profile row
// alongside their users row.
func (r Role) HasProfile() bool {
	switch r {
	case RoleAssociate, RoleTalukaHead, RoleGroundWorker:
		return true
	}
	return false
}

// User represents an account in the system.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// Phone is the user's contact number.
	Phone string `json:"phone" db:"phone"`

	// Email is the user's email address, unique across all accounts,
	// active or not.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password"`

	// Role is the account's position in the hierarchy.
	Role Role `json:"role" db:"role"`

	// HospitalName is set only for Hospital accounts.
	HospitalName *string `json:"hospitalName,omitempty" db:"hospital_name"`

	// RegisteredBy records who created the account ("self" for
	// self-registration, otherwise the registering user's identifier).
	RegisteredBy string `json:"registeredBy" db:"registered_by"`

	// RegisteredAt is when the account was registered.
	RegisteredAt time.Time `json:"registeredAt" db:"registered_at"`

	// IsActive is false once the account has been soft-deleted. Soft-deleted
	// accounts still hold their email.
	IsActive bool `json:"isActive" db:"is_active"`

	// District and State locate the account geographically. District is
	// the uniqueness scope for active District Collectors.
	District *string `json:"district,omitempty" db:"district"`
	State    *string `json:"state,omitempty" db:"state"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the account.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Summary returns the fields of a user exposed after login.
func (u User) Summary() UserSummary {
	return UserSummary{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Role:     u.Role,
		District: u.District,
		State:    u.State,
	}
}

// UserSummary is the identity payload returned alongside a session token.
type UserSummary struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Role     Role    `json:"role"`
	District *string `json:"district,omitempty"`
	State    *string `json:"state,omitempty"`
}
