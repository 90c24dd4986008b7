package types

import "time"

// Profile is the role-specific record paired one-to-one with a user for
// Associate, Taluka Head, and Ground Worker accounts. Reads join the users
// row, so the identity fields are populated on the way out.
type Profile struct {
	ID             int       `json:"id" db:"id"`
	UserID         int       `json:"userId" db:"user_id"`
	District       *string   `json:"district,omitempty" db:"district"`
	Taluka         *string   `json:"taluka,omitempty" db:"taluka"`
	Village        *string   `json:"village,omitempty" db:"village"`
	AssignedArea   *string   `json:"assignedArea,omitempty" db:"assigned_area"`
	AdditionalInfo *string   `json:"additionalInfo,omitempty" db:"additional_info"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`

	// Joined from the users table.
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	Phone        string    `json:"phone" db:"phone"`
	RegisteredBy string    `json:"registeredBy" db:"registered_by"`
	RegisteredAt time.Time `json:"registeredAt" db:"registered_at"`
}

// ProfileStats summarizes a role's roster.
type ProfileStats struct {
	Total            int `json:"total"`
	WithDistrict     int `json:"withDistrict"`
	WithTaluka       int `json:"withTaluka"`
	WithVillage      int `json:"withVillage"`
	WithAssignedArea int `json:"withAssignedArea"`
}

// FieldCount is one bucket of a grouped count, largest first.
type FieldCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}
