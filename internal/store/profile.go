package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gramseva/apiserver/types"
)

// ProfileRepository handles persistence for one role's profile table joined
// with the users table. The three profile tables are structurally identical,
// so a single repository serves Associates, Taluka Heads, and Ground Workers.
type ProfileRepository struct {
	db    *sql.DB
	role  types.Role
	table string
}

func NewProfileRepository(db *sql.DB, role types.Role) (*ProfileRepository, error) {
	table, ok := profileTables[role]
	if !ok {
		return nil, fmt.Errorf("role %q has no profile table", role)
	}
	return &ProfileRepository{db: db, role: role, table: table}, nil
}

var profileTables = map[types.Role]string{
	types.RoleAssociate:    "associates",
	types.RoleTalukaHead:   "taluka_heads",
	types.RoleGroundWorker: "ground_workers",
}

// Role returns the role this repository serves.
func (r *ProfileRepository) Role() types.Role {
	return r.role
}

const profileColumns = `p.id, p.user_id, p.district, p.taluka, p.village,
		p.assigned_area, p.additional_info, p.created_at,
		u.name, u.email, u.phone, u.registered_by, u.registered_at`

// baseQuery joins the profile table with active users of the matching role.
// The table name is fixed at construction, never caller input.
func (r *ProfileRepository) baseQuery() string {
	return `SELECT ` + profileColumns + `
		FROM ` + r.table + ` p
		INNER JOIN users u ON p.user_id = u.id
		WHERE u.role = $1 AND u.is_active`
}

func scanProfileRow(scanner interface{ Scan(...any) error }, profile *types.Profile) error {
	return scanner.Scan(
		&profile.ID,
		&profile.UserID,
		&profile.District,
		&profile.Taluka,
		&profile.Village,
		&profile.AssignedArea,
		&profile.AdditionalInfo,
		&profile.CreatedAt,
		&profile.Name,
		&profile.Email,
		&profile.Phone,
		&profile.RegisteredBy,
		&profile.RegisteredAt,
	)
}

func (r *ProfileRepository) queryProfiles(ctx context.Context, query string, args ...any) ([]types.Profile, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := make([]types.Profile, 0)
	for rows.Next() {
		var profile types.Profile
		if err := scanProfileRow(rows, &profile); err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *ProfileRepository) queryProfile(ctx context.Context, query string, args ...any) (types.Profile, error) {
	var profile types.Profile
	if err := scanProfileRow(r.db.QueryRowContext(ctx, query, args...), &profile); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Profile{}, ErrNotFound
		}
		return types.Profile{}, err
	}
	return profile, nil
}

func (r *ProfileRepository) List(ctx context.Context) ([]types.Profile, error) {
	return r.queryProfiles(ctx, r.baseQuery(), r.role)
}

func (r *ProfileRepository) GetByID(ctx context.Context, id int) (types.Profile, error) {
	return r.queryProfile(ctx, r.baseQuery()+` AND p.id = $2`, r.role, id)
}

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID int) (types.Profile, error) {
	return r.queryProfile(ctx, r.baseQuery()+` AND p.user_id = $2`, r.role, userID)
}

func (r *ProfileRepository) ListByDistrict(ctx context.Context, district string) ([]types.Profile, error) {
	return r.queryProfiles(ctx, r.baseQuery()+` AND p.district = $2`, r.role, district)
}

func (r *ProfileRepository) ListByTaluka(ctx context.Context, taluka string) ([]types.Profile, error) {
	return r.queryProfiles(ctx, r.baseQuery()+` AND p.taluka = $2`, r.role, taluka)
}

func (r *ProfileRepository) ListByVillage(ctx context.Context, village string) ([]types.Profile, error) {
	return r.queryProfiles(ctx, r.baseQuery()+` AND p.village = $2`, r.role, village)
}

func (r *ProfileRepository) ListByAssignedArea(ctx context.Context, area string) ([]types.Profile, error) {
	return r.queryProfiles(ctx, r.baseQuery()+` AND p.assigned_area ILIKE $2`, r.role, "%"+area+"%")
}

func (r *ProfileRepository) ListByRegisteredBy(ctx context.Context, registeredBy string) ([]types.Profile, error) {
	return r.queryProfiles(ctx, r.baseQuery()+` AND u.registered_by = $2`, r.role, registeredBy)
}

// Search matches a case-insensitive substring against name, email, and the
// profile's location fields.
func (r *ProfileRepository) Search(ctx context.Context, query string) ([]types.Profile, error) {
	pattern := "%" + query + "%"
	sqlQuery := r.baseQuery() + ` AND (u.name ILIKE $2 OR u.email ILIKE $2
		OR p.taluka ILIKE $2 OR p.district ILIKE $2 OR p.village ILIKE $2)`
	return r.queryProfiles(ctx, sqlQuery, r.role, pattern)
}

func (r *ProfileRepository) Stats(ctx context.Context) (types.ProfileStats, error) {
	query := `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE p.district IS NOT NULL),
			COUNT(*) FILTER (WHERE p.taluka IS NOT NULL),
			COUNT(*) FILTER (WHERE p.village IS NOT NULL),
			COUNT(*) FILTER (WHERE p.assigned_area IS NOT NULL)
		FROM ` + r.table + ` p
		INNER JOIN users u ON p.user_id = u.id
		WHERE u.role = $1 AND u.is_active`
	var stats types.ProfileStats
	err := r.db.QueryRowContext(ctx, query, r.role).Scan(
		&stats.Total,
		&stats.WithDistrict,
		&stats.WithTaluka,
		&stats.WithVillage,
		&stats.WithAssignedArea,
	)
	if err != nil {
		return types.ProfileStats{}, err
	}
	return stats, nil
}

func (r *ProfileRepository) CountByTaluka(ctx context.Context) ([]types.FieldCount, error) {
	return r.countByField(ctx, "taluka")
}

func (r *ProfileRepository) CountByVillage(ctx context.Context) ([]types.FieldCount, error) {
	return r.countByField(ctx, "village")
}

func (r *ProfileRepository) countByField(ctx context.Context, field string) ([]types.FieldCount, error) {
	query := `
		SELECT p.` + field + `, COUNT(*) AS count
		FROM ` + r.table + ` p
		INNER JOIN users u ON p.user_id = u.id
		WHERE u.role = $1 AND u.is_active AND p.` + field + ` IS NOT NULL
		GROUP BY p.` + field + `
		ORDER BY count DESC`
	rows, err := r.db.QueryContext(ctx, query, r.role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make([]types.FieldCount, 0)
	for rows.Next() {
		var count types.FieldCount
		if err := rows.Scan(&count.Value, &count.Count); err != nil {
			return nil, err
		}
		counts = append(counts, count)
	}
	return counts, rows.Err()
}

// CreateWithIdentity inserts the users row and the profile row in one
// transaction. Neither persists unless both inserts succeed.
func (r *ProfileRepository) CreateWithIdentity(ctx context.Context, user types.User, profile types.Profile) (userID, profileID int, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	userID, err = insertIdentityTx(ctx, tx, user)
	if err != nil {
		return 0, 0, err
	}
	profileID, err = r.insertProfileTx(ctx, tx, userID, profile)
	if err != nil {
		return 0, 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, err
	}
	return userID, profileID, nil
}

func insertIdentityTx(ctx context.Context, tx *sql.Tx, user types.User) (int, error) {
	now := time.Now()
	if user.RegisteredAt.IsZero() {
		user.RegisteredAt = now
	}

	const query = `
		INSERT INTO users (name, phone, email, password, role, hospital_name,
			registered_by, registered_at, is_active, district, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, true, $9, $10, $11, $12)
		RETURNING id`
	var id int
	err := tx.QueryRowContext(
		ctx,
		query,
		user.Name,
		user.Phone,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.HospitalName,
		user.RegisteredBy,
		user.RegisteredAt,
		user.District,
		user.State,
		now,
		now,
	).Scan(&id)
	if err != nil {
		return 0, translateConflict(err)
	}
	return id, nil
}

func (r *ProfileRepository) insertProfileTx(ctx context.Context, tx *sql.Tx, userID int, profile types.Profile) (int, error) {
	query := `
		INSERT INTO ` + r.table + ` (user_id, district, taluka, village,
			assigned_area, additional_info, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	var id int
	err := tx.QueryRowContext(
		ctx,
		query,
		userID,
		profile.District,
		profile.Taluka,
		profile.Village,
		profile.AssignedArea,
		profile.AdditionalInfo,
		time.Now(),
	).Scan(&id)
	if err != nil {
		return 0, translateConflict(err)
	}
	return id, nil
}

// ContactPatch carries the optional identity fields of a profile update.
// Nil fields are left untouched.
type ContactPatch struct {
	Name  *string
	Email *string
	Phone *string
}

func (p ContactPatch) empty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil
}

// ProfilePatch carries the optional profile fields of an update. Nil fields
// are left untouched.
type ProfilePatch struct {
	District       *string
	Taluka         *string
	Village        *string
	AssignedArea   *string
	AdditionalInfo *string
}

func (p ProfilePatch) empty() bool {
	return p.District == nil && p.Taluka == nil && p.Village == nil &&
		p.AssignedArea == nil && p.AdditionalInfo == nil
}

// UpdateWithIdentity applies the two partial updates in one transaction.
// Returns ErrNotFound when no profile row has the id.
func (r *ProfileRepository) UpdateWithIdentity(ctx context.Context, profileID int, contact ContactPatch, profile ProfilePatch) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	userID, err := r.userIDForProfileTx(ctx, tx, profileID)
	if err != nil {
		return err
	}

	if !contact.empty() {
		fields := make([]string, 0, 3)
		values := make([]any, 0, 4)
		addField := func(column string, value *string) {
			if value != nil {
				fields = append(fields, fmt.Sprintf("%s = $%d", column, len(values)+1))
				values = append(values, *value)
			}
		}
		addField("name", contact.Name)
		addField("email", contact.Email)
		addField("phone", contact.Phone)

		fields = append(fields, fmt.Sprintf("updated_at = $%d", len(values)+1))
		values = append(values, time.Now())
		values = append(values, userID)

		query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d",
			joinFields(fields), len(values))
		if _, err = tx.ExecContext(ctx, query, values...); err != nil {
			err = translateConflict(err)
			return err
		}
	}

	if !profile.empty() {
		fields := make([]string, 0, 5)
		values := make([]any, 0, 6)
		addField := func(column string, value *string) {
			if value != nil {
				fields = append(fields, fmt.Sprintf("%s = $%d", column, len(values)+1))
				values = append(values, *value)
			}
		}
		addField("district", profile.District)
		addField("taluka", profile.Taluka)
		addField("village", profile.Village)
		addField("assigned_area", profile.AssignedArea)
		addField("additional_info", profile.AdditionalInfo)

		values = append(values, profileID)
		query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d",
			r.table, joinFields(fields), len(values))
		if _, err = tx.ExecContext(ctx, query, values...); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func joinFields(fields []string) string {
	out := ""
	for i, field := range fields {
		if i > 0 {
			out += ", "
		}
		out += field
	}
	return out
}

// SoftDeleteByID deactivates the owning account. The profile row is kept
// for audit and stays reachable through GetByID once the account is
// reactivated.
func (r *ProfileRepository) SoftDeleteByID(ctx context.Context, profileID int) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	userID, err := r.userIDForProfileTx(ctx, tx, profileID)
	if err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE users SET is_active = false, updated_at = $1 WHERE id = $2`,
		time.Now(), userID); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *ProfileRepository) userIDForProfileTx(ctx context.Context, tx *sql.Tx, profileID int) (int, error) {
	var userID int
	err := tx.QueryRowContext(ctx,
		`SELECT user_id FROM `+r.table+` WHERE id = $1`, profileID).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return userID, nil
}
