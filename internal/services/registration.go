package services

import (
	"context"
	"crypto/subtle"
	"regexp"
	"strings"

	"github.com/gramseva/apiserver/internal/store"
	"github.com/gramseva/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const defaultRegisteredBy = "self"

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IdentityWriter defines the persistence operations registration needs for
// profile-less accounts.
type IdentityWriter interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// ProfileWriter defines the persistence operations registration needs for
// accounts that pair a users row with a role-profile row.
type ProfileWriter interface {
	Role() types.Role
	CreateWithIdentity(ctx context.Context, user types.User, profile types.Profile) (userID, profileID int, err error)
	BulkCreateWorkers(ctx context.Context, records []store.BulkWorkerRecord) (store.BulkOutcome, error)
}

// RegistrationService validates and creates accounts. Validation runs in a
// fixed order before any write: required fields, email syntax, email
// uniqueness, then role-specific authorization.
type RegistrationService struct {
	identities   IdentityWriter
	profiles     map[types.Role]ProfileWriter
	collectorKey string
}

func NewRegistrationService(identities IdentityWriter, collectorKey string, profiles ...ProfileWriter) *RegistrationService {
	byRole := make(map[types.Role]ProfileWriter, len(profiles))
	for _, writer := range profiles {
		byRole[writer.Role()] = writer
	}
	return &RegistrationService{
		identities:   identities,
		profiles:     byRole,
		collectorKey: collectorKey,
	}
}

// RegisterInput carries a profile-less registration (District Collector,
// Hospital, Villager).
type RegisterInput struct {
	Name         string
	Phone        string
	Email        string
	Password     string
	Role         types.Role
	HospitalName string
	SecretKey    string
	RegisteredBy string
	District     *string
	State        *string
}

// Register creates a profile-less account. Roles that carry a profile must
// go through their own endpoint so the paired rows are created atomically.
func (s *RegistrationService) Register(ctx context.Context, in RegisterInput) (types.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)

	if in.Name == "" || in.Phone == "" || in.Email == "" || in.Password == "" || in.Role == "" {
		return types.User{}, validationError("Please provide all required fields")
	}
	if !emailPattern.MatchString(in.Email) {
		return types.User{}, validationError("Please provide a valid email address")
	}

	switch in.Role {
	case types.RoleDistrictCollector, types.RoleHospital, types.RoleVillager:
	case types.RoleAssociate, types.RoleTalukaHead, types.RoleGroundWorker:
		return types.User{}, validationError("This role must be registered through its own endpoint")
	default:
		return types.User{}, validationError("Unknown role")
	}

	exists, err := s.identities.EmailExists(ctx, in.Email)
	if err != nil {
		return types.User{}, err
	}
	if exists {
		return types.User{}, store.ErrDuplicateEmail
	}

	var hospitalName *string
	switch in.Role {
	case types.RoleDistrictCollector:
		if s.collectorKey == "" || subtle.ConstantTimeCompare([]byte(in.SecretKey), []byte(s.collectorKey)) != 1 {
			return types.User{}, &AuthorizationError{Message: "Invalid District Collector secret key"}
		}
	case types.RoleHospital:
		if strings.TrimSpace(in.HospitalName) == "" {
			return types.User{}, validationError("Hospital name is required for Hospital role")
		}
		name := strings.TrimSpace(in.HospitalName)
		hospitalName = &name
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, err
	}

	registeredBy := in.RegisteredBy
	if registeredBy == "" {
		registeredBy = defaultRegisteredBy
	}

	return s.identities.Create(ctx, types.User{
		Name:         in.Name,
		Phone:        in.Phone,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         in.Role,
		HospitalName: hospitalName,
		RegisteredBy: registeredBy,
		District:     in.District,
		State:        in.State,
	})
}

// MemberInput carries a registration that pairs a users row with a
// role-profile row.
type MemberInput struct {
	Name           string
	Email          string
	Phone          string
	Password       string
	RegisteredBy   string
	District       *string
	Taluka         *string
	Village        *string
	AssignedArea   *string
	AdditionalInfo *string
}

// MemberResult reports the pair of rows a member registration created.
type MemberResult struct {
	UserID    int        `json:"userId"`
	ProfileID int        `json:"profileId"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      types.Role `json:"role"`
}

func (in *MemberInput) validate(role types.Role) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)

	if in.Name == "" || in.Email == "" || in.Phone == "" || in.Password == "" || in.RegisteredBy == "" {
		return validationError("Name, email, phone, password, and registeredBy are required fields")
	}
	switch role {
	case types.RoleTalukaHead:
		if in.Taluka == nil || strings.TrimSpace(*in.Taluka) == "" {
			return validationError("Taluka is required for Taluka Head registration")
		}
	case types.RoleGroundWorker:
		if in.Taluka == nil || strings.TrimSpace(*in.Taluka) == "" {
			return validationError("Taluka is required for Ground Worker registration")
		}
		if in.Village == nil || strings.TrimSpace(*in.Village) == "" {
			return validationError("Village is required for Ground Worker registration")
		}
	}
	if !emailPattern.MatchString(in.Email) {
		return validationError("Please provide a valid email address")
	}
	return nil
}

// RegisterMember creates a users row and a role-profile row as one atomic
// unit. If either insert fails, neither persists.
func (s *RegistrationService) RegisterMember(ctx context.Context, role types.Role, in MemberInput) (MemberResult, error) {
	writer, ok := s.profiles[role]
	if !ok {
		return MemberResult{}, validationError("Unknown role")
	}
	if err := in.validate(role); err != nil {
		return MemberResult{}, err
	}

	exists, err := s.identities.EmailExists(ctx, in.Email)
	if err != nil {
		return MemberResult{}, err
	}
	if exists {
		return MemberResult{}, store.ErrDuplicateEmail
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return MemberResult{}, err
	}

	userID, profileID, err := writer.CreateWithIdentity(ctx,
		types.User{
			Name:         in.Name,
			Phone:        in.Phone,
			Email:        in.Email,
			PasswordHash: string(hash),
			Role:         role,
			RegisteredBy: in.RegisteredBy,
			District:     in.District,
		},
		types.Profile{
			District:       in.District,
			Taluka:         in.Taluka,
			Village:        in.Village,
			AssignedArea:   in.AssignedArea,
			AdditionalInfo: in.AdditionalInfo,
		},
	)
	if err != nil {
		return MemberResult{}, err
	}

	return MemberResult{
		UserID:    userID,
		ProfileID: profileID,
		Name:      in.Name,
		Email:     in.Email,
		Role:      role,
	}, nil
}

// BulkRegisterInput carries an ordered batch of Ground Worker registrations
// sharing one registrar and a default taluka.
type BulkRegisterInput struct {
	Workers       []MemberInput
	RegisteredBy  string
	DefaultTaluka string
}

// BulkRegisterWorkers validates each record independently, then hands the
// batch to the store for an all-or-nothing transaction. The outcome lists
// successes and failures by original index; when both are present the batch
// was rolled back.
func (s *RegistrationService) BulkRegisterWorkers(ctx context.Context, in BulkRegisterInput) (store.BulkOutcome, error) {
	writer, ok := s.profiles[types.RoleGroundWorker]
	if !ok {
		return store.BulkOutcome{}, validationError("Unknown role")
	}
	if len(in.Workers) == 0 || strings.TrimSpace(in.RegisteredBy) == "" || strings.TrimSpace(in.DefaultTaluka) == "" {
		return store.BulkOutcome{}, validationError("Workers array, registeredBy, and defaultTaluka are required fields")
	}

	records := make([]store.BulkWorkerRecord, 0, len(in.Workers))
	for index, worker := range in.Workers {
		worker.RegisteredBy = in.RegisteredBy
		if worker.Taluka == nil || strings.TrimSpace(*worker.Taluka) == "" {
			taluka := in.DefaultTaluka
			worker.Taluka = &taluka
		}

		record := store.BulkWorkerRecord{Index: index}
		if err := worker.validate(types.RoleGroundWorker); err != nil {
			record.User.Email = strings.TrimSpace(worker.Email)
			record.SkipReason = err.Error()
			records = append(records, record)
			continue
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(worker.Password), bcrypt.DefaultCost)
		if err != nil {
			return store.BulkOutcome{}, err
		}

		record.User = types.User{
			Name:         worker.Name,
			Phone:        worker.Phone,
			Email:        worker.Email,
			PasswordHash: string(hash),
			Role:         types.RoleGroundWorker,
			RegisteredBy: worker.RegisteredBy,
			District:     worker.District,
		}
		record.Profile = types.Profile{
			District:       worker.District,
			Taluka:         worker.Taluka,
			Village:        worker.Village,
			AssignedArea:   worker.AssignedArea,
			AdditionalInfo: worker.AdditionalInfo,
		}
		records = append(records, record)
	}

	return writer.BulkCreateWorkers(ctx, records)
}
