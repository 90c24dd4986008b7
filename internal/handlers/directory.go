package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gramseva/apiserver/internal/services"
	"github.com/gramseva/apiserver/internal/store"
	"github.com/gramseva/apiserver/types"
	"go.uber.org/zap"
)

// DirectoryHandler provides the roster endpoints for one auxiliary role.
// The same handler serves Associates, Taluka Heads, and Ground Workers;
// the route set grows with the role.
type DirectoryHandler struct {
	directory    *services.DirectoryService
	registration *services.RegistrationService
	export       *services.ExportService
	logger       *zap.Logger
	dev          bool
}

func NewDirectoryHandler(
	directory *services.DirectoryService,
	registration *services.RegistrationService,
	export *services.ExportService,
	logger *zap.Logger,
	dev bool,
) *DirectoryHandler {
	return &DirectoryHandler{
		directory:    directory,
		registration: registration,
		export:       export,
		logger:       logger,
		dev:          dev,
	}
}

// DirectoryRouter registers the role's routes. Associates expose the base
// set; Taluka Heads add district/taluka filters, stats, and search; Ground
// Workers carry the full filter, stats, and bulk-registration surface.
func DirectoryRouter(r chi.Router, handler *DirectoryHandler) {
	role := handler.directory.Role()

	r.Post("/register", handler.Register)
	r.Get("/", handler.List)
	r.Get("/user/{userID:[0-9]+}", handler.GetByUserID)

	if role == types.RoleTalukaHead || role == types.RoleGroundWorker {
		r.Get("/district/{district}", handler.ListByDistrict)
		r.Get("/taluka/{taluka}", handler.ListByTaluka)
		r.Get("/stats/count", handler.Stats)
		r.Get("/search/{query}", handler.Search)
	}
	if role == types.RoleGroundWorker {
		r.Post("/bulk-register", handler.BulkRegister)
		r.Get("/village/{village}", handler.ListByVillage)
		r.Get("/assigned-area/{assignedArea}", handler.ListByAssignedArea)
		r.Get("/registered-by/{registeredBy}", handler.ListByRegisteredBy)
		r.Get("/stats/count-by-taluka", handler.CountByTaluka)
		r.Get("/stats/count-by-village", handler.CountByVillage)
	}
	if handler.export != nil {
		r.Get("/export", handler.Export)
	}

	// Numeric-only so unknown literal paths fall through to the 404
	// catch-all instead of failing id parsing.
	r.Get("/{profileID:[0-9]+}", handler.GetByID)
	r.Put("/{profileID:[0-9]+}", handler.Update)
	r.Delete("/{profileID:[0-9]+}", handler.Delete)
}

func (h *DirectoryHandler) notFoundMessage() string {
	return fmt.Sprintf("%s not found", h.directory.Role())
}

// MemberRequest is one member registration payload.
type MemberRequest struct {
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Phone          string  `json:"phone"`
	Password       string  `json:"password"`
	RegisteredBy   string  `json:"registeredBy"`
	District       *string `json:"district"`
	Taluka         *string `json:"taluka"`
	Village        *string `json:"village"`
	AssignedArea   *string `json:"assignedArea"`
	AdditionalInfo *string `json:"additionalInfo"`
}

func (req MemberRequest) input() services.MemberInput {
	return services.MemberInput{
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		Password:       req.Password,
		RegisteredBy:   req.RegisteredBy,
		District:       req.District,
		Taluka:         req.Taluka,
		Village:        req.Village,
		AssignedArea:   req.AssignedArea,
		AdditionalInfo: req.AdditionalInfo,
	}
}

func (h *DirectoryHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req MemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.registration.RegisterMember(r.Context(), h.directory.Role(), req.input())
	if err != nil {
		writeServiceError(w, h.logger, h.dev, err, h.notFoundMessage())
		return
	}

	message := fmt.Sprintf("%s registered successfully", h.directory.Role())
	writeResult(w, http.StatusCreated, message, result)
}

// BulkRegisterRequest carries a batch of Ground Worker registrations.
type BulkRegisterRequest struct {
	Workers       []MemberRequest `json:"workers"`
	RegisteredBy  string          `json:"registeredBy"`
	DefaultTaluka string          `json:"defaultTaluka"`
}

// BulkRegister registers the batch all-or-nothing: any failed record rolls
// back every record, and the response lists both sets by original index.
func (h *DirectoryHandler) BulkRegister(w http.ResponseWriter, r *http.Request) {
	var req BulkRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	workers := make([]services.MemberInput, 0, len(req.Workers))
	for _, worker := range req.Workers {
		workers = append(workers, worker.input())
	}

	outcome, err := h.registration.BulkRegisterWorkers(r.Context(), services.BulkRegisterInput{
		Workers:       workers,
		RegisteredBy:  req.RegisteredBy,
		DefaultTaluka: req.DefaultTaluka,
	})
	if err != nil {
		writeServiceError(w, h.logger, h.dev, err, h.notFoundMessage())
		return
	}

	if !outcome.Committed {
		message := "Some workers failed registration. All registrations rolled back."
		if len(outcome.Successful) == 0 {
			message = "All workers failed registration"
		}
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Message: message, Data: outcome})
		return
	}

	writeResult(w, http.StatusCreated, "All ground workers registered successfully", outcome)
}

func (h *DirectoryHandler) List(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.directory.List(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, h.dev, err, h.notFoundMessage())
		return
	}
	writeData(w, http.StatusOK, profiles)
}

func (h *DirectoryHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "profileID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return
	}

	profile, err := h.directory.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, h.dev, err, h.notFoundMessage())
		return
	}
	writeData(w, http.StatusOK, profile)
}

func (h *DirectoryHandler) GetByUserID(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	profile, err := h.directory.GetByUserID(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, h.dev, err, h.notFoundMessage())
		return
	}
	writeData(w, http.StatusOK, profile)
}

func (h *DirectoryHandler) listBy(w http.ResponseWriter, r *http.Request, fetch func() ([]types.Profile, error)) {
	profiles, err := fetch()
	if err != nil {
		writeServiceError(w, h.logger, h.dev, err, h.notFoundMessage())
		return
	}
	writeData(w, http.StatusOK, profiles)
}

func (h *DirectoryHandler) ListByDistrict(w http.ResponseWriter, r *http.Request) {
	h.listBy(w, r, func() ([]types.Profile, error) {
		return h.directory.ListByDistrict(r.Context(), chi.URLParam(r, "district"))
	})
}

func (h *DirectoryHandler) ListByTaluka(w http.ResponseWriter, r *http.Request) {
	h.listBy(w, r, func() ([]types.Profile, error) {
		return h.directory.ListByTaluka(r.Context(), chi.URLParam(r, "taluka"))
	})
}

func (h *DirectoryHandler) ListByVillage(w http.ResponseWriter, r *http.Request) {
	h.listBy(w, r, func() ([]types.Profile, error) {
		return h.directory.ListByVillage(r.Context(), chi.URLParam(r, "village"))
	})
}

func (h *DirectoryHandler) ListByAssignedArea(w http.ResponseWriter, r *http.Request) {
	h.listBy(w, r, func() ([]types.Profile, error) {
		return h.directory.ListByAssignedArea(r.Context(), chi.URLParam(r, "assignedArea"))
	})
}

func (h *DirectoryHandler) ListByRegisteredBy(w http.ResponseWriter, r *http.Request) {
	h.listBy(w, r, func() ([]types.Profile, error) {
		return h.directory.ListByRegisteredBy(r.Context(), chi.URLParam(r, "registeredBy"))
	})
}

func (h *DirectoryHandler) Search(w http.ResponseWriter, r *http.Request) {
	h.listBy(w, r, func() ([]types.Profile, error) {
		return h.directory.Search(r.Context(), chi.URLParam(r, "query"))
	})
}

func (h *DirectoryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.directory.Stats(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, h.dev, err, h.notFoundMessage())
		return
	}
	writeData(w, http.StatusOK, stats)
}

func (h *DirectoryHandler) CountByTaluka(w http.ResponseWriter, r *http.Request) {
	counts, err := h.directory.CountByTaluka(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, h.dev, err, h.notFoundMessage())
		return
	}
	writeData(w, http.StatusOK, counts)
}

func (h *DirectoryHandler) CountByVillage(w http.ResponseWriter, r *http.Request) {
	counts, err := h.directory.CountByVillage(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, h.dev, err, h.notFoundMessage())
		return
	}
	writeData(w, http.StatusOK, counts)
}

// UpdateMemberRequest carries the optional identity and profile fields of
// an update. Absent fields are left untouched.
type UpdateMemberRequest struct {
	Name           *string `json:"name"`
	Email          *string `json:"email"`
	Phone          *string `json:"phone"`
	District       *string `json:"district"`
	Taluka         *string `json:"taluka"`
	Village        *string `json:"village"`
	AssignedArea   *string `json:"assignedArea"`
	AdditionalInfo *string `json:"additionalInfo"`
}

func (h *DirectoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "profileID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return
	}

	var req UpdateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	contact := store.ContactPatch{Name: req.Name, Email: req.Email, Phone: req.Phone}
	profile := store.ProfilePatch{
		District:       req.District,
		Taluka:         req.Taluka,
		Village:        req.Village,
		AssignedArea:   req.AssignedArea,
		AdditionalInfo: req.AdditionalInfo,
	}

	if err := h.directory.Update(r.Context(), id, contact, profile); err != nil {
		writeServiceError(w, h.logger, h.dev, err, h.notFoundMessage())
		return
	}

	message := fmt.Sprintf("%s updated successfully", h.directory.Role())
	writeMessage(w, http.StatusOK, message)
}

func (h *DirectoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "profileID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return
	}

	if err := h.directory.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, h.dev, err, h.notFoundMessage())
		return
	}

	message := fmt.Sprintf("%s deleted successfully", h.directory.Role())
	writeMessage(w, http.StatusOK, message)
}

// Export archives the active roster as an XLSX workbook in object storage
// and returns its location.
func (h *DirectoryHandler) Export(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.directory.List(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, h.dev, err, h.notFoundMessage())
		return
	}

	result, err := h.export.ExportRoster(r.Context(), h.directory.Role(), profiles)
	if err != nil {
		writeServiceError(w, h.logger, h.dev, err, h.notFoundMessage())
		return
	}
	writeData(w, http.StatusOK, result)
}
