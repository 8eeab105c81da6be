package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/hvzgame/internal/api/middleware"
	"github.com/mcoot/hvzgame/internal/api/request"
	"github.com/mcoot/hvzgame/internal/api/response"
	"github.com/mcoot/hvzgame/internal/model"
	"github.com/mcoot/hvzgame/internal/services/org"
)

// OrgHandler handles organization endpoints
type OrgHandler struct {
	orgs *org.Repository
}

// NewOrgHandler creates a new organization handler
func NewOrgHandler(orgs *org.Repository) *OrgHandler {
	return &OrgHandler{orgs: orgs}
}

func orgIDFrom(r *http.Request) model.OrgID {
	return model.OrgID(mux.Vars(r)["id"])
}

func writeOrg(w http.ResponseWriter, status int, o *model.Organization, err error) {
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, status, response.OrganizationFromModel(o))
}

// Create handles POST /api/v1/orgs
func (h *OrgHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())

	var req request.CreateOrganizationRequest
	if !decode(w, r, &req) {
		return
	}

	o, err := h.orgs.CreateOrganization(r.Context(), req.Name, userID)
	writeOrg(w, http.StatusCreated, o, err)
}

// Get handles GET /api/v1/orgs/{id}
func (h *OrgHandler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.orgs.GetOrganization(r.Context(), orgIDFrom(r))
	writeOrg(w, http.StatusOK, o, err)
}

// AddAdmin handles POST /api/v1/orgs/{id}/admins
func (h *OrgHandler) AddAdmin(w http.ResponseWriter, r *http.Request) {
	instigator := middleware.MustGetUserID(r.Context())

	var req request.AddAdminRequest
	if !decode(w, r, &req) {
		return
	}

	o, err := h.orgs.AddAdmin(r.Context(), orgIDFrom(r), model.UserID(req.UserID), instigator)
	writeOrg(w, http.StatusOK, o, err)
}

// CreateGame handles POST /api/v1/orgs/{id}/game
func (h *OrgHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())

	var req request.CreateGameRequest
	if !decode(w, r, &req) {
		return
	}

	g, err := h.orgs.CreateGame(r.Context(), orgIDFrom(r), req.Name, userID, req.OzMaxTags)
	writeGame(w, http.StatusCreated, g, err)
}

// GetActiveGame handles GET /api/v1/orgs/{id}/game
func (h *OrgHandler) GetActiveGame(w http.ResponseWriter, r *http.Request) {
	g, err := h.orgs.GetActiveGame(r.Context(), orgIDFrom(r))
	writeGame(w, http.StatusOK, g, err)
}

// EndActiveGame handles DELETE /api/v1/orgs/{id}/game
func (h *OrgHandler) EndActiveGame(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())
	g, err := h.orgs.EndActiveGame(r.Context(), orgIDFrom(r), userID)
	writeGame(w, http.StatusOK, g, err)
}
