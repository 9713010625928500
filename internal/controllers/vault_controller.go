package controllers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/trimooo/SecurePasskey/internal/dtos"
	"github.com/trimooo/SecurePasskey/internal/models"
	"github.com/trimooo/SecurePasskey/internal/services"
	"github.com/trimooo/SecurePasskey/internal/utils"
)

// VaultController exposes CRUD and the health report over the password
// vault. All endpoints require authentication.
type VaultController struct {
	vaultService services.VaultService
}

func NewVaultController(vaultService services.VaultService) *VaultController {
	return &VaultController{vaultService: vaultService}
}

func entryIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeValidation, "Invalid entry id", nil, err,
		)
		return 0, false
	}
	return id, true
}

func (c *VaultController) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req dtos.SavePasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	entry := &models.SavedPassword{
		UserID:   userID,
		Website:  req.Website,
		URL:      req.URL,
		Username: req.Username,
		Password: req.Password,
		Notes:    req.Notes,
	}
	if err := c.vaultService.Create(r.Context(), entry); err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, entry)
}

func (c *VaultController) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := entryIDFromPath(w, r)
	if !ok {
		return
	}

	entry, err := c.vaultService.Get(r.Context(), id, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if entry == nil {
		utils.RespondErrorWithCode(w, http.StatusNotFound, utils.ErrCodeNotFound, "Entry not found", nil)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, entry)
}

func (c *VaultController) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	entries, err := c.vaultService.List(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []*models.SavedPassword{}
	}
	utils.RespondWithJSON(w, http.StatusOK, entries)
}

func (c *VaultController) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := entryIDFromPath(w, r)
	if !ok {
		return
	}

	var req dtos.UpdatePasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	entry := &models.SavedPassword{
		ID:       id,
		UserID:   userID,
		Website:  req.Website,
		URL:      req.URL,
		Username: req.Username,
		Password: req.Password,
		Notes:    req.Notes,
	}
	if err := c.vaultService.Update(r.Context(), entry); err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, entry)
}

func (c *VaultController) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := entryIDFromPath(w, r)
	if !ok {
		return
	}

	if err := c.vaultService.Delete(r.Context(), id, userID); err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.MessageResponse{Message: "Entry deleted"})
}

func (c *VaultController) Report(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	report, err := c.vaultService.Report(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, report)
}
