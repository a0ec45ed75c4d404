package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/estatekit/estate-access-api/access"
	"github.com/estatekit/estate-access-api/api"
	"github.com/estatekit/estate-access-api/config"
	"github.com/estatekit/estate-access-api/models"
)

var (
	// Page denotes the starting Page for pagination results
	Page = 0
)

// AccessCode exported for testing purposes
type AccessCode struct {
	Service *access.Service
}

// CreateAccessCodeHandler issues a new visitor access code for a resident
func (a AccessCode) CreateAccessCodeHandler(w http.ResponseWriter, r *http.Request) {
	var params access.CreateCodeParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	code, err := a.Service.CreateCode(ctx, params)
	if err != nil {
		writeAccessError(w, err)
		return
	}

	b, err := json.Marshal(code)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	w.Write(b)
}

// AccessCodeByIDHandler returns an access code by ID
func (a AccessCode) AccessCodeByIDHandler(w http.ResponseWriter, r *http.Request) {
	codeID := mux.Vars(r)["code_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	code, err := a.Service.GetCode(ctx, codeID)
	if err != nil {
		writeAccessError(w, err)
		return
	}

	b, err := json.Marshal(code)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

type revokeRequest struct {
	RequesterID   string `json:"requesterId"`
	RequesterRole string `json:"requesterRole"`
}

// RevokeAccessCodeHandler revokes an active access code
func (a AccessCode) RevokeAccessCodeHandler(w http.ResponseWriter, r *http.Request) {
	codeID := mux.Vars(r)["code_id"]

	var req revokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	code, err := a.Service.RevokeCode(ctx, codeID, req.RequesterID, req.RequesterRole)
	if err != nil {
		writeAccessError(w, err)
		return
	}

	b, err := json.Marshal(code)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// ActiveAccessCodesHandler returns a resident's currently usable codes
func (a AccessCode) ActiveAccessCodesHandler(w http.ResponseWriter, r *http.Request) {
	residentID := mux.Vars(r)["resident_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	codes, err := a.Service.ListActiveCodes(ctx, residentID)
	if err != nil {
		writeAccessError(w, err)
		return
	}
	if len(codes) == 0 {
		codes = []models.AccessCode{}
	}

	b, err := json.Marshal(codes)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

type historyResponse struct {
	Codes      []models.AccessCode `json:"codes"`
	NextCursor string              `json:"nextCursor,omitempty"`
}

// AccessCodeHistoryHandler returns a resident's codes across all statuses,
// cursor-paginated and optionally filtered by status and kind
func (a AccessCode) AccessCodeHistoryHandler(w http.ResponseWriter, r *http.Request) {
	residentID := mux.Vars(r)["resident_id"]

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		zap.S().Warnf(fmt.Sprintf("limit not set, using default of %v, err: %v", limit|20, err))
	}
	filter := access.HistoryFilter{
		Status: r.URL.Query().Get("status"),
		Kind:   r.URL.Query().Get("kind"),
		Cursor: r.URL.Query().Get("cursor"),
		Limit:  limit,
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	codes, nextCursor, err := a.Service.ListHistory(ctx, residentID, filter)
	if err != nil {
		writeAccessError(w, err)
		return
	}
	if len(codes) == 0 {
		codes = []models.AccessCode{}
	}

	b, err := json.Marshal(historyResponse{Codes: codes, NextCursor: nextCursor})
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// AccessCodeLogsHandler returns the verification log for one code
func (a AccessCode) AccessCodeLogsHandler(w http.ResponseWriter, r *http.Request) {
	codeID := mux.Vars(r)["code_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	logs, err := a.Service.ListCodeLogs(ctx, codeID)
	if err != nil {
		writeAccessError(w, err)
		return
	}
	if len(logs) == 0 {
		logs = []models.AccessLog{}
	}

	b, err := json.Marshal(logs)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// getPage parses the page query param, keeping the previous value as the
// default when absent
func getPage(page int, r *http.Request) int {
	var err error
	if r.URL.Query().Get("page") == "" {
		zap.S().Warnf("page not set, using default of %v", page)
	} else {
		page, err = strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil {
			zap.S().Errorf(fmt.Sprintf("error parsing page number: %v", err))
		}
	}
	return page
}
