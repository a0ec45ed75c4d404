package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/estatekit/estate-access-api/access"
	"github.com/estatekit/estate-access-api/api"
	"github.com/estatekit/estate-access-api/config"
)

// Verification exported for testing purposes
type Verification struct {
	Service *access.Service
}

type verifyRequest struct {
	EstateID   string            `json:"estateId"`
	Code       string            `json:"code"`
	VerifierID string            `json:"verifierId"`
	Meta       map[string]string `json:"meta"`
}

// VerifyAccessCodeHandler checks a code submitted at an estate gate. The
// response is accepted, pending (resident confirmation required), or a
// rejection with a diagnostic reason.
func (v Verification) VerifyAccessCodeHandler(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	result, err := v.Service.VerifyCode(ctx, req.EstateID, req.Code, req.VerifierID, req.Meta)
	if err != nil {
		writeAccessError(w, err)
		return
	}

	b, err := json.Marshal(result)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// ConfirmVerificationHandler completes a verification the resident has
// approved
func (v Verification) ConfirmVerificationHandler(w http.ResponseWriter, r *http.Request) {
	pendingID := mux.Vars(r)["pending_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	result, err := v.Service.ConfirmVerification(ctx, pendingID)
	if err != nil {
		writeAccessError(w, err)
		return
	}

	b, err := json.Marshal(result)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}
