package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/estatekit/estate-access-api/access"
	"github.com/estatekit/estate-access-api/api"
	"github.com/estatekit/estate-access-api/config"
	"github.com/estatekit/estate-access-api/databases"
	"github.com/estatekit/estate-access-api/models"
)

// Estate exported for testing purposes
type Estate struct {
	Policy *access.Resolver
	EDB    databases.EstateDatabase
	ACDB   databases.AccessCodeDatabase
	ALDB   databases.AccessLogDatabase
	PVDB   databases.PendingVerificationDatabase
}

// EstateSettingsHandler returns the estate's access policy, seeding the
// defaults on first read
func (e Estate) EstateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	estateID := mux.Vars(r)["estate_id"]

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	settings, err := e.Policy.GetPolicy(ctx, estateID)
	if err != nil {
		writeAccessError(w, err)
		return
	}

	b, err := json.Marshal(settings)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// UpdateEstateSettingsHandler replaces the estate's access policy
func (e Estate) UpdateEstateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	estateID := mux.Vars(r)["estate_id"]

	var settings models.EstateSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := e.Policy.SetPolicy(ctx, estateID, settings); err != nil {
		writeAccessError(w, err)
		return
	}

	b, err := json.Marshal(settings)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// EstateAccessLogsHandler returns the estate-wide verification log, paginated
// with page/limit query params
func (e Estate) EstateAccessLogsHandler(w http.ResponseWriter, r *http.Request) {
	estateID := mux.Vars(r)["estate_id"]

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		zap.S().Warnf(fmt.Sprintf("limit not set, using default of %v, err: %v", limit|10, err))
		limit = 10
	}
	Page = getPage(Page, r)
	page := Page
	if page < 1 {
		page = 1
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	logs, err := e.ALDB.FindPaginated(ctx, bson.M{"estateId": estateID}, limit, page)
	if err != nil {
		config.ErrorStatus("failed to get access logs", http.StatusNotFound, w, err)
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

// DeleteEstateHandler removes an estate and cascades to its access codes,
// verification logs and pending verifications
func (e Estate) DeleteEstateHandler(w http.ResponseWriter, r *http.Request) {
	estateID := mux.Vars(r)["estate_id"]

	eID, err := primitive.ObjectIDFromHex(estateID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if err := e.ACDB.DeleteMany(ctx, bson.M{"estateId": estateID}); err != nil {
		config.ErrorStatus("failed to delete estate access codes", http.StatusInternalServerError, w, err)
		return
	}
	if err := e.ALDB.DeleteMany(ctx, bson.M{"estateId": estateID}); err != nil {
		config.ErrorStatus("failed to delete estate access logs", http.StatusInternalServerError, w, err)
		return
	}
	if err := e.PVDB.DeleteMany(ctx, bson.M{"estateId": estateID}); err != nil {
		config.ErrorStatus("failed to delete estate pending verifications", http.StatusInternalServerError, w, err)
		return
	}
	if err := e.EDB.DeleteOne(ctx, bson.M{"_id": eID}); err != nil {
		config.ErrorStatus("failed to delete estate", http.StatusInternalServerError, w, err)
		return
	}
	e.Policy.Invalidate(estateID)

	zap.S().Infow("estate removed with cascade", "estateId", estateID)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(fmt.Sprintf(`{"deleted": "%s"}`, estateID)))
}
