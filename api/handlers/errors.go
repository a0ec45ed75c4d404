package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/estatekit/estate-access-api/access"
)

// rejectionResponse is the body returned when a gate submits a code that
// cannot be accepted. The reason is diagnostic for security personnel.
type rejectionResponse struct {
	Result string `json:"result"`
	Reason string `json:"reason"`
}

// writeAccessError translates engine errors into HTTP responses. Rejections
// are expected outcomes and logged at info; everything else maps off the
// engine error code.
func writeAccessError(w http.ResponseWriter, err error) {
	if rej, ok := access.AsRejection(err); ok {
		status := http.StatusConflict
		if rej.Reason == access.ReasonNotFound {
			status = http.StatusNotFound
		}
		zap.S().Infow("verification rejected", "reason", rej.Reason)
		w.WriteHeader(status)
		b, _ := json.Marshal(rejectionResponse{Result: "rejected", Reason: rej.Reason})
		w.Write(b)
		return
	}

	code := access.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case access.CodeValidation:
		status = http.StatusBadRequest
	case access.CodePolicyDisabled, access.CodeDurationOutOfBounds, access.CodeQuotaExceeded, access.CodeNotOwner:
		status = http.StatusForbidden
	case access.CodeNotFound:
		status = http.StatusNotFound
	case access.CodeStateConflict, access.CodeConcurrencyConflict:
		status = http.StatusConflict
	case access.CodeGeneratorExhausted:
		status = http.StatusServiceUnavailable
	}

	zap.S().With(err).Error("access operation failed")
	w.WriteHeader(status)
	b, _ := json.Marshal(map[string]string{"error": err.Error(), "code": string(code)})
	w.Write(b)
}
