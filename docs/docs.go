// Package docs EstateKit Access API.
//
// Documentation of the EstateKit Access API.
//
//     Schemes: https
//     BasePath: /
//     Version: 1.0.0
//     Host: https://estate-access-api.herokuapp.com
//
//     Consumes:
//     - application/json
//
//     Produces:
//     - application/json
//
//     Security:
//     - basic
//
//    SecurityDefinitions:
//    basic:
//      type: basic
//
// swagger:meta
package docs

import (
	"github.com/estatekit/estate-access-api/access"
	"github.com/estatekit/estate-access-api/models"
)

// swagger:route GET /health health healthEndpointID
// Lists the healthchex of the web service api.
// responses:
//   200: healthResponse

// Shows the current health of the api. true means it is alive, false means it is not.
// swagger:response healthResponse
type healthResponseWrapper struct {
	// in:body
	Body models.HealthCheckResponse
}

// swagger:route POST /api/v1/access-code access-code createAccessCode
// Issues a new visitor access code for a resident.
// responses:
//   201: accessCodeResponse

// swagger:route GET /api/v1/access-code/{code_id} access-code accessCodeByID
// Gets a single access code by ID.
// responses:
//   200: accessCodeResponse

// swagger:route POST /api/v1/access-code/{code_id}/revoke access-code revokeAccessCode
// Revokes an active access code.
// responses:
//   200: accessCodeResponse

// Shows a single access code
// swagger:response accessCodeResponse
type accessCodeResponseWrapper struct {
	// in:body
	Body models.AccessCode
}

// swagger:route GET /api/v1/access-codes/resident/{resident_id}/active access-code activeAccessCodes
// Lists a resident's currently usable codes.
// responses:
//   200: accessCodeListResponse

// Shows a list of access codes
// swagger:response accessCodeListResponse
type accessCodeListResponseWrapper struct {
	// in:body
	Body []models.AccessCode
}

// swagger:route POST /api/v1/verify verification verifyAccessCode
// Checks a code submitted at an estate gate.
// responses:
//   200: verificationResultResponse

// swagger:route POST /api/v1/verify/{pending_id}/confirm verification confirmVerification
// Completes a verification the resident has approved.
// responses:
//   200: verificationResultResponse

// Shows the outcome of a verification
// swagger:response verificationResultResponse
type verificationResultResponseWrapper struct {
	// in:body
	Body access.VerificationResult
}

// swagger:route GET /api/v1/estate/{estate_id}/settings estate estateSettings
// Gets the estate's access policy.
// responses:
//   200: estateSettingsResponse

// Shows the estate's access policy
// swagger:response estateSettingsResponse
type estateSettingsResponseWrapper struct {
	// in:body
	Body models.EstateSettings
}

// swagger:route GET /api/v1/estate/{estate_id}/access-logs estate estateAccessLogs
// Lists the estate-wide verification log, paginated.
// responses:
//   200: accessLogListResponse

// Shows a list of access log entries
// swagger:response accessLogListResponse
type accessLogListResponseWrapper struct {
	// in:body
	Body []models.AccessLog
}
