package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"

	"github.com/estatekit/estate-access-api/databases"
	"github.com/estatekit/estate-access-api/models"
)

type staffLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type staffLoginResponse struct {
	Token string `json:"token"`
	Staff struct {
		ID       string `json:"id"`
		Email    string `json:"email"`
		Role     string `json:"role"`
		EstateID string `json:"estateId"`
	} `json:"staff"`
}

// Auth handles staff (security and admin) login
type Auth struct {
	UDB databases.UserDatabase
}

// StaffLoginHandler authenticates a security or admin user via email and
// password and returns a JWT for the gate clients
func (h Auth) StaffLoginHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req staffLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid request"})
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "email and password required"})
		return
	}

	users, err := h.UDB.Find(r.Context(), bson.M{"user.email": email, "user.active": true})
	if err != nil || len(users) == 0 {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Invalid credentials"})
		return
	}
	user := users[0]

	if user.Details.Role != models.RoleSecurity && user.Details.Role != models.RoleAdmin {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(models.ErrorResponse{
			Success: false,
			Error:   "Account is not authorized for gate operations",
			Code:    "INSUFFICIENT_ROLE",
		})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Details.Password), []byte(req.Password)); err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(models.ErrorResponse{
			Success: false,
			Error:   "Invalid credentials",
			Code:    "INVALID_CREDENTIALS",
		})
		return
	}

	jwtSecret := []byte(os.Getenv("JWT_SECRET"))
	if len(jwtSecret) == 0 {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "server misconfigured"})
		return
	}

	claims := jwt.MapClaims{
		"sub":      user.ID,
		"email":    user.Details.Email,
		"role":     user.Details.Role,
		"estateId": user.Details.EstateID,
		"typ":      "access",
		"iat":      time.Now().Unix(),
		"exp":      time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(jwtSecret)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "token generation failed"})
		return
	}

	var resp staffLoginResponse
	resp.Token = signed
	resp.Staff.ID = user.ID
	resp.Staff.Email = user.Details.Email
	resp.Staff.Role = user.Details.Role
	resp.Staff.EstateID = user.Details.EstateID

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
