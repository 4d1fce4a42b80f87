package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/makrx-community/gateway-security-core/internal/apierror"
	"github.com/makrx-community/gateway-security-core/internal/ctxutil"
	"github.com/makrx-community/gateway-security-core/internal/interface/http/middleware"
	"github.com/makrx-community/gateway-security-core/internal/interface/http/response"
	"github.com/makrx-community/gateway-security-core/internal/security"
)

var validate = validator.New()

// RefreshRequest is the body of POST /auth/refresh when the refresh token
// is not supplied via header or cookie (spec §4.9, §10).
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshResponse is the body of a successful refresh.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// AuthHandlers wires the refresh/logout endpoints to a TokenRefreshClient.
type AuthHandlers struct {
	refresh *security.TokenRefreshClient
}

// NewAuthHandlers constructs AuthHandlers against refresh.
func NewAuthHandlers(refresh *security.TokenRefreshClient) *AuthHandlers {
	return &AuthHandlers{refresh: refresh}
}

// Refresh handles POST /auth/refresh (spec §4.9): exchanges a refresh token
// for a new access token. The token may arrive via the "Refresh " auth
// scheme, the X-Refresh-Token header, the refresh_token cookie, or a JSON
// body — in that priority order.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	requestID := ctxutil.RequestIDFromContext(r.Context())

	refreshToken := security.ExtractRefreshTokenFromRequest(r)
	if refreshToken == "" {
		var body RefreshRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			if verr := validate.Struct(body); verr == nil {
				refreshToken = body.RefreshToken
			}
		}
	}
	if refreshToken == "" {
		response.WriteError(w, r, apierror.NewAPI("missing_refresh_token",
			"Refresh token is required", http.StatusBadRequest), false)
		return
	}

	info, err := h.refresh.RefreshAccessToken(r.Context(), refreshToken, requestID)
	if err != nil {
		response.WriteError(w, r, err, false)
		return
	}

	for key, values := range security.TokenResponseHeaders(info) {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	response.WriteSuccess(w, RefreshResponse{
		AccessToken:  info.AccessToken,
		RefreshToken: info.RefreshToken,
		ExpiresIn:    info.ExpiresIn,
		TokenType:    info.TokenType,
	})
}

// Logout handles POST /auth/logout (spec §4.9): revokes the refresh token
// at the identity provider. Revocation failure is logged but never changes
// the response the caller sees — logout always succeeds from the client's
// perspective (spec §10).
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	requestID := ctxutil.RequestIDFromContext(r.Context())
	refreshToken := security.ExtractRefreshTokenFromRequest(r)
	if refreshToken != "" {
		h.refresh.RevokeRefreshToken(r.Context(), refreshToken, requestID)
	}
	response.WriteSuccess(w, map[string]string{"message": "Logged out successfully"})
}

// Me handles GET /auth/me: returns the caller's identity as resolved from
// the validated bearer token. Mounted behind middleware.JWTAuth, so the
// claims it reads are always present.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.SecurityClaimsFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, apierror.NewAPI(string(security.KindMissingToken),
			security.KindMissingToken.Message(), security.KindMissingToken.Status()), false)
		return
	}
	response.WriteSuccess(w, security.ExtractUserInfo(claims))
}
