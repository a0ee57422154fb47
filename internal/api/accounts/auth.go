// auth.go implements HTTP handlers for OIDC login, the OAuth callback, the
// current-session endpoint, and sign-out.
package accounts

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mayukh2077/swift-org/internal/auth"
	"github.com/mayukh2077/swift-org/internal/auth/oidc"
	"github.com/mayukh2077/swift-org/internal/config"
	"github.com/mayukh2077/swift-org/internal/db/repositories"
	"github.com/mayukh2077/swift-org/internal/telemetry"
)

// AuthHandlers handles authentication-related endpoints.
type AuthHandlers struct {
	cfg          *config.Config
	profileRepo  *repositories.ProfileRepository
	revoker      auth.SessionRevoker
	oidcProvider *oidc.OIDCProvider

	// sessionStore holds in-flight OAuth states. In-memory is fine for a
	// single instance; a multi-instance deployment would move this to Redis.
	mu           sync.Mutex
	sessionStore map[string]*sessionState
}

// sessionState represents OAuth state during the authentication flow.
type sessionState struct {
	State     string
	CreatedAt time.Time
}

// stateTTL is how long an OAuth state parameter stays valid between the
// redirect to the provider and the callback.
const stateTTL = 5 * time.Minute

// NewAuthHandlers creates a new AuthHandlers instance. The OIDC provider is
// initialised eagerly so a misconfigured issuer fails at startup, not on the
// first login attempt.
func NewAuthHandlers(cfg *config.Config, profileRepo *repositories.ProfileRepository, revoker auth.SessionRevoker) (*AuthHandlers, error) {
	h := &AuthHandlers{
		cfg:          cfg,
		profileRepo:  profileRepo,
		revoker:      revoker,
		sessionStore: make(map[string]*sessionState),
	}

	if cfg.Auth.OIDC.Enabled {
		prov, err := oidc.NewOIDCProvider(&cfg.Auth.OIDC)
		if err != nil {
			return nil, err
		}
		h.oidcProvider = prov
	}

	return h, nil
}

// generateState generates a random state string for OAuth CSRF protection.
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func (h *AuthHandlers) storeState(state string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessionStore[state] = &sessionState{State: state, CreatedAt: time.Now()}
}

// consumeState removes and returns the stored state, enforcing single use.
func (h *AuthHandlers) consumeState(state string) (*sessionState, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessionStore[state]
	if ok {
		delete(h.sessionStore, state)
	}
	return s, ok
}

// @Summary      Initiate OIDC login
// @Description  Redirect the browser to the identity provider's authorization URL to begin the login flow
// @Tags         Authentication
// @Produce      json
// @Success      302  {object}  string  "Redirects to the provider authorization URL"
// @Failure      400  {object}  map[string]interface{}  "OIDC provider not configured"
// @Failure      500  {object}  map[string]interface{}  "Failed to generate state"
// @Router       /api/v1/auth/login [get]
// LoginHandler initiates the OIDC login flow
// GET /api/v1/auth/login
func (h *AuthHandlers) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.oidcProvider == nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "OIDC provider not configured",
			})
			return
		}

		state, err := generateState()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to generate state",
			})
			return
		}

		h.storeState(state)
		c.Redirect(http.StatusFound, h.oidcProvider.GetAuthURL(state))
	}
}

// @Summary      OIDC callback handler
// @Description  Handles the callback from the identity provider. Exchanges the authorization code for a session JWT and redirects the browser to the frontend /auth/callback page with the token as a query parameter.
// @Tags         Authentication
// @Produce      json
// @Param        code   query  string  true   "Authorization code from the provider"
// @Param        state  query  string  true   "State parameter for CSRF validation"
// @Success      302  {object}  string  "Redirects to frontend /auth/callback?token=<jwt>"
// @Failure      400  {object}  map[string]interface{}  "Invalid state or authorization code"
// @Router       /api/v1/auth/callback [get]
// CallbackHandler completes the authorization code flow
// GET /api/v1/auth/callback?code=...&state=...
func (h *AuthHandlers) CallbackHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Derive the frontend base URL once; used for both the success redirect
		// and all error redirects so the user always lands on the frontend
		// callback page.
		frontendBase := deriveFrontendURL(h.cfg)

		// callbackError redirects the browser to the frontend /auth/callback
		// page with error details as query parameters. The frontend displays a
		// message and navigates back to /login after a short delay. Falls back
		// to a plain JSON response only when no frontend URL can be derived.
		callbackError := func(errCode, description string) {
			telemetry.AuthLoginsTotal.WithLabelValues("failure").Inc()
			if frontendBase == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": description})
				return
			}
			target := fmt.Sprintf(
				"%s/auth/callback?error=%s&error_description=%s",
				frontendBase,
				url.QueryEscape(errCode),
				url.QueryEscape(description),
			)
			c.Redirect(http.StatusFound, target)
		}

		if h.oidcProvider == nil {
			callbackError("provider_not_configured", "OIDC provider is not configured.")
			return
		}

		code := c.Query("code")
		state := c.Query("state")

		sessionState, exists := h.consumeState(state)
		if !exists {
			callbackError("invalid_state", "Invalid state parameter. Please try logging in again.")
			return
		}

		if time.Since(sessionState.CreatedAt) > stateTTL {
			callbackError("state_expired", "Login session expired. Please try logging in again.")
			return
		}

		ctx := c.Request.Context()

		token, err := h.oidcProvider.ExchangeCode(ctx, code)
		if err != nil {
			callbackError("token_exchange_failed", "Failed to exchange authorization code for token.")
			return
		}

		rawIDToken, ok := token.Extra("id_token").(string)
		if !ok {
			callbackError("no_id_token", "The identity provider did not return an ID token.")
			return
		}

		idToken, err := h.oidcProvider.VerifyIDToken(ctx, rawIDToken)
		if err != nil {
			callbackError("id_token_invalid", "The ID token could not be verified.")
			return
		}

		sub, email, name, err := h.oidcProvider.ExtractUserInfo(idToken)
		if err != nil {
			callbackError("user_info_failed", "Failed to extract user information from the ID token.")
			return
		}

		jwtToken, err := auth.GenerateJWT(sub, email, h.cfg.Auth.Session.TokenTTL)
		if err != nil {
			callbackError("jwt_failed", "Failed to generate an authentication token.")
			return
		}

		slog.Info("user signed in", "sub", sub, "name", name)
		telemetry.AuthLoginsTotal.WithLabelValues("success").Inc()

		// Redirect the browser to the frontend callback page with the JWT in
		// the query string so the SPA can store the token.
		redirectTarget := fmt.Sprintf("%s/auth/callback?token=%s", frontendBase, url.QueryEscape(jwtToken))
		c.Redirect(http.StatusFound, redirectTarget)
	}
}

// @Summary      Get current session
// @Description  Returns the identity carried by the session token and whether the caller already has a profile
// @Tags         Authentication
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "user identity and has_profile flag"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Router       /api/v1/auth/me [get]
// MeHandler returns the current authenticated session's identity
// GET /api/v1/auth/me
func (h *AuthHandlers) MeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "User not authenticated",
			})
			return
		}

		hasProfile := false
		profile, err := h.profileRepo.GetByUserID(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to look up profile",
			})
			return
		}
		if profile != nil {
			hasProfile = true
		}

		c.JSON(http.StatusOK, gin.H{
			"user": gin.H{
				"id":    userID,
				"email": c.GetString("email"),
			},
			"has_profile": hasProfile,
		})
	}
}

// @Summary      Sign out
// @Description  Revokes the presented session token until its natural expiry. When the identity provider advertises an end_session_endpoint it is returned so the client can also terminate the SSO session.
// @Tags         Authentication
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "signed_out plus optional end_session_endpoint"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Router       /api/v1/auth/signout [post]
// SignoutHandler revokes the current session token
// POST /api/v1/auth/signout
func (h *AuthHandlers) SignoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsVal, exists := c.Get("token_claims")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "User not authenticated",
			})
			return
		}

		claims, ok := claimsVal.(*auth.Claims)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Invalid token claims",
			})
			return
		}

		// Denylist the token ID for exactly as long as the token would
		// otherwise remain valid; after that the entry is dead weight.
		// Without a revocation store (or an expiry to bound the entry) the
		// token stays valid until it expires on its own, so the response
		// says so instead of pretending it was revoked.
		revoked := false
		if h.revoker != nil && claims.ExpiresAt != nil {
			ttl := time.Until(claims.ExpiresAt.Time)
			if err := h.revoker.Revoke(c.Request.Context(), claims.ID, ttl); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Failed to revoke session",
				})
				return
			}
			revoked = true
		} else {
			slog.Warn("sign-out without revocation: token remains valid until expiry",
				"token_id", claims.ID,
				"revoker_configured", h.revoker != nil,
			)
		}

		resp := gin.H{"signed_out": true, "revoked": revoked}

		// Without this, clicking "Log in" again after sign-out silently
		// re-authenticates the user via the still-active IdP session cookie.
		if h.oidcProvider != nil {
			if endSession := h.oidcProvider.GetEndSessionEndpoint(); endSession != "" {
				if logoutURL, err := url.Parse(endSession); err == nil {
					q := logoutURL.Query()
					q.Set("post_logout_redirect_uri", deriveFrontendURL(h.cfg)+"/")
					// Keycloak requires either id_token_hint or client_id when
					// post_logout_redirect_uri is set. client_id is public
					// config and needs nothing stored client-side.
					q.Set("client_id", h.cfg.Auth.OIDC.ClientID)
					logoutURL.RawQuery = q.Encode()
					resp["end_session_endpoint"] = logoutURL.String()
				}
			}
		}

		c.JSON(http.StatusOK, resp)
	}
}

// deriveFrontendURL returns the browser-facing base URL of the frontend SPA.
// It tries (in order):
//  1. cfg.Server.PublicURL — set explicitly to the frontend's public address
//  2. The origin (scheme + host) of cfg.Auth.OIDC.RedirectURL — the registered
//     callback URL already points at the public address, so stripping its path
//     gives the base.
//  3. cfg.Server.BaseURL — internal backend address, last resort.
func deriveFrontendURL(cfg *config.Config) string {
	if cfg.Server.PublicURL != "" {
		return strings.TrimRight(cfg.Server.PublicURL, "/")
	}
	if cfg.Auth.OIDC.RedirectURL != "" {
		if u, err := url.Parse(cfg.Auth.OIDC.RedirectURL); err == nil {
			return fmt.Sprintf("%s://%s", u.Scheme, u.Host)
		}
	}
	return strings.TrimRight(cfg.Server.BaseURL, "/")
}
