package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"dropserve/internal/auth"
)

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResp struct {
	Token string `json:"token"`
}

// loginHandler verifies credentials against the user store and issues
// an access token.
func (cfg Config) loginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		req.Username = strings.TrimSpace(req.Username)
		if req.Username == "" || req.Password == "" {
			http.Error(w, "missing credentials", http.StatusBadRequest)
			return
		}

		ident, err := cfg.Users.Authenticate(r.Context(), req.Username, req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				http.Error(w, "invalid credentials", http.StatusUnauthorized)
				return
			}
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		token, err := cfg.Tokens.Issue(ident)
		if err != nil {
			http.Error(w, "token error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, loginResp{Token: token})
	}
}

type meResp struct {
	Subject  string `json:"subject"`
	CanRead  bool   `json:"can_read"`
	CanWrite bool   `json:"can_write"`
}

// meHandler echoes the identity resolved from the bearer token.
func (cfg Config) meHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident := identityFromContext(r.Context())
		if ident == nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, meResp{
			Subject:  ident.Subject,
			CanRead:  ident.CanRead,
			CanWrite: ident.CanWrite,
		})
	}
}
