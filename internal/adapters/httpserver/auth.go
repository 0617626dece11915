package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

const adminCookie = "bz_admin"

func (s *Server) issueAdminToken(email string, dur time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": email,
		"exp": time.Now().Add(dur).Unix(),
		"iat": time.Now().Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

func (s *Server) verifyAdminToken(tok string) (string, error) {
	parsed, err := jwt.Parse(tok, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("invalid admin token")
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid admin token claims")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", fmt.Errorf("invalid admin token subject")
	}
	return sub, nil
}

func (s *Server) readAdminToken(r *http.Request) string {
	if c, err := r.Cookie(adminCookie); err == nil && c.Value != "" {
		return c.Value
	}
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && auth[:7] == "Bearer " {
		return auth[7:]
	}
	return ""
}

func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	tok := s.readAdminToken(r)
	if tok == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "admin authentication required"})
		return false
	}
	email, err := s.verifyAdminToken(tok)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid admin session"})
		return false
	}
	if _, ok := s.adminAllowed[email]; !ok {
		writeJSON(w, http.StatusForbidden, map[string]any{"error": "not an admin account"})
		return false
	}
	return true
}

func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if s.oauthCfg == nil {
		http.Error(w, "oauth not configured", http.StatusNotFound)
		return
	}
	http.Redirect(w, r, s.oauthCfg.AuthCodeURL("admin"), http.StatusFound)
}

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if s.oauthCfg == nil {
		http.Error(w, "oauth not configured", http.StatusNotFound)
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}
	tok, err := s.oauthCfg.Exchange(r.Context(), code)
	if err != nil {
		log.Error().Err(err).Msg("oauth exchange failed")
		http.Error(w, "oauth exchange failed", http.StatusBadGateway)
		return
	}
	email, err := fetchGoogleEmail(r.Context(), tok.AccessToken)
	if err != nil {
		log.Error().Err(err).Msg("userinfo fetch failed")
		http.Error(w, "userinfo fetch failed", http.StatusBadGateway)
		return
	}
	if _, ok := s.adminAllowed[email]; !ok {
		http.Error(w, "account not allowed", http.StatusForbidden)
		return
	}
	session, err := s.issueAdminToken(email, 12*time.Hour)
	if err != nil {
		http.Error(w, "session error", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     adminCookie,
		Value:    session,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int((12 * time.Hour).Seconds()),
	})
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "email": email})
}

func fetchGoogleEmail(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://www.googleapis.com/oauth2/v2/userinfo", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	var info struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(res.Body).Decode(&info); err != nil {
		return "", err
	}
	if info.Email == "" {
		return "", fmt.Errorf("empty email in userinfo response")
	}
	return info.Email, nil
}
