package httpapi

import (
	"net/http"
	"time"

	appAuth "github.com/collabify/collabify/internal/application/auth"
	"github.com/collabify/collabify/internal/domain/user"
)

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Role        string `json:"role"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	BrandName   string `json:"brandName"`
	DisplayName string `json:"displayName"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid request body")
		return
	}
	result, err := s.authSvc.Register(r.Context(), appAuth.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		Role:        user.Role(req.Role),
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		BrandName:   req.BrandName,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"user":    result.User,
		"brand":   result.Brand,
		"creator": result.Creator,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid request body")
		return
	}
	ua := r.UserAgent()
	ip := r.RemoteAddr
	result, err := s.authSvc.Login(r.Context(), req.Email, req.Password, &ua, &ip)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.sessionCookieName,
		Value:    result.Token,
		Path:     "/",
		Expires:  result.Session.ExpiresAt,
		HttpOnly: true,
		Secure:   s.sessionCookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user":    result.User,
		"token":   result.Token,
		"session": result.Session,
	})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	if err := s.authSvc.Logout(r.Context(), auth.Token); err != nil {
		respondServiceError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.sessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.sessionCookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	respondJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"userId":  auth.UserID,
		"email":   auth.Email,
		"role":    auth.Role,
		"brandId": auth.BrandID,
	})
}
