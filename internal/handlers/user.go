package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/recipeapp/apiserver/internal/services"
	"github.com/recipeapp/apiserver/internal/store"
	"github.com/recipeapp/apiserver/types"
)

// UserHandler serves account creation, token issuance and the profile.
type UserHandler struct {
	userService *services.UserService
	secret      []byte
	tokenTTL    time.Duration
}

// NewUserHandler constructs a UserHandler with the provided dependencies.
func NewUserHandler(userService *services.UserService, jwtSecret string, tokenTTL time.Duration) *UserHandler {
	return &UserHandler{
		userService: userService,
		secret:      []byte(jwtSecret),
		tokenTTL:    tokenTTL,
	}
}

// UserRouter registers user routes on the given router. tokenLimit wraps the
// token endpoint and may be nil.
func UserRouter(r chi.Router, handler *UserHandler, tokenLimit func(http.Handler) http.Handler) {
	r.Post("/create", handler.Create)
	if tokenLimit != nil {
		r.With(tokenLimit).Post("/token", handler.Token)
	} else {
		r.Post("/token", handler.Token)
	}
	r.Group(func(r chi.Router) {
		r.Use(requireAuth(handler.secret))
		r.Get("/me", handler.Me)
		r.Patch("/me", handler.UpdateMe)
		r.Post("/me", MethodNotAllowed)
		r.Put("/me", MethodNotAllowed)
		r.Delete("/me", MethodNotAllowed)
	})
}

type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Name     string `json:"name" validate:"max=255"`
}

type TokenRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	Name     *string `json:"name" validate:"omitnil,max=255"`
	Password *string `json:"password" validate:"omitnil,min=6,max=72"`
}

type UserResponse struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

func newUserResponse(u types.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Name: u.Name}
}

// Create registers a new account.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Name = sanitizeText(req.Name)
	if fields := validate.Struct(req); fields != nil {
		writeFieldErrors(w, fields)
		return
	}

	user, err := h.userService.CreateUser(r.Context(), req.Email, req.Password, services.WithName(req.Name))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			writeFieldErrors(w, map[string]string{"email": "user with this email already exists"})
		case errors.Is(err, services.ErrEmailRequired):
			writeFieldErrors(w, map[string]string{"email": "this field is required"})
		default:
			respondError(w, r, err, "failed to create user")
		}
		return
	}

	writeJSON(w, http.StatusCreated, newUserResponse(user))
}

// Token exchanges credentials for a signed token.
func (h *UserHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fields := validate.Struct(req); fields != nil {
		writeFieldErrors(w, fields)
		return
	}

	user, err := h.userService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusBadRequest, "unable to authenticate with provided credentials")
			return
		}
		respondError(w, r, err, "failed to authenticate")
		return
	}

	token, err := issueToken(user.ID, h.secret, h.tokenTTL)
	if err != nil {
		respondError(w, r, err, "failed to create token")
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{Token: token})
}

// Me returns the current authenticated user.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		respondError(w, r, err, "failed to load user")
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(user))
}

// UpdateMe applies a partial update to the current user's profile.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req UpdateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sanitizeTextPtr(req.Name)
	if fields := validate.Struct(req); fields != nil {
		writeFieldErrors(w, fields)
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, services.ProfileUpdate{
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		respondError(w, r, err, "failed to update user")
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(user))
}
