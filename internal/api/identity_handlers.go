package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"movie-catalog/internal/domain"
	"movie-catalog/internal/store"
	"movie-catalog/internal/validation"
	"movie-catalog/pkg/auth"
)

// IdentityHandler exposes registration, login and token issuance.
type IdentityHandler struct {
	users     store.UserStore
	tokens    auth.TokenManager
	logger    *slog.Logger
	validator *validator.Validate
}

// NewIdentityHandler creates an IdentityHandler.
func NewIdentityHandler(users store.UserStore, tokens auth.TokenManager,
	logger *slog.Logger, validate *validator.Validate) *IdentityHandler {
	return &IdentityHandler{users: users, tokens: tokens, logger: logger, validator: validate}
}

// Register handles POST /api/identity/register.
func (h *IdentityHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if err := h.validator.StructCtx(ctx, req); err != nil {
		respondValidationErrors(w, validation.FromValidatorErrors(err))
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to hash password", slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "Error processing registration")
		return
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: passwordHash,
	}
	if err := h.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			respondError(w, http.StatusConflict, "A user with this email already exists")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to create user", slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "Error processing registration")
		return
	}

	h.logger.InfoContext(ctx, "User registered", slog.String("userID", user.ID))
	respondJSON(w, http.StatusCreated, user)
}

// Login handles POST /api/identity/login. A successful login issues an
// identity token carrying the user's admin and trusted-member claims.
func (h *IdentityHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if err := h.validator.StructCtx(ctx, req); err != nil {
		respondValidationErrors(w, validation.FromValidatorErrors(err))
		return
	}

	user, err := h.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			respondError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to look up user for login", slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "Error processing login")
		return
	}
	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		respondError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := h.tokens.Generate(user.ID, user.Email, map[string]any{
		auth.ClaimAdmin:         user.IsAdmin,
		auth.ClaimTrustedMember: user.IsTrustedMember,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to generate token", slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "Error processing login")
		return
	}

	h.logger.InfoContext(ctx, "User logged in", slog.String("userID", user.ID))
	respondJSON(w, http.StatusOK, domain.TokenResponse{Token: token})
}

// GenerateToken handles POST /api/identity/token: it builds a signed,
// time-limited assertion from the supplied identity facts and custom
// claims.
func (h *IdentityHandler) GenerateToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.TokenGenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if err := h.validator.StructCtx(ctx, req); err != nil {
		respondValidationErrors(w, validation.FromValidatorErrors(err))
		return
	}

	token, err := h.tokens.Generate(req.UserID, req.Email, req.CustomClaims)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to generate token", slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "Error generating token")
		return
	}
	respondJSON(w, http.StatusOK, domain.TokenResponse{Token: token})
}
