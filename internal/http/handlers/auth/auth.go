package auth

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Niyati251208/sports-performance-analyzer/internal/types/uploads"
	"github.com/Niyati251208/sports-performance-analyzer/internal/utils/jwt"
	"github.com/Niyati251208/sports-performance-analyzer/internal/utils/response"
)

// Login echoes the identity back. There is no credential check; the token only lets
// the client skip resending the identity and open the event stream.
// @Summary Log in with a name and email
// @Description Returns the identity, plus a token when the server has a signing secret
// @Tags auth
// @Accept json
// @Produce json
// @Param user body uploads.LoginRequest true "Name and email"
// @Success 200 {object} uploads.LoginResponse "Identity accepted, or success false when a field is missing"
// @Failure 400 {object} response.Response "Bad request"
// @Failure 500 {object} response.Response "Internal server error"
// @Router /login [post]
func Login(jwtSecret string, tokenTTL time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req uploads.LoginRequest

		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil && !errors.Is(err, io.EOF) {
			response.WriteJSON(w, http.StatusBadRequest, response.Failure("Invalid request body"))
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		req.Email = strings.TrimSpace(req.Email)

		if err := validator.New().Struct(req); err != nil {
			// Missing fields are a soft failure, not an HTTP error.
			response.WriteJSON(w, http.StatusOK, response.Failure("Name and Email required"))
			return
		}

		resp := uploads.LoginResponse{
			Success: true,
			User:    uploads.LoginUser{Name: req.Name, Email: req.Email},
		}

		if jwtSecret != "" {
			token, err := jwt.CreateToken(req.Name, req.Email, jwtSecret, tokenTTL)
			if err != nil {
				slog.Error("Failed to generate token", slog.String("error", err.Error()))
				response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError())
				return
			}
			resp.Token = token
		}

		slog.Info("User logged in", slog.String("email", req.Email))
		response.WriteJSON(w, http.StatusOK, resp)
	}
}
