package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/sngm3741/building-survey-services/api/internal/interfaces/http/common"
	"github.com/sngm3741/building-survey-services/api/internal/session"
)

type credentialsRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type sessionResponse struct {
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
	Pending   int       `json:"pending"`
	Reviewed  int       `json:"reviewed"`
}

type userResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h *Handler) loginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := common.DecodeJSON(r, &req); err != nil {
			common.WriteError(h.logger, w, err, "read credentials")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
		defer cancel()

		result, err := h.gate.Authenticate(ctx, req.Username, req.Password)
		if err != nil {
			h.logger.WithField("username", req.Username).Info("login rejected")
			common.WriteError(h.logger, w, err, "login")
			return
		}

		sess := session.NewAuthenticated(result.Username, h.now(), h.sessionTTL)
		token, err := h.codec.Encode(sess)
		if err != nil {
			common.WriteError(h.logger, w, err, "issue session token")
			return
		}
		h.logger.WithField("username", result.Username).Info("reviewer logged in")
		common.WriteJSON(h.logger, w, http.StatusOK, loginResponse{
			Token:     token,
			Username:  result.Username,
			ExpiresAt: sess.ExpiresAt,
		})
	}
}

// sessionHandler reports who is logged in together with the dashboard counters.
func (h *Handler) sessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
		defer cancel()

		sess := common.SessionFrom(r)
		counts, err := h.reviews.Counts(ctx, sess)
		if err != nil {
			common.WriteError(h.logger, w, err, "count surveys")
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, sessionResponse{
			Username:  sess.Username,
			ExpiresAt: sess.ExpiresAt,
			Pending:   counts.Pending,
			Reviewed:  counts.Reviewed,
		})
	}
}

func (h *Handler) userCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := common.DecodeJSON(r, &req); err != nil {
			common.WriteError(h.logger, w, err, "read user")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
		defer cancel()

		user, err := h.gate.Register(ctx, req.Username, req.Password)
		if err != nil {
			common.WriteError(h.logger, w, err, "create user")
			return
		}
		h.logger.WithField("username", user.Username).WithField("by", common.SessionFrom(r).Username).Info("reviewer registered")
		common.WriteJSON(h.logger, w, http.StatusCreated, userResponse{
			ID:        user.ID,
			Username:  user.Username,
			CreatedAt: user.CreatedAt,
		})
	}
}
