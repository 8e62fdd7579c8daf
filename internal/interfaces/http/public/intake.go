package public

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sngm3741/building-survey-services/api/internal/interfaces/http/common"
	publicapp "github.com/sngm3741/building-survey-services/api/internal/public/application"
)

type sessionResponse struct {
	Token     string              `json:"token"`
	ExpiresAt time.Time           `json:"expiresAt"`
	Challenge publicapp.Challenge `json:"challenge"`
}

type surveyCreatedResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

// sessionStartHandler opens a new intake form: a fresh session and its human check.
func (h *Handler) sessionStartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
		defer cancel()

		sess, challenge, err := h.intake.StartSession(ctx)
		if err != nil {
			common.WriteError(h.logger, w, err, "start intake session")
			return
		}
		token, err := h.codec.Encode(sess)
		if err != nil {
			common.WriteError(h.logger, w, err, "issue intake token")
			return
		}
		common.WriteJSON(h.logger, w, http.StatusCreated, sessionResponse{
			Token:     token,
			ExpiresAt: sess.ExpiresAt,
			Challenge: challenge,
		})
	}
}

// surveyCreateHandler accepts the intake form as multipart with photo_<category> files.
func (h *Handler) surveyCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := common.ParseForm(r); err != nil {
			common.WriteError(h.logger, w, err, "parse survey form")
			return
		}
		if r.MultipartForm != nil {
			defer r.MultipartForm.RemoveAll()
		}
		draft, err := common.SurveyInputFromForm(r, h.maxPhotoBytes)
		if err != nil {
			common.WriteError(h.logger, w, err, "read survey form")
			return
		}
		answer := strings.TrimSpace(r.FormValue("human_check"))

		ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
		defer cancel()

		sess := common.SessionFrom(r)
		survey, err := h.intake.Submit(ctx, sess, draft, answer)
		if err != nil {
			common.WriteError(h.logger, w, err, "store survey")
			return
		}

		h.logger.WithFields(logrus.Fields{
			"survey_id": survey.ID,
			"images":    len(draft.Photos),
			"session":   sess.ID,
		}).Info("survey submitted")
		common.WriteJSON(h.logger, w, http.StatusCreated, surveyCreatedResponse{
			Status:  "ok",
			Message: publicapp.SuccessMessage,
			ID:      survey.ID,
		})
	}
}
