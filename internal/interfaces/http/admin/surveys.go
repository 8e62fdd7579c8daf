package admin

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sngm3741/building-survey-services/api/internal/domain"
	"github.com/sngm3741/building-survey-services/api/internal/interfaces/http/common"
)

// surveyListHandler lists pending surveys, or reviewed ones with ?reviewed=true.
func (h *Handler) surveyListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		reviewed := false
		if raw := strings.TrimSpace(query.Get("reviewed")); raw != "" {
			parsed, err := strconv.ParseBool(raw)
			if err != nil {
				common.WriteError(h.logger, w, domain.NewValidationError("reviewed", "must be true or false"), "list surveys")
				return
			}
			reviewed = parsed
		}
		if reviewed {
			h.writeReviewed(w, r)
			return
		}
		paging := common.PagingFromQuery(query.Get("limit"), query.Get("page"))

		ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
		defer cancel()

		surveys, err := h.reviews.Pending(ctx, common.SessionFrom(r), paging)
		if err != nil {
			common.WriteError(h.logger, w, err, "list pending surveys")
			return
		}
		items := make([]surveyResponse, 0, len(surveys))
		for _, s := range surveys {
			items = append(items, surveyToResponse(s))
		}
		common.WriteJSON(h.logger, w, http.StatusOK, listResponse[surveyResponse]{Items: items, Page: paging.Page, Limit: paging.Limit})
	}
}

func (h *Handler) reviewedListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.writeReviewed(w, r)
	}
}

func (h *Handler) writeReviewed(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	paging := common.PagingFromQuery(query.Get("limit"), query.Get("page"))

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	rows, err := h.reviews.Reviewed(ctx, common.SessionFrom(r), paging)
	if err != nil {
		common.WriteError(h.logger, w, err, "list reviewed surveys")
		return
	}
	items := make([]surveyResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, reviewedToResponse(row))
	}
	common.WriteJSON(h.logger, w, http.StatusOK, listResponse[surveyResponse]{Items: items, Page: paging.Page, Limit: paging.Limit})
}

func (h *Handler) surveyDetailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := common.ParseID("id", chi.URLParam(r, "id"))
		if err != nil {
			common.WriteError(h.logger, w, err, "load survey")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
		defer cancel()

		detail, err := h.reviews.Inspect(ctx, common.SessionFrom(r), id)
		if err != nil {
			common.WriteError(h.logger, w, err, "load survey")
			return
		}
		resp := surveyToResponse(detail.Survey)
		if detail.Review != nil {
			resp.Review = reviewToResponse(*detail.Review)
		}
		common.WriteJSON(h.logger, w, http.StatusOK, resp)
	}
}

// surveyUpdateHandler overwrites a survey from the same form the intake uses.
func (h *Handler) surveyUpdateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := common.ParseID("id", chi.URLParam(r, "id"))
		if err != nil {
			common.WriteError(h.logger, w, err, "update survey")
			return
		}
		if err := common.ParseForm(r); err != nil {
			common.WriteError(h.logger, w, err, "update survey")
			return
		}
		if r.MultipartForm != nil {
			defer r.MultipartForm.RemoveAll()
		}
		input, err := common.SurveyInputFromForm(r, h.maxPhotoBytes)
		if err != nil {
			common.WriteError(h.logger, w, err, "update survey")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
		defer cancel()

		sess := common.SessionFrom(r)
		updated, err := h.reviews.EditSurvey(ctx, sess, id, input)
		if err != nil {
			common.WriteError(h.logger, w, err, "update survey")
			return
		}
		h.logger.WithField("survey_id", id).WithField("by", sess.Username).Info("survey edited")
		common.WriteJSON(h.logger, w, http.StatusOK, surveyToResponse(*updated))
	}
}

func (h *Handler) surveyImageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := common.ParseID("id", chi.URLParam(r, "id"))
		if err != nil {
			common.WriteError(h.logger, w, err, "load survey image")
			return
		}
		category := domain.ImageCategory(chi.URLParam(r, "category"))

		ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
		defer cancel()

		data, err := h.reviews.SurveyImage(ctx, common.SessionFrom(r), id, category)
		if err != nil {
			common.WriteError(h.logger, w, err, "load survey image")
			return
		}
		writeImage(h.logger, w, data)
	}
}
