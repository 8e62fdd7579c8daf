package admin

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sngm3741/building-survey-services/api/internal/domain"
	"github.com/sngm3741/building-survey-services/api/internal/infrastructure/xlsx"
	"github.com/sngm3741/building-survey-services/api/internal/interfaces/http/common"
)

// reviewInputFromForm reads the assessment form. Tag lists may be sent as repeated
// fields or as one comma-joined value.
func reviewInputFromForm(r *http.Request, maxPhotoBytes int64) (domain.ReviewInput, error) {
	quality, err := common.ParseOptionalInt("input_quality", r.FormValue("input_quality"))
	if err != nil {
		return domain.ReviewInput{}, err
	}
	photos, err := common.ReadPhotos(r, domain.ReviewImageCategories, maxPhotoBytes)
	if err != nil {
		return domain.ReviewInput{}, err
	}

	field := func(name string) string { return strings.TrimSpace(r.FormValue(name)) }
	return domain.ReviewInput{
		StructuralSystem:          field("structural_system"),
		ArrangementWalls:          field("arrangement_walls"),
		IrregularVertical:         field("irregular_vertical"),
		IrregularHorizontal:       field("irregular_horizontal"),
		TorsionRotation:           field("torsion_rotation"),
		StructuralVulnerabilities: tagValues(r, "structural_vulnerabilities"),
		HeavyFinishes:             field("heavy_finishes"),
		InputQuality:              quality,
		SoilClass:                 field("soil_class"),
		LoadCapacityReduction:     field("load_capacity_reduction"),
		ConstructedArea:           field("constructed_area"),
		StructurePerformance:      field("structure_performance"),
		RetrofittingMethods:       tagValues(r, "retrofitting_methods"),
		Photos:                    photos,
	}, nil
}

func tagValues(r *http.Request, name string) []string {
	values := r.Form[name]
	if len(values) == 1 && strings.Contains(values[0], ",") {
		return domain.SplitTags(values[0]).Strings()
	}
	return values
}

func (h *Handler) reviewCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyID, err := common.ParseID("id", chi.URLParam(r, "id"))
		if err != nil {
			common.WriteError(h.logger, w, err, "submit review")
			return
		}
		if err := common.ParseForm(r); err != nil {
			common.WriteError(h.logger, w, err, "submit review")
			return
		}
		if r.MultipartForm != nil {
			defer r.MultipartForm.RemoveAll()
		}
		input, err := reviewInputFromForm(r, h.maxPhotoBytes)
		if err != nil {
			common.WriteError(h.logger, w, err, "submit review")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
		defer cancel()

		sess := common.SessionFrom(r)
		review, err := h.reviews.Submit(ctx, sess, surveyID, input)
		if err != nil {
			common.WriteError(h.logger, w, err, "submit review")
			return
		}
		h.logger.WithField("survey_id", surveyID).WithField("review_id", review.ID).WithField("by", sess.Username).Info("review submitted")
		common.WriteJSON(h.logger, w, http.StatusCreated, reviewToResponse(*review))
	}
}

func (h *Handler) reviewDetailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyID, err := common.ParseID("id", chi.URLParam(r, "id"))
		if err != nil {
			common.WriteError(h.logger, w, err, "load review")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
		defer cancel()

		review, err := h.reviews.Review(ctx, common.SessionFrom(r), surveyID)
		if err != nil {
			common.WriteError(h.logger, w, err, "load review")
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, reviewToResponse(*review))
	}
}

func (h *Handler) reviewImageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reviewID, err := common.ParseID("id", chi.URLParam(r, "id"))
		if err != nil {
			common.WriteError(h.logger, w, err, "load review image")
			return
		}
		category := domain.ImageCategory(chi.URLParam(r, "category"))

		ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
		defer cancel()

		data, err := h.reviews.ReviewImage(ctx, common.SessionFrom(r), reviewID, category)
		if err != nil {
			common.WriteError(h.logger, w, err, "load review image")
			return
		}
		writeImage(h.logger, w, data)
	}
}

// exportHandler streams a spreadsheet of pending surveys, or reviewed ones with ?reviewed=true.
func (h *Handler) exportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reviewed, _ := strconv.ParseBool(r.URL.Query().Get("reviewed"))

		ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
		defer cancel()

		var buf bytes.Buffer
		if err := h.reviews.Export(ctx, common.SessionFrom(r), &buf, reviewed); err != nil {
			common.WriteError(h.logger, w, err, "export surveys")
			return
		}

		kind := "pending"
		if reviewed {
			kind = "reviewed"
		}
		name := fmt.Sprintf("surveys-%s-%s.xlsx", kind, h.now().UTC().Format(time.DateOnly))
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
		common.WriteBytes(h.logger, w, xlsx.ContentType, buf.Bytes())
	}
}
