package application

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sngm3741/building-survey-services/api/internal/domain"
	"github.com/sngm3741/building-survey-services/api/internal/session"
)

func NewReviewService(surveys SurveyRepository, reviews ReviewRepository, locker Locker, normalizer Normalizer, exporter Exporter) ReviewService {
	return &reviewService{
		surveys:    surveys,
		reviews:    reviews,
		locker:     locker,
		normalizer: normalizer,
		exporter:   exporter,
		now:        time.Now,
	}
}

type reviewService struct {
	surveys    SurveyRepository
	reviews    ReviewRepository
	locker     Locker
	normalizer Normalizer
	exporter   Exporter
	now        func() time.Time
}

func (s *reviewService) authorize(sess session.Session) error {
	if !sess.Authenticated || sess.Expired(s.now()) {
		return domain.ErrUnauthorized
	}
	return nil
}

func surveyLockKey(id int64) string {
	return fmt.Sprintf("survey:%d", id)
}

func (s *reviewService) Pending(ctx context.Context, sess session.Session, paging domain.Paging) ([]domain.Survey, error) {
	if err := s.authorize(sess); err != nil {
		return nil, err
	}
	return s.surveys.FindByReviewStatus(ctx, false, paging)
}

func (s *reviewService) Reviewed(ctx context.Context, sess session.Session, paging domain.Paging) ([]domain.ReviewedSurvey, error) {
	if err := s.authorize(sess); err != nil {
		return nil, err
	}
	return s.reviews.FindReviewed(ctx, paging)
}

// Inspect loads a survey with its photos and, once reviewed, its review.
func (s *reviewService) Inspect(ctx context.Context, sess session.Session, surveyID int64) (*SurveyDetail, error) {
	if err := s.authorize(sess); err != nil {
		return nil, err
	}
	survey, err := s.surveys.FindByID(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	detail := &SurveyDetail{Survey: *survey}
	if survey.Reviewed {
		review, err := s.reviews.FindBySurveyID(ctx, surveyID)
		if err != nil {
			return nil, err
		}
		detail.Review = review
	}
	return detail, nil
}

// EditSurvey corrects a stored survey. Photos are normalised before the lock is taken
// and before anything is written.
func (s *reviewService) EditSurvey(ctx context.Context, sess session.Session, surveyID int64, input domain.SurveyInput) (*domain.Survey, error) {
	if err := s.authorize(sess); err != nil {
		return nil, err
	}
	edited, err := domain.BuildSurvey(input, s.now())
	if err != nil {
		return nil, err
	}
	photos, err := s.normalizer.NormalizeAll(ctx, input.Photos)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, surveyLockKey(surveyID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := s.surveys.FindByID(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	edited.ID = current.ID
	edited.Reviewed = current.Reviewed
	edited.CreatedAt = current.CreatedAt

	images := make([]domain.SurveyImage, 0, len(photos))
	for _, category := range domain.SurveyImageCategories {
		if data, ok := photos[category]; ok {
			images = append(images, domain.SurveyImage{SurveyID: surveyID, Category: category, Data: data})
		}
	}
	if err := s.surveys.Update(ctx, edited, images); err != nil {
		return nil, err
	}
	return s.surveys.FindByID(ctx, surveyID)
}

// Submit records the review of surveyID on behalf of the session user.
func (s *reviewService) Submit(ctx context.Context, sess session.Session, surveyID int64, input domain.ReviewInput) (*domain.Review, error) {
	if err := s.authorize(sess); err != nil {
		return nil, err
	}
	review, err := domain.BuildReview(surveyID, input)
	if err != nil {
		return nil, err
	}
	photos, err := s.normalizer.NormalizeAll(ctx, input.Photos)
	if err != nil {
		return nil, err
	}
	if len(photos) > 0 {
		review.Photos = photos
	}
	review.ReviewedBy = sess.Username
	review.ReviewedAt = s.now().UTC()

	unlock, err := s.locker.Lock(ctx, surveyLockKey(surveyID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

func (s *reviewService) Review(ctx context.Context, sess session.Session, surveyID int64) (*domain.Review, error) {
	if err := s.authorize(sess); err != nil {
		return nil, err
	}
	return s.reviews.FindBySurveyID(ctx, surveyID)
}

func (s *reviewService) SurveyImage(ctx context.Context, sess session.Session, surveyID int64, category domain.ImageCategory) ([]byte, error) {
	if err := s.authorize(sess); err != nil {
		return nil, err
	}
	if _, err := domain.NewSurveyImageCategory(string(category)); err != nil {
		return nil, err
	}
	img, err := s.surveys.Image(ctx, surveyID, category)
	if err != nil {
		return nil, err
	}
	return img.Data, nil
}

func (s *reviewService) ReviewImage(ctx context.Context, sess session.Session, reviewID int64, category domain.ImageCategory) ([]byte, error) {
	if err := s.authorize(sess); err != nil {
		return nil, err
	}
	if _, err := domain.NewReviewImageCategory(string(category)); err != nil {
		return nil, err
	}
	return s.reviews.Image(ctx, reviewID, category)
}

func (s *reviewService) Counts(ctx context.Context, sess session.Session) (Counts, error) {
	if err := s.authorize(sess); err != nil {
		return Counts{}, err
	}
	pending, err := s.surveys.Count(ctx, false)
	if err != nil {
		return Counts{}, err
	}
	reviewed, err := s.surveys.Count(ctx, true)
	if err != nil {
		return Counts{}, err
	}
	return Counts{Pending: pending, Reviewed: reviewed}, nil
}

// Export writes every pending or every reviewed survey as a spreadsheet.
func (s *reviewService) Export(ctx context.Context, sess session.Session, w io.Writer, reviewed bool) error {
	if err := s.authorize(sess); err != nil {
		return err
	}
	if reviewed {
		rows, err := s.reviews.FindReviewed(ctx, domain.Paging{})
		if err != nil {
			return err
		}
		return s.exporter.WriteReviewed(w, rows)
	}
	surveys, err := s.surveys.FindByReviewStatus(ctx, false, domain.Paging{})
	if err != nil {
		return err
	}
	return s.exporter.WritePending(w, surveys)
}
