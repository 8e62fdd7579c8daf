package application

import (
	"context"
	"io"

	"github.com/sngm3741/building-survey-services/api/internal/domain"
	"github.com/sngm3741/building-survey-services/api/internal/session"
)

// SurveyRepository exposes the reviewer's view of stored surveys.
type SurveyRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.Survey, error)
	FindByReviewStatus(ctx context.Context, reviewed bool, paging domain.Paging) ([]domain.Survey, error)
	Update(ctx context.Context, survey *domain.Survey, images []domain.SurveyImage) error
	Image(ctx context.Context, surveyID int64, category domain.ImageCategory) (*domain.SurveyImage, error)
	Count(ctx context.Context, reviewed bool) (int, error)
}

// ReviewRepository stores assessments. Create must flip the survey's reviewed flag
// atomically and fail with domain.ErrConflict for a second review.
type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) error
	FindBySurveyID(ctx context.Context, surveyID int64) (*domain.Review, error)
	Image(ctx context.Context, reviewID int64, category domain.ImageCategory) ([]byte, error)
	FindReviewed(ctx context.Context, paging domain.Paging) ([]domain.ReviewedSurvey, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
}

// Locker serialises writes to one survey. The returned func releases the lock.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

type Normalizer interface {
	NormalizeAll(ctx context.Context, photos map[domain.ImageCategory][]byte) (map[domain.ImageCategory][]byte, error)
}

type Exporter interface {
	WritePending(w io.Writer, surveys []domain.Survey) error
	WriteReviewed(w io.Writer, rows []domain.ReviewedSurvey) error
}

// AuthResult is the outcome of a credential check.
type AuthResult struct {
	Authenticated bool
	Username      string
}

// Gate checks reviewer credentials and manages reviewer accounts.
type Gate interface {
	Authenticate(ctx context.Context, username, password string) (AuthResult, error)
	Register(ctx context.Context, username, password string) (*domain.User, error)
}

// SurveyDetail is one survey with its review when one exists.
type SurveyDetail struct {
	Survey domain.Survey
	Review *domain.Review
}

// Counts summarises the dashboard.
type Counts struct {
	Pending  int `json:"pending"`
	Reviewed int `json:"reviewed"`
}

// ReviewService describes the reviewer use-cases. Every call needs an authenticated session.
type ReviewService interface {
	Pending(ctx context.Context, sess session.Session, paging domain.Paging) ([]domain.Survey, error)
	Reviewed(ctx context.Context, sess session.Session, paging domain.Paging) ([]domain.ReviewedSurvey, error)
	Inspect(ctx context.Context, sess session.Session, surveyID int64) (*SurveyDetail, error)
	EditSurvey(ctx context.Context, sess session.Session, surveyID int64, input domain.SurveyInput) (*domain.Survey, error)
	Submit(ctx context.Context, sess session.Session, surveyID int64, input domain.ReviewInput) (*domain.Review, error)
	Review(ctx context.Context, sess session.Session, surveyID int64) (*domain.Review, error)
	SurveyImage(ctx context.Context, sess session.Session, surveyID int64, category domain.ImageCategory) ([]byte, error)
	ReviewImage(ctx context.Context, sess session.Session, reviewID int64, category domain.ImageCategory) ([]byte, error)
	Counts(ctx context.Context, sess session.Session) (Counts, error)
	Export(ctx context.Context, sess session.Session, w io.Writer, reviewed bool) error
}
