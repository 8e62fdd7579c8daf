package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sngm3741/building-survey-services/api/internal/domain"
	"github.com/sngm3741/building-survey-services/api/internal/session"
)

// SurveyRepository is the write side the intake form needs.
type SurveyRepository interface {
	Create(ctx context.Context, survey *domain.Survey, images []domain.SurveyImage) error
}

// Normalizer rescales and re-encodes uploaded photos.
type Normalizer interface {
	NormalizeAll(ctx context.Context, photos map[domain.ImageCategory][]byte) (map[domain.ImageCategory][]byte, error)
}

// IntakeService describes the citizen-facing use-cases.
type IntakeService interface {
	StartSession(ctx context.Context) (session.Session, Challenge, error)
	Submit(ctx context.Context, sess session.Session, draft domain.SurveyInput, answer string) (*domain.Survey, error)
	Options() FormOptions
}

// FormOptions lists the choices the intake and review forms offer.
type FormOptions struct {
	TypesOfUse             []string               `json:"typesOfUse"`
	NumberOfUsers          []string               `json:"numberOfUsers"`
	ImportanceCategories   []string               `json:"buildingImportanceCategories"`
	Answers                []string               `json:"answers"`
	MinFloors              int                    `json:"minFloors"`
	MaxFloors              int                    `json:"maxFloors"`
	MinConstructionYear    int                    `json:"minConstructionYear"`
	MaxConstructionYear    int                    `json:"maxConstructionYear"`
	SurveyImageCategories  []domain.ImageCategory `json:"surveyImageCategories"`
	StructuralSystems      []string               `json:"structuralSystems"`
	SoilClasses            []string               `json:"soilClasses"`
	LoadCapacityReductions []string               `json:"loadCapacityReductions"`
	ReviewImageCategories  []domain.ImageCategory `json:"reviewImageCategories"`
	MinInputQuality        int                    `json:"minInputQuality"`
	MaxInputQuality        int                    `json:"maxInputQuality"`
}

type IntakeConfig struct {
	Challenge  ChallengeConfig
	SessionTTL time.Duration
}

func NewIntakeService(repo SurveyRepository, normalizer Normalizer, challenges ChallengeStore, cfg IntakeConfig) IntakeService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = time.Hour
	}
	if cfg.Challenge.TTL <= 0 {
		cfg.Challenge.TTL = cfg.SessionTTL
	}
	return &intakeService{
		repo:       repo,
		normalizer: normalizer,
		challenges: challenges,
		cfg:        cfg,
		now:        time.Now,
		question:   arithmetic,
	}
}

type intakeService struct {
	repo       SurveyRepository
	normalizer Normalizer
	challenges ChallengeStore
	cfg        IntakeConfig
	now        func() time.Time
	question   func() (string, string)
}

// StartSession opens an anonymous intake session and issues its human check.
func (s *intakeService) StartSession(ctx context.Context) (session.Session, Challenge, error) {
	sess := session.NewIntake(s.now(), s.cfg.SessionTTL)

	if s.cfg.Challenge.Mode == ChallengeFixed {
		return sess, Challenge{Mode: ChallengeFixed, Question: s.cfg.Challenge.FixedQuestion}, nil
	}

	question, answer := s.question()
	if err := s.challenges.Put(ctx, sess.ID, answer, s.cfg.Challenge.TTL); err != nil {
		return session.Session{}, Challenge{}, fmt.Errorf("store challenge: %w", err)
	}
	return sess, Challenge{Mode: ChallengeGenerated, Question: question}, nil
}

// Submit validates draft through Reduce, normalises every photo and only then stores
// the survey. A generated challenge is taken from the store before validation; it is
// put back when the submission fails, so a solved challenge yields at most one survey.
func (s *intakeService) Submit(ctx context.Context, sess session.Session, draft domain.SurveyInput, answer string) (*domain.Survey, error) {
	now := s.now()
	if sess.Kind != session.KindIntake || sess.ID == "" || sess.Expired(now) {
		return nil, domain.ErrUnauthorized
	}

	expected, err := s.takeAnswer(ctx, sess)
	if err != nil {
		return nil, err
	}

	stored, err := s.persist(ctx, draft, answer, expected, now)
	if err != nil {
		if rerr := s.restoreAnswer(ctx, sess, expected, now); rerr != nil {
			return nil, errors.Join(err, rerr)
		}
		return nil, err
	}
	return stored, nil
}

func (s *intakeService) persist(ctx context.Context, draft domain.SurveyInput, answer, expected string, now time.Time) (*domain.Survey, error) {
	state := IntakeState{Phase: PhaseCollectingFields, Draft: draft}
	_, effects := Reduce(state, SubmitRequested{Answer: answer, Expected: expected, Now: now})

	var stored *domain.Survey
	for _, effect := range effects {
		switch e := effect.(type) {
		case ShowError:
			return nil, e.Err
		case PersistSurvey:
			images, err := s.normalizer.NormalizeAll(ctx, e.Photos)
			if err != nil {
				return nil, err
			}
			surveyImages := make([]domain.SurveyImage, 0, len(images))
			for _, category := range domain.SurveyImageCategories {
				if data, ok := images[category]; ok {
					surveyImages = append(surveyImages, domain.SurveyImage{Category: category, Data: data})
				}
			}
			if err := s.repo.Create(ctx, e.Survey, surveyImages); err != nil {
				return nil, err
			}
			stored = e.Survey
		case ShowSuccess:
		}
	}
	if stored == nil {
		return nil, errors.New("submission produced no survey")
	}
	return stored, nil
}

func (s *intakeService) takeAnswer(ctx context.Context, sess session.Session) (string, error) {
	if s.cfg.Challenge.Mode == ChallengeFixed {
		return s.cfg.Challenge.FixedAnswer, nil
	}
	expected, err := s.challenges.Take(ctx, sess.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return "", domain.NewValidationError("human_check", "human check expired or already used, start a new form")
	}
	if err != nil {
		return "", fmt.Errorf("take challenge: %w", err)
	}
	return expected, nil
}

// restoreAnswer returns a taken answer for the rest of the session lifetime.
func (s *intakeService) restoreAnswer(ctx context.Context, sess session.Session, expected string, now time.Time) error {
	if s.cfg.Challenge.Mode == ChallengeFixed {
		return nil
	}
	ttl := min(s.cfg.Challenge.TTL, sess.ExpiresAt.Sub(now))
	if ttl <= 0 {
		return nil
	}
	if err := s.challenges.Put(context.WithoutCancel(ctx), sess.ID, expected, ttl); err != nil {
		return fmt.Errorf("restore challenge: %w", err)
	}
	return nil
}

func (s *intakeService) Options() FormOptions {
	return FormOptions{
		TypesOfUse:             domain.TypesOfUse,
		NumberOfUsers:          domain.NumberOfUsersBuckets,
		ImportanceCategories:   domain.ImportanceCategories,
		Answers:                []string{string(domain.AnswerNo), string(domain.AnswerYes)},
		MinFloors:              domain.MinFloors,
		MaxFloors:              domain.MaxFloors,
		MinConstructionYear:    domain.MinConstructionYear,
		MaxConstructionYear:    s.now().Year(),
		SurveyImageCategories:  domain.SurveyImageCategories,
		StructuralSystems:      domain.StructuralSystems,
		SoilClasses:            domain.SoilClasses,
		LoadCapacityReductions: domain.LoadCapacityReductions,
		ReviewImageCategories:  domain.ReviewImageCategories,
		MinInputQuality:        domain.MinInputQuality,
		MaxInputQuality:        domain.MaxInputQuality,
	}
}
