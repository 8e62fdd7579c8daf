package public

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/sngm3741/building-survey-services/api/internal/interfaces/http/common"
	publicapp "github.com/sngm3741/building-survey-services/api/internal/public/application"
	"github.com/sngm3741/building-survey-services/api/internal/session"
)

// SessionCodec issues and verifies intake session tokens.
type SessionCodec interface {
	Encode(s session.Session) (string, error)
	Decode(token string) (session.Session, error)
}

// Handler wires public HTTP endpoints to application services.
type Handler struct {
	logger         logrus.FieldLogger
	intake         publicapp.IntakeService
	codec          SessionCodec
	maxPhotoBytes  int64
	requestTimeout time.Duration
}

// Config defines dependencies required by Handler.
type Config struct {
	Logger         logrus.FieldLogger
	Intake         publicapp.IntakeService
	Codec          SessionCodec
	MaxPhotoBytes  int64
	RequestTimeout time.Duration
}

// NewHandler constructs a public HTTP handler set.
func NewHandler(cfg Config) *Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = common.RequestTimeout
	}
	return &Handler{
		logger:         cfg.Logger,
		intake:         cfg.Intake,
		codec:          cfg.Codec,
		maxPhotoBytes:  cfg.MaxPhotoBytes,
		requestTimeout: cfg.RequestTimeout,
	}
}

// Register mounts all public routes onto the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/options", h.optionsHandler())
	r.Post("/intake/sessions", h.sessionStartHandler())
	r.With(common.RequireSession(h.logger, h.codec, session.KindIntake)).Post("/surveys", h.surveyCreateHandler())
}

func (h *Handler) optionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		common.WriteJSON(h.logger, w, http.StatusOK, h.intake.Options())
	}
}
