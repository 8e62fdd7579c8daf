package admin

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	adminapp "github.com/sngm3741/building-survey-services/api/internal/admin/application"
	"github.com/sngm3741/building-survey-services/api/internal/interfaces/http/common"
	"github.com/sngm3741/building-survey-services/api/internal/session"
)

// SessionCodec issues and verifies reviewer session tokens.
type SessionCodec interface {
	Encode(s session.Session) (string, error)
	Decode(token string) (session.Session, error)
}

// Handler wires admin HTTP endpoints to application services.
type Handler struct {
	logger         logrus.FieldLogger
	gate           adminapp.Gate
	reviews        adminapp.ReviewService
	codec          SessionCodec
	sessionTTL     time.Duration
	maxPhotoBytes  int64
	requestTimeout time.Duration
	now            func() time.Time
}

// Config provides dependencies for Handler.
type Config struct {
	Logger         logrus.FieldLogger
	Gate           adminapp.Gate
	Reviews        adminapp.ReviewService
	Codec          SessionCodec
	SessionTTL     time.Duration
	MaxPhotoBytes  int64
	RequestTimeout time.Duration
}

// NewHandler constructs an admin HTTP handler set.
func NewHandler(cfg Config) *Handler {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 12 * time.Hour
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = common.RequestTimeout
	}
	return &Handler{
		logger:         cfg.Logger,
		gate:           cfg.Gate,
		reviews:        cfg.Reviews,
		codec:          cfg.Codec,
		sessionTTL:     cfg.SessionTTL,
		maxPhotoBytes:  cfg.MaxPhotoBytes,
		requestTimeout: cfg.RequestTimeout,
		now:            time.Now,
	}
}

// Register mounts admin routes onto router. Everything except /login needs a reviewer session.
func (h *Handler) Register(r chi.Router) {
	r.Post("/login", h.loginHandler())

	r.Group(func(r chi.Router) {
		r.Use(common.RequireSession(h.logger, h.codec, session.KindAdmin))
		r.Get("/session", h.sessionHandler())
		r.Post("/users", h.userCreateHandler())

		r.Get("/surveys", h.surveyListHandler())
		r.Get("/surveys/{id}", h.surveyDetailHandler())
		r.Put("/surveys/{id}", h.surveyUpdateHandler())
		r.Get("/surveys/{id}/images/{category}", h.surveyImageHandler())
		r.Post("/surveys/{id}/review", h.reviewCreateHandler())
		r.Get("/surveys/{id}/review", h.reviewDetailHandler())
		r.Get("/reviews/{id}/images/{category}", h.reviewImageHandler())
		r.Get("/reviewed", h.reviewedListHandler())
		r.Get("/export.xlsx", h.exportHandler())
	})
}

func writeImage(logger logrus.FieldLogger, w http.ResponseWriter, data []byte) {
	common.WriteBytes(logger, w, "image/jpeg", data)
}
