package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	adminapp "github.com/sngm3741/building-survey-services/api/internal/admin/application"
	"github.com/sngm3741/building-survey-services/api/internal/config"
	"github.com/sngm3741/building-survey-services/api/internal/imaging"
	"github.com/sngm3741/building-survey-services/api/internal/infrastructure/xlsx"
	adminhttp "github.com/sngm3741/building-survey-services/api/internal/interfaces/http/admin"
	"github.com/sngm3741/building-survey-services/api/internal/interfaces/http/common"
	publichttp "github.com/sngm3741/building-survey-services/api/internal/interfaces/http/public"
	"github.com/sngm3741/building-survey-services/api/internal/logging"
	publicapp "github.com/sngm3741/building-survey-services/api/internal/public/application"
	"github.com/sngm3741/building-survey-services/api/internal/session"
)

// Server owns the HTTP lifecycle and is the composition root wiring stores,
// application services and handlers together.
type Server struct {
	logger *logrus.Logger
	addr   string
	stores *Stores
	coord  *coordination
	router http.Handler
}

// New opens the configured stores and builds the router.
func New(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*Server, error) {
	mode, err := publicapp.ParseChallengeMode(cfg.HumanCheck.Mode)
	if err != nil {
		return nil, err
	}

	stores, err := OpenStores(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	coord, err := openCoordination(ctx, cfg, logger)
	if err != nil {
		_ = stores.Close(context.Background())
		return nil, err
	}

	codec := session.NewCodec(cfg.Session.Secret, cfg.Session.Issuer, cfg.Session.Audience)
	normalizer := imaging.NewNormalizer(cfg.MaxUploadBytes)

	intake := publicapp.NewIntakeService(stores.Surveys, normalizer, coord.challenges, publicapp.IntakeConfig{
		Challenge: publicapp.ChallengeConfig{
			Mode:          mode,
			FixedQuestion: cfg.HumanCheck.Question,
			FixedAnswer:   cfg.HumanCheck.Answer,
			TTL:           cfg.Session.IntakeTTL,
		},
		SessionTTL: cfg.Session.IntakeTTL,
	})
	gate := adminapp.NewGate(stores.Users, adminapp.GateConfig{
		AdminUsername: cfg.AdminUsername,
		AdminPassword: cfg.AdminPassword,
		BcryptCost:    cfg.BcryptCost,
	})
	reviews := adminapp.NewReviewService(stores.Surveys, stores.Reviews, coord.locker, normalizer, xlsx.NewExporter())

	srv := &Server{
		logger: logger,
		addr:   cfg.Addr,
		stores: stores,
		coord:  coord,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logging.RequestLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(withCORS(cfg.AllowedOrigins))

	router.Get("/healthz", srv.healthHandler())

	publicHandler := publichttp.NewHandler(publichttp.Config{
		Logger:         logger.WithField("component", "public"),
		Intake:         intake,
		Codec:          codec,
		MaxPhotoBytes:  int64(cfg.MaxUploadBytes),
		RequestTimeout: cfg.RequestTimeout,
	})
	router.Route("/api", publicHandler.Register)

	adminHandler := adminhttp.NewHandler(adminhttp.Config{
		Logger:         logger.WithField("component", "admin"),
		Gate:           gate,
		Reviews:        reviews,
		Codec:          codec,
		SessionTTL:     cfg.Session.AdminTTL,
		MaxPhotoBytes:  int64(cfg.MaxUploadBytes),
		RequestTimeout: cfg.RequestTimeout,
	})
	router.Route("/admin", adminHandler.Register)

	srv.router = router
	return srv, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves HTTP until the listener fails or the process receives SIGINT/SIGTERM.
func (s *Server) Run() error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.addr).WithField("store", s.stores.Driver).Info("http server listening")
		errChan <- httpServer.ListenAndServe()
	}()

	return waitForShutdown(httpServer, errChan, s)
}

// withCORS answers preflight requests and sets CORS headers for allowed origins.
func withCORS(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{})
	allowAll := false
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin == "*" {
			allowAll = true
			continue
		}
		allowed[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" || (!allowAll && len(allowed) > 0 && !originAllowed(origin, allowed)) {
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusNoContent)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type")
			w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
			w.Header().Set("Access-Control-Max-Age", "300")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(origin string, allowed map[string]struct{}) bool {
	if len(allowed) == 0 {
		return true
	}
	_, ok := allowed[origin]
	return ok
}

// healthHandler reports store reachability only.
func (s *Server) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.stores.Ping(ctx); err != nil {
			s.logger.WithError(err).Warn("health check failed")
			common.WriteJSON(s.logger, w, http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"store":  s.stores.Driver,
				"error":  err.Error(),
			})
			return
		}

		common.WriteJSON(s.logger, w, http.StatusOK, map[string]string{
			"status": "ok",
			"store":  s.stores.Driver,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// Close releases the store and the Redis client.
func (s *Server) Close(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return errors.Join(s.coord.Close(), s.stores.Close(shutdownCtx))
}

func waitForShutdown(httpServer *http.Server, errChan <-chan error, srv *Server) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var runErr error
	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("http server: %w", err)
		}
	case sig := <-sigChan:
		srv.logger.WithField("signal", sig.String()).Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			srv.logger.WithError(err).Warn("http shutdown")
		}
	}

	if err := srv.Close(context.Background()); err != nil {
		srv.logger.WithError(err).Warn("release resources")
	}
	return runErr
}
