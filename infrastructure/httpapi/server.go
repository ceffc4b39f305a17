package httpapi

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"roster-lab/errors"
	"roster-lab/services"
)

// Server is the HTTP command surface. Everything it exposes delegates to
// the services; no roster rule lives here.
type Server struct {
	echo *echo.Echo
	log  *slog.Logger
	addr string
}

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func NewServer(
	addr string,
	log *slog.Logger,
	sessions services.ISessionService,
	enrollment services.IEnrollmentService,
	offers services.IOfferService,
	payments services.IPaymentService,
	autosignup services.IAutoSignupService,
	invites services.IInviteService,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{validate: validator.New()}
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	handler := &Handler{
		sessions:   sessions,
		enrollment: enrollment,
		offers:     offers,
		payments:   payments,
		autosignup: autosignup,
		invites:    invites,
	}
	handler.RegisterRoutes(e)

	return &Server{echo: e, log: log, addr: addr}
}

func (s *Server) Start() error {
	s.log.Info("Starting HTTP server", slog.String("addr", s.addr))
	err := s.echo.Start(s.addr)
	if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP lets the server be driven directly, mainly by tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// httpError maps business sentinels onto HTTP statuses. Anything
// unmatched is a 500.
func httpError(err error) error {
	switch {
	case stderrors.Is(err, errors.ErrSessionNotFound),
		stderrors.Is(err, errors.ErrNotEnrolled),
		stderrors.Is(err, errors.ErrNotWaitlisted),
		stderrors.Is(err, errors.ErrOfferNotFound),
		stderrors.Is(err, errors.ErrUnknownUser):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case stderrors.Is(err, errors.ErrAlreadyEnrolled),
		stderrors.Is(err, errors.ErrAlreadyRequested):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case stderrors.Is(err, errors.ErrSessionClosed),
		stderrors.Is(err, errors.ErrSessionNotClosed),
		stderrors.Is(err, errors.ErrInvalidCapacity):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case stderrors.Is(err, errors.ErrOfferExpired),
		stderrors.Is(err, errors.ErrInviteExpired):
		return echo.NewHTTPError(http.StatusGone, err.Error())
	case stderrors.Is(err, errors.ErrInsufficientCredit),
		stderrors.Is(err, errors.ErrQuotaExceeded):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
