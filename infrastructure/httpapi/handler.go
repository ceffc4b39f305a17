package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"roster-lab/domain"
	"roster-lab/services"
)

type Handler struct {
	sessions   services.ISessionService
	enrollment services.IEnrollmentService
	offers     services.IOfferService
	payments   services.IPaymentService
	autosignup services.IAutoSignupService
	invites    services.IInviteService
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	tenant := e.Group("/api/v1/tenants/:tenant")

	tenant.GET("/settings", h.GetSettings)
	tenant.PUT("/settings", h.PutSettings)

	tenant.GET("/users/:user/credits", h.GetBalance)
	tenant.POST("/users/:user/credits", h.GrantCredits)

	sessions := tenant.Group("/sessions")
	sessions.POST("", h.CreateSession)
	sessions.GET("", h.ListSessions)
	sessions.GET("/:id", h.GetSession)
	sessions.PATCH("/:id", h.UpdateSession)
	sessions.DELETE("/:id", h.DeleteSession)
	sessions.POST("/:id/open", h.OpenSession)
	sessions.POST("/:id/close", h.CloseSession)
	sessions.POST("/:id/capacity", h.ResizeSession)

	sessions.POST("/:id/enrollments", h.Enroll)
	sessions.GET("/:id/enrollments", h.ListEnrollments)
	sessions.DELETE("/:id/enrollments/:user", h.Cancel)
	sessions.GET("/:id/waitlist", h.ListWaitlist)
	sessions.DELETE("/:id/waitlist/:user", h.LeaveWaitlist)

	sessions.POST("/:id/offer/accept", h.AcceptOffer)
	sessions.POST("/:id/offer/decline", h.DeclineOffer)

	sessions.POST("/:id/payments/pending", h.MarkPaymentPending)
	sessions.POST("/:id/payments/confirm", h.ConfirmPayment)
	sessions.POST("/:id/payments/reject", h.RejectPayment)

	sessions.POST("/:id/autosignup", h.RequestAutoSignup)

	sessions.POST("/:id/invites", h.Invite)
	sessions.POST("/:id/invites/respond", h.RespondInvite)
}

func pathIDs(c echo.Context) (domain.TenantID, uuid.UUID, error) {
	tenant := domain.TenantID(c.Param("tenant"))
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return "", uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}
	return tenant, id, nil
}

func (h *Handler) CreateSession(c echo.Context) error {
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	session, err := h.sessions.Create(c.Request().Context(), services.CreateSessionRequest{
		Tenant:      domain.TenantID(c.Param("tenant")),
		Organizer:   domain.UserID(req.Organizer),
		Capacity:    req.Capacity,
		ScheduledAt: req.ScheduledAt,
		Duration:    time.Duration(req.DurationMin) * time.Minute,
		Kind:        req.Kind,
		Location:    req.Location,
		Price:       req.Price,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, toSessionResponse(session))
}

func (h *Handler) ListSessions(c echo.Context) error {
	sessions, err := h.sessions.List(domain.TenantID(c.Param("tenant")))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, lo.Map(sessions, func(s domain.Session, _ int) sessionResponse {
		return toSessionResponse(s)
	}))
}

func (h *Handler) GetSession(c echo.Context) error {
	tenant, id, err := pathIDs(c)
	if err != nil {
		return err
	}
	session, err := h.sessions.Get(tenant, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toSessionResponse(session))
}

func (h *Handler) UpdateSession(c echo.Context) error {
	tenant, id, err := pathIDs(c)
	if err != nil {
		return err
	}
	var req updateSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	update := services.UpdateSessionRequest{
		ScheduledAt: req.ScheduledAt,
		Kind:        req.Kind,
		Location:    req.Location,
		Price:       req.Price,
	}
	if req.DurationMin != nil {
		update.Duration = lo.ToPtr(time.Duration(*req.DurationMin) * time.Minute)
	}

	session, err := h.sessions.Update(c.Request().Context(), tenant, id, update)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, toSessionResponse(session))
}

func (h *Handler) DeleteSession(c echo.Context) error {
	tenant, id, err := pathIDs(c)
	if err != nil {
		return err
	}
	if err := h.sessions.Delete(c.Request().Context(), tenant, id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) OpenSession(c echo.Context) error {
	tenant, id, err := pathIDs(c)
	if err != nil {
		return err
	}
	result, err := h.sessions.Open(c.Request().Context(), tenant, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, openResponse{
		AutoAdmitted: lo.Map(result.AutoAdmitted, func(u domain.UserID, _ int) string {
			return string(u)
		}),
	})
}

func (h *Handler) CloseSession(c echo.Context) error {
	tenant, id, err := pathIDs(c)
	if err != nil {
		return err
	}
	if err := h.sessions.Close(c.Request().Context(), tenant, id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ResizeSession(c echo.Context) error {
	tenant, id, err := pathIDs(c)
	if err != nil {
		return err
	}
	var req resizeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.enrollment.Resize(c.Request().Context(), tenant, id, req.Capacity); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Enroll(c echo.Context) error {
	tenant, id, err := pathIDs(c)
	if err != nil {
		return err
	}
	var req userRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	placement, err := h.enrollment.Enroll(c.Request().Context(), tenant, id, domain.UserID(req.UserID))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, placementResponse{
		Kind:     string(placement.Kind),
		Position: placement.Position,
	})
}

func (h *Handler) Cancel(c echo.Context) error {
	tenant, id, err := pathIDs(c)
	if err != nil {
		return err
	}
	if err := h.enrollment.Cancel(c.Request().Context(), tenant, id, domain.UserID(c.Param("user"))); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListEnrollments(c echo.Context) error {
	tenant, id, err := pathIDs(c)
	if err != nil {
		return err
	}
	enrollments, err := h.enrollment.ListEnrollments(tenant, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, lo.Map(enrollments, func(e domain.Enrollment, _ int) enrollmentResponse {
		return enrollmentResponse{
			UserID:     string(e.User),
			Admission:  string(e.Admission),
			Payment:    string(e.Payment),
			EnrolledAt: e.EnrolledAt,
			OfferedAt:  e.OfferedAt,
		}
	}))
}

func (h *Handler) ListWaitlist(c echo.Context) error {
	tenant, id, err := pathIDs(c)
	if err != nil {
		return err
	}
	entries, err := h.enrollment.ListWaitlist(tenant, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, lo.Map(entries, func(e domain.WaitlistEntry, _ int) waitlistResponse {
		return waitlistResponse{
			UserID:   string(e.User),
			Position: e.Position,
			JoinedAt: e.JoinedAt,
		}
	}))
}

func (h *Handler) LeaveWaitlist(c echo.Context) error {
	tenant, id, err := pathIDs(c)
	if err != nil {
		return err
	}
	if err := h.enrollment.LeaveWaitlist(c.Request().Context(), tenant, id, domain.UserID(c.Param("user"))); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AcceptOffer(c echo.Context) error {
	return h.resolveOffer(c, h.offers.AcceptOffer)
}

func (h *Handler) DeclineOffer(c echo.Context) error {
	return h.resolveOffer(c, h.offers.DeclineOffer)
}

// resolveOffer handles the common "session + user in body" command shape
// shared by offers, payments and auto-signup.
func (h *Handler) resolveOffer(c echo.Context, resolve func(ctx context.Context, tenant domain.TenantID, session uuid.UUID, user domain.UserID) error) error {
	tenant, id, err := pathIDs(c)
	if err != nil {
		return err
	}
	var req userRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := resolve(c.Request().Context(), tenant, id, domain.UserID(req.UserID)); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) MarkPaymentPending(c echo.Context) error {
	return h.resolveOffer(c, h.payments.MarkPending)
}

func (h *Handler) ConfirmPayment(c echo.Context) error {
	return h.resolveOffer(c, h.payments.Confirm)
}

func (h *Handler) RejectPayment(c echo.Context) error {
	return h.resolveOffer(c, h.payments.Reject)
}

func (h *Handler) RequestAutoSignup(c echo.Context) error {
	return h.resolveOffer(c, h.autosignup.Request)
}

func (h *Handler) GetBalance(c echo.Context) error {
	tenant := domain.TenantID(c.Param("tenant"))
	user := domain.UserID(c.Param("user"))
	balance, err := h.autosignup.Balance(tenant, user)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, balanceResponse{UserID: string(user), Balance: balance})
}

func (h *Handler) GrantCredits(c echo.Context) error {
	var req grantRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	tenant := domain.TenantID(c.Param("tenant"))
	user := domain.UserID(c.Param("user"))
	balance, err := h.autosignup.Grant(tenant, user, req.Amount)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, balanceResponse{UserID: string(user), Balance: balance})
}

func (h *Handler) Invite(c echo.Context) error {
	tenant, id, err := pathIDs(c)
	if err != nil {
		return err
	}
	var req inviteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	placement, err := h.invites.Invite(c.Request().Context(), tenant, id, domain.UserID(req.Inviter), domain.UserID(req.Invitee))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, placementResponse{
		Kind:     string(placement.Kind),
		Position: placement.Position,
	})
}

func (h *Handler) RespondInvite(c echo.Context) error {
	tenant, id, err := pathIDs(c)
	if err != nil {
		return err
	}
	var req respondRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.invites.Respond(c.Request().Context(), tenant, id, domain.UserID(req.UserID), req.Accept); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetSettings(c echo.Context) error {
	settings, err := h.sessions.Settings(domain.TenantID(c.Param("tenant")))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, settingsResponse{
		PaymentDeadlineMin: int(settings.PaymentDeadline.Minutes()),
		InviteLimit:        settings.InviteLimit,
	})
}

func (h *Handler) PutSettings(c echo.Context) error {
	var req settingsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	err := h.sessions.UpdateSettings(domain.TenantSettings{
		Tenant:          domain.TenantID(c.Param("tenant")),
		PaymentDeadline: time.Duration(req.PaymentDeadlineMin) * time.Minute,
		InviteLimit:     req.InviteLimit,
	})
	if err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
