package httpapi

import (
	"time"

	"roster-lab/domain"
)

type createSessionRequest struct {
	Organizer   string    `json:"organizer" validate:"required"`
	Capacity    int       `json:"capacity" validate:"gt=0"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	DurationMin int       `json:"duration_minutes" validate:"gte=0"`
	Kind        string    `json:"kind"`
	Location    string    `json:"location"`
	Price       int64     `json:"price" validate:"gte=0"`
}

type updateSessionRequest struct {
	ScheduledAt *time.Time `json:"scheduled_at"`
	DurationMin *int       `json:"duration_minutes"`
	Kind        *string    `json:"kind"`
	Location    *string    `json:"location"`
	Price       *int64     `json:"price"`
}

type resizeRequest struct {
	Capacity int `json:"capacity" validate:"gt=0"`
}

type userRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type grantRequest struct {
	Amount int `json:"amount" validate:"required"`
}

type inviteRequest struct {
	Inviter string `json:"inviter" validate:"required"`
	Invitee string `json:"invitee" validate:"required"`
}

type respondRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Accept bool   `json:"accept"`
}

type settingsRequest struct {
	PaymentDeadlineMin int `json:"payment_deadline_minutes" validate:"gte=0"`
	InviteLimit        int `json:"invite_limit" validate:"gte=0"`
}

type sessionResponse struct {
	ID          string    `json:"id"`
	Organizer   string    `json:"organizer"`
	Capacity    int       `json:"capacity"`
	ScheduledAt time.Time `json:"scheduled_at"`
	DurationMin int       `json:"duration_minutes"`
	Kind        string    `json:"kind,omitempty"`
	Location    string    `json:"location,omitempty"`
	Price       int64     `json:"price"`
	Status      string    `json:"status"`
}

func toSessionResponse(s domain.Session) sessionResponse {
	return sessionResponse{
		ID:          s.ID.String(),
		Organizer:   string(s.Organizer),
		Capacity:    s.Capacity,
		ScheduledAt: s.ScheduledAt,
		DurationMin: int(s.Duration.Minutes()),
		Kind:        s.Kind,
		Location:    s.Location,
		Price:       s.Price,
		Status:      string(s.Status),
	}
}

type placementResponse struct {
	Kind     string `json:"kind"`
	Position int    `json:"position,omitempty"`
}

type enrollmentResponse struct {
	UserID     string     `json:"user_id"`
	Admission  string     `json:"admission"`
	Payment    string     `json:"payment"`
	EnrolledAt time.Time  `json:"enrolled_at"`
	OfferedAt  *time.Time `json:"offered_at,omitempty"`
}

type waitlistResponse struct {
	UserID   string    `json:"user_id"`
	Position int       `json:"position"`
	JoinedAt time.Time `json:"joined_at"`
}

type openResponse struct {
	AutoAdmitted []string `json:"auto_admitted"`
}

type balanceResponse struct {
	UserID  string `json:"user_id"`
	Balance int    `json:"balance"`
}

type settingsResponse struct {
	PaymentDeadlineMin int `json:"payment_deadline_minutes"`
	InviteLimit        int `json:"invite_limit"`
}
