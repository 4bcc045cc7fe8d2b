package model

import (
	"slices"
	"time"
)

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no-show"
)

// ActiveStatuses hold a counsellor's time.
var ActiveStatuses = []Status{StatusScheduled, StatusConfirmed}

var AllStatuses = []Status{
	StatusScheduled, StatusConfirmed, StatusInProgress,
	StatusCompleted, StatusCancelled, StatusNoShow,
}

func (s Status) Valid() bool {
	return slices.Contains(AllStatuses, s)
}

func (s Status) Active() bool {
	return s == StatusScheduled || s == StatusConfirmed
}

const (
	SessionVideo    = "video"
	SessionPhone    = "phone"
	SessionInPerson = "in-person"
	SessionChat     = "chat"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
	PaymentFailed   PaymentStatus = "failed"
)

type Satisfaction struct {
	Rating   int    `json:"rating" validate:"min=1,max=5"`
	Feedback string `json:"feedback,omitempty" validate:"max=500"`
}

type Appointment struct {
	ID                      string        `json:"id"`
	ClientID                string        `json:"client"`
	CounsellorID            string        `json:"counsellor"`
	AppointmentDate         time.Time     `json:"appointmentDate"`
	Duration                int           `json:"duration"`
	SessionType             string        `json:"sessionType"`
	Status                  Status        `json:"status"`
	Amount                  float64       `json:"amount"`
	ClientNotes             string        `json:"clientNotes,omitempty"`
	CounsellorNotes         string        `json:"counsellorNotes,omitempty"`
	CancellationReason      string        `json:"cancellationReason,omitempty"`
	ClientSatisfaction      *Satisfaction `json:"clientSatisfaction,omitempty"`
	MeetingLink             string        `json:"meetingLink,omitempty"`
	EmergencyContactPresent bool          `json:"emergencyContactPresent"`
	PaymentStatus           PaymentStatus `json:"paymentStatus"`
	CheckoutSessionID       string        `json:"checkoutSessionId,omitempty"`
	CreatedAt               time.Time     `json:"createdAt"`
	UpdatedAt               time.Time     `json:"updatedAt"`
}

// End is the nominal end of the session.
func (a Appointment) End() time.Time {
	return a.AppointmentDate.Add(time.Duration(a.Duration) * time.Minute)
}
