package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType.
type Event struct {
	ID            string
	OccurredAt    time.Time
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	AggregateAppointment = "appointment"
	AggregateCounsellor  = "counsellor"

	AppointmentBooked  = "counselling.appointment.booked.v1"
	AppointmentUpdated = "counselling.appointment.updated.v1"
	AppointmentDeleted = "counselling.appointment.deleted.v1"
	AppointmentPayment = "counselling.appointment.payment.v1"
	CounsellorCreated  = "counselling.counsellor.created.v1"
	CounsellorDeleted  = "counselling.counsellor.deleted.v1"
)

func NewEvent(aggregateType, aggregateID, eventType string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:            uuid.NewString(),
		OccurredAt:    time.Now().UTC(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       raw,
	}, nil
}
