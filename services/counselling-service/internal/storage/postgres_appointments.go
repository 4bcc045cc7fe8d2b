package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/model"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/scheduling"
)

const appointmentColumns = `id, client_id, counsellor_id, appointment_date, duration, session_type, status,
	amount::float8, client_notes, counsellor_notes, cancellation_reason, satisfaction_rating, satisfaction_feedback,
	meeting_link, emergency_contact_present, payment_status, checkout_session_id, created_at, updated_at`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var a model.Appointment
	var rating *int
	var feedback *string
	err := row.Scan(
		&a.ID,
		&a.ClientID,
		&a.CounsellorID,
		&a.AppointmentDate,
		&a.Duration,
		&a.SessionType,
		&a.Status,
		&a.Amount,
		&a.ClientNotes,
		&a.CounsellorNotes,
		&a.CancellationReason,
		&rating,
		&feedback,
		&a.MeetingLink,
		&a.EmergencyContactPresent,
		&a.PaymentStatus,
		&a.CheckoutSessionID,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	if rating != nil {
		a.ClientSatisfaction = &model.Satisfaction{Rating: *rating}
		if feedback != nil {
			a.ClientSatisfaction.Feedback = *feedback
		}
	}
	return a, nil
}

func satisfactionColumns(s *model.Satisfaction) (*int, *string) {
	if s == nil {
		return nil, nil
	}
	return &s.Rating, &s.Feedback
}

func appointmentWhere(f scheduling.AppointmentFilter) *where {
	w := &where{}
	if f.ClientID != "" {
		w.add("client_id = ?", f.ClientID)
	}
	if f.CounsellorID != "" {
		w.add("counsellor_id = ?", f.CounsellorID)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		w.add("status = ANY(?)", statuses)
	}
	if !f.From.IsZero() {
		w.add("appointment_date >= ?", f.From)
	}
	if !f.To.IsZero() {
		w.add("appointment_date <= ?", f.To)
	}
	return w
}

func (t pgTx) GetAppointment(ctx context.Context, id string) (model.Appointment, error) {
	a, err := scanAppointment(t.tx.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id))
	if err != nil {
		return model.Appointment{}, mapErr(err, "appointment "+id)
	}
	return a, nil
}

func (t pgTx) ListAppointments(ctx context.Context, f scheduling.AppointmentFilter) ([]model.Appointment, error) {
	w := appointmentWhere(f)
	query := `SELECT ` + appointmentColumns + ` FROM appointments ` + w.String() + ` ORDER BY appointment_date ASC, id`
	query += w.limit(f.Limit, f.Offset)
	rows, err := t.tx.Query(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	appts := []model.Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

func (t pgTx) CountAppointments(ctx context.Context, f scheduling.AppointmentFilter) (int, error) {
	w := appointmentWhere(f)
	var n int
	err := t.tx.QueryRow(ctx, `SELECT count(*) FROM appointments `+w.String(), w.args...).Scan(&n)
	return n, err
}

func (t pgTx) InsertAppointment(ctx context.Context, a model.Appointment) error {
	rating, feedback := satisfactionColumns(a.ClientSatisfaction)
	_, err := t.tx.Exec(ctx, `
		INSERT INTO appointments
			(id, client_id, counsellor_id, appointment_date, duration, session_type, status, amount,
			 client_notes, counsellor_notes, cancellation_reason, satisfaction_rating, satisfaction_feedback,
			 meeting_link, emergency_contact_present, payment_status, checkout_session_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`, a.ID, a.ClientID, a.CounsellorID, a.AppointmentDate, a.Duration, a.SessionType, a.Status, a.Amount,
		a.ClientNotes, a.CounsellorNotes, a.CancellationReason, rating, feedback,
		a.MeetingLink, a.EmergencyContactPresent, a.PaymentStatus, a.CheckoutSessionID, a.CreatedAt, a.UpdatedAt)
	return mapErr(err, "appointment "+a.ID)
}

func (t pgTx) UpdateAppointment(ctx context.Context, a model.Appointment) error {
	rating, feedback := satisfactionColumns(a.ClientSatisfaction)
	tag, err := t.tx.Exec(ctx, `
		UPDATE appointments
		SET status = $2,
			client_notes = $3,
			counsellor_notes = $4,
			cancellation_reason = $5,
			satisfaction_rating = $6,
			satisfaction_feedback = $7,
			meeting_link = $8,
			payment_status = $9,
			checkout_session_id = $10,
			updated_at = $11
		WHERE id = $1
	`, a.ID, a.Status, a.ClientNotes, a.CounsellorNotes, a.CancellationReason, rating, feedback,
		a.MeetingLink, a.PaymentStatus, a.CheckoutSessionID, a.UpdatedAt)
	if err != nil {
		return mapErr(err, "appointment "+a.ID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: appointment %s", scheduling.ErrNotFound, a.ID)
	}
	return nil
}

func (t pgTx) DeleteAppointment(ctx context.Context, id string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return mapErr(err, "appointment "+id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: appointment %s", scheduling.ErrNotFound, id)
	}
	return nil
}
