package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/model"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/scheduling"
)

const counsellorColumns = `id, user_id, specialization, qualifications, license_number, years_of_experience,
	hourly_rate::float8, bio, languages, availability, rating_average, rating_total,
	is_verified, is_active, session_modalities, created_at, updated_at`

func scanCounsellor(row pgx.Row) (model.Counsellor, error) {
	var c model.Counsellor
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Specialization,
		&c.Qualifications,
		&c.LicenseNumber,
		&c.YearsOfExperience,
		&c.HourlyRate,
		&c.Bio,
		&c.Languages,
		&c.Availability,
		&c.Rating.Average,
		&c.Rating.TotalReviews,
		&c.IsVerified,
		&c.IsActive,
		&c.SessionModalities,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

func (t pgTx) GetCounsellor(ctx context.Context, id string) (model.Counsellor, error) {
	c, err := scanCounsellor(t.tx.QueryRow(ctx, `SELECT `+counsellorColumns+` FROM counsellors WHERE id = $1`, id))
	if err != nil {
		return model.Counsellor{}, mapErr(err, "counsellor "+id)
	}
	return c, nil
}

func (t pgTx) GetCounsellorByUser(ctx context.Context, userID string) (model.Counsellor, error) {
	c, err := scanCounsellor(t.tx.QueryRow(ctx, `SELECT `+counsellorColumns+` FROM counsellors WHERE user_id = $1`, userID))
	if err != nil {
		return model.Counsellor{}, mapErr(err, "counsellor for user "+userID)
	}
	return c, nil
}

func (t pgTx) ListCounsellors(ctx context.Context, f scheduling.CounsellorFilter) ([]model.Counsellor, int, error) {
	var w where
	if f.ActiveOnly {
		w.addRaw("is_active")
	}
	if f.Specialization != "" {
		w.add("? = ANY(specialization)", f.Specialization)
	}
	if f.SessionType != "" {
		w.add("? = ANY(session_modalities)", f.SessionType)
	}
	if f.MinRating > 0 {
		w.add("rating_average >= ?", f.MinRating)
	}
	if f.IsVerified != nil {
		w.add("is_verified = ?", *f.IsVerified)
	}

	var total int
	if err := t.tx.QueryRow(ctx, `SELECT count(*) FROM counsellors `+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + counsellorColumns + ` FROM counsellors ` + w.String() +
		` ORDER BY rating_average DESC, rating_total DESC, id`
	query += w.limit(f.Limit, f.Offset)
	rows, err := t.tx.Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	list := []model.Counsellor{}
	for rows.Next() {
		c, err := scanCounsellor(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, c)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return list, total, nil
}

func (t pgTx) InsertCounsellor(ctx context.Context, c model.Counsellor) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO counsellors
			(id, user_id, specialization, qualifications, license_number, years_of_experience, hourly_rate,
			 bio, languages, availability, rating_average, rating_total, is_verified, is_active,
			 session_modalities, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, c.ID, c.UserID, c.Specialization, c.Qualifications, c.LicenseNumber, c.YearsOfExperience, c.HourlyRate,
		c.Bio, c.Languages, c.Availability, c.Rating.Average, c.Rating.TotalReviews, c.IsVerified, c.IsActive,
		c.SessionModalities, c.CreatedAt, c.UpdatedAt)
	return mapErr(err, "counsellor "+c.ID)
}

func (t pgTx) UpdateCounsellor(ctx context.Context, c model.Counsellor) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE counsellors
		SET specialization = $2,
			qualifications = $3,
			license_number = $4,
			years_of_experience = $5,
			hourly_rate = $6,
			bio = $7,
			languages = $8,
			availability = $9,
			is_verified = $10,
			is_active = $11,
			session_modalities = $12,
			updated_at = $13
		WHERE id = $1
	`, c.ID, c.Specialization, c.Qualifications, c.LicenseNumber, c.YearsOfExperience, c.HourlyRate,
		c.Bio, c.Languages, c.Availability, c.IsVerified, c.IsActive, c.SessionModalities, c.UpdatedAt)
	if err != nil {
		return mapErr(err, "counsellor "+c.ID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: counsellor %s", scheduling.ErrNotFound, c.ID)
	}
	return nil
}

func (t pgTx) DeleteCounsellor(ctx context.Context, id string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM counsellors WHERE id = $1`, id)
	if err != nil {
		return mapErr(err, "counsellor "+id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: counsellor %s", scheduling.ErrNotFound, id)
	}
	return nil
}
