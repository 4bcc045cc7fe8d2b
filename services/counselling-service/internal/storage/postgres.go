package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/counselbook/libs/db"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/model"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/outbox"
	"github.com/md-rashed-zaman/counselbook/services/counselling-service/internal/scheduling"
)

const uniqueViolation = "23505"

// Postgres is the pgx-backed Store. Every unit of work is one read-committed
// transaction; outbox rows are written through the same transaction.
type Postgres struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewPostgres(pool *db.Pool) *Postgres {
	return &Postgres{pool: pool, outbox: outbox.NewRepository(pool)}
}

func (p *Postgres) InTx(ctx context.Context, fn func(ctx context.Context, tx scheduling.Tx) error) error {
	return p.pool.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(ctx, pgTx{tx: tx, outbox: p.outbox})
	})
}

type pgTx struct {
	tx     pgx.Tx
	outbox *outbox.Repository
}

// mapErr translates driver errors into scheduling error kinds.
func mapErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", scheduling.ErrNotFound, what)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case "counsellors_license_number_key":
			return fmt.Errorf("%w: license number already registered", scheduling.ErrConflict)
		case "counsellors_user_id_key":
			return fmt.Errorf("%w: user already has a counsellor profile", scheduling.ErrConflict)
		}
		return fmt.Errorf("%w: %s", scheduling.ErrConflict, pgErr.Detail)
	}
	return err
}

func (t pgTx) GetUser(ctx context.Context, id string) (model.User, error) {
	var u model.User
	err := t.tx.QueryRow(ctx, `
		SELECT id, email, first_name, last_name, phone, role, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Phone, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, mapErr(err, "user "+id)
	}
	return u, nil
}

func (t pgTx) UpsertUser(ctx context.Context, u model.User) (model.User, error) {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO users (id, email, first_name, last_name, phone, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			phone = EXCLUDED.phone,
			updated_at = EXCLUDED.updated_at
		RETURNING role, created_at
	`, u.ID, u.Email, u.FirstName, u.LastName, u.Phone, u.Role, u.CreatedAt, u.UpdatedAt).Scan(&u.Role, &u.CreatedAt)
	if err != nil {
		return model.User{}, mapErr(err, "user "+u.ID)
	}
	return u, nil
}

func (t pgTx) SetUserRole(ctx context.Context, id string, role model.Role) error {
	tag, err := t.tx.Exec(ctx, `UPDATE users SET role = $2, updated_at = now() WHERE id = $1`, id, role)
	if err != nil {
		return mapErr(err, "user "+id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %s", scheduling.ErrNotFound, id)
	}
	return nil
}

// LockCounsellorSchedule takes a transaction-scoped advisory lock keyed by counsellor id.
func (t pgTx) LockCounsellorSchedule(ctx context.Context, counsellorID string) error {
	_, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, counsellorID)
	return err
}

func (t pgTx) AppendEvent(ctx context.Context, evt outbox.Event) error {
	return t.outbox.Insert(ctx, t.tx, evt)
}

// where accumulates AND-ed predicates with positional arguments.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(clause string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, strings.ReplaceAll(clause, "?", "$"+strconv.Itoa(len(w.args))))
}

func (w *where) addRaw(clause string) {
	w.clauses = append(w.clauses, clause)
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.clauses, " AND ")
}

// limit appends LIMIT/OFFSET placeholders. A zero limit means no limit.
func (w *where) limit(limit, offset int) string {
	var b strings.Builder
	if limit > 0 {
		w.args = append(w.args, limit)
		b.WriteString(" LIMIT $" + strconv.Itoa(len(w.args)))
	}
	if offset > 0 {
		w.args = append(w.args, offset)
		b.WriteString(" OFFSET $" + strconv.Itoa(len(w.args)))
	}
	return b.String()
}
