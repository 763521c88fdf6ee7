package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

const recordColumns = `id, employee_id, to_char(work_date, 'YYYY-MM-DD'), to_char(check_in, 'HH24:MI:SS'), status, COALESCE(photo, ''), created_at`

// PostgresRepository persists attendance records in Postgres.
type PostgresRepository struct {
	db  *sql.DB
	loc *time.Location
}

// NewRepository creates a repo. loc is the zone used to stamp check-in times.
func NewRepository(db *sql.DB, loc *time.Location) *PostgresRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &PostgresRepository{db: db, loc: loc}
}

// InsertPresent relies on the (employee_id, work_date) unique constraint:
// ON CONFLICT DO NOTHING returns no row when the day is already marked, and a
// unique violation raised by any other path is treated the same way.
func (r *PostgresRepository) InsertPresent(ctx context.Context, rec NewRecord) (Record, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records (id, employee_id, work_date, check_in, status, photo)
		VALUES ($1, $2, $3::date, date_trunc('second', now() AT TIME ZONE $4)::time, 'Present', NULLIF($5, ''))
		ON CONFLICT (employee_id, work_date) DO NOTHING
		RETURNING `+recordColumns,
		uuid.NewString(), rec.EmployeeID, rec.Date, r.loc.String(), rec.Photo,
	)

	out, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, false, nil
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgUniqueViolation:
				return Record{}, false, nil
			case pgForeignKeyViolation:
				return Record{}, false, fmt.Errorf("%w: %s", ErrUnknownEmployee, rec.EmployeeID)
			}
		}
		return Record{}, false, fmt.Errorf("%w: insert: %v", ErrStoreUnavailable, err)
	}
	return out, true, nil
}

// List returns records with basic filters, newest first.
func (r *PostgresRepository) List(ctx context.Context, q Query) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM attendance_records`
	args := []any{}
	clauses := []string{}
	if q.EmployeeID != "" {
		args = append(args, q.EmployeeID)
		clauses = append(clauses, "employee_id = $"+strconv.Itoa(len(args)))
	}
	if len(q.EmployeeIDs) > 0 {
		args = append(args, q.EmployeeIDs)
		clauses = append(clauses, "employee_id = ANY($"+strconv.Itoa(len(args))+")")
	}
	if !q.From.IsZero() {
		args = append(args, q.From)
		clauses = append(clauses, "work_date >= $"+strconv.Itoa(len(args))+"::date")
	}
	if !q.To.IsZero() {
		args = append(args, q.To)
		clauses = append(clauses, "work_date <= $"+strconv.Itoa(len(args))+"::date")
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY work_date DESC, check_in DESC NULLS LAST, created_at DESC"
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var res []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrStoreUnavailable, err)
		}
		res = append(res, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list: %v", ErrStoreUnavailable, err)
	}
	return res, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec     Record
		date    string
		checkIn sql.NullString
		status  string
	)
	if err := row.Scan(&rec.ID, &rec.EmployeeID, &date, &checkIn, &status, &rec.Photo, &rec.CreatedAt); err != nil {
		return Record{}, err
	}
	d, err := ParseDate(date)
	if err != nil {
		return Record{}, err
	}
	rec.Date = d
	rec.Status = Status(status)
	if checkIn.Valid {
		t, err := ParseTimeOfDay(checkIn.String)
		if err != nil {
			return Record{}, err
		}
		rec.Time = &t
	}
	return rec, nil
}
