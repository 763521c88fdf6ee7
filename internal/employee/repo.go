package employee

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"staffattend/internal/attendance"
	"staffattend/internal/matcher"
)

const employeeColumns = `e.id, e.code, e.name, e.department, to_char(e.join_date, 'YYYY-MM-DD'), e.active,
	COALESCE(e.photo, ''), e.created_at, e.updated_at,
	(SELECT count(*) FROM employee_descriptors d WHERE d.employee_id = e.code)`

// PostgresRepository stores employees and their face descriptors.
type PostgresRepository struct {
	db *sql.DB
}

// NewRepository returns the Postgres registry.
func NewRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees e`
	args := []any{}
	clauses := []string{}
	if f.Department != "" {
		args = append(args, f.Department)
		clauses = append(clauses, "lower(e.department) = lower($"+strconv.Itoa(len(args))+")")
	}
	if f.ActiveOnly {
		clauses = append(clauses, "e.active")
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY e.code"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list employees", err)
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, storeErr("scan employee", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list employees", err)
	}
	return out, nil
}

func (r *PostgresRepository) Get(ctx context.Context, code string) (Employee, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM employees e WHERE e.code = $1`, code)
	e, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Employee{}, ErrNotFound
	}
	if err != nil {
		return Employee{}, storeErr("get employee", err)
	}
	return e, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, code string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM employees WHERE code = $1)`, code).Scan(&ok)
	if err != nil {
		return false, storeErr("employee exists", err)
	}
	return ok, nil
}

func (r *PostgresRepository) Create(ctx context.Context, e Employee) (Employee, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO employees (id, code, name, department, join_date, active, photo)
		VALUES ($1, $2, $3, $4, $5::date, $6, NULLIF($7, ''))
	`, e.ID, e.Code, e.Name, e.Department, e.JoinDate, e.Active, e.Photo)
	if err != nil {
		return Employee{}, mapWriteErr("create employee", err)
	}
	return r.Get(ctx, e.Code)
}

// Update rewrites the row identified by code. Changing e.Code renames the
// employee; attendance rows and descriptors follow through ON UPDATE CASCADE.
func (r *PostgresRepository) Update(ctx context.Context, code string, e Employee) (Employee, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE employees
		SET code = $2, name = $3, department = $4, join_date = $5::date, active = $6,
		    photo = NULLIF($7, ''), updated_at = now()
		WHERE code = $1
	`, code, e.Code, e.Name, e.Department, e.JoinDate, e.Active, e.Photo)
	if err != nil {
		return Employee{}, mapWriteErr("update employee", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Employee{}, ErrNotFound
	}
	return r.Get(ctx, e.Code)
}

func (r *PostgresRepository) Delete(ctx context.Context, code string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM employees WHERE code = $1`, code)
	if err != nil {
		return storeErr("delete employee", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceDescriptors swaps all descriptors of an employee in one transaction.
func (r *PostgresRepository) ReplaceDescriptors(ctx context.Context, code string, vectors [][]float32) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM employee_descriptors WHERE employee_id = $1`, code); err != nil {
		return storeErr("delete descriptors", err)
	}
	for i, v := range vectors {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO employee_descriptors (employee_id, embedding) VALUES ($1, $2::vector)`,
			code, pgvector.NewVector(v),
		); err != nil {
			return mapWriteErr(fmt.Sprintf("insert descriptor %d", i), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return storeErr("commit transaction", err)
	}
	return nil
}

// Descriptors returns the gallery of active employees ordered by code.
func (r *PostgresRepository) Descriptors(ctx context.Context) ([]matcher.LabeledDescriptor, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT d.employee_id, d.embedding
		FROM employee_descriptors d
		JOIN employees e ON e.code = d.employee_id
		WHERE e.active
		ORDER BY d.employee_id, d.id
	`)
	if err != nil {
		return nil, storeErr("list descriptors", err)
	}
	defer rows.Close()

	var out []matcher.LabeledDescriptor
	for rows.Next() {
		var (
			d   matcher.LabeledDescriptor
			vec pgvector.Vector
		)
		if err := rows.Scan(&d.EmployeeID, &vec); err != nil {
			return nil, storeErr("scan descriptor", err)
		}
		d.Vector = vec.Slice()
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list descriptors", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row rowScanner) (Employee, error) {
	var (
		e    Employee
		join sql.NullString
	)
	if err := row.Scan(&e.ID, &e.Code, &e.Name, &e.Department, &join, &e.Active,
		&e.Photo, &e.CreatedAt, &e.UpdatedAt, &e.DescriptorCount); err != nil {
		return Employee{}, err
	}
	if join.Valid {
		e.JoinDate = attendance.ParseDateOrZero(join.String)
	}
	return e, nil
}

func mapWriteErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrDuplicateCode
		case "23503":
			return ErrNotFound
		}
	}
	return storeErr(op, err)
}

// storeErr marks a database failure as transient so callers answer 503.
func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", attendance.ErrStoreUnavailable, op, err)
}
