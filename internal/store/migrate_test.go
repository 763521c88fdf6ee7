package store

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffattend/internal/store/migrations"
)

func TestMigrationsAreEmbedded(t *testing.T) {
	names, err := fs.Glob(migrations.FS, "*.sql")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"00001_employees.sql",
		"00002_attendance_records.sql",
		"00003_employee_descriptors.sql",
	}, names)

	b, err := fs.ReadFile(migrations.FS, "00002_attendance_records.sql")
	require.NoError(t, err)
	assert.Contains(t, string(b), "UNIQUE (employee_id, work_date)")
}

func TestMigrateUsesEmbeddedDir(t *testing.T) {
	orig := gooseUp
	t.Cleanup(func() { gooseUp = orig })

	var dir string
	gooseUp = func(_ context.Context, _ *sql.DB, d string) error {
		dir = d
		return nil
	}
	require.NoError(t, Migrate(context.Background(), nil))
	assert.Equal(t, ".", dir)

	gooseUp = func(context.Context, *sql.DB, string) error { return errors.New("boom") }
	assert.ErrorContains(t, Migrate(context.Background(), nil), "boom")
}
