package gormstore

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Placeholders differ per dialect: "?" for MySQL, "$n" for Postgres.
const (
	arg   = `(?:\$\d|\?)`
	quote = "[`'\"]"
)

var dialects = []struct {
	name      string
	dialector func(conn *sql.DB) gorm.Dialector
}{
	{
		name: "mysql",
		dialector: func(conn *sql.DB) gorm.Dialector {
			return mysql.New(mysql.Config{Conn: conn, SkipInitializeWithVersion: true})
		},
	},
	{
		name: "postgres",
		dialector: func(conn *sql.DB) gorm.Dialector {
			return postgres.New(postgres.Config{Conn: conn})
		},
	},
}

// newGORMMock opens gorm on top of sqlmock. Expectations are checked when
// the test ends.
func newGORMMock(t *testing.T, dialector func(*sql.DB) gorm.Dialector) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)

	db, err := gorm.Open(dialector(conn), &gorm.Config{})
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
	})

	return db.Debug(), mock
}
