package rotation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresDialect(t *testing.T) {
	d := PostgresDialect{}
	validUntil := time.Date(2025, 5, 30, 0, 0, 0, 0, time.UTC)

	t.Run("SingleStatementWithRoles", func(t *testing.T) {
		stmts := d.CreateUserStatements("app1234", "pw", []string{"readwrite", "reporting"}, validUntil, 90)
		require.Len(t, stmts, 1)
		assert.Equal(t,
			`CREATE USER "app1234" WITH PASSWORD 'pw' IN ROLE "readwrite", "reporting" VALID UNTIL '2025-05-30T00:00:00Z'`,
			stmts[0])
	})

	t.Run("NoRolesOmitsInRole", func(t *testing.T) {
		stmts := d.CreateUserStatements("app1234", "pw", nil, validUntil, 90)
		require.Len(t, stmts, 1)
		assert.NotContains(t, stmts[0], "IN ROLE")
	})

	t.Run("QuotesHostileIdentifiers", func(t *testing.T) {
		stmts := d.CreateUserStatements(`us"er`, `p'w`, nil, validUntil, 90)
		require.Len(t, stmts, 1)
		assert.Contains(t, stmts[0], `"us""er"`)
		assert.Contains(t, stmts[0], `'p''w'`)
	})

	t.Run("DataSourceRequiresTLS", func(t *testing.T) {
		driver, dsn := d.DataSource("db.example.com", "admin", "pw")
		assert.Equal(t, "postgres", driver)
		assert.Contains(t, dsn, "host=db.example.com")
		assert.Contains(t, dsn, "sslmode=require")
		assert.Contains(t, dsn, "dbname=postgres")
	})
}

func TestMySQLDialect(t *testing.T) {
	d := MySQLDialect{}
	validUntil := time.Date(2025, 5, 30, 0, 0, 0, 0, time.UTC)

	t.Run("CreateThenGrantPerRole", func(t *testing.T) {
		stmts := d.CreateUserStatements("app1234", "pw", []string{"r1", "r2"}, validUntil, 90)
		require.Len(t, stmts, 3)
		assert.Equal(t, "CREATE USER 'app1234'@'%' IDENTIFIED BY 'pw' PASSWORD EXPIRE INTERVAL 90 DAY", stmts[0])
		assert.Equal(t, "GRANT 'r1' TO 'app1234'@'%'", stmts[1])
		assert.Equal(t, "GRANT 'r2' TO 'app1234'@'%'", stmts[2])
	})

	t.Run("FractionalDaysRoundUp", func(t *testing.T) {
		stmts := d.CreateUserStatements("u", "pw", nil, validUntil, 0.5)
		assert.Contains(t, stmts[0], "INTERVAL 1 DAY")
	})

	t.Run("DataSourceRequiresTLS", func(t *testing.T) {
		driver, dsn := d.DataSource("db.example.com", "admin", "pw")
		assert.Equal(t, "mysql", driver)
		assert.Contains(t, dsn, "db.example.com")
		assert.Contains(t, dsn, "tls=true")
	})
}
