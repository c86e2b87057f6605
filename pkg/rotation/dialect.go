package rotation

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// Dialect captures the per-engine pieces of the database-user strategy: how
// to dial the server as the administrator and what DDL creates an expiring
// user with role memberships.
type Dialect interface {
	// Name is the engine name, used in strategy tags and log lines.
	Name() string

	// DataSource returns the driver name and DSN for a TLS connection to
	// hostname authenticated as username/password.
	DataSource(hostname, username, password string) (driver, dsn string)

	// CreateUserStatements returns the DDL creating username with the
	// given password, role memberships, and server-side expiration.
	// validUntil and expirationDays describe the same instant; dialects
	// use whichever form their grammar wants.
	CreateUserStatements(username, password string, roles []string, validUntil time.Time, expirationDays float64) []string
}

// PostgresDialect emits a single CREATE USER statement with IN ROLE and
// VALID UNTIL clauses.
type PostgresDialect struct{}

// Name returns "postgresql".
func (PostgresDialect) Name() string { return "postgresql" }

// DataSource builds a lib/pq DSN against the maintenance database with TLS
// required.
func (PostgresDialect) DataSource(hostname, username, password string) (string, string) {
	return "postgres", fmt.Sprintf(
		"host=%s user=%s password=%s dbname=postgres sslmode=require",
		hostname, username, password)
}

// CreateUserStatements builds the one-statement postgres form. The IN ROLE
// clause is omitted entirely when the role list is empty; emitting it with
// no identifiers would be malformed DDL.
func (PostgresDialect) CreateUserStatements(username, password string, roles []string, validUntil time.Time, _ float64) []string {
	var b strings.Builder
	b.WriteString("CREATE USER ")
	b.WriteString(pq.QuoteIdentifier(username))
	b.WriteString(" WITH PASSWORD ")
	b.WriteString(pq.QuoteLiteral(password))

	if len(roles) > 0 {
		quoted := make([]string, len(roles))
		for i, role := range roles {
			quoted[i] = pq.QuoteIdentifier(role)
		}
		b.WriteString(" IN ROLE ")
		b.WriteString(strings.Join(quoted, ", "))
	}

	b.WriteString(" VALID UNTIL ")
	b.WriteString(pq.QuoteLiteral(validUntil.UTC().Format(time.RFC3339)))

	return []string{b.String()}
}

// MySQLDialect emits CREATE USER with PASSWORD EXPIRE INTERVAL, then one
// GRANT per role. MySQL has no single-statement form that covers both.
type MySQLDialect struct{}

// Name returns "mysql".
func (MySQLDialect) Name() string { return "mysql" }

// DataSource builds a go-sql-driver DSN with TLS required.
func (MySQLDialect) DataSource(hostname, username, password string) (string, string) {
	cfg := mysql.NewConfig()
	cfg.User = username
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = hostname
	cfg.TLSConfig = "true"
	return "mysql", cfg.FormatDSN()
}

// CreateUserStatements builds the MySQL form. Expiration is expressed as a
// whole-day interval, rounded up so the server never expires the user
// before the stored secret does.
func (MySQLDialect) CreateUserStatements(username, password string, roles []string, _ time.Time, expirationDays float64) []string {
	days := int(math.Ceil(expirationDays))
	if days < 1 {
		days = 1
	}

	account := fmt.Sprintf("'%s'@'%%'", mysqlEscape(username))
	stmts := []string{fmt.Sprintf(
		"CREATE USER %s IDENTIFIED BY '%s' PASSWORD EXPIRE INTERVAL %d DAY",
		account, mysqlEscape(password), days)}

	for _, role := range roles {
		stmts = append(stmts, fmt.Sprintf("GRANT '%s' TO %s", mysqlEscape(role), account))
	}
	return stmts
}

// mysqlEscape escapes backslashes and single quotes for a MySQL string
// literal. Generated values never contain either, but operator-configured
// role names pass through here too.
func mysqlEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `''`)
}
