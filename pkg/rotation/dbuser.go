package rotation

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/systmms/rotor/internal/logging"
	"github.com/systmms/rotor/internal/validation"
	"github.com/systmms/rotor/pkg/secretstore"
)

const (
	userNameLength     = 16
	userPasswordLength = 24
)

// ConnectFunc opens a database connection to hostname authenticated as
// username/password. Tests substitute a sqlmock-backed implementation.
type ConnectFunc func(ctx context.Context, hostname, username, password string) (*sql.DB, error)

// UserRotator creates a fresh per-application database login on every
// rotation instead of changing the existing one: the new user is created
// with a server-side expiration while the previous user keeps working until
// the database retires it. That is the strategy's two-generation overlap.
//
// The administrator credential is read from DatabaseUser.ServerSecretName in
// the same store, as {hostname, username, password} JSON.
type UserRotator struct {
	logger  *logging.Logger
	dialect Dialect
	connect ConnectFunc
}

// NewUserRotator creates a database-user strategy for the given dialect.
func NewUserRotator(logger *logging.Logger, dialect Dialect) *UserRotator {
	r := &UserRotator{logger: logger, dialect: dialect}
	r.connect = r.dialConnect
	return r
}

// WithConnect overrides the connection opener. For tests.
func (r *UserRotator) WithConnect(connect ConnectFunc) *UserRotator {
	r.connect = connect
	return r
}

// StrategyType returns the strategy tag for this dialect.
func (r *UserRotator) StrategyType() string {
	return "database/" + r.dialect.Name() + "/user"
}

// Initialize creates the first user for a secret that does not yet exist.
func (r *UserRotator) Initialize(ctx context.Context, res *Resource, op *Context) (*Result, error) {
	return runInitialize(ctx, res, op, r.perform)
}

// Rotate creates a successor user once the stored credential is due.
func (r *UserRotator) Rotate(ctx context.Context, res *Resource, op *Context) (*Result, error) {
	return runRotate(ctx, res, op, r.perform)
}

func (r *UserRotator) perform(ctx context.Context, res *Resource, op *Context, store secretstore.Store) (*Result, error) {
	spec := res.DatabaseUser
	if spec == nil {
		return skipped(res, "resource '%s' has no databaseUser configuration", res.Name), nil
	}
	if err := validation.CheckRoles(spec.Roles); err != nil {
		return skipped(res, "Invalid role: %v", err), nil
	}

	admin, verdict := r.adminCredential(ctx, res, store, spec)
	if verdict != nil {
		return verdict, nil
	}

	hostname := spec.Hostname
	if hostname == "" {
		hostname = admin.Hostname
	}

	db, err := r.connect(ctx, hostname, admin.Username, admin.Password)
	if err != nil {
		return skipped(res, "failed to connect to '%s': %v", hostname, err), nil
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		return skipped(res, "failed to connect to '%s': %v", hostname, err), nil
	}

	if op.Flags.WhatIf {
		return whatIf(res), nil
	}

	username, err := GenerateUsername(spec.NamePrefix, userNameLength)
	if err != nil {
		return nil, err
	}
	password, err := Generate(userPasswordLength)
	if err != nil {
		return nil, err
	}

	now := op.Now()
	expires := res.expiration(now)
	days := res.ExpirationDays
	if days <= 0 {
		days = DefaultExpirationDays
	}

	stmts := r.dialect.CreateUserStatements(username, password, spec.Roles, expires, days)
	for i, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			if i == 0 {
				return skipped(res, "failed to create database user: %v", err), nil
			}
			return skipped(res, "created user '%s' but granting roles failed: %v; drop the user before retrying", username, err), nil
		}
	}
	r.logger.Info("Created %s user '%s' on '%s', valid until %s",
		r.dialect.Name(), username, hostname, expires.Format("2006-01-02"))

	payload, err := encodeJSON(DatabaseCredential{
		Hostname: hostname,
		Username: username,
		Password: password,
	})
	if err != nil {
		return nil, err
	}

	// The user exists on the server; persist the credential even if the
	// caller cancelled in the meantime.
	writeCtx := context.WithoutCancel(ctx)
	info, err := store.UpdateSecret(writeCtx, res.Name, payload, &expires, secretstore.ContentTypeJSON)
	if err != nil {
		return storeWriteFailed(res, err), nil
	}
	if info == nil {
		return storeWriteFailed(res, errNilStoreResult), nil
	}

	return rotated(res, "created database user '%s'", username), nil
}

// adminCredential loads and decodes the administrator credential, returning
// a skip verdict on any defect.
func (r *UserRotator) adminCredential(ctx context.Context, res *Resource, store secretstore.Store, spec *DatabaseUserSpec) (*DatabaseCredential, *Result) {
	if spec.ServerSecretName == "" {
		return nil, skipped(res, "resource '%s' has no serverSecretName configured", res.Name)
	}

	value, found, err := store.GetSecretValue(ctx, spec.ServerSecretName)
	if err != nil {
		return nil, skipped(res, "failed to read administrator secret '%s': %v", spec.ServerSecretName, err)
	}
	if !found {
		return nil, skipped(res, "administrator secret '%s' was not found", spec.ServerSecretName)
	}

	admin, err := parseDatabaseCredential(value)
	if err != nil {
		return nil, skipped(res, "administrator secret '%s' is not valid JSON: %v", spec.ServerSecretName, err)
	}
	return admin, nil
}

// dialConnect is the production ConnectFunc.
func (r *UserRotator) dialConnect(_ context.Context, hostname, username, password string) (*sql.DB, error) {
	driver, dsn := r.dialect.DataSource(hostname, username, password)
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s connection: %w", driver, err)
	}
	return db, nil
}

var _ Rotator = (*UserRotator)(nil)
