// Package config builds the toolkit pools the integration tests run against.
//
// All pools point at the database from PostgresTestDSN. Constructors return errors instead of
// exiting, so tests can skip when no database is reachable.
package config
