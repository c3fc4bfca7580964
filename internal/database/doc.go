// Package database manages the connection pool for the artifact database.
// It wraps GORM's underlying sql.DB with pool tuning, a background liveness
// probe, and transaction retry for transient failures.
package database
