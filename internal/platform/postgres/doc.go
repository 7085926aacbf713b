// Package postgres implements the optional task archive on PostgreSQL.
// The in-memory registry stays authoritative for live status queries; the
// archive only records terminal tasks so history survives restarts. The
// service runs fully without a database configured.
package postgres
