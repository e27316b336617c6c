// Package database provides the PostgreSQL connection pool used by the
// catalog feed to load seed items.
package database
