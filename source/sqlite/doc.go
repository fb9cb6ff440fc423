// Package sqlite reads tender datasets from a table in a SQLite database
// using the pure-Go modernc.org/sqlite driver.
package sqlite
