// Package csv reads tender datasets from CSV files or URLs, such as a
// spreadsheet published to the web as CSV.
package csv
