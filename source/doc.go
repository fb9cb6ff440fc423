// Package source fetches raw dataset rows for the record store.
//
// Adapters live in subpackages: csv (local file or http(s) URL, such as a
// published spreadsheet), xlsx (Excel workbook) and sqlite (a table in a
// SQLite database). Open picks one from a Config. Fetch failures can be
// retried with exponential backoff via WithRetry.
package source
