// Package filter implements deterministic attribute matching of free-text
// queries against a records.Snapshot's distinct-value index.
package filter
