// Package badger implements storage.EmbeddingRepository on BadgerDB.
//
// The backend runs in memory by default, which still saves embedding calls
// across refreshes within one process. Pointing it at a directory keeps the
// cache across restarts.
package badger
