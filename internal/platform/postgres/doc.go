// Package postgres contains the PostgreSQL implementations of the store
// interfaces. All implementations work against store.DBTX so they run
// unchanged inside or outside a transaction, except the image version store,
// which owns its transactions to keep the version ledger's current-pointer
// transition atomic.
package postgres
