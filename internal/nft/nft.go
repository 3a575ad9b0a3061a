// Package nft holds the local packet-filter controller used when podfw runs
// directly on a pod node instead of deploying over the command channel. A
// controller is bound to one named network namespace; the tables it manages
// live inside that namespace, never in the root one.
package nft

import "context"

// Controller abstracts table-level nftables operations within one network
// namespace for testability.
type Controller interface {
	// TableExists reports whether the named inet table is loaded in the kernel.
	TableExists(table string) (bool, error)
	// DeleteTable removes the named inet table.
	// Implementations must be idempotent: deleting a non-existent table must return nil.
	DeleteTable(table string) error
	// ApplyFile loads an nft configuration file into the kernel.
	ApplyFile(ctx context.Context, path string) error
	// ListTable dumps the named inet table as configuration text.
	ListTable(ctx context.Context, table string) (string, error)
}
