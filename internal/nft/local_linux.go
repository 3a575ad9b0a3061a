//go:build linux

package nft

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/nftables"
)

// netnsDir is where ip(8) binds named network namespaces.
const netnsDir = "/var/run/netns"

// LocalController implements Controller against one named network namespace
// on the local Linux kernel. Table existence and deletion go over netlink via
// the google/nftables library, entered through the namespace's bind mount;
// file loads and table dumps shell out to nft under ip netns exec, which owns
// the configuration grammar.
type LocalController struct {
	namespace string
	logger    *slog.Logger
}

// NewLocalController returns a controller bound to the named network
// namespace. The namespace must already exist as a bind under /var/run/netns.
func NewLocalController(namespace string, logger *slog.Logger) *LocalController {
	return &LocalController{
		namespace: namespace,
		logger:    logger.With("component", "nft", "namespace", namespace),
	}
}

// conn opens a netlink connection inside the controller's namespace. The
// returned close func must stay uncalled until the last operation on conn.
func (c *LocalController) conn() (*nftables.Conn, func() error, error) {
	f, err := os.Open(filepath.Join(netnsDir, c.namespace))
	if err != nil {
		return nil, nil, fmt.Errorf("nft: open netns %s: %w", c.namespace, err)
	}
	conn, err := nftables.New(nftables.WithNetNSFd(int(f.Fd())))
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("nft: netns %s: %w", c.namespace, err)
	}
	return conn, f.Close, nil
}

// TableExists reports whether the named inet table is loaded in the namespace.
func (c *LocalController) TableExists(table string) (bool, error) {
	conn, done, err := c.conn()
	if err != nil {
		return false, fmt.Errorf("nft: table exists: %w", err)
	}
	defer done()

	tables, err := conn.ListTablesOfFamily(nftables.TableFamilyINet)
	if err != nil {
		return false, fmt.Errorf("nft: table exists: list tables: %w", err)
	}
	for _, t := range tables {
		if t.Name == table {
			return true, nil
		}
	}
	return false, nil
}

// DeleteTable removes the named inet table from the namespace. Deleting a
// table that is not loaded is idempotent success; a missing namespace is not.
func (c *LocalController) DeleteTable(table string) error {
	conn, done, err := c.conn()
	if err != nil {
		return fmt.Errorf("nft: delete table: %w", err)
	}
	defer done()

	tables, err := conn.ListTablesOfFamily(nftables.TableFamilyINet)
	if err != nil {
		return fmt.Errorf("nft: delete table: list tables: %w", err)
	}
	for _, t := range tables {
		if t.Name == table {
			conn.DelTable(t)
			if err := conn.Flush(); err != nil {
				return fmt.Errorf("nft: delete table %q: %w", table, err)
			}
			c.logger.Debug("table deleted", "table", table)
			return nil
		}
	}

	c.logger.Debug("table not found, nothing to delete", "table", table)
	return nil
}

// ApplyFile loads an nft configuration file into the namespace's kernel.
func (c *LocalController) ApplyFile(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, "ip", "netns", "exec", c.namespace, "nft", "--file", path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("nft: apply file %s in netns %s: %w: %s", path, c.namespace, err, stderr.String())
	}
	c.logger.Debug("configuration file applied", "path", path)
	return nil
}

// ListTable dumps the named inet table in the namespace as configuration text.
func (c *LocalController) ListTable(ctx context.Context, table string) (string, error) {
	cmd := exec.CommandContext(ctx, "ip", "netns", "exec", c.namespace, "nft", "list", "table", "inet", table)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("nft: list table %q in netns %s: %w: %s", table, c.namespace, err, stderr.String())
	}
	return stdout.String(), nil
}
