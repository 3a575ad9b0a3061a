package deploy

import (
	"fmt"
	"strings"

	"al.essio.dev/pkg/shellescape"
)

// configPath is where the rendered document is staged on a node before it
// is checked and applied.
func configPath(namespace, table string) string {
	return fmt.Sprintf("/tmp/podfw_%s_%s.conf", namespace, table)
}

// createConfigPayload stages the rendered document on the node. The document
// is shell-quoted as a whole so rule text can never escape into the command.
func createConfigPayload(path, document string) string {
	return fmt.Sprintf("printf '%%s' %s > %s", shellescape.Quote(document), shellescape.Quote(path))
}

// checkPayload dry-runs the staged document inside the namespace.
func checkPayload(namespace, path string) string {
	return fmt.Sprintf("ip netns exec %s nft --check --file %s", namespace, path)
}

// probeTablePayload exits zero when the table already exists in the
// namespace. Dots in table names are literal, so they are escaped for grep.
func probeTablePayload(namespace, table string) string {
	pattern := "inet " + strings.ReplaceAll(table, ".", `\.`)
	return fmt.Sprintf("ip netns exec %s nft list tables | grep --word-regexp --quiet %s",
		namespace, shellescape.Quote(pattern))
}

// deleteTablePayload removes the table so a re-apply never appends duplicate
// rules onto a previous deployment.
func deleteTablePayload(namespace, table string) string {
	return fmt.Sprintf("ip netns exec %s nft delete table inet %s", namespace, table)
}

// applyPayload loads the staged document into the namespace.
func applyPayload(namespace, path string) string {
	return fmt.Sprintf("ip netns exec %s nft --file %s", namespace, path)
}

// removeConfigPayload drops the staged document after apply.
func removeConfigPayload(path string) string {
	return "rm --force " + shellescape.Quote(path)
}

// listTablePayload dumps the live table for read and drift checks.
func listTablePayload(namespace, table string) string {
	return fmt.Sprintf("ip netns exec %s nft list table inet %s", namespace, table)
}
