package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/podnetlabs/podfw/internal/firewall"
)

// loadDocument reads a YAML rule document into a compiler input. Only shape
// errors are reported here; content validation belongs to the compiler so
// the operator gets the full aggregated report in one pass.
func loadDocument(path string) (firewall.Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return firewall.Input{}, fmt.Errorf("podfw: read rule document %s: %w", path, err)
	}

	var in firewall.Input
	if err := yaml.Unmarshal(data, &in); err != nil {
		return firewall.Input{}, fmt.Errorf("podfw: parse rule document %s: %w", path, err)
	}

	if in.Namespace == "" {
		return firewall.Input{}, errors.New("podfw: rule document has no namespace")
	}
	if in.Table == "" {
		return firewall.Input{}, errors.New("podfw: rule document has no table")
	}
	return in, nil
}

// printValidationErrors writes every validation error on its own line.
func printValidationErrors(w io.Writer, errs []*firewall.ValidationError) {
	for _, e := range errs {
		fmt.Fprintf(w, "error: %s\n", e.Error())
	}
	fmt.Fprintf(w, "%d validation errors, nothing was compiled\n", len(errs))
}
