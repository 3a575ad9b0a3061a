//go:build !linux

package nft

import (
	"context"
	"errors"
	"log/slog"
)

var errUnsupported = errors.New("nft: local controller requires linux")

// LocalController is unavailable on non-Linux platforms; every operation
// returns an error. Remote deployment over the command channel is the only
// path on these platforms.
type LocalController struct{}

// NewLocalController returns a controller whose operations all fail.
func NewLocalController(_ string, _ *slog.Logger) *LocalController {
	return &LocalController{}
}

func (c *LocalController) TableExists(string) (bool, error) { return false, errUnsupported }

func (c *LocalController) DeleteTable(string) error { return errUnsupported }

func (c *LocalController) ApplyFile(context.Context, string) error { return errUnsupported }

func (c *LocalController) ListTable(context.Context, string) (string, error) {
	return "", errUnsupported
}
