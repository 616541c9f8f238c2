//go:build !linux

package pp96

import (
	"fmt"

	"pp96ctl/internal/config"
)

// Stub for non-Linux platforms; Open falls back to dry-run.
func openLive(cfg config.Config) (Adapter, error) {
	return nil, fmt.Errorf("pp96: hardware unsupported on this platform")
}

var openLiveFn = openLive
