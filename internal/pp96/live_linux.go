//go:build linux

package pp96

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/warthog618/go-gpiocdev"

	"pp96ctl/internal/config"
	"pp96ctl/internal/i2c"
	"pp96ctl/internal/pca9685"
)

// openLive opens the I2C bus, probes the PCA9685 and, when configured,
// claims the /OE output-enable line. Any failure closes what was already
// opened and reports back so the caller can fall back to dry-run.
func openLive(cfg config.Config) (Adapter, error) {
	bus, err := i2c.Open(cfg.Bus)
	if err != nil {
		return nil, fmt.Errorf("pp96: open %s: %w", cfg.Bus, err)
	}

	dev, err := pca9685.New(bus.Dev(cfg.Address))
	if err != nil {
		_ = bus.Close()
		return nil, err
	}

	var oe *gpiocdev.Line
	if cfg.OEGpio > 0 {
		oe, err = openOELine(cfg.OEGpio)
		if err != nil {
			_ = bus.Close()
			return nil, err
		}
	}

	return &liveAdapter{bus: bus, dev: dev, oe: oe}, nil
}

var openLiveFn = openLive

// openOELine claims the BCM line wired to the PCA9685 /OE pin and drives it
// low (outputs enabled) for the lifetime of the adapter.
func openOELine(pin int) (*gpiocdev.Line, error) {
	lineName := fmt.Sprintf("GPIO%d", pin)

	chipCandidates := []string{"/dev/gpiochip0", "/dev/gpiochip4"}
	entries, _ := os.ReadDir("/dev")
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "gpiochip") {
			chipCandidates = append(chipCandidates, filepath.Join("/dev", name))
		}
	}

	for _, chipPath := range chipCandidates {
		chip, err := gpiocdev.NewChip(chipPath)
		if err != nil {
			continue
		}
		offset, err := chip.FindLine(lineName)
		if err != nil {
			_ = chip.Close()
			continue
		}
		line, err := chip.RequestLine(offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("pp96ctl-oe"))
		_ = chip.Close()
		if err != nil {
			continue
		}
		return line, nil
	}

	return nil, fmt.Errorf("pp96: oe gpio line %q not found (or busy)", lineName)
}

type liveAdapter struct {
	bus *i2c.Bus
	dev *pca9685.Device
	oe  *gpiocdev.Line
}

func (a *liveAdapter) SetAngle(channel int, angleDeg float64, pulseMinUs, pulseMaxUs int) error {
	return a.dev.SetAngle(channel, angleDeg, pulseMinUs, pulseMaxUs)
}

func (a *liveAdapter) Release(channel int) error {
	return a.dev.Release(channel)
}

func (a *liveAdapter) Close() error {
	if a.oe != nil {
		// /OE high disables all outputs before the bus goes away.
		_ = a.oe.SetValue(1)
		_ = a.oe.Close()
		a.oe = nil
	}
	return a.bus.Close()
}
