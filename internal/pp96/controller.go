package pp96

import (
	"errors"
	"fmt"
	"log"
	"time"

	"pp96ctl/internal/config"
)

var sleep = time.Sleep

// Parking pause before channels are released at shutdown.
var shutdownSettle = 200 * time.Millisecond

// ErrReleased is returned by any motion command issued after Shutdown.
var ErrReleased = errors.New("pp96: adapter already released")

// Controller drives the Waters PP96 press rig: two mirror-mounted servos on
// the rocker buttons and one linear actuator moving the plate. It is a pure
// command emitter; no position is read back, the last command issued is
// trusted.
//
// Construction drives the rig to its resting state (press neutral, plate
// retracted). Not safe for concurrent use, and no two controllers may own
// the same physical board.
type Controller struct {
	cfg      config.Config
	adapter  Adapter
	dryRun   bool
	released bool
}

// Open validates the calibration, probes the hardware and returns an
// initialized controller. When the bus or chip is unavailable the probe
// failure is logged and the controller runs against the recording dry-run
// adapter instead; that is an informational condition, not an error.
func Open(cfg config.Config) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pp96: config: %w", err)
	}

	adapter, err := openLiveFn(cfg)
	if err != nil {
		log.Printf("pp96: hardware unavailable (%v), using dry-run adapter", err)
		return newController(cfg, NewDryRun(), true)
	}
	return newController(cfg, adapter, false)
}

// OpenDryRun skips the hardware probe entirely.
func OpenDryRun(cfg config.Config) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pp96: config: %w", err)
	}
	return newController(cfg, NewDryRun(), true)
}

func newController(cfg config.Config, adapter Adapter, dryRun bool) (*Controller, error) {
	c := &Controller{cfg: cfg, adapter: adapter, dryRun: dryRun}

	// Resting state: press neutral, plate retracted.
	if err := c.setMirrored(cfg.ServoNeutralAngle, 0); err != nil {
		_ = adapter.Close()
		c.released = true
		return nil, fmt.Errorf("pp96: init: %w", err)
	}
	if err := c.PlateOut(0); err != nil {
		_ = adapter.Close()
		c.released = true
		return nil, fmt.Errorf("pp96: init: %w", err)
	}
	return c, nil
}

// DryRun reports whether the controller runs against the recording adapter.
func (c *Controller) DryRun() bool { return c.dryRun }

// Adapter exposes the adapter handle, mainly so callers in dry-run mode can
// inspect the recorded command stream.
func (c *Controller) Adapter() Adapter { return c.adapter }

// setMirrored drives servo 1 to angle and servo 2 to 180-angle. If the
// second write fails after the first succeeded the rig is left in a mixed
// state; the error names the failing channel and no rollback is attempted,
// since re-driving a partially completed motion is not safe on this
// hardware.
func (c *Controller) setMirrored(angle float64, hold time.Duration) error {
	if c.released {
		return ErrReleased
	}
	if err := c.adapter.SetAngle(c.cfg.Servo1Channel, angle, c.cfg.PulseMinUs, c.cfg.PulseMaxUs); err != nil {
		return fmt.Errorf("pp96: servo 1 (channel %d): %w", c.cfg.Servo1Channel, err)
	}
	if err := c.adapter.SetAngle(c.cfg.Servo2Channel, 180-angle, c.cfg.PulseMinUs, c.cfg.PulseMaxUs); err != nil {
		return fmt.Errorf("pp96: servo 2 (channel %d): %w", c.cfg.Servo2Channel, err)
	}
	if hold > 0 {
		sleep(hold)
	}
	return nil
}

func (c *Controller) setActuator(angle float64, hold time.Duration) error {
	if c.released {
		return ErrReleased
	}
	if err := c.adapter.SetAngle(c.cfg.ActuatorChannel, angle, c.cfg.PulseMinUs, c.cfg.PulseMaxUs); err != nil {
		return fmt.Errorf("pp96: actuator (channel %d): %w", c.cfg.ActuatorChannel, err)
	}
	if hold > 0 {
		sleep(hold)
	}
	return nil
}

// PressUp presses the UP rocker button on both mirrored servos.
func (c *Controller) PressUp(hold time.Duration) error {
	return c.setMirrored(c.cfg.ServoUpAngle, hold)
}

// PressDown presses the DOWN rocker button on both mirrored servos.
func (c *Controller) PressDown(hold time.Duration) error {
	return c.setMirrored(c.cfg.ServoDownAngle, hold)
}

// PressNeutral returns both servos to the no-button-pressed position.
func (c *Controller) PressNeutral(hold time.Duration) error {
	return c.setMirrored(c.cfg.ServoNeutralAngle, hold)
}

// PlateIn extends the actuator, moving the plate under the press.
func (c *Controller) PlateIn(hold time.Duration) error {
	return c.setActuator(c.cfg.ActuatorInAngle, hold)
}

// PlateOut retracts the actuator, pulling the plate clear of the press.
// This is the resting position.
func (c *Controller) PlateOut(hold time.Duration) error {
	return c.setActuator(c.cfg.ActuatorOutAngle, hold)
}

// Set drives the mirrored pair to an arbitrary servo 1 angle.
func (c *Controller) Set(angle float64, hold time.Duration) error {
	if angle < 0 || angle > 180 {
		return fmt.Errorf("pp96: angle %g outside 0..180", angle)
	}
	return c.setMirrored(angle, hold)
}

// Shutdown parks the rig (press neutral, plate retracted), stops driving all
// three channels and releases the bus handle. Parking is best-effort: a
// write failure does not keep the handle from being released. Safe to call
// more than once; a second call does nothing.
func (c *Controller) Shutdown() error {
	if c == nil || c.released {
		return nil
	}
	c.released = true

	_ = c.adapter.SetAngle(c.cfg.Servo1Channel, c.cfg.ServoNeutralAngle, c.cfg.PulseMinUs, c.cfg.PulseMaxUs)
	_ = c.adapter.SetAngle(c.cfg.Servo2Channel, 180-c.cfg.ServoNeutralAngle, c.cfg.PulseMinUs, c.cfg.PulseMaxUs)
	_ = c.adapter.SetAngle(c.cfg.ActuatorChannel, c.cfg.ActuatorOutAngle, c.cfg.PulseMinUs, c.cfg.PulseMaxUs)
	sleep(shutdownSettle)

	_ = c.adapter.Release(c.cfg.Servo1Channel)
	_ = c.adapter.Release(c.cfg.Servo2Channel)
	_ = c.adapter.Release(c.cfg.ActuatorChannel)

	return c.adapter.Close()
}

// Run opens a controller, hands it to fn and shuts down on every exit path.
func Run(cfg config.Config, dryRun bool, fn func(*Controller) error) (err error) {
	var c *Controller
	if dryRun {
		c, err = OpenDryRun(cfg)
	} else {
		c, err = Open(cfg)
	}
	if err != nil {
		return err
	}
	defer func() {
		if cerr := c.Shutdown(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(c)
}
