package pca9685

import (
	"fmt"
	"math"
	"time"

	"pp96ctl/internal/i2c"
)

var sleep = time.Sleep

// Minimal PCA9685 driver.
//
// Supports 50 Hz servo PWM: prescale programming, per-channel pulse width
// from a target angle, and full-off release.

const (
	regMode1    = 0x00
	regMode2    = 0x01
	regLed0OnL  = 0x06
	regPrescale = 0xFE

	mode1Restart = 0x80
	mode1AI      = 0x20
	mode1Sleep   = 0x10
	mode1AllCall = 0x01

	mode2OutDrv = 0x04

	// LEDn_OFF_H bit 4 forces the channel fully off.
	fullOffBit = 0x10

	// Internal oscillator per datasheet section 7.3.5.
	oscHz = 25_000_000

	// Standard analog servo frame rate.
	servoFreqHz = 50

	channelCount = 16
	counts       = 4096
)

type Device struct {
	dev regIO
}

type regIO interface {
	WriteReg(reg, value byte) error
	WriteBurst(reg byte, values ...byte) error
	ReadRegU8(reg byte) (byte, error)
}

// New probes the chip and configures it for 50 Hz servo output. A read of
// MODE1 doubles as the presence check: an absent or unpowered board NAKs and
// the open fails here rather than on the first motion command.
func New(dev *i2c.Dev) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("pca9685: dev is nil")
	}
	return newWithIO(dev)
}

func newWithIO(dev regIO) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("pca9685: dev is nil")
	}
	d := &Device{dev: dev}

	if _, err := d.dev.ReadRegU8(regMode1); err != nil {
		return nil, fmt.Errorf("pca9685: probe failed: %w", err)
	}

	// Totem-pole outputs for a servo HAT.
	if err := d.dev.WriteReg(regMode2, mode2OutDrv); err != nil {
		return nil, fmt.Errorf("pca9685: mode2 write failed: %w", err)
	}

	// Prescale is only writable while the oscillator sleeps.
	prescale := prescaleFor(servoFreqHz)
	if err := d.dev.WriteReg(regMode1, mode1Sleep|mode1AI|mode1AllCall); err != nil {
		return nil, fmt.Errorf("pca9685: sleep write failed: %w", err)
	}
	if err := d.dev.WriteReg(regPrescale, prescale); err != nil {
		return nil, fmt.Errorf("pca9685: prescale write failed: %w", err)
	}
	if err := d.dev.WriteReg(regMode1, mode1AI|mode1AllCall); err != nil {
		return nil, fmt.Errorf("pca9685: wake write failed: %w", err)
	}
	// Oscillator needs 500us to stabilize before RESTART (datasheet 7.3.1.1).
	sleep(time.Millisecond)
	if err := d.dev.WriteReg(regMode1, mode1Restart|mode1AI|mode1AllCall); err != nil {
		return nil, fmt.Errorf("pca9685: restart write failed: %w", err)
	}

	return d, nil
}

// prescaleFor maps an update frequency to the PRE_SCALE register value.
func prescaleFor(freqHz int) byte {
	return byte(math.Round(oscHz/(counts*float64(freqHz))) - 1)
}

// SetAngle drives channel to angleDeg, mapping 0..180 degrees linearly onto
// [pulseMinUs, pulseMaxUs]. Angles outside 0..180 are clamped.
func (d *Device) SetAngle(channel int, angleDeg float64, pulseMinUs, pulseMaxUs int) error {
	if channel < 0 || channel >= channelCount {
		return fmt.Errorf("pca9685: channel %d outside 0..%d", channel, channelCount-1)
	}
	if pulseMinUs <= 0 || pulseMinUs >= pulseMaxUs {
		return fmt.Errorf("pca9685: bad pulse range %d..%d us", pulseMinUs, pulseMaxUs)
	}

	if angleDeg < 0 {
		angleDeg = 0
	} else if angleDeg > 180 {
		angleDeg = 180
	}

	pulseUs := float64(pulseMinUs) + angleDeg/180.0*float64(pulseMaxUs-pulseMinUs)
	periodUs := 1e6 / float64(servoFreqHz)
	off := int(math.Round(pulseUs / periodUs * counts))
	if off >= counts {
		off = counts - 1
	}

	// ON=0, OFF=off: pulse starts at the frame edge.
	reg := byte(regLed0OnL + 4*channel)
	if err := d.dev.WriteBurst(reg, 0x00, 0x00, byte(off&0xFF), byte(off>>8)); err != nil {
		return fmt.Errorf("pca9685: channel %d write failed: %w", channel, err)
	}
	return nil
}

// Release stops driving the channel (full off). The servo holds no torque
// afterwards.
func (d *Device) Release(channel int) error {
	if channel < 0 || channel >= channelCount {
		return fmt.Errorf("pca9685: channel %d outside 0..%d", channel, channelCount-1)
	}
	reg := byte(regLed0OnL + 4*channel)
	if err := d.dev.WriteBurst(reg, 0x00, 0x00, 0x00, fullOffBit); err != nil {
		return fmt.Errorf("pca9685: channel %d release failed: %w", channel, err)
	}
	return nil
}
