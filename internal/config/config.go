package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the PP96 calibration: channel assignments on the PCA9685,
// angle presets for the mirrored press servos and the plate actuator, and
// the pulse-width range shared by all three channels.
//
// The zero value is not usable; start from Default() or Load().
type Config struct {
	// Bus is the I2C device node the PCA9685 sits on.
	Bus string `yaml:"bus"`
	// Channels is the PWM channel count of the driver board.
	Channels int `yaml:"channels"`
	// Address is the 7-bit I2C address (0x40 unless jumpers moved).
	Address uint16 `yaml:"address"`

	Servo1Channel   int `yaml:"servo_1_channel"`
	Servo2Channel   int `yaml:"servo_2_channel"`
	ActuatorChannel int `yaml:"actuator_channel"`

	// Angles for servo 1 in degrees; servo 2 is always driven at 180-angle.
	ServoUpAngle      float64 `yaml:"servo_up_angle"`
	ServoDownAngle    float64 `yaml:"servo_down_angle"`
	ServoNeutralAngle float64 `yaml:"servo_neutral_angle"`

	ActuatorInAngle  float64 `yaml:"actuator_in_angle"`
	ActuatorOutAngle float64 `yaml:"actuator_out_angle"`

	// Pulse width range in microseconds, applied to all three channels.
	PulseMinUs int `yaml:"pulse_min_us"`
	PulseMaxUs int `yaml:"pulse_max_us"`

	// OEGpio is the BCM line wired to the PCA9685 /OE pin; 0 means not wired.
	OEGpio int `yaml:"oe_gpio"`
}

// Default returns the calibration for the stock PP96 rig: PCA9685 at 0x40,
// press servos on channels 0/1, actuator on channel 2, 500-2500us pulses.
func Default() Config {
	return Config{
		Bus:               "/dev/i2c-1",
		Channels:          16,
		Address:           0x40,
		Servo1Channel:     0,
		Servo2Channel:     1,
		ActuatorChannel:   2,
		ServoUpAngle:      30,
		ServoDownAngle:    150,
		ServoNeutralAngle: 90,
		ActuatorInAngle:   180,
		ActuatorOutAngle:  0,
		PulseMinUs:        500,
		PulseMaxUs:        2500,
	}
}

// Load reads a YAML overlay on top of Default() and validates the result.
// Fields absent from the file keep their defaults.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the calibration invariants. A bad value is an error, never
// silently corrected.
func (c Config) Validate() error {
	if c.Bus == "" {
		return fmt.Errorf("bus is required")
	}
	if c.Channels <= 0 {
		return fmt.Errorf("channels must be > 0, got %d", c.Channels)
	}
	if c.Address < 0x03 || c.Address > 0x77 {
		return fmt.Errorf("address 0x%02X outside 7-bit range 0x03..0x77", c.Address)
	}

	chans := map[string]int{
		"servo_1_channel":  c.Servo1Channel,
		"servo_2_channel":  c.Servo2Channel,
		"actuator_channel": c.ActuatorChannel,
	}
	for key, ch := range chans {
		if ch < 0 || ch >= c.Channels {
			return fmt.Errorf("%s=%d outside 0..%d", key, ch, c.Channels-1)
		}
	}
	if c.Servo1Channel == c.Servo2Channel ||
		c.Servo1Channel == c.ActuatorChannel ||
		c.Servo2Channel == c.ActuatorChannel {
		return fmt.Errorf("servo_1_channel=%d servo_2_channel=%d actuator_channel=%d must be distinct",
			c.Servo1Channel, c.Servo2Channel, c.ActuatorChannel)
	}

	angles := map[string]float64{
		"servo_up_angle":      c.ServoUpAngle,
		"servo_down_angle":    c.ServoDownAngle,
		"servo_neutral_angle": c.ServoNeutralAngle,
		"actuator_in_angle":   c.ActuatorInAngle,
		"actuator_out_angle":  c.ActuatorOutAngle,
	}
	for key, a := range angles {
		if a < 0 || a > 180 {
			return fmt.Errorf("%s=%g outside 0..180", key, a)
		}
	}

	if c.PulseMinUs <= 0 {
		return fmt.Errorf("pulse_min_us must be > 0, got %d", c.PulseMinUs)
	}
	if c.PulseMinUs >= c.PulseMaxUs {
		return fmt.Errorf("pulse_min_us=%d must be < pulse_max_us=%d", c.PulseMinUs, c.PulseMaxUs)
	}

	if c.OEGpio < 0 {
		return fmt.Errorf("oe_gpio must be >= 0, got %d", c.OEGpio)
	}
	return nil
}
