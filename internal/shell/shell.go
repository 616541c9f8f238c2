// Package shell implements the interactive console for driving the press
// rig by hand: one command per line on stdin, mirroring the bench test
// workflow used to calibrate the servos.
package shell

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"pp96ctl/internal/config"
)

var sleep = time.Sleep

// Rig is the slice of the controller the shell drives.
type Rig interface {
	Set(angle float64, hold time.Duration) error
	PlateIn(hold time.Duration) error
	PlateOut(hold time.Duration) error
}

// Shell reads commands line by line and sweeps the mirrored servo pair one
// degree at a time. The shell, not the controller, tracks the last
// commanded angle; the controller stays a pure command emitter.
type Shell struct {
	rig Rig
	cfg config.Config
	in  io.Reader
	out io.Writer

	// Current servo 1 angle as last commanded through this shell.
	angle float64
	// Sweep speed, 1..100 percent.
	speed int
}

func New(rig Rig, cfg config.Config, in io.Reader, out io.Writer) *Shell {
	return &Shell{
		rig:   rig,
		cfg:   cfg,
		in:    in,
		out:   out,
		angle: cfg.ServoNeutralAngle,
		speed: 60,
	}
}

// stepDelay maps speed 1..100% onto 30..1 ms per degree.
func stepDelay(pct int) time.Duration {
	if pct < 1 {
		pct = 1
	} else if pct > 100 {
		pct = 100
	}
	ms := float64(100-pct)*(30-1)/(100-1) + 1
	return time.Duration(ms * float64(time.Millisecond))
}

// sweepTo walks the mirrored pair to target one degree per step.
func (s *Shell) sweepTo(target float64) error {
	if target < 0 {
		target = 0
	} else if target > 180 {
		target = 180
	}

	step := 1.0
	if target < s.angle {
		step = -1.0
	}
	delay := stepDelay(s.speed)

	a := s.angle
	for math.Abs(target-a) >= 1 {
		a += step
		if err := s.rig.Set(a, 0); err != nil {
			s.angle = a
			return err
		}
		sleep(delay)
	}
	s.angle = target
	return s.rig.Set(target, 0)
}

// Run processes commands until quit or EOF. Command errors are printed and
// the loop continues; only a read failure ends the session with an error.
func (s *Shell) Run() error {
	fmt.Fprintln(s.out, "pp96 console ready.")
	s.printHelp()

	sc := bufio.NewScanner(s.in)
	for sc.Scan() {
		quit, err := s.handle(strings.TrimSpace(strings.ToLower(sc.Text())))
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
	return sc.Err()
}

func (s *Shell) handle(line string) (quit bool, err error) {
	switch {
	case line == "":
		return false, nil

	case line == "up":
		if err := s.sweepTo(s.cfg.ServoUpAngle); err != nil {
			return false, err
		}
		fmt.Fprintf(s.out, "state: UP (%g / %g)\n", s.cfg.ServoUpAngle, 180-s.cfg.ServoUpAngle)

	case line == "down":
		if err := s.sweepTo(s.cfg.ServoDownAngle); err != nil {
			return false, err
		}
		fmt.Fprintf(s.out, "state: DOWN (%g / %g)\n", s.cfg.ServoDownAngle, 180-s.cfg.ServoDownAngle)

	case line == "neutral" || line == "ready" || line == "center":
		if err := s.sweepTo(s.cfg.ServoNeutralAngle); err != nil {
			return false, err
		}
		fmt.Fprintln(s.out, "state: NEUTRAL")

	case line == "in" || line == "push":
		if err := s.rig.PlateIn(0); err != nil {
			return false, err
		}
		fmt.Fprintln(s.out, "plate: IN (extended)")

	case line == "out" || line == "pull":
		if err := s.rig.PlateOut(0); err != nil {
			return false, err
		}
		fmt.Fprintln(s.out, "plate: OUT (retracted)")

	case strings.HasPrefix(line, "set "):
		angle, perr := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(line, "set ")), 64)
		if perr != nil {
			fmt.Fprintln(s.out, "usage: set <0..180>")
			return false, nil
		}
		if err := s.sweepTo(angle); err != nil {
			return false, err
		}
		fmt.Fprintf(s.out, "angle set to %g / %g\n", s.angle, 180-s.angle)

	case strings.HasPrefix(line, "speed "):
		pct, perr := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "speed ")))
		if perr != nil {
			fmt.Fprintln(s.out, "usage: speed <1..100>")
			return false, nil
		}
		if pct < 1 {
			pct = 1
		} else if pct > 100 {
			pct = 100
		}
		s.speed = pct
		fmt.Fprintf(s.out, "speed set to %d%%\n", s.speed)

	case line == "help" || line == "?":
		s.printHelp()

	case line == "quit" || line == "exit":
		return true, nil

	default:
		fmt.Fprintln(s.out, "unrecognized; try: up | down | neutral | in | out | set <angle> | speed <1..100> | help | quit")
	}
	return false, nil
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, "commands: up | down | neutral | set <0..180> | speed <1..100> | help | quit")
	fmt.Fprintln(s.out, "plate:    in (push) | out (pull)")
}
