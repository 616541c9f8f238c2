package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"pp96ctl/internal/config"
	"pp96ctl/internal/pp96"
	"pp96ctl/internal/shell"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOpts struct {
	configPath string
	dryRun     bool
}

func (o *rootOpts) loadConfig() (config.Config, error) {
	if o.configPath == "" {
		return config.Default(), nil
	}
	return config.Load(o.configPath)
}

// run opens the controller, executes fn and shuts down on every exit path.
func (o *rootOpts) run(fn func(*pp96.Controller) error) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	return pp96.Run(cfg, o.dryRun, fn)
}

func newRootCmd() *cobra.Command {
	opts := &rootOpts{}

	root := &cobra.Command{
		Use:   "pp96ctl",
		Short: "Control the Waters PP96 pressure processor",
		Long: "Drives the Waters Positive Pressure-96 Processor: two mirrored servos " +
			"pressing the up/down rocker and a linear actuator moving the plate, " +
			"via a PCA9685 servo board on I2C. Without hardware the commands run " +
			"against a dry-run adapter.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to YAML calibration overlay")
	root.PersistentFlags().BoolVar(&opts.dryRun, "dry-run", false, "skip the hardware probe and record commands only")

	root.AddCommand(newPressCmd(opts))
	root.AddCommand(newPlateCmd(opts))
	root.AddCommand(newShellCmd(opts))

	// Bare aliases matching the bench workflow: pp96ctl up == pp96ctl press up.
	for _, dir := range []string{"up", "down", "neutral"} {
		root.AddCommand(newPressDirectionCmd(opts, dir))
	}

	return root
}

func newPressCmd(opts *rootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "press",
		Short: "Press the pneumatic rocker button",
	}
	for _, dir := range []string{"up", "down", "neutral"} {
		cmd.AddCommand(newPressDirectionCmd(opts, dir))
	}
	return cmd
}

func newPressDirectionCmd(opts *rootOpts, direction string) *cobra.Command {
	var hold time.Duration

	cmd := &cobra.Command{
		Use:   direction,
		Short: fmt.Sprintf("Press the %s rocker position", direction),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(func(c *pp96.Controller) error {
				reportMode(cmd, c)
				cmd.Printf("moving press %s...\n", direction)
				var err error
				switch direction {
				case "up":
					err = c.PressUp(hold)
				case "down":
					err = c.PressDown(hold)
				default:
					err = c.PressNeutral(hold)
				}
				if err != nil {
					return err
				}
				cmd.Println("done.")
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&hold, "hold", 500*time.Millisecond, "how long to hold the button before returning")
	return cmd
}

func newPlateCmd(opts *rootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plate",
		Short: "Move the plate actuator",
	}

	for _, sub := range []struct {
		name string
		op   func(*pp96.Controller, time.Duration) error
		desc string
	}{
		{"in", (*pp96.Controller).PlateIn, "Move the plate under the press"},
		{"out", (*pp96.Controller).PlateOut, "Retract the plate from the press"},
	} {
		sub := sub
		var hold time.Duration
		sc := &cobra.Command{
			Use:   sub.name,
			Short: sub.desc,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return opts.run(func(c *pp96.Controller) error {
					reportMode(cmd, c)
					cmd.Printf("moving plate %s...\n", sub.name)
					if err := sub.op(c, hold); err != nil {
						return err
					}
					cmd.Println("done.")
					return nil
				})
			},
		}
		sc.Flags().DurationVar(&hold, "hold", 500*time.Millisecond, "how long to wait for the actuator to travel")
		cmd.AddCommand(sc)
	}
	return cmd
}

func newShellCmd(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive console (one command per line on stdin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			return pp96.Run(cfg, opts.dryRun, func(c *pp96.Controller) error {
				reportMode(cmd, c)
				return shell.New(c, cfg, cmd.InOrStdin(), cmd.OutOrStdout()).Run()
			})
		},
	}
}

func reportMode(cmd *cobra.Command, c *pp96.Controller) {
	if c.DryRun() {
		cmd.Println("[dry-run] no hardware attached; commands are recorded only")
	}
}
