// File: cmd/run.go
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/phonepilot-cli/internal/actions"
	"github.com/xkilldash9x/phonepilot-cli/internal/agent"
	"github.com/xkilldash9x/phonepilot-cli/internal/device"
	"github.com/xkilldash9x/phonepilot-cli/internal/model"
	"github.com/xkilldash9x/phonepilot-cli/internal/observability"
)

// newRunCmd creates and configures the `run` command.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run [task...]",
		Short: "Executes a natural-language task on the connected device",
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags so command-line values override config file and env.
			if err := viper.BindPFlag("device.backend", cmd.Flags().Lookup("backend")); err != nil {
				return err
			}
			if err := viper.BindPFlag("device.id", cmd.Flags().Lookup("device")); err != nil {
				return err
			}
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			task := strings.Join(args, " ")
			handle := device.Handle{
				ID:      cfg.Device.ID,
				Backend: device.BackendKind(cfg.Device.Backend),
			}

			runner := device.NewExecRunner(cfg.Device.CommandTimeout)
			dev, err := device.New(handle, runner)
			if err != nil {
				return fmt.Errorf("failed to initialize device backend: %w", err)
			}

			dispatcher := actions.NewDispatcher(logger, dev, cfg.Device.Timing, nil, nil)
			client := model.NewHTTPClient(logger, cfg.Model)

			registry := agent.NewRegistry()
			session := registry.Obtain(handle, func() *agent.Session {
				return agent.NewSession(logger, cfg.Agent, dev, dispatcher, client)
			})

			logger.Info("Starting task",
				zap.String("device", handle.String()),
				zap.String("task", task),
			)

			events, err := session.Run(ctx, task)
			if err != nil {
				return fmt.Errorf("failed to start session: %w", err)
			}

			for ev := range events {
				printStepEvent(cmd, ev)
			}

			switch state := session.State(); state {
			case agent.StateErrored:
				return fmt.Errorf("session ended in error")
			case agent.StateIdle:
				logger.Warn("Task interrupted before completion")
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "\nTask complete.\n")
			}

			if notes := session.Notes(); len(notes) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "\nNotes:")
				for _, n := range notes {
					fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", n)
				}
			}
			return nil
		},
	}

	runCmd.Flags().StringP("backend", "b", "", "Device backend: adb, hdc or ios. (Overrides config/env)")
	runCmd.Flags().StringP("device", "d", "", "Device serial or UDID. Empty uses the default device.")

	return runCmd
}

// printStepEvent renders one step of the loop for the terminal.
func printStepEvent(cmd *cobra.Command, ev agent.StepEvent) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n[step %d]\n", ev.Step)
	if ev.Thinking != "" {
		fmt.Fprintf(out, "  thinking: %s\n", ev.Thinking)
	}
	if ev.Action != nil {
		fmt.Fprintf(out, "  action:   %s\n", ev.Action.String())
	}
	if ev.Message != "" {
		fmt.Fprintf(out, "  result:   %s\n", ev.Message)
	}
}
