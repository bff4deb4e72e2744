package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"dotsocr/internal/api"
	"dotsocr/internal/daemonctl"
)

const (
	startTimeout = 15 * time.Second
	stopGrace    = 10 * time.Second
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the dotsocr daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			state, err := daemonctl.Inspect(ctx.configValue())
			if err != nil {
				return err
			}
			if state.Running {
				fmt.Fprintln(stdout, "Daemon already running")
				return nil
			}
			if err := launchDaemon(cmd.Context(), ctx); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Daemon started (%s)\n", ctx.apiAddress())
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the dotsocr daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.configValue(), stopGrace)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(stdout, "Daemon did not exit in %s; killed pid %d\n", stopGrace, result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the dotsocr daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.configValue(), stopGrace)
			switch {
			case errors.Is(err, daemonctl.ErrDaemonNotRunning):
			case err != nil:
				return err
			default:
				if result.ForcedKill {
					fmt.Fprintf(stdout, "Killed pid %d\n", result.PID)
				}
				fmt.Fprintln(stdout, "Daemon stopped")
			}
			if err := launchDaemon(cmd.Context(), ctx); err != nil {
				return err
			}
			fmt.Fprintln(stdout, "Daemon restarted")
			return nil
		},
	}

	var statusJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, dependency, and job status",
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := daemonctl.Inspect(ctx.configValue())
			if err != nil {
				return err
			}
			var health *api.HealthResponse
			if cl, err := ctx.apiClient(); err == nil {
				if resp, err := cl.Health(cmd.Context()); err == nil {
					health = &resp
				}
			}
			if statusJSON {
				return writeJSON(cmd, statusPayload{
					Running: state.Running || health != nil,
					PID:     state.PID,
					Address: ctx.apiAddress(),
					Health:  health,
				})
			}
			renderStatus(cmd, ctx.apiAddress(), state, health)
			return nil
		},
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")

	return []*cobra.Command{startCmd, stopCmd, restartCmd, statusCmd}
}

type statusPayload struct {
	Running bool                `json:"running"`
	PID     int                 `json:"pid,omitempty"`
	Address string              `json:"address"`
	Health  *api.HealthResponse `json:"health,omitempty"`
}

func launchDaemon(cmdCtx context.Context, ctx *commandContext) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	if err := daemonctl.Launch(exe, daemonctl.LaunchOptions{
		ConfigPath: flagValue(ctx.configFlag),
		LogLevel:   ctx.logLevel(),
	}); err != nil {
		return err
	}
	cl, err := ctx.apiClient()
	if err != nil {
		return err
	}
	return daemonctl.WaitForReady(cmdCtx, startTimeout, func(probeCtx context.Context) error {
		_, err := cl.Health(probeCtx)
		return err
	})
}

func renderStatus(cmd *cobra.Command, addr string, state daemonctl.ProcessState, health *api.HealthResponse) {
	stdout := cmd.OutOrStdout()
	colorize := shouldColorize(stdout)

	var system []string
	switch {
	case health != nil:
		detail := fmt.Sprintf("Running at %s", addr)
		if state.PID > 0 {
			detail += " (pid " + strconv.Itoa(state.PID) + ")"
		}
		system = append(system, renderStatusLine("Daemon", statusOK, detail, colorize))
		system = append(system, renderStatusLine("Health", healthKind(health.Status), health.Status, colorize))
		system = append(system, renderStatusLine("Index", statusInfo, health.Index, colorize))
		system = append(system, renderStatusLine("Parser endpoint", statusInfo,
			fmt.Sprintf("%s:%d", health.ParserConfig.IP, health.ParserConfig.Port), colorize))
	case state.Running:
		system = append(system, renderStatusLine("Daemon", statusWarn,
			fmt.Sprintf("Lock held by pid %d but API at %s is not answering", state.PID, addr), colorize))
	default:
		system = append(system, renderStatusLine("Daemon", statusError, "Not running", colorize))
	}
	printSection(stdout, "System Status", system, colorize)
	if health == nil {
		return
	}

	fmt.Fprintln(stdout)
	printSection(stdout, "Dependencies", dependencyLines(health.Dependencies, colorize), colorize)

	fmt.Fprintln(stdout)
	printSection(stdout, "Jobs", nil, colorize)
	fmt.Fprint(stdout, renderTable([]string{"Status", "Count"}, jobStatusRows(health.Jobs), []columnAlignment{alignLeft, alignRight}))
	fmt.Fprintf(stdout, "Workers: %d  Queue: %d/%d\n", health.Jobs.Workers, health.Jobs.QueueDepth, health.Jobs.QueueCapacity)
}

func jobStatusRows(stats api.JobStats) [][]string {
	rows := make([][]string, 0, len(stats.ByStatus))
	for _, status := range taskStatusOrder {
		rows = append(rows, []string{titleStatus(status), strconv.Itoa(stats.ByStatus[status])})
	}
	return rows
}
