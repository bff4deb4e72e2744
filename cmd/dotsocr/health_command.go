package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dotsocr/internal/api"
	"dotsocr/internal/client"
	"dotsocr/internal/preflight"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var local bool
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check daemon health, or run local preflight checks with --local",
		RunE: func(cmd *cobra.Command, args []string) error {
			if local {
				return runLocalHealth(cmd, ctx, asJSON)
			}
			return ctx.withClient(func(cl *client.Client) error {
				health, err := cl.Health(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, health)
				}
				renderHealth(cmd, health)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "Check this machine's directories and parser without contacting the daemon")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

type localHealth struct {
	Checks       []preflight.Result      `json:"checks"`
	Dependencies []api.DependencyStatus `json:"dependencies"`
}

func runLocalHealth(cmd *cobra.Command, ctx *commandContext, asJSON bool) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	report := localHealth{Checks: preflight.RunAll(cmd.Context(), cfg)}
	for _, dep := range preflight.CheckSystemDeps(cmd.Context(), cfg) {
		report.Dependencies = append(report.Dependencies, api.DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	if asJSON {
		return writeJSON(cmd, report)
	}

	stdout := cmd.OutOrStdout()
	colorize := shouldColorize(stdout)
	printSection(stdout, "Preflight", preflightLines(report.Checks, colorize), colorize)
	fmt.Fprintln(stdout)
	printSection(stdout, "Dependencies", dependencyLines(report.Dependencies, colorize), colorize)

	var failed []string
	for _, check := range report.Checks {
		if !check.Passed && !check.Optional {
			failed = append(failed, check.Name)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("preflight failed: %s", strings.Join(failed, ", "))
	}
	return nil
}

func renderHealth(cmd *cobra.Command, health api.HealthResponse) {
	stdout := cmd.OutOrStdout()
	colorize := shouldColorize(stdout)
	lines := []string{
		renderStatusLine("Service", statusInfo, fmt.Sprintf("%s %s", health.Service, health.Version), colorize),
		renderStatusLine("Status", healthKind(health.Status), health.Status, colorize),
		renderStatusLine("Index", statusInfo, dash(health.Index), colorize),
	}
	printSection(stdout, "Health", lines, colorize)
	fmt.Fprintln(stdout)
	cfg := health.ParserConfig
	fmt.Fprint(stdout, renderDetails([][2]string{
		{"Parser endpoint", fmt.Sprintf("%s:%d", cfg.IP, cfg.Port)},
		{"DPI", fmt.Sprint(cfg.DPI)},
		{"Min pixels", fmt.Sprint(cfg.MinPixels)},
		{"Max pixels", fmt.Sprint(cfg.MaxPixels)},
	}))
	if len(health.Dependencies) > 0 {
		fmt.Fprintln(stdout)
		printSection(stdout, "Dependencies", dependencyLines(health.Dependencies, colorize), colorize)
	}
}
