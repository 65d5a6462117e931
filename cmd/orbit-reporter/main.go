package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/samvad-hq/samvad-orbit-reporter/internal/app"
	"github.com/samvad-hq/samvad-orbit-reporter/internal/config"
	"github.com/samvad-hq/samvad-orbit-reporter/internal/logger"
	"github.com/samvad-hq/samvad-orbit-reporter/internal/reporter"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "orbit-reporter: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "orbit-reporter",
		Short: "Report who is in space and where the ISS is",
		Long: "orbit-reporter fetches the Open Notify astronaut roster and ISS position concurrently " +
			"and prints both reports. With --interval it keeps polling until interrupted.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRunner(cmd, out, errOut, func(ctx context.Context, r *app.Runner) error {
				return r.Run(ctx)
			})
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("format", config.FormatText, "output format: text or json")
	flags.Int64("interval", 0, "poll interval in seconds; 0 runs once")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("time-zone", "", "IANA zone for the \"As of\" line; empty uses the local zone")
	flags.String("publishers", "", "path to a publishers YAML/JSON file")

	rootCmd.AddCommand(astronautsCmd(out, errOut), issCmd(out, errOut))
	return rootCmd
}

func astronautsCmd(out, errOut io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "astronauts",
		Short: "Print the astronaut roster only",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRunner(cmd, out, errOut, func(ctx context.Context, r *app.Runner) error {
				text, err := r.Reporter().ReportAstronauts(ctx)
				if err != nil {
					return err
				}
				_, err = io.WriteString(out, text)
				return err
			})
		},
	}
}

func issCmd(out, errOut io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "iss",
		Short: "Print the current ISS position only",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRunner(cmd, out, errOut, func(ctx context.Context, r *app.Runner) error {
				pos, text, err := r.Reporter().ReportIssPosition(ctx)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(out, "%s\n%s\n", text, reporter.FormatPosition(pos))
				return err
			})
		},
	}
}

// withRunner loads config, starts logging and hands a signal-aware context to fn.
func withRunner(cmd *cobra.Command, out, errOut io.Writer, fn func(context.Context, *app.Runner) error) error {
	cfg, err := config.Load(flagSet(cmd))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.DebugObj("orbit-reporter starting", "config", cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner, err := app.NewRunner(ctx, cfg, log, out, errOut)
	if err != nil {
		logger.ErrorObj("failed to initialize runner", "error", err.Error())
		return err
	}
	defer func() {
		if cerr := runner.Close(); cerr != nil {
			logger.ErrorObj("runner close failed", "error", cerr.Error())
		}
	}()
	return fn(ctx, runner)
}

func flagSet(cmd *cobra.Command) *pflag.FlagSet {
	if root := cmd.Root(); root != nil {
		return root.PersistentFlags()
	}
	return cmd.Flags()
}
