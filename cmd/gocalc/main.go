// cmd/gocalc: command-line front end for the gocalc operations
//
// Usage:
//
//	gocalc eval "x^2 + 1" 3
//	gocalc diff "sin(x)" 0 --order 3
//	gocalc limit "sin(x)/x" 0
//	gocalc call requests.jsonl
//	gocalc shell --config gocalc.yaml --watch
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/njchilds90/gocalc"
	"github.com/njchilds90/gocalc/internal/logging"
	"github.com/njchilds90/gocalc/internal/metrics"
)

const (
	envConfig    = "GOCALC_CONFIG"
	envLogLevel  = "GOCALC_LOG_LEVEL"
	envLogFormat = "GOCALC_LOG_FORMAT"

	defaultLogLevel  = "warn"
	defaultLogFormat = "text"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
		os.Exit(1)
	}
}

// kindBatch labels a request stream in which some requests failed; each
// response already carries its own kind.
const kindBatch = "batch"

// callError is a failed registry call, carrying the failure kind.
type callError struct {
	kind string
	msg  string
}

func (e *callError) Error() string { return e.msg }

func formatError(err error) string {
	var ce *callError
	if errors.As(err, &ce) {
		return fmt.Sprintf("Error [%s]: %s", ce.kind, ce.msg)
	}
	return fmt.Sprintf("Error [%s]: %v", gocalc.ErrorKind(err), err)
}

// app is the state shared by every subcommand of one invocation.
type app struct {
	configPath string
	logger     *slog.Logger
	settings   gocalc.Settings
	metrics    *metrics.Metrics
	registry   atomic.Pointer[gocalc.Registry]
}

// newRootCmd creates the root command and its subcommands.
func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "gocalc",
		Short: "Numerical calculus on single-variable expressions",
		Long: `Evaluate, differentiate, take limits of and expand expressions in x.

Expressions use + - * / ^, implicit multiplication (2x, 3(x+1)), the constants
pi and e, and the functions ` + joinFunctions() + `.

Example:
  gocalc limit "(x^2-1)/(x-1)" 1`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "Path to settings file (YAML); env "+envConfig)
	flags.StringP("log-level", "l", defaultLogLevel, "Log level (debug, info, warn, error); env "+envLogLevel)
	flags.String("log-format", defaultLogFormat, "Log format (text, json); env "+envLogFormat)
	flags.Bool("metrics", false, "Write call metrics in Prometheus text format to stderr on exit")

	rootCmd.AddCommand(
		a.newEvalCmd(),
		a.newDiffCmd(),
		a.newLimitCmd(),
		a.newTangentCmd(),
		a.newTaylorCmd(),
		a.newCallCmd(),
		a.newOpsCmd(),
		a.newShellCmd(),
	)
	for _, sub := range rootCmd.Commands() {
		a.withMetrics(sub)
	}
	return rootCmd
}

// withMetrics makes sub dump metrics after RunE whether or not it failed;
// PersistentPostRunE only runs on success.
func (a *app) withMetrics(sub *cobra.Command) {
	run := sub.RunE
	if run == nil {
		return
	}
	sub.RunE = func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if derr := a.dumpMetrics(cmd); err == nil {
				err = derr
			}
		}()
		return run(cmd, args)
	}
}

// flagOrEnv returns the flag value, or the environment variable when the flag
// was not set explicitly.
func flagOrEnv(cmd *cobra.Command, name, env string) (string, error) {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return "", fmt.Errorf("failed to get %s flag: %w", name, err)
	}
	if !cmd.Flags().Changed(name) {
		if ev, ok := os.LookupEnv(env); ok && ev != "" {
			return ev, nil
		}
	}
	return v, nil
}

func (a *app) setup(cmd *cobra.Command) error {
	level, err := flagOrEnv(cmd, "log-level", envLogLevel)
	if err != nil {
		return err
	}
	format, err := flagOrEnv(cmd, "log-format", envLogFormat)
	if err != nil {
		return err
	}
	a.configPath, err = flagOrEnv(cmd, "config", envConfig)
	if err != nil {
		return err
	}
	a.logger = logging.New(logging.Config{Level: level, Format: format, Output: cmd.ErrOrStderr()})
	a.metrics = metrics.New()

	a.settings = gocalc.DefaultSettings()
	if a.configPath != "" {
		a.settings, err = gocalc.LoadSettings(a.configPath)
		if err != nil {
			a.logger.Error("Failed to load settings", "path", a.configPath, "error", err)
			return err
		}
		a.logger.Info("Loaded settings", "path", a.configPath)
	}
	reg, err := a.buildRegistry(a.settings)
	if err != nil {
		return err
	}
	a.registry.Store(reg)
	return nil
}

func (a *app) buildRegistry(settings gocalc.Settings) (*gocalc.Registry, error) {
	calc, err := gocalc.New(settings, gocalc.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	return gocalc.NewRegistry(calc, gocalc.WithObserver(a.metrics)), nil
}

func (a *app) dumpMetrics(cmd *cobra.Command) error {
	enabled, err := cmd.Flags().GetBool("metrics")
	if err != nil || !enabled || a.metrics == nil {
		return err
	}
	return a.metrics.WriteText(cmd.ErrOrStderr())
}

// run dispatches one request and prints the rendered result.
func (a *app) run(cmd *cobra.Command, req gocalc.Request) error {
	resp := a.registry.Load().Call(cmd.Context(), req)
	if resp.Error != "" {
		a.logger.Debug("Call failed", "tool", req.Tool, "kind", resp.Kind, "error", resp.Error)
		return &callError{kind: resp.Kind, msg: resp.Error}
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), resp.Text)
	return err
}

func joinFunctions() string {
	return strings.Join(gocalc.Functions(), ", ")
}

// printf writes to w and drops the error; used for interactive output.
func printf(w io.Writer, format string, args ...interface{}) {
	_, _ = fmt.Fprintf(w, format, args...)
}
