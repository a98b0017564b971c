package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/shlex"
	"github.com/spf13/cobra"

	"github.com/njchilds90/gocalc"
)

const shellPrompt = "gocalc> "

func (a *app) newShellCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive calculator",
		Long: `Reads one operation per line: <operation> <arg>...
Arguments are shell-quoted, so quote expressions containing spaces:
  limit "sin(x) / x" 0
Type "help" for the list of operations and "quit" to leave.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			watch, err := cmd.Flags().GetBool("watch")
			if err != nil {
				return fmt.Errorf("failed to get watch flag: %w", err)
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if watch {
				if a.configPath == "" {
					return fmt.Errorf("%w: --watch needs --config or %s", gocalc.ErrInvalidArgument, envConfig)
				}
				w, err := newSettingsWatcher(a.configPath, a.reload, a.logger)
				if err != nil {
					return fmt.Errorf("failed to create settings watcher: %w", err)
				}
				if err := w.Start(ctx); err != nil {
					return fmt.Errorf("failed to watch settings: %w", err)
				}
				defer w.Stop()
			}
			return a.shell(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().BoolP("watch", "w", false, "Reload the settings file when it changes")
	return cmd
}

// reload swaps in a registry built from the settings at path. The running
// registry is kept when the new settings fail to load.
func (a *app) reload(path string) error {
	settings, err := gocalc.LoadSettings(path)
	if err == nil {
		var reg *gocalc.Registry
		reg, err = a.buildRegistry(settings)
		if err == nil {
			a.registry.Store(reg)
		}
	}
	a.metrics.RecordSettingsReload(err)
	return err
}

func (a *app) shell(ctx context.Context, in io.Reader, out, prompt io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		printf(prompt, "%s", shellPrompt)
		if !scanner.Scan() {
			printf(prompt, "\n")
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		words, err := shlex.Split(scanner.Text())
		if err != nil {
			printf(out, "error [%s]: %v\n", gocalc.KindParse, err)
			continue
		}
		if len(words) == 0 {
			continue
		}
		switch strings.ToLower(words[0]) {
		case "quit", "exit":
			return nil
		case "help":
			a.help(out)
			continue
		}

		reg := a.registry.Load()
		req, err := reg.Positional(words[0], words[1:])
		if err != nil {
			printf(out, "error [%s]: %v\n", gocalc.ErrorKind(err), err)
			continue
		}
		resp := reg.Call(ctx, req)
		if resp.Error != "" {
			printf(out, "error [%s]: %s\n", resp.Kind, resp.Error)
			continue
		}
		printf(out, "%s\n", resp.Text)
	}
}

func (a *app) help(out io.Writer) {
	for _, op := range a.registry.Load().Operations() {
		names := make([]string, len(op.Params))
		for i, p := range op.Params {
			names[i] = p.Name
			if !p.Required {
				names[i] = "[" + p.Name + "]"
			}
		}
		printf(out, "  %-24s %s\n", op.Name+" "+strings.Join(names, " "), op.Description)
	}
}
