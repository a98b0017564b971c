package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/njchilds90/gocalc"
)

func (a *app) newEvalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "eval <expression> <x>",
		Short: "Evaluate an expression at x",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, request("evaluate", args[0], args[1]))
		},
	}
}

func (a *app) newDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <expression> <x>",
		Short: "Numerical derivative at x",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			order, err := cmd.Flags().GetInt("order")
			if err != nil {
				return fmt.Errorf("failed to get order flag: %w", err)
			}
			req := request("differentiation", args[0], args[1])
			req.Params["order"] = float64(order)
			return a.run(cmd, req)
		},
	}
	cmd.Flags().IntP("order", "n", 1, "Derivative order")
	return cmd
}

func (a *app) newLimitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "limit <expression> <x>",
		Short: "Limit as the variable approaches x",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := cmd.Flags().GetString("side")
			if err != nil {
				return fmt.Errorf("failed to get side flag: %w", err)
			}
			side, err := gocalc.ParseSide(s)
			if err != nil {
				return err
			}
			tool := "limit"
			switch side {
			case gocalc.LeftSide:
				tool = "limit-left"
			case gocalc.RightSide:
				tool = "limit-right"
			}
			return a.run(cmd, request(tool, args[0], args[1]))
		},
	}
	cmd.Flags().StringP("side", "s", "both", "Approach side (both, left, right)")
	return cmd
}

func (a *app) newTangentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tangent <expression> <x>",
		Short: "Tangent line at x",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, request("tangent-line", args[0], args[1]))
		},
	}
}

func (a *app) newTaylorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taylor <expression> <center>",
		Short: "Taylor polynomial around center",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := request("taylor-series", args[0], args[1])
			if cmd.Flags().Changed("terms") {
				terms, err := cmd.Flags().GetInt("terms")
				if err != nil {
					return fmt.Errorf("failed to get terms flag: %w", err)
				}
				req.Params["terms"] = float64(terms)
			}
			return a.run(cmd, req)
		},
	}
	cmd.Flags().IntP("terms", "t", gocalc.DefaultSettings().TaylorTerms, "Number of coefficients (default from settings)")
	return cmd
}

func (a *app) newCallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "call [file|-]",
		Short: "Run JSON requests, one per line, and print one JSON response per line",
		Long: `Each input line is a request such as
  {"tool": "limit", "params": {"expression": "sin(x)/x", "x": 0}}
Lenient JSON is repaired where possible. Blank lines are skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open requests: %w", err)
				}
				defer f.Close()
				in = f
			}
			return a.callAll(cmd, in)
		},
	}
}

func (a *app) callAll(cmd *cobra.Command, in io.Reader) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)

	var total, failed int
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		total++
		var resp gocalc.Response
		req, err := gocalc.DecodeRequest([]byte(line))
		if err != nil {
			resp = gocalc.Response{Error: err.Error(), Kind: gocalc.ErrorKind(err)}
		} else {
			resp = a.registry.Load().Call(cmd.Context(), req)
		}
		if resp.Error != "" {
			failed++
		}
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("failed to write response: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read requests: %w", err)
	}
	a.logger.Info("Processed requests", "total", total, "failed", failed)
	if failed > 0 {
		return &callError{kind: kindBatch, msg: fmt.Sprintf("%d of %d requests failed", failed, total)}
	}
	return nil
}

func (a *app) newOpsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ops",
		Short: "Print the operation schema as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := json.MarshalIndent(a.registry.Load().Schema(), "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return err
		},
	}
}

func request(tool, expression, x string) gocalc.Request {
	return gocalc.Request{
		Tool:   tool,
		Params: map[string]interface{}{"expression": expression, "x": x},
	}
}
