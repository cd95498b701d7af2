package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mchmarny/strshort/pkg/data"
	"github.com/mchmarny/strshort/pkg/net"
	"github.com/mchmarny/strshort/pkg/shorten"
	"github.com/urfave/cli/v3"
)

const (
	traceFlagName    = "trace"
	noRecordFlagName = "no-record"
	remoteFlagName   = "remote"
)

func noRecordFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:  noRecordFlagName,
		Usage: "Do not record results in history",
	}
}

func remoteFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    remoteFlagName,
		Usage:   "Use a running strshort server (e.g. http://127.0.0.1:8080) instead of shortening locally",
		Sources: cli.EnvVars("STRSHORT_REMOTE"),
	}
}

func newRunCmd() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Aliases:   []string{"r"},
		Usage:     "Shorten one or more strings",
		ArgsUsage: "<input>...",
		UsageText: `strshort run bcab              # prints {"input": "bcab", "output": "b"}
   strshort run --trace aba cab  # includes every collapse step`,
		HideHelpCommand: true,
		Action:          cmdRun,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  traceFlagName,
				Usage: "Include each reduction step in the output",
			},
			noRecordFlag(),
			remoteFlag(),
		},
	}
}

func cmdRun(ctx context.Context, cmd *cli.Command) error {
	inputs := cmd.Args().Slice()
	if len(inputs) == 0 {
		return errors.New("at least one input required")
	}

	if remote := cmd.String(remoteFlagName); remote != "" {
		return cmdRunRemote(ctx, cmd, remote, inputs)
	}

	cfg := getConfig(cmd)
	record := !cmd.Bool(noRecordFlagName)
	trace := cmd.Bool(traceFlagName)

	// nothing is reduced unless every input is valid
	for _, in := range inputs {
		if err := shorten.Validate(in); err != nil {
			if record {
				saveRun(cfg, &data.Run{Input: in, Error: err.Error(), Source: data.SourceCLI})
			}
			return fmt.Errorf("shortening %q: %w", in, err)
		}
	}

	results := make([]*shorten.Result, 0, len(inputs))
	for _, in := range inputs {
		res, err := cfg.Reducer.Trace(in)
		if err != nil {
			return fmt.Errorf("shortening %q: %w", in, err)
		}

		for _, s := range res.Steps {
			slog.Debug("step",
				"input", in,
				"position", s.Position,
				"pair", s.Pair,
				"into", s.Into,
				"result", s.Result,
				"score", s.Score,
			)
		}

		if record {
			saveRun(cfg, &data.Run{
				Input:  in,
				Output: res.Output,
				Steps:  len(res.Steps),
				Valid:  true,
				Source: data.SourceCLI,
			})
		}

		if !trace {
			res.Steps = nil
		}
		results = append(results, res)
	}

	if len(results) == 1 {
		return output(cmd, results[0])
	}
	return output(cmd, results)
}

// cmdRunRemote shortens inputs on a server; the server keeps the history.
func cmdRunRemote(ctx context.Context, cmd *cli.Command, remote string, inputs []string) error {
	client, err := net.NewClient(remote)
	if err != nil {
		return err
	}

	results := make([]*shorten.Result, 0, len(inputs))
	for _, in := range inputs {
		res, err := client.Shorten(ctx, in, cmd.Bool(traceFlagName))
		if err != nil {
			return fmt.Errorf("shortening %q on %s: %w", in, remote, err)
		}
		results = append(results, res)
	}

	if len(results) == 1 {
		return output(cmd, results[0])
	}
	return output(cmd, results)
}

// saveRun records r; history is best effort and never fails the command.
func saveRun(cfg *appConfig, r *data.Run) {
	db, err := cfg.getDB()
	if err != nil {
		slog.Warn("failed to open history", "error", err)
		return
	}
	if _, err := data.SaveRun(db, r); err != nil {
		slog.Warn("failed to record run", "input", r.Input, "error", err)
	}
}
