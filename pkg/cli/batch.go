package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mchmarny/strshort/pkg/batch"
	"github.com/mchmarny/strshort/pkg/data"
	"github.com/mchmarny/strshort/pkg/net"
	"github.com/urfave/cli/v3"
)

const (
	fileFlagName        = "file"
	concurrencyFlagName = "concurrency"

	maxLineBytes = 1 << 20
)

func newBatchCmd() *cli.Command {
	return &cli.Command{
		Name:    "batch",
		Aliases: []string{"b"},
		Usage:   "Shorten one input per line read from a file or stdin",
		UsageText: `strshort batch --file inputs.txt
   cat inputs.txt | strshort batch --concurrency 8`,
		HideHelpCommand: true,
		Action:          cmdBatch,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    fileFlagName,
				Aliases: []string{"f"},
				Usage:   "Path to the input file (default: stdin)",
			},
			&cli.IntFlag{
				Name:  concurrencyFlagName,
				Usage: "Number of inputs shortened in parallel (default: from config)",
			},
			noRecordFlag(),
			remoteFlag(),
		},
	}
}

// BatchResult is the output of the batch command.
type BatchResult struct {
	Total    int           `json:"total" yaml:"total"`
	Invalid  int           `json:"invalid" yaml:"invalid"`
	Duration string        `json:"duration" yaml:"duration"`
	Items    []*batch.Item `json:"items" yaml:"items"`
}

func cmdBatch(ctx context.Context, cmd *cli.Command) error {
	start := time.Now()
	cfg := getConfig(cmd)

	var r io.Reader = cmd.Root().Reader
	if path := cmd.String(fileFlagName); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening input file: %w", err)
		}
		defer f.Close()
		r = f
	}

	inputs, err := readLines(r)
	if err != nil {
		return fmt.Errorf("reading inputs: %w", err)
	}

	remote := cmd.String(remoteFlagName)
	items, err := runBatch(ctx, cmd, cfg, remote, inputs)
	if err != nil {
		return err
	}

	res := &BatchResult{
		Total: len(items),
		Items: items,
	}
	for _, item := range items {
		if !item.Valid() {
			res.Invalid++
		}
	}

	// a remote server keeps its own history
	if remote == "" && !cmd.Bool(noRecordFlagName) {
		recordRuns(cfg, toRuns(items, data.SourceBatch))
	}

	res.Duration = time.Since(start).String()
	slog.Debug("batch complete", "total", res.Total, "invalid", res.Invalid, "duration", res.Duration)

	return output(cmd, res)
}

func runBatch(ctx context.Context, cmd *cli.Command, cfg *appConfig, remote string, inputs []string) ([]*batch.Item, error) {
	if remote != "" {
		client, err := net.NewClient(remote)
		if err != nil {
			return nil, err
		}
		items, err := client.Batch(ctx, inputs)
		if err != nil {
			return nil, fmt.Errorf("running batch on %s: %w", remote, err)
		}
		return items, nil
	}

	limit := cmd.Int(concurrencyFlagName)
	if limit < 1 {
		limit = cfg.Config.Concurrency
	}

	items, err := batch.Run(ctx, cfg.Reducer, inputs, limit)
	if err != nil {
		return nil, fmt.Errorf("running batch: %w", err)
	}
	return items, nil
}

// readLines returns the non-blank lines of r with surrounding whitespace removed.
func readLines(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lines := make([]string, 0)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// recordRuns saves runs to history, logging instead of failing.
func recordRuns(cfg *appConfig, runs []*data.Run) {
	db, err := cfg.getDB()
	if err != nil {
		slog.Warn("failed to open history", "error", err)
		return
	}
	if err := data.SaveRuns(db, runs); err != nil {
		slog.Warn("failed to record batch", "error", err)
	}
}

func toRuns(items []*batch.Item, source string) []*data.Run {
	runs := make([]*data.Run, 0, len(items))
	for _, item := range items {
		run := &data.Run{
			Input:  item.Input,
			Output: item.Output,
			Valid:  item.Valid(),
			Error:  item.Error,
			Source: source,
		}
		if run.Valid {
			// every step removes exactly one symbol
			run.Steps = len(item.Input) - len(item.Output)
		}
		runs = append(runs, run)
	}
	return runs
}
