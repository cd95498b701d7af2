package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mchmarny/strshort/pkg/data"
	"github.com/urfave/cli/v3"
)

const (
	limitFlagName = "limit"
	yesFlagName   = "yes"
)

func newHistoryCmd() *cli.Command {
	return &cli.Command{
		Name:            "history",
		Aliases:         []string{"h"},
		Usage:           "List previously shortened strings",
		HideHelpCommand: true,
		Action:          cmdHistoryList,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  limitFlagName,
				Usage: "Limits number of runs returned",
				Value: data.RunListLimitDefault,
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show run counts",
				Action: cmdHistoryStats,
			},
			{
				Name:   "clear",
				Usage:  "Delete all recorded runs",
				Action: cmdHistoryClear,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    yesFlagName,
						Aliases: []string{"y"},
						Usage:   "Skip the confirmation prompt",
					},
				},
			},
		},
	}
}

func cmdHistoryList(_ context.Context, cmd *cli.Command) error {
	db, err := getConfig(cmd).getDB()
	if err != nil {
		return err
	}

	list, err := data.ListRuns(db, cmd.Int(limitFlagName))
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	return output(cmd, list)
}

func cmdHistoryStats(_ context.Context, cmd *cli.Command) error {
	db, err := getConfig(cmd).getDB()
	if err != nil {
		return err
	}

	state, err := data.GetDataState(db)
	if err != nil {
		return fmt.Errorf("getting history state: %w", err)
	}

	return output(cmd, state)
}

func cmdHistoryClear(_ context.Context, cmd *cli.Command) error {
	cfg := getConfig(cmd)
	w := cmd.Root().Writer

	if !cmd.Bool(yesFlagName) {
		fmt.Fprintf(w, "This will permanently delete all runs in %s\n", cfg.DBPath)
		fmt.Fprint(w, "Are you sure? [y/N]: ")

		reader := bufio.NewReader(cmd.Root().Reader)
		answer, err := reader.ReadString('\n')
		if err != nil && answer == "" {
			return fmt.Errorf("reading input: %w", err)
		}

		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Fprintln(w, "Aborted.")
			return nil
		}
	}

	db, err := cfg.getDB()
	if err != nil {
		return err
	}

	n, err := data.DeleteRuns(db)
	if err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}

	slog.Info("history cleared", "path", cfg.DBPath, "deleted", n)
	return output(cmd, map[string]int64{"deleted": n})
}
