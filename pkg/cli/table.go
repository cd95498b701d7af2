package cli

import (
	"context"
	"fmt"

	"github.com/mchmarny/strshort/pkg/net"
	"github.com/urfave/cli/v3"
)

func newTableCmd() *cli.Command {
	return &cli.Command{
		Name:            "table",
		Aliases:         []string{"t"},
		Usage:           "Print the active substitution table (pair -> symbol)",
		HideHelpCommand: true,
		Action:          cmdTable,
		Flags: []cli.Flag{
			remoteFlag(),
		},
	}
}

func cmdTable(ctx context.Context, cmd *cli.Command) error {
	remote := cmd.String(remoteFlagName)
	if remote == "" {
		return output(cmd, getConfig(cmd).Reducer.Table().Map())
	}

	client, err := net.NewClient(remote)
	if err != nil {
		return err
	}
	m, err := client.Table(ctx)
	if err != nil {
		return fmt.Errorf("getting table from %s: %w", remote, err)
	}
	return output(cmd, m)
}
