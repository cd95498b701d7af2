package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mchmarny/strshort/pkg/config"
	"github.com/mchmarny/strshort/pkg/data"
	"github.com/mchmarny/strshort/pkg/logging"
	"github.com/mchmarny/strshort/pkg/shorten"
	urfave "github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	appName      = "strshort"
	appConfigKey = "app-config"

	formatJSON = "json"
	formatYAML = "yaml"
)

const (
	debugFlagName      = "debug"
	dbFilePathFlagName = "db"
	configDirFlagName  = "config"
	formatFlagName     = "format"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""
)

// globalFlags are created per app as urfave flags keep parsed state.
func globalFlags() []urfave.Flag {
	return []urfave.Flag{
		&urfave.BoolFlag{
			Name:  debugFlagName,
			Usage: "Prints verbose logs (optional, default: false)",
		},
		&urfave.StringFlag{
			Name:  dbFilePathFlagName,
			Usage: "Path to the Sqlite database file (default: $HOME/.strshort/data.db)",
		},
		&urfave.StringFlag{
			Name:    configDirFlagName,
			Usage:   "Directory holding config.yaml (default: $HOME/.strshort)",
			Sources: urfave.EnvVars("STRSHORT_CONFIG"),
		},
		&urfave.StringFlag{
			Name:  formatFlagName,
			Usage: "Output format [json, yaml]",
			Value: formatJSON,
		},
	}
}

// Execute creates and runs the CLI application.
func Execute() {
	logging.SetDefaultCLILogger(config.LogLevelDefault)

	app := newApp()
	if err := app.Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

type appConfig struct {
	Dir     string
	DBPath  string
	Debug   bool
	Format  string
	Config  *config.Config
	Reducer *shorten.Reducer
	DB      *sql.DB
}

func getConfig(cmd *urfave.Command) *appConfig {
	return cmd.Root().Metadata[appConfigKey].(*appConfig)
}

func newApp() *urfave.Command {
	return &urfave.Command{
		Name:                  appName,
		Version:               fmt.Sprintf("%s (%s - %s)", version, commit, date),
		EnableShellCompletion: true,
		HideHelpCommand:       true,
		Usage:                 "Greedily shorten strings over {a, b, c} by collapsing adjacent distinct symbols",
		Writer:                os.Stdout,
		Reader:                os.Stdin,
		Metadata:              map[string]any{},
		Flags:                 globalFlags(),
		Commands: []*urfave.Command{
			newRunCmd(),
			newBatchCmd(),
			newHistoryCmd(),
			newTableCmd(),
			newServerCmd(),
		},
		Before: func(ctx context.Context, cmd *urfave.Command) (context.Context, error) {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return ctx, err
			}
			cmd.Metadata[appConfigKey] = cfg
			return ctx, nil
		},
		After: func(_ context.Context, cmd *urfave.Command) error {
			if cfg, ok := cmd.Metadata[appConfigKey].(*appConfig); ok && cfg.DB != nil {
				cfg.DB.Close()
			}
			return nil
		},
	}
}

func loadConfig(cmd *urfave.Command) (*appConfig, error) {
	debug := cmd.Bool(debugFlagName)
	if debug {
		logging.SetDefaultCLILogger("debug")
	}

	dir := cmd.String(configDirFlagName)
	if dir == "" {
		home, _, err := config.GetOrCreateHomeDir(appName)
		if err != nil {
			slog.Debug("error getting home dir, using current dir instead", "error", err)
			home = "."
		}
		dir = home
	}

	conf, err := config.ReadOrCreate(dir)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if !debug {
		logging.SetDefaultCLILogger(conf.LogLevel)
	}

	reducer, err := conf.Reducer()
	if err != nil {
		return nil, fmt.Errorf("building reducer: %w", err)
	}

	dbPath := cmd.String(dbFilePathFlagName)
	if dbPath == "" {
		dbPath = filepath.Join(dir, data.DataFileName)
	}

	format := formatJSON
	if f := strings.ToLower(cmd.String(formatFlagName)); f == formatYAML || f == "yml" {
		format = formatYAML
	}

	slog.Debug("config loaded", "dir", dir, "db", dbPath, "format", format)

	return &appConfig{
		Dir:     dir,
		DBPath:  dbPath,
		Debug:   debug,
		Format:  format,
		Config:  conf,
		Reducer: reducer,
	}, nil
}

// getDB opens the history database on first use so commands that never
// touch history (remote runs, table) leave no database behind.
func (c *appConfig) getDB() (*sql.DB, error) {
	if c.DB != nil {
		return c.DB, nil
	}

	if err := data.Init(c.DBPath); err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}

	db, err := data.GetDB(c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	c.DB = db
	return db, nil
}

func encode(w io.Writer, format string, v any) error {
	if format == formatYAML {
		e := yaml.NewEncoder(w)
		defer e.Close()
		return e.Encode(v)
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(v)
}

func output(cmd *urfave.Command, v any) error {
	cfg := getConfig(cmd)
	if err := encode(cmd.Root().Writer, cfg.Format, v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}
