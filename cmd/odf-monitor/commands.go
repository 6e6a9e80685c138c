package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/odfmonitor/odf-monitor/internal/config"
	"github.com/odfmonitor/odf-monitor/internal/server"
	"github.com/odfmonitor/odf-monitor/pkg/logger"
)

// buildApp is swapped in tests.
var buildApp = server.Build

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "odf-monitor",
		Short:         "Query and compare stored ODF result documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP API",
			Args:  cobra.NoArgs,
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "disciplines",
			Short: "Print disciplines present in stored XML documents",
			Args:  cobra.NoArgs,
			RunE: withApp(func(ctx context.Context, app *server.App, _ []string, out io.Writer) error {
				codes, err := app.Service.ListDisciplines(ctx)
				if err != nil {
					return err
				}
				return printJSON(out, map[string][]string{"disciplines": codes})
			}),
		},
		&cobra.Command{
			Use:   "parsed <id>",
			Short: "Print the parsed content of a document",
			Args:  cobra.ExactArgs(1),
			RunE: withApp(func(ctx context.Context, app *server.App, args []string, out io.Writer) error {
				v, err := app.Service.GetParsed(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(out, v)
			}),
		},
		&cobra.Command{
			Use:   "compare <id1> <id2>",
			Short: "Compare two documents using the configured mode",
			Args:  cobra.ExactArgs(2),
			RunE: withApp(func(ctx context.Context, app *server.App, args []string, out io.Writer) error {
				res, err := app.Service.Compare(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return printJSON(out, res)
			}),
		},
	)
	return root
}

func loadConfig() (*config.Config, error) {
	logger.Init(os.Getenv("LOG_LEVEL"))
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.LogLevel)
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())
	return cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close(context.Background())
	return server.Run(ctx, app)
}

type appFunc func(ctx context.Context, app *server.App, args []string, out io.Writer) error

func withApp(fn appFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		app, err := buildApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer app.Close(context.Background())
		return fn(ctx, app, args, cmd.OutOrStdout())
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
