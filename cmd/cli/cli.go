package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"sync"
	"syscall"

	"longevitygenie/opengenes/internal/config"
	querysql "longevitygenie/opengenes/internal/db/sql"
	"longevitygenie/opengenes/internal/examples"
	"longevitygenie/opengenes/internal/export"
	"longevitygenie/opengenes/internal/locale"
	"longevitygenie/opengenes/internal/logger"
	"longevitygenie/opengenes/internal/mcpserver"

	"github.com/urfave/cli-altsrc/v3"
	toml "github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

var transports = []string{"stdio", "http", "sse"}

func validateOutputFormat(format string, output string, l *locale.Locale) (string, error) {
	resolved, err := export.ResolveFormat(format, output)
	if err != nil {
		if format == "" {
			return "", fmt.Errorf(l.Errors.OutputFormatEmpty, output)
		}
		return "", fmt.Errorf(l.Errors.OutputFormatNotImpl, format)
	}
	return resolved, nil
}

func Opengenes(cfg *config.Config, configPath string) {
	l, err := locale.Load(cfg.Locale)
	if err != nil {
		log.Fatal(err)
	}

	if err := NewCommand(cfg, configPath, l).Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// NewCommand builds the command tree. cfg is updated in place when --config
// names a file other than configPath, the one cfg was loaded from.
func NewCommand(cfg *config.Config, configPath string, l *locale.Locale) *cli.Command {
	var transport string
	var addr string
	var localDir string
	var offline bool
	var output string
	var outputFormat string
	var noCache bool
	var summary bool
	var logCloser io.Closer

	loadedPath := configPath

	return &cli.Command{
		Name:        "opengenes",
		Usage:       l.CLI.Description,
		Description: l.CLI.Description,
		Version:     cfg.Server.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Value:       configPath,
				Usage:       l.CLI.Flags.Config,
				Destination: &configPath,
			},
			&cli.StringFlag{
				Name:        "local-dir",
				Usage:       l.CLI.Flags.LocalDir,
				Destination: &localDir,
				Sources: cli.NewValueSourceChain(
					cli.EnvVar("OPENGENES_LOCAL_DIR"),
					toml.TOML("data.local_dir", altsrc.NewStringPtrSourcer(&configPath))),
			},
			&cli.BoolFlag{
				Name:        "offline",
				Usage:       l.CLI.Flags.Offline,
				Destination: &offline,
				Sources:     cli.EnvVars("OPENGENES_OFFLINE"),
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			if configPath != loadedPath {
				closer, err := reloadConfig(cfg, configPath)
				if err != nil {
					return ctx, err
				}
				logCloser = closer
			}
			if c.IsSet("local-dir") {
				cfg.Data.LocalDir = localDir
			}
			if c.IsSet("offline") {
				cfg.Data.Offline = offline
			}
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if logCloser != nil {
				return logCloser.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: l.CLI.Commands.Serve,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "transport",
						Aliases:     []string{"t"},
						Usage:       l.CLI.Flags.Transport,
						Destination: &transport,
						Sources: cli.NewValueSourceChain(
							cli.EnvVar("OPENGENES_TRANSPORT"),
							toml.TOML("server.transport", altsrc.NewStringPtrSourcer(&configPath))),
						Action: func(ctx context.Context, c *cli.Command, s string) error {
							if !slices.Contains(transports, strings.ToLower(s)) {
								return fmt.Errorf("%s is not in valid transports %v", s, transports)
							}
							return nil
						},
					},
					&cli.StringFlag{
						Name:        "addr",
						Usage:       l.CLI.Flags.Addr,
						Destination: &addr,
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					if transport == "" {
						transport = cfg.Server.Transport
					}
					if addr == "" {
						addr = cfg.Addr()
					}
					transport = strings.ToLower(transport)
					if transport == "stdio" && cfg.Logging.ConsoleOutput == "stdout" {
						return fmt.Errorf("console logging to stdout would corrupt the stdio transport")
					}
					return serve(ctx, cfg, transport, addr)
				},
			},
			{
				Name:      "query",
				Usage:     l.CLI.Commands.Query,
				ArgsUsage: l.CLI.Args.Query,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "output",
						Aliases:     []string{"o"},
						Usage:       l.CLI.Flags.Output,
						Destination: &output,
					},
					&cli.StringFlag{
						Name:        "output-format",
						Usage:       l.CLI.Flags.OutputFormat,
						Destination: &outputFormat,
					},
					&cli.BoolFlag{
						Name:        "no-cache",
						Usage:       l.CLI.Flags.NoCache,
						Destination: &noCache,
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					query := c.Args().Get(0)
					if strings.TrimSpace(query) == "" {
						return errors.New(l.Errors.MissingQuery)
					}

					format := ""
					if output != "" {
						var err error
						if format, err = validateOutputFormat(outputFormat, output, l); err != nil {
							return err
						}
					}

					a, err := openApp(ctx, cfg, !noCache)
					if err != nil {
						return err
					}
					defer a.Close()

					res, err := a.gateway.DBQuery(ctx, query)
					if err != nil {
						return err
					}

					if output == "" {
						return export.JSON(os.Stdout, res)
					}

					slog.InfoContext(ctx, "Exporting result", "output", output, "format", format, "rows", res.RowCount)
					return export.Write(ctx, res, output, format)
				},
			},
			{
				Name:  "schema",
				Usage: l.CLI.Commands.Schema,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:        "summary",
						Usage:       l.CLI.Flags.Summary,
						Destination: &summary,
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					a, err := openApp(ctx, cfg, false)
					if err != nil {
						return err
					}
					defer a.Close()

					if summary {
						text, err := a.gateway.SchemaSummary(ctx)
						if err != nil {
							return err
						}
						fmt.Println(text)
						return nil
					}

					d, err := a.gateway.GetSchemaInfo(ctx)
					if err != nil {
						return err
					}
					return printJSON(d)
				},
			},
			{
				Name:  "examples",
				Usage: l.CLI.Commands.Examples,
				Action: func(ctx context.Context, c *cli.Command) error {
					return printJSON(examples.List())
				},
			},
			{
				Name:  "check",
				Usage: l.CLI.Commands.Check,
				Action: func(ctx context.Context, c *cli.Command) error {
					a, err := openApp(ctx, cfg, false)
					if err != nil {
						return err
					}
					defer a.Close()

					return check(ctx, a, int(cfg.MaxWorkers), l)
				},
			},
			{
				Name:      "validate",
				Usage:     l.CLI.Commands.Validate,
				ArgsUsage: l.CLI.Args.Validate,
				Action: func(ctx context.Context, c *cli.Command) error {
					query := c.Args().Get(0)

					verdict := querysql.ReadOnly().Validate(query)
					if !verdict.Allowed {
						return fmt.Errorf(l.Validate.Rejected, verdict.Code())
					}

					queryType, _ := querysql.Identify(query)
					fmt.Printf(l.Validate.Allowed+"\n", queryType)
					return nil
				},
			},
		},
	}
}

// reloadConfig replaces cfg with the contents of path and reinstalls the
// logger from the new settings.
func reloadConfig(cfg *config.Config, path string) (io.Closer, error) {
	reloaded, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	*cfg = *reloaded

	closer, err := logger.Setup(cfg.Logging)
	if err != nil {
		return nil, err
	}

	slog.Debug("Configuration reloaded", "path", path)

	return closer, nil
}

func serve(ctx context.Context, cfg *config.Config, transport string, addr string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	var prompt string
	if cfg.Server.HugeQueryTool {
		if prompt, err = a.usage.Text(ctx); err != nil {
			slog.WarnContext(ctx, "Usage document unavailable, query tool keeps its short description", "error", err)
		}
	}

	s := mcpserver.New(a.gateway, mcpserver.Options{
		Name:          cfg.Server.Name,
		Version:       cfg.Server.Version,
		Prefix:        cfg.Server.Prefix,
		HugeQueryTool: cfg.Server.HugeQueryTool,
		Prompt:        prompt,
	})

	err = mcpserver.Serve(ctx, s, transport, addr, cfg.Server.Endpoint)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// check runs every example query against the store and reports how many
// succeeded, along with any drift between the store and the documented schema.
func check(ctx context.Context, a *app, workers int, l *locale.Locale) error {
	d, err := a.gateway.GetSchemaInfo(ctx)
	if err != nil {
		return err
	}
	for _, m := range d.Mismatches() {
		slog.WarnContext(ctx, fmt.Sprintf(l.Check.Mismatch, m))
	}

	list := examples.List()

	var mu sync.Mutex
	failures := make(map[int]error)

	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, ex := range list {
		g.Go(func() error {
			if _, err := a.gateway.DBQuery(gctx, ex.SQL); err != nil {
				mu.Lock()
				failures[i] = err
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	for i := range list {
		if err, ok := failures[i]; ok {
			fmt.Printf(l.Check.Failed+"\n", i+1, err)
		}
	}
	fmt.Printf(l.Check.Passed+"\n", len(list)-len(failures), len(list))

	if len(failures) > 0 {
		return fmt.Errorf(l.Errors.CheckFailed, len(failures))
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
