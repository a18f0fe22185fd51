package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/reglet-dev/extbridge/application/schema"
	"github.com/reglet-dev/extbridge/domain/entities"
	errs "github.com/reglet-dev/extbridge/domain/errors"
	"github.com/reglet-dev/extbridge/host"
	"github.com/reglet-dev/extbridge/hostfuncs"
)

func newApp(stdout, stderr io.Writer) *cli.App {
	moduleFlags := []cli.Flag{
		&cli.StringFlag{
			Name:    "dir",
			Aliases: []string{"d"},
			Value:   "./ext",
			Usage:   "Directory searched for the extension artifact.",
			EnvVars: []string{"EXTBRIDGE_DIR"},
		},
		&cli.StringFlag{
			Name:    "name",
			Aliases: []string{"n"},
			Usage:   "Module name of the extension (required).",
		},
		&cli.StringFlag{
			Name:  "entry",
			Usage: "Entry point symbol. Defaults to Init_<name>.",
		},
		&cli.StringSliceFlag{
			Name:  "allow-env",
			Usage: "Environment variables wasm extensions may read through env_lookup.",
		},
	}

	return &cli.App{
		Name:      "extbridge",
		Usage:     "Load compiled extensions and call their operations",
		Writer:    stdout,
		ErrWriter: stderr,
		// Exit codes are applied by main.
		ExitErrHandler: func(*cli.Context, error) {},
		OnUsageError:   usageError,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "Log level: debug, info, warn or error.",
				EnvVars: []string{"EXTBRIDGE_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "text",
				Usage:   "Log format: text or json.",
				EnvVars: []string{"EXTBRIDGE_LOG_FORMAT"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "call",
				Usage:     "Load an extension and call one operation",
				ArgsUsage:    "OPERATION [ARGS...]",
				Flags:        moduleFlags,
				OnUsageError: usageError,
				Description: `
Arguments are converted to the operation's declared parameter types. The
result is printed as JSON:

  {{.HelpName}} --dir ./ext --name mymodule add 2 3`[1:],
				Action: func(c *cli.Context) error {
					if c.NArg() < 1 {
						return cli.Exit("missing operation name", 2)
					}
					return withModule(c, func(ctx context.Context, mod *host.Module) error {
						args := make([]any, 0, c.NArg()-1)
						for _, a := range c.Args().Tail() {
							args = append(args, a)
						}
						out, err := mod.Call(ctx, c.Args().First(), args...)
						if err != nil {
							return err
						}
						return printJSON(c.App.Writer, out)
					})
				},
			},
			{
				Name:  "inspect",
				Usage:        "Load an extension and print its description as JSON",
				Flags:        moduleFlags,
				OnUsageError: usageError,
				Action: func(c *cli.Context) error {
					return withModule(c, func(_ context.Context, mod *host.Module) error {
						return printJSON(c.App.Writer, mod.Info())
					})
				},
			},
			{
				Name:  "schema",
				Usage:        "Print the JSON Schema of the manifest format",
				OnUsageError: usageError,
				Action: func(c *cli.Context) error {
					data, err := schema.ManifestSchema()
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(c.App.Writer, string(data))
					return err
				},
			},
		},
	}
}

// usageError reports flag parse failures with exit code 2.
func usageError(_ *cli.Context, err error, _ bool) error {
	return cli.Exit(err.Error(), 2)
}

func withModule(c *cli.Context, fn func(ctx context.Context, mod *host.Module) error) error {
	if c.String("name") == "" {
		return cli.Exit("missing required flag --name", 2)
	}
	logger, err := newLogger(c.App.ErrWriter, c.String("log-level"), c.String("log-format"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	registry, err := hostfuncs.NewRegistry(
		hostfuncs.WithBundle(hostfuncs.RuntimeBundle()),
		hostfuncs.WithBundle(hostfuncs.EnvBundle(c.StringSlice("allow-env")...)),
		hostfuncs.WithMiddleware(hostfuncs.PanicRecoveryMiddleware(), hostfuncs.LoggingMiddleware(logger)),
	)
	if err != nil {
		return err
	}

	ctx := c.Context
	loader := host.NewLoader(
		host.WithLogger(logger),
		host.WithHostFunctions(registry),
		host.WithInterceptors(host.LoggingInterceptor(logger)),
	)
	defer func() {
		if cerr := loader.Close(context.WithoutCancel(ctx)); cerr != nil {
			logger.Warn("extbridge: close failed", "error", cerr)
		}
	}()

	mod, err := loader.Load(ctx, entities.ModuleSpec{
		Name:       c.String("name"),
		SearchDir:  c.String("dir"),
		EntryPoint: c.String("entry"),
	})
	if err != nil {
		return reportError(c, err)
	}
	if err := fn(ctx, mod); err != nil {
		return reportError(c, err)
	}
	return nil
}

// reportError prints the structured error and exits non-zero.
func reportError(c *cli.Context, err error) error {
	if errs.KindOf(err) == "" {
		return err
	}
	_ = printJSON(c.App.ErrWriter, errs.ToErrorDetail(err))
	return cli.Exit("", 1)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("invalid log format %q", format)
}
