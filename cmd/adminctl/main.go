package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	admin "github.com/goliatone/go-admin"
	httpadapter "github.com/goliatone/go-admin/internal/adapters/http"
	"github.com/goliatone/go-admin/schema/openapi"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}
	if err := rootCommand().Run(context.Background(), args); err != nil {
		log.Fatal(err)
	}
}

func rootCommand() *cli.Command {
	return &cli.Command{
		Name:  "adminctl",
		Usage: "Resolve and serve admin configuration",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "schema", Usage: "directory of CUE model definitions", Sources: cli.EnvVars("ADMIN_SCHEMA"), Required: true},
			&cli.StringFlag{Name: "config", Usage: "base admin YAML document", Sources: cli.EnvVars("ADMIN_CONFIG")},
			&cli.StringFlag{Name: "override", Usage: "admin YAML document layered over --config"},
			&cli.StringFlag{Name: "policy", Usage: "casbin policy CSV gating models", Sources: cli.EnvVars("ADMIN_POLICY")},
			&cli.StringFlag{Name: "access-mode", Value: "enforce", Usage: "enforce, shadow or disabled"},
		},
		Commands: []*cli.Command{
			serveCommand(),
			inspectCommand(),
			navCommand(),
		},
	}
}

func settingsFrom(c *cli.Command) settings {
	return settings{
		schemaDir:    c.String("schema"),
		configPath:   c.String("config"),
		overridePath: c.String("override"),
		policyPath:   c.String("policy"),
		accessMode:   c.String("access-mode"),
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the admin view models over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: ":8080", Usage: "HTTP listen address", Sources: cli.EnvVars("ADMIN_ADDR")},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := log.New(os.Stderr, "adminctl ", log.LstdFlags)
			cfg := settingsFrom(c)
			reg, err := cfg.build(admin.WithLogger(logger))
			if err != nil {
				return err
			}
			return runServer(ctx, c.String("addr"), reg, cfg, logger)
		},
	}
}

func runServer(ctx context.Context, addr string, reg *admin.Registry, cfg settings, logger *log.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           httpadapter.NewRouter(reg, httpadapter.WithLogger(logger)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("server listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	for {
		select {
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				if err := cfg.reload(reg); err != nil {
					logger.Printf("reload failed, keeping snapshot %s: %v", reg.Snapshot().ID, err)
				} else {
					logger.Printf("reloaded configuration as snapshot %s", reg.Snapshot().ID)
				}
				continue
			}
			logger.Printf("received signal %s, shutting down", sig)
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		case err := <-errCh:
			if err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		}
	}
}

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Print the resolved section of a model",
		ArgsUsage: "<model>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "section", Value: string(admin.SectionList), Usage: "section to resolve"},
			&cli.StringFlag{Name: "field", Usage: "resolve a single field"},
			&cli.StringFlag{Name: "trace", Usage: "with --field, trace one attribute (label, help, visible, required)"},
			&cli.BoolFlag{Name: "openapi", Usage: "print the section as an OpenAPI document"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			model := c.Args().First()
			if model == "" {
				return fmt.Errorf("inspect: model argument is required")
			}
			section, err := admin.ParseSectionKind(c.String("section"))
			if err != nil {
				return err
			}
			reg, err := settingsFrom(c).build()
			if err != nil {
				return err
			}
			out, err := inspect(reg, admin.ModelID(model), section, c.String("field"), c.String("trace"), c.Bool("openapi"))
			if err != nil {
				return err
			}
			return printJSON(c.Root().Writer, out)
		},
	}
}

func inspect(reg *admin.Registry, model admin.ModelID, section admin.SectionKind, field, attribute string, asOpenAPI bool) (any, error) {
	view := reg.Lookup(model, section)
	switch {
	case asOpenAPI:
		return openapi.ForView(view)
	case field != "" && attribute != "":
		_, trace, err := view.ResolveWithTrace(field, attribute)
		return trace, err
	case field != "":
		return view.Resolve(field)
	default:
		return view.Resolved()
	}
}

func navCommand() *cli.Command {
	return &cli.Command{
		Name:  "nav",
		Usage: "Print the navigation tab bar",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Usage: "principal handed to the authorizer"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			reg, err := settingsFrom(c).build()
			if err != nil {
				return err
			}
			nav, err := reg.Navigation(ctx, c.String("user"))
			if err != nil {
				return err
			}
			return printJSON(c.Root().Writer, nav.Items())
		},
	}
}

func printJSON(w io.Writer, v any) error {
	if w == nil {
		w = os.Stdout
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
