package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/go-wms/internal/app"
	"github.com/samvad-hq/go-wms/internal/config"
	"github.com/samvad-hq/go-wms/internal/logger"
	"github.com/samvad-hq/go-wms/pkg/httpclient"
	"github.com/samvad-hq/go-wms/pkg/wms"
	"github.com/spf13/cobra"
)

// deps carries what the subcommands share once config and logging are up.
type deps struct {
	cfg *config.Config
	log logger.Logger
}

// closeLogger flushes the zap logger when run returns.
var closeLogger = logger.Close

func run(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer closeLogger()

	d := &deps{}
	root := newRootCmd(d)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCmd(d *deps) *cobra.Command {
	root := &cobra.Command{
		Use:           "wms",
		Short:         "Query OGC Web Map Service endpoints",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log, err := logger.Init(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			d.cfg = cfg
			d.log = log
			return nil
		},
	}

	root.AddCommand(newCapabilitiesCmd(d), newMapCmd(d), newProbeCmd(d))
	return root
}

func (d *deps) client(baseURL string) (*wms.Client, error) {
	headers := map[string]string{}
	if d.cfg.UserAgent != "" {
		headers["User-Agent"] = d.cfg.UserAgent
	}
	return wms.New(baseURL,
		wms.WithHTTPClient(httpclient.NewRestyClient(d.cfg.RequestTimeout)),
		wms.WithHeaders(headers),
		wms.WithLogger(d.log),
	)
}

func newCapabilitiesCmd(d *deps) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "capabilities <base-url>",
		Short: "Issue GetCapabilities and print the service name and title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := d.client(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			var handleErr error
			err = client.GetCapabilities(cmd.Context(), func(resp wms.Response) {
				handleErr = printCapabilities(out, resp, raw)
			})
			if err != nil {
				return err
			}
			return handleErr
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print the response body instead of the decoded service")
	return cmd
}

func printCapabilities(out io.Writer, resp wms.Response, raw bool) error {
	if raw {
		_, err := out.Write(resp.Body())
		return err
	}

	fmt.Fprintf(out, "status: %d\n", resp.StatusCode())
	caps, err := wms.ParseCapabilities(resp)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "name:   %s\ntitle:  %s\n", caps.Service.Name, caps.Service.Title)
	return nil
}

func newMapCmd(d *deps) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "map <base-url>",
		Short: "Issue GetMap and write the response body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := d.client(args[0])
			if err != nil {
				return err
			}

			var handleErr error
			err = client.GetMap(cmd.Context(), func(resp wms.Response) {
				handleErr = writeBody(cmd.OutOrStdout(), output, resp, d.log)
			})
			if err != nil {
				return err
			}
			return handleErr
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write the body to (default stdout)")
	return cmd
}

func writeBody(stdout io.Writer, path string, resp wms.Response, log logger.Logger) error {
	if path == "" {
		_, err := stdout.Write(resp.Body())
		return err
	}
	if err := os.WriteFile(path, resp.Body(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	log.InfoObj("map written", "map_output", map[string]any{
		"path":         path,
		"status_code":  resp.StatusCode(),
		"content_type": resp.Header().Get("Content-Type"),
		"bytes":        len(resp.Body()),
	})
	return nil
}

func newProbeCmd(d *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Probe every endpoint in the endpoints file once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d.log.InfoObj("prober starting", "config", d.cfg)

			prober, err := app.NewProber(cmd.Context(), d.cfg, d.log)
			if err != nil {
				d.log.ErrorObj("failed to initialize prober", "error", err)
				return err
			}
			if err := prober.Run(cmd.Context()); err != nil {
				return fmt.Errorf("probe run: %w", err)
			}
			return nil
		},
	}
}
