package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/matiasleandrokruk/zigmirror/internal/api"
	"github.com/matiasleandrokruk/zigmirror/internal/app"
	"github.com/matiasleandrokruk/zigmirror/internal/infra/config"
	"github.com/matiasleandrokruk/zigmirror/internal/infra/logging"
	"github.com/matiasleandrokruk/zigmirror/internal/version"
)

type rootOptions struct {
	configPath  string
	layout      string
	host        string
	assetDir    string
	onReadError string
	metricsAddr string
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &rootOptions{layout: string(api.LayoutUnified)}

	root := &cobra.Command{
		Use:           "zigmirror",
		Short:         "Serve zig and zls index and artifact files over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.SetOut(out)
	root.SetErr(out)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err}
	})

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&opts.layout, "layout", opts.layout, "listener layout: unified or split")

	root.AddCommand(
		newServeCmd(opts),
		newRoutesCmd(opts),
		newVersionCmd(),
	)
	return root
}

// noArgs is cobra.NoArgs reported as a usage error.
func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return &usageError{err}
	}
	return nil
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the mirror listeners",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			layout, cfg, err := resolve(opts, cmd.Flags())
			if err != nil {
				return err
			}

			logger, err := logging.New(cfg.LogFormat)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if err := app.New(cfg, logger).Run(cmd.Context(), layout); err != nil {
				logger.Error("mirror stopped", zap.Error(err))
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.host, "host", "", "interface to listen on (overrides config)")
	cmd.Flags().StringVar(&opts.assetDir, "asset-dir", "", "directory holding the asset files (overrides config)")
	cmd.Flags().StringVar(&opts.onReadError, "on-read-error", "", "read failure policy: status or abort (overrides config)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "address for /metrics and /healthz (overrides config)")
	return cmd
}

func newRoutesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "routes [path...]",
		Short: "Print the route tables, or which route serves each path",
		RunE: func(cmd *cobra.Command, args []string) error {
			layout, cfg, err := resolve(opts, cmd.Flags())
			if err != nil {
				return err
			}

			listeners, err := api.Listeners(layout, cfg, api.Deps{})
			if err != nil {
				return err
			}
			printRoutes(cmd.OutOrStdout(), listeners, args)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  noArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String()) //nolint:errcheck
		},
	}
}

// resolve loads the config, applies explicitly set flags on top of it and
// validates the result for the chosen layout.
func resolve(opts *rootOptions, flags *pflag.FlagSet) (api.Layout, config.Config, error) {
	layout, err := api.ParseLayout(opts.layout)
	if err != nil {
		return "", config.Config{}, &usageError{err}
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return "", config.Config{}, configError(err)
	}

	if flags.Changed("host") {
		cfg.Host = opts.host
	}
	if flags.Changed("asset-dir") {
		cfg.AssetDir = opts.assetDir
	}
	if flags.Changed("on-read-error") {
		cfg.OnReadError = config.ReadErrorPolicy(opts.onReadError)
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = opts.metricsAddr
	}
	validate := cfg.Validate
	if layout == api.LayoutSplit {
		validate = cfg.ValidateSplit
	}
	if err := validate(); err != nil {
		return "", config.Config{}, configError(err)
	}
	return layout, cfg, nil
}

// configError reports invalid settings as usage errors. Other failures, such
// as an unreadable config file, stay runtime errors.
func configError(err error) error {
	if errors.Is(err, config.ErrInvalidConfig) {
		return &usageError{err}
	}
	return err
}

func printRoutes(out io.Writer, listeners []api.Listener, paths []string) {
	for _, l := range listeners {
		fmt.Fprintf(out, "%s :%d\n", l.Name, l.Port) //nolint:errcheck
		if len(paths) == 0 {
			for _, r := range l.Table.Routes() {
				fmt.Fprintf(out, "  %-6s  %-22s  %s\n", r.Kind, r.Path, r.Name) //nolint:errcheck
			}
			fmt.Fprintf(out, "  %-6s  %-22s  %d %s\n", "*", "(anything else)", l.FallbackStatus, l.FallbackBody) //nolint:errcheck
			continue
		}

		for _, p := range paths {
			if r, ok := l.Table.Lookup(p); ok {
				fmt.Fprintf(out, "  %s -> %s\n", p, r.Name) //nolint:errcheck
			} else {
				fmt.Fprintf(out, "  %s -> %d %s\n", p, l.FallbackStatus, l.FallbackBody) //nolint:errcheck
			}
		}
	}
}
