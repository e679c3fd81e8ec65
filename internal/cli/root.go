// Package cli implements the graphctl commands.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Ratio1/graph_sdk_go/internal/logging"
	"github.com/Ratio1/graph_sdk_go/pkg/graph_sdk"
)

const (
	formatJSON = "json"
	formatText = "text"
)

type globalOptions struct {
	url        string
	apiKey     string
	configPath string
	mode       string
	format     string
	verbose    bool
}

// app carries what every subcommand needs once the root pre-run has resolved
// the configuration.
type app struct {
	opts    globalOptions
	logger  *zap.Logger
	clients *graph_sdk.Clients
}

// NewRootCmd builds the graphctl command tree.
func NewRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:           "graphctl",
		Short:         "Inspect and edit graph service stores and threads",
		Long:          "graphctl talks to the graph service REST API. Settings come from GRAPH_* environment variables, a config file or flags.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.opts.url, "url", "", "Service base URL (default: $GRAPH_API_URL)")
	flags.StringVar(&a.opts.apiKey, "api-key", "", "API key (default: $GRAPH_API_KEY)")
	flags.StringVarP(&a.opts.configPath, "config", "c", "", "Config file, YAML or TOML (default: $GRAPH_SDK_CONFIG)")
	flags.StringVar(&a.opts.mode, "mode", "", "Runtime mode: auto, http or mock")
	flags.StringVarP(&a.opts.format, "format", "f", formatJSON, "Output format: json or text")
	flags.BoolVarP(&a.opts.verbose, "verbose", "v", false, "Log requests at debug level")

	root.AddCommand(newStoreCmd(a), newThreadsCmd(a))
	return root
}

func (a *app) setup() error {
	switch a.opts.format {
	case formatJSON, formatText:
	default:
		return fmt.Errorf("unknown output format %q", a.opts.format)
	}

	var (
		cfg *graph_sdk.Config
		err error
	)
	if a.opts.configPath != "" {
		cfg, err = graph_sdk.LoadConfig(a.opts.configPath)
	} else {
		cfg, err = graph_sdk.ConfigFromEnv()
	}
	if err != nil {
		return err
	}
	if a.opts.url != "" {
		cfg.API.URL = a.opts.url
	}
	if a.opts.apiKey != "" {
		cfg.API.Key = a.opts.apiKey
	}
	if a.opts.mode != "" {
		cfg.Runtime.Mode = a.opts.mode
	}

	level := cfg.Logging.Level
	if a.opts.verbose {
		level = logging.Verbosity(true)
	}
	format := cfg.Logging.Format
	if format == "" {
		format = logging.FormatConsole
	}
	logger, err := logging.New(level, format)
	if err != nil {
		return err
	}
	a.logger = logger

	clients, err := graph_sdk.NewFromConfig(cfg, graph_sdk.WithLogger(logger))
	if err != nil {
		return err
	}
	a.clients = clients
	logger.Debug("clients ready",
		zap.String("mode", clients.Mode),
		zap.String("url", strings.TrimSpace(cfg.API.URL)))
	return nil
}
