// ABOUTME: Entry point for the dfconsole admin console and CLI.
// ABOUTME: Wires configuration, logging, and the platform client into cobra commands.

package main

import (
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/2389/dfconsole/internal/config"
	"github.com/2389/dfconsole/internal/dfapi"
	"github.com/2389/dfconsole/internal/logging"
)

// app carries what every command needs once the configuration is loaded.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	out    io.Writer
	errOut io.Writer
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		printError(root.ErrOrStderr(), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var noColor bool

	rootCmd := &cobra.Command{
		Use:   "dfconsole",
		Short: "Admin console for a DreamFactory platform",
		Long: `dfconsole administers a DreamFactory platform through its system REST API.

It serves a web console and offers the same resource tables on the command line:
  • users, admins, roles, apps
  • services, scheduler, event scripts
  • email templates, service reports, rate limits

Quick Start:
  export DF_BASE_URL=http://localhost/api/v2
  export DF_SESSION_TOKEN=...
  dfconsole list users        # Print the first page of users
  dfconsole serve             # Start the console on port 8080

Environment Variables:
  DF_BASE_URL         Platform API root (default: http://localhost/api/v2)
  DF_API_KEY          Application API key
  DF_SESSION_TOKEN    Admin session token used when a request carries none
  DF_CURL             Log every platform request as a curl command
  OPENAI_API_KEY      Enable AI drafting of email templates`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				color.NoColor = true
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logger
			a.out = cmd.OutOrStdout()
			a.errOut = cmd.ErrOrStderr()
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		newServeCmd(a),
		newResourcesCmd(a),
		newListCmd(a),
		newGetCmd(a),
		newDeleteCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newLicenseCmd(a),
	)
	return rootCmd
}

// newClient builds the platform client. When rec is non-nil every call is
// recorded through the logging transport.
func newClient(cfg config.Config, logger *zap.Logger, rec logging.Recorder) *dfapi.Client {
	opts := []dfapi.Option{
		dfapi.WithAPIKey(cfg.APIKey),
		dfapi.WithSessionToken(cfg.SessionToken),
		dfapi.WithTimeout(cfg.Timeout),
		dfapi.WithLogger(logger),
		dfapi.WithCurl(cfg.Curl),
	}
	if rec != nil {
		opts = append(opts, dfapi.WithTransport(logging.NewTransport(http.DefaultTransport, rec, logger)))
	}
	return dfapi.New(cfg.BaseURL, opts...)
}

// printError prints err in red, with the platform's field errors when present.
func printError(w io.Writer, err error) {
	red := color.New(color.FgRed, color.Bold)
	red.Fprintf(w, "Error: %v\n", err)
	if details := errorDetails(err); details != "" {
		color.New(color.FgRed).Fprintln(w, details)
	}
}

func errorDetails(err error) string {
	var apiErr *dfapi.Error
	if !errors.As(err, &apiErr) {
		return ""
	}
	if fields := apiErr.FieldErrors(); len(fields) > 0 {
		return dfapi.FormatFieldErrors(fields)
	}
	return ""
}
