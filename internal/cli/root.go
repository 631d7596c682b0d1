// Package cli implements the piisweep command: one-shot strip, detect and
// redact calls against the PII Sweep API, plus a gateway server.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gonkalabs/piisweep-go"
	"github.com/gonkalabs/piisweep-go/internal/config"
	"github.com/gonkalabs/piisweep-go/internal/logging"
)

// Exit codes returned by ExitCode.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitServiceError = 2
	ExitPIIFound     = 3
)

// ErrPIIFound is returned by `detect --fail-on-pii` when the text contains PII.
var ErrPIIFound = errors.New("PII found")

// app is the state shared by all subcommands, built once flags are parsed.
type app struct {
	cfg    *config.Cfg
	client *piisweep.Client
	logger *slog.Logger
}

type rootFlags struct {
	apiKey   string
	baseURL  string
	types    string
	logLevel string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	var (
		flags rootFlags
		a     app
	)

	root := &cobra.Command{
		Use:   "piisweep",
		Short: "Detect and strip personal data using the PII Sweep API",
		Long: `piisweep sends text to the PII Sweep API and prints the result as JSON.

Configuration is read from the environment (and a .env file in the current
directory), then overridden by flags:

  PIISWEEP_API_KEY    API key (required)
  PIISWEEP_BASE_URL   service origin (default https://piisweep.com)
  PIISWEEP_TYPES      default categories, e.g. "email,phone"
  LOG_LEVEL           debug, info, warn or error
  PORT                listen port for "serve" (default 8080)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logging.New(cmd.ErrOrStderr(), cfg.LogLevel)
			a.client = piisweep.NewWithOptions(piisweep.Options{
				APIKey:  cfg.APIKey,
				BaseURL: cfg.BaseURL,
			})
			a.logger.Debug("configured", "base_url", a.client.BaseURL(), "types", cfg.Types)
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.apiKey, "api-key", "", "API key (overrides PIISWEEP_API_KEY)")
	pf.StringVar(&flags.baseURL, "base-url", "", "service origin (overrides PIISWEEP_BASE_URL)")
	pf.StringVarP(&flags.types, "types", "t", "", "comma-separated categories: personnummer,phone,email,name")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	root.AddCommand(
		newStripCmd(&a),
		newDetectCmd(&a),
		newRedactCmd(&a),
		newServeCmd(&a),
	)
	return root
}

// loadConfig merges the environment with flags and validates the result.
func loadConfig(flags rootFlags) (*config.Cfg, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if flags.apiKey != "" {
		cfg.APIKey = flags.apiKey
	}
	if flags.baseURL != "" {
		cfg.BaseURL = flags.baseURL
	}
	if flags.types != "" {
		types, err := config.ParseTypes(flags.types)
		if err != nil {
			return nil, fmt.Errorf("--types: %w", err)
		}
		cfg.Types = types
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// ExitCode maps an Execute error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, ErrPIIFound) {
		return ExitPIIFound
	}
	var apiErr *piisweep.Error
	if errors.As(err, &apiErr) {
		return ExitServiceError
	}
	return ExitFailure
}

// readText takes the text from args, or from stdin when there are none or
// the only arg is "-".
func readText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(b), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
