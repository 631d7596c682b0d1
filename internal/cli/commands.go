package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gonkalabs/piisweep-go/internal/sanitize"
	"github.com/gonkalabs/piisweep-go/internal/sanitize/piiclassifier"
)

func newStripCmd(a *app) *cobra.Command {
	var textOnly bool

	cmd := &cobra.Command{
		Use:   "strip [text...]",
		Short: "Replace PII in text with placeholders",
		Long: `Send text to the strip endpoint and print the result.

Text is taken from the arguments, or from stdin when none are given or the
only argument is "-".

Examples:
  piisweep strip "Ring Anna på 070-123 45 67"
  cat mail.txt | piisweep strip --text-only -t email,phone`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(cmd, args)
			if err != nil {
				return err
			}
			res, err := a.client.Strip(cmd.Context(), text, a.cfg.Types...)
			if err != nil {
				return err
			}
			a.logger.Debug("stripped", "detections", len(res.Detections), "ms", res.ProcessingTimeMS)
			if textOnly {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), res.StrippedText)
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().BoolVar(&textOnly, "text-only", false, "print only the stripped text")
	return cmd
}

func newDetectCmd(a *app) *cobra.Command {
	var failOnPII bool

	cmd := &cobra.Command{
		Use:   "detect [text...]",
		Short: "Report PII found in text without changing it",
		Long: `Send text to the detect endpoint and print the result.

With --fail-on-pii the command exits with status 3 when PII is found, which
makes it usable as a pre-commit or CI check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(cmd, args)
			if err != nil {
				return err
			}
			res, err := a.client.Detect(cmd.Context(), text, a.cfg.Types...)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if failOnPII && res.PIIFound {
				return ErrPIIFound
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&failOnPII, "fail-on-pii", false, "exit with status 3 when PII is found")
	return cmd
}

func newRedactCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "redact [text...]",
		Short: "Replace PII with reversible tokens",
		Long: `Detect PII and replace each distinct value with a token such as
«EMAIL_000001». The output lists every token with its original value so the
text can be restored after it has been processed elsewhere.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(cmd, args)
			if err != nil {
				return err
			}
			s := sanitize.New(a.logger, piiclassifier.New(a.client, a.cfg.Types...))
			out, tm, err := s.Redact(cmd.Context(), text)
			if err != nil {
				return err
			}
			redactions := tm.Redactions()
			if redactions == nil {
				redactions = []sanitize.Redaction{}
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"text":       out,
				"redactions": redactions,
			})
		},
	}
}
