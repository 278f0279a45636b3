package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/kinfolio/dossier-cli/internal/model"
	"github.com/kinfolio/dossier-cli/internal/validate"
)

var redactCmd = &cobra.Command{
	Use:   "redact <pack.json>",
	Short: "Run a redaction pass over a pack file and print the audit trail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "redact: read %s", args[0])
		}

		pack, err := validate.Pack(data)
		if err != nil {
			return err
		}

		rulesPath, _ := cmd.Flags().GetString("rules")
		engine, err := initRedactor(rulesPath)
		if err != nil {
			return err
		}

		result := engine.Redact(pack)

		if len(result.Redactions) == 0 {
			fmt.Fprintln(os.Stderr, "No redactions.")
		} else {
			formatRedactions(os.Stdout, result.Redactions)
		}
		fmt.Printf("\n%d redaction(s), living indicators: %v\n", len(result.Redactions), result.HasLivingIndicators)

		out, _ := cmd.Flags().GetString("out")
		if out != "" {
			body, err := json.MarshalIndent(result.RedactedPack, "", "  ")
			if err != nil {
				return eris.Wrap(err, "redact: marshal redacted pack")
			}
			return eris.Wrapf(os.WriteFile(out, body, 0o644), "redact: write %s", out)
		}
		return nil
	},
}

// formatRedactions writes the audit trail as a table.
func formatRedactions(out io.Writer, redactions []model.Redaction) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SOURCE\tFIELD\tTYPE\tORIGINAL")
	_, _ = fmt.Fprintln(w, "------\t-----\t----\t--------")
	for _, r := range redactions {
		original := r.OriginalValue
		if len(original) > 40 {
			original = original[:37] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.SourceID, r.Field, r.Type, original)
	}
	_ = w.Flush()
}

func init() {
	redactCmd.Flags().String("rules", "", "yaml rules file overriding the default detection vocabulary")
	redactCmd.Flags().String("out", "", "write the redacted pack JSON to a file")
	rootCmd.AddCommand(redactCmd)
}
