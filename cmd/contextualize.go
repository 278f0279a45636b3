package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/kinfolio/dossier-cli/internal/dossier"
)

var contextualizeCmd = &cobra.Command{
	Use:   "contextualize",
	Short: "Manage AI-assisted contextualized dossiers",
}

var contextualizeShowCmd = &cobra.Command{
	Use:   "show <person-id> [run-id]",
	Short: "Show the contextualized dossier state for a run",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		wf := dossier.NewWorkflow(st, nil, nil)

		runID := ""
		if len(args) == 2 {
			runID = args[1]
		}
		state, err := wf.Get(ctx, args[0], runID)
		if err != nil {
			return err
		}

		switch state.Status {
		case dossier.StatusGenerated:
			fmt.Print(state.Markdown)
		case dossier.StatusNotGenerated:
			fmt.Fprintf(os.Stderr, "status: %s (run %s)\n", state.Status, state.RunID)
		default:
			fmt.Fprintf(os.Stderr, "status: %s\n", state.Status)
		}
		return nil
	},
}

var contextualizeGenerateCmd = &cobra.Command{
	Use:   "generate <person-id> [run-id]",
	Short: "Generate a contextualized draft via the external model",
	Long:  "Explicitly invokes the summarization model on the run's dossier. The draft is printed (or saved with --save); nothing is persisted otherwise.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		summarizer, err := initSummarizer()
		if err != nil {
			return err
		}

		useRedacted, _ := cmd.Flags().GetBool("redacted")
		engine, err := initRedactor("")
		if err != nil {
			return err
		}

		wf := dossier.NewWorkflow(st, summarizer, engine)

		personID := args[0]
		runID := ""
		if len(args) == 2 {
			runID = args[1]
		}

		draft, err := wf.Generate(ctx, personID, runID, useRedacted)
		if err != nil {
			return err
		}

		save, _ := cmd.Flags().GetBool("save")
		if save {
			if runID == "" {
				latest, err := st.GetLatestRun(ctx, personID)
				if err != nil {
					return err
				}
				if latest == nil {
					return dossier.ErrNoRuns
				}
				runID = latest.RunID
			}
			if err := wf.Save(ctx, personID, runID, draft); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "saved contextualized dossier for run %s\n", runID)
			return nil
		}

		fmt.Print(draft)
		return nil
	},
}

var contextualizeSaveCmd = &cobra.Command{
	Use:   "save <person-id> <run-id> <file.md>",
	Short: "Save an edited contextualized dossier verbatim",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		body, err := os.ReadFile(args[2])
		if err != nil {
			return eris.Wrapf(err, "contextualize save: read %s", args[2])
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		wf := dossier.NewWorkflow(st, nil, nil)
		if err := wf.Save(ctx, args[0], args[1], string(body)); err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "saved contextualized dossier for run %s\n", args[1])
		return nil
	},
}

func init() {
	contextualizeGenerateCmd.Flags().Bool("redacted", false, "redact the pack before sending it to the model")
	contextualizeGenerateCmd.Flags().Bool("save", false, "persist the generated draft for the run")

	contextualizeCmd.AddCommand(contextualizeShowCmd)
	contextualizeCmd.AddCommand(contextualizeGenerateCmd)
	contextualizeCmd.AddCommand(contextualizeSaveCmd)
	rootCmd.AddCommand(contextualizeCmd)
}
