package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/kinfolio/dossier-cli/internal/model"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect extraction run history",
}

var runsListCmd = &cobra.Command{
	Use:   "list <person-id>",
	Short: "List runs for a person, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		personID := args[0]

		person, err := st.GetPerson(ctx, personID)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}
		if person != nil {
			header := person.Name
			if person.BirthDate != "" || person.DeathDate != "" {
				header = fmt.Sprintf("%s (%s–%s)", person.Name, person.BirthDate, person.DeathDate)
			}
			fmt.Println(header)
		}

		runs, err := st.ListRuns(ctx, personID)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

var runsLatestCmd = &cobra.Command{
	Use:   "latest <person-id>",
	Short: "Show the most recent run for a person",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetLatestRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs latest")
		}
		if run == nil {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, []model.Run{*run})
		return nil
	},
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RUN_ID\tCAPTURED\tPACK\tRAW\tCONTEXTUALIZED")
	_, _ = fmt.Fprintln(w, "------\t--------\t----\t---\t--------------")
	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.RunID,
			r.CapturedAt,
			yesNo(r.HasPack),
			yesNo(r.HasRawDocument),
			yesNo(r.HasContextualizedDocument),
		)
	}
	_ = w.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}

func init() {
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsLatestCmd)
	rootCmd.AddCommand(runsCmd)
}
