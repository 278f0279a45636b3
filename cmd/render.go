package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/kinfolio/dossier-cli/internal/render"
)

var renderCmd = &cobra.Command{
	Use:   "render <person-id> [run-id]",
	Short: "Re-render the raw dossier from a stored pack",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		personID := args[0]
		runID := ""
		if len(args) == 2 {
			runID = args[1]
		}
		if runID == "" {
			latest, err := st.GetLatestRun(ctx, personID)
			if err != nil {
				return err
			}
			if latest == nil {
				return eris.Errorf("render: person %s has no runs", personID)
			}
			runID = latest.RunID
		}

		pack, err := st.GetPack(ctx, personID, runID)
		if err != nil {
			return err
		}
		if pack == nil {
			return eris.Errorf("render: no pack stored for person %s run %s", personID, runID)
		}

		markdown := render.Document(pack)

		out, _ := cmd.Flags().GetString("out")
		if out != "" {
			return eris.Wrapf(os.WriteFile(out, []byte(markdown), 0o644), "render: write %s", out)
		}
		fmt.Print(markdown)
		return nil
	},
}

func init() {
	renderCmd.Flags().String("out", "", "write markdown to a file instead of stdout")
	rootCmd.AddCommand(renderCmd)
}
