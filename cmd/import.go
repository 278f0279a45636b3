package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kinfolio/dossier-cli/internal/redact"
	"github.com/kinfolio/dossier-cli/internal/render"
	"github.com/kinfolio/dossier-cli/internal/store"
	"github.com/kinfolio/dossier-cli/internal/validate"
)

var importCmd = &cobra.Command{
	Use:   "import <pack.json> [pack.json...]",
	Short: "Import evidence pack files",
	Long:  "Validates each evidence pack, optionally redacts it, renders the raw dossier, and persists both under (personId, runId).",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		dir, _ := cmd.Flags().GetString("dir")
		if len(args) == 0 && dir == "" {
			return eris.New("provide pack files or --dir")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		doRedact, _ := cmd.Flags().GetBool("redact")
		var engine *redact.Engine
		if doRedact {
			engine, err = initRedactor("")
			if err != nil {
				return err
			}
		}

		files := args
		if dir != "" {
			found, err := filepath.Glob(filepath.Join(dir, "*.json"))
			if err != nil {
				return eris.Wrapf(err, "import: scan %s", dir)
			}
			files = append(files, found...)
		}
		if len(files) == 0 {
			return eris.New("import: no pack files found")
		}

		concurrency, _ := cmd.Flags().GetInt("concurrency")
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)

		for _, path := range files {
			g.Go(func() error {
				return importPackFile(gctx, st, engine, path)
			})
		}
		return g.Wait()
	},
}

// importPackFile runs one pack through validate → (redact) → render → store.
func importPackFile(ctx context.Context, st store.Store, engine *redact.Engine, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "import: read %s", path)
	}

	pack, err := validate.Pack(data)
	if err != nil {
		return eris.Wrapf(err, "import: %s", path)
	}

	personID := pack.Person.FamilySearchID
	if personID == "" {
		return eris.Errorf("import: %s: person.familySearchId is required", path)
	}

	if engine != nil {
		result := engine.Redact(pack)
		pack = result.RedactedPack
		zap.L().Info("pack redacted",
			zap.String("person_id", personID),
			zap.String("run_id", pack.RunID),
			zap.Int("redactions", len(result.Redactions)),
			zap.Bool("living_indicators", result.HasLivingIndicators),
		)
	}

	if err := st.SavePack(ctx, personID, pack.RunID, pack); err != nil {
		return err
	}
	if err := st.SaveRawDocument(ctx, personID, pack.RunID, render.Document(pack)); err != nil {
		return err
	}

	zap.L().Info("pack imported",
		zap.String("person_id", personID),
		zap.String("run_id", pack.RunID),
		zap.Int("sources", len(pack.Sources)),
	)
	fmt.Printf("imported %s: person %s run %s (%d sources)\n", filepath.Base(path), personID, pack.RunID, len(pack.Sources))
	return nil
}

func init() {
	importCmd.Flags().Bool("redact", false, "redact personally identifying values before persisting")
	importCmd.Flags().String("dir", "", "import every *.json pack in a directory")
	importCmd.Flags().Int("concurrency", 4, "max packs imported concurrently")
	rootCmd.AddCommand(importCmd)
}
