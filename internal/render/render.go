// Package render turns a validated evidence pack into the raw markdown
// dossier. Rendering is pure and byte-deterministic: the store treats
// repeated renders of the same pack as cache-equivalent.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kinfolio/dossier-cli/internal/model"
)

// Document renders the pack into markdown. The pack must already have passed
// validation; Document does not re-validate.
func Document(pack *model.EvidencePack) string {
	var b strings.Builder

	writePersonHeader(&b, pack)
	writeCaptureMeta(&b, pack)

	sources := orderedSources(pack.Sources)
	if len(sources) > 0 {
		b.WriteString("## Sources\n\n")
	}
	for i, src := range sources {
		writeSource(&b, i+1, src)
	}

	return b.String()
}

func writePersonHeader(b *strings.Builder, pack *model.EvidencePack) {
	name := pack.Person.Name
	if name == "" {
		name = "Unknown Person"
	}
	fmt.Fprintf(b, "# %s\n\n", name)

	if pack.Person.FamilySearchID != "" {
		fmt.Fprintf(b, "**FamilySearch ID:** %s\n", pack.Person.FamilySearchID)
	}
	if pack.Person.BirthDate != "" {
		fmt.Fprintf(b, "**Born:** %s\n", pack.Person.BirthDate)
	}
	if pack.Person.DeathDate != "" {
		fmt.Fprintf(b, "**Died:** %s\n", pack.Person.DeathDate)
	}
	b.WriteString("\n")
}

func writeCaptureMeta(b *strings.Builder, pack *model.EvidencePack) {
	fmt.Fprintf(b, "_Captured %s", pack.CapturedAt)
	if pack.ExtractorVersion != "" {
		fmt.Fprintf(b, " by extractor %s", pack.ExtractorVersion)
	}
	fmt.Fprintf(b, " (run %s)._\n\n", pack.RunID)
}

// orderedSources sorts by orderIndex ascending, keeping the original array
// position as a stable tie-break.
func orderedSources(sources []model.Source) []model.Source {
	out := make([]model.Source, len(sources))
	copy(out, sources)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OrderIndex < out[j].OrderIndex
	})
	return out
}

func writeSource(b *strings.Builder, n int, src model.Source) {
	title := src.Title
	if title == "" {
		title = "Untitled Source"
	}
	fmt.Fprintf(b, "### %d. %s\n\n", n, title)

	// Absent optionals omit their line entirely; no empty placeholders.
	if src.SourceType != "" {
		fmt.Fprintf(b, "- **Type:** %s\n", src.SourceType)
	}
	if src.Date != "" {
		fmt.Fprintf(b, "- **Date:** %s\n", src.Date)
	}
	if src.Citation != "" {
		fmt.Fprintf(b, "- **Citation:** %s\n", src.Citation)
	}
	if src.WebPageURL != "" {
		fmt.Fprintf(b, "- **URL:** %s\n", src.WebPageURL)
	}
	if src.AttachedBy != "" {
		if src.AttachedAt != "" {
			fmt.Fprintf(b, "- **Attached by:** %s (%s)\n", src.AttachedBy, src.AttachedAt)
		} else {
			fmt.Fprintf(b, "- **Attached by:** %s\n", src.AttachedBy)
		}
	}
	if src.ReasonAttached != "" {
		fmt.Fprintf(b, "- **Reason attached:** %s\n", src.ReasonAttached)
	}
	if len(src.Tags) > 0 {
		fmt.Fprintf(b, "- **Tags:** %s\n", strings.Join(src.Tags, ", "))
	}
	b.WriteString("\n")

	if len(src.Indexed.Fields) > 0 {
		b.WriteString("#### Indexed Fields\n\n")
		for _, f := range src.Indexed.Fields {
			fmt.Fprintf(b, "- **%s:** %s\n", f.Label, f.Value)
		}
		b.WriteString("\n")
	}

	if len(src.Indexed.TextBlocks) > 0 {
		b.WriteString("#### Extracted Text\n\n")
		for _, block := range src.Indexed.TextBlocks {
			fmt.Fprintf(b, "> %s\n", block)
		}
		b.WriteString("\n")
	}

	if src.RawText != "" {
		b.WriteString("#### Raw Text\n\n")
		b.WriteString("```\n")
		b.WriteString(src.RawText)
		if !strings.HasSuffix(src.RawText, "\n") {
			b.WriteString("\n")
		}
		b.WriteString("```\n\n")
	}
}
