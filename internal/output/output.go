// Package output renders enrichment results for the command line.
package output

import (
	"fmt"
	"io"
	"strings"

	"faunadex/internal/enrich"
	"faunadex/internal/taxonomy"
)

// PrintEnriched writes a human-readable rendering of an enriched taxon.
func PrintEnriched(w io.Writer, e *enrich.EnrichedTaxon) {
	fmt.Fprintf(w, "#%d %s", e.Taxon.ID, e.Taxon.DisplayName())
	if e.Taxon.Rank != "" {
		fmt.Fprintf(w, " (%s)", e.Taxon.Rank)
	}
	fmt.Fprintln(w)

	if common := e.Taxon.CommonName("en"); common != "" && common != e.Taxon.DisplayName() {
		fmt.Fprintf(w, "Common name: %s\n", common)
	}

	if e.Offline {
		fmt.Fprintln(w, "\n[offline: showing cached data only]")
	}

	if p := e.Profile; p != nil && p.Profile != nil {
		fmt.Fprintln(w)
		lineage := joinNonEmpty(" > ",
			p.Profile.Kingdom, p.Profile.Phylum, p.Profile.Class,
			p.Profile.Order, p.Profile.Family, p.Profile.Genus)
		if lineage != "" {
			fmt.Fprintf(w, "Lineage: %s\n", lineage)
		}
		if p.Profile.Status != "" {
			fmt.Fprintf(w, "Status:  %s\n", p.Profile.Status)
		}
		if p.Profile.VernacularName != "" {
			fmt.Fprintf(w, "Known as: %s\n", p.Profile.VernacularName)
		}
	}

	if s := e.Summary; s != nil && s.Summary != nil {
		fmt.Fprintf(w, "\n%s\n", s.Summary.Extract)
		if s.Summary.PageURL != "" {
			fmt.Fprintf(w, "Source: %s\n", s.Summary.PageURL)
		}
	}

	if m := e.Media; m != nil && m.Media != nil && len(m.Media.Items) > 0 {
		fmt.Fprintf(w, "\nPhotos (%d):\n", len(m.Media.Items))
		for _, item := range m.Media.Items {
			fmt.Fprintf(w, "  %s", item.URL)
			if item.Attribution.AuthorName != "" {
				fmt.Fprintf(w, "  [%s]", item.Attribution.AuthorName)
			}
			fmt.Fprintln(w)
		}
	}
}

// PrintTaxa writes one line per taxon, for search results.
func PrintTaxa(w io.Writer, taxa []taxonomy.Taxon) {
	for i := range taxa {
		t := &taxa[i]
		fmt.Fprintf(w, "#%-10d %-40s %s", t.ID, t.DisplayName(), t.Rank)
		if t.Synonym {
			fmt.Fprint(w, " (synonym)")
		}
		fmt.Fprintln(w)
	}
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
