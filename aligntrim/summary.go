package aligntrim

import (
	"fmt"
	"log"
	"os"

	"github.com/guptarohit/asciigraph"
	"gonum.org/v1/gonum/stat"
)

// WriteSummary logs the outcome counters and per-amplicon depth
// statistics for a completed pass. When plot is true the retained depth
// per amplicon is drawn to stderr in scheme order, which makes amplicon
// dropouts easy to spot.
func (r *Report) WriteSummary(plot bool) {
	log.Printf("processed %d reads\n", r.Processed)
	log.Printf("  %d filtered out\n", r.FilteredOut)
	log.Printf("  %d with no primer match\n", r.NoPrimerMatch)
	log.Printf("  %d incorrectly paired\n", r.IncorrectPairs)
	log.Printf("  %d trimmed\n", r.Trimmed)
	log.Printf("  %d dropped fully trimmed\n", r.FullyTrimmed)
	log.Printf("  %d dropped by normalisation\n", r.NormalizationDropped)
	log.Printf("  %d written\n", r.Written)

	if len(r.Depths) == 0 {
		return
	}
	var dropouts int
	for i := range r.Depths {
		if r.Depths[i] == 0 {
			dropouts++
		}
	}
	log.Printf("retained depth across %d amplicons: mean %.1f, stddev %.1f, %d dropouts\n",
		len(r.Depths), stat.Mean(r.Depths, nil), stat.StdDev(r.Depths, nil), dropouts)

	if plot {
		fmt.Fprintln(os.Stderr, asciigraph.Plot(r.Depths,
			asciigraph.Height(10),
			asciigraph.Precision(0),
			asciigraph.Caption(fmt.Sprintf("retained reads per amplicon (%d-%d)", r.Amplicons[0], r.Amplicons[len(r.Amplicons)-1]))))
	}
}
