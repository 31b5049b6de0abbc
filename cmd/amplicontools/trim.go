package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/dasnellings/ampliconTools/aligntrim"
	"github.com/dasnellings/ampliconTools/scheme"
	"github.com/vertgenlab/gonomics/exception"
)

func trimUsage(trimFlags *flag.FlagSet) {
	fmt.Print(
		"trim - Soft clip primer bases from aligned amplicon reads and normalise depth\n\n" +
			"Usage:\n" +
			"  amplicontools trim [options] -i input.bam -b scheme.primer.bed -o output.bam\n\n" +
			"Options:\n")
	trimFlags.PrintDefaults()
}

func runTrim(args []string) {
	var err error
	trimFlags := flag.NewFlagSet("trim", flag.ExitOnError)

	input := trimFlags.String("i", "", "Input bam file. Must be coordinate sorted.")
	output := trimFlags.String("o", "stdout", "Output bam file.")
	bed := trimFlags.String("b", "", "Primer scheme bed file.")
	report := trimFlags.String("report", "", "Write a per-read report to this tsv file.")
	normalise := trimFlags.Int("normalise", 0, "Cap retained depth per amplicon to this many reads. 0 disables normalisation.")
	strandAware := trimFlags.Bool("strand", false, "Count each read orientation separately when normalising so each strand gets its own depth ceiling.")
	maxDist := trimFlags.Int("maxPrimerDist", 100, "Maximum distance between a read edge and its primer for the read to be assigned to an amplicon.")
	minMapQ := trimFlags.Int("minMapQ", 20, "Minimum mapping quality of reads to be retained.")
	minLen := trimFlags.Int("minLength", 0, "Minimum read length to be retained. 0 disables.")
	maxLen := trimFlags.Int("maxLength", 0, "Maximum read length to be retained. 0 disables.")
	qualTrim := trimFlags.Int("qualTrim", 0, "Extend clipping past runs of bases below this quality at each read end. 0 disables.")
	start := trimFlags.Bool("start", false, "Clip to the outer primer boundary, leaving primer bases aligned.")
	removeIncorrectPairs := trimFlags.Bool("removeIncorrectPairs", false, "Drop reads whose two edges match primers of different amplicons.")
	noReadGroups := trimFlags.Bool("noReadGroups", false, "Do not tag retained reads with their primer pool as a read group.")
	plot := trimFlags.Bool("plot", false, "Plot retained depth per amplicon to stderr after the run.")
	verbose := trimFlags.Bool("v", false, "Log each trimming decision.")

	err = trimFlags.Parse(args)
	exception.PanicOnErr(err)
	trimFlags.Usage = func() { trimUsage(trimFlags) }

	if *input == "" || *bed == "" {
		trimFlags.Usage()
		errExit("\nERROR: must have inputs for -i and -b")
	}
	if *minMapQ < 0 || *minMapQ > 255 {
		errExit("ERROR: -minMapQ must be between 0 and 255")
	}
	if *qualTrim < 0 || *qualTrim > 255 {
		errExit("ERROR: -qualTrim must be between 0 and 255")
	}

	sch, err := scheme.ReadScheme(*bed)
	if err != nil {
		log.Fatalf("ERROR: %v\n", err)
	}

	rep := aligntrim.AlignTrim(*input, *output, *report, sch, aligntrim.Options{
		MaxPrimerDist:        *maxDist,
		MinMapQ:              uint8(*minMapQ),
		MinLength:            *minLen,
		MaxLength:            *maxLen,
		Normalise:            *normalise,
		StrandAware:          *strandAware,
		QualTrim:             *qualTrim,
		IncludePrimers:       *start,
		RemoveIncorrectPairs: *removeIncorrectPairs,
		WriteReadGroups:      !*noReadGroups,
		Verbose:              *verbose,
	})
	rep.WriteSummary(*plot)
}
