package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/dasnellings/ampliconTools/aligntrim"
	"github.com/dasnellings/ampliconTools/scheme"
)

func usage() {
	fmt.Print(
		"aligntrim - Soft clip primer bases from aligned amplicon reads and normalise depth.\n" +
			"Usage:\n" +
			"aligntrim [options] -i input.bam -b scheme.primer.bed > output.bam\n\n")
	flag.PrintDefaults()
}

func main() {
	input := flag.String("i", "", "Input bam file. Must be coordinate sorted.")
	output := flag.String("o", "stdout", "Output bam file.")
	bed := flag.String("b", "", "Primer scheme bed file.")
	report := flag.String("report", "", "Write a per-read report to this tsv file.")
	normalise := flag.Int("normalise", 0, "Cap retained depth per amplicon to this many reads. 0 disables normalisation.")
	strandAware := flag.Bool("strand", false, "Count each read orientation separately when normalising.")
	maxDist := flag.Int("maxPrimerDist", 100, "Maximum distance between a read edge and its primer for the read to be assigned to an amplicon.")
	minMapQ := flag.Int("minMapQ", 20, "Minimum mapping quality of reads to be retained.")
	qualTrim := flag.Int("qualTrim", 0, "Extend clipping past runs of bases below this quality at each read end. 0 disables.")
	flag.Parse()

	if *input == "" || *bed == "" {
		usage()
		log.Fatal("ERROR: Must input a coordinate sorted bam file and a primer scheme bed file.")
	}
	if *minMapQ < 0 || *minMapQ > 255 {
		log.Fatal("ERROR: -minMapQ must be between 0 and 255")
	}
	if *qualTrim < 0 || *qualTrim > 255 {
		log.Fatal("ERROR: -qualTrim must be between 0 and 255")
	}

	sch, err := scheme.ReadScheme(*bed)
	if err != nil {
		log.Fatalf("ERROR: %v\n", err)
	}

	rep := aligntrim.AlignTrim(*input, *output, *report, sch, aligntrim.Options{
		MaxPrimerDist:   *maxDist,
		MinMapQ:         uint8(*minMapQ),
		Normalise:       *normalise,
		StrandAware:     *strandAware,
		QualTrim:        *qualTrim,
		WriteReadGroups: true,
	})
	rep.WriteSummary(false)
}
