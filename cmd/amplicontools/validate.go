package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/dasnellings/ampliconTools/scheme"
	"github.com/vertgenlab/gonomics/exception"
)

func validateUsage(validateFlags *flag.FlagSet) {
	fmt.Print(
		"validate - Check a primer scheme bed file for errors\n\n" +
			"Usage:\n" +
			"  amplicontools validate -b scheme.primer.bed [-fai reference.fasta.fai]\n\n" +
			"Options:\n")
	validateFlags.PrintDefaults()
}

func runValidate(args []string) {
	var err error
	validateFlags := flag.NewFlagSet("validate", flag.ExitOnError)

	bed := validateFlags.String("b", "", "Primer scheme bed file.")
	fai := validateFlags.String("fai", "", "Reference fasta index to check primer coordinates against.")

	err = validateFlags.Parse(args)
	exception.PanicOnErr(err)
	validateFlags.Usage = func() { validateUsage(validateFlags) }

	if *bed == "" {
		validateFlags.Usage()
		errExit("\nERROR: must have input for -b")
	}

	sch, err := scheme.ReadScheme(*bed)
	if err != nil {
		log.Fatalf("ERROR: %v\n", err)
	}

	if *fai != "" {
		sizes, err := scheme.ReadFaiSizes(*fai)
		if err != nil {
			log.Fatalf("ERROR: %v\n", err)
		}
		err = sch.CheckBounds(sizes)
		if err != nil {
			log.Fatalf("ERROR: %v\n", err)
		}
	}

	amplicons := make(map[int]bool)
	for i := range sch.Pairs {
		amplicons[sch.Pairs[i].Amplicon] = true
	}
	fmt.Printf("scheme OK: %d primer pairs covering %d amplicons on %s\n", len(sch.Pairs), len(amplicons), sch.Chrom)
	fmt.Printf("pools: %s\n", strings.Join(sch.Pools, ", "))
}
