// Package aligntrim drives a single pass over coordinate sorted
// amplicon reads: each read is assigned to a primer pair, primer and
// low quality bases are soft clipped, and per-amplicon depth is
// optionally capped to a target ceiling. The pass is strictly
// sequential so repeated runs on the same input produce identical
// output.
package aligntrim

import (
	"fmt"
	"io"
	"log"

	"github.com/dasnellings/ampliconTools/normalize"
	"github.com/dasnellings/ampliconTools/scheme"
	"github.com/dasnellings/ampliconTools/trim"
	"github.com/vertgenlab/gonomics/exception"
	"github.com/vertgenlab/gonomics/fileio"
	"github.com/vertgenlab/gonomics/sam"
)

const (
	flagSecondary     uint16 = 256
	flagSupplementary uint16 = 2048
)

// Options controls one trimming pass.
type Options struct {
	MaxPrimerDist        int   // maximum distance between a read edge and its primer
	MinMapQ              uint8 // reads below this mapping quality are filtered out
	MinLength            int   // minimum read length, 0 disables
	MaxLength            int   // maximum read length, 0 disables
	Normalise            int   // target depth ceiling per amplicon, 0 disables
	StrandAware          bool  // count each strand separately when normalising
	QualTrim             int   // clip ends below this base quality, 0 disables
	IncludePrimers       bool  // clip to the outer primer boundary, keeping primer bases
	RemoveIncorrectPairs bool  // drop reads whose edges match different amplicons
	WriteReadGroups      bool  // tag retained reads with their pool as a read group
	Verbose              bool  // log per-read trimming decisions
}

// Report accumulates the per-read outcomes of one pass.
type Report struct {
	Processed            int // reads seen
	FilteredOut          int // failed basic acceptance criteria
	NoPrimerMatch        int // no primer pair within range, passed through untrimmed
	IncorrectPairs       int // read edges matched primers of different amplicons
	Trimmed              int // at least one base soft clipped
	FullyTrimmed         int // entire aligned span consumed by clipping, dropped
	NormalizationDropped int // amplicon depth ceiling reached, dropped
	Written              int // reads emitted

	// retained depth per amplicon, in Amplicons order
	Amplicons []int
	Depths    []float64
}

// AlignTrim runs one trimming pass from a coordinate sorted bam to a
// new bam. The scheme must already be loaded and validated; a report of
// per-read outcomes is returned once the input is exhausted. An
// unreadable input or unwritable output is fatal.
func AlignTrim(input, output, reportFile string, sch *scheme.Scheme, opts Options) *Report {
	var err error
	reads, header := sam.GoReadToChan(input)
	if header.Metadata.SortOrder[0] != sam.Coordinate {
		log.Fatal("ERROR: Input file must be coordinate sorted.")
	}
	if opts.WriteReadGroups {
		header = addReadGroups(header, sch.Pools)
	}

	out := fileio.EasyCreate(output)
	bw := sam.NewBamWriter(out, header)

	var reportHandle *fileio.EasyWriter
	var reportOut io.Writer
	if reportFile != "" {
		reportHandle = fileio.EasyCreate(reportFile)
		reportOut = reportHandle
	}

	rep := Process(reads, func(r sam.Sam) {
		sam.WriteToBamFileHandle(bw, r, 0)
	}, reportOut, sch, opts)

	err = bw.Close()
	exception.PanicOnErr(err)
	err = out.Close()
	exception.PanicOnErr(err)
	if reportHandle != nil {
		err = reportHandle.Close()
		exception.PanicOnErr(err)
	}
	return rep
}

// Process consumes reads in input order, emitting retained reads
// through emit in that same order. The normalisation decision depends
// on visitation order, so Process must never be run concurrently over
// one stream.
func Process(reads <-chan sam.Sam, emit func(sam.Sam), reportOut io.Writer, sch *scheme.Scheme, opts Options) *Report {
	rep := new(Report)
	tracker := normalize.NewTracker(opts.Normalise, opts.StrandAware)

	if reportOut != nil {
		fmt.Fprint(reportOut, "read\tchrom\tstart\tend\tprimer_pair\tamplicon\tpool\tfwd_dist\trev_dist\taction\n")
	}
	line := func(r *sam.Sam, p *scheme.PrimerPair, df, dr int, action string) {
		if reportOut == nil {
			return
		}
		pairName, pool := "*", "*"
		amplicon := -1
		if p != nil {
			pairName, pool, amplicon = p.Name(), p.Pool, p.Amplicon
		}
		fmt.Fprintf(reportOut, "%s\t%s\t%d\t%d\t%s\t%d\t%s\t%d\t%d\t%s\n",
			r.QName, r.RName, r.GetChromStart(), r.GetChromEnd(), pairName, amplicon, pool, df, dr, action)
	}

	for r := range reads {
		rep.Processed++

		if !accept(&r, opts) {
			rep.FilteredOut++
			line(&r, nil, 0, 0, "filtered_out")
			continue
		}

		if r.RName != sch.Chrom {
			// reads aligned to another reference cannot match this
			// scheme's primers, pass them through untouched
			rep.NoPrimerMatch++
			line(&r, nil, 0, 0, "no_primer_match")
			emit(r)
			rep.Written++
			continue
		}

		left, right := r.GetChromStart(), r.GetChromEnd()

		// a read whose edges sit near primers of different amplicons is
		// chimeric and will never match a single pair
		fwdAmp, fwdD := sch.NearestForward(left)
		revAmp, revD := sch.NearestReverse(right)
		if fwdD <= opts.MaxPrimerDist && revD <= opts.MaxPrimerDist && fwdAmp != revAmp {
			rep.IncorrectPairs++
			if opts.RemoveIncorrectPairs {
				line(&r, nil, fwdD, revD, "incorrect_pair")
				continue
			}
		}

		pair, fwdDist, revDist, ok := sch.Match(left, right, opts.MaxPrimerDist)
		if !ok {
			// no trimming possible, pass the read through untouched
			rep.NoPrimerMatch++
			line(&r, nil, 0, 0, "no_primer_match")
			emit(r)
			rep.Written++
			continue
		}

		startClip, endClip := trim.Primers(&r, pair, opts.IncludePrimers)
		if opts.QualTrim > 0 {
			qs, qe := trim.LowQualityEnds(&r, uint8(opts.QualTrim))
			startClip += qs
			endClip += qe
		}
		if trim.IsFullyClipped(&r) {
			rep.FullyTrimmed++
			line(&r, pair, fwdDist, revDist, "fully_trimmed")
			continue
		}
		if startClip > 0 || endClip > 0 {
			rep.Trimmed++
		}
		if opts.Verbose {
			log.Printf("%s matched %s, clipped %d from start and %d from end\n", r.QName, pair.Name(), startClip, endClip)
		}

		if !tracker.Keep(pair.Amplicon, !sam.IsPosStrand(r)) {
			rep.NormalizationDropped++
			line(&r, pair, fwdDist, revDist, "normalization_dropped")
			continue
		}

		if opts.WriteReadGroups {
			tagReadGroup(&r, pair.Pool)
		}
		line(&r, pair, fwdDist, revDist, "kept")
		emit(r)
		rep.Written++
	}

	fillDepths(rep, tracker, sch)
	return rep
}

func accept(r *sam.Sam, opts Options) bool {
	if r.RName == "" || r.RName == "*" || sam.IsUnmapped(*r) {
		return false
	}
	if r.Flag&flagSecondary != 0 || r.Flag&flagSupplementary != 0 {
		return false
	}
	if r.MapQ < opts.MinMapQ {
		return false
	}
	if opts.MinLength > 0 && len(r.Seq) < opts.MinLength {
		return false
	}
	if opts.MaxLength > 0 && len(r.Seq) > opts.MaxLength {
		return false
	}
	return true
}

// tagReadGroup records the pool a read was assigned to so downstream
// variant callers can separate pools.
func tagReadGroup(s *sam.Sam, pool string) {
	err := sam.ParseExtra(s)
	exception.PanicOnErr(err)
	if s.Extra != "" {
		s.Extra += "\t"
	}
	s.Extra += "RG:Z:" + pool
}

func addReadGroups(header sam.Header, pools []string) sam.Header {
	for i := range pools {
		header.Text = append(header.Text, "@RG\tID:"+pools[i])
	}
	return header
}

func fillDepths(rep *Report, tracker *normalize.Tracker, sch *scheme.Scheme) {
	seen := make(map[int]bool)
	for i := range sch.Pairs {
		id := sch.Pairs[i].Amplicon
		if seen[id] {
			continue
		}
		seen[id] = true
		rep.Amplicons = append(rep.Amplicons, id)
		rep.Depths = append(rep.Depths, float64(tracker.Depth(id)))
	}
}
