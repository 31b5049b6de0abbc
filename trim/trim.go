// Package trim rewrites read alignments to soft clip primer-derived
// bases and low quality read ends. Soft clipping never alters the
// underlying sequence, only how much of it counts as aligned.
package trim

import (
	"github.com/dasnellings/ampliconTools/scheme"
	"github.com/vertgenlab/gonomics/cigar"
	"github.com/vertgenlab/gonomics/sam"
	"golang.org/x/exp/slices"
)

const asciiOffset uint8 = 33

// Primers soft clips the bases of s that are aligned within the
// forward or reverse primer of its matched pair, i.e. before the
// forward primer end or at/after the reverse primer start. When
// includePrimers is true the outer primer boundaries are used instead,
// leaving the primer bases themselves aligned. Returns the number of
// query bases clipped from each end. Already clipped bases are not
// aligned, so re-trimming a trimmed read clips nothing.
func Primers(s *sam.Sam, p *scheme.PrimerPair, includePrimers bool) (startClip, endClip int) {
	fwdBound, revBound := p.Forward.End, p.Reverse.Start
	if includePrimers {
		fwdBound, revBound = p.Forward.Start, p.Reverse.End
	}
	startClip = alignedBasesBefore(s, fwdBound)
	SoftClipStart(s, startClip)
	endClip = alignedBasesAfter(s, revBound)
	SoftClipEnd(s, endClip)
	return startClip, endClip
}

// LowQualityEnds extends soft clipping inward past any run of base
// qualities below minQual at each aligned end of s. Returns the number
// of query bases clipped from each end.
func LowQualityEnds(s *sam.Sam, minQual uint8) (startClip, endClip int) {
	if len(s.Qual) == 0 || IsFullyClipped(s) {
		return 0, 0
	}
	lead := leadingClip(s.Cigar)
	trail := trailingClip(s.Cigar)

	for i := lead; i < len(s.Qual)-trail && s.Qual[i]-asciiOffset < minQual; i++ {
		startClip++
	}
	for i := len(s.Qual) - trail - 1; i >= lead+startClip && s.Qual[i]-asciiOffset < minQual; i-- {
		endClip++
	}

	SoftClipStart(s, startClip)
	SoftClipEnd(s, endClip)
	return startClip, endClip
}

// SoftClipStart converts the first n aligned query bases of s to soft
// clip, merging into any existing leading clip and advancing Pos past
// clipped matches and any deletions crossed.
func SoftClipStart(s *sam.Sam, n int) {
	if n < 1 || IsFullyClipped(s) {
		return
	}
	if s.Cigar[0].Op != 'S' {
		s.Cigar = slices.Insert(s.Cigar, 0, cigar.Cigar{Op: 'S', RunLength: 0})
	}
	var curr int
	for i := 1; n > 0 && i < len(s.Cigar); i++ {
		switch s.Cigar[i].Op {
		case 'M':
			curr = min(s.Cigar[i].RunLength, n)
			s.Cigar[i].RunLength -= curr
			s.Cigar[0].RunLength += curr
			s.Pos += uint32(curr)
			n -= curr

		case 'D':
			s.Pos += uint32(s.Cigar[i].RunLength)
			s.Cigar[i].RunLength = 0

		case 'I':
			curr = min(s.Cigar[i].RunLength, n)
			s.Cigar[0].RunLength += curr
			s.Cigar[i].RunLength -= curr
			n -= curr

		case 'S':
			n = 0
		}
	}
	s.Cigar = cleanCigar(s.Cigar)
	trimDanglingDeletions(s)
	mergeTerminalInsertions(s)
	collapseIfAllClipped(s)
}

// SoftClipEnd converts the last n aligned query bases of s to soft
// clip, merging into any existing trailing clip. Pos is unchanged since
// the alignment still starts at the same reference position.
func SoftClipEnd(s *sam.Sam, n int) {
	if n < 1 || IsFullyClipped(s) {
		return
	}
	if s.Cigar[len(s.Cigar)-1].Op != 'S' {
		s.Cigar = append(s.Cigar, cigar.Cigar{Op: 'S', RunLength: 0})
	}
	var curr int
	lastIdx := len(s.Cigar) - 1
	for i := lastIdx - 1; n > 0 && i >= 0; i-- {
		switch s.Cigar[i].Op {
		case 'M', 'I':
			curr = min(s.Cigar[i].RunLength, n)
			s.Cigar[i].RunLength -= curr
			s.Cigar[lastIdx].RunLength += curr
			n -= curr

		case 'D':
			s.Cigar[i].RunLength = 0

		case 'S':
			n = 0
		}
	}
	s.Cigar = cleanCigar(s.Cigar)
	trimDanglingDeletions(s)
	mergeTerminalInsertions(s)
	collapseIfAllClipped(s)
}

// IsFullyClipped reports whether no aligned bases remain, either
// because the cigar is empty or everything is soft clipped.
func IsFullyClipped(s *sam.Sam) bool {
	for i := range s.Cigar {
		if s.Cigar[i].Op != 'S' && s.Cigar[i].RunLength > 0 {
			return false
		}
	}
	return true
}

// AlignedLength returns the number of query bases currently aligned,
// excluding soft clips.
func AlignedLength(s *sam.Sam) int {
	var n int
	for i := range s.Cigar {
		if s.Cigar[i].Op != 'S' && cigar.ConsumesQuery(s.Cigar[i].Op) {
			n += s.Cigar[i].RunLength
		}
	}
	return n
}

// alignedBasesBefore counts the aligned query bases of s that fall
// strictly before refPos on the reference. An insertion sitting exactly
// at refPos belongs to the downstream side. This walk is the single
// reference to query coordinate mapping shared by primer and quality
// trimming; indels never shift which bases are counted.
func alignedBasesBefore(s *sam.Sam, refPos int) int {
	ref := s.GetChromStart()
	var n int
	for _, c := range s.Cigar {
		if ref >= refPos {
			break
		}
		switch {
		case c.Op == 'S':
			continue
		case cigar.ConsumesReference(c.Op) && cigar.ConsumesQuery(c.Op):
			if ref+c.RunLength <= refPos {
				n += c.RunLength
			} else {
				n += refPos - ref
			}
			ref += c.RunLength
		case cigar.ConsumesReference(c.Op):
			ref += c.RunLength
		case cigar.ConsumesQuery(c.Op):
			n += c.RunLength
		}
	}
	return n
}

// alignedBasesAfter counts the aligned query bases of s at reference
// positions at or beyond refPos, including insertions sitting exactly
// at refPos.
func alignedBasesAfter(s *sam.Sam, refPos int) int {
	ref := s.GetChromStart()
	var n int
	for _, c := range s.Cigar {
		switch {
		case c.Op == 'S':
			continue
		case cigar.ConsumesReference(c.Op) && cigar.ConsumesQuery(c.Op):
			if ref >= refPos {
				n += c.RunLength
			} else if ref+c.RunLength > refPos {
				n += ref + c.RunLength - refPos
			}
			ref += c.RunLength
		case cigar.ConsumesReference(c.Op):
			ref += c.RunLength
		case cigar.ConsumesQuery(c.Op):
			if ref >= refPos {
				n += c.RunLength
			}
		}
	}
	return n
}

func leadingClip(c []cigar.Cigar) int {
	var n int
	for i := 0; i < len(c) && c[i].Op == 'S'; i++ {
		n += c[i].RunLength
	}
	return n
}

func trailingClip(c []cigar.Cigar) int {
	var n int
	for i := len(c) - 1; i >= 0 && c[i].Op == 'S'; i-- {
		n += c[i].RunLength
	}
	return n
}

// cleanCigar removes all indexes with RunLength of 0.
func cleanCigar(c []cigar.Cigar) []cigar.Cigar {
	for i := 0; i < len(c); i++ {
		if c[i].RunLength == 0 {
			c = slices.Delete(c, i, i+1)
			i--
		}
	}
	return c
}

// trimDanglingDeletions removes deletions left exposed at either end of
// the aligned span after clipping, since an alignment cannot begin or
// end with a deletion.
func trimDanglingDeletions(s *sam.Sam) {
	for i := 0; i < len(s.Cigar); i++ {
		if s.Cigar[i].Op == 'S' {
			continue
		}
		if s.Cigar[i].Op != 'D' {
			break
		}
		s.Pos += uint32(s.Cigar[i].RunLength)
		s.Cigar = slices.Delete(s.Cigar, i, i+1)
		i--
	}
	for i := len(s.Cigar) - 1; i >= 0; i-- {
		if s.Cigar[i].Op == 'S' {
			continue
		}
		if s.Cigar[i].Op != 'D' {
			break
		}
		s.Cigar = slices.Delete(s.Cigar, i, i+1)
	}
}

// mergeTerminalInsertions converts an insertion left at either end of
// the aligned span into soft clip, folding it into an adjacent clip,
// since an alignment cannot begin or end with an insertion.
func mergeTerminalInsertions(s *sam.Sam) {
	if len(s.Cigar) == 0 {
		return
	}
	if s.Cigar[0].Op == 'I' {
		s.Cigar[0].Op = 'S'
	}
	if s.Cigar[len(s.Cigar)-1].Op == 'I' {
		s.Cigar[len(s.Cigar)-1].Op = 'S'
	}

	// catch case where beginning/end of read is already soft clipped
	if len(s.Cigar) >= 2 && s.Cigar[0].Op == 'S' && s.Cigar[1].Op == 'I' {
		s.Cigar[1].Op = 'S'
		s.Cigar[1].RunLength += s.Cigar[0].RunLength
		s.Cigar = s.Cigar[1:]
	}
	if len(s.Cigar) >= 2 && s.Cigar[len(s.Cigar)-1].Op == 'S' && s.Cigar[len(s.Cigar)-2].Op == 'I' {
		s.Cigar[len(s.Cigar)-2].Op = 'S'
		s.Cigar[len(s.Cigar)-2].RunLength += s.Cigar[len(s.Cigar)-1].RunLength
		s.Cigar = s.Cigar[:len(s.Cigar)-1]
	}
}

// collapseIfAllClipped merges the cigar to a single soft clip when no
// aligned bases remain.
func collapseIfAllClipped(s *sam.Sam) {
	if !IsFullyClipped(s) {
		return
	}
	var total int
	for i := range s.Cigar {
		total += s.Cigar[i].RunLength
	}
	if total == 0 {
		s.Cigar = nil
		return
	}
	s.Cigar = s.Cigar[:1]
	s.Cigar[0].Op = 'S'
	s.Cigar[0].RunLength = total
}
