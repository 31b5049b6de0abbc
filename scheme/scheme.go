// Package scheme reads ARTIC-style tiling primer schemes and matches
// aligned read spans to the primer pair that generated them.
package scheme

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/vertgenlab/gonomics/exception"
	"github.com/vertgenlab/gonomics/fileio"
)

// Primer is one line of a primer scheme bed file. Start and End follow
// bed conventions: 0-based half-open on the reference.
type Primer struct {
	Chrom    string
	Start    int
	End      int
	Name     string
	Pool     string
	Strand   byte // '+' for LEFT primers, '-' for RIGHT primers
	Amplicon int
	Alt      bool
}

// PrimerPair is one LEFT/RIGHT combination for an amplicon. Amplicons
// with alternate primers expand to one pair per LEFT x RIGHT combination.
type PrimerPair struct {
	Amplicon int
	Pool     string
	Forward  Primer
	Reverse  Primer
}

// Name returns a stable identifier for the pair, e.g. "nCoV-2019_7_LEFT:nCoV-2019_7_RIGHT".
func (p PrimerPair) Name() string {
	return p.Forward.Name + ":" + p.Reverse.Name
}

// Scheme is a validated primer scheme. Pairs are sorted by forward
// primer start, ties broken by amplicon id, so Match can binary search.
type Scheme struct {
	Chrom string
	Pairs []PrimerPair
	Pools []string
	// longest forward-start to reverse-end span of any pair, used to
	// bound the candidate scan in Match
	maxSpan int
}

// ReadScheme parses and validates a primer scheme bed file with columns
// chrom, start, end, name, pool, and optionally strand. Primer names
// must follow <scheme>_<amplicon>_<LEFT|RIGHT> with an optional _altN
// suffix. A LEFT primer with no RIGHT partner of the same amplicon id,
// or vice versa, is a fatal scheme error.
func ReadScheme(file string) (*Scheme, error) {
	var lefts, rights = make(map[int][]Primer), make(map[int][]Primer)
	var amplicons []int
	var seen = make(map[int]bool)
	var pools = make(map[string]bool)
	ans := new(Scheme)

	in := fileio.EasyOpen(file)
	var line string
	var done bool
	var lineNum int
	for line, done = fileio.EasyNextRealLine(in); !done; line, done = fileio.EasyNextRealLine(in) {
		lineNum++
		p, left, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("scheme %s line %d: %w", file, lineNum, err)
		}
		if ans.Chrom == "" {
			ans.Chrom = p.Chrom
		}
		if !seen[p.Amplicon] {
			seen[p.Amplicon] = true
			amplicons = append(amplicons, p.Amplicon)
		}
		pools[p.Pool] = true
		if left {
			lefts[p.Amplicon] = append(lefts[p.Amplicon], p)
		} else {
			rights[p.Amplicon] = append(rights[p.Amplicon], p)
		}
	}
	err := in.Close()
	exception.PanicOnErr(err)

	if len(amplicons) == 0 {
		return nil, fmt.Errorf("scheme %s: no primer records found", file)
	}

	sort.Ints(amplicons)
	for _, id := range amplicons {
		if len(lefts[id]) == 0 {
			return nil, fmt.Errorf("scheme %s: amplicon %d has a RIGHT primer but no LEFT primer", file, id)
		}
		if len(rights[id]) == 0 {
			return nil, fmt.Errorf("scheme %s: amplicon %d has a LEFT primer but no RIGHT primer", file, id)
		}
		for _, fwd := range lefts[id] {
			for _, rev := range rights[id] {
				if fwd.Start >= rev.End {
					return nil, fmt.Errorf("scheme %s: amplicon %d primers %s and %s are out of order", file, id, fwd.Name, rev.Name)
				}
				ans.Pairs = append(ans.Pairs, PrimerPair{Amplicon: id, Pool: fwd.Pool, Forward: fwd, Reverse: rev})
			}
		}
	}

	sort.SliceStable(ans.Pairs, func(i, j int) bool {
		if ans.Pairs[i].Forward.Start != ans.Pairs[j].Forward.Start {
			return ans.Pairs[i].Forward.Start < ans.Pairs[j].Forward.Start
		}
		return ans.Pairs[i].Amplicon < ans.Pairs[j].Amplicon
	})

	for i := range ans.Pairs {
		span := ans.Pairs[i].Reverse.End - ans.Pairs[i].Forward.Start
		if span > ans.maxSpan {
			ans.maxSpan = span
		}
	}

	for pool := range pools {
		ans.Pools = append(ans.Pools, pool)
	}
	sort.Strings(ans.Pools)
	return ans, nil
}

func parseLine(line string) (p Primer, left bool, err error) {
	col := strings.Split(line, "\t")
	if len(col) < 5 {
		return p, false, fmt.Errorf("expected at least 5 tab-separated fields, got %d", len(col))
	}
	p.Chrom = col[0]
	p.Start, err = strconv.Atoi(col[1])
	if err != nil {
		return p, false, fmt.Errorf("bad start position %q", col[1])
	}
	p.End, err = strconv.Atoi(col[2])
	if err != nil {
		return p, false, fmt.Errorf("bad end position %q", col[2])
	}
	if p.Start < 0 || p.End <= p.Start {
		return p, false, fmt.Errorf("bad primer interval [%d,%d)", p.Start, p.End)
	}
	p.Name = col[3]
	p.Pool = col[4]

	p.Amplicon, left, p.Alt, err = parseName(p.Name)
	if err != nil {
		return p, false, err
	}

	if len(col) > 5 && col[5] != "" {
		p.Strand = col[5][0]
	} else if left {
		p.Strand = '+'
	} else {
		p.Strand = '-'
	}
	if left && p.Strand != '+' {
		return p, false, fmt.Errorf("LEFT primer %s is not on the + strand", p.Name)
	}
	if !left && p.Strand != '-' {
		return p, false, fmt.Errorf("RIGHT primer %s is not on the - strand", p.Name)
	}
	return p, left, nil
}

// parseName decodes <scheme>_<amplicon>_<LEFT|RIGHT>[_altN] primer names.
func parseName(name string) (amplicon int, left, alt bool, err error) {
	tok := strings.Split(name, "_")
	var role int = -1
	for i := range tok {
		if tok[i] == "LEFT" || tok[i] == "RIGHT" {
			role = i
			break
		}
	}
	if role < 1 {
		return 0, false, false, fmt.Errorf("primer name %q does not encode an amplicon id and LEFT/RIGHT role", name)
	}
	amplicon, err = strconv.Atoi(tok[role-1])
	if err != nil {
		return 0, false, false, fmt.Errorf("primer name %q has non-numeric amplicon id %q", name, tok[role-1])
	}
	left = tok[role] == "LEFT"
	for i := role + 1; i < len(tok); i++ {
		if strings.HasPrefix(strings.ToLower(tok[i]), "alt") {
			alt = true
		}
	}
	return amplicon, left, alt, nil
}

// Match finds the primer pair generating a read mapped to the 0-based
// half-open reference span [left,right). Candidate pairs must overlap
// the span and have both edge distances |left-forward.End| and
// |right-reverse.Start| within maxDist. Among candidates the pair
// minimizing the total edge distance wins, ties going to the smaller
// amplicon id. Returns the pair, the two edge distances, and false if
// no pair qualifies.
func (s *Scheme) Match(left, right, maxDist int) (pair *PrimerPair, fwdDist, revDist int, ok bool) {
	// first pair starting beyond the read's left edge
	i := sort.Search(len(s.Pairs), func(i int) bool { return s.Pairs[i].Forward.Start > left })

	bestScore := 2*maxDist + 1
	consider := func(p *PrimerPair) {
		if p.Forward.Start >= right || p.Reverse.End <= left {
			return
		}
		df := abs(left - p.Forward.End)
		dr := abs(right - p.Reverse.Start)
		if df > maxDist || dr > maxDist {
			return
		}
		score := df + dr
		if score < bestScore || (score == bestScore && pair != nil && p.Amplicon < pair.Amplicon) {
			bestScore = score
			pair, fwdDist, revDist = p, df, dr
		}
	}

	for j := i - 1; j >= 0; j-- {
		if s.Pairs[j].Forward.Start+s.maxSpan <= left {
			break
		}
		consider(&s.Pairs[j])
	}
	for j := i; j < len(s.Pairs); j++ {
		if s.Pairs[j].Forward.Start > left+maxDist {
			break
		}
		consider(&s.Pairs[j])
	}
	return pair, fwdDist, revDist, pair != nil
}

// NearestForward returns the amplicon id of the forward primer whose
// end is closest to pos, and the distance to it.
func (s *Scheme) NearestForward(pos int) (amplicon, dist int) {
	dist = -1
	for i := range s.Pairs {
		d := abs(pos - s.Pairs[i].Forward.End)
		if dist == -1 || d < dist {
			dist = d
			amplicon = s.Pairs[i].Amplicon
		}
	}
	return amplicon, dist
}

// NearestReverse returns the amplicon id of the reverse primer whose
// start is closest to pos, and the distance to it.
func (s *Scheme) NearestReverse(pos int) (amplicon, dist int) {
	dist = -1
	for i := range s.Pairs {
		d := abs(pos - s.Pairs[i].Reverse.Start)
		if dist == -1 || d < dist {
			dist = d
			amplicon = s.Pairs[i].Amplicon
		}
	}
	return amplicon, dist
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}
