package scheme

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vertgenlab/gonomics/exception"
	"github.com/vertgenlab/gonomics/fileio"
)

// ReadFaiSizes reads reference sequence lengths from a samtools fasta
// index (.fai) so primer intervals can be checked against the bounds of
// the reference they target.
func ReadFaiSizes(file string) (map[string]int, error) {
	sizes := make(map[string]int)
	in := fileio.EasyOpen(file)
	var line string
	var done bool
	for line, done = fileio.EasyNextRealLine(in); !done; line, done = fileio.EasyNextRealLine(in) {
		col := strings.Split(line, "\t")
		if len(col) != 5 {
			return nil, fmt.Errorf("malformed fai file %s: expected 5 fields on line:\n%s", file, line)
		}
		size, err := strconv.Atoi(col[1])
		if err != nil {
			return nil, fmt.Errorf("malformed fai file %s: bad sequence length %q", file, col[1])
		}
		sizes[col[0]] = size
	}
	err := in.Close()
	exception.PanicOnErr(err)
	return sizes, nil
}

// CheckBounds verifies that every primer pair lies within the length of
// its reference sequence. The fai sizes come from ReadFaiSizes.
func (s *Scheme) CheckBounds(sizes map[string]int) error {
	for i := range s.Pairs {
		p := &s.Pairs[i]
		size, found := sizes[p.Forward.Chrom]
		if !found {
			return fmt.Errorf("scheme targets %s, which is not in the reference index", p.Forward.Chrom)
		}
		if p.Reverse.End > size {
			return fmt.Errorf("amplicon %d primer %s ends at %d, past the end of %s (%d)", p.Amplicon, p.Reverse.Name, p.Reverse.End, p.Forward.Chrom, size)
		}
	}
	return nil
}
