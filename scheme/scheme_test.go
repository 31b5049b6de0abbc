package scheme

import (
	"os"
	"path/filepath"
	"testing"
)

const testScheme string = "" +
	"ref\t100\t120\tscheme_1_LEFT\t1\t+\n" +
	"ref\t380\t400\tscheme_1_RIGHT\t1\t-\n" +
	"ref\t340\t360\tscheme_2_LEFT\t2\t+\n" +
	"ref\t338\t358\tscheme_2_LEFT_alt1\t2\t+\n" +
	"ref\t620\t640\tscheme_2_RIGHT\t2\t-\n" +
	"ref\t580\t600\tscheme_3_LEFT\t1\t+\n" +
	"ref\t860\t880\tscheme_3_RIGHT\t1\t-\n"

func writeScheme(t *testing.T, contents string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "test.primer.bed")
	err := os.WriteFile(file, []byte(contents), 0644)
	if err != nil {
		t.Fatal(err)
	}
	return file
}

func TestReadScheme(t *testing.T) {
	s, err := ReadScheme(writeScheme(t, testScheme))
	if err != nil {
		t.Fatal(err)
	}
	if s.Chrom != "ref" {
		t.Error("problem with scheme chrom", s.Chrom)
	}
	// amplicon 2 has an alternate left primer, so 2 pairs
	if len(s.Pairs) != 4 {
		t.Error("problem with pair expansion, expected 4 pairs, got", len(s.Pairs))
	}
	for i := 1; i < len(s.Pairs); i++ {
		if s.Pairs[i].Forward.Start < s.Pairs[i-1].Forward.Start {
			t.Error("pairs are not sorted by forward primer start")
		}
	}
	if len(s.Pools) != 2 || s.Pools[0] != "1" || s.Pools[1] != "2" {
		t.Error("problem with pool names", s.Pools)
	}
	if !s.Pairs[1].Forward.Alt && !s.Pairs[2].Forward.Alt {
		t.Error("alternate primer was not flagged")
	}
}

func TestReadSchemeUnpaired(t *testing.T) {
	unpaired := testScheme + "ref\t900\t920\tscheme_4_LEFT\t2\t+\n"
	_, err := ReadScheme(writeScheme(t, unpaired))
	if err == nil {
		t.Error("expected an error for a LEFT primer with no RIGHT partner")
	}

	unpaired = testScheme + "ref\t1100\t1120\tscheme_5_RIGHT\t2\t-\n"
	_, err = ReadScheme(writeScheme(t, unpaired))
	if err == nil {
		t.Error("expected an error for a RIGHT primer with no LEFT partner")
	}
}

func TestReadSchemeMalformed(t *testing.T) {
	_, err := ReadScheme(writeScheme(t, "ref\t100\t120\tnoampliconid\t1\t+\n"))
	if err == nil {
		t.Error("expected an error for a primer name without an amplicon id")
	}

	_, err = ReadScheme(writeScheme(t, "ref\t120\t100\tscheme_1_LEFT\t1\t+\n"))
	if err == nil {
		t.Error("expected an error for an inverted primer interval")
	}

	_, err = ReadScheme(writeScheme(t, ""))
	if err == nil {
		t.Error("expected an error for an empty scheme")
	}
}

func TestParseName(t *testing.T) {
	amplicon, left, alt, err := parseName("nCoV-2019_72_LEFT")
	if err != nil || amplicon != 72 || !left || alt {
		t.Error("problem parsing primer name", amplicon, left, alt, err)
	}
	amplicon, left, alt, err = parseName("nCoV-2019_7_RIGHT_alt4")
	if err != nil || amplicon != 7 || left || !alt {
		t.Error("problem parsing alt primer name", amplicon, left, alt, err)
	}
	_, _, _, err = parseName("LEFT_1")
	if err == nil {
		t.Error("expected an error when no amplicon id precedes the role")
	}
}

func TestMatch(t *testing.T) {
	s, err := ReadScheme(writeScheme(t, testScheme))
	if err != nil {
		t.Fatal(err)
	}

	// read spanning amplicon 1 exactly between primer outer bounds
	pair, df, dr, ok := s.Match(100, 400, 40)
	if !ok || pair.Amplicon != 1 || df != 20 || dr != 20 {
		t.Error("problem matching amplicon 1", pair, df, dr, ok)
	}

	// amplicon 2's alternate left primer ends at 358, two bases closer
	// to this read than the primary at 360
	pair, df, dr, ok = s.Match(345, 630, 40)
	if !ok || pair.Amplicon != 2 || pair.Forward.Name != "scheme_2_LEFT_alt1" {
		t.Error("problem matching alternate primer", pair, df, dr, ok)
	}

	// read edges too far from any primer
	_, _, _, ok = s.Match(200, 300, 40)
	if ok {
		t.Error("expected no match for a read inside an amplicon but far from both primers")
	}

	// read outside the scheme entirely
	_, _, _, ok = s.Match(2000, 2300, 40)
	if ok {
		t.Error("expected no match for a read beyond the scheme")
	}
}

func TestNearestEdges(t *testing.T) {
	s, err := ReadScheme(writeScheme(t, testScheme))
	if err != nil {
		t.Fatal(err)
	}
	amplicon, dist := s.NearestForward(118)
	if amplicon != 1 || dist != 2 {
		t.Error("problem with nearest forward primer", amplicon, dist)
	}
	amplicon, dist = s.NearestReverse(625)
	if amplicon != 2 || dist != 5 {
		t.Error("problem with nearest reverse primer", amplicon, dist)
	}
	// a chimeric read spanning amplicon 1's left and amplicon 2's right
	// primers matches different amplicons at each edge
	fwdAmp, _ := s.NearestForward(120)
	revAmp, _ := s.NearestReverse(620)
	if fwdAmp == revAmp {
		t.Error("expected edges of a chimeric span to match different amplicons")
	}
}

func TestReadFaiSizes(t *testing.T) {
	file := filepath.Join(t.TempDir(), "ref.fasta.fai")
	err := os.WriteFile(file, []byte("ref\t1000\t5\t60\t61\n"), 0644)
	if err != nil {
		t.Fatal(err)
	}
	sizes, err := ReadFaiSizes(file)
	if err != nil || sizes["ref"] != 1000 {
		t.Error("problem reading fai sizes", sizes, err)
	}

	s, err := ReadScheme(writeScheme(t, testScheme))
	if err != nil {
		t.Fatal(err)
	}
	err = s.CheckBounds(sizes)
	if err != nil {
		t.Error("scheme should fit within a 1000 base reference:", err)
	}
	err = s.CheckBounds(map[string]int{"ref": 500})
	if err == nil {
		t.Error("expected an error for primers past the end of the reference")
	}
}
