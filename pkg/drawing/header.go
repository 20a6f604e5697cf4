package drawing

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"penbot/pkg/errors"
)

var (
	rowPattern   = regexp.MustCompile(`^\{\s*(-?\d+)\s*,\s*(-?\d+)\s*,\s*([01])\s*\},?$`)
	imagePattern = regexp.MustCompile(`^const\s+Image\s+k(\w+)\s+PROGMEM\s*=\s*\{\s*(\d+)\s*,\s*k\w+Data\s*\}\s*;$`)
)

// ParseHeader reads a generated image header: rows of "{ len, angle, pen },"
// inside a DataPoint array followed by the Image declaration carrying the
// name and count. file is used only in error messages.
func ParseHeader(r io.Reader, file string) (Named, error) {
	var (
		segs     Slice
		name     string
		declared = -1
		lineNo   int
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if m := rowPattern.FindStringSubmatch(line); m != nil {
			seg, err := parseRow(m[1], m[2], m[3])
			if err != nil {
				return Named{}, errors.HeaderParseError(file, lineNo, err.Error())
			}
			segs = append(segs, seg)
			continue
		}
		if m := imagePattern.FindStringSubmatch(line); m != nil {
			name = m[1]
			declared, _ = strconv.Atoi(m[2])
		}
	}
	if err := sc.Err(); err != nil {
		return Named{}, errors.Wrap(err, errors.ErrHeaderParse, "read header").SetFile(file)
	}
	if declared < 0 {
		return Named{}, errors.HeaderParseError(file, lineNo, "no Image declaration found")
	}
	if declared != len(segs) {
		return Named{}, errors.HeaderParseError(file, lineNo,
			fmt.Sprintf("image k%s declares %d segments, found %d", name, declared, len(segs)))
	}
	if len(segs) > 0xFFFF {
		return Named{}, errors.HeaderParseError(file, lineNo, "too many segments")
	}
	return Named{Image: segs, Name: name}, nil
}

func parseRow(l, a, p string) (Segment, error) {
	length, err := strconv.ParseInt(l, 10, 16)
	if err != nil {
		return Segment{}, fmt.Errorf("len %s: %w", l, err)
	}
	angle, err := strconv.ParseInt(a, 10, 16)
	if err != nil {
		return Segment{}, fmt.Errorf("angle %s: %w", a, err)
	}
	seg := Segment{Len: int16(length), Angle: int16(angle), Pen: p == "1"}
	if err := seg.Validate(); err != nil {
		return Segment{}, err
	}
	return seg, nil
}

// WriteHeader renders img in the generated header format read by
// ParseHeader.
func WriteHeader(w io.Writer, name string, img Image) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "#ifndef IMAGE_%s_H_\n#define IMAGE_%s_H_\n", name, name)
	fmt.Fprintf(bw, "#include <avr/pgmspace.h>\n#include \"../fw/driver.h\"\n\n")
	fmt.Fprintf(bw, "const DataPoint k%sData[] PROGMEM = {\n", name)
	for i := uint16(0); i < img.Count(); i++ {
		s := img.At(i)
		pen := 0
		if s.Pen {
			pen = 1
		}
		fmt.Fprintf(bw, "  { %d, %d, %d },\n", s.Len, s.Angle, pen)
	}
	fmt.Fprintf(bw, "};\n\nconst Image k%s PROGMEM = { %d, k%sData };\n\n", name, img.Count(), name)
	fmt.Fprintf(bw, "#endif  // IMAGE_%s_H_\n", name)
	return bw.Flush()
}
