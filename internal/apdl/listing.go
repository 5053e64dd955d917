package apdl

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reLetters       = regexp.MustCompile(`[a-df-zA-DF-Z]+`)
	reFloatInt      = regexp.MustCompile(`[+-]?[0-9]*[.]?[0-9]*[Ee]?[+-]?[0-9]+|\s[0-9]+\s`)
	reBCRow         = regexp.MustCompile(`^\s*([0-9]+)\s*([A-Za-z]+)((?:\s+[0-9]*[.]?[0-9]+)+)$`)
	reGluedNegative = regexp.MustCompile(`([^E])-`)
)

var defaultGroupStart = []string{"NODE", "ELEM"}

var trailHeaders = []string{"MAXIMUM ABSOLUTE VALUES", "TOTAL VALUES"}

var bcListingColumns = map[string][]string{
	"DKLI": {"KEYPOINT", "LABEL", "REAL", "IMAG", "EXP KEY"},
	"DLLI": {"LINE", "LABEL", "REAL", "IMAG", "NAREA"},
	"DALI": {"AREA", "LABEL", "REAL", "IMAG"},
	"DLIS": {"NODE", "LABEL", "REAL", "IMAG"},
	"FKLI": {"KEYPOINT", "LABEL", "REAL", "IMAG"},
	"FLIS": {"NODE", "LABEL", "REAL", "IMAG"},
	"SFLL": {"LINE", "LABEL", "VALI", "VALJ", "VAL2I", "VAL2J"},
	"BFKL": {"KEYPOINT", "LABEL", "VALUE"},
	"BFLL": {"LINE", "LABEL", "VALUE"},
	"BFAL": {"AREA", "LABEL", "VALUE"},
}

// Listing is tabular solver output such as NLIST or PRNSOL.
type Listing struct {
	Text       string
	GroupStart []string
	Columns    []string
}

func NewListing(text string) *Listing {
	return &Listing{Text: text}
}

// Rows parses every purely numeric line into floats. Lines containing any
// letter other than E are skipped.
func (l *Listing) Rows() [][]float64 {
	var rows [][]float64
	for _, line := range strings.Split(l.Text, "\n") {
		if strings.TrimSpace(line) == "" || reLetters.MatchString(line) {
			continue
		}
		var row []float64
		for _, item := range reFloatInt.FindAllString(line, -1) {
			v, err := strconv.ParseFloat(strings.TrimSpace(item), 64)
			if err != nil {
				continue
			}
			row = append(row, v)
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return rows
}

// Body returns the formatted lines without the trailing summary block.
func (l *Listing) Body() []string {
	body := strings.Split(reGluedNegative.ReplaceAllString(l.Text, "$1 -"), "\n")
	for _, header := range trailHeaders {
		if !strings.Contains(l.Text, header) {
			continue
		}
		for i := len(body) - 1; i >= 0; i-- {
			if strings.Contains(body[i], header) {
				body = body[:i]
				break
			}
		}
	}
	return body
}

// ColumnNames returns the header fields of the first data group.
func (l *Listing) ColumnNames() []string {
	if len(l.Columns) > 0 {
		return l.Columns
	}
	start := l.GroupStart
	if len(start) == 0 {
		start = defaultGroupStart
	}
	for _, line := range l.Body() {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		for _, word := range start {
			if fields[0] == word {
				return fields
			}
		}
	}
	return nil
}

// BCRows parses a boundary condition listing (DLIST, FLIST, ...) into
// entity, label and value columns kept as text.
func (l *Listing) BCRows() [][]string {
	var rows [][]string
	for _, line := range strings.Split(l.Text, "\n") {
		m := reBCRow.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		row := append([]string{m[1], m[2]}, strings.Fields(m[3])...)
		rows = append(rows, row)
	}
	return rows
}

// BCColumnNames derives column names from the listing title, trimmed to
// the width of the first data row.
func (l *Listing) BCColumnNames() []string {
	body := l.Body()
	title := ""
	for _, line := range body {
		if strings.TrimSpace(line) != "" {
			title = line
			break
		}
	}

	kinds := []struct{ match, key string }{
		{"BODY FORCES", "BF"}, {"SURFACE LOAD", "SF"}, {"POINT LOAD", "F"},
		{"FORCES", "F"}, {"CONSTRAINTS", "D"},
	}
	entities := []struct{ match, key string }{
		{"KEYPOINT", "K"}, {"LINE", "L"}, {"AREA", "A"}, {"NODE", ""}, {"ELEMENT", "E"},
	}
	var kind, entity string
	var kindOK, entityOK bool
	for _, k := range kinds {
		if strings.Contains(title, k.match) {
			kind, kindOK = k.key, true
			break
		}
	}
	for _, e := range entities {
		if strings.Contains(title, e.match) {
			entity, entityOK = e.key, true
			break
		}
	}
	if !kindOK || !entityOK {
		return nil
	}

	key := kind + entity + "LIST"
	key = key[:4]
	cols, ok := bcListingColumns[key]
	if !ok {
		return nil
	}
	rows := l.BCRows()
	if len(rows) > 0 && len(cols) > len(rows[0]) {
		cols = cols[:len(rows[0])]
	}
	return cols
}
