package apdl

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var ErrNotParameterListing = errors.New("apdl: output is not a *STATUS parameter listing")

// Parameter is one entry of a *STATUS listing. Only the fields relevant to
// Type are populated.
type Parameter struct {
	Type      string    `json:"type"`
	Scalar    float64   `json:"scalar,omitempty"`
	Text      string    `json:"text,omitempty"`
	Shape     []int     `json:"shape,omitempty"`
	Values    []float64 `json:"values,omitempty"`
	Strings   []string  `json:"strings,omitempty"`
	MemoryMB  float64   `json:"memory_mb,omitempty"`
	Workspace int       `json:"workspace,omitempty"`
}

var (
	reStatusName  = regexp.MustCompile(`STATUS-(.*)[^\(]\(`)
	reStringArray = regexp.MustCompile(`\s*\d+\s+\d+\s+\d+\s+(.*)$`)
)

type listingKind int

const (
	listingScalar listingKind = iota
	listingMath
	listingArray
	listingStringArray
)

// ParseStatus interprets *STATUS output into parameters keyed by name.
func ParseStatus(status string) (map[string]Parameter, error) {
	params := map[string]Parameter{}
	if strings.Contains(status, "There are no parameters defined.") {
		return params, nil
	}

	lines := strings.Split(strings.ReplaceAll(status, "\r\n", "\n"), "\n")
	start := -1
	for i, line := range lines {
		if strings.Contains(line, "PARAMETER STATUS-") {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, fmt.Errorf("%w: missing PARAMETER STATUS line", ErrNotParameterListing)
	}
	lines = lines[start:]
	status = strings.Join(lines, "\n")

	kind, header := classifyListing(lines)
	name := ""
	if kind == listingArray || kind == listingStringArray {
		m := reStatusName.FindStringSubmatch(status)
		if m == nil {
			return nil, fmt.Errorf("%w: array name not found", ErrNotParameterListing)
		}
		name = strings.TrimSpace(m[1])
	}

	body := lines
	switch kind {
	case listingStringArray:
		if len(body) > 2 {
			body = body[2:]
		} else {
			body = nil
		}
	default:
		idx := -1
		for i, line := range lines {
			if header(line) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return params, nil
		}
		body = lines[idx+1:]
	}

	switch kind {
	case listingArray:
		p, err := parseArrayListing(body)
		if err != nil {
			return nil, err
		}
		params[name] = p
		return params, nil
	case listingStringArray:
		var elems []string
		for _, line := range body {
			if m := reStringArray.FindStringSubmatch(line); m != nil {
				elems = append(elems, strings.TrimSpace(m[1]))
			}
		}
		params[name] = Parameter{Type: "STRING_ARRAY", Strings: elems}
		return params, nil
	}

	for _, line := range body {
		items := strings.Fields(line)
		if len(items) == 0 {
			continue
		}
		pname := items[0]
		switch {
		case len(items) == 2 || strings.Contains(strings.ToUpper(items[len(items)-1]), "CHARACTER"):
			pname = strings.TrimSpace(prefix(line, 32))
			value := strings.Replace(line, items[len(items)-1], "", 1)
			params[pname] = Parameter{Type: "CHARACTER", Text: strings.TrimSpace(suffix(value, 33))}
		case len(items) == 3:
			if items[2] == "SCALAR" {
				v, err := strconv.ParseFloat(items[1], 64)
				if err != nil {
					return nil, fmt.Errorf("apdl: scalar %s: %w", pname, err)
				}
				params[pname] = Parameter{Type: "SCALAR", Scalar: v}
			} else {
				params[pname] = Parameter{Type: items[2], Text: items[1]}
			}
		case len(items) == 5:
			p, err := parseFiveColumn(items)
			if err != nil {
				return nil, fmt.Errorf("apdl: parameter %s: %w", pname, err)
			}
			params[pname] = p
		}
	}
	return params, nil
}

func classifyListing(lines []string) (listingKind, func(string) bool) {
	scalarHeader := func(l string) bool {
		return strings.Contains(l, "NAME") && strings.Contains(l, "VALUE") && strings.Contains(l, "TYPE")
	}
	mathHeader := func(l string) bool {
		return strings.Contains(l, "Name") && strings.Contains(l, "Type") &&
			strings.Contains(l, "Dims") && strings.Contains(l, "Workspace")
	}
	arrayHeader := func(l string) bool {
		return strings.Contains(l, "LOCATION") && strings.Contains(l, "VALUE")
	}
	for _, cand := range []struct {
		kind listingKind
		fn   func(string) bool
	}{{listingScalar, scalarHeader}, {listingMath, mathHeader}, {listingArray, arrayHeader}} {
		for _, l := range lines {
			if cand.fn(l) {
				return cand.kind, cand.fn
			}
		}
	}
	return listingStringArray, nil
}

func parseFiveColumn(items []string) (Parameter, error) {
	switch items[1] {
	case "DMAT", "VEC", "SMAT":
		mem, err := strconv.ParseFloat(items[2], 64)
		if err != nil {
			return Parameter{}, err
		}
		ws, err := strconv.Atoi(items[4])
		if err != nil {
			return Parameter{}, err
		}
		dims, err := mathDimensions(items[3])
		if err != nil {
			return Parameter{}, err
		}
		return Parameter{Type: items[1], MemoryMB: mem, Shape: dims, Workspace: ws}, nil
	case "LSENGINE":
		ws, err := strconv.Atoi(items[4])
		if err != nil {
			return Parameter{}, err
		}
		return Parameter{Type: items[1], Workspace: ws}, nil
	}
	shape := make([]int, 3)
	for i := range shape {
		v, err := strconv.Atoi(items[2+i])
		if err != nil {
			return Parameter{}, err
		}
		shape[i] = v
	}
	return Parameter{Type: items[1], Shape: shape}, nil
}

// mathDimensions parses "[3:4]" for matrices and "12" for vectors.
func mathDimensions(raw string) ([]int, error) {
	if !strings.Contains(raw, ":") {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, err
		}
		return []int{v}, nil
	}
	parts := strings.Split(strings.Trim(raw, "[]()"), ":")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// parseArrayListing fills an (i, j, k) array from "I J K VALUE" rows and
// drops unit dimensions from the shape.
func parseArrayListing(body []string) (Parameter, error) {
	type cell struct {
		i, j, k int
		v       float64
	}
	var cells []cell
	var idim, jdim, kdim int
	for _, line := range body {
		items := strings.Fields(line)
		if len(items) != 4 {
			continue
		}
		var idx [3]int
		for n := 0; n < 3; n++ {
			v, err := strconv.Atoi(items[n])
			if err != nil {
				return Parameter{}, fmt.Errorf("apdl: array index %q: %w", items[n], err)
			}
			if v < 1 {
				return Parameter{}, fmt.Errorf("%w: array index %d", ErrNotParameterListing, v)
			}
			idx[n] = v
		}
		v, err := strconv.ParseFloat(items[3], 64)
		if err != nil {
			return Parameter{}, fmt.Errorf("apdl: array value %q: %w", items[3], err)
		}
		cells = append(cells, cell{idx[0], idx[1], idx[2], v})
		idim, jdim, kdim = max(idim, idx[0]), max(jdim, idx[1]), max(kdim, idx[2])
	}

	values := make([]float64, idim*jdim*kdim)
	for _, c := range cells {
		values[((c.i-1)*jdim+(c.j-1))*kdim+(c.k-1)] = c.v
	}
	var shape []int
	for _, d := range []int{idim, jdim, kdim} {
		if d != 1 {
			shape = append(shape, d)
		}
	}
	if len(shape) == 0 {
		shape = []int{1}
	}
	return Parameter{Type: "ARRAY", Shape: shape, Values: values}, nil
}

func prefix(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}

func suffix(s string, n int) string {
	if len(s) < n {
		return ""
	}
	return s[n:]
}
