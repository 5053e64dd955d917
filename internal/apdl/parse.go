package apdl

import (
	"regexp"
	"strconv"
)

var (
	reKeypointNumber = regexp.MustCompile(`KEYPOINT NUMBER =\s*([0-9]+)`)
	reKeypoint       = regexp.MustCompile(`KEYPOINT\s*([0-9]+)`)
	reKpoint         = regexp.MustCompile(`kpoint=\s+(\d+)`)
	reKeypointList   = regexp.MustCompile(`KEYPOINT\s+(\d+)\s+`)
	reKeypointNode   = regexp.MustCompile(`KEYPOINT NUMBER =\s+(\d+)`)
	reNode           = regexp.MustCompile(`NODE\s*([0-9]+)`)
	reElement        = regexp.MustCompile(`ELEMENT\s*([0-9]+)`)
	reElementType    = regexp.MustCompile(`ELEMENT TYPE\s*([0-9]+)`)
	reLineNo         = regexp.MustCompile(`LINE NO[.]=\s+(\d+)`)
	reAreaNumber     = regexp.MustCompile(`AREA NUMBER =\s*([0-9]+)`)
	reOutputEntity   = regexp.MustCompile(`OUTPUT (?:AREA|VOLUME|AREAS|VOLUMES) =\s*([0-9]+)`)
	reMeshedArea     = regexp.MustCompile(`Meshing of area (\d*) completed \*\* (\d*) elements`)
	reNumber         = regexp.MustCompile(`[+-]?[0-9]*[.]?[0-9]*[Ee]?[+-]?[0-9]+`)
)

func firstInt(re *regexp.Regexp, text string) (int, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return v, true
}

func allInts(re *regexp.Regexp, text string) []int {
	var out []int
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if v, err := strconv.Atoi(m[1]); err == nil {
			out = append(out, v)
		}
	}
	return out
}

// ParseK extracts the keypoint number created by K.
func ParseK(text string) (int, bool) {
	if v, ok := firstInt(reKeypointNumber, text); ok {
		return v, true
	}
	return firstInt(reKeypoint, text)
}

// ParseKpoint extracts the keypoint from a "kpoint=" listing.
func ParseKpoint(text string) (int, bool) { return firstInt(reKpoint, text) }

// ParseKL extracts the keypoint created on a line by KL.
func ParseKL(text string) (int, bool) { return firstInt(reKeypointList, text) }

// ParseKNode extracts the keypoint created at a node by KNODE.
func ParseKNode(text string) (int, bool) { return firstInt(reKeypointNode, text) }

func ParseN(text string) (int, bool) { return firstInt(reNode, text) }

func ParseE(text string) (int, bool) { return firstInt(reElement, text) }

func ParseET(text string) (int, bool) { return firstInt(reElementType, text) }

// ParseLineNo extracts the first line number created by L, LARC and friends.
func ParseLineNo(text string) (int, bool) { return firstInt(reLineNo, text) }

// ParseLineNos extracts every line number in the response.
func ParseLineNos(text string) []int { return allInts(reLineNo, text) }

func ParseA(text string) (int, bool) { return firstInt(reAreaNumber, text) }

// ParseOutputVolumeArea extracts the result of a boolean operation such as
// VADD or AGLUE.
func ParseOutputVolumeArea(text string) (int, bool) { return firstInt(reOutputEntity, text) }

// ParseMeshedAreas maps area number to the element count reported by AMESH.
func ParseMeshedAreas(text string) map[int]int {
	out := map[int]int{}
	for _, m := range reMeshedArea.FindAllStringSubmatch(text, -1) {
		area, err1 := strconv.Atoi(m[1])
		elems, err2 := strconv.Atoi(m[2])
		if err1 == nil && err2 == nil {
			out[area] = elems
		}
	}
	return out
}

// ParseNumbers returns every numeric literal in text.
func ParseNumbers(text string) []float64 {
	var out []float64
	for _, s := range reNumber.FindAllString(text, -1) {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			out = append(out, v)
		}
	}
	return out
}

// ParseKDist returns the last four numbers of a KDIST response, which hold
// the distance and its coordinate offsets in printed order.
func ParseKDist(text string) ([]float64, bool) {
	nums := ParseNumbers(text)
	if len(nums) < 4 {
		return nil, false
	}
	return nums[len(nums)-4:], true
}
