package apdl

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

var (
	ErrFileNotFound    = errors.New("apdl: unable to open file")
	ErrInvalidRoutine  = errors.New("apdl: command not recognized in the active routine")
	ErrCommandIgnored  = errors.New("apdl: command ignored")
	ErrComponentNoData = errors.New("apdl: component contains no data")
)

// ResponseError carries the solver text that produced a classified error.
type ResponseError struct {
	Kind error
	Text string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%v\n\n%s", e.Kind, e.Text)
}

func (e *ResponseError) Unwrap() error { return e.Kind }

// RuntimeError is the first *** ERROR *** block of a response that is not
// a permitted error.
type RuntimeError struct {
	Message string
}

func (e *RuntimeError) Error() string {
	return "apdl: solver error\n\n" + e.Message
}

const errorHeader = "*** ERROR ***"

// errorBlockLines bounds how much of the response is scanned per error.
const errorBlockLines = 20

var permittedErrors = []string{
	"highly distorted",
	"is turning inside out",
	"The distributed memory parallel solution does not support KRYLOV method",
}

// CheckResponse classifies solver output. Conditions are matched on the
// whitespace-flattened text so messages wrapped across lines still match.
func CheckResponse(text string) error {
	flat := flatten(text)
	lower := strings.ToLower(flat)

	switch {
	case strings.Contains(lower, "unable to open file"),
		strings.Contains(lower, "unable to open") && strings.Contains(lower, "file"):
		return &ResponseError{Kind: ErrFileNotFound, Text: text}
	case strings.Contains(flat, "is not a recognized"):
		return &ResponseError{Kind: ErrInvalidRoutine, Text: strings.ReplaceAll(text, "This command will be ignored.", "")}
	case strings.Contains(flat, "command is ignored"):
		return &ResponseError{Kind: ErrCommandIgnored, Text: text}
	case strings.Contains(flat, "The component definition of") && strings.Contains(flat, "contains no data."):
		return &ResponseError{Kind: ErrComponentNoData, Text: text}
	case strings.Contains(flat, "is not part of the currently active set."),
		strings.Contains(flat, "No nodes defined."):
		return &ResponseError{Kind: ErrCommandIgnored, Text: text}
	}

	if strings.Contains(flat, "For element type = ") && strings.Contains(flat, "is invalid.") {
		if !strings.Contains(flat, "is normal behavior when a CDB file is used.") {
			return &ResponseError{Kind: ErrCommandIgnored, Text: text}
		}
		log.Warn().Str("response", text).Msg("apdl: invalid element type accepted for CDB input")
	}
	if strings.Contains(flat, "Cannot create another with the same name") {
		log.Warn().Str("response", text).Msg("apdl: constitutive model overridden")
	}

	if strings.Contains(flat, errorHeader) {
		return outputError(text)
	}
	return nil
}

func flatten(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.Join(lines, " ")
}

func outputError(text string) error {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, line := range lines {
		if !strings.Contains(line, errorHeader) {
			continue
		}
		block := errorBlock(lines[i:])
		if permitted(block) {
			log.Warn().Str("error", strings.Join(block, "\n")).Msg("apdl: permitted solver error")
			continue
		}
		return &RuntimeError{Message: strings.Join(block, "\n")}
	}
	return nil
}

// errorBlock returns the header line and the message lines that follow it,
// ending at the next *** banner or a blank-line gap.
func errorBlock(lines []string) []string {
	if len(lines) > errorBlockLines {
		lines = lines[:errorBlockLines]
	}
	block := []string{lines[0]}
	for j := 1; j < len(lines); j++ {
		line := lines[j]
		if strings.Contains(line, "***") {
			break
		}
		if strings.TrimSpace(line) == "" {
			if j+1 < len(lines) && strings.TrimSpace(lines[j+1]) == "" {
				break
			}
			continue
		}
		block = append(block, line)
	}
	return block
}

func permitted(block []string) bool {
	if len(block) < 2 {
		return false
	}
	body := strings.Join(block[1:], " ")
	for _, msg := range permittedErrors {
		if strings.Contains(body, msg) {
			return true
		}
	}
	return false
}
