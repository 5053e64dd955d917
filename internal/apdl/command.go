// Package apdl builds APDL command lines and interprets the text the
// solver sends back.
//
// Ownership boundary:
// - command string formatting and interactive-session guards
//
// - response classification into typed errors
//
// - regex extraction of entity ids, listings and *STATUS tables
package apdl

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MaxCommandLength is the longest line the solver accepts.
const MaxCommandLength = 639

var (
	ErrEmptyCommand     = errors.New("apdl: empty command")
	ErrMultilineCommand = errors.New("apdl: multi-line command; use input strings instead")
	ErrCommandTooLong   = errors.New("apdl: command exceeds maximum length")
	ErrInvalidCommand   = errors.New("apdl: command not supported in an interactive session")
	ErrParameterName    = errors.New("apdl: invalid parameter name")
)

// invalidCommands cannot run interactively. Keys are 3 or 4 character
// command prefixes.
var invalidCommands = map[string]string{
	"*VWR": "write the file locally or run *VWRITE in a non-interactive block",
	"*CFO": "run CFOPEN in a non-interactive block",
	"*CRE": "create the macro locally or run it in a non-interactive block",
	"*END": "create the macro locally or run it in a non-interactive block",
	"/EOF": "unsupported; exit the session instead",
	"*ASK": "unsupported; prompt locally instead",
	"*IF":  "branch locally or run *IF in a non-interactive block",
	"CMAT": "run CMAT in a non-interactive block",
	"*REP": "run *REPEAT in a non-interactive block",
	"LSRE": "run LSREAD in a non-interactive block",
}

// silentCommands are replaced by a /COM note instead of failing.
var silentCommands = map[string]string{
	"/NOPR": "suppressing console output is disabled in interactive mode, mute the call instead",
}

// PlotCommands render to the graphics device.
var PlotCommands = []string{"NPLO", "EPLO", "KPLO", "LPLO", "APLO", "VPLO", "PLNS", "PLES"}

// Command formats label followed by comma separated positional arguments.
// Trailing empty fields are kept because APDL arguments are positional.
func Command(label string, args ...any) string {
	var b strings.Builder
	b.WriteString(label)
	for _, arg := range args {
		b.WriteByte(',')
		b.WriteString(FormatArg(arg))
	}
	return b.String()
}

// FormatArg renders one command argument.
func FormatArg(arg any) string {
	switch v := arg.(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		if v {
			return "1"
		}
		return "0"
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// ShortCommand returns the first four characters of the command label,
// upper cased. "VPLOT, ALL" -> "VPLO", "K,,1,0,0" -> "K".
func ShortCommand(command string) string {
	label := strings.ToUpper(strings.TrimSpace(strings.SplitN(command, ",", 2)[0]))
	if len(label) > 4 {
		label = label[:4]
	}
	return label
}

func IsPlotCommand(command string) bool {
	short := ShortCommand(command)
	for _, p := range PlotCommands {
		if p == short {
			return true
		}
	}
	return false
}

// CheckLine validates the shape of a single command line.
func CheckLine(command string) error {
	if strings.TrimSpace(command) == "" {
		return ErrEmptyCommand
	}
	if strings.ContainsAny(command, "\r\n") {
		return ErrMultilineCommand
	}
	if len(command) > MaxCommandLength {
		return fmt.Errorf("%w: %d > %d", ErrCommandTooLong, len(command), MaxCommandLength)
	}
	return nil
}

// PrepareInteractive rewrites or rejects command before it is sent over an
// interactive session. The bool result reports a silent rewrite.
func PrepareInteractive(command string) (string, bool, error) {
	command = strings.TrimSpace(command)
	upper := strings.ToUpper(command)

	if strings.HasPrefix(upper, "/CLE") {
		return "/CLE,NOSTART", false, nil
	}

	label := strings.TrimSpace(strings.SplitN(upper, ",", 2)[0])
	if note, ok := silentCommands[label]; ok {
		return fmt.Sprintf("/COM,mapdlctl: %s is ignored: %s", label, note), true, nil
	}

	for _, n := range []int{3, 4} {
		if len(upper) < n {
			continue
		}
		if hint, ok := invalidCommands[upper[:n]]; ok {
			return "", false, fmt.Errorf("%w: %q: %s", ErrInvalidCommand, command, hint)
		}
	}

	if name, ok := assignedParameter(command, label); ok {
		if err := CheckParameterName(name); err != nil {
			return "", false, err
		}
	}
	return command, false, nil
}

func assignedParameter(command, label string) (string, bool) {
	if !strings.Contains(command, "=") {
		return "", false
	}
	if strings.Contains(label, "/COM") || strings.Contains(label, "/TITLE") {
		return "", false
	}
	return strings.TrimSpace(strings.SplitN(command, "=", 2)[0]), true
}

var (
	validParameterName    = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z\d_\(\),\s\%]{0,31}$`)
	reservedUnderscore    = regexp.MustCompile(`^_[a-zA-Z\d_\(\),\s_]{1,31}[a-zA-Z\d\(\),\s]$`)
	reservedArgName       = regexp.MustCompile(`^(AR|ARG)(\d{1,3})$`)
	indexedParameterStart = regexp.MustCompile(`^(.*?)\(`)
)

// CheckParameterName validates the left side of a NAME=value command.
func CheckParameterName(name string) error {
	name = strings.TrimSpace(name)
	if !validParameterName.MatchString(name) {
		return fmt.Errorf("%w: %q: letters, digits and _ only, up to 32 characters, not starting with a digit", ErrParameterName, name)
	}

	if strings.ContainsAny(name, "()") {
		if strings.Count(name, "(") != strings.Count(name, ")") {
			return fmt.Errorf("%w: %q: unbalanced parenthesis", ErrParameterName, name)
		}
		if !strings.HasSuffix(name, ")") {
			return fmt.Errorf("%w: %q: characters after closing parenthesis", ErrParameterName, name)
		}
		if m := indexedParameterStart.FindStringSubmatch(name); m != nil {
			return CheckParameterName(m[1])
		}
	}

	if reservedUnderscore.MatchString(name) {
		return fmt.Errorf("%w: %q: leading underscore names are reserved for solver macros", ErrParameterName, name)
	}
	if reservedArgName.MatchString(strings.ToUpper(name)) {
		return fmt.Errorf("%w: %q: ARGxx and ARxx are reserved for macro locals", ErrParameterName, name)
	}
	return nil
}

// CleanResponse normalizes escaped line breaks in solver output.
func CleanResponse(text string) string {
	text = strings.ReplaceAll(text, `\r\n`, "\n")
	text = strings.ReplaceAll(text, `\n`, "\n")
	return strings.TrimSpace(text)
}
