package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/calvinmclean/dualstep"
)

var (
	ErrUnknownVerb     = errors.New("unknown command")
	ErrUnknownSelector = errors.New("unknown motor")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrEmptyLine       = errors.New("empty line")
)

// Request is one parsed command line
type Request struct {
	Selector dualstep.Selector
	Command  *Command
	// Arg is the word argument for commands that take one, such as LEFT in SPIN:LEFT:1000
	Arg    string
	Values []float64
}

// Value returns the i'th numeric value, or 0 when it was not given
func (r Request) Value(i int) float64 {
	if i < len(r.Values) {
		return r.Values[i]
	}
	return 0
}

// Parse reads [M1:|1:|M2:|2:]VERB[:ARG][:VALUE...]. Input is case-insensitive and
// numbers that do not parse are read as 0
func Parse(line string) (Request, error) {
	line = strings.ToUpper(strings.TrimSpace(line))
	if line == "" {
		return Request{}, ErrEmptyLine
	}

	fields := strings.Split(line, ":")
	req := Request{Selector: dualstep.SelectBoth}

	sel, ok, err := parseSelector(fields[0])
	if err != nil {
		return Request{}, err
	}
	if ok {
		req.Selector = sel
		fields = fields[1:]
		if len(fields) == 0 {
			return Request{}, fmt.Errorf("%w: %s", ErrUnknownVerb, line)
		}
	}

	cmd, ok := lookup(fields[0])
	if !ok {
		return Request{}, fmt.Errorf("%w: %s", ErrUnknownVerb, fields[0])
	}
	req.Command = cmd
	fields = fields[1:]

	if cmd.Global {
		req.Selector = dualstep.SelectBoth
	}

	if len(cmd.Args) > 0 {
		if len(fields) == 0 {
			return Request{}, fmt.Errorf("%w: %s requires one of %s", ErrInvalidArgument, cmd.Verb, strings.Join(cmd.Args, ", "))
		}
		arg, ok := cmd.arg(fields[0])
		if !ok {
			return Request{}, fmt.Errorf("%w: %s %s (use %s)", ErrInvalidArgument, cmd.Verb, fields[0], strings.Join(cmd.Args, ", "))
		}
		req.Arg = arg
		fields = fields[1:]
	}

	for _, f := range fields {
		req.Values = append(req.Values, parseNumber(f))
	}

	return req, nil
}

// parseSelector recognizes a motor prefix. A token that looks like a motor but is
// not one of the two is an error rather than a verb
func parseSelector(s string) (dualstep.Selector, bool, error) {
	switch s {
	case "M1", "1":
		return dualstep.SelectMotor1, true, nil
	case "M2", "2":
		return dualstep.SelectMotor2, true, nil
	}

	digits := strings.TrimPrefix(s, "M")
	if digits != "" {
		if _, err := strconv.Atoi(digits); err == nil {
			return 0, false, fmt.Errorf("%w: %s", ErrUnknownSelector, s)
		}
	}
	return dualstep.SelectBoth, false, nil
}

func parseNumber(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
