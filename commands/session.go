package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/calvinmclean/dualstep/motion"
)

// MaxLineLength bounds a buffered command line. Longer lines are discarded
const MaxLineLength = 128

// Stats counts serial traffic since boot
type Stats struct {
	Commands  uint64 `json:"commands"`
	Responses uint64 `json:"responses"`
	Errors    uint64 `json:"errors"`
}

// Session runs command lines against a Controller. Handle, Status and Run may be
// called from different goroutines
type Session struct {
	mu  sync.Mutex
	c   Controller
	log motion.Logger

	commands  atomic.Uint64
	responses atomic.Uint64
	errs      atomic.Uint64
}

// NewSession creates a Session. log may be nil
func NewSession(c Controller, log motion.Logger) *Session {
	if log == nil {
		log = nopLogger{}
	}
	return &Session{c: c, log: log}
}

// Stats returns the traffic counters
func (s *Session) Stats() Stats {
	return Stats{
		Commands:  s.commands.Load(),
		Responses: s.responses.Load(),
		Errors:    s.errs.Load(),
	}
}

// Status reads the controller state between ticks
func (s *Session) Status() motion.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c.Status()
}

// Handle runs one command line and returns the response lines. Blank lines are ignored
func (s *Session) Handle(line string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle(line)
}

func (s *Session) handle(line string) []string {
	req, err := Parse(line)
	if errors.Is(err, ErrEmptyLine) {
		return nil
	}

	s.commands.Add(1)
	s.log.Debugf("RX %s", line)

	var resp []string
	if err == nil {
		if req.Command == StatsCommand {
			resp = s.statsLines()
		} else {
			resp, err = req.Command.Run(s.c, req)
		}
	}
	if err != nil {
		s.errs.Add(1)
		s.log.Infof("command %q failed: %v", line, err)
		resp = errorResponse(err)
	}

	s.responses.Add(1)
	return resp
}

// Tick runs a control tick if one is due
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c.Due() {
		s.c.Tick()
	}
}

// Run reads commands from in and writes responses to out until ctx is done or in
// returns io.EOF. in must not block: any other error from ReadByte means that no byte
// is available yet. Between reads the controller is ticked whenever a tick is due,
// and idle is called on every pass if it is set
func (s *Session) Run(ctx context.Context, in io.ByteReader, out io.Writer, idle func()) error {
	line := make([]byte, 0, MaxLineLength)
	overflow := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// at most one line per pass so a chatty host cannot starve the tick
		for {
			b, err := in.ReadByte()
			if errors.Is(err, io.EOF) {
				if len(line) > 0 && !overflow {
					return writeLines(out, s.Handle(string(line)))
				}
				return nil
			}
			if err != nil {
				break
			}

			if b != '\n' && b != '\r' {
				if len(line) == MaxLineLength {
					overflow = true
					continue
				}
				line = append(line, b)
				continue
			}

			var resp []string
			if overflow {
				s.errs.Add(1)
				s.responses.Add(1)
				resp = []string{"ERR line longer than " + strconv.Itoa(MaxLineLength) + " bytes"}
			} else {
				resp = s.Handle(string(line))
			}
			line = line[:0]
			overflow = false

			err = writeLines(out, resp)
			if err != nil {
				return err
			}
			if len(resp) > 0 {
				break
			}
		}

		s.Tick()

		if idle != nil {
			idle()
		}
	}
}

func (s *Session) statsLines() []string {
	st := s.Stats()
	status := s.c.Status()
	return []string{
		"========== STATISTICS ==========",
		"Commands received: " + strconv.FormatUint(st.Commands, 10),
		"Responses sent: " + strconv.FormatUint(st.Responses, 10),
		"Errors: " + strconv.FormatUint(st.Errors, 10),
		"Steps executed: " + strconv.FormatUint(status.Steps(), 10),
		"Uptime: " + strconv.FormatFloat(status.UptimeSeconds, 'f', 1, 64) + " s",
		"================================",
	}
}

func errorResponse(err error) []string {
	switch {
	case errors.Is(err, motion.ErrEmergencyStop):
		return []string{"ERR BUSY"}
	case errors.Is(err, ErrUnknownVerb):
		return append([]string{"ERR " + err.Error()}, helpLines()...)
	default:
		return []string{"ERR " + err.Error()}
	}
}

func writeLines(out io.Writer, lines []string) error {
	for _, l := range lines {
		_, err := io.WriteString(out, l+"\r\n")
		if err != nil {
			return fmt.Errorf("error writing response: %w", err)
		}
	}
	return nil
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
