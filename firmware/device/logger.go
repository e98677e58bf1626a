//go:build tinygo

package device

import (
	"fmt"
	"time"
)

// logger prints to the console with the time since boot. Debug output needs verbose
type logger struct {
	start   time.Time
	verbose bool
}

func (l *logger) Debugf(format string, args ...any) {
	if !l.verbose {
		return
	}
	println(l.ts(), fmt.Sprintf(format, args...))
}

func (l *logger) Infof(format string, args ...any) {
	println(l.ts(), fmt.Sprintf(format, args...))
}

func (l *logger) Warnf(format string, args ...any) {
	println(l.ts(), "warning:", fmt.Sprintf(format, args...))
}

// ts returns the duration timestamp for logging
func (l *logger) ts() string {
	return "[" + time.Since(l.start).Truncate(time.Millisecond).String() + "]"
}
