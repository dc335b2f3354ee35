// Package logging provides the unadorned, timestamp-prefixed logger used
// throughout trackserver. It deliberately does not do structured fields;
// every caller formats its own message, the way the reference tools in
// this codebase's lineage always have.
package logging

import (
	"fmt"
	"log"
	"os"
)

// Logger wraps a standard library *log.Logger with a named component
// prefix, so "decode: ..." and "netio: ..." lines stay greppable without
// needing a structured log pipeline.
type Logger struct {
	component string
	l         *log.Logger
}

// New returns a Logger that writes to stderr, tagged with component.
func New(component string) *Logger {
	return &Logger{
		component: component,
		l:         log.New(os.Stderr, "", log.LstdFlags),
	}
}

func (lg *Logger) Printf(format string, args ...interface{}) {
	lg.l.Printf("%s: %s", lg.component, fmt.Sprintf(format, args...))
}

func (lg *Logger) Println(args ...interface{}) {
	lg.l.Println(append([]interface{}{lg.component + ":"}, args...)...)
}

// Fatalf logs and exits the process. Reserved for unrecoverable
// startup failures (config load, listen-socket bind) -- never called
// from steady-state decode or I/O paths.
func (lg *Logger) Fatalf(format string, args ...interface{}) {
	lg.l.Fatalf("%s: %s", lg.component, fmt.Sprintf(format, args...))
}
