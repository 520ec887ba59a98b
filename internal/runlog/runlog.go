// Copyright 2026, Kerby Shedden and the CompAIRR contributors.

// Package runlog builds the per-run *log.Logger every compairr
// subcommand writes to, stamped with a run id for correlation. Every
// muscato binary opens its own "<name>.log" and logs through a single
// package-level *log.Logger (setupLog() in each cmd/muscato_* main);
// this generalizes that to a run-scoped logger returned to the
// caller instead of a global, and adds the run-id banner SPEC_FULL
// §6 calls for.
package runlog

import (
	"io"
	"log"
	"os"

	"github.com/google/uuid"
)

// Logger wraps the run's *log.Logger together with its run id.
type Logger struct {
	*log.Logger
	RunID uuid.UUID
}

// New opens the given log path ("-" or "" for stderr, otherwise a
// transparently-compressed path per SPEC_FULL §6) and returns a ready
// logger with the run-id banner already written.
func New(path string, openWriter func(path string) (io.WriteCloser, error)) (*Logger, func() error, error) {
	var w io.Writer
	closer := func() error { return nil }

	switch path {
	case "", "-":
		w = os.Stderr
	default:
		wc, err := openWriter(path)
		if err != nil {
			return nil, nil, err
		}
		w = wc
		closer = wc.Close
	}

	l := &Logger{
		Logger: log.New(w, "", log.Ldate|log.Ltime),
		RunID:  uuid.New(),
	}
	l.Printf("run id: %s", l.RunID)
	return l, closer, nil
}

// Banner logs the effective, fully-resolved option set for the run,
// matching compairr.cc's own startup dump of effective parameters
// (SPEC_FULL §10).
func (l *Logger) Banner(fields map[string]string) {
	l.Printf("effective options:")
	for k, v := range fields {
		l.Printf("  %s = %s", k, v)
	}
}
