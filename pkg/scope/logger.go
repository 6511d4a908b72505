// SPDX-License-Identifier: Apache-2.0

package scope

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
)

// Field is one piece of structured context attached to a log line.
type Field struct {
	Key   string
	Value any
}

// F builds a Field.
func F(key string, value any) Field { return Field{Key: key, Value: value} }

// Logger receives scope lifecycle events (begin/commit/rollback/savepoint);
// savepoint events arrive at debug level.
type Logger interface {
	Info(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
}

// NoopLogger discards everything; it is the default when a Config carries
// no Logger.
type NoopLogger struct{}

func (NoopLogger) Info(string, ...Field)  {}
func (NoopLogger) Debug(string, ...Field) {}

// PtermLogger renders scope events with pterm, for interactive use
// from the tk CLI.
type PtermLogger struct {
	Verbose bool
}

func (l PtermLogger) Info(msg string, fields ...Field) {
	pterm.Info.Println(format(msg, fields))
}

func (l PtermLogger) Debug(msg string, fields ...Field) {
	if !l.Verbose {
		return
	}
	pterm.Debug.Println(format(msg, fields))
}

func format(msg string, fields []Field) string {
	if len(fields) == 0 {
		return msg
	}
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = fmt.Sprintf("%s=%v", f.Key, f.Value)
	}
	return msg + " " + strings.Join(parts, " ")
}
