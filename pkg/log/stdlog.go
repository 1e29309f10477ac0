package log

import (
	stdlog "log"
	"strings"
)

// RedirectStdLog routes the standard library's default logger through l at
// info level. Libraries that log via the stdlib (e.g. net/http server
// errors) then share trackd's output format.
func RedirectStdLog(l Logger) {
	stdlog.SetFlags(0)
	stdlog.SetOutput(stdLogWriter{l: l})
}

type stdLogWriter struct{ l Logger }

func (w stdLogWriter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\n")
	if msg != "" {
		w.l.Info(msg)
	}
	return len(p), nil
}
