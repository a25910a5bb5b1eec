// Copyright (C) 2019-2022  Ambassador Labs
// Copyright (C) 2022-2024  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: Apache-2.0

package textui

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/datawire/dlib/dlog"
	"github.com/spf13/pflag"
)

// LogLevelFlag adapts dlog.LogLevel as a pflag.Value, for a
// "--verbosity" flag.
type LogLevelFlag struct {
	Level dlog.LogLevel
}

var _ pflag.Value = (*LogLevelFlag)(nil)

func (lvl *LogLevelFlag) Type() string { return "loglevel" }

func (lvl *LogLevelFlag) Set(str string) error {
	switch strings.ToLower(str) {
	case "error":
		lvl.Level = dlog.LogLevelError
	case "warn", "warning":
		lvl.Level = dlog.LogLevelWarn
	case "info":
		lvl.Level = dlog.LogLevelInfo
	case "debug":
		lvl.Level = dlog.LogLevelDebug
	case "trace":
		lvl.Level = dlog.LogLevelTrace
	default:
		return fmt.Errorf("invalid log level: %q", str)
	}
	return nil
}

func (lvl *LogLevelFlag) String() string {
	switch lvl.Level {
	case dlog.LogLevelError:
		return "error"
	case dlog.LogLevelWarn:
		return "warn"
	case dlog.LogLevelInfo:
		return "info"
	case dlog.LogLevelDebug:
		return "debug"
	case dlog.LogLevelTrace:
		return "trace"
	default:
		panic(fmt.Errorf("invalid log level: %#v", lvl.Level))
	}
}

// logger is a minimal dlog.Logger that writes aligned, single-line
// records to an io.Writer: timestamp, level, message, then any fields
// attached via WithField, sorted by key.
type logger struct {
	parent *logger
	out    io.Writer
	lvl    dlog.LogLevel

	// only valid if parent is non-nil
	fieldKey string
	fieldVal any
}

var _ dlog.OptimizedLogger = (*logger)(nil)

// NewLogger returns a dlog.Logger that writes to out, discarding any
// message logged above lvl.
func NewLogger(out io.Writer, lvl dlog.LogLevel) dlog.Logger {
	return &logger{out: out, lvl: lvl}
}

func (l *logger) Helper() {}

func (l *logger) WithField(key string, value any) dlog.Logger {
	return &logger{
		parent:   l,
		out:      l.out,
		lvl:      l.lvl,
		fieldKey: key,
		fieldVal: value,
	}
}

type logWriter struct {
	log *logger
	lvl dlog.LogLevel
}

func (lw logWriter) Write(data []byte) (int, error) {
	lw.log.log(lw.lvl, func(w io.Writer) { _, _ = w.Write(data) })
	return len(data), nil
}

func (l *logger) StdLogger(lvl dlog.LogLevel) *log.Logger {
	return log.New(logWriter{log: l, lvl: lvl}, "", 0)
}

func (l *logger) Log(lvl dlog.LogLevel, msg string) {
	panic("should not happen: optimized log methods should be used instead")
}

func (l *logger) UnformattedLog(lvl dlog.LogLevel, args ...any) {
	l.log(lvl, func(w io.Writer) { _, _ = printer.Fprint(w, args...) })
}

func (l *logger) UnformattedLogln(lvl dlog.LogLevel, args ...any) {
	l.log(lvl, func(w io.Writer) { _, _ = printer.Fprintln(w, args...) })
}

func (l *logger) UnformattedLogf(lvl dlog.LogLevel, format string, args ...any) {
	l.log(lvl, func(w io.Writer) { _, _ = printer.Fprintf(w, format, args...) })
}

var logMu sync.Mutex

const logTimeFmt = "2006-01-02 15:04:05.0000"

func (l *logger) log(lvl dlog.LogLevel, writeMsg func(io.Writer)) {
	if lvl > l.lvl {
		return
	}
	var buf bytes.Buffer

	buf.WriteString(time.Now().Format(logTimeFmt))
	switch lvl {
	case dlog.LogLevelError:
		buf.WriteString(" ERR")
	case dlog.LogLevelWarn:
		buf.WriteString(" WRN")
	case dlog.LogLevelInfo:
		buf.WriteString(" INF")
	case dlog.LogLevelDebug:
		buf.WriteString(" DBG")
	case dlog.LogLevelTrace:
		buf.WriteString(" TRC")
	}
	buf.WriteString(" : ")
	writeMsg(&buf)

	fields := make(map[string]any)
	var keys []string
	for f := l; f.parent != nil; f = f.parent {
		if _, ok := fields[f.fieldKey]; ok {
			continue
		}
		fields[f.fieldKey] = f.fieldVal
		keys = append(keys, f.fieldKey)
	}
	sort.Strings(keys)
	for i, key := range keys {
		if i == 0 {
			buf.WriteString(" :")
		}
		writeField(&buf, key, fields[key])
	}

	buf.WriteByte('\n')
	logMu.Lock()
	_, _ = l.out.Write(buf.Bytes())
	logMu.Unlock()
}

func writeField(w io.Writer, key string, val any) {
	var valBuf bytes.Buffer
	_, _ = printer.Fprint(&valBuf, val)
	needsQuote := bytes.HasPrefix(valBuf.Bytes(), []byte(`"`))
	if !needsQuote {
		for _, r := range valBuf.String() {
			if !unicode.IsPrint(r) || r == ' ' {
				needsQuote = true
				break
			}
		}
	}
	if needsQuote {
		fmt.Fprintf(w, " %s=%q", key, valBuf.String())
		return
	}
	fmt.Fprintf(w, " %s=%s", key, valBuf.String())
}
