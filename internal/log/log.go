package log

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"

	"github.com/mickamy/ramster/orm"
	"github.com/mickamy/ramster/query"
)

var (
	mu     sync.Mutex
	output io.Writer = color.Output
)

// SetOutput redirects log lines and returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	mu.Lock()
	defer mu.Unlock()
	prev := output
	output = w
	return prev
}

func write(tag string, line string) {
	mu.Lock()
	defer mu.Unlock()
	_, _ = fmt.Fprintf(output, "%s %s\n", tag, line)
}

// formatLog prefixes msg with the transaction id carried by ctx, if any.
func formatLog(ctx context.Context, format string, a ...any) string {
	msg := fmt.Sprintf(format, a...)
	if ctx == nil {
		return msg
	}
	if id := orm.TxID(ctx); id != "" {
		return fmt.Sprintf("[tx=%s] %s", id, msg)
	}
	return msg
}

var (
	infoTag  = color.New(color.FgWhite, color.BgGreen).SprintFunc()
	warnTag  = color.New(color.FgWhite, color.BgYellow).SprintFunc()
	errorTag = color.New(color.FgRed).SprintFunc()
	sqlTag   = color.New(color.FgCyan).SprintFunc()
)

// Info log information
func Info(format string, a ...any) {
	write(infoTag("[INFO] "), fmt.Sprintf(format, a...))
}

// InfoWithContext logs information with the transaction id of ctx.
func InfoWithContext(ctx context.Context, format string, a ...any) {
	write(infoTag("[INFO] "), formatLog(ctx, format, a...))
}

// Warn log warning
func Warn(format string, a ...any) {
	write(warnTag("[WARN] "), fmt.Sprintf(format, a...))
}

// Error log error
func Error(format string, a ...any) {
	write(errorTag("[Error]"), fmt.Sprintf(format, a...))
}

// Dump renders values with their types for inspection.
func Dump(a ...any) string {
	return spew.Sdump(a...)
}

// SQLLogger prints every statement with its arguments inlined. It
// satisfies orm.Logger.
type SQLLogger struct {
	Dialect orm.Dialect
}

var _ orm.Logger = (*SQLLogger)(nil)

// NewSQLLogger returns a statement logger for d.
func NewSQLLogger(d orm.Dialect) *SQLLogger {
	return &SQLLogger{Dialect: d}
}

func (l *SQLLogger) Log(ctx context.Context, sql string, args ...any) {
	stmt := query.Statement{SQL: sql, Args: args}
	write(sqlTag("[SQL]  "), formatLog(ctx, "%s", stmt.Interpolate(l.Dialect)))
}
