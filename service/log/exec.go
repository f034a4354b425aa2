package log

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type execOption struct {
	outl, errl zapcore.Level
	outf, errf Filter
}

// ExecOption is an option that can be passed to Exec()
type ExecOption func(eo *execOption)

// StdoutLevel sets the level at which stdout should be logged
func StdoutLevel(l zapcore.Level) ExecOption {
	return func(eo *execOption) { eo.outl = l }
}

// StderrLevel sets the level at which stderr should be logged
func StderrLevel(l zapcore.Level) ExecOption {
	return func(eo *execOption) { eo.errl = l }
}

// Filter receives a line and its default level, and returns the line to log with its level.
// The line is dropped if ignore is true.
type Filter interface {
	Filter(msg string, defaultLevel zapcore.Level) (_ string, _ zapcore.Level, ignore bool)
}

// FilterFunc is a function implementing Filter
type FilterFunc func(msg string, defaultLevel zapcore.Level) (string, zapcore.Level, bool)

// Filter implements Filter
func (f FilterFunc) Filter(msg string, defaultLevel zapcore.Level) (string, zapcore.Level, bool) {
	return f(msg, defaultLevel)
}

// StdoutFilter sets the filter applied on each line of stdout
func StdoutFilter(f Filter) ExecOption {
	return func(eo *execOption) { eo.outf = f }
}

// StderrFilter sets the filter applied on each line of stderr
func StderrFilter(f Filter) ExecOption {
	return func(eo *execOption) { eo.errf = f }
}

// GDALFilter drops the progress lines of the GDAL command line utilities
// and logs "ERROR n:" lines at error level.
var GDALFilter = FilterFunc(func(msg string, level zapcore.Level) (string, zapcore.Level, bool) {
	msg = strings.TrimSpace(msg)
	switch {
	case msg == "":
		return msg, level, true
	case strings.HasPrefix(msg, "0...10...") || msg == "done.":
		return msg, level, true
	case strings.HasPrefix(msg, "ERROR"):
		return msg, zapcore.ErrorLevel, false
	case strings.HasPrefix(msg, "Warning"):
		return msg, zapcore.WarnLevel, false
	}
	return msg, level, false
})

// Exec runs cmd, sending the lines of its stdout (Info by default) and stderr (Warn by default)
// to Logger(ctx), unless cmd.Stdout or cmd.Stderr are already set.
// On ctx cancellation, the process is killed and ctx.Err() is returned.
func Exec(ctx context.Context, cmd *exec.Cmd, options ...ExecOption) error {
	opts := execOption{
		outl: zapcore.InfoLevel,
		errl: zapcore.WarnLevel,
	}
	for _, eo := range options {
		eo(&opts)
	}

	logger := Logger(ctx).With(zap.String("cmd", cmd.Path))
	var pipes []struct {
		r io.Reader
		l *levelledLogger
	}
	if cmd.Stdout == nil {
		r, err := cmd.StdoutPipe()
		if err != nil {
			return fmt.Errorf("Exec.StdoutPipe: %w", err)
		}
		pipes = append(pipes, struct {
			r io.Reader
			l *levelledLogger
		}{r, &levelledLogger{logger, opts.outl, opts.outf}})
	}
	if cmd.Stderr == nil {
		r, err := cmd.StderrPipe()
		if err != nil {
			return fmt.Errorf("Exec.StderrPipe: %w", err)
		}
		pipes = append(pipes, struct {
			r io.Reader
			l *levelledLogger
		}{r, &levelledLogger{logger, opts.errl, opts.errf}})
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("Exec.Start: %w", err)
	}

	logwg := sync.WaitGroup{}
	for _, p := range pipes {
		logwg.Add(1)
		go func() {
			defer logwg.Done()
			logLines(p.r, p.l)
		}()
	}

	done := make(chan error, 1)
	go func() {
		// the pipes must be drained before Wait closes them
		logwg.Wait()
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if err := cmd.Process.Kill(); err != nil {
			logger.Sugar().Warnf("kill: %v", err)
		}
		<-done
		return ctx.Err()
	}
}

func logLines(sr io.Reader, logger *levelledLogger) {
	r := bufio.NewReader(sr)
	clipped := false
	for {
		line, err := r.ReadSlice('\n')
		switch {
		case err == bufio.ErrBufferFull:
			if !clipped {
				logger.Print(fmt.Sprintf("%s ...[Message clipped]", line))
			}
			clipped = true
			continue
		case clipped:
			// end of a clipped line
			clipped = false
		case len(line) > 0:
			logger.Print(string(line))
		}
		if err != nil {
			return
		}
	}
}

type levelledLogger struct {
	*zap.Logger
	level  zapcore.Level
	filter Filter
}

func (l levelledLogger) Print(msg string) {
	level := l.level
	if l.filter != nil {
		var ignore bool
		if msg, level, ignore = l.filter.Filter(msg, level); ignore {
			return
		}
	}
	if ce := l.Check(level, strings.TrimRight(msg, "\n")); ce != nil {
		ce.Write()
	}
}
