// Package config holds the flat option record consumed at start-up
// (flash image path, RAM fill policy, trap-capture mode, debug port,
// ...) plus a small colored status printer for the command-line
// front-end. Grounded on the teacher's models.Config
// (go/models/config.go) for the option-bag shape and go/cmd/cmd.go's
// PrintError for the pkg/errors stack-trace-aware error report.
package config

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/mgutz/ansi"
	"github.com/pkg/errors"

	"github.com/lunixbochs/rv32im-emu/internal/mem"
)

// FillPolicy is the wire/flag-facing name for a mem.FillPolicy value.
type FillPolicy string

const (
	FillZero     FillPolicy = "zero"
	FillOne      FillPolicy = "one"
	FillRandom   FillPolicy = "random"
	FillCdcdcdcd FillPolicy = "cdcdcdcd"
)

// Mem converts a FillPolicy into the mem package's own enum. Reports
// false for any string that isn't one of the four named policies.
func (f FillPolicy) Mem() (mem.FillPolicy, bool) {
	switch f {
	case FillZero:
		return mem.FillZero, true
	case FillOne:
		return mem.FillOne, true
	case FillRandom:
		return mem.FillRandom, true
	case FillCdcdcdcd:
		return mem.FillCdcdcdcd, true
	default:
		return 0, false
	}
}

// TrapCapture selects which traps make the standalone (no debugger)
// main loop print a message and exit.
type TrapCapture string

const (
	NoCapture     TrapCapture = "no_capture"
	ExceptionOnly TrapCapture = "exception_only"
	CaptureAll    TrapCapture = "all"
)

// DefaultDebugPort is the well-known port the debug stub listens on
// when no override is given.
const DefaultDebugPort = 16355

// Options is the full set of values consumed at start-up. Every field
// maps directly to a command-line flag in cmd/riscv-emu.
type Options struct {
	FlashFilePath string

	RAMFillPolicy FillPolicy
	TrapCapture   TrapCapture

	StopAtInfiniteLoop bool
	EnableDebug        bool
	DebugPort          uint16

	// EnableMonitor starts the local readline console (internal/monitor)
	// alongside or instead of the GDB stub.
	EnableMonitor bool

	// LoadStatePath, if non-empty, restores architectural state from a
	// savestate file before execution begins instead of booting fresh.
	LoadStatePath string
	// SaveStatePath, if non-empty, writes a savestate file when the
	// engine exits.
	SaveStatePath string

	Color bool
}

// Default returns the option set new command invocations start from,
// before flag parsing overrides any of it.
func Default() *Options {
	return &Options{
		RAMFillPolicy: FillZero,
		TrapCapture:   NoCapture,
		DebugPort:     DefaultDebugPort,
		Color:         isatty.IsTerminal(os.Stdout.Fd()),
	}
}

// Validate reports a descriptive error for any option combination the
// front-end can't act on, wrapped with pkg/errors so Status.Fatalf can
// show a stack trace back to the flag-parsing call site.
func (o *Options) Validate() error {
	if o.FlashFilePath == "" {
		return errors.New("flash_file_path is required")
	}
	if _, ok := o.RAMFillPolicy.Mem(); !ok {
		return errors.Errorf("unknown ram_fill_policy %q", o.RAMFillPolicy)
	}
	switch o.TrapCapture {
	case NoCapture, ExceptionOnly, CaptureAll:
	default:
		return errors.Errorf("unknown trap_capture %q", o.TrapCapture)
	}
	if o.LoadStatePath != "" && o.SaveStatePath != "" && o.LoadStatePath == o.SaveStatePath {
		return errors.New("loadstate and savestate paths must differ")
	}
	return nil
}

// Status is a tiny colorized status printer for start-up and
// connection-lifecycle messages, mirroring the coloring choices in
// models.StatusDiff (go/models/status.go) without that type's
// register-diff machinery, which this stub has no use for.
type Status struct {
	out   io.Writer
	color bool
}

// NewStatus builds a status printer writing to out, colorizing only
// when color is requested and out is actually a terminal. When
// colorized, writes go through mattn/go-colorable so ANSI codes still
// render on a Windows console -- the same wrapping the teacher applies
// around any writer it hands colored output to.
func NewStatus(out *os.File, color bool) *Status {
	isTerm := isatty.IsTerminal(out.Fd())
	s := &Status{out: out, color: color && isTerm}
	if s.color {
		s.out = colorable.NewColorable(out)
	}
	return s
}

// Infof prints a dim informational line: connection accepted, session
// ended, savestate written.
func (s *Status) Infof(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if s.color {
		msg = ansi.Color(msg, "black+h")
	}
	fmt.Fprintln(s.out, msg)
}

// Fatalf prints a red error line to stderr and exits non-zero, the
// terminal case of the host-configuration-error policy: missing or
// unreadable flash images and bad listen addresses never reach the
// running engine.
func (s *Status) Fatalf(err error) {
	msg := fmt.Sprintf("error: %s", err)
	if s.color {
		msg = ansi.Color(msg, "red+b")
	}
	fmt.Fprintln(os.Stderr, msg)
	if tracer, ok := err.(interface{ StackTrace() errors.StackTrace }); ok {
		for _, f := range tracer.StackTrace() {
			fmt.Fprintf(os.Stderr, "\t%+v\n", f)
		}
	}
	os.Exit(1)
}
