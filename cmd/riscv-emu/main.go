// Command riscv-emu boots a flash image against the RV32IM_Zicond
// platform, optionally exposing a GDB remote-serial debug stub and/or
// a local readline monitor console. Grounded on the teacher's
// cmd.UsercornCmd.Run (go/cmd/cmd.go): stdlib flag.FlagSet, then
// pkg/errors-wrapped start-up failures reported through a single
// PrintError-style path before the engine ever starts running.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/lunixbochs/rv32im-emu/internal/config"
	"github.com/lunixbochs/rv32im-emu/internal/cpu"
	"github.com/lunixbochs/rv32im-emu/internal/gdbstub"
	"github.com/lunixbochs/rv32im-emu/internal/monitor"
	"github.com/lunixbochs/rv32im-emu/internal/platform"
	"github.com/lunixbochs/rv32im-emu/internal/savestate"
)

func parseFlags(argv []string) (*config.Options, error) {
	fs := flag.NewFlagSet("riscv-emu", flag.ContinueOnError)
	o := config.Default()

	fs.StringVar(&o.FlashFilePath, "flash", "", "flash image to load into ROM (required)")
	fillPolicy := fs.String("ram-fill", string(o.RAMFillPolicy), "RAM fill policy: zero, one, random, cdcdcdcd")
	trapCapture := fs.String("trap-capture", string(o.TrapCapture), "trap capture mode: no_capture, exception_only, all")
	fs.BoolVar(&o.StopAtInfiniteLoop, "stop-at-infinite-loop", false, "exit when a cycle branches to itself with no trap")
	fs.BoolVar(&o.EnableDebug, "debug", false, "listen for a GDB remote-serial connection")
	port := fs.Uint("debug-port", uint(o.DebugPort), "TCP port for the debug stub")
	fs.BoolVar(&o.EnableMonitor, "monitor", false, "start the local readline monitor console")
	fs.StringVar(&o.LoadStatePath, "loadstate", "", "restore architectural state from this file before running")
	fs.StringVar(&o.SaveStatePath, "savestate", "", "write architectural state to this file on exit")
	noColor := fs.Bool("no-color", !o.Color, "disable colored status output")

	if err := fs.Parse(argv); err != nil {
		return nil, err
	}

	o.RAMFillPolicy = config.FillPolicy(*fillPolicy)
	o.TrapCapture = config.TrapCapture(*trapCapture)
	o.DebugPort = uint16(*port)
	o.Color = !*noColor

	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

func loadFlash(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading flash image %q", path)
	}
	return data, nil
}

// shouldCapture implements §7's user-visible failure policy for the
// standalone main loop (no debugger attached).
func shouldCapture(mode config.TrapCapture, trap cpu.Trap) bool {
	switch mode {
	case config.CaptureAll:
		return true
	case config.ExceptionOnly:
		// The predicate is inverted relative to the name: it captures
		// interrupt-class traps other than the M-mode ecall exception,
		// not exceptions.
		return cpu.IsInterrupt(trap) && trap != cpu.TrapEnvCallFromMMode
	default:
		return false
	}
}

func run(o *config.Options, status *config.Status) error {
	flash, err := loadFlash(o.FlashFilePath)
	if err != nil {
		return err
	}
	fillPolicy, _ := o.RAMFillPolicy.Mem()

	plat, err := platform.New(flash, fillPolicy)
	if err != nil {
		return errors.Wrap(err, "constructing platform")
	}

	if o.LoadStatePath != "" {
		f, err := os.Open(o.LoadStatePath)
		if err != nil {
			return errors.Wrapf(err, "opening savestate %q", o.LoadStatePath)
		}
		err = savestate.Restore(f, plat)
		f.Close()
		if err != nil {
			return errors.Wrapf(err, "restoring savestate %q", o.LoadStatePath)
		}
		status.Infof("restored savestate from %s", o.LoadStatePath)
	}

	if o.SaveStatePath != "" {
		defer func() {
			f, err := os.Create(o.SaveStatePath)
			if err != nil {
				status.Infof("failed to open savestate %q for write: %v", o.SaveStatePath, err)
				return
			}
			defer f.Close()
			if err := savestate.Save(f, plat); err != nil {
				status.Infof("failed to write savestate %q: %v", o.SaveStatePath, err)
				return
			}
			status.Infof("wrote savestate to %s", o.SaveStatePath)
		}()
	}

	if o.EnableMonitor {
		console, err := monitor.New(plat)
		if err != nil {
			return errors.Wrap(err, "starting monitor console")
		}
		defer console.Close()
		go console.Run()
	}

	if o.EnableDebug {
		handler, err := gdbstub.NewHandler(o.DebugPort)
		if err != nil {
			return errors.Wrapf(err, "listening on debug port %d", o.DebugPort)
		}
		defer handler.Close()
		status.Infof("debug stub listening on port %d", o.DebugPort)
		controller := gdbstub.NewController(handler, newHartTarget(plat))
		controller.Run()
		return nil
	}

	for {
		record := plat.Step()
		if record.Trap != nil && shouldCapture(o.TrapCapture, *record.Trap) {
			return errors.Errorf("trapped: cause=%#x pc=%#x mtval=%#x", *record.Trap, record.Pc, plat.CPU.CSRs.Mtval)
		}
		if o.StopAtInfiniteLoop && record.Trap == nil && record.BranchTaken && record.AluResult == record.Pc {
			status.Infof("stopped at infinite loop, pc=%#x", record.Pc)
			return nil
		}
	}
}

func main() {
	o, err := parseFlags(os.Args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	status := config.NewStatus(os.Stdout, o.Color)
	if err := run(o, status); err != nil {
		status.Fatalf(err)
	}
}
