// Package monitor is a local line-editing console for introspecting a
// running platform without a GDB client attached. Grounded on the
// teacher's ui.Repl (go/ui/repl.go) and repl.LuaRepl (go/repl/repl.go):
// same chzyer/readline + shibukawa/configdir history-file pairing, cut
// down from a full Lua scripting console to a fixed set of debug verbs
// this stub's own users actually need.
package monitor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/shibukawa/configdir"

	"github.com/lunixbochs/rv32im-emu/internal/platform"
)

// historyPath resolves the readline history file under the user's
// cache directory, matching the teacher's configdir.New("usercorn",
// "repl") pattern with this project's own vendor/app name. A failure to
// create the directory just means no persistent history, not a fatal
// error.
func historyPath() string {
	dirs := configdir.New("rv32im-emu", "monitor")
	cache := dirs.QueryCacheFolder()
	if err := cache.MkdirAll(); err != nil {
		return ""
	}
	return filepath.Join(cache.Path, "history")
}

// Console is the monitor's REPL state: one attached platform, one
// readline instance. Command output goes through out/errOut rather
// than straight to rl.Stdout()/Stderr() so the dispatch logic can be
// exercised without a live terminal.
type Console struct {
	plat   *platform.Platform
	rl     *readline.Instance
	out    io.Writer
	errOut io.Writer
}

// New builds a console over plat on a readline instance attached to the
// process's terminal; command output goes to that instance's
// Stdout()/Stderr().
func New(plat *platform.Platform) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "rv32im> ",
		HistoryFile: historyPath(),
	})
	if err != nil {
		return nil, err
	}
	return &Console{plat: plat, rl: rl, out: rl.Stdout(), errOut: rl.Stderr()}, nil
}

// Close releases the underlying readline instance.
func (c *Console) Close() error { return c.rl.Close() }

// Run reads lines until EOF or an explicit `quit`, dispatching each to
// a command handler and printing its output to the console's stdout.
func (c *Console) Run() {
	defer c.rl.Close()
	for {
		line, err := c.rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "monitor: %v\n", err)
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return
		}
		c.dispatch(line)
	}
}

func (c *Console) dispatch(line string) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	var err error
	switch cmd {
	case "regs":
		c.cmdRegs()
	case "mem":
		err = c.cmdMem(args)
	case "step":
		err = c.cmdStep(args)
	case "reset":
		c.cmdReset()
	case "help":
		c.cmdHelp()
	default:
		err = fmt.Errorf("unknown command %q (try 'help')", cmd)
	}
	if err != nil {
		fmt.Fprintf(c.errOut, "%v\n", err)
	}
}

func (c *Console) cmdHelp() {
	fmt.Fprintln(c.out, "commands: regs, mem <addr> [count], step [n], reset, quit")
}

var gprNames = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

func (c *Console) cmdRegs() {
	out := c.out
	cpu := c.plat.CPU
	fmt.Fprintf(out, "pc       = 0x%08x\n", cpu.PC)
	for i, name := range gprNames {
		fmt.Fprintf(out, "%-8s = 0x%08x\n", name, cpu.Regs.Read(uint(i)))
	}
	fmt.Fprintf(out, "mstatus  = 0x%08x\n", cpu.CSRs.MstatusLow)
	fmt.Fprintf(out, "mepc     = 0x%08x\n", cpu.CSRs.Mepc)
	fmt.Fprintf(out, "mcause   = 0x%08x\n", cpu.CSRs.Mcause)
	fmt.Fprintf(out, "mcycle   = %d\n", cpu.CSRs.Mcycle)
	fmt.Fprintf(out, "minstret = %d\n", cpu.CSRs.Minstret)
}

func (c *Console) cmdMem(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: mem <addr> [word-count]")
	}
	addr, err := strconv.ParseUint(strings.TrimPrefix(args[0], "0x"), 16, 32)
	if err != nil {
		return fmt.Errorf("bad address %q: %w", args[0], err)
	}
	count := 1
	if len(args) >= 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("bad count %q: %w", args[1], err)
		}
		count = n
	}
	out := c.out
	for i := 0; i < count; i++ {
		wordAddr := uint32(addr) + uint32(i*4)
		value, memErr := c.plat.Bus.Read(wordAddr)
		if memErr != 0 {
			fmt.Fprintf(out, "0x%08x: <error>\n", wordAddr)
			continue
		}
		fmt.Fprintf(out, "0x%08x: 0x%08x\n", wordAddr, value)
	}
	return nil
}

func (c *Console) cmdStep(args []string) error {
	n := 1
	if len(args) >= 1 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("bad step count %q: %w", args[0], err)
		}
		n = parsed
	}
	out := c.out
	for i := 0; i < n; i++ {
		record := c.plat.Step()
		if record.Trap != nil {
			fmt.Fprintf(out, "trapped: %v at pc=%#x\n", *record.Trap, record.Pc)
			return nil
		}
	}
	fmt.Fprintf(out, "pc = %#010x\n", c.plat.CPU.PC)
	return nil
}

func (c *Console) cmdReset() {
	c.plat.Ram.ResetContent()
	fmt.Fprintln(c.out, "RAM reset")
}
