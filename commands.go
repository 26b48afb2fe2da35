package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"gregoryjjb/shiftbank/shiftreg"
)

var ErrUsage = errors.New("usage")

// Runner executes commands against one register.
type Runner struct {
	sr      *shiftreg.ShiftRegister
	outputs int
	out     io.Writer
}

func NewRunner(sr *shiftreg.ShiftRegister, outputs int, out io.Writer) *Runner {
	return &Runner{sr: sr, outputs: outputs, out: out}
}

type command struct {
	args    string
	minArgs int
	maxArgs int
	help    string
	run     func(ctx context.Context, r *Runner, args []string) error
}

// Step is one parsed command and its arguments.
type Step struct {
	Name string
	Args []string
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"set": {args: "N", minArgs: 1, maxArgs: 1, help: "switch output N on",
			run: withOutput((*shiftreg.ShiftRegister).Set)},
		"clear": {args: "N", minArgs: 1, maxArgs: 1, help: "switch output N off",
			run: withOutput((*shiftreg.ShiftRegister).Clear)},
		"toggle": {args: "N", minArgs: 1, maxArgs: 1, help: "flip output N",
			run: withOutput((*shiftreg.ShiftRegister).Toggle)},
		"get": {args: "N", minArgs: 1, maxArgs: 1, help: "print whether output N is on",
			run: runGet},
		"reset": {help: "switch every output off",
			run: func(ctx context.Context, r *Runner, args []string) error { return r.sr.Reset() }},
		"all": {help: "switch every output on",
			run: func(ctx context.Context, r *Runner, args []string) error { return r.sr.AllOn() }},
		"write": {args: "IMAGE", minArgs: 1, maxArgs: 1, help: "commit a whole image (0x, 0b or decimal)",
			run: runWrite},
		"lamptest": {help: "light every output for the hold time, then restore",
			run: func(ctx context.Context, r *Runner, args []string) error { return r.sr.LampTest(ctx) }},
		"random": {help: "light a random pattern and leave it",
			run: func(ctx context.Context, r *Runner, args []string) error { return r.sr.RandomTest() }},
		"randomtimed": {help: "light a random pattern for the hold time, then restore",
			run: func(ctx context.Context, r *Runner, args []string) error { return r.sr.RandomTestTimed(ctx) }},
		"walk": {args: "[N]", maxArgs: 1, help: "light outputs 1..N one after the other (default: the bank's outputs)",
			run: runWalk},
		"sleep": {args: "DURATION", minArgs: 1, maxArgs: 1, help: "wait, e.g. 500ms",
			run: runSleep},
		"status": {help: "print the image and whether the hardware is in sync",
			run: runStatus},
		"history": {help: "print the recent commits",
			run: runHistory},
	}
}

// ParseProgram splits args into steps. Arguments are taken greedily up to
// each command's maximum, stopping at the next command name.
func ParseProgram(args []string) ([]Step, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: no command given", ErrUsage)
	}

	var steps []Step
	for i := 0; i < len(args); {
		name := args[i]
		cmd, ok := commands[name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown command %q", ErrUsage, name)
		}
		i++

		var cmdArgs []string
		for len(cmdArgs) < cmd.maxArgs && i < len(args) {
			if _, isCommand := commands[args[i]]; isCommand {
				break
			}
			cmdArgs = append(cmdArgs, args[i])
			i++
		}
		if len(cmdArgs) < cmd.minArgs {
			return nil, fmt.Errorf("%w: %s %s", ErrUsage, name, cmd.args)
		}

		steps = append(steps, Step{Name: name, Args: cmdArgs})
	}

	return steps, nil
}

// Run executes steps in order and stops at the first error.
func (r *Runner) Run(ctx context.Context, steps []Step) error {
	for _, step := range steps {
		if err := commands[step.Name].run(ctx, r, step.Args); err != nil {
			return fmt.Errorf("%s: %w", step.Name, err)
		}
	}
	return nil
}

// Usage writes the command list.
func Usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "Commands (run in order, e.g. \"set 1 set 3 sleep 2s reset\"):")
	for _, name := range names {
		cmd := commands[name]
		fmt.Fprintf(w, "  %-20s %s\n", strings.TrimSpace(name+" "+cmd.args), cmd.help)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Every run starts from all outputs off and state does not carry over")
	fmt.Fprintln(w, "between invocations; chain commands in one run.")
}

func parseOutput(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: output number %q", ErrUsage, s)
	}
	return n, nil
}

func withOutput(op func(*shiftreg.ShiftRegister, int) error) func(context.Context, *Runner, []string) error {
	return func(ctx context.Context, r *Runner, args []string) error {
		n, err := parseOutput(args[0])
		if err != nil {
			return err
		}
		return op(r.sr, n)
	}
}

func runGet(ctx context.Context, r *Runner, args []string) error {
	n, err := parseOutput(args[0])
	if err != nil {
		return err
	}

	on, err := r.sr.Get(n)
	if err != nil {
		return err
	}

	state := "off"
	if on {
		state = "on"
	}
	_, err = fmt.Fprintf(r.out, "%d %s\n", n, state)
	return err
}

func runWrite(ctx context.Context, r *Runner, args []string) error {
	image, err := strconv.ParseUint(args[0], 0, 64)
	if err != nil {
		return fmt.Errorf("%w: image %q", ErrUsage, args[0])
	}
	return r.sr.Write(image)
}

func runWalk(ctx context.Context, r *Runner, args []string) error {
	count := r.outputs
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("%w: walk length %q", ErrUsage, args[0])
		}
		count = n
	}
	return r.sr.Walk(ctx, count)
}

func runSleep(ctx context.Context, r *Runner, args []string) error {
	d, err := time.ParseDuration(args[0])
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUsage, err)
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func runStatus(ctx context.Context, r *Runner, args []string) error {
	sync := "in sync"
	if !r.sr.InSync() {
		sync = "unknown"
	}
	image := r.sr.Snapshot()

	_, err := fmt.Fprintf(r.out, "%s %#016x [%s] hardware %s\n",
		r.sr.Role(), image, shiftreg.Picture(image, r.outputs), sync)
	return err
}

func runHistory(ctx context.Context, r *Runner, args []string) error {
	for _, c := range r.sr.History() {
		result := "ok"
		if c.Err != nil {
			result = c.Err.Error()
		}
		if _, err := fmt.Fprintf(r.out, "%s %#016x [%s] %s\n",
			c.At.Format(time.RFC3339Nano), c.Image, shiftreg.Picture(c.Image, r.outputs), result); err != nil {
			return err
		}
	}
	return nil
}
