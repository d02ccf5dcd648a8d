/*
   rv64core - interactive smoke-run console.

   Copyright (c) 2024, Richard Cornwell

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   RICHARD CORNWELL BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

*/

// Package console implements the prefix-matched command line the
// rv64core binary drives a Processor with: step, dump, reset, ipi,
// load, show, and quit. Matching and completion follow the teacher's
// command/parser convention of a minimum unique-prefix length per verb.
package console

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rcornwell/rv64core/processor"
	"github.com/rcornwell/rv64core/refmmu"
	"github.com/rcornwell/rv64core/trap"
)

type cmd struct {
	name     string
	min      int
	process  func(args []string, p *processor.Processor, mem *refmmu.RefMMU) error
	complete func(args []string) []string
}

var cmdList = []cmd{
	{name: "step", min: 2, process: step},
	{name: "dump", min: 2, process: dump},
	{name: "reset", min: 3, process: reset},
	{name: "ipi", min: 3, process: ipi},
	{name: "load", min: 2, process: load},
	{name: "show", min: 2, process: show},
	{name: "quit", min: 1, process: nil},
	{name: "help", min: 1, process: help},
}

// ErrQuit signals ProcessCommand matched "quit".
var ErrQuit = errors.New("quit")

// ProcessCommand executes one command line against p/mem. It returns
// ErrQuit when the command was "quit" (or any unique prefix of it).
func ProcessCommand(line string, p *processor.Processor, mem *refmmu.RefMMU) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	verb, args := fields[0], fields[1:]

	match, err := matchList(verb)
	if err != nil {
		return err
	}
	if match.process == nil {
		return ErrQuit
	}
	return match.process(args, p, mem)
}

// CompleteCmd returns every command name the given prefix could expand
// to, for liner's tab completion.
func CompleteCmd(prefix string) []string {
	var out []string
	for _, c := range cmdList {
		if strings.HasPrefix(c.name, prefix) {
			out = append(out, c.name)
		}
	}
	return out
}

func matchList(verb string) (cmd, error) {
	verb = strings.ToLower(verb)
	var found []cmd
	for _, c := range cmdList {
		if len(verb) >= c.min && strings.HasPrefix(c.name, verb) {
			found = append(found, c)
		}
	}
	switch len(found) {
	case 0:
		return cmd{}, fmt.Errorf("command not found: %s", verb)
	case 1:
		return found[0], nil
	default:
		return cmd{}, fmt.Errorf("ambiguous command: %s", verb)
	}
}

func step(args []string, p *processor.Processor, _ *refmmu.RefMMU) error {
	n := 1
	noisy := false
	for _, a := range args {
		if a == "-v" {
			noisy = true
			continue
		}
		v, err := strconv.Atoi(a)
		if err != nil {
			return fmt.Errorf("step: %w", err)
		}
		n = v
	}
	p.Step(n, noisy)
	primary, _ := p.Dump()
	fmt.Printf("pc=%#016x cause=%#x run=%v\n", primary.PC, primary.Cause.Load(), primary.Run.Load())
	return nil
}

func dump(_ []string, p *processor.Processor, _ *refmmu.RefMMU) error {
	primary, uts := p.Dump()
	cause := primary.Cause.Load()
	fmt.Printf("pc=%#016x sr=%#x cause=%#x (%s) cycle=%d\n",
		primary.PC, primary.SR, cause&0xffff, trap.Name(int(cause&0xffff)), primary.Cycle)
	for i := 0; i < 4; i++ {
		fmt.Printf("x%-2d=%#018x  x%-2d=%#018x  x%-2d=%#018x  x%-2d=%#018x\n",
			i*8, primary.XPR[i*8], i*8+1, primary.XPR[i*8+1], i*8+2, primary.XPR[i*8+2], i*8+3, primary.XPR[i*8+3])
	}
	fmt.Printf("%d micro-threads attached\n", len(uts))
	return nil
}

func reset(_ []string, p *processor.Processor, _ *refmmu.RefMMU) error {
	p.Reset()
	fmt.Println("reset")
	return nil
}

func ipi(_ []string, p *processor.Processor, _ *refmmu.RefMMU) error {
	p.DeliverIPI()
	fmt.Println("ipi delivered")
	return nil
}

func load(args []string, _ *processor.Processor, mem *refmmu.RefMMU) error {
	if len(args) != 2 {
		return errors.New("load: usage: load <addr> <word>")
	}
	addr, err := strconv.ParseUint(args[0], 0, 64)
	if err != nil {
		return fmt.Errorf("load: bad address: %w", err)
	}
	word, err := strconv.ParseUint(args[1], 0, 32)
	if err != nil {
		return fmt.Errorf("load: bad word: %w", err)
	}
	if err := mem.StoreWord(addr, uint32(word)); err != nil {
		return fmt.Errorf("load: %w", err)
	}
	return nil
}

func show(_ []string, _ *processor.Processor, mem *refmmu.RefMMU) error {
	fmt.Println(mem.String())
	return nil
}

func help(_ []string, _ *processor.Processor, _ *refmmu.RefMMU) error {
	fmt.Println("commands: step [n] [-v], dump, reset, ipi, load <addr> <word>, show, quit")
	return nil
}
