package console

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/peterh/liner"

	"github.com/rcornwell/rv64core/processor"
	"github.com/rcornwell/rv64core/refmmu"
)

// Reader drives an interactive liner session against p/mem until the
// user quits, aborts the prompt with ctrl-C, or input fails or ends
// (ctrl-D), which is logged as a read error, mirroring the teacher's
// command/reader.ConsoleReader loop.
func Reader(p *processor.Processor, mem *refmmu.RefMMU) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(s string) []string {
		return CompleteCmd(s)
	})

	for {
		command, err := line.Prompt("rv64core> ")
		if err == nil {
			line.AppendHistory(command)
			switch procErr := ProcessCommand(command, p, mem); {
			case errors.Is(procErr, ErrQuit):
				return
			case procErr != nil:
				fmt.Println("error: " + procErr.Error())
			}
			continue
		}

		if errors.Is(err, liner.ErrPromptAborted) {
			return
		}
		slog.Error("error reading line: " + err.Error())
		return
	}
}
