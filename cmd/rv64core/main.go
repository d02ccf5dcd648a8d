/*
   rv64core - smoke-run driver.

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

// Command rv64core boots one Processor around a RefMMU and drops into
// an interactive console for stepping it, following the teacher's
// main.go shape: getopt flags, a slog file+stderr handler, an optional
// key=value config file, and a liner-backed command loop running
// alongside a signal handler for a clean shutdown.
package main

import (
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	getopt "github.com/pborman/getopt/v2"

	"github.com/rcornwell/rv64core/console"
	"github.com/rcornwell/rv64core/internal/config"
	"github.com/rcornwell/rv64core/internal/logger"
	"github.com/rcornwell/rv64core/processor"
	"github.com/rcornwell/rv64core/refmmu"
	"github.com/rcornwell/rv64core/state"
	"github.com/rcornwell/rv64core/statsink"
)

func main() {
	optConfig := getopt.StringLong("config", 'c', "", "Configuration file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optDebug := getopt.BoolLong("debug", 'd', "Echo debug records to stderr")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var logFile *os.File
	if *optLogFile != "" {
		f, err := os.Create(*optLogFile)
		if err != nil {
			slog.Error("can't create log file", "path", *optLogFile, "err", err)
			os.Exit(1)
		}
		logFile = f
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelInfo)
	if *optDebug {
		programLevel.Set(slog.LevelDebug)
	}
	slog.SetDefault(slog.New(logger.New(logFile, programLevel, *optDebug)))

	cfg := loadConfig(*optConfig)

	feat := state.Features{
		FPU:        cfg.Bool("fpu", false),
		Compressed: cfg.Bool("compressed", false),
		Vector:     cfg.Bool("vector", false),
		Int64:      cfg.Bool("int64", true),
	}
	memWords := int(cfg.Uint("mem_words", 1<<16))
	numUTs := int(cfg.Uint("micro_threads", 0))

	mem := refmmu.New(memWords)
	p := processor.New(mem, feat)
	p.Init(1, numUTs, statsink.NewCounter(), statsink.NewCounter(), statsink.NewCounter(), statsink.NewCounter())

	slog.Info("rv64core started", "mem_words", memWords, "micro_threads", numUTs)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		console.Reader(p, mem)
		close(done)
	}()

	select {
	case <-sigChan:
		slog.Info("got quit signal")
	case <-done:
	}

	p.Close(os.Stdout)
	slog.Info("rv64core shut down")
}

// loadConfig reads path if non-empty, falling back to an empty Config
// (every lookup then returns its default) so a bare `rv64core` with no
// flags still boots.
func loadConfig(path string) *config.Config {
	if path == "" {
		cfg, _ := config.Parse(strings.NewReader(""))
		return cfg
	}
	f, err := os.Open(path)
	if err != nil {
		slog.Error("can't open config file", "path", path, "err", err)
		os.Exit(1)
	}
	defer f.Close()
	cfg, err := config.Parse(f)
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
	return cfg
}
