// Copyright 2024 The bcxo Authors
// This file is part of bcxo.
//
// bcxo is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// bcxo is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with bcxo. If not, see <http://www.gnu.org/licenses/>.

// Package utils contains internal helper functions for bcxo commands.
package utils

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"

	"github.com/finchgp/bcxo/core/bytecode"
	"github.com/finchgp/bcxo/core/xo"
	"github.com/finchgp/bcxo/log"
	"github.com/finchgp/bcxo/params"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
	"golang.org/x/exp/slog"
)

const (
	CrossoverCategory = "CROSSOVER"
	InputCategory     = "INPUT"
	LoggingCategory   = "LOGGING AND DEBUGGING"
)

// These are all the command line flags we support.
// If you add to this list, please remember to include the
// flag in the appropriate command definition.
//
// The flags are defined here so their names and help texts
// are the same for all commands.

var (
	// Input
	ConfigFileFlag = &cli.StringFlag{
		Name:     "config",
		Usage:    "TOML configuration file",
		Category: InputCategory,
	}
	ClassesFlag = &cli.StringSliceFlag{
		Name:     "classes",
		Usage:    "YAML class documents to load, may be repeated",
		Category: InputCategory,
	}
	AliasFlag = &cli.StringFlag{
		Name:     "alias",
		Usage:    "Comma separated alt=class pairs; references to alt are read as class",
		Category: InputCategory,
	}

	// Crossover settings
	TriesFlag = &cli.IntFlag{
		Name:     "xo.tries",
		Usage:    "Maximum number of section pairs sampled per search",
		Value:    params.DefaultCrossoverConfig.Tries,
		Category: CrossoverCategory,
	}
	MaxSizeFlag = &cli.IntFlag{
		Name:     "xo.maxsize",
		Usage:    "Maximum instruction count of the offspring (0 = unlimited)",
		Value:    params.DefaultCrossoverConfig.MaxSize,
		Category: CrossoverCategory,
	}
	StrategyFlag = &cli.StringFlag{
		Name:     "xo.strategy",
		Usage:    "Section picking strategy (" + strings.Join(params.StrategyNames(), ", ") + ")",
		Value:    params.DefaultCrossoverConfig.Strategy,
		Category: CrossoverCategory,
	}
	SigmaFlag = &cli.Float64Flag{
		Name:     "xo.sigma",
		Usage:    "Standard deviation in instructions of the gaussian-size strategy",
		Value:    params.DefaultCrossoverConfig.Sigma,
		Category: CrossoverCategory,
	}
	FactorFlag = &cli.Float64Flag{
		Name:     "xo.factor",
		Usage:    "Divisor of the size rank drawn by the gaussian-rank strategy",
		Value:    params.DefaultCrossoverConfig.Factor,
		Category: CrossoverCategory,
	}
	SeedFlag = &cli.Uint64Flag{
		Name:     "xo.seed",
		Usage:    "Random seed (0 = time based)",
		Category: CrossoverCategory,
	}

	// Logging and debug settings
	VerbosityFlag = &cli.StringFlag{
		Name:     "verbosity",
		Usage:    "Logging verbosity: trace, debug, info, warn, error, crit",
		Value:    "info",
		Category: LoggingCategory,
	}
	LogFormatFlag = &cli.StringFlag{
		Name:     "log.format",
		Usage:    "Log format to use (terminal|logfmt|json)",
		Value:    "terminal",
		Category: LoggingCategory,
	}
	LogFileFlag = &cli.StringFlag{
		Name:     "log.file",
		Usage:    "Write logs to a file instead of stderr",
		Category: LoggingCategory,
	}
	LogMaxSizeMBsFlag = &cli.IntFlag{
		Name:     "log.maxsize",
		Usage:    "Maximum size in megabytes of the log file before it gets rotated",
		Value:    100,
		Category: LoggingCategory,
	}
	LogRotateHoursFlag = &cli.UintFlag{
		Name:     "log.rotate",
		Usage:    "Rotate the log file every given hours (0 = size based only)",
		Category: LoggingCategory,
	}
	MetricsFlag = &cli.BoolFlag{
		Name:     "metrics",
		Usage:    "Print the collected metrics on exit",
		Category: LoggingCategory,
	}

	CrossoverFlags = []cli.Flag{
		TriesFlag,
		MaxSizeFlag,
		StrategyFlag,
		SigmaFlag,
		FactorFlag,
		SeedFlag,
	}
	LoggingFlags = []cli.Flag{
		VerbosityFlag,
		LogFormatFlag,
		LogFileFlag,
		LogMaxSizeMBsFlag,
		LogRotateHoursFlag,
		MetricsFlag,
	}
)

// Fatalf formats a message to standard error and exits the program.
// The message is also printed to standard output if standard error
// is redirected to a different file.
func Fatalf(format string, args ...interface{}) {
	w := io.MultiWriter(os.Stdout, os.Stderr)
	if runtime.GOOS == "windows" {
		// The SameFile check below doesn't work on Windows.
		// stdout is unlikely to get redirected though, so just print there.
		w = os.Stdout
	} else {
		outf, _ := os.Stdout.Stat()
		errf, _ := os.Stderr.Stat()
		if outf != nil && errf != nil && os.SameFile(outf, errf) {
			w = os.Stderr
		}
	}
	fmt.Fprintf(w, "Fatal: "+format+"\n", args...)
	os.Exit(1)
}

// SetCrossoverConfig applies the crossover flags set on the command line
// on top of cfg.
func SetCrossoverConfig(ctx *cli.Context, cfg *params.CrossoverConfig) {
	if ctx.IsSet(TriesFlag.Name) {
		cfg.Tries = ctx.Int(TriesFlag.Name)
	}
	if ctx.IsSet(MaxSizeFlag.Name) {
		cfg.MaxSize = ctx.Int(MaxSizeFlag.Name)
	}
	if ctx.IsSet(StrategyFlag.Name) {
		cfg.Strategy = ctx.String(StrategyFlag.Name)
	}
	if ctx.IsSet(SigmaFlag.Name) {
		cfg.Sigma = ctx.Float64(SigmaFlag.Name)
	}
	if ctx.IsSet(FactorFlag.Name) {
		cfg.Factor = ctx.Float64(FactorFlag.Name)
	}
	if ctx.IsSet(SeedFlag.Name) {
		cfg.Seed = ctx.Uint64(SeedFlag.Name)
	}
}

// SetupLogging installs the root logger selected by the logging flags. The
// returned function flushes the log file, if any.
func SetupLogging(ctx *cli.Context) (func(), error) {
	lvl, err := log.LvlFromString(ctx.String(VerbosityFlag.Name))
	if err != nil {
		return nil, err
	}
	var (
		output   io.Writer = colorable.NewColorableStderr()
		useColor           = isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
		stop               = func() {}
	)
	if path := ctx.String(LogFileFlag.Name); path != "" {
		w := log.NewAsyncFileWriter(path, 100, ctx.Int(LogMaxSizeMBsFlag.Name), ctx.Uint(LogRotateHoursFlag.Name))
		if err := w.Start(); err != nil {
			return nil, fmt.Errorf("log file: %w", err)
		}
		output, useColor, stop = w, false, w.Stop
	}

	var handler slog.Handler
	switch format := ctx.String(LogFormatFlag.Name); format {
	case "json":
		handler = log.JSONHandlerWithLevel(output, lvl)
	case "logfmt":
		handler = log.LogfmtHandlerWithLevel(output, lvl)
	case "", "terminal":
		handler = log.NewTerminalHandlerWithLevel(output, lvl, useColor)
	default:
		stop()
		return nil, fmt.Errorf("unknown log format: %v", format)
	}
	log.SetDefault(log.NewLogger(handler))
	return stop, nil
}

// SplitTagsFlag parses a comma separated list of k=v pairs. Malformed
// pairs are skipped.
func SplitTagsFlag(tagsFlag string) map[string]string {
	tags := strings.Split(tagsFlag, ",")
	tagsMap := map[string]string{}

	for _, t := range tags {
		if t != "" {
			kv := strings.Split(t, "=")

			if len(kv) == 2 {
				tagsMap[kv[0]] = kv[1]
			}
		}
	}

	return tagsMap
}

// InputConfig names the class documents a command loads and the class
// aliases its verifier applies.
type InputConfig struct {
	Classes []string
	Aliases []string `toml:",omitempty"`
}

// SetInputConfig applies the input flags on top of cfg. --classes replaces
// the configured documents, --alias adds to the configured aliases.
func SetInputConfig(ctx *cli.Context, cfg *InputConfig) {
	if ctx.IsSet(ClassesFlag.Name) {
		cfg.Classes = ctx.StringSlice(ClassesFlag.Name)
	}
	if ctx.IsSet(AliasFlag.Name) {
		tags := SplitTagsFlag(ctx.String(AliasFlag.Name))
		alts := make([]string, 0, len(tags))
		for alt := range tags {
			alts = append(alts, alt)
		}
		sort.Strings(alts)
		for _, alt := range alts {
			cfg.Aliases = append(cfg.Aliases, alt+"="+tags[alt])
		}
	}
}

// MakeHierarchy loads the configured class documents.
func MakeHierarchy(cfg *InputConfig) (*bytecode.Hierarchy, error) {
	if len(cfg.Classes) == 0 {
		return nil, fmt.Errorf("no class documents given (--%s)", ClassesFlag.Name)
	}
	h := bytecode.NewHierarchy()
	for _, file := range cfg.Classes {
		classes, err := bytecode.LoadClassFile(file)
		if err != nil {
			return nil, err
		}
		for _, c := range classes {
			h.Add(c)
		}
		log.Debug("Loaded class documents", "file", file, "classes", len(classes))
	}
	return h, nil
}

// MakeVerifier builds the type verifier over h with the configured aliases.
func MakeVerifier(cfg *InputConfig, h *bytecode.Hierarchy) *xo.TypeVerifier {
	v := xo.NewTypeVerifier(h)
	for alt, class := range SplitTagsFlag(strings.Join(cfg.Aliases, ",")) {
		v.Alias(alt, class)
	}
	return v
}
