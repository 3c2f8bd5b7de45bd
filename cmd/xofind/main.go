// xofind inspects bytecode crossovers between two methods.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/finchgp/bcxo/cmd/utils"
	"github.com/finchgp/bcxo/common/gopool"
	"github.com/finchgp/bcxo/log"
	"github.com/finchgp/bcxo/metrics"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"
)

var (
	// Git SHA1 commit hash of the release (set via linker flags)
	gitCommit = ""

	app = &cli.App{
		Name:      "xofind",
		Usage:     "find bytecode crossovers that keep methods verifiable",
		Version:   version(),
		Copyright: "Copyright 2024 The bcxo Authors",
	}

	inputFlags = []cli.Flag{
		utils.ConfigFileFlag,
		utils.ClassesFlag,
		utils.AliasFlag,
	}

	stopLogging = func() {}
)

func version() string {
	if len(gitCommit) >= 8 {
		return "0.1.0-" + gitCommit[:8]
	}
	return "0.1.0"
}

func init() {
	app.Flags = append(app.Flags, inputFlags...)
	app.Flags = append(app.Flags, utils.CrossoverFlags...)
	app.Flags = append(app.Flags, utils.LoggingFlags...)
	app.Commands = []*cli.Command{
		sectionsCommand,
		checkCommand,
		findCommand,
		surveyCommand,
		dotCommand,
		dumpConfigCommand,
	}
	sort.Sort(cli.CommandsByName(app.Commands))

	app.Before = func(ctx *cli.Context) error {
		stop, err := utils.SetupLogging(ctx)
		if err != nil {
			return err
		}
		stopLogging = stop
		return nil
	}
	app.After = func(ctx *cli.Context) error {
		if ctx.Bool(utils.MetricsFlag.Name) {
			printMetrics()
		}
		gopool.Release()
		stopLogging()
		return nil
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// printMetrics renders every registered metric as one table row.
func printMetrics() {
	table := tablewriter.NewWriter(os.Stderr)
	table.SetHeader([]string{"Metric", "Value"})
	metrics.DefaultRegistry.Each(func(name string, m interface{}) {
		var value string
		switch m := m.(type) {
		case metrics.Counter:
			value = fmt.Sprint(m.Count())
		case metrics.Timer:
			value = fmt.Sprintf("count=%d mean=%v", m.Count(), m.Mean())
		case metrics.Meter:
			value = fmt.Sprintf("count=%d rate=%.2f/s", m.Count(), m.RateMean())
		case *metrics.Label:
			value = fmt.Sprint(m.Snapshot().Value())
		default:
			log.Debug("Skipping metric of unknown type", "name", name, "type", fmt.Sprintf("%T", m))
			return
		}
		table.Append([]string{name, value})
	})
	table.Render()
}
