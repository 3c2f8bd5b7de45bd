package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/finchgp/bcxo/cmd/utils"
	"github.com/finchgp/bcxo/core/bytecode"
	"github.com/finchgp/bcxo/core/flow"
	"github.com/urfave/cli/v2"
)

var (
	outFlag = &cli.StringFlag{
		Name:  "out",
		Usage: "Output file path (.dot or .svg). If empty, write DOT to stdout",
	}
	formatFlag = &cli.StringFlag{
		Name:  "format",
		Usage: "Output format: dot or svg (inferred from --out when omitted)",
	}
	titleFlag = &cli.StringFlag{
		Name:  "title",
		Usage: "Graph title (optional)",
	}

	dotCommand = &cli.Command{
		Action:    drawDOT,
		Name:      "dot",
		Usage:     "Draw the control flow of a method as DOT or SVG",
		ArgsUsage: "<Class.method(desc)> [start:end]",
		Flags:     []cli.Flag{outFlag, formatFlag, titleFlag},
		Description: `
One node per instruction, labelled with the frame before it. Jumps are drawn
dashed. The optional section is highlighted.`,
	}
)

func drawDOT(ctx *cli.Context) error {
	if ctx.NArg() < 1 || ctx.NArg() > 2 {
		return fmt.Errorf("required arguments: %v", ctx.Command.ArgsUsage)
	}
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	h, err := utils.MakeHierarchy(&cfg.Input)
	if err != nil {
		return err
	}
	m, err := analyzeMethod(h, ctx.Args().First())
	if err != nil {
		return err
	}
	var highlight *flow.CodeSection
	if ctx.NArg() == 2 {
		s, err := parseSection(m, ctx.Args().Get(1))
		if err != nil {
			return err
		}
		highlight = &s
	}
	title := ctx.String(titleFlag.Name)
	if title == "" {
		title = m.FullName()
	}
	dot := buildDOT(m, highlight, title)

	out, format := ctx.String(outFlag.Name), ctx.String(formatFlag.Name)
	if format == "" && strings.ToLower(filepath.Ext(out)) == ".svg" {
		format = "svg"
	}
	switch format {
	case "", "dot":
	case "svg":
		if dot, err = renderSVG(dot); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q (use dot or svg)", format)
	}
	if out == "" {
		_, err = os.Stdout.Write(dot)
		return err
	}
	return os.WriteFile(out, dot, 0o644)
}

func renderSVG(dot []byte) ([]byte, error) {
	if _, err := exec.LookPath("dot"); err != nil {
		return nil, errors.New("dot not found in PATH; install graphviz or choose --format=dot")
	}
	var svgOut bytes.Buffer
	cmd := exec.Command("dot", "-Tsvg")
	cmd.Stdin = bytes.NewReader(dot)
	cmd.Stdout = &svgOut
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("dot render: %w", err)
	}
	return svgOut.Bytes(), nil
}

func buildDOT(m *bytecode.AnalyzedMethod, highlight *flow.CodeSection, title string) []byte {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	fmt.Fprintln(w, "digraph XOCFG {")
	fmt.Fprintln(w, "  node [shape=box, fontname=\"monospace\"];")
	if title != "" {
		fmt.Fprintf(w, "  labelloc=\"t\";\n  label=\"%s\";\n", escapeDOT(title))
	}
	// Nodes
	for i := range m.Instructions {
		label := fmt.Sprintf("%d: %v", i, &m.Instructions[i])
		if f := m.FrameAt(i); f != nil {
			label += "\n" + f.String()
		} else {
			label += "\nunreachable"
		}
		attrs := ""
		if highlight != nil && highlight.Start <= i && i < highlight.End {
			attrs = ", style=filled, fillcolor=\"lightblue\""
		}
		fmt.Fprintf(w, "  n%d [label=\"%s\"%s];\n", i, escapeDOT(label), attrs)
	}
	// Edges
	for i := range m.Instructions {
		jumps := make(map[int]bool)
		for _, j := range m.LabelNext(i) {
			jumps[j] = true
		}
		for _, j := range m.Next(i) {
			if jumps[j] {
				fmt.Fprintf(w, "  n%d -> n%d [style=dashed];\n", i, j)
			} else {
				fmt.Fprintf(w, "  n%d -> n%d;\n", i, j)
			}
		}
	}
	fmt.Fprintln(w, "}")
	w.Flush()
	return buf.Bytes()
}

func escapeDOT(s string) string {
	// Keep backslash sequences (like \n) intact so Graphviz can interpret them.
	// Only escape double-quotes and convert literal newlines to \n.
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
