package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/finchgp/bcxo/cmd/utils"
	"github.com/finchgp/bcxo/core/bytecode"
	"github.com/finchgp/bcxo/core/flow"
	"github.com/finchgp/bcxo/core/xo"
	"github.com/finchgp/bcxo/log"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
)

var (
	listFlag = &cli.BoolFlag{
		Name:  "list",
		Usage: "List every section instead of counting them by size",
	}

	sectionsCommand = &cli.Command{
		Action:    sections,
		Name:      "sections",
		Usage:     "Show the legal sections of a method",
		ArgsUsage: "<Class.method(desc)>",
		Flags:     []cli.Flag{listFlag},
		Description: `
Counts the sections of the method by size, for both the destination role
(sections no outside branch jumps into) and the source role (sections no
inside branch jumps out of).`,
	}
	checkCommand = &cli.Command{
		Action:    check,
		Name:      "check",
		Usage:     "Check whether a source section may replace a destination section",
		ArgsUsage: "<dest method> <start:end> <source method> <start:end>",
		Description: `
Runs the stack, local variable and member checks on one pair of sections and
prints the first violated requirement of each. Sections are half-open
instruction ranges.`,
	}
	findCommand = &cli.Command{
		Action:    find,
		Name:      "find",
		Usage:     "Search for a compatible crossover",
		ArgsUsage: "<dest method> <source method>",
		Description: `
Samples section pairs with the configured strategy until one passes the
checker or the try budget runs out.`,
	}
	surveyCommand = &cli.Command{
		Action:    survey,
		Name:      "survey",
		Usage:     "Count the compatible pairs among all section pairs",
		ArgsUsage: "<dest method> <source method>",
	}
)

// parseMethodRef splits Class.method(desc).
func parseMethodRef(ref string) (class, name, desc string, err error) {
	paren := strings.IndexByte(ref, '(')
	if paren < 0 {
		return "", "", "", fmt.Errorf("method %q: missing descriptor", ref)
	}
	dot := strings.LastIndexByte(ref[:paren], '.')
	if dot <= 0 || dot == paren-1 {
		return "", "", "", fmt.Errorf("method %q: want Class.method(desc)", ref)
	}
	return ref[:dot], ref[dot+1 : paren], ref[paren:], nil
}

// parseSection reads start:end or [start,end).
func parseSection(m *bytecode.AnalyzedMethod, s string) (flow.CodeSection, error) {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(s, "["), ")")
	parts := strings.FieldsFunc(trimmed, func(r rune) bool { return r == ':' || r == ',' })
	if len(parts) != 2 {
		return flow.CodeSection{}, fmt.Errorf("section %q: want start:end", s)
	}
	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return flow.CodeSection{}, fmt.Errorf("section %q: %v", s, err)
	}
	end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return flow.CodeSection{}, fmt.Errorf("section %q: %v", s, err)
	}
	return flow.NewCodeSection(m, start, end)
}

func analyzeMethod(h *bytecode.Hierarchy, ref string) (*bytecode.AnalyzedMethod, error) {
	class, name, desc, err := parseMethodRef(ref)
	if err != nil {
		return nil, err
	}
	c, ok := h.Lookup(class)
	if !ok {
		return nil, fmt.Errorf("class %s not loaded", class)
	}
	m := c.FindMethod(name, desc)
	if m == nil {
		return nil, fmt.Errorf("class %s has no method %s%s", class, name, desc)
	}
	start := time.Now()
	am, err := bytecode.Analyze(m, h)
	if err != nil {
		return nil, err
	}
	log.Debug("Analyzed method", "method", am.FullName(), "instructions", am.Len(), "elapsed", time.Since(start))
	return am, nil
}

// parents holds a destination and a source method analyzed against the
// same classes.
type parents struct {
	cfg       *xofindConfig
	verifier  *xo.TypeVerifier
	dest, src *bytecode.AnalyzedMethod
}

// loadParents analyzes the destination and source methods concurrently.
func loadParents(ctx *cli.Context, destRef, srcRef string) (*parents, error) {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return nil, err
	}
	h, err := utils.MakeHierarchy(&cfg.Input)
	if err != nil {
		return nil, err
	}
	p := &parents{cfg: cfg, verifier: utils.MakeVerifier(&cfg.Input, h)}

	var g errgroup.Group
	g.Go(func() (err error) {
		p.dest, err = analyzeMethod(h, destRef)
		return err
	})
	g.Go(func() (err error) {
		p.src, err = analyzeMethod(h, srcRef)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *parents) checker() (*xo.Checker, error) {
	return xo.NewChecker(p.dest, p.src, p.verifier)
}

func sections(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
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

	var (
		dests, srcs *flow.SectionIndex
		g           errgroup.Group
	)
	g.Go(func() (err error) {
		dests, err = flow.CachedSectionIndex(m, flow.RoleDestination)
		return err
	})
	g.Go(func() (err error) {
		srcs, err = flow.CachedSectionIndex(m, flow.RoleSource)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	if ctx.Bool(listFlag.Name) {
		table.SetHeader([]string{"Role", "Section", "Size"})
		for _, idx := range []*flow.SectionIndex{dests, srcs} {
			idx.Each(func(s flow.CodeSection) bool {
				table.Append([]string{idx.Role().String(), fmt.Sprintf("[%d,%d)", s.Start, s.End), strconv.Itoa(s.Size())})
				return true
			})
		}
		table.Render()
		return nil
	}
	table.SetHeader([]string{"Size", "Destination", "Source"})
	for size := 0; size <= max(dests.MaxSize(), srcs.MaxSize()); size++ {
		d, s := len(dests.Sections(size)), len(srcs.Sections(size))
		if d == 0 && s == 0 {
			continue
		}
		table.Append([]string{strconv.Itoa(size), strconv.Itoa(d), strconv.Itoa(s)})
	}
	table.SetFooter([]string{"Total", strconv.Itoa(dests.Len()), strconv.Itoa(srcs.Len())})
	table.Render()
	return nil
}

func check(ctx *cli.Context) error {
	if ctx.NArg() != 4 {
		return fmt.Errorf("required arguments: %v", ctx.Command.ArgsUsage)
	}
	args := ctx.Args()
	p, err := loadParents(ctx, args.Get(0), args.Get(2))
	if err != nil {
		return err
	}
	alpha, err := parseSection(p.dest, args.Get(1))
	if err != nil {
		return err
	}
	beta, err := parseSection(p.src, args.Get(3))
	if err != nil {
		return err
	}
	checker, err := p.checker()
	if err != nil {
		return err
	}

	printSection("Destination", alpha)
	printSection("Source", beta)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Check", "Result"})
	table.Append([]string{"stack", strconv.FormatBool(checker.StackCompatible(alpha, beta))})
	table.Append([]string{"locals", strconv.FormatBool(checker.LocalsCompatible(alpha, beta))})
	table.Append([]string{"members", strconv.FormatBool(checker.MembersCompatible(alpha, beta))})
	table.SetFooter([]string{"compatible", strconv.FormatBool(checker.IsCompatible(alpha, beta))})
	table.Render()
	for _, reason := range checker.Explain(alpha, beta) {
		fmt.Println(" -", reason)
	}
	return nil
}

func printSection(title string, s flow.CodeSection) {
	fmt.Printf("%s %v\n", title, s)
	for i, in := range s.Instructions() {
		fmt.Printf("  %4d  %v\n", s.Start+i, &in)
	}
}

func find(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		return fmt.Errorf("required arguments: %v", ctx.Command.ArgsUsage)
	}
	p, err := loadParents(ctx, ctx.Args().Get(0), ctx.Args().Get(1))
	if err != nil {
		return err
	}
	checker, err := p.checker()
	if err != nil {
		return err
	}
	seed := p.cfg.Crossover.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	log.Info("Searching crossover", "dest", p.dest.FullName(), "src", p.src.FullName(), "seed", seed)
	log.Debug("Crossover settings\n" + p.cfg.Crossover.Description())

	finder, err := xo.NewFinder(p.dest, p.src, checker, rand.New(rand.NewSource(seed)), p.cfg.Crossover, nil)
	if err != nil {
		return err
	}
	proposal, ok := finder.Search()
	if !ok {
		return fmt.Errorf("no compatible crossover in %d tries", finder.Attempts())
	}
	fmt.Printf("Found %v after %d attempts\n", proposal, finder.Attempts())
	printSection("Remove", proposal.Alpha)
	printSection("Insert", proposal.Beta)
	return nil
}

func survey(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		return fmt.Errorf("required arguments: %v", ctx.Command.ArgsUsage)
	}
	p, err := loadParents(ctx, ctx.Args().Get(0), ctx.Args().Get(1))
	if err != nil {
		return err
	}
	checker, err := p.checker()
	if err != nil {
		return err
	}
	alphas, err := flow.CachedSectionIndex(p.dest, flow.RoleDestination)
	if err != nil {
		return err
	}
	betas, err := flow.CachedSectionIndex(p.src, flow.RoleSource)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := xo.Survey(ctx.Context, checker, alphas, betas)
	if errors.Is(err, context.Canceled) {
		return errors.New("survey interrupted")
	}
	if err != nil {
		return err
	}
	log.Info("Survey done", "pairs", res.Pairs, "compatible", res.Compatible, "elapsed", time.Since(start))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Alpha size", "Compatible pairs"})
	for _, size := range res.Sizes() {
		table.Append([]string{strconv.Itoa(size), strconv.Itoa(res.BySize[size])})
	}
	table.SetFooter([]string{"Total", fmt.Sprintf("%d / %d", res.Compatible, res.Pairs)})
	table.Render()
	return nil
}
