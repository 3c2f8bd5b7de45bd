// Copyright 2024 The bcxo Authors
// This file is part of the bcxo library.
//
// The bcxo library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The bcxo library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the bcxo library. If not, see <http://www.gnu.org/licenses/>.

package xo

import (
	"fmt"

	"github.com/finchgp/bcxo/core/bytecode"
	"github.com/finchgp/bcxo/core/flow"
	"github.com/finchgp/bcxo/log"
)

// Requirements a crossover may violate, as reported by Explain.
const (
	ReasonSourceFlow       = "source section cannot be entered and left"
	ReasonDestFlow         = "destination section cannot be entered and left"
	ReasonPopDepth         = "destination stack too shallow for source pops"
	ReasonStackEffect      = "stack effects differ"
	ReasonPops             = "destination pops not narrower than source pops"
	ReasonPushes           = "source pushes not narrower than destination pushes"
	ReasonPassThrough      = "stack below source pops not preserved"
	ReasonTailFlow         = "code after destination unreachable"
	ReasonWritesRead       = "source writes not narrower than later reads"
	ReasonHeadFlow         = "code before destination unreachable"
	ReasonLaterReads       = "later reads not always written before"
	ReasonSourceReads      = "source reads not always written before"
	ReasonUnresolvedMember = "unresolved member"
)

// Checker decides whether replacing a destination section (alpha) with a
// source section (beta) keeps the destination method verifiable. It holds
// no mutable state and is safe for concurrent use.
type Checker struct {
	dest     *flow.CodeAccesses
	src      *flow.CodeAccesses
	verifier *TypeVerifier
}

// NewChecker prepares the dataflow summaries of both methods. Code moved
// into the destination class refers to it where it referred to the source
// class, so unless verifier already aliases the source class, the checker
// reads it as the destination class. verifier itself is not modified.
func NewChecker(dest, src *bytecode.AnalyzedMethod, verifier *TypeVerifier) (*Checker, error) {
	destAcc, err := flow.NewCodeAccesses(dest)
	if err != nil {
		return nil, fmt.Errorf("destination: %w", err)
	}
	srcAcc, err := flow.NewCodeAccesses(src)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	return &Checker{
		dest:     destAcc,
		src:      srcAcc,
		verifier: verifier.withAlias(src.Owner, dest.Owner),
	}, nil
}

// Destination returns the method alpha sections belong to.
func (c *Checker) Destination() *bytecode.AnalyzedMethod { return c.dest.Method() }

// Source returns the method beta sections belong to.
func (c *Checker) Source() *bytecode.AnalyzedMethod { return c.src.Method() }

// IsCompatible reports whether alpha may be replaced by beta.
func (c *Checker) IsCompatible(alpha, beta flow.CodeSection) bool {
	betaActions := c.sourceActions(beta)
	return c.stack(alpha, betaActions) == "" &&
		c.locals(alpha, betaActions) == "" &&
		c.members(beta) == ""
}

// StackCompatible checks the operand stack requirements alone.
func (c *Checker) StackCompatible(alpha, beta flow.CodeSection) bool {
	return c.stack(alpha, c.sourceActions(beta)) == ""
}

// LocalsCompatible checks the local variable requirements alone.
func (c *Checker) LocalsCompatible(alpha, beta flow.CodeSection) bool {
	return c.locals(alpha, c.sourceActions(beta)) == ""
}

// MembersCompatible checks that the fields and methods beta refers to in
// its own or the destination class exist in the destination class.
func (c *Checker) MembersCompatible(alpha, beta flow.CodeSection) bool {
	return c.members(beta) == ""
}

// Explain returns the first violated requirement of each check, or nil if
// the pair is compatible.
func (c *Checker) Explain(alpha, beta flow.CodeSection) []string {
	betaActions := c.sourceActions(beta)
	var reasons []string
	for _, r := range []string{c.stack(alpha, betaActions), c.locals(alpha, betaActions), c.members(beta)} {
		if r != "" {
			reasons = append(reasons, r)
		}
	}
	return reasons
}

func (c *Checker) sourceActions(beta flow.CodeSection) *flow.FrameActions {
	a, err := c.src.Section(beta.Start, beta.End, false)
	if err != nil {
		log.Debug("Invalid source section", "section", beta, "err", err)
		return nil
	}
	return a
}

func (c *Checker) stack(alphaSection flow.CodeSection, beta *flow.FrameActions) string {
	if beta == nil {
		return ReasonSourceFlow
	}
	// Without alpha's own flow its exit stack is not reliable.
	alpha, err := c.dest.Section(alphaSection.Start, alphaSection.End, false)
	if err != nil || alpha == nil {
		return ReasonDestFlow
	}

	betaPops, betaPushes := beta.StackPops(0), beta.StackPushes(0)
	popBeta, pushBeta := len(betaPops), len(betaPushes)
	if popBeta > alpha.EntryHeight() {
		return ReasonPopDepth
	}
	alphaPops, alphaPushes := alpha.StackPops(popBeta), alpha.StackPushes(popBeta)
	popAlpha, pushAlpha := len(alphaPops), len(alphaPushes)

	delta := popAlpha - popBeta
	if pushAlpha-pushBeta != delta {
		return ReasonStackEffect
	}
	if !c.verifier.ListNarrowerThan(alphaPops[delta:], betaPops) {
		return ReasonPops
	}
	if !c.verifier.ListNarrowerThan(betaPushes, alphaPushes[delta:]) {
		return ReasonPushes
	}
	if !c.verifier.ListNarrowerThan(alphaPops[:delta], alphaPushes[:delta]) {
		return ReasonPassThrough
	}
	return ""
}

func (c *Checker) locals(alphaSection flow.CodeSection, beta *flow.FrameActions) string {
	if beta == nil {
		return ReasonSourceFlow
	}
	post, err := c.dest.Tail(alphaSection.End)
	if err != nil || post == nil {
		return ReasonTailFlow
	}
	postRead := post.VarsRead()
	if !c.verifier.MapNarrowerThan(beta.VarsWritten(), postRead, false) {
		return ReasonWritesRead
	}

	pre, err := c.dest.Head(alphaSection.Start)
	if err != nil || pre == nil {
		return ReasonHeadFlow
	}
	preWritten := pre.VarsWrittenAlways()

	betaAlways := beta.VarsWrittenAlways()
	for v := range postRead {
		if _, ok := betaAlways[v]; ok {
			delete(postRead, v)
		}
	}
	if !c.verifier.MapNarrowerThan(preWritten, postRead, true) {
		return ReasonLaterReads
	}
	if !c.verifier.MapNarrowerThan(preWritten, beta.VarsRead(), true) {
		return ReasonSourceReads
	}
	return ""
}

func (c *Checker) members(beta flow.CodeSection) string {
	dest := c.dest.Method().Owner
	h := c.verifier.Hierarchy()
	if _, ok := h.Lookup(dest); !ok {
		return ""
	}
	for _, in := range beta.Instructions() {
		if !in.IsMemberRef() || c.verifier.Resolve(in.Owner) != dest {
			continue
		}
		var ok bool
		if in.Kind == bytecode.KindField {
			ok = h.ResolveField(dest, in.Name, in.Desc)
		} else {
			ok = h.ResolveMethod(dest, in.Name, in.Desc)
		}
		if !ok {
			return fmt.Sprintf("%s %s.%s %s", ReasonUnresolvedMember, in.Owner, in.Name, in.Desc)
		}
	}
	return ""
}
