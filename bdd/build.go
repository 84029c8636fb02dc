// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package bdd

import (
	"github.com/pmdm56/vigor-klee-sub000/callpath"
	"github.com/pmdm56/vigor-klee-sub000/expr"
	"github.com/pmdm56/vigor-klee-sub000/group"
	"github.com/pmdm56/vigor-klee-sub000/solver"
)

// startTimeMarker is the call that separates a network function's
// per-device initialization from its per-packet processing (spec
// §4.4's "splitting init vs process").
const startTimeMarker = "start_time"

// skipFunctions are calls the init/process split drops from the
// emitted Call-node chain: they carry no node of their own because
// they're folded into a return leaf instead (packet_receive and
// packet_send feed ReturnProcess's Drop/Fwd/Broadcast classification;
// see classifyReturnProcess) or are bookkeeping the upstream symbolic
// executor inserts around the loop and packet lifecycle.
var skipFunctions = map[string]bool{
	"loop_invariant_consume":    true,
	"loop_invariant_produce":    true,
	"packet_receive":            true,
	"packet_send":               true,
	"packet_state_total_length": true,
	"packet_free":               true,
	startTimeMarker:             true,
}

// skipConditionSymbols names the symbols a Branch condition, if it
// references any of them, marks as a "skip condition": branches the
// process split collapses rather than keeping as a real decision
// point, because they encode loop bookkeeping rather than packet
// processing logic.
var skipConditionSymbols = map[string]bool{
	"received_a_packet": true,
	"loop_termination":  true,
}

// rawKind discriminates the transient tree Build constructs before
// the init/process split; rawReturn is the spec's internal-only
// ReturnRaw node, which never survives into a finalized *BDD.
type rawKind int

const (
	rawCall rawKind = iota
	rawBranch
	rawReturn
)

type rawNode struct {
	kind rawKind

	next            *rawNode
	onTrue, onFalse *rawNode

	call             *callpath.Call
	generatedSymbols []callpath.Symbol

	condition *expr.Expr

	filenames    []string
	constraints  [][]*expr.Expr
	missingCalls [][]*callpath.Call
}

// Build constructs a BDD from a set of call paths (spec §4.4's
// "Build"): repeatedly applies the grouper to the paths sharing a
// prefix, emitting a Call node when they all agree on the next call
// and a Branch node (recursing into on_true/on_false) otherwise; a
// final pass then splits the raw tree into the init and process
// sub-BDDs.
func Build(sc *solver.Context, paths []*callpath.CallPath, opts group.Options) (*BDD, error) {
	raw, err := populate(sc, clonePaths(paths), opts)
	if err != nil {
		return nil, err
	}

	b := &BDD{nodes: make(map[NodeId]*Node)}
	b.InitRoot = populateInit(b, raw)
	b.ProcessRoot, _ = populateProcess(b, raw, false, nil)
	return b, nil
}

// clonePaths makes a shallow copy of the path slice (and of each
// path's remaining-calls slice) so Build never mutates the caller's
// own []*callpath.CallPath backing array, even though each CallPath's
// Calls field is consumed (popped from the front) during population.
func clonePaths(paths []*callpath.CallPath) []*callpath.CallPath {
	out := make([]*callpath.CallPath, len(paths))
	for i, p := range paths {
		cp := *p
		cp.Calls = append([]*callpath.Call(nil), p.Calls...)
		out[i] = &cp
	}
	return out
}

func filenames(paths []*callpath.CallPath) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = p.Filename
	}
	return out
}

func constraintSets(paths []*callpath.CallPath) [][]*expr.Expr {
	out := make([][]*expr.Expr, len(paths))
	for i, p := range paths {
		out[i] = p.Constraints
	}
	return out
}

func remainingCalls(paths []*callpath.CallPath) [][]*callpath.Call {
	out := make([][]*callpath.Call, len(paths))
	for i, p := range paths {
		out[i] = p.Calls
	}
	return out
}

// populate is the direct translation of BDD::populate (spec §4.4): a
// loop that keeps splitting the current path set, emitting one Call
// node per trivial split and recursing into Branch children on a
// non-trivial one.
func populate(sc *solver.Context, paths []*callpath.CallPath, opts group.Options) (*rawNode, error) {
	var root, leaf *rawNode

	for len(paths) > 0 {
		res, err := group.Split(sc, paths, opts)
		if err != nil {
			return nil, err
		}

		if len(res.OnFalse) == 0 {
			if len(res.OnTrue[0].Calls) == 0 {
				break
			}
			call := successfulCall(sc, res.OnTrue)
			node := &rawNode{
				kind:             rawCall,
				call:             call,
				generatedSymbols: generatedSymbolsOf(call),
				filenames:        filenames(res.OnTrue),
				constraints:      constraintSets(res.OnTrue),
				missingCalls:     remainingCalls(res.OnTrue),
			}
			if root == nil {
				root, leaf = node, node
			} else {
				leaf.next = node
				leaf = node
			}
			for _, p := range paths {
				p.Calls = p.Calls[1:]
			}
			continue
		}

		onTrueRoot, err := populate(sc, res.OnTrue, opts)
		if err != nil {
			return nil, err
		}
		onFalseRoot, err := populate(sc, res.OnFalse, opts)
		if err != nil {
			return nil, err
		}
		branch := &rawNode{
			kind:        rawBranch,
			condition:   res.Discriminant,
			onTrue:      onTrueRoot,
			onFalse:     onFalseRoot,
			filenames:   filenames(paths),
			constraints: constraintSets(paths),
		}
		if root == nil {
			return branch, nil
		}
		leaf.next = branch
		return root, nil
	}

	ret := &rawNode{
		kind:         rawReturn,
		filenames:    filenames(paths),
		constraints:  constraintSets(paths),
		missingCalls: remainingCalls(paths),
	}
	if root == nil {
		return ret, nil
	}
	leaf.next = ret
	return root, nil
}

// successfulCall picks, among paths that all agree on their next
// call, the one whose return value is demonstrably non-zero (a
// "successful" outcome), per spec's get_successful_call: the
// discriminating constraint that led here is satisfied by every one
// of these paths, so any representative call's argument expressions
// are interchangeable for the Call node — only the return value
// varies usefully for picking a "nicer" representative to print.
func successfulCall(sc *solver.Context, paths []*callpath.CallPath) *callpath.Call {
	for _, p := range paths {
		call := p.Calls[0]
		if call.Return == nil {
			return call
		}
		zero := expr.Const(call.Return.Arena(), 0, call.Return.Width())
		eqZero := expr.Eq(call.Return.Arena(), call.Return, zero)
		if sc.MustBeFalse(p.Constraints, eqZero) {
			return call
		}
	}
	return paths[0].Calls[0]
}

// generatedSymbolsOf collects the symbols a call produces: its output-
// pointer arguments, its return value, and the "after" half of its
// extra-variable pairs (spec §3: "generated_symbols" on a Call node).
// The label/label_base distinction the upstream symbolic executor
// attaches to a genuinely fresh symbol isn't recoverable from this
// repo's simplified call-path loader (callpath.Load), so each produced
// expression is wrapped with its argument/variable name standing in
// for both Label and LabelBase — documented as a simplification.
func generatedSymbolsOf(call *callpath.Call) []callpath.Symbol {
	var out []callpath.Symbol
	for _, na := range call.Args {
		if na.Arg.Out != nil {
			out = append(out, callpath.Symbol{Label: na.Name, LabelBase: na.Name, Expr: na.Arg.Out})
		}
	}
	for _, ev := range call.Extra {
		if ev.After != nil {
			out = append(out, callpath.Symbol{Label: ev.Name, LabelBase: ev.Name, Expr: ev.After})
		}
	}
	if call.Return != nil {
		out = append(out, callpath.Symbol{Label: call.Function + ".return", LabelBase: call.Function, Expr: call.Return})
	}
	return out
}
