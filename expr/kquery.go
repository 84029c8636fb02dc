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

package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// ToKQuery renders e as a fully self-contained, parseable prefix-notation
// string: every sub-expression is written out in full, with no shared
// labels. This is what the BDD serializer (spec §4.4) embeds directly in
// CALL payloads and what it writes, one per line, into the global kQuery
// pool. The upstream tool's printer emits shared-subexpression labels
// (`N0:(...)`) as a size optimization; per spec §4.4 those are substituted
// with their definitions before emission, so this package never needs to
// represent or parse the label shorthand.
func ToKQuery(e *Expr) string {
	var sb strings.Builder
	writeKQuery(&sb, e)
	return sb.String()
}

func writeKQuery(sb *strings.Builder, e *Expr) {
	switch e.kind {
	case KConstant:
		fmt.Fprintf(sb, "(Constant %d %d)", e.value, e.width)
	case KRead:
		sb.WriteString("(Read ")
		sb.WriteString(quoteArray(e.array))
		sb.WriteByte(' ')
		writeKQuery(sb, e.op)
		sb.WriteByte(')')
	case KExtract:
		fmt.Fprintf(sb, "(Extract %d %d ", e.offset, e.width)
		writeKQuery(sb, e.op)
		sb.WriteByte(')')
	case KZExt:
		fmt.Fprintf(sb, "(ZExt %d ", e.width)
		writeKQuery(sb, e.op)
		sb.WriteByte(')')
	case KSExt:
		fmt.Fprintf(sb, "(SExt %d ", e.width)
		writeKQuery(sb, e.op)
		sb.WriteByte(')')
	case KNot:
		sb.WriteString("(Not ")
		writeKQuery(sb, e.a)
		sb.WriteByte(')')
	case KSelect:
		sb.WriteString("(Select ")
		writeKQuery(sb, e.cond)
		sb.WriteByte(' ')
		writeKQuery(sb, e.a)
		sb.WriteByte(' ')
		writeKQuery(sb, e.b)
		sb.WriteByte(')')
	default:
		fmt.Fprintf(sb, "(%s ", e.kind.String())
		writeKQuery(sb, e.a)
		sb.WriteByte(' ')
		writeKQuery(sb, e.b)
		sb.WriteByte(')')
	}
}

func quoteArray(s string) string {
	return strconv.Quote(s)
}

// kindByName maps the textual operator name back to a Kind, for Decode.
var kindByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		if name != "" {
			m[name] = Kind(k)
		}
	}
	return m
}()

// ParseError reports a malformed kQuery-text expression (spec §7's
// "parse error" kind).
type ParseError struct {
	Input string
	Pos   int
	Msg   string
}

func (p *ParseError) Error() string {
	return fmt.Sprintf("expr: parse error at %d in %q: %s", p.Pos, p.Input, p.Msg)
}

// Decode parses the text produced by ToKQuery back into an *Expr interned
// into ar. Decode ∘ ToKQuery is required to be the identity modulo arena
// identity (spec §6, "lossless round-trip").
func Decode(ar *Arena, s string) (*Expr, error) {
	p := &kqParser{src: s, ar: ar}
	p.skipSpace()
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, &ParseError{Input: s, Pos: p.pos, Msg: "trailing input"}
	}
	return e, nil
}

type kqParser struct {
	src string
	pos int
	ar  *Arena
}

func (p *kqParser) errf(format string, args ...any) error {
	return &ParseError{Input: p.src, Pos: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *kqParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t' || p.src[p.pos] == '\n') {
		p.pos++
	}
}

func (p *kqParser) expect(b byte) error {
	if p.pos >= len(p.src) || p.src[p.pos] != b {
		return p.errf("expected %q", string(b))
	}
	p.pos++
	return nil
}

func (p *kqParser) word() string {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == ' ' || c == '(' || c == ')' || c == '\t' || c == '\n' {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *kqParser) parseQuoted() (string, error) {
	if err := p.expect('"'); err != nil {
		return "", err
	}
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] != '"' {
		p.pos++
	}
	if p.pos >= len(p.src) {
		return "", p.errf("unterminated string")
	}
	raw := p.src[start:p.pos]
	p.pos++
	out, err := strconv.Unquote(`"` + raw + `"`)
	if err != nil {
		return "", p.errf("bad quoted string: %s", err)
	}
	return out, nil
}

func (p *kqParser) parseInt() (int64, error) {
	p.skipSpace()
	start := p.pos
	if p.pos < len(p.src) && (p.src[p.pos] == '-' || p.src[p.pos] == '+') {
		p.pos++
	}
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	if start == p.pos {
		return 0, p.errf("expected integer")
	}
	n, err := strconv.ParseInt(p.src[start:p.pos], 10, 64)
	if err != nil {
		// ToKQuery prints constants as unsigned, so values >= 2^63
		// only fit a uint64.
		u, uerr := strconv.ParseUint(p.src[start:p.pos], 10, 64)
		if uerr != nil {
			return 0, p.errf("bad integer: %s", err)
		}
		n = int64(u)
	}
	return n, nil
}

func (p *kqParser) parseExpr() (*Expr, error) {
	p.skipSpace()
	if err := p.expect('('); err != nil {
		return nil, err
	}
	p.skipSpace()
	op := p.word()
	switch op {
	case "Constant":
		v, err := p.parseInt()
		if err != nil {
			return nil, err
		}
		w, err := p.parseInt()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return Const(p.ar, uint64(v), int(w)), nil
	case "Read":
		p.skipSpace()
		array, err := p.parseQuoted()
		if err != nil {
			return nil, err
		}
		idx, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return Read(p.ar, array, idx), nil
	case "Extract":
		off, err := p.parseInt()
		if err != nil {
			return nil, err
		}
		w, err := p.parseInt()
		if err != nil {
			return nil, err
		}
		src, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return Extract(p.ar, src, int(off), int(w)), nil
	case "ZExt", "SExt":
		w, err := p.parseInt()
		if err != nil {
			return nil, err
		}
		src, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		if op == "ZExt" {
			return ZExt(p.ar, src, int(w)), nil
		}
		return SExt(p.ar, src, int(w)), nil
	case "Not":
		a, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return Not(p.ar, a), nil
	case "Select":
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		then, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		els, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return Select(p.ar, cond, then, els), nil
	default:
		k, ok := kindByName[op]
		if !ok {
			return nil, p.errf("unknown operator %q", op)
		}
		a, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		b, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return applyBinaryKind(p.ar, k, a, b), nil
	}
}

func applyBinaryKind(ar *Arena, k Kind, a, b *Expr) *Expr {
	switch k {
	case KConcat:
		return Concat(ar, a, b)
	case KAdd:
		return Add(ar, a, b)
	case KSub:
		return Sub(ar, a, b)
	case KMul:
		return Mul(ar, a, b)
	case KUDiv:
		return UDiv(ar, a, b)
	case KSDiv:
		return SDiv(ar, a, b)
	case KURem:
		return URem(ar, a, b)
	case KSRem:
		return SRem(ar, a, b)
	case KAnd:
		return And(ar, a, b)
	case KOr:
		return Or(ar, a, b)
	case KXor:
		return Xor(ar, a, b)
	case KShl:
		return Shl(ar, a, b)
	case KLShr:
		return LShr(ar, a, b)
	case KAShr:
		return AShr(ar, a, b)
	case KEq:
		return Eq(ar, a, b)
	case KNe:
		return Ne(ar, a, b)
	case KUlt:
		return Ult(ar, a, b)
	case KUle:
		return Ule(ar, a, b)
	case KUgt:
		return Ugt(ar, a, b)
	case KUge:
		return Uge(ar, a, b)
	case KSlt:
		return Slt(ar, a, b)
	case KSle:
		return Sle(ar, a, b)
	case KSgt:
		return Sgt(ar, a, b)
	case KSge:
		return Sge(ar, a, b)
	}
	panic("expr: unreachable binary kind " + k.String())
}

// Pool accumulates distinct expressions in order of first appearance,
// exactly the shape the BDD serializer's global kQuery block needs
// (spec §4.4 point 2): one slot per distinct Id, referenced elsewhere by
// integer index.
type Pool struct {
	byID  map[Id]int
	exprs []*Expr
}

// NewPool returns an empty expression pool.
func NewPool() *Pool {
	return &Pool{byID: make(map[Id]int)}
}

// Index returns e's position in the pool, inserting it (and assigning it
// the next index) if this is its first appearance.
func (p *Pool) Index(e *Expr) int {
	if i, ok := p.byID[e.id]; ok {
		return i
	}
	i := len(p.exprs)
	p.byID[e.id] = i
	p.exprs = append(p.exprs, e)
	return i
}

// Exprs returns the pool's contents in first-appearance order.
func (p *Pool) Exprs() []*Expr { return p.exprs }

// At returns the i'th expression added to the pool.
func (p *Pool) At(i int) *Expr { return p.exprs[i] }

// Len reports how many distinct expressions are in the pool.
func (p *Pool) Len() int { return len(p.exprs) }
