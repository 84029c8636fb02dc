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
	"fmt"
	"strings"

	"github.com/pmdm56/vigor-klee-sub000/callpath"
	"github.com/pmdm56/vigor-klee-sub000/expr"
)

// formatCall renders a Call node's payload per spec §4.4: "name(arg1:
// expr1[, arg2:expr2&fn_ptr_name … or &[in_expr->out_expr] …])
// {extra1:[in->out] …}->ret_expr_or_[]". Each sub-expression is full,
// self-contained kQuery text (expr.ToKQuery) — never a pool index —
// so a CALL payload never depends on the global kQuery block's order.
func formatCall(c *callpath.Call) string {
	var sb strings.Builder
	sb.WriteString(c.Function)
	sb.WriteByte('(')
	for i, na := range c.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(na.Name)
		switch {
		case na.Arg.HasFnPtr:
			fmt.Fprintf(&sb, ":%s&%s", expr.ToKQuery(na.Arg.Expr), na.Arg.FnPtrName)
		case na.Arg.In != nil || na.Arg.Out != nil:
			sb.WriteString("&[")
			sb.WriteString(exprOrHole(na.Arg.In))
			sb.WriteString("->")
			sb.WriteString(exprOrHole(na.Arg.Out))
			sb.WriteByte(']')
		default:
			fmt.Fprintf(&sb, ":%s", expr.ToKQuery(na.Arg.Expr))
		}
	}
	sb.WriteByte(')')

	sb.WriteByte('{')
	for i, ev := range c.Extra {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s:[%s->%s]", ev.Name, exprOrHole(ev.Before), exprOrHole(ev.After))
	}
	sb.WriteByte('}')

	sb.WriteString("->")
	if c.Return == nil {
		sb.WriteString("[]")
	} else {
		sb.WriteString(expr.ToKQuery(c.Return))
	}
	return sb.String()
}

const holeMarker = "_"

func exprOrHole(e *expr.Expr) string {
	if e == nil {
		return holeMarker
	}
	return expr.ToKQuery(e)
}

// parseCall is the inverse of formatCall.
func parseCall(ar *expr.Arena, s string) (*callpath.Call, error) {
	open := strings.IndexByte(s, '(')
	if open < 0 {
		return nil, fmt.Errorf("bdd: malformed call payload: %q", s)
	}
	c := &callpath.Call{Function: s[:open]}
	rest := s[open+1:]

	argsEnd, err := matchParen(rest)
	if err != nil {
		return nil, err
	}
	argsStr := rest[:argsEnd]
	rest = rest[argsEnd+1:]

	if err := parseArgs(ar, c, argsStr); err != nil {
		return nil, err
	}

	if !strings.HasPrefix(rest, "{") {
		return nil, fmt.Errorf("bdd: malformed call payload: expected '{' in %q", s)
	}
	rest = rest[1:]
	extraEnd, err := matchBrace(rest)
	if err != nil {
		return nil, err
	}
	extraStr := rest[:extraEnd]
	rest = rest[extraEnd+1:]

	if err := parseExtras(ar, c, extraStr); err != nil {
		return nil, err
	}

	if !strings.HasPrefix(rest, "->") {
		return nil, fmt.Errorf("bdd: malformed call payload: expected '->' in %q", s)
	}
	retStr := rest[2:]
	if retStr != "[]" {
		e, err := expr.Decode(ar, retStr)
		if err != nil {
			return nil, err
		}
		c.Return = e
	}
	return c, nil
}

// matchParen/matchBrace find the index of the balanced closing
// delimiter, accounting for nested parens inside kQuery expressions.
func matchParen(s string) (int, error) { return matchDelim(s, '(', ')') }
func matchBrace(s string) (int, error) { return matchDelim(s, '{', '}') }

func matchDelim(s string, open, close byte) (int, error) {
	depth := 1
	inQuote := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inQuote {
			if c == '"' {
				inQuote = false
			}
			continue
		}
		switch c {
		case '"':
			inQuote = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("bdd: unbalanced %q/%q in %q", string(open), string(close), s)
}

// splitTopLevel splits s on ", " at paren/brace/quote nesting depth 0.
func splitTopLevel(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	depth := 0
	inQuote := false
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inQuote {
			if c == '"' {
				inQuote = false
			}
			continue
		}
		switch c {
		case '"':
			inQuote = true
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
				if start < len(s) && s[start] == ' ' {
					start++
				}
			}
		}
	}
	out = append(out, strings.TrimSpace(s[start:]))
	return out
}

func parseArgs(ar *expr.Arena, c *callpath.Call, s string) error {
	for _, field := range splitTopLevel(s) {
		if field == "" {
			continue
		}
		colon := strings.IndexAny(field, ":&")
		if colon < 0 {
			return fmt.Errorf("bdd: malformed arg field: %q", field)
		}
		name := field[:colon]
		rest := field[colon:]
		var a callpath.Arg
		switch {
		case strings.HasPrefix(rest, "&["):
			body := rest[2 : len(rest)-1]
			arrow := strings.Index(body, "->")
			if arrow < 0 {
				return fmt.Errorf("bdd: malformed in/out arg: %q", field)
			}
			inStr, outStr := body[:arrow], body[arrow+2:]
			if inStr != holeMarker {
				e, err := expr.Decode(ar, inStr)
				if err != nil {
					return err
				}
				a.In = e
			}
			if outStr != holeMarker {
				e, err := expr.Decode(ar, outStr)
				if err != nil {
					return err
				}
				a.Out = e
			}
		case strings.HasPrefix(rest, ":"):
			body := rest[1:]
			if amp := strings.LastIndex(body, "&"); amp >= 0 && !strings.Contains(body[amp:], ")") {
				exprStr := body[:amp]
				e, err := expr.Decode(ar, exprStr)
				if err != nil {
					return err
				}
				a.Expr = e
				a.FnPtrName = body[amp+1:]
				a.HasFnPtr = true
			} else {
				e, err := expr.Decode(ar, body)
				if err != nil {
					return err
				}
				a.Expr = e
			}
		default:
			return fmt.Errorf("bdd: malformed arg field: %q", field)
		}
		c.Args = append(c.Args, callpath.NamedArg{Name: name, Arg: a})
	}
	return nil
}

func parseExtras(ar *expr.Arena, c *callpath.Call, s string) error {
	for _, field := range splitTopLevel(s) {
		if field == "" {
			continue
		}
		colon := strings.Index(field, ":[")
		if colon < 0 {
			return fmt.Errorf("bdd: malformed extra field: %q", field)
		}
		name := field[:colon]
		body := field[colon+2 : len(field)-1]
		arrow := strings.Index(body, "->")
		if arrow < 0 {
			return fmt.Errorf("bdd: malformed extra field: %q", field)
		}
		beforeStr, afterStr := body[:arrow], body[arrow+2:]
		ev := callpath.ExtraVar{Name: name}
		if beforeStr != holeMarker {
			e, err := expr.Decode(ar, beforeStr)
			if err != nil {
				return err
			}
			ev.Before = e
		}
		if afterStr != holeMarker {
			e, err := expr.Decode(ar, afterStr)
			if err != nil {
				return err
			}
			ev.After = e
		}
		c.Extra = append(c.Extra, ev)
	}
	return nil
}
