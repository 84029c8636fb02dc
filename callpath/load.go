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

package callpath

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pmdm56/vigor-klee-sub000/expr"
)

// Load reads one call path from r, in this repo's own line-oriented
// call-path block shape — NOT the upstream symbolic executor's
// grammar, which spec §1 places out of scope. Every expression
// sub-field is itself valid kQuery (expr.Decode), so the only grammar
// this format adds is the line structure below:
//
//	constraints:
//	<kquery expr>
//	...
//	calls:
//	call <function name>
//	  arg <name> = <kquery expr>
//	  arg <name> in = <kquery expr>
//	  arg <name> out = <kquery expr>
//	  arg <name> fnptr = <function name>
//	  extra <name> before = <kquery expr> after = <kquery expr>
//	  return <kquery expr>
//
// A "call" line starts a new Call; "arg"/"extra"/"return" lines
// belong to the most recently started call. Blank lines and lines
// starting with "#" are ignored.
func Load(ar *expr.Arena, filename string, r io.Reader) (*CallPath, error) {
	cp := &CallPath{Filename: filename}
	var cur *Call

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	section := ""
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		switch line {
		case "constraints:":
			section = "constraints"
			continue
		case "calls:":
			section = "calls"
			continue
		}

		switch section {
		case "constraints":
			e, err := expr.Decode(ar, line)
			if err != nil {
				return nil, fmt.Errorf("callpath: %s:%d: %w", filename, lineNo, err)
			}
			cp.Constraints = append(cp.Constraints, e)
		case "calls":
			if err := parseCallLine(ar, cp, &cur, line); err != nil {
				return nil, fmt.Errorf("callpath: %s:%d: %w", filename, lineNo, err)
			}
		default:
			return nil, fmt.Errorf("callpath: %s:%d: line outside any section: %q", filename, lineNo, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return cp, nil
}

func parseCallLine(ar *expr.Arena, cp *CallPath, cur **Call, line string) error {
	switch {
	case strings.HasPrefix(line, "call "):
		c := &Call{Function: strings.TrimSpace(line[len("call "):])}
		cp.Calls = append(cp.Calls, c)
		*cur = c
		return nil
	case strings.HasPrefix(line, "arg "):
		if *cur == nil {
			return fmt.Errorf("arg line before any call")
		}
		return parseArgLine(ar, *cur, line[len("arg "):])
	case strings.HasPrefix(line, "extra "):
		if *cur == nil {
			return fmt.Errorf("extra line before any call")
		}
		return parseExtraLine(ar, *cur, line[len("extra "):])
	case strings.HasPrefix(line, "return "):
		if *cur == nil {
			return fmt.Errorf("return line before any call")
		}
		e, err := expr.Decode(ar, strings.TrimSpace(line[len("return "):]))
		if err != nil {
			return err
		}
		(*cur).Return = e
		return nil
	}
	return fmt.Errorf("unrecognized call-section line: %q", line)
}

// parseArgLine parses the body after "arg ", one of:
//
//	name = EXPR
//	name in = EXPR
//	name out = EXPR
//	name fnptr = NAME
func parseArgLine(ar *expr.Arena, c *Call, body string) error {
	fields := strings.SplitN(body, "=", 2)
	if len(fields) != 2 {
		return fmt.Errorf("malformed arg line: %q", body)
	}
	head := strings.Fields(fields[0])
	val := strings.TrimSpace(fields[1])
	if len(head) == 0 {
		return fmt.Errorf("malformed arg line: %q", body)
	}
	name := head[0]
	var kind string
	if len(head) > 1 {
		kind = head[1]
	}

	idx := -1
	for i, na := range c.Args {
		if na.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.Args = append(c.Args, NamedArg{Name: name})
		idx = len(c.Args) - 1
	}
	a := &c.Args[idx].Arg

	switch kind {
	case "":
		e, err := expr.Decode(ar, val)
		if err != nil {
			return err
		}
		a.Expr = e
	case "in":
		e, err := expr.Decode(ar, val)
		if err != nil {
			return err
		}
		a.In = e
	case "out":
		e, err := expr.Decode(ar, val)
		if err != nil {
			return err
		}
		a.Out = e
	case "fnptr":
		a.FnPtrName = val
		a.HasFnPtr = true
	default:
		return fmt.Errorf("unknown arg qualifier %q", kind)
	}
	return nil
}

// parseExtraLine parses the body after "extra ": "name before = EXPR after = EXPR".
func parseExtraLine(ar *expr.Arena, c *Call, body string) error {
	beforeIdx := strings.Index(body, "before")
	afterIdx := strings.Index(body, "after")
	if beforeIdx < 0 || afterIdx < 0 || afterIdx < beforeIdx {
		return fmt.Errorf("malformed extra line: %q", body)
	}
	name := strings.TrimSpace(body[:beforeIdx])
	beforeExpr := strings.TrimSpace(body[beforeIdx+len("before") : afterIdx])
	beforeExpr = strings.TrimPrefix(strings.TrimSpace(beforeExpr), "=")
	beforeExpr = strings.TrimSpace(beforeExpr)
	afterExpr := strings.TrimSpace(body[afterIdx+len("after"):])
	afterExpr = strings.TrimPrefix(strings.TrimSpace(afterExpr), "=")
	afterExpr = strings.TrimSpace(afterExpr)

	b, err := expr.Decode(ar, beforeExpr)
	if err != nil {
		return err
	}
	af, err := expr.Decode(ar, afterExpr)
	if err != nil {
		return err
	}
	c.Extra = append(c.Extra, ExtraVar{Name: name, Before: b, After: af})
	return nil
}
