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
	"strings"
)

// String renders e in a human-readable diagnostic form. It has no
// semantic role (two expressions that print identically are not
// guaranteed to be the same node, and vice versa for cosmetic reasons
// like index arithmetic); it exists purely for logs, panics and test
// failure messages.
func (e *Expr) String() string {
	var sb strings.Builder
	writeNode(&sb, e)
	return sb.String()
}

func writeNode(sb *strings.Builder, e *Expr) {
	switch e.kind {
	case KConstant:
		fmt.Fprintf(sb, "%#x:w%d", e.value, e.width)
	case KRead:
		sb.WriteString(e.array)
		sb.WriteByte('[')
		writeNode(sb, e.op)
		sb.WriteByte(']')
	case KExtract:
		writeNode(sb, e.op)
		fmt.Fprintf(sb, "[%d:%d]", e.offset, e.offset+e.width)
	case KZExt:
		fmt.Fprintf(sb, "zext%d(", e.width)
		writeNode(sb, e.op)
		sb.WriteByte(')')
	case KSExt:
		fmt.Fprintf(sb, "sext%d(", e.width)
		writeNode(sb, e.op)
		sb.WriteByte(')')
	case KNot:
		sb.WriteString("~(")
		writeNode(sb, e.a)
		sb.WriteByte(')')
	case KSelect:
		sb.WriteString("select(")
		writeNode(sb, e.cond)
		sb.WriteString(", ")
		writeNode(sb, e.a)
		sb.WriteString(", ")
		writeNode(sb, e.b)
		sb.WriteByte(')')
	default:
		sb.WriteByte('(')
		writeNode(sb, e.a)
		sb.WriteByte(' ')
		sb.WriteString(opSymbol(e.kind))
		sb.WriteByte(' ')
		writeNode(sb, e.b)
		sb.WriteByte(')')
	}
}

func opSymbol(k Kind) string {
	switch k {
	case KConcat:
		return "++"
	case KAdd:
		return "+"
	case KSub:
		return "-"
	case KMul:
		return "*"
	case KUDiv, KSDiv:
		return "/"
	case KURem, KSRem:
		return "%"
	case KAnd:
		return "&"
	case KOr:
		return "|"
	case KXor:
		return "^"
	case KShl:
		return "<<"
	case KLShr, KAShr:
		return ">>"
	case KEq:
		return "=="
	case KNe:
		return "!="
	case KUlt, KSlt:
		return "<"
	case KUle, KSle:
		return "<="
	case KUgt, KSgt:
		return ">"
	case KUge, KSge:
		return ">="
	}
	return k.String()
}
