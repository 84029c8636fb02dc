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

import "github.com/pmdm56/vigor-klee-sub000/callpath"

// inferReturnInit decides a ReturnInit leaf's value reached while
// walking the init portion of the raw tree (spec §4.4: "Success if the
// path reaches start_time, else Failure"). populateInit only ever
// descends into this rawReturn case along a branch of the walk that
// never hit start_time — encountering start_time stops that walk
// immediately and emits its own explicit ReturnInit(Success) leaf — so
// any terminal return reached here means initialization ended (by
// returning, not looping) before start_time was ever called.
func inferReturnInit() InitResult {
	return Failure
}

// classifyReturnProcess implements spec §4.4's return-operation
// inference over the calls actually walked since start_time on this
// path (seen, built up by populateProcess — including calls
// skipFunctions drops from the emitted tree, such as packet_receive,
// since their presence still matters for classification): one
// packet_send means Fwd(dst_device); several means Broadcast; none
// with a packet_receive present means Drop(src_device); otherwise Err.
func classifyReturnProcess(seen []*callpath.Call) (ReturnOp, int) {
	calls := seen

	sends := 0
	firstDst := 0
	for _, c := range calls {
		if c.Function != "packet_send" {
			continue
		}
		sends++
		if sends == 1 {
			if a, ok := c.Arg("dst_device"); ok && a.Expr != nil {
				firstDst = int(a.Expr.Value())
			}
		}
	}
	if sends == 1 {
		return OpFwd, firstDst
	}
	if sends > 1 {
		return OpBroadcast, -1
	}

	if c := findCall(calls, "packet_receive"); c != nil {
		if a, ok := c.Arg("src_devices"); ok && a.Expr != nil {
			return OpDrop, int(a.Expr.Value())
		}
		return OpDrop, 0
	}
	return OpErr, -1
}

func findCall(calls []*callpath.Call, fname string) *callpath.Call {
	for _, c := range calls {
		if c.Function == fname {
			return c
		}
	}
	return nil
}
