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

package synapse

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// DefaultCatalogue registers every target's module list under its
// Target key, the full catalogue named in spec §4.5 ("each target
// registers an ordered list of module constructors").
func DefaultCatalogue() Catalogue {
	return Catalogue{
		X86:                  X86Modules(),
		Tofino:               P4Modules(Tofino),
		BMv2SimpleSwitchgRPC: P4Modules(BMv2SimpleSwitchgRPC),
	}
}

// Targets returns c's registered targets in a deterministic order, for
// diagnostics that list "what this catalogue supports" (e.g. the
// --target CLI flag's error message).
func (c Catalogue) Targets() []Target {
	ts := maps.Keys(c)
	slices.Sort(ts)
	return ts
}

// Filter returns a copy of c with every module whose Name fails
// enabled dropped from each target's list (config.Config's
// ModuleEnablement, spec §1's ambient configuration concern: "disables
// individual catalogue entries by name").
func (c Catalogue) Filter(enabled func(name string) bool) Catalogue {
	out := make(Catalogue, len(c))
	for target, modules := range c {
		kept := make([]Module, 0, len(modules))
		for _, m := range modules {
			if enabled(m.Name()) {
				kept = append(kept, m)
			}
		}
		out[target] = kept
	}
	return out
}
