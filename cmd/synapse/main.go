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

// Command synapse loads a serialized BDD (or builds one from call-path
// files) and synthesizes a target-specific execution plan (spec §4.5,
// §6's shared CLI surface).
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/pmdm56/vigor-klee-sub000/bdd"
	"github.com/pmdm56/vigor-klee-sub000/callpath"
	"github.com/pmdm56/vigor-klee-sub000/config"
	"github.com/pmdm56/vigor-klee-sub000/debug"
	"github.com/pmdm56/vigor-klee-sub000/expr"
	"github.com/pmdm56/vigor-klee-sub000/fsutil"
	"github.com/pmdm56/vigor-klee-sub000/group"
	"github.com/pmdm56/vigor-klee-sub000/internal/diag"
	"github.com/pmdm56/vigor-klee-sub000/solver"
	"github.com/pmdm56/vigor-klee-sub000/synapse"
)

func main() {
	in := flag.String("in", "", "load a serialized BDD instead of call paths")
	xml := flag.String("xml", "", "write an XML-ish dump of the execution plan")
	targetFlag := flag.String("target", "x86", "synthesizer target (x86, tofino, bmv2)")
	configPath := flag.String("config", "", "load module enablement and log level from a YAML config file")
	debugFd := flag.Int("debug-fd", -1, "bind pprof handlers to an inherited file descriptor, for long-running synthesis runs")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			diag.Exit(err)
		}
	}
	if lvl, ok := diag.ParseLevel(cfg.LogLevel); ok {
		diag.SetLevel(lvl)
	}
	if *debugFd >= 0 {
		debug.Fd(*debugFd, log.New(os.Stderr, "synapse: ", log.LstdFlags))
	}

	target, err := synapse.ParseTarget(*targetFlag)
	if err != nil {
		diag.Exit(err)
	}

	ar := expr.NewArena()
	var b *bdd.BDD
	if *in != "" {
		b, _, err = loadSerialized(ar, *in)
	} else {
		var files []string
		files, err = expandGlobs(flag.Args())
		var paths []*callpath.CallPath
		if err == nil {
			paths, err = loadCallPaths(ar, files)
		}
		if err == nil {
			sc := solver.NewContext()
			b, err = bdd.Build(sc, paths, group.Options{})
		}
	}
	if err != nil {
		diag.Exit(err)
	}

	cat := synapse.DefaultCatalogue().Filter(cfg.ModuleEnabled)
	runID := diag.RunID()
	diag.Logf("synthesis run %s: target=%s (catalogue targets: %v)", runID, target, cat.Targets())

	plan, err := synapse.Synthesize(b, b.ProcessRoot, target, cat, synapse.P4AbsorptionHeuristic{})
	if err != nil {
		diag.Exit(err)
	}

	dv := &synapse.DumpVisitor{}
	plan.Visit(dv)
	for _, m := range dv.Modules {
		fmt.Println(m)
	}

	if *xml != "" {
		if err := writeXML(*xml, dv); err != nil {
			diag.Exit(err)
		}
	}
}

// expandGlobs resolves each pattern against the working directory with
// fsutil.OpenGlob, falling back to the literal string for plain
// filenames (fsutil.MetaPrefix returns the whole string when it has no
// glob metacharacters).
func expandGlobs(patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	dir := os.DirFS(cwd)
	var files []string
	for _, p := range patterns {
		if fsutil.MetaPrefix(p) == p {
			files = append(files, p)
			continue
		}
		matches, err := fsutil.OpenGlob(dir, p)
		if err != nil {
			return nil, fmt.Errorf("expanding glob %q: %w", p, err)
		}
		for _, m := range matches {
			m.Close()
			files = append(files, m.Path())
		}
	}
	return files, nil
}

func loadCallPaths(ar *expr.Arena, files []string) ([]*callpath.CallPath, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no input call-path files given")
	}
	paths := make([]*callpath.CallPath, 0, len(files))
	for _, f := range files {
		r, err := os.Open(f)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", f, err)
		}
		cp, err := callpath.Load(ar, f, r)
		r.Close()
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", f, err)
		}
		paths = append(paths, cp)
	}
	return paths, nil
}

func loadSerialized(ar *expr.Arena, file string) (*bdd.BDD, []*callpath.CallPath, error) {
	r, err := os.Open(file)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", file, err)
	}
	defer r.Close()
	return bdd.Decode(r, ar)
}

func writeXML(file string, dv *synapse.DumpVisitor) error {
	w, err := os.Create(file)
	if err != nil {
		return fmt.Errorf("creating %s: %w", file, err)
	}
	defer w.Close()
	fmt.Fprintln(w, "<execution-plan>")
	for _, m := range dv.Modules {
		fmt.Fprintf(w, "  <module name=%q/>\n", m)
	}
	fmt.Fprintln(w, "</execution-plan>")
	return nil
}
