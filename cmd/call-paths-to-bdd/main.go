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

// Command call-paths-to-bdd builds a bdd.BDD from a set of call-path
// files and optionally serializes or renders it (spec §6's shared CLI
// surface).
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pmdm56/vigor-klee-sub000/bdd"
	"github.com/pmdm56/vigor-klee-sub000/callpath"
	"github.com/pmdm56/vigor-klee-sub000/expr"
	"github.com/pmdm56/vigor-klee-sub000/fsutil"
	"github.com/pmdm56/vigor-klee-sub000/group"
	"github.com/pmdm56/vigor-klee-sub000/internal/diag"
	"github.com/pmdm56/vigor-klee-sub000/solver"
)

func main() {
	in := flag.String("in", "", "load a serialized BDD instead of call paths")
	out := flag.String("out", "", "write the serialized BDD")
	compress := flag.String("compress", "", "compress --out / expect --in compressed with this compr algorithm (zstd, zstd-better, s2)")
	gv := flag.String("gv", "", "write a graphviz rendering of the BDD")
	legacySplit := flag.Bool("legacy-split", false, "use the combinatorial call-path splitter")
	flag.Parse()

	ar := expr.NewArena()
	var b *bdd.BDD
	var paths []*callpath.CallPath
	var err error

	if *in != "" {
		b, paths, err = loadSerialized(ar, *in, *compress)
	} else {
		var files []string
		files, err = expandGlobs(flag.Args())
		if err == nil {
			paths, err = loadCallPaths(ar, files)
		}
		if err == nil {
			sc := solver.NewContext()
			b, err = bdd.Build(sc, paths, group.Options{Combinatorial: *legacySplit})
		}
	}
	if err != nil {
		diag.Exit(err)
	}

	if *out != "" {
		if err := writeEncoded(*out, b, paths, *compress); err != nil {
			diag.Exit(err)
		}
	}
	if *gv != "" {
		if err := writeGraphviz(*gv, b); err != nil {
			diag.Exit(err)
		}
	}
	diag.Logf("built BDD with %d nodes (init root %d, process root %d)", b.Len(), b.InitRoot, b.ProcessRoot)
}

// expandGlobs resolves each of patterns against the working directory
// with fsutil.OpenGlob, falling back to the literal pattern when it
// contains no glob metacharacters (fsutil.MetaPrefix returns the whole
// string), so plain filenames still work exactly as before.
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

func loadSerialized(ar *expr.Arena, file string, algo string) (*bdd.BDD, []*callpath.CallPath, error) {
	r, err := os.Open(file)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", file, err)
	}
	defer r.Close()
	if algo != "" {
		return bdd.DecodeCompressed(r, ar)
	}
	return bdd.Decode(r, ar)
}

func writeEncoded(file string, b *bdd.BDD, paths []*callpath.CallPath, algo string) error {
	w, err := os.Create(file)
	if err != nil {
		return fmt.Errorf("creating %s: %w", file, err)
	}
	defer w.Close()
	if algo != "" {
		return bdd.EncodeCompressed(w, b, paths, algo)
	}
	return bdd.Encode(w, b, paths)
}

func writeGraphviz(file string, b *bdd.BDD) error {
	w, err := os.Create(file)
	if err != nil {
		return fmt.Errorf("creating %s: %w", file, err)
	}
	defer w.Close()
	return bdd.Graphviz(b, w)
}

