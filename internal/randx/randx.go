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

// Package randx gives the property-test generators in this module
// (expr's property tests) a reproducible byte/uint64 stream: the
// same seed always produces the same sequence, on any machine, so a
// failing generated case can be pinned to a seed and filed as a
// regression rather than chased as a one-off flake. The teacher repo's
// vm package keeps a hand-rolled ChaCha8 (vm/chacha8.go) for the same
// "reproducible fuzz corpora" reason; this package gets the identical
// property from the real cipher via golang.org/x/crypto/chacha20
// instead of a second hand-rolled permutation.
package randx

import (
	"encoding/binary"

	"golang.org/x/crypto/chacha20"
)

// Source is a deterministic byte/uint64 generator keyed by a 64-bit
// seed. It is not safe for concurrent use; callers that need one
// stream per goroutine should derive a distinct seed per goroutine
// (e.g. baseSeed + goroutineIndex) and build separate Sources.
type Source struct {
	cipher *chacha20.Cipher
	buf    [64]byte
	pos    int
}

// New builds a Source keyed by seed. Every key/nonce pair New derives
// from seed is fixed, so the same seed always yields the same stream.
func New(seed uint64) *Source {
	var key [chacha20.KeySize]byte
	binary.LittleEndian.PutUint64(key[0:8], seed)
	binary.LittleEndian.PutUint64(key[8:16], seed^0x9E3779B97F4A7C15)
	// the remaining key bytes stay zero: seed is the only entropy
	// source this package claims to have, by design (spec §8's
	// testable properties must reproduce from a logged seed alone).
	var nonce [chacha20.NonceSize]byte
	c, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:])
	if err != nil {
		// NewUnauthenticatedCipher only errors on a wrong-size key or
		// nonce, both of which are fixed-size arrays above.
		panic("randx: " + err.Error())
	}
	s := &Source{cipher: c}
	s.pos = len(s.buf) // forces a refill on first use
	return s
}

func (s *Source) refill() {
	for i := range s.buf {
		s.buf[i] = 0
	}
	s.cipher.XORKeyStream(s.buf[:], s.buf[:])
	s.pos = 0
}

// Bytes fills p with the next len(p) bytes of the stream.
func (s *Source) Bytes(p []byte) {
	for len(p) > 0 {
		if s.pos >= len(s.buf) {
			s.refill()
		}
		n := copy(p, s.buf[s.pos:])
		s.pos += n
		p = p[n:]
	}
}

// Uint64 returns the next 8 bytes of the stream as a little-endian
// uint64.
func (s *Source) Uint64() uint64 {
	var b [8]byte
	s.Bytes(b[:])
	return binary.LittleEndian.Uint64(b[:])
}

// Intn returns a pseudo-random value in [0, n). It panics if n <= 0.
func (s *Source) Intn(n int) int {
	if n <= 0 {
		panic("randx: Intn: n must be positive")
	}
	return int(s.Uint64() % uint64(n))
}

// Bool returns a pseudo-random boolean.
func (s *Source) Bool() bool {
	return s.Uint64()&1 == 1
}
