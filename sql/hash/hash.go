// Copyright 2025 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package hash

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/mitchellh/hashstructure"
	"github.com/shopspring/decimal"

	"github.com/dolthub/go-query-analyzer/sql"
)

var digestPool = sync.Pool{
	New: func() any {
		return xxhash.New()
	},
}

// Hasher is a streaming structural hasher. Values written to it are
// separated by a nil byte, so ("ab", "c") and ("a", "bc") differ.
type Hasher struct {
	d     *xxhash.Digest
	empty bool
	buf   [8]byte
}

// New returns a Hasher backed by a pooled digest. Call Sum64 to get the
// hash and return the digest to the pool.
func New() *Hasher {
	d := digestPool.Get().(*xxhash.Digest)
	d.Reset()
	return &Hasher{d: d, empty: true}
}

func (h *Hasher) separate() {
	if !h.empty {
		// separate each value with a nil byte
		_, _ = h.d.Write([]byte{0})
	}
	h.empty = false
}

// WriteString adds a string to the hash.
func (h *Hasher) WriteString(s string) {
	h.separate()
	_, _ = h.d.WriteString(s)
}

// WriteUint64 adds an integer to the hash.
func (h *Hasher) WriteUint64(v uint64) {
	h.separate()
	binary.LittleEndian.PutUint64(h.buf[:], v)
	_, _ = h.d.Write(h.buf[:])
}

// WriteBool adds a boolean to the hash.
func (h *Hasher) WriteBool(b bool) {
	if b {
		h.WriteUint64(1)
	} else {
		h.WriteUint64(0)
	}
}

// WriteValue adds a constant value to the hash. The Go type of the value is
// part of the hash, so uint64(1) and int64(1) differ.
func (h *Hasher) WriteValue(v interface{}) error {
	switch v := v.(type) {
	case nil:
		h.WriteString("NULL")
	case string:
		h.WriteString("s")
		h.WriteString(v)
	case bool:
		h.WriteString("b")
		h.WriteBool(v)
	case uint64:
		h.WriteString("u")
		h.WriteUint64(v)
	case int64:
		h.WriteString("i")
		h.WriteUint64(uint64(v))
	case float64:
		h.WriteString("f")
		h.WriteUint64(math.Float64bits(v))
	case decimal.Decimal:
		h.WriteString("d")
		h.WriteString(v.String())
	case time.Time:
		h.WriteString("t")
		h.WriteUint64(uint64(v.UnixNano()))
	case []interface{}:
		h.WriteString("a")
		h.WriteUint64(uint64(len(v)))
		for _, e := range v {
			if err := h.WriteValue(e); err != nil {
				return err
			}
		}
	case sql.Tuple:
		h.WriteString("T")
		h.WriteUint64(uint64(len(v)))
		for _, e := range v {
			if err := h.WriteValue(e); err != nil {
				return err
			}
		}
	case *sql.SetValue:
		h.WriteString("S")
		h.WriteUint64(uint64(len(v.Elements)))
		for _, e := range v.Elements {
			if err := h.WriteValue(e); err != nil {
				return err
			}
		}
	default:
		sum, err := hashstructure.Hash(v, nil)
		if err != nil {
			return fmt.Errorf("error hashing value %v: %s", v, err)
		}
		h.WriteString(fmt.Sprintf("%T", v))
		h.WriteUint64(sum)
	}
	return nil
}

// Sum64 returns the hash and releases the digest. The Hasher must not be
// used afterwards.
func (h *Hasher) Sum64() uint64 {
	sum := h.d.Sum64()
	digestPool.Put(h.d)
	h.d = nil
	return sum
}

// HashOf returns a hash of the given values to be used as key in a cache.
func HashOf(values ...interface{}) (uint64, error) {
	h := New()
	for _, v := range values {
		if err := h.WriteValue(v); err != nil {
			h.Sum64()
			return 0, err
		}
	}
	return h.Sum64(), nil
}

// HashBlock returns a hash of the contents of a block: column names, types
// and values.
func HashBlock(b *sql.Block) (uint64, error) {
	h := New()
	for _, c := range b.Columns {
		h.WriteString(c.Name)
		h.WriteString(c.Type.Name())
	}
	for _, row := range b.Rows {
		for _, v := range row {
			if err := h.WriteValue(v); err != nil {
				h.Sum64()
				return 0, err
			}
		}
	}
	return h.Sum64(), nil
}

// Text returns the decimal text of a 64 bit hash, used as registry keys.
func Text(sum uint64) string {
	return fmt.Sprintf("%d", sum)
}
