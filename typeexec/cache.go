package typeexec

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"hash"
	"math"
	"sync"

	tf "github.com/bytecode-tools/typeflow"
)

// Cache stores analysis results keyed by a fingerprint of the method body,
// so an unchanged method is not re-verified after unrelated edits. Cancelled
// results are never stored. It is safe for concurrent use.
//
// The fingerprint covers the method and its options' StrictMerge flag but
// not the hierarchy; a cache must be reset when the class graph changes.
type Cache struct {
	mu      sync.RWMutex
	results map[string]*Result
	limit   int
}

// NewCache creates a cache holding at most limit results; zero means
// unbounded.
func NewCache(limit int) *Cache {
	return &Cache{
		results: make(map[string]*Result, 64),
		limit:   limit,
	}
}

// Get returns the cached result for m.
func (c *Cache) Get(m *tf.Method, opts Options) (*Result, bool) {
	key := Fingerprint(m, opts.StrictMerge)
	c.mu.RLock()
	defer c.mu.RUnlock()
	res, ok := c.results[key]
	return res, ok
}

// Put stores res for m unless it was cancelled.
func (c *Cache) Put(m *tf.Method, opts Options, res *Result) {
	if res == nil || res.Outcome == OutcomeCancelled {
		return
	}
	key := Fingerprint(m, opts.StrictMerge)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.limit > 0 && len(c.results) >= c.limit {
		if _, ok := c.results[key]; !ok {
			// Evict an arbitrary entry.
			for k := range c.results {
				delete(c.results, k)
				break
			}
		}
	}
	c.results[key] = res
}

// Len returns the number of cached results.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.results)
}

// Reset drops every cached result.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.results = make(map[string]*Result, 64)
	c.mu.Unlock()
}

// Fingerprint returns a deterministic hex digest of everything in m that
// affects the analysis.
func Fingerprint(m *tf.Method, strict bool) string {
	h := sha256.New()
	writeString(h, m.Owner)
	writeString(h, m.Name)
	writeString(h, m.Desc)
	writeBool(h, m.Static)
	writeBool(h, strict)
	writeInt(h, int64(m.MaxLocals))
	writeInt(h, int64(m.MaxStack))

	writeInt(h, int64(len(m.Instructions)))
	for i := range m.Instructions {
		in := &m.Instructions[i]
		writeInt(h, int64(in.Op))
		writeInt(h, int64(in.Var))
		writeInt(h, int64(in.Incr))
		writeInt(h, int64(in.Operand))
		writeString(h, in.Type)
		writeInt(h, int64(in.Dims))
		writeString(h, in.Owner)
		writeString(h, in.Name)
		writeString(h, in.Desc)
		writeBool(h, in.Interface)
		writeConst(h, in.Const)
		writeInt(h, int64(in.Target))
		writeInt(h, int64(len(in.Targets)))
		for _, t := range in.Targets {
			writeInt(h, int64(t))
		}
		writeInt(h, int64(len(in.Keys)))
		for _, k := range in.Keys {
			writeInt(h, int64(k))
		}
	}

	writeInt(h, int64(len(m.TryCatch)))
	for _, tc := range m.TryCatch {
		writeInt(h, int64(tc.Start))
		writeInt(h, int64(tc.End))
		writeInt(h, int64(tc.Handler))
		writeString(h, tc.Type)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

func writeInt(h hash.Hash, v int64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	h.Write(buf[:])
}

func writeBool(h hash.Hash, b bool) {
	if b {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
}

func writeString(h hash.Hash, s string) {
	writeInt(h, int64(len(s)))
	h.Write([]byte(s))
}

// writeConst tags each constant kind so that int32(1) and int64(1) differ.
func writeConst(h hash.Hash, c any) {
	switch v := c.(type) {
	case nil:
		h.Write([]byte{0})
	case int32:
		h.Write([]byte{1})
		writeInt(h, int64(v))
	case int:
		h.Write([]byte{1})
		writeInt(h, int64(v))
	case int64:
		h.Write([]byte{2})
		writeInt(h, v)
	case float32:
		h.Write([]byte{3})
		writeInt(h, int64(math.Float32bits(v)))
	case float64:
		h.Write([]byte{4})
		writeInt(h, int64(math.Float64bits(v)))
	case string:
		h.Write([]byte{5})
		writeString(h, v)
	case tf.ClassConst:
		h.Write([]byte{6})
		writeString(h, string(v))
	case tf.MethodTypeConst:
		h.Write([]byte{7})
		writeString(h, string(v))
	case tf.HandleConst:
		h.Write([]byte{8})
		writeInt(h, int64(v.Tag))
		writeString(h, v.Owner)
		writeString(h, v.Name)
		writeString(h, v.Desc)
	case tf.DynamicConst:
		h.Write([]byte{9})
		writeString(h, v.Name)
		writeString(h, v.Desc)
	default:
		h.Write([]byte{255})
		writeString(h, fmt.Sprintf("%T:%v", c, c))
	}
}
