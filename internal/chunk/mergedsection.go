// Completion: 100% - Mergeable string section complete
package chunk

import (
	"sort"
	"sync"
)

// SectionFragment is a deduplicated slice of a mergeable (SHF_MERGE)
// input section: the stable identity every symbol attached to a
// merged fragment points at via Symbol.Fragment.
type SectionFragment struct {
	Data    string // the deduplicating key: the fragment's own bytes
	P2Align uint32 // max alignment (as a power of two) ever requested for this content
	Offset  uint64 // assigned by AssignOffsets
	IsAlive bool
	Output  *MergedSection
}

const mergedShardCount = 64

type mergedShard struct {
	mu    sync.Mutex
	byKey map[string]*SectionFragment

	// Filled in by AssignOffsets.
	offset    uint64
	size      uint64
	maxAlign  uint32
}

// MergedSection owns the sharded, content-addressed fragment pool
// backing every SHF_MERGE|SHF_STRINGS input section folded into one
// output section. Sharding by hash lets concurrent Insert calls from
// independent input-parsing goroutines touch disjoint locks in the
// common case.
type MergedSection struct {
	Base
	shards [mergedShardCount]*mergedShard
}

func NewMergedSection(name string, typ uint32, flags uint64) *MergedSection {
	m := &MergedSection{Base: NewBase(name, typ, flags)}
	for i := range m.shards {
		m.shards[i] = &mergedShard{byKey: make(map[string]*SectionFragment)}
	}
	return m
}

func fnv1a(s string) uint32 {
	const offset = 2166136261
	const prime = 16777619
	h := uint32(offset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
}

// Insert returns the stable SectionFragment for data, creating it on
// first sight and bumping P2Align to the max seen across every caller.
// Safe for concurrent use from many input-parsing goroutines.
func (m *MergedSection) Insert(data string, p2align uint32) *SectionFragment {
	shard := m.shards[fnv1a(data)%mergedShardCount]

	shard.mu.Lock()
	defer shard.mu.Unlock()

	frag, ok := shard.byKey[data]
	if !ok {
		frag = &SectionFragment{Data: data, P2Align: p2align, IsAlive: true, Output: m}
		shard.byKey[data] = frag
		return frag
	}
	if p2align > frag.P2Align {
		frag.P2Align = p2align
	}
	return frag
}

// Construct implements Constructor: the assign_offsets pass, run once
// per link after every input file has finished inserting. Each shard is
// laid out independently (sorted by (p2align, size, key) for
// determinism), then shard base offsets are prefix-summed so the whole
// section is one contiguous, alignment-respecting byte range.
func (m *MergedSection) Construct(ctx *Context) error {
	err := ctx.Par.ForEach(mergedShardCount, func(i int) error {
		shard := m.shards[i]
		var alive []*SectionFragment
		for _, f := range shard.byKey {
			if f.IsAlive {
				alive = append(alive, f)
			}
		}
		sort.Slice(alive, func(a, b int) bool {
			if alive[a].P2Align != alive[b].P2Align {
				return alive[a].P2Align > alive[b].P2Align
			}
			if len(alive[a].Data) != len(alive[b].Data) {
				return len(alive[a].Data) < len(alive[b].Data)
			}
			return alive[a].Data < alive[b].Data
		})

		var off uint64
		var maxAlign uint32 = 1
		for _, f := range alive {
			align := uint64(1) << f.P2Align
			off = (off + align - 1) &^ (align - 1)
			f.Offset = off
			off += uint64(len(f.Data))
			if f.P2Align > maxAlign {
				maxAlign = f.P2Align
			}
		}
		shard.size = off
		shard.maxAlign = maxAlign
		return nil
	})
	if err != nil {
		return err
	}

	globalMaxAlign := uint32(0)
	for _, s := range m.shards {
		if s.maxAlign > globalMaxAlign {
			globalMaxAlign = s.maxAlign
		}
	}
	shardAlign := uint64(1) << globalMaxAlign

	Scan(mergedShardCount, uint64(0),
		func(i int) uint64 { return m.shards[i].size },
		func(a, b uint64) uint64 { return (a + b + shardAlign - 1) &^ (shardAlign - 1) },
		func(i int, prefix uint64) { m.shards[i].offset = prefix })

	err = ctx.Par.ForEach(mergedShardCount, func(i int) error {
		shard := m.shards[i]
		for _, f := range shard.byKey {
			if f.IsAlive {
				f.Offset += shard.offset
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	total := m.shards[mergedShardCount-1].offset + m.shards[mergedShardCount-1].size
	total = (total + shardAlign - 1) &^ (shardAlign - 1)
	m.Shdr.Size = total
	m.Shdr.Addralign = shardAlign
	return nil
}

func (m *MergedSection) UpdateShdr(ctx *Context) error { return nil }

// CopyBuf zeroes each shard's byte range then writes every alive
// fragment's bytes at its assigned offset, in parallel across shards.
func (m *MergedSection) CopyBuf(ctx *Context, buf []byte) error {
	out := buf[m.Shdr.Offset : m.Shdr.Offset+m.Shdr.Size]
	return ctx.Par.ForEach(mergedShardCount, func(i int) error {
		shard := m.shards[i]
		lo, hi := shard.offset, shard.offset+shard.size
		if hi > lo {
			for j := lo; j < hi; j++ {
				out[j] = 0
			}
		}
		for _, f := range shard.byKey {
			if f.IsAlive {
				copy(out[f.Offset:], f.Data)
			}
		}
		return nil
	})
}
