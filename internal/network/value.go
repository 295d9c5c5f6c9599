package network

import (
	"sync"

	"zwave-go-home/internal/manager"
)

// ValueID identifies a value within a node.
type ValueID = manager.ValueID

// Value is an immutable snapshot of one device datum. Updates arrive as a new
// Value that replaces the old one in the node's index.
type Value struct {
	ID           ValueID           `json:"id"`
	NodeID       uint8             `json:"node_id"`
	CommandClass uint8             `json:"command_class"`
	Genre        manager.Genre     `json:"genre"`
	Type         manager.ValueType `json:"type"`
	Index        uint8             `json:"index"`
	Instance     uint8             `json:"instance"`
	Label        string            `json:"label"`
	Units        string            `json:"units,omitempty"`
	Help         string            `json:"help,omitempty"`
	ReadOnly     bool              `json:"read_only"`
	WriteOnly    bool              `json:"write_only"`
	Data         any               `json:"data"`
}

// NewValue decodes a manager value description.
func NewValue(d *manager.ValueData) *Value {
	return &Value{
		ID:           d.ID,
		NodeID:       d.NodeID,
		CommandClass: d.CommandClass,
		Genre:        d.Genre,
		Type:         d.Type,
		Index:        d.Index,
		Instance:     d.Instance,
		Label:        manager.Decode(d.Label),
		Units:        manager.Decode(d.Units),
		Help:         manager.Decode(d.Help),
		ReadOnly:     d.ReadOnly,
		WriteOnly:    d.WriteOnly,
		Data:         d.Data,
	}
}

// WithData returns a copy of v carrying data.
func (v *Value) WithData(data any) *Value {
	next := *v
	next.Data = data
	return &next
}

// Filter selects values. A nil criterion matches everything.
type Filter struct {
	CommandClass *uint8
	Genre        *manager.Genre
	Type         *manager.ValueType
	ReadOnly     *bool
	WriteOnly    *bool
}

// FilterOption sets one Filter criterion.
type FilterOption func(*Filter)

func ByCommandClass(id uint8) FilterOption {
	return func(f *Filter) { f.CommandClass = &id }
}

func ByGenre(g manager.Genre) FilterOption {
	return func(f *Filter) { f.Genre = &g }
}

func ByType(t manager.ValueType) FilterOption {
	return func(f *Filter) { f.Type = &t }
}

func ByReadOnly(ro bool) FilterOption {
	return func(f *Filter) { f.ReadOnly = &ro }
}

func ByWriteOnly(wo bool) FilterOption {
	return func(f *Filter) { f.WriteOnly = &wo }
}

// NewFilter builds a Filter from options.
func NewFilter(opts ...FilterOption) Filter {
	var f Filter
	for _, o := range opts {
		o(&f)
	}
	return f
}

// Match reports whether v satisfies every set criterion.
func (f Filter) Match(v *Value) bool {
	return (f.CommandClass == nil || v.CommandClass == *f.CommandClass) &&
		(f.Genre == nil || v.Genre == *f.Genre) &&
		(f.Type == nil || v.Type == *f.Type) &&
		(f.ReadOnly == nil || v.ReadOnly == *f.ReadOnly) &&
		(f.WriteOnly == nil || v.WriteOnly == *f.WriteOnly)
}

// ValueIndex holds a node's values keyed by ValueID. It is safe for
// concurrent use.
type ValueIndex struct {
	mu     sync.RWMutex
	values map[ValueID]*Value
}

// NewValueIndex creates an empty index.
func NewValueIndex() *ValueIndex {
	return &ValueIndex{values: make(map[ValueID]*Value)}
}

// Values returns the values matching every option. With no options it
// returns the whole index. The map is a fresh copy.
func (ix *ValueIndex) Values(opts ...FilterOption) map[ValueID]*Value {
	f := NewFilter(opts...)
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make(map[ValueID]*Value)
	for id, v := range ix.values {
		if f.Match(v) {
			out[id] = v
		}
	}
	return out
}

// ValuesByCommandClass applies the same filtering as Values and partitions
// the result by command class. Only non-empty buckets are present.
func (ix *ValueIndex) ValuesByCommandClass(opts ...FilterOption) map[uint8]map[ValueID]*Value {
	f := NewFilter(opts...)
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make(map[uint8]map[ValueID]*Value)
	for id, v := range ix.values {
		if !f.Match(v) {
			continue
		}
		bucket := out[v.CommandClass]
		if bucket == nil {
			bucket = make(map[ValueID]*Value)
			out[v.CommandClass] = bucket
		}
		bucket[id] = v
	}
	return out
}

// Add inserts v, replacing any value with the same ID.
func (ix *ValueIndex) Add(v *Value) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.values[v.ID] = v
}

// restore puts prev back if id still holds expected.
func (ix *ValueIndex) restore(id ValueID, expected, prev *Value) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.values[id] == expected {
		ix.values[id] = prev
	}
}

// Remove deletes a value and reports whether it was present.
func (ix *ValueIndex) Remove(id ValueID) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, ok := ix.values[id]; !ok {
		return false
	}
	delete(ix.values, id)
	return true
}

// Get returns a single value.
func (ix *ValueIndex) Get(id ValueID) (*Value, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	v, ok := ix.values[id]
	return v, ok
}

// Len returns the number of values.
func (ix *ValueIndex) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.values)
}

// First returns the matching value with the lowest ID, or nil.
func (ix *ValueIndex) First(opts ...FilterOption) *Value {
	f := NewFilter(opts...)
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var best *Value
	for _, v := range ix.values {
		if f.Match(v) && (best == nil || v.ID < best.ID) {
			best = v
		}
	}
	return best
}

// Find returns the first value with the given label matching opts, or nil.
// Ties are broken by lowest ValueID so the result is stable.
func (ix *ValueIndex) Find(label string, opts ...FilterOption) *Value {
	f := NewFilter(opts...)
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var best *Value
	for _, v := range ix.values {
		if v.Label != label || !f.Match(v) {
			continue
		}
		if best == nil || v.ID < best.ID {
			best = v
		}
	}
	return best
}
