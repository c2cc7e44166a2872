// Package aggregates holds the Document aggregate root. A Document owns one
// layer stack, its per-depth resolution cache and its atom identifier
// allocator; it is the unit of exclusive-mutation locking.
package aggregates

import (
	"fmt"
	"sync"
	"time"

	"molstack/domain/core/entities"
	"molstack/domain/core/valueobjects"
	"molstack/domain/events"
	"molstack/domain/layers"
	pkgerrors "molstack/pkg/errors"
)

// CacheState is the per-depth resolution state
type CacheState int

const (
	// CacheUncomputed means no valid resolution exists for the depth.
	CacheUncomputed CacheState = iota
	// CacheCached means the depth resolved successfully.
	CacheCached
	// CacheFailed means resolution failed at or below the depth.
	CacheFailed
)

type cacheEntry struct {
	state     CacheState
	structure *entities.Structure
	err       error
}

// Document is the aggregate root for one layered structure document.
// Mutations are serialized by the document's own lock; resolution runs
// against an immutable snapshot and commits back only if the version is
// unchanged, so a mid-flight mutation discards the stale result instead of
// corrupting the cache.
type Document struct {
	mu sync.Mutex

	id      valueobjects.DocumentID
	stack   []*layers.Layer
	cache   []cacheEntry
	version int

	// nextAtomID and allocations implement deterministic fresh-identifier
	// generation: an add-atom operation of an unchanged rule layer reuses
	// its recorded global identifier on every re-resolution, and
	// identifiers are never reused even after removal.
	nextAtomID  valueobjects.AtomID
	allocations map[string]map[valueobjects.AtomID]valueobjects.AtomID

	createdAt time.Time
	updatedAt time.Time

	events []events.DomainEvent
}

// NewDocument creates an empty document
func NewDocument() *Document {
	now := time.Now()
	doc := &Document{
		id:          valueobjects.NewDocumentID(),
		version:     1,
		nextAtomID:  1,
		allocations: make(map[string]map[valueobjects.AtomID]valueobjects.AtomID),
		createdAt:   now,
		updatedAt:   now,
	}
	doc.events = append(doc.events, events.NewDocumentCreated(doc.id, now))
	return doc
}

// ID returns the document identifier
func (d *Document) ID() valueobjects.DocumentID {
	return d.id
}

// Version returns the mutation counter
func (d *Document) Version() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.version
}

// LayerCount returns the stack height
func (d *Document) LayerCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.stack)
}

// CreatedAt returns the creation time
func (d *Document) CreatedAt() time.Time {
	return d.createdAt
}

// Push appends a layer on top of the stack and returns its index and the new
// document version.
func (d *Document) Push(layer *layers.Layer) (int, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	index := len(d.stack)
	if err := d.validatePlacement(index, layer); err != nil {
		return 0, 0, err
	}

	d.stack = append(d.stack, layer)
	d.cache = append(d.cache, cacheEntry{})
	d.commitMutation(index)
	d.events = append(d.events, events.NewLayerPushed(d.id, layer.ID(), index, d.version, d.updatedAt))
	return index, d.version, nil
}

// Insert places a layer at the given index, shifting higher layers up
func (d *Document) Insert(index int, layer *layers.Layer) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if index < 0 || index > len(d.stack) {
		return 0, pkgerrors.NewNotFoundError(fmt.Sprintf("layer index %d", index))
	}
	if err := d.validatePlacement(index, layer); err != nil {
		return 0, err
	}

	d.stack = append(d.stack, nil)
	copy(d.stack[index+1:], d.stack[index:])
	d.stack[index] = layer
	d.cache = append(d.cache, cacheEntry{})
	d.commitMutation(index)
	d.events = append(d.events, events.NewLayerInserted(d.id, layer.ID(), index, d.version, d.updatedAt))
	return d.version, nil
}

// Remove deletes the layer at the given index, shifting higher layers down
func (d *Document) Remove(index int) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if index < 0 || index >= len(d.stack) {
		return 0, pkgerrors.NewNotFoundError(fmt.Sprintf("layer index %d", index))
	}
	if index == 0 && len(d.stack) > 1 && d.stack[1].Kind() != layers.KindBase {
		return 0, pkgerrors.NewValidationError("removing the base would leave a rule layer at depth 0")
	}

	removed := d.stack[index]
	d.stack = append(d.stack[:index], d.stack[index+1:]...)
	d.cache = d.cache[:len(d.stack)]
	// Layer identifiers are never reissued, so a removed layer's allocation
	// record is unreachable and can go with it.
	delete(d.allocations, removed.ID().String())
	d.commitMutation(index)
	d.events = append(d.events, events.NewLayerRemoved(d.id, removed.ID(), index, d.version, d.updatedAt))
	return d.version, nil
}

// Move repositions the layer at from to index to
func (d *Document) Move(from, to int) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if from < 0 || from >= len(d.stack) {
		return 0, pkgerrors.NewNotFoundError(fmt.Sprintf("layer index %d", from))
	}
	if to < 0 || to >= len(d.stack) {
		return 0, pkgerrors.NewNotFoundError(fmt.Sprintf("layer index %d", to))
	}

	moved := d.stack[from]
	reordered := make([]*layers.Layer, 0, len(d.stack))
	reordered = append(reordered, d.stack[:from]...)
	reordered = append(reordered, d.stack[from+1:]...)
	reordered = append(reordered[:to], append([]*layers.Layer{moved}, reordered[to:]...)...)
	if len(reordered) > 0 && reordered[0].Kind() != layers.KindBase {
		return 0, pkgerrors.NewValidationError("layer at depth 0 must be a base layer")
	}

	d.stack = reordered
	low := from
	if to < low {
		low = to
	}
	d.commitMutation(low)
	d.events = append(d.events, events.NewLayerMoved(d.id, moved.ID(), from, to, d.version, d.updatedAt))
	return d.version, nil
}

// ListLayers returns summaries of all layers, bottom-up
func (d *Document) ListLayers() []layers.Summary {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]layers.Summary, 0, len(d.stack))
	for i, layer := range d.stack {
		out = append(out, layer.Summarize(i))
	}
	return out
}

// validatePlacement enforces the depth-0-is-base invariant. Caller holds the lock.
func (d *Document) validatePlacement(index int, layer *layers.Layer) error {
	if index == 0 && layer.Kind() != layers.KindBase {
		return pkgerrors.NewValidationError("layer at depth 0 must be a base layer")
	}
	return nil
}

// commitMutation invalidates the cache from index upward, bumps the version
// and touches the update time. Caller holds the lock.
func (d *Document) commitMutation(index int) {
	for i := index; i < len(d.cache); i++ {
		d.cache[i] = cacheEntry{}
	}
	d.version++
	d.updatedAt = time.Now()
}

// PullEvents drains the accumulated domain events
func (d *Document) PullEvents() []events.DomainEvent {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := d.events
	d.events = nil
	return out
}

// SnapshotEntry is the read-only view of one cache slot
type SnapshotEntry struct {
	State     CacheState
	Structure *entities.Structure
	Err       error
}

// Snapshot is a consistent copy of the stack and cache taken under the
// document lock. Layers and cached structures are immutable, so sharing the
// pointers is safe.
type Snapshot struct {
	DocumentID  valueobjects.DocumentID
	Version     int
	Layers      []*layers.Layer
	Entries     []SnapshotEntry
	NextAtomID  valueobjects.AtomID
	Allocations map[string]map[valueobjects.AtomID]valueobjects.AtomID
}

// Snapshot captures the document state for a resolution pass
func (d *Document) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	snap := Snapshot{
		DocumentID:  d.id,
		Version:     d.version,
		Layers:      make([]*layers.Layer, len(d.stack)),
		Entries:     make([]SnapshotEntry, len(d.cache)),
		NextAtomID:  d.nextAtomID,
		Allocations: make(map[string]map[valueobjects.AtomID]valueobjects.AtomID, len(d.allocations)),
	}
	copy(snap.Layers, d.stack)
	for i, entry := range d.cache {
		snap.Entries[i] = SnapshotEntry{State: entry.state, Structure: entry.structure, Err: entry.err}
	}
	for layerID, alloc := range d.allocations {
		copied := make(map[valueobjects.AtomID]valueobjects.AtomID, len(alloc))
		for local, global := range alloc {
			copied[local] = global
		}
		snap.Allocations[layerID] = copied
	}
	return snap
}

// ResolvedEntry is one depth's outcome from a resolution pass
type ResolvedEntry struct {
	Structure *entities.Structure
	Err       error
}

// ResolutionResult carries a resolution pass back to the aggregate
type ResolutionResult struct {
	// BaseVersion is the document version the pass was computed against.
	BaseVersion int
	// Entries maps depth to outcome for every depth the pass visited.
	Entries map[int]ResolvedEntry
	// NextAtomID is the allocator position after the pass.
	NextAtomID valueobjects.AtomID
	// Allocations are the per-layer fresh-identifier records after the pass.
	Allocations map[string]map[valueobjects.AtomID]valueobjects.AtomID
}

// CommitResolution installs a resolution pass into the cache. If the document
// version moved since the snapshot was taken the result is discarded and a
// ConflictRetry error is returned; the caller re-snapshots and retries.
func (d *Document) CommitResolution(result ResolutionResult) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if result.BaseVersion != d.version {
		return pkgerrors.NewConflictRetryError(
			fmt.Sprintf("document %s mutated during resolution (version %d, expected %d)",
				d.id, d.version, result.BaseVersion))
	}

	for depth, resolved := range result.Entries {
		if depth < 0 || depth >= len(d.cache) {
			continue
		}
		if resolved.Err != nil {
			d.cache[depth] = cacheEntry{state: CacheFailed, err: resolved.Err}
		} else {
			d.cache[depth] = cacheEntry{state: CacheCached, structure: resolved.Structure}
		}
	}
	if result.NextAtomID > d.nextAtomID {
		d.nextAtomID = result.NextAtomID
	}
	for layerID, alloc := range result.Allocations {
		d.allocations[layerID] = alloc
	}
	return nil
}

// CachedStructure returns the cached structure at the given depth, if valid
func (d *Document) CachedStructure(depth int) (*entities.Structure, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if depth < 0 || depth >= len(d.cache) {
		return nil, false
	}
	entry := d.cache[depth]
	if entry.state != CacheCached {
		return nil, false
	}
	return entry.structure, true
}

// DeepestCachedDepth returns the highest depth with a valid cache entry,
// or -1 when nothing is cached.
func (d *Document) DeepestCachedDepth() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := len(d.cache) - 1; i >= 0; i-- {
		if d.cache[i].state == CacheCached {
			return i
		}
	}
	return -1
}
