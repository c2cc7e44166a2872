package aggregates

import (
	"time"

	"molstack/domain/core/valueobjects"
	"molstack/domain/layers"
	pkgerrors "molstack/pkg/errors"
)

// Export is the serialized form of a whole document: layers, version and the
// allocator state needed to keep fresh-identifier generation deterministic
// after a round-trip. Resolved structures are deliberately absent; they are
// recomputed on demand.
type Export struct {
	ID          valueobjects.DocumentID                                `json:"id"`
	Version     int                                                    `json:"version"`
	Layers      []*layers.Layer                                        `json:"layers"`
	NextAtomID  valueobjects.AtomID                                    `json:"next_atom_id"`
	Allocations map[string]map[valueobjects.AtomID]valueobjects.AtomID `json:"allocations,omitempty"`
	ExportedAt  time.Time                                              `json:"exported_at"`
}

// Export captures the document for persistence or transfer
func (d *Document) Export() *Export {
	snap := d.Snapshot()
	return &Export{
		ID:          snap.DocumentID,
		Version:     snap.Version,
		Layers:      snap.Layers,
		NextAtomID:  snap.NextAtomID,
		Allocations: snap.Allocations,
		ExportedAt:  time.Now(),
	}
}

// RestoreDocument rebuilds a document from an export. The cache starts cold;
// the first read re-resolves.
func RestoreDocument(export *Export) (*Document, error) {
	if export == nil {
		return nil, pkgerrors.NewValidationError("export payload is empty")
	}
	if len(export.Layers) > 0 && export.Layers[0].Kind() != layers.KindBase {
		return nil, pkgerrors.NewValidationError("layer at depth 0 must be a base layer")
	}

	id := export.ID
	if id.IsZero() {
		id = valueobjects.NewDocumentID()
	}
	version := export.Version
	if version < 1 {
		version = 1
	}
	nextAtomID := export.NextAtomID
	if nextAtomID < 1 {
		nextAtomID = 1
	}

	now := time.Now()
	doc := &Document{
		id:          id,
		stack:       make([]*layers.Layer, len(export.Layers)),
		cache:       make([]cacheEntry, len(export.Layers)),
		version:     version,
		nextAtomID:  nextAtomID,
		allocations: make(map[string]map[valueobjects.AtomID]valueobjects.AtomID, len(export.Allocations)),
		createdAt:   now,
		updatedAt:   now,
	}
	copy(doc.stack, export.Layers)
	for layerID, alloc := range export.Allocations {
		copied := make(map[valueobjects.AtomID]valueobjects.AtomID, len(alloc))
		for local, global := range alloc {
			copied[local] = global
		}
		doc.allocations[layerID] = copied
	}
	return doc, nil
}
