package events

import (
	"time"

	"molstack/domain/core/valueobjects"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// DocumentCreated is raised when a new document is created
type DocumentCreated struct {
	BaseEvent
	DocumentID valueobjects.DocumentID `json:"document_id"`
}

// NewDocumentCreated creates a DocumentCreated event
func NewDocumentCreated(documentID valueobjects.DocumentID, timestamp time.Time) DocumentCreated {
	return DocumentCreated{
		BaseEvent: BaseEvent{
			AggregateID: documentID.String(),
			EventType:   "document.created",
			Timestamp:   timestamp,
			Version:     1,
		},
		DocumentID: documentID,
	}
}

// DocumentDeleted is raised when a document is deleted
type DocumentDeleted struct {
	BaseEvent
	DocumentID valueobjects.DocumentID `json:"document_id"`
}

// NewDocumentDeleted creates a DocumentDeleted event
func NewDocumentDeleted(documentID valueobjects.DocumentID, version int, timestamp time.Time) DocumentDeleted {
	return DocumentDeleted{
		BaseEvent: BaseEvent{
			AggregateID: documentID.String(),
			EventType:   "document.deleted",
			Timestamp:   timestamp,
			Version:     version,
		},
		DocumentID: documentID,
	}
}

// LayerPushed is raised when a layer lands on top of a document's stack
type LayerPushed struct {
	BaseEvent
	DocumentID valueobjects.DocumentID `json:"document_id"`
	LayerID    valueobjects.LayerID    `json:"layer_id"`
	Index      int                     `json:"index"`
}

// NewLayerPushed creates a LayerPushed event
func NewLayerPushed(documentID valueobjects.DocumentID, layerID valueobjects.LayerID, index, version int, timestamp time.Time) LayerPushed {
	return LayerPushed{
		BaseEvent: BaseEvent{
			AggregateID: documentID.String(),
			EventType:   "layer.pushed",
			Timestamp:   timestamp,
			Version:     version,
		},
		DocumentID: documentID,
		LayerID:    layerID,
		Index:      index,
	}
}

// LayerInserted is raised when a layer is inserted mid-stack
type LayerInserted struct {
	BaseEvent
	DocumentID valueobjects.DocumentID `json:"document_id"`
	LayerID    valueobjects.LayerID    `json:"layer_id"`
	Index      int                     `json:"index"`
}

// NewLayerInserted creates a LayerInserted event
func NewLayerInserted(documentID valueobjects.DocumentID, layerID valueobjects.LayerID, index, version int, timestamp time.Time) LayerInserted {
	return LayerInserted{
		BaseEvent: BaseEvent{
			AggregateID: documentID.String(),
			EventType:   "layer.inserted",
			Timestamp:   timestamp,
			Version:     version,
		},
		DocumentID: documentID,
		LayerID:    layerID,
		Index:      index,
	}
}

// LayerRemoved is raised when a layer leaves a document's stack
type LayerRemoved struct {
	BaseEvent
	DocumentID valueobjects.DocumentID `json:"document_id"`
	LayerID    valueobjects.LayerID    `json:"layer_id"`
	Index      int                     `json:"index"`
}

// NewLayerRemoved creates a LayerRemoved event
func NewLayerRemoved(documentID valueobjects.DocumentID, layerID valueobjects.LayerID, index, version int, timestamp time.Time) LayerRemoved {
	return LayerRemoved{
		BaseEvent: BaseEvent{
			AggregateID: documentID.String(),
			EventType:   "layer.removed",
			Timestamp:   timestamp,
			Version:     version,
		},
		DocumentID: documentID,
		LayerID:    layerID,
		Index:      index,
	}
}

// LayerMoved is raised when a layer changes position within the stack
type LayerMoved struct {
	BaseEvent
	DocumentID valueobjects.DocumentID `json:"document_id"`
	LayerID    valueobjects.LayerID    `json:"layer_id"`
	From       int                     `json:"from"`
	To         int                     `json:"to"`
}

// NewLayerMoved creates a LayerMoved event
func NewLayerMoved(documentID valueobjects.DocumentID, layerID valueobjects.LayerID, from, to, version int, timestamp time.Time) LayerMoved {
	return LayerMoved{
		BaseEvent: BaseEvent{
			AggregateID: documentID.String(),
			EventType:   "layer.moved",
			Timestamp:   timestamp,
			Version:     version,
		},
		DocumentID: documentID,
		LayerID:    layerID,
		From:       from,
		To:         to,
	}
}
