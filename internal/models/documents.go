package models

import (
	"encoding/json"
	"time"
)

// Collection names a remote document collection.
type Collection string

const (
	CollectionEventTypes Collection = "eventTypes"
	CollectionSessions   Collection = "sessions"
	// CollectionSettings holds a single document per user; writes to it carry no id.
	CollectionSettings Collection = "settings"
)

// WriteOp is the kind of mutation a Write applies.
type WriteOp string

const (
	// OpSet upserts the document and clears its tombstone.
	OpSet WriteOp = "set"
	// OpTombstone marks the document deleted with a fresh timestamp.
	OpTombstone WriteOp = "tombstone"
	// OpPurge removes the document physically.
	OpPurge WriteOp = "purge"
)

// Document is the remote representation of a record.
type Document[T any] struct {
	Data T `json:"data"`
	// Deleted is the tombstone flag.
	Deleted bool `json:"deleted"`
	// UpdatedAt is assigned by the server on every write.
	UpdatedAt time.Time `json:"updatedAt"`
}

// Write is one queued remote mutation.
type Write struct {
	Collection Collection      `json:"collection"`
	Op         WriteOp         `json:"op"`
	ID         string          `json:"id,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// SetWrite builds an upsert of v into the collection.
func SetWrite(c Collection, id string, v any) (Write, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Write{}, err
	}
	return Write{Collection: c, Op: OpSet, ID: id, Data: data}, nil
}

// TombstoneWrite marks id deleted in the collection.
func TombstoneWrite(c Collection, id string) Write {
	return Write{Collection: c, Op: OpTombstone, ID: id}
}

// PurgeWrite hard-deletes id from the collection.
func PurgeWrite(c Collection, id string) Write {
	return Write{Collection: c, Op: OpPurge, ID: id}
}
