// Package event provides the progress/event surface of the generator.
//
// The bus delivers events synchronously, in subscription order, on the
// goroutine that publishes them. Synchronous delivery is load-bearing: an
// observer must see a checkpoint-written event only after the bytes are
// durably flushed, so delivery cannot be decoupled from the state-machine
// step that produced the event.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies an event on the progress surface.
type Type string

// Event types published by the generation engine.
const (
	TypeLoadStarted       Type = "load.started"
	TypeLoadProgress      Type = "load.progress"
	TypeLoadFinished      Type = "load.finished"
	TypeGenerationStarted Type = "generation.started"
	TypeCheckpointWritten Type = "checkpoint.written"
)

// Event is one notification from the engine.
type Event struct {
	// ID uniquely identifies this event.
	ID string

	// Type is the event type.
	Type Type

	// RunID identifies the engine run that produced the event.
	RunID string

	// Time is when the event was published.
	Time time.Time

	// Payload is the typed payload for the event type, or nil.
	Payload any
}

// New creates an event with a fresh ID and the current time.
func New(typ Type, runID string, payload any) Event {
	return Event{
		ID:      uuid.New().String(),
		Type:    typ,
		RunID:   runID,
		Time:    time.Now(),
		Payload: payload,
	}
}

// LoadProgress is the payload of TypeLoadProgress, published before each
// checkpoint file is replayed.
type LoadProgress struct {
	FileOrdinal int // 1-based position in the load pass
	TotalFiles  int
}

// LoadFinished is the payload of TypeLoadFinished. Zero files loaded is a
// reportable state of its own: generation starts from scratch.
type LoadFinished struct {
	PrimesLoaded int
	FilesLoaded  int
}

// CheckpointWritten is the payload of TypeCheckpointWritten, published after
// a chunk write has been flushed.
type CheckpointWritten struct {
	FileIndex    int
	StartOrdinal int // 0-based ordinal of the first prime written, inclusive
	EndOrdinal   int // 0-based ordinal of the last prime written, inclusive
	CompletedAt  time.Time
	Elapsed      time.Duration // since the previous write, or the run start
}
