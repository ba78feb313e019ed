//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"encoding/json"
	"reflect"

	"github.com/ekuiter/variED-NG/protocol"
)

// Engine owns one artifact's document: the tree structure, its mutation
// semantics and its invariants. The core only ever reaches it through
// this narrow contract; everything else about the document is opaque.
type Engine interface {
	// Apply runs one mutating operation and returns the full re-rendered
	// document payload on success.
	Apply(operation protocol.Decodable) (json.RawMessage, error)
	// Export serializes the current document in the requested format.
	Export(format string) ([]byte, error)
}

// EngineLoader produces an engine on first session access. Loading may
// do I/O (e.g. fetch a remote source) and is called at most once per
// artifact.
type EngineLoader func() (Engine, error)

// Transport is one duplex connection to a participant. Send writes one
// already-encoded frame; it must be best-effort and bounded in time so a
// stalled peer cannot stall message handling for everyone else.
type Transport interface {
	Send(frame []byte) error
	Close() error
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// StatsProvider exposes live process counters to workers and the info
// page without coupling them to the hub.
type StatsProvider func() map[string]any

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// lifecycle events, avoiding the need for manual naming in the Worker
// interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
