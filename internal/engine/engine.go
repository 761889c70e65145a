// Package engine wires the document store, diff source, history ledger,
// checkpoint store, and transaction manager into one review engine.
package engine

import (
	"github.com/editflow/editflow/internal/config"
	"github.com/editflow/editflow/internal/engine/checkpoint"
	"github.com/editflow/editflow/internal/engine/diffsource"
	"github.com/editflow/editflow/internal/engine/document"
	"github.com/editflow/editflow/internal/engine/ledger"
	"github.com/editflow/editflow/internal/engine/transaction"
	"github.com/editflow/editflow/internal/event"
	"github.com/editflow/editflow/internal/logging"
	"github.com/editflow/editflow/internal/watch"
)

// Engine is the top-level handle over the review pipeline. Construct one
// per session with New; all exported fields are live collaborators callers
// may use directly.
type Engine struct {
	Store       *document.Store
	Source      *diffsource.Source
	Ledger      *ledger.Ledger
	Checkpoints *checkpoint.Store
	Manager     *transaction.Manager
	Bus         *event.Bus

	// Watcher is nil unless enabled in the configuration.
	Watcher *watch.Watcher

	log *logging.Logger
}

// New builds an engine from cfg. The logger may be nil, in which case
// logging is disabled.
func New(cfg config.Config, log *logging.Logger) *Engine {
	if log == nil {
		log = logging.Null
	}

	bus := event.NewBus(event.WithPanicHandler(func(topic event.Topic, v any, stack []byte) {
		log.Error("event handler panic on %s: %v\n%s", topic, v, stack)
	}))

	store := document.NewStore()
	source := diffsource.New(store, log)
	ledg := ledger.New(cfg.Engine.MaxLedgerEntries, log)
	mgr := transaction.NewManager(store, source, ledg, bus, log, transaction.Options{
		SettleDelay: cfg.Engine.SettleDelay(),
	})

	e := &Engine{
		Store:       store,
		Source:      source,
		Ledger:      ledg,
		Checkpoints: checkpoint.NewStore(),
		Manager:     mgr,
		Bus:         bus,
		log:         log.WithComponent("engine"),
	}

	if cfg.Watcher.Enabled {
		w, err := watch.New(bus, store, log, cfg.Watcher.Debounce())
		if err != nil {
			e.log.Warn("filesystem watcher unavailable: %v", err)
		} else {
			e.Watcher = w
			// Track every file that gains diffs. Files that exist only in
			// the editor have no on-disk path to watch; those errors are
			// expected.
			bus.Subscribe(event.TopicTransactionCreated, func(_ event.Topic, payload any) {
				ev, ok := payload.(transaction.TransactionEvent)
				if !ok {
					return
				}
				if err := w.Track(ev.URI); err != nil && err != watch.ErrAlreadyTracking {
					e.log.Debug("not watching %s: %v", ev.URI, err)
				}
			})
		}
	}

	return e
}

// CreateCheckpoint captures live file content and a deep copy of every diff
// area under a new epoch. With no uris given it covers every tracked file.
// The checkpoint is key-value state only; restoring one is the caller's
// concern.
func (e *Engine) CreateCheckpoint(label, description string, uris ...string) *checkpoint.Checkpoint {
	if len(uris) == 0 {
		uris = e.Source.TrackedURIs()
	}

	files := make(map[string]string)
	var areas []*diffsource.Area

	for _, uri := range uris {
		if text, ok := e.Store.Value(uri); ok {
			files[uri] = text
		}
		areas = append(areas, e.Source.AreasForURI(uri)...)
	}

	cp := e.Checkpoints.Create(label, files, areas, description)
	e.log.Info("checkpoint %s created at epoch %d covering %d files", cp.ID, cp.Epoch, len(files))
	return cp
}

// Undo reverses the most recent resolution.
func (e *Engine) Undo() error { return e.Ledger.Undo() }

// Redo re-applies the most recently undone resolution.
func (e *Engine) Redo() error { return e.Ledger.Redo() }

// Reset discards all session state. Documents, diff areas, transactions,
// checkpoints, and history are cleared; subscriptions on the bus survive.
func (e *Engine) Reset() {
	e.Manager.Reset()
	e.Source.Reset()
	e.Ledger.Clear()
	e.Checkpoints.Reset()
	for _, uri := range e.Store.URIs() {
		e.Store.Close(uri)
	}
	e.log.Info("engine state reset")
}

// Close releases the engine's internal subscriptions and the watcher.
func (e *Engine) Close() {
	e.Manager.Close()
	if e.Watcher != nil {
		if err := e.Watcher.Close(); err != nil {
			e.log.Warn("watcher close: %v", err)
		}
	}
}
