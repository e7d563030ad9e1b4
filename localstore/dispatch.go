package localstore

import "log/slog"

// Notifier is the fire-and-forget wake-up channel between the change
// listener and the external sync worker. A notification means "entity X has
// pending work"; the oplog itself remains the durable source of truth, so a
// dropped notification is harmless.
//
// This is a typed channel in place of the stringly-named global event bus
// the design replaced: consumers range over C, producers call Notify.
type Notifier struct {
	ch     chan string
	logger *slog.Logger
}

// NewNotifier builds a notifier with the given buffer size.
func NewNotifier(buffer int, logger *slog.Logger) *Notifier {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{ch: make(chan string, buffer), logger: logger}
}

// Notify signals pending work for a push entity. It never blocks: with no
// consumer keeping up, the hint is dropped and the sync worker will find the
// work on its next oplog scan anyway.
func (n *Notifier) Notify(entity string) {
	select {
	case n.ch <- entity:
	default:
		n.logger.Debug("sync notification dropped", "entity", entity)
	}
}

// C is the receive side consumed by the sync worker.
func (n *Notifier) C() <-chan string { return n.ch }
