package reveal

import (
	"context"
	"time"

	"folio/internal/stream"
)

// Run drives one turn from events until it settles, calling onUpdate after
// every visible change. A channel closed without a terminal event counts as
// a failure. Cancelling ctx stops the turn and returns ctx.Err().
func Run(ctx context.Context, cfg Config, events <-chan stream.Event, onUpdate func(Snapshot)) (Snapshot, error) {
	if onUpdate == nil {
		onUpdate = func(Snapshot) {}
	}
	cfg = cfg.withDefaults()
	turn := NewTurn(cfg, time.Now())
	onUpdate(turn.Snapshot())

	ticker := time.NewTicker(cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			turn.Stop()
			return turn.Snapshot(), ctx.Err()
		case ev, ok := <-events:
			switch {
			case !ok:
				events = nil
				turn.Fail()
			case ev.Err != nil:
				turn.Fail()
			case ev.Done:
				turn.End()
			default:
				turn.Receive(ev.Content)
			}
		case now := <-ticker.C:
			if turn.Step(now) {
				onUpdate(turn.Snapshot())
			}
			if turn.Done() {
				return turn.Snapshot(), nil
			}
		}
	}
}
