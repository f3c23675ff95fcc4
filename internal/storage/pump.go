package storage

import (
	"context"
	"encoding/json"
	"time"

	"wdsched/internal/eventbus"
	logx "wdsched/pkg/logx"
)

// EntryOf converts a bus event into a journal entry.
func EntryOf(e eventbus.Event) (Entry, error) {
	out := Entry{At: e.Time, Type: e.Type}
	if e.Data != nil {
		b, err := json.Marshal(e.Data)
		if err != nil {
			return Entry{}, err
		}
		out.Data = b
	}
	return out, nil
}

// Pump journals every event from ch until ctx ends or ch is closed.
// Write failures are logged and the event is dropped.
func Pump(ctx context.Context, ch <-chan eventbus.Event, st Store, log logx.Logger) {
	if log.IsZero() {
		log = logx.Nop()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			entry, err := EntryOf(ev)
			if err != nil {
				log.Warn("event not journaled", logx.String("type", ev.Type), logx.Err(err))
				continue
			}
			wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			if err := st.Append(wctx, entry); err != nil {
				log.Warn("event not journaled", logx.String("type", ev.Type), logx.Err(err))
			}
			cancel()
		}
	}
}
