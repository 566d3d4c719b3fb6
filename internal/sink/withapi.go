package sink

import (
	"github.com/you/sc-chat-translator/internal/core"
	"github.com/you/sc-chat-translator/internal/ingesttrace"
)

type broadcaster interface {
	Broadcast(core.ChatMessage)
}

// WithBroadcast publishes each message to live clients once it is stored.
// A message that fails to persist is not broadcast.
type WithBroadcast struct {
	*SQLiteSink
	api broadcaster
}

func WithAPI(base *SQLiteSink, api broadcaster) *WithBroadcast {
	return &WithBroadcast{SQLiteSink: base, api: api}
}

func (w *WithBroadcast) Write(msg core.ChatMessage, trace *ingesttrace.LineTrace) error {
	stored, err := w.SQLiteSink.insertTraced(msg, trace)
	if err != nil {
		return err
	}
	if w.api != nil {
		w.api.Broadcast(stored)
	}
	return nil
}
