package testutil

import (
	"context"
	"strconv"
	"sync"
)

// PublishedMessage is one message captured by RecordingPublisher.
type PublishedMessage struct {
	Channel string
	Data    []byte
	Attrs   map[string]string
}

// RecordingPublisher captures published messages. Err, when set, is returned
// from every Publish call.
type RecordingPublisher struct {
	mu       sync.Mutex
	Err      error
	Messages []PublishedMessage
}

func (p *RecordingPublisher) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return "", p.Err
	}
	p.Messages = append(p.Messages, PublishedMessage{Channel: channel, Data: data, Attrs: attrs})
	return strconv.Itoa(len(p.Messages)), nil
}

// Types returns the "type" attribute of every captured message.
func (p *RecordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.Messages))
	for _, msg := range p.Messages {
		out = append(out, msg.Attrs["type"])
	}
	return out
}

// FixedIDs yields the given ids in order, then repeats the last one.
type FixedIDs struct {
	mu  sync.Mutex
	IDs []string
	n   int
}

func (f *FixedIDs) NewID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.IDs) == 0 {
		return "fixed"
	}
	i := f.n
	if i >= len(f.IDs) {
		i = len(f.IDs) - 1
	}
	f.n++
	return f.IDs[i]
}
