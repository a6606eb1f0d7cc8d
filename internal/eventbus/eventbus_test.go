package eventbus

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aussie-warriors/awbot/internal/observability/attr"
)

type recordingSender struct {
	mu   sync.Mutex
	got  map[string][]Notice
	done chan struct{}
	want int
}

func newRecordingSender(want int) *recordingSender {
	return &recordingSender{got: map[string][]Notice{}, done: make(chan struct{}), want: want}
}

func (r *recordingSender) SendNotice(_ context.Context, channelID string, n Notice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got[channelID] = append(r.got[channelID], n)
	total := 0
	for _, v := range r.got {
		total += len(v)
	}
	if total == r.want {
		close(r.done)
	}
	return nil
}

func TestNotifier_RoutesTopicsToChannels(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := NewEventBus(logger)
	defer bus.Close()

	sender := newRecordingSender(2)
	n, err := NewNotifier(bus, sender, map[string]string{
		TopicOperatorAlert: "ops",
		TopicLeaderNote:    "leaders",
	}, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = n.Run(ctx) }()
	<-n.Running()

	ctx = attr.WithCorrelationID(ctx, "corr-1")
	require.NoError(t, bus.Publish(ctx, TopicOperatorAlert, Notice{Title: "API down", Color: ColorRed}))
	require.NoError(t, bus.Publish(ctx, TopicInfoLog, Notice{Title: "dropped, no channel"}))
	require.NoError(t, bus.Publish(ctx, TopicLeaderNote, Notice{Title: "Warning expired"}))

	select {
	case <-sender.done:
	case <-time.After(5 * time.Second):
		t.Fatal("notices were not delivered")
	}

	sender.mu.Lock()
	defer sender.mu.Unlock()
	require.Len(t, sender.got["ops"], 1)
	assert.Equal(t, "API down", sender.got["ops"][0].Title)
	assert.False(t, sender.got["ops"][0].Timestamp.IsZero())
	require.Len(t, sender.got["leaders"], 1)
	assert.Equal(t, "Warning expired", sender.got["leaders"][0].Title)
}
