package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func startServer(t *testing.T) *EmbeddedServer {
	t.Helper()
	srv, err := StartEmbedded(-1)
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	return srv
}

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	ctx := context.Background()

	require.NoError(t, r.Publish(ctx, Event{Type: RunStarted, RunID: "r1"}))
	require.NoError(t, r.Publish(ctx, Event{Type: RunCompleted, RunID: "r1"}))

	assert.Equal(t, []Type{RunStarted, RunCompleted}, r.Types())
	assert.Len(t, r.Events(), 2)
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), Event{Type: RunStarted}))
}

func TestNATSPublisher_PublishesJSON(t *testing.T) {
	srv := startServer(t)
	assert.NotEmpty(t, srv.ClientURL())

	sub, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	defer sub.Close()

	received := make(chan *nats.Msg, 1)
	_, err = sub.Subscribe("test.runs.>", func(msg *nats.Msg) {
		received <- msg
	})
	require.NoError(t, err)
	require.NoError(t, sub.Flush())

	pub, err := NewNATSPublisher(srv.ClientURL(), "test.runs.", zaptest.NewLogger(t))
	require.NoError(t, err)
	defer pub.Close()

	ev := Event{Type: PathExecuted, RunID: "r1", WorkflowID: "wf", StepID: "exec", Status: "success", Timestamp: time.Now().UTC()}
	require.NoError(t, pub.Publish(context.Background(), ev))
	require.NoError(t, pub.Flush())

	select {
	case msg := <-received:
		assert.Equal(t, "test.runs.path.executed", msg.Subject)
		var got Event
		require.NoError(t, json.Unmarshal(msg.Data, &got))
		assert.Equal(t, "r1", got.RunID)
		assert.Equal(t, "exec", got.StepID)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestNATSPublisher_CancelledContext(t *testing.T) {
	srv := startServer(t)
	conn, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	defer conn.Close()

	pub := NewNATSPublisherFromConn(conn, "", nil)
	assert.Equal(t, "pathflow.runs.run.started", pub.Subject(RunStarted))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, pub.Publish(ctx, Event{Type: RunStarted}), context.Canceled)
	assert.NoError(t, pub.Close())
}
