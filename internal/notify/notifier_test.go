package notify

import (
	"context"
	"testing"
	"time"

	"github.com/kewsys/registry/internal/config"
	"github.com/kewsys/registry/internal/logger"
	"github.com/kewsys/registry/internal/pubsub/memory"
	"github.com/kewsys/registry/internal/types"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifierEmit(t *testing.T) {
	cfg := config.GetDefaultConfig()
	log := logger.NewNopLogger()
	ps := memory.NewPubSub(log)
	defer ps.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	messages, err := ps.Subscribe(ctx, cfg.PubSub.NotifyTopic)
	require.NoError(t, err)

	n := NewNotifier(cfg, ps, log)
	actorCtx := types.SetActor(ctx, "user-1", "admin", types.RoleAdmin)
	n.Emit(actorCtx, "asset:created", map[string]any{"id": "a1"})

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, "asset:created", msg.Metadata.Get("event"))

		var evt Event
		require.NoError(t, jsoniter.Unmarshal(msg.Payload, &evt))
		assert.Equal(t, "asset:created", evt.Name)
		assert.Equal(t, "user-1", evt.ActorID)
		assert.Equal(t, map[string]any{"id": "a1"}, evt.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not published")
	}
}

func TestNotifierDisabledOrUnnamed(t *testing.T) {
	cfg := config.GetDefaultConfig()
	log := logger.NewNopLogger()
	ps := memory.NewPubSub(log)
	defer ps.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	messages, err := ps.Subscribe(ctx, cfg.PubSub.NotifyTopic)
	require.NoError(t, err)

	NewNotifier(cfg, ps, log).Emit(ctx, "", map[string]any{})
	cfg.Notify.Enabled = false
	NewNotifier(cfg, ps, log).Emit(ctx, "asset:created", map[string]any{})

	select {
	case <-messages:
		t.Fatal("no event expected")
	case <-time.After(100 * time.Millisecond):
	}
}
