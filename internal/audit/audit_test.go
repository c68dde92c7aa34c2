package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/kewsys/registry/internal/audit"
	"github.com/kewsys/registry/internal/config"
	"github.com/kewsys/registry/internal/logger"
	"github.com/kewsys/registry/internal/pubsub/memory"
	"github.com/kewsys/registry/internal/testutil"
	"github.com/kewsys/registry/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSinkToConsumer(t *testing.T) {
	cfg := config.GetDefaultConfig()
	log := logger.NewNopLogger()
	ps := memory.NewPubSub(log)
	defer ps.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	messages, err := ps.Subscribe(ctx, cfg.PubSub.AuditTopic)
	require.NoError(t, err)

	store := testutil.NewInMemoryAuditLogStore()
	consumer := audit.NewConsumer(cfg, store, ps, log)
	sink := audit.NewSink(cfg, ps, log)

	reqCtx := types.SetActor(ctx, "7b1c9c3e-4f0a-4c55-9f43-1d2b7e0c2a11", "siti", types.RoleManager)
	reqCtx = types.SetClientInfo(reqCtx, "10.0.0.7", "curl/8.0")
	sink.Record(reqCtx, audit.Entry{
		Action:   types.AuditActionUpdate,
		Module:   "Asset",
		RecordID: "a1",
		OldValue: map[string]any{"location": "HQ"},
		NewValue: map[string]any{"location": "Store"},
	})

	select {
	case msg := <-messages:
		require.NoError(t, consumer.Handle(msg))
		// redelivery is acked without a second row
		require.NoError(t, consumer.Handle(msg))
		msg.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("audit entry was not published")
	}

	logs, err := store.List(ctx, &types.AuditLogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)

	got := logs[0]
	assert.Equal(t, types.AuditActionUpdate, got.Action)
	assert.Equal(t, "Asset", got.Module)
	assert.Equal(t, "siti", got.Username)
	assert.Equal(t, "10.0.0.7", got.IPAddress)
	assert.Equal(t, "curl/8.0", got.UserAgent)
	assert.Equal(t, types.AuditStatusSuccess, got.Status)
	assert.Equal(t, "Store", got.NewValue["location"])
}

func TestConsumerAcksMalformedPayload(t *testing.T) {
	cfg := config.GetDefaultConfig()
	consumer := audit.NewConsumer(cfg, testutil.NewInMemoryAuditLogStore(), nil, logger.NewNopLogger())
	assert.NoError(t, consumer.Handle(testutil.NewMessage([]byte("not json"))))
}
