package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fleetops/workorder-service/internal/config"
	"github.com/fleetops/workorder-service/internal/events"
)

func TestNotificationHandlersLogEvents(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	d := events.NewInMemoryDispatcher()
	svc := NewNotificationService(d, zap.New(core), config.NotificationConfig{
		EmailFrom:  "noreply@example.com",
		WebhookURL: "https://hooks.example.com/wo",
	})
	svc.RegisterHandlers()

	ctx := context.Background()
	require.NoError(t, d.Publish(ctx, events.Event{Type: events.EventWorkOrderSLABreached, WorkOrderID: "wo-1"}))
	require.NoError(t, d.Publish(ctx, events.Event{Type: events.EventWorkOrderSLAAtRisk, WorkOrderID: "wo-2"}))
	require.NoError(t, d.Publish(ctx, events.Event{Type: events.EventWorkOrderPriorityChanged, WorkOrderID: "wo-3"}))

	breached := logs.FilterMessage("WorkOrderSLABreached").All()
	require.Len(t, breached, 1)
	assert.Equal(t, zapcore.WarnLevel, breached[0].Level)
	assert.Equal(t, 1, logs.FilterMessage("WorkOrderSLAAtRisk").Len())
	assert.Equal(t, 1, logs.FilterMessage("WorkOrderPriorityChanged").Len())
	assert.Equal(t, 2, logs.FilterMessage("sendEmailNotificationStub").Len())
	assert.Equal(t, 3, logs.FilterMessage("sendWebhookNotificationStub").Len())
}

func TestNotificationStubsSkipUnconfiguredChannels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	d := events.NewInMemoryDispatcher()
	NewNotificationService(d, zap.New(core), config.NotificationConfig{}).RegisterHandlers()

	require.NoError(t, d.Publish(context.Background(), events.Event{Type: events.EventWorkOrderAssigned, WorkOrderID: "wo-1"}))
	assert.Equal(t, 1, logs.FilterMessage("WorkOrderAssigned").Len())
	assert.Zero(t, logs.FilterMessage("sendEmailNotificationStub").Len())
	assert.Zero(t, logs.FilterMessage("sendWebhookNotificationStub").Len())
}
