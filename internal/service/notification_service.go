package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/fleetops/workorder-service/internal/config"
	"github.com/fleetops/workorder-service/internal/events"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventWorkOrderCreated, n.handleWorkOrderCreated)
	n.dispatcher.Subscribe(events.EventWorkOrderStatusChanged, n.handleStatusChanged)
	n.dispatcher.Subscribe(events.EventWorkOrderPriorityChanged, n.handlePriorityChanged)
	n.dispatcher.Subscribe(events.EventWorkOrderAssigned, n.handleAssigned)
	n.dispatcher.Subscribe(events.EventWorkOrderSLAAtRisk, n.handleSLAAlert)
	n.dispatcher.Subscribe(events.EventWorkOrderSLABreached, n.handleSLAAlert)
}

func (n *NotificationService) handleWorkOrderCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("WorkOrderCreated", zap.String("work_order_id", event.WorkOrderID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("WorkOrderStatusChanged", zap.String("work_order_id", event.WorkOrderID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handlePriorityChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("WorkOrderPriorityChanged", zap.String("work_order_id", event.WorkOrderID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleAssigned(ctx context.Context, event events.Event) error {
	n.logger.Info("WorkOrderAssigned", zap.String("work_order_id", event.WorkOrderID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

// SLA alerts go out on both channels; breaches are logged at warn.
func (n *NotificationService) handleSLAAlert(ctx context.Context, event events.Event) error {
	fields := []zap.Field{zap.String("work_order_id", event.WorkOrderID), zap.Any("payload", event.Payload)}
	if event.Type == events.EventWorkOrderSLABreached {
		n.logger.Warn("WorkOrderSLABreached", fields...)
	} else {
		n.logger.Info("WorkOrderSLAAtRisk", fields...)
	}
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("work_order_id", event.WorkOrderID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("work_order_id", event.WorkOrderID),
		zap.String("event_type", string(event.Type)))
}
