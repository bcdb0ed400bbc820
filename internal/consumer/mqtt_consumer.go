package consumer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	mqttcommon "github.com/soraally1/glucovision/common/mqtt"
	"github.com/soraally1/glucovision/internal/models"
	"github.com/soraally1/glucovision/internal/session"
)

// Subscriber MQTT 订阅能力（common/mqtt.Client）
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// Sessions 会话操作（session.Manager）
type Sessions interface {
	Start(deviceID string) (session.Snapshot, error)
	Stop(deviceID string) (session.Snapshot, error)
	PushFrame(ctx context.Context, deviceID string, intensity float64) (session.Snapshot, error)
}

// Topics 订阅主题
type Topics struct {
	Frame   string // ppg/+/frame
	Control string // ppg/+/control
	QoS     byte
}

// MQTTConsumer 帧源消费者
type MQTTConsumer struct {
	topics   Topics
	client   Subscriber
	sessions Sessions
	logger   *zap.Logger
	ctx      context.Context
}

// NewMQTTConsumer 创建MQTT消费者
func NewMQTTConsumer(topics Topics, client Subscriber, sessions Sessions, logger *zap.Logger) *MQTTConsumer {
	return &MQTTConsumer{
		topics:   topics,
		client:   client,
		sessions: sessions,
		logger:   logger,
		ctx:      context.Background(),
	}
}

// Start 订阅主题并阻塞到 ctx 取消
func (c *MQTTConsumer) Start(ctx context.Context) error {
	c.ctx = ctx
	if err := c.client.Subscribe(c.topics.Control, c.topics.QoS, c.handleControl); err != nil {
		return fmt.Errorf("failed to subscribe to control topic: %w", err)
	}
	if err := c.client.Subscribe(c.topics.Frame, c.topics.QoS, c.handleFrame); err != nil {
		return fmt.Errorf("failed to subscribe to frame topic: %w", err)
	}

	c.logger.Info("MQTT consumer started",
		zap.String("frame_topic", c.topics.Frame),
		zap.String("control_topic", c.topics.Control),
	)

	<-ctx.Done()
	return nil
}

// Stop 取消订阅
func (c *MQTTConsumer) Stop(ctx context.Context) error {
	if err := c.client.Unsubscribe(c.topics.Frame, c.topics.Control); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
	}
	c.logger.Info("MQTT consumer stopped")
	return nil
}

func deviceID(topic, fromPayload string) (string, error) {
	if fromPayload != "" {
		return fromPayload, nil
	}
	id := models.DeviceIDFromTopic(topic)
	if id == "" {
		return "", fmt.Errorf("invalid topic format: %s", topic)
	}
	return id, nil
}

// handleFrame 主题格式: ppg/{device_id}/frame
func (c *MQTTConsumer) handleFrame(topic string, payload []byte) error {
	msg, err := models.ParseFrameMessage(payload)
	if err != nil {
		return err
	}
	id, err := deviceID(topic, msg.DeviceID)
	if err != nil {
		return err
	}

	for _, v := range msg.Values() {
		if _, err := c.sessions.PushFrame(c.ctx, id, v); err != nil {
			// 没有采集中的会话时帧直接丢弃
			if errors.Is(err, session.ErrNoSession) || errors.Is(err, session.ErrNotCollecting) {
				c.logger.Debug("Dropping frame without active session", zap.String("device_id", id))
				return nil
			}
			return fmt.Errorf("failed to process frame: %w", err)
		}
	}
	return nil
}

// handleControl 主题格式: ppg/{device_id}/control
func (c *MQTTConsumer) handleControl(topic string, payload []byte) error {
	msg, err := models.ParseControlMessage(payload)
	if err != nil {
		return err
	}
	id, err := deviceID(topic, msg.DeviceID)
	if err != nil {
		return err
	}

	switch msg.Action {
	case models.ControlStart:
		_, err = c.sessions.Start(id)
	case models.ControlStop:
		_, err = c.sessions.Stop(id)
		if errors.Is(err, session.ErrNoSession) || errors.Is(err, session.ErrNotCollecting) {
			err = nil
		}
	}
	if err != nil {
		return fmt.Errorf("failed to %s session: %w", msg.Action, err)
	}

	c.logger.Info("Session control",
		zap.String("device_id", id),
		zap.String("action", msg.Action),
	)
	return nil
}
