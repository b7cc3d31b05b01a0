// Package publisher handles publishing scan events to RabbitMQ.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aiforce-discovery-agent/collectors/port-recon/internal/scanner"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	eventScanCompleted = "recon.scan.completed"
	eventPortOpen      = "recon.port.open"

	routingScanCompleted = "scan.completed"
	routingPortOpen      = "discovered.port"

	eventSource = "/collectors/port-recon"
)

// channel is the subset of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends CloudEvents to RabbitMQ.
type Publisher struct {
	conn     *amqp.Connection
	channel  channel
	exchange string
	logger   *zap.SugaredLogger
}

// CloudEvent represents the CloudEvents 1.0 specification structure.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	ID              string      `json:"id"`
	Subject         string      `json:"subject,omitempty"`
	Time            string      `json:"time"`
	DataContentType string      `json:"datacontenttype"`
	Data            interface{} `json:"data"`
}

// PortOpenData represents data for an open port event.
type PortOpenData struct {
	ScanID        string                   `json:"scan_id"`
	TargetAddress string                   `json:"target_address"`
	Port          int                      `json:"port"`
	Service       string                   `json:"service,omitempty"`
	Suspicious    bool                     `json:"suspicious"`
	HTTPInfo      *scanner.HTTPServiceInfo `json:"http_info,omitempty"`
}

// New creates a new Publisher connected to RabbitMQ.
func New(url, exchange string, logger *zap.SugaredLogger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %q: %w", exchange, err)
	}

	return &Publisher{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		logger:   logger,
	}, nil
}

// Close closes the RabbitMQ connection.
func (p *Publisher) Close() error {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// PublishScanCompleted publishes the full report, then one event per open port.
func (p *Publisher) PublishScanCompleted(report *scanner.ScanReport) error {
	event := p.createEvent(eventScanCompleted, report.ScanID, report)
	if err := p.publish(event, routingScanCompleted); err != nil {
		return err
	}

	for _, port := range report.Ports {
		if port.Status != scanner.StatusOpen {
			continue
		}
		data := PortOpenData{
			ScanID:        report.ScanID,
			TargetAddress: report.TargetAddress,
			Port:          port.Port,
			Service:       port.Service,
			Suspicious:    scanner.IsSuspicious(port.Port),
			HTTPInfo:      port.HTTPInfo,
		}
		if err := p.publish(p.createEvent(eventPortOpen, report.ScanID, data), routingPortOpen); err != nil {
			return err
		}
	}

	return nil
}

func (p *Publisher) createEvent(eventType, subject string, data interface{}) CloudEvent {
	return CloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          eventSource,
		ID:              uuid.New().String(),
		Subject:         subject,
		Time:            time.Now().UTC().Format(time.RFC3339),
		DataContentType: "application/json",
		Data:            data,
	}
}

func (p *Publisher) publish(event CloudEvent, routingKey string) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/cloudevents+json",
			Body:        body,
			MessageId:   event.ID,
			Timestamp:   time.Now(),
		},
	)

	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debugw("Event published",
		"type", event.Type,
		"id", event.ID,
		"routing_key", routingKey,
	)

	return nil
}
