// Package centrifugo wraps the Centrifugo gRPC API client used as the
// Room Fabric transport: every server-originated event in the duel
// protocol goes out through Client.Publish/Broadcast to a channel name
// built by the caller (internal/modules/roomfabric owns that naming).
package centrifugo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/centrifugal/gocent/v3"
	"github.com/sirupsen/logrus"
)

// Client wraps the Centrifugo gRPC client with additional functionality
type Client struct {
	client *gocent.Client
	logger *logrus.Logger
}

// Config holds Centrifugo client configuration
type Config struct {
	GRPCAddr string
	APIKey   string
}

// NewClient creates a new Centrifugo client wrapper
func NewClient(cfg Config, logger *logrus.Logger) (*Client, error) {
	client := gocent.New(gocent.Config{
		Addr: cfg.GRPCAddr,
		Key:  cfg.APIKey,
	})

	logger.WithFields(logrus.Fields{
		"grpc_addr": cfg.GRPCAddr,
	}).Info("Connected to Centrifugo")

	return &Client{
		client: client,
		logger: logger,
	}, nil
}

// Close closes the Centrifugo client connection
func (c *Client) Close() error {
	// gocent v3 doesn't have a Close method
	return nil
}

// Publish publishes an event envelope to a single channel.
func (c *Client) Publish(ctx context.Context, channel string, event string, data interface{}) error {
	payload, err := envelope(event, data)
	if err != nil {
		return err
	}

	if _, err := c.client.Publish(ctx, channel, payload); err != nil {
		c.logger.WithFields(logrus.Fields{
			"channel": channel,
			"event":   event,
			"error":   err,
		}).Error("Failed to publish message to Centrifugo")
		return fmt.Errorf("failed to publish to channel %s: %w", channel, err)
	}

	c.logger.WithFields(logrus.Fields{
		"channel": channel,
		"event":   event,
	}).Debug("Published message to Centrifugo")

	return nil
}

// Broadcast publishes an event envelope to multiple channels at once.
func (c *Client) Broadcast(ctx context.Context, channels []string, event string, data interface{}) error {
	payload, err := envelope(event, data)
	if err != nil {
		return err
	}

	if _, err := c.client.Broadcast(ctx, channels, payload); err != nil {
		c.logger.WithFields(logrus.Fields{
			"channels": channels,
			"event":    event,
			"error":    err,
		}).Error("Failed to broadcast message to Centrifugo")
		return fmt.Errorf("failed to broadcast to channels: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"channels": channels,
		"event":    event,
	}).Debug("Broadcasted message to Centrifugo")

	return nil
}

func envelope(event string, data interface{}) ([]byte, error) {
	payload := map[string]interface{}{
		"event":     event,
		"data":      data,
		"timestamp": time.Now().Unix(),
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}
	return jsonData, nil
}

// GetPresence returns presence information for a channel
func (c *Client) GetPresence(ctx context.Context, channel string) (map[string]gocent.ClientInfo, error) {
	result, err := c.client.Presence(ctx, channel)
	if err != nil {
		return nil, fmt.Errorf("failed to get presence for channel %s: %w", channel, err)
	}
	return result.Presence, nil
}

// GetPresenceStats returns presence statistics for a channel
func (c *Client) GetPresenceStats(ctx context.Context, channel string) (*gocent.PresenceStatsResult, error) {
	result, err := c.client.PresenceStats(ctx, channel)
	if err != nil {
		return nil, fmt.Errorf("failed to get presence stats for channel %s: %w", channel, err)
	}
	return &result, nil
}

// GetChannels returns active channels (simplified for gocent v3)
func (c *Client) GetChannels(ctx context.Context) ([]string, error) {
	result, err := c.client.Channels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get channels: %w", err)
	}

	channels := make([]string, 0, len(result.Channels))
	for channel := range result.Channels {
		channels = append(channels, channel)
	}
	return channels, nil
}

// Disconnect disconnects a user from all connections
func (c *Client) Disconnect(ctx context.Context, userID string) error {
	if err := c.client.Disconnect(ctx, userID); err != nil {
		return fmt.Errorf("failed to disconnect user %s: %w", userID, err)
	}

	c.logger.WithField("user_id", userID).Info("Disconnected user from Centrifugo")
	return nil
}

// Unsubscribe removes a user from a channel
func (c *Client) Unsubscribe(ctx context.Context, channel string, userID string) error {
	if err := c.client.Unsubscribe(ctx, channel, userID); err != nil {
		return fmt.Errorf("failed to unsubscribe user %s from channel %s: %w", userID, channel, err)
	}

	c.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"channel": channel,
	}).Debug("Unsubscribed user from channel")
	return nil
}

// Subscribe adds a user to a channel
func (c *Client) Subscribe(ctx context.Context, channel string, userID string) error {
	if err := c.client.Subscribe(ctx, channel, userID); err != nil {
		return fmt.Errorf("failed to subscribe user %s to channel %s: %w", userID, channel, err)
	}

	c.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"channel": channel,
	}).Debug("Subscribed user to channel")
	return nil
}

// GetInfo returns Centrifugo server information
func (c *Client) GetInfo(ctx context.Context) (*gocent.InfoResult, error) {
	result, err := c.client.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get server info: %w", err)
	}
	return &result, nil
}
