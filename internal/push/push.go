// Package push delivers notifications to registered devices. iOS goes
// through APNs, Android through FCM; unconfigured platforms fall back to a
// log-only sender so callers never branch on configuration.
package push

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Platforms accepted at device registration
const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
)

// Notification is the payload fanned out to a device
type Notification struct {
	Title   string
	Body    string
	GroupID string
	Type    string
}

// Sender delivers one notification to one device token
type Sender interface {
	Send(ctx context.Context, deviceToken, platform string, n Notification) error
}

// PlatformSender routes by device platform
type PlatformSender struct {
	ios     Sender
	android Sender
}

// NewPlatformSender creates a router over per-platform senders. Pass nil
// for an unconfigured platform to get log-only delivery.
func NewPlatformSender(ios, android Sender) *PlatformSender {
	if ios == nil {
		ios = NopSender{}
	}
	if android == nil {
		android = NopSender{}
	}
	return &PlatformSender{ios: ios, android: android}
}

// Send routes the notification to the platform's sender
func (s *PlatformSender) Send(ctx context.Context, deviceToken, platform string, n Notification) error {
	switch platform {
	case PlatformIOS:
		return s.ios.Send(ctx, deviceToken, platform, n)
	case PlatformAndroid:
		return s.android.Send(ctx, deviceToken, platform, n)
	default:
		return fmt.Errorf("unknown platform %q", platform)
	}
}

// NopSender logs the notification and reports success
type NopSender struct{}

// Send logs the would-be notification
func (NopSender) Send(_ context.Context, deviceToken, platform string, n Notification) error {
	log.Info().
		Str("platform", platform).
		Str("token", truncateToken(deviceToken)).
		Str("title", n.Title).
		Str("body", n.Body).
		Msg("Push delivery not configured, notification dropped")
	return nil
}

func truncateToken(token string) string {
	if len(token) > 8 {
		return token[:8] + "..."
	}
	return token
}
