package push

import (
	"context"
	"fmt"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

// APNSSender delivers notifications to iOS devices through APNs
type APNSSender struct {
	client *apns2.Client
	topic  string
}

// NewAPNSSender creates an APNs sender from a .p8 signing key
func NewAPNSSender(keyFile, keyID, teamID, topic string, production bool) (*APNSSender, error) {
	authKey, err := token.AuthKeyFromFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   keyID,
		TeamID:  teamID,
	})
	if production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &APNSSender{client: client, topic: topic}, nil
}

// Send pushes one notification to one device token
func (s *APNSSender) Send(ctx context.Context, deviceToken, _ string, n Notification) error {
	p := payload.NewPayload().
		AlertTitle(n.Title).
		AlertBody(n.Body).
		Badge(1).
		Sound("default").
		ThreadID(n.GroupID).
		Custom("group_id", n.GroupID).
		Custom("type", n.Type)

	res, err := s.client.PushWithContext(ctx, &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       s.topic,
		Payload:     p,
	})
	if err != nil {
		return fmt.Errorf("failed to push to APNs: %w", err)
	}
	if !res.Sent() {
		return fmt.Errorf("APNs rejected notification: %s", res.Reason)
	}
	return nil
}
