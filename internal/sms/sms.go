// Package sms sends text messages through Twilio. When Twilio is not
// configured the process runs with NopSender, which logs instead of
// sending; business logic never checks which one it got.
package sms

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Sender delivers a text message to a phone number and returns the
// provider's message ID.
type Sender interface {
	Send(ctx context.Context, phoneNumber, text string) (string, error)
}

// TwilioSender sends SMS through the Twilio REST API
type TwilioSender struct {
	client *twilio.RestClient
	from   string
}

// NewTwilioSender creates a Twilio-backed sender with a bounded request
// timeout.
func NewTwilioSender(accountSID, authToken, from string, timeout time.Duration) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	client.SetTimeout(timeout)
	return &TwilioSender{client: client, from: from}
}

// Send sends a message. The Twilio client does not take a context; the
// client-level timeout bounds the call instead, and a pre-cancelled
// context still short-circuits.
func (s *TwilioSender) Send(ctx context.Context, phoneNumber, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetTo(phoneNumber)
	params.SetFrom(s.from)
	params.SetBody(text)

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("failed to send sms: %w", err)
	}
	if resp.Sid == nil {
		return "", nil
	}
	return *resp.Sid, nil
}

// NopSender logs the message and reports success without sending anything
type NopSender struct{}

// Send logs the would-be message
func (NopSender) Send(_ context.Context, phoneNumber, text string) (string, error) {
	log.Info().
		Str("phone", phoneNumber).
		Str("text", text).
		Msg("SMS delivery not configured, message dropped")
	return "", nil
}
