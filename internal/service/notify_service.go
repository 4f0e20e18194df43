package service

import "context"

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Destination is where an out-of-band message goes: an email address or a
// phone number, depending on the channel.
type Destination struct {
	Channel Channel
	Address string
}

// Notifier delivers OTP codes and reset confirmations. Implementations own
// channel specifics; the orchestrator only knows this contract.
type Notifier interface {
	SendCode(ctx context.Context, dest Destination, code, displayName string) error
	SendConfirmation(ctx context.Context, dest Destination, displayName string) error
}
