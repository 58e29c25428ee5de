package domain

import "time"

// VerificationCode is a short-lived numeric secret. The zero value means
// "never issued" and must never match or validate.
type VerificationCode struct {
	Code      int       `json:"-" dynamodbav:"code"`
	ExpiresAt time.Time `json:"-" dynamodbav:"expires_at"`
}

// Channel identifies which contact point a verification code belongs to.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPhone Channel = "phone"
)

// ParseChannel normalizes a channel name. Unknown values fall back to email,
// mirroring how unknown languages fall back to the default.
func ParseChannel(s string) Channel {
	if Channel(s) == ChannelPhone {
		return ChannelPhone
	}
	return ChannelEmail
}

// AlreadyVerifiedError returns the channel-specific already-verified error.
func (c Channel) AlreadyVerifiedError() *Error {
	if c == ChannelPhone {
		return ErrPhoneAlreadyVerified
	}
	return ErrEmailAlreadyVerified
}
