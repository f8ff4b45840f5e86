package auth

import (
	"net/mail"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Channel is the delivery channel implied by an account identifier's
// shape. It decides where verification links and reset links go.
type Channel string

const (
	ChannelEmail   Channel = "email"
	ChannelPhone   Channel = "phone"
	ChannelUnknown Channel = "unknown"
)

// Classify decides whether an identifier is email-shaped or
// phone-shaped. Phone numbers must be in international form with a
// leading "+"; anything that parses as neither is ChannelUnknown.
func Classify(identifier string) Channel {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return ChannelUnknown
	}

	if strings.HasPrefix(trimmed, "+") {
		if isPhone(trimmed) {
			return ChannelPhone
		}
		return ChannelUnknown
	}

	if isEmail(trimmed) {
		return ChannelEmail
	}

	return ChannelUnknown
}

func isEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func isPhone(s string) bool {
	num, err := phonenumbers.Parse(s, "")
	if err != nil {
		return false
	}
	return phonenumbers.IsPossibleNumber(num)
}
