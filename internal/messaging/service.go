// Package messaging delivers agent replies to buyers over outbound channels.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// WhatsAppPrefix marks Twilio WhatsApp addresses.
const WhatsAppPrefix = "whatsapp:"

// minPhoneDigits is the shortest number accepted as a recipient.
const minPhoneDigits = 6

// Recipient validation errors.
var (
	ErrEmptyRecipient   = errors.New("recipient cannot be empty")
	ErrInvalidRecipient = errors.New("invalid phone number")
)

var nonDigit = regexp.MustCompile(`\D`)

// Sender delivers a text message to a buyer.
type Sender interface {
	// SendMessage sends body to the recipient. to may be in any form accepted by
	// CanonicalizeRecipient.
	SendMessage(ctx context.Context, to, body string) error
}

// CanonicalizeRecipient validates a phone number and reduces it to its digits. A
// "whatsapp:" prefix and any formatting characters are dropped.
func CanonicalizeRecipient(recipient string) (string, error) {
	trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(recipient), WhatsAppPrefix))
	if trimmed == "" {
		return "", ErrEmptyRecipient
	}
	canonical := nonDigit.ReplaceAllString(trimmed, "")
	if canonical == "" {
		return "", fmt.Errorf("%w: no digits found in recipient %q", ErrInvalidRecipient, recipient)
	}
	if len(canonical) < minPhoneDigits {
		return "", fmt.Errorf("%w: %q is too short (minimum %d digits required)", ErrInvalidRecipient, canonical, minPhoneDigits)
	}
	if canonical != recipient {
		slog.Debug("CanonicalizeRecipient modified recipient", "original", recipient, "canonical", canonical)
	}
	return canonical, nil
}
