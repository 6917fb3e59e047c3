package response

import (
	"strings"

	"leadrelay_backend/platform/phone"
)

// SelectChannels maps lead attributes and source onto an ordered, duplicate-free
// channel list. The rule table is evaluated in order:
//
//  1. source website/chat  -> chat first
//  2. phone present        -> voice
//  3. mobile-capable phone -> sms
//  4. email present        -> email
//
// An empty result is ErrChannelUnavailable; that is the only selector failure.
func SelectChannels(event LeadIntakeEvent) ([]Channel, error) {
	var selected []Channel
	seen := make(map[Channel]bool)

	include := func(ch Channel) {
		if !seen[ch] {
			seen[ch] = true
			selected = append(selected, ch)
		}
	}

	switch strings.ToLower(strings.TrimSpace(event.Source)) {
	case "website", "chat":
		include(ChannelChat)
	}

	if event.Phone != "" {
		include(ChannelVoice)
		if phone.IsMobileCapable(event.Phone) {
			include(ChannelSMS)
		}
	}

	if event.Email != "" {
		include(ChannelEmail)
	}

	if len(selected) == 0 {
		return nil, ErrChannelUnavailable
	}
	return selected, nil
}
