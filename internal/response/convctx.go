package response

import (
	"strconv"
	"strings"
	"unicode"
)

// Framework names the qualification criteria set an AI session runs with.
type Framework string

const (
	FrameworkBANT   Framework = "BANT"
	FrameworkFAINT  Framework = "FAINT"
	FrameworkMEDDIC Framework = "MEDDIC"
)

// ConversationContext is the immutable qualification context passed to the
// AI conversation service for one voice attempt.
type ConversationContext struct {
	Framework Framework         `json:"framework"`
	Criteria  []string          `json:"criteria"`
	Business  map[string]string `json:"business"`
	Goal      string            `json:"goal"`
}

var frameworkCriteria = map[Framework][]string{
	FrameworkBANT:   {"Budget", "Authority", "Need", "Timeline"},
	FrameworkFAINT:  {"Funds", "Authority", "Interest", "Need", "Timing"},
	FrameworkMEDDIC: {"Metrics", "Economic Buyer", "Decision Criteria", "Decision Process", "Identify Pain", "Champion"},
}

// BuildConversationContext derives the qualification context from lead
// attributes. B2B leads with an inferred deal size above the threshold get
// MEDDIC, other B2B leads get BANT, consumer leads get FAINT.
func BuildConversationContext(event LeadIntakeEvent, dealSizeThresholdCents int64) ConversationContext {
	framework := FrameworkFAINT
	if event.Company != "" {
		framework = FrameworkBANT
		if InferDealSizeCents(event.Message) > dealSizeThresholdCents {
			framework = FrameworkMEDDIC
		}
	}

	business := map[string]string{
		"source": event.Source,
	}
	if event.Company != "" {
		business["company"] = event.Company
	}
	if event.Name != "" {
		business["contact_name"] = event.Name
	}
	if event.Message != "" {
		business["inquiry"] = event.Message
	}

	return ConversationContext{
		Framework: framework,
		Criteria:  append([]string(nil), frameworkCriteria[framework]...),
		Business:  business,
		Goal:      "Qualify the lead and book a follow-up with a human rep",
	}
}

// InferDealSizeCents extracts an indicative deal size from the free-text
// inquiry by taking the largest plain number that appears in it. A "k"
// suffix multiplies by a thousand. Returns 0 when nothing numeric appears.
func InferDealSizeCents(message string) int64 {
	var largest int64

	fields := strings.FieldsFunc(message, func(r rune) bool {
		return !unicode.IsDigit(r) && r != '.' && r != ',' && r != 'k' && r != 'K' && r != '$'
	})

	for _, f := range fields {
		f = strings.Trim(f, "$.,")
		if f == "" {
			continue
		}

		multiplier := int64(100) // dollars to cents
		if strings.HasSuffix(f, "k") || strings.HasSuffix(f, "K") {
			multiplier *= 1000
			f = f[:len(f)-1]
		}

		f = strings.ReplaceAll(f, ",", "")
		if i := strings.IndexByte(f, '.'); i >= 0 {
			f = f[:i]
		}
		n, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			continue
		}
		if v := n * multiplier; v > largest {
			largest = v
		}
	}

	return largest
}
