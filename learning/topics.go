package learning

import "regexp"

// Topic labels assigned to learned chunks.
const (
	TopicPricing      = "pricing"
	TopicPropertyType = "property_type"
	TopicLocation     = "location"
	TopicViewing      = "viewing"
	TopicInvestment   = "investment"
	TopicPaymentPlans = "payment_plans"
	TopicBooking      = "booking"
	TopicGeneral      = "general"
)

// topicRule binds a topic label to its keyword pattern. Rules form a
// first-match cascade, so order matters: pricing is checked first and its
// "payment" keyword absorbs most payment-plan talk; only installment and
// handover phrasing without money words reaches payment_plans.
type topicRule struct {
	topic   string
	pattern *regexp.Regexp
}

var topicRules = []topicRule{
	{TopicPricing, regexp.MustCompile(`(?i)price|cost|budget|aed|payment|afford`)},
	{TopicPropertyType, regexp.MustCompile(`(?i)bed|room|studio|apartment|villa|penthouse`)},
	{TopicLocation, regexp.MustCompile(`(?i)marina|downtown|jbr|palm|creek|business bay`)},
	{TopicViewing, regexp.MustCompile(`(?i)view|visit|tour|see|show me`)},
	{TopicInvestment, regexp.MustCompile(`(?i)yield|roi|investment|rental|return`)},
	{TopicPaymentPlans, regexp.MustCompile(`(?i)payment plan|installment|handover`)},
}

// ClassifyTopic assigns a topic label to a piece of text by keyword lexicon.
// Unmatched text falls back to the general bucket.
func ClassifyTopic(text string) string {
	for _, rule := range topicRules {
		if rule.pattern.MatchString(text) {
			return rule.topic
		}
	}
	return TopicGeneral
}
