package classify

import "strings"

const (
	SentimentPositive = "Позитивный"
	SentimentNeutral  = "Нейтральный"
	SentimentNegative = "Негативный"
)

const (
	SegmentVIP      = "VIP"
	SegmentPriority = "Priority"
)

// NormalizeType maps classifier output, in either language, onto the
// canonical ticket-type vocabulary.
func NormalizeType(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "complaint", "жалоба":
		return "Жалоба"
	case "consultation", "консультация":
		return "Консультация"
	case "fraud", "мошеннические действия":
		return "Мошеннические действия"
	case "change of data", "смена данных":
		return "Смена данных"
	case "technical issue", "неработоспособность приложения":
		return "Неработоспособность приложения"
	case "spam", "спам":
		return "Спам"
	default:
		return strings.TrimSpace(value)
	}
}

// LanguageBucket collapses a free-form language name into one of the
// three routing buckets. Anything unrecognised lands in the default
// bucket.
func LanguageBucket(value string) string {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "KZ", "KK", "KAZ", "KAZAKH":
		return "KZ"
	case "EN", "ENG", "ENGLISH":
		return "ENG"
	default:
		return "RU"
	}
}

// NormalizeSentiment maps classifier sentiment onto the canonical
// three-value vocabulary; unknown values are treated as neutral.
func NormalizeSentiment(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "positive", "позитивный":
		return SentimentPositive
	case "negative", "негативный":
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// IsPriority reports whether a client segment activates the
// priority-handling rule.
func IsPriority(segment string) bool {
	s := strings.TrimSpace(segment)
	return strings.EqualFold(s, SegmentVIP) || strings.EqualFold(s, SegmentPriority)
}
