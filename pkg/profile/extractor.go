// Package profile extracts best-effort client attributes from free-form
// dialog text. It is a stateless enrichment step: extracted attributes ride
// on the appended turn and never influence session state transitions.
package profile

import (
	"regexp"
	"strconv"
	"strings"
)

var numberRe = regexp.MustCompile(`\d+`)

var positionKeywords = []string{
	"директор", "руководитель", "hr", "рекрутер", "менеджер", "специалист", "начальник",
}

var hiringKeywords = []string{
	"программист", "разработчик", "менеджер", "продавец", "дизайнер",
}

// Extractor scrapes client attributes from a message. Keyword heuristics
// only; wrong guesses are acceptable, the profile is advisory.
type Extractor struct{}

// NewExtractor creates an extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the attributes found in text, keyed by attribute name.
// The map is empty when nothing matched.
func (e *Extractor) Extract(text string) map[string]string {
	attrs := make(map[string]string)
	lower := strings.ToLower(text)
	numbers := numberRe.FindAllString(lower, -1)

	if containsAny(lower, "сотрудник", "человек", "чел") && len(numbers) > 0 {
		attrs["company_size"] = numbers[0]
	}

	if containsAny(lower, "hr", "рекрутер", "кадр") && len(numbers) > 0 {
		attrs["hr_count"] = numbers[0]
	}

	if containsAny(lower, "руб", "тысяч") || strings.Contains(text, "₽") {
		if len(numbers) > 0 {
			budget, err := strconv.Atoi(numbers[0])
			if err == nil {
				if containsAny(lower, "тысяч", "тыс") {
					budget *= 1000
				}
				attrs["hr_budget"] = strconv.Itoa(budget)
			}
		}
	}

	for _, keyword := range positionKeywords {
		if strings.Contains(lower, keyword) {
			attrs["position"] = keyword
			break
		}
	}

	switch {
	case containsAny(lower, "скорость", "быстро"):
		attrs["priority"] = "скорость"
	case containsAny(lower, "экономия", "дешево", "бюджет"):
		attrs["priority"] = "экономия"
	case containsAny(lower, "масштаб", "расширить"):
		attrs["priority"] = "масштабироваться"
	case containsAny(lower, "рутина", "автоматизация"):
		attrs["priority"] = "снизить рутину"
	case containsAny(lower, "результат", "качество"):
		attrs["priority"] = "показать хороший результат"
	}

	if containsAny(lower, "тест", "пробный") {
		switch {
		case containsAny(lower, "хорошо", "отлично"):
			attrs["trial_period"] = "успешно"
		case containsAny(lower, "плохо", "не понравилось"):
			attrs["trial_period"] = "неудачно"
		default:
			attrs["trial_period"] = "протестирован"
		}
	}

	if containsAny(lower, "нанимаем", "ищем") {
		for _, keyword := range hiringKeywords {
			if strings.Contains(lower, keyword) {
				attrs["hiring_target"] = keyword
				break
			}
		}
	}

	if containsAny(lower, "особенност", "специфик") {
		if containsAny(lower, "нет", "не") {
			attrs["hiring_specialties"] = "нет"
		} else {
			attrs["hiring_specialties"] = "есть"
		}
	}

	return attrs
}

func containsAny(text string, keywords ...string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
