package dialog

import "strings"

// terminationPhrases is the fixed list of assistant phrases that signal the
// dialog reached its natural end: payment confirmation wording and closing
// pleasantries. Matching is substring-based and deliberately permissive;
// phrases have no priority among each other.
var terminationPhrases = []string{
	"оформляем доступ",
	"готовы к оплате",
	"переходим к оплате",
	"оформляем оплату",
	"оплачиваем",
	"спасибо за общение",
	"до связи",
	"удачного дня",
	"до свидания",
	"удачи с наймом",
	"до скорой встречи",
	"всего доброго",
}

// defaultStopToken is the exact command word a user sends to end the dialog.
const defaultStopToken = "стоп"

// Matcher classifies dialog text for termination. It is pure and stateless.
//
// The two checks intentionally differ in strictness: Classifies runs over
// assistant output and errs toward ending the dialog, while IsExplicitStop
// runs over user input and must never fire on incidental use of the stop
// word inside a longer message.
type Matcher struct {
	phrases   []string
	stopToken string
}

// NewMatcher creates a matcher with the built-in phrase list and stop token.
func NewMatcher() *Matcher {
	return &Matcher{
		phrases:   terminationPhrases,
		stopToken: defaultStopToken,
	}
}

// Classifies reports whether an assistant reply contains a termination
// phrase. Case-insensitive substring match; any single phrase triggers.
func (m *Matcher) Classifies(replyText string) bool {
	lower := strings.ToLower(replyText)
	for _, phrase := range m.phrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// IsExplicitStop reports whether user text is exactly the stop token,
// trimmed and case-folded. A message that merely mentions the token as part
// of a longer sentence does not match.
func (m *Matcher) IsExplicitStop(userText string) bool {
	return strings.EqualFold(strings.TrimSpace(userText), m.stopToken)
}

// StopToken returns the configured stop token.
func (m *Matcher) StopToken() string {
	return m.stopToken
}
