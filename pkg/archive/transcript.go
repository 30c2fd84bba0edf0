package archive

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/closerlabs/salesbot/pkg/session"
)

// renderTranscript renders a finished dialog as a human-readable Markdown
// document: header info, the turn-by-turn exchange, the accumulated client
// profile.
func renderTranscript(snap *session.Snapshot) []byte {
	var b strings.Builder

	b.WriteString("# История диалога с нейропродажником\n\n")
	fmt.Fprintf(&b, "- **ID диалога:** %s\n", snap.DialogID)
	fmt.Fprintf(&b, "- **ID пользователя:** %d\n", snap.UserID)
	fmt.Fprintf(&b, "- **Дата начала:** %s\n", snap.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- **Дата окончания:** %s\n", snap.EndedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- **Причина завершения:** %s\n", snap.Reason)
	fmt.Fprintf(&b, "- **Количество сообщений:** %d\n", len(snap.Turns))

	b.WriteString("\n## Диалог\n")
	for _, turn := range snap.Turns {
		fmt.Fprintf(&b, "\n*[%s]*\n\n", turn.Timestamp.Format(time.RFC3339))
		if turn.UserText != "" {
			fmt.Fprintf(&b, "**Клиент:** %s\n\n", turn.UserText)
		}
		if turn.ReplyText != "" {
			fmt.Fprintf(&b, "**Нейропродажник:** %s\n", turn.ReplyText)
		}
	}

	if len(snap.Profile) > 0 {
		b.WriteString("\n## Профиль клиента\n\n")
		keys := make([]string, 0, len(snap.Profile))
		for k := range snap.Profile {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, snap.Profile[k])
		}
	}

	return []byte(b.String())
}

func renderFeedback(feedback string) string {
	return fmt.Sprintf(
		"\n## РЕЗУЛЬТАТ ОПРОСА\n\n**Отзыв пользователя:** %s\n\n**Дата отзыва:** %s\n",
		feedback,
		time.Now().Format("2006-01-02 15:04:05"),
	)
}
