package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/closerlabs/salesbot/pkg/archive"
	"github.com/closerlabs/salesbot/pkg/generator"
	"github.com/closerlabs/salesbot/pkg/profile"
	"github.com/closerlabs/salesbot/pkg/session"
)

// Sender delivers outbound messages to a user. Delivery failures are logged
// by the controller and never treated as session-state errors.
type Sender interface {
	Send(userID int64, text string) error
}

// Archiver persists finished dialogs and their post-dialog feedback.
type Archiver interface {
	Archive(snap *session.Snapshot) (archive.Paths, error)
	AppendFeedback(paths archive.Paths, feedback string) error
}

// Controller orchestrates one inbound event at a time per user: session
// lookup/creation, the generator call, termination classification, and the
// archival handoff. The generator is always invoked with a copied history,
// never under a registry lock.
type Controller struct {
	registry  *session.Registry
	gen       generator.Generator
	matcher   *Matcher
	archiver  Archiver
	sender    Sender
	extractor *profile.Extractor
	feedback  *feedbackTracker
	timeout   time.Duration
}

// NewController wires a controller. timeout is the inactivity timeout, used
// only for status display.
func NewController(
	registry *session.Registry,
	gen generator.Generator,
	matcher *Matcher,
	archiver Archiver,
	sender Sender,
	timeout time.Duration,
) *Controller {
	if timeout == 0 {
		timeout = session.DefaultInactivityTimeout
	}

	return &Controller{
		registry:  registry,
		gen:       gen,
		matcher:   matcher,
		archiver:  archiver,
		sender:    sender,
		extractor: profile.NewExtractor(),
		feedback:  newFeedbackTracker(),
		timeout:   timeout,
	}
}

// HandleStart processes the start command: any stray open session is
// archived with reason manual, then a fresh session opens and the generator
// produces the conversation opener.
func (c *Controller) HandleStart(ctx context.Context, userID int64) error {
	c.feedback.drop(userID)
	c.finish(userID, session.ReasonManual, false)

	if _, err := c.registry.Create(userID); err != nil {
		// Lost a create race against another event of the same user;
		// per-user ordering makes this effectively unreachable.
		return fmt.Errorf("failed to create session: %w", err)
	}

	c.send(userID, welcomeText)

	reply, err := c.gen.Generate(ctx, []generator.Message{
		{Role: generator.RoleUser, Content: openingTurnText},
	})
	if err != nil {
		log.Error().Int64("user_id", userID).Err(err).Msg("Generator failed on opening turn")
		c.send(userID, apologyText)
		return nil
	}

	if err := c.registry.Append(userID, session.Turn{
		UserText:  openingTurnText,
		ReplyText: reply.Text,
		ReplyMeta: reply.AgentTrace,
	}); err != nil {
		log.Warn().Int64("user_id", userID).Err(err).Msg("Session closed before opening turn landed")
		return nil
	}

	c.send(userID, reply.Text)
	return nil
}

// HandleText processes an ordinary user message.
func (c *Controller) HandleText(ctx context.Context, userID int64, text string) error {
	if _, open := c.registry.View(userID); !open {
		if paths, ok := c.feedback.take(userID); ok {
			c.recordFeedback(userID, paths, text)
			return nil
		}
		c.send(userID, pleaseStartText)
		return nil
	}

	if c.matcher.IsExplicitStop(text) {
		c.finish(userID, session.ReasonUserStop, true)
		return nil
	}

	turns, ok := c.registry.History(userID)
	if !ok {
		c.send(userID, pleaseStartText)
		return nil
	}

	history := buildHistory(turns, text)
	reply, err := c.gen.Generate(ctx, history)
	if err != nil {
		// The session stays open: only explicit, timeout, or content
		// signals may finish it.
		log.Error().Int64("user_id", userID).Err(err).Msg("Generator failed")
		c.send(userID, apologyText)
		return nil
	}

	if err := c.registry.Append(userID, session.Turn{
		UserText:  text,
		ReplyText: reply.Text,
		ReplyMeta: reply.AgentTrace,
		Attrs:     c.extractor.Extract(text),
	}); err != nil {
		if errors.Is(err, session.ErrNoOpenSession) {
			// The reaper won while the generator was running; the turn
			// is dropped but the user still gets the reply.
			log.Warn().Int64("user_id", userID).Msg("Session finished during generator call")
		} else {
			log.Error().Int64("user_id", userID).Err(err).Msg("Failed to append turn")
		}
	}

	c.send(userID, reply.Text)

	if c.matcher.Classifies(reply.Text) {
		c.finish(userID, session.ReasonTermination, true)
	}
	return nil
}

// HandleStop processes the stop command. Idempotent: finishing a user with
// no open session is a no-op apart from the confirmation message.
func (c *Controller) HandleStop(ctx context.Context, userID int64) error {
	if !c.finish(userID, session.ReasonManual, true) {
		c.send(userID, finishedText)
	}
	return nil
}

// HandleReset force-finishes the session without a feedback round.
func (c *Controller) HandleReset(ctx context.Context, userID int64) error {
	c.feedback.drop(userID)
	c.finish(userID, session.ReasonForced, false)
	c.send(userID, resetText)
	return nil
}

// HandleStatus reports the open session summary and the time left until the
// reaper would claim it.
func (c *Controller) HandleStatus(ctx context.Context, userID int64) error {
	view, ok := c.registry.View(userID)
	if !ok {
		c.send(userID, noSessionText)
		return nil
	}

	remaining := c.timeout - time.Since(view.LastActivityAt)
	var timeoutInfo string
	if remaining > 0 {
		timeoutInfo = fmt.Sprintf("⏰ Автоматическое завершение через: %dм %dс",
			int(remaining.Minutes()), int(remaining.Seconds())%60)
	} else {
		timeoutInfo = "⚠️ Диалог будет завершен автоматически"
	}

	c.send(userID, fmt.Sprintf(
		"Статус диалога:\nID пользователя: %d\nВремя начала: %s\nКоличество сообщений: %d\n%s",
		view.UserID,
		view.StartedAt.Format("2006-01-02 15:04:05"),
		view.TurnCount,
		timeoutInfo,
	))
	return nil
}

// HandleProfile shows the attributes accumulated for the open session.
func (c *Controller) HandleProfile(ctx context.Context, userID int64) error {
	attrs, ok := c.registry.Profile(userID)
	if !ok || len(attrs) == 0 {
		c.send(userID, emptyProfileText)
		return nil
	}

	var b strings.Builder
	b.WriteString("📊 Ваш профиль:\n")
	for key, value := range attrs {
		fmt.Fprintf(&b, "• %s: %s\n", key, value)
	}
	c.send(userID, b.String())
	return nil
}

// HandleHistory shows the tail of the open session's exchange.
func (c *Controller) HandleHistory(ctx context.Context, userID int64) error {
	turns, ok := c.registry.History(userID)
	if !ok || len(turns) == 0 {
		c.send(userID, emptyHistoryText)
		return nil
	}

	if len(turns) > 5 {
		turns = turns[len(turns)-5:]
	}

	var b strings.Builder
	b.WriteString("📝 История диалога:\n")
	for i, turn := range turns {
		fmt.Fprintf(&b, "%d. 👤 %s\n", i+1, truncate(turn.UserText, 50))
		fmt.Fprintf(&b, "   🤖 %s\n", truncate(turn.ReplyText, 50))
	}
	c.send(userID, b.String())
	return nil
}

// finish runs one winning finish at most: registry removal, archival
// handoff, and (when prompt is set) the awaiting-feedback message. Returns
// whether this call won the session.
func (c *Controller) finish(userID int64, reason session.FinishReason, prompt bool) bool {
	snap := c.registry.Finish(userID, reason)
	if snap == nil {
		return false
	}

	paths, err := c.archiver.Archive(snap)
	if err != nil {
		log.Error().
			Int64("user_id", userID).
			Str("dialog_id", snap.DialogID).
			Err(err).
			Msg("Failed to archive dialog")
	} else if prompt {
		c.feedback.arm(userID, paths)
	}

	if prompt {
		if reason == session.ReasonTermination {
			c.send(userID, successText)
		} else {
			c.send(userID, finishedText)
		}
	}
	return true
}

func (c *Controller) recordFeedback(userID int64, paths archive.Paths, text string) {
	if err := c.archiver.AppendFeedback(paths, text); err != nil {
		log.Error().Int64("user_id", userID).Err(err).Msg("Failed to record feedback")
	}
	c.send(userID, feedbackThanksText)
}

func (c *Controller) send(userID int64, text string) {
	if err := c.sender.Send(userID, text); err != nil {
		log.Warn().Int64("user_id", userID).Err(err).Msg("Failed to send message")
	}
}

func buildHistory(turns []session.Turn, current string) []generator.Message {
	history := make([]generator.Message, 0, len(turns)*2+1)
	for _, turn := range turns {
		if turn.UserText != "" {
			history = append(history, generator.Message{Role: generator.RoleUser, Content: turn.UserText})
		}
		if turn.ReplyText != "" {
			history = append(history, generator.Message{Role: generator.RoleAssistant, Content: turn.ReplyText})
		}
	}
	return append(history, generator.Message{Role: generator.RoleUser, Content: current})
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
