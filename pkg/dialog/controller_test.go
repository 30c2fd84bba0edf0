package dialog

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/closerlabs/salesbot/pkg/archive"
	"github.com/closerlabs/salesbot/pkg/generator"
	"github.com/closerlabs/salesbot/pkg/session"
)

type fakeGenerator struct {
	fn    func(history []generator.Message) (*generator.Reply, error)
	calls [][]generator.Message
}

func (g *fakeGenerator) Generate(ctx context.Context, history []generator.Message) (*generator.Reply, error) {
	g.calls = append(g.calls, history)
	return g.fn(history)
}

type fakeSender struct {
	mu   sync.Mutex
	sent []string
}

func (s *fakeSender) Send(userID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, text)
	return nil
}

func (s *fakeSender) last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return ""
	}
	return s.sent[len(s.sent)-1]
}

type fakeArchiver struct {
	archived []*session.Snapshot
	feedback []string
	fail     bool
}

func (a *fakeArchiver) Archive(snap *session.Snapshot) (archive.Paths, error) {
	if a.fail {
		return archive.Paths{}, fmt.Errorf("archive unavailable")
	}
	a.archived = append(a.archived, snap)
	return archive.Paths{Record: "r.json", Transcript: "r.md"}, nil
}

func (a *fakeArchiver) AppendFeedback(paths archive.Paths, feedback string) error {
	a.feedback = append(a.feedback, feedback)
	return nil
}

func replyWith(text string) func([]generator.Message) (*generator.Reply, error) {
	return func([]generator.Message) (*generator.Reply, error) {
		return &generator.Reply{Text: text}, nil
	}
}

func setupController(t *testing.T, gen *fakeGenerator) (*Controller, *fakeSender, *fakeArchiver, *session.Registry) {
	t.Helper()
	registry := session.NewRegistry()
	sender := &fakeSender{}
	archiver := &fakeArchiver{}
	c := NewController(registry, gen, NewMatcher(), archiver, sender, 10*time.Minute)
	return c, sender, archiver, registry
}

func TestController_StartOpensSessionWithOpener(t *testing.T) {
	gen := &fakeGenerator{fn: replyWith("Здравствуйте! Расскажите о вашей компании.")}
	c, sender, _, registry := setupController(t, gen)

	require.NoError(t, c.HandleStart(context.Background(), 100))

	view, ok := registry.View(100)
	require.True(t, ok)
	assert.Equal(t, 1, view.TurnCount)

	require.Len(t, sender.sent, 2)
	assert.Equal(t, welcomeText, sender.sent[0])
	assert.Equal(t, "Здравствуйте! Расскажите о вашей компании.", sender.sent[1])

	// Opener call carries only the synthetic first turn
	require.Len(t, gen.calls, 1)
	require.Len(t, gen.calls[0], 1)
	assert.Equal(t, openingTurnText, gen.calls[0][0].Content)
}

func TestController_StartArchivesStraySession(t *testing.T) {
	gen := &fakeGenerator{fn: replyWith("Добрый день!")}
	c, _, archiver, _ := setupController(t, gen)

	require.NoError(t, c.HandleStart(context.Background(), 100))
	require.NoError(t, c.HandleStart(context.Background(), 100))

	require.Len(t, archiver.archived, 1)
	assert.Equal(t, session.ReasonManual, archiver.archived[0].Reason)
}

func TestController_TextAccumulatesTurns(t *testing.T) {
	gen := &fakeGenerator{fn: replyWith("Понятно, а сколько HR специалистов у вас?")}
	c, _, archiver, registry := setupController(t, gen)

	require.NoError(t, c.HandleStart(context.Background(), 100))
	require.NoError(t, c.HandleText(context.Background(), 100, "У нас компания 50 человек"))
	require.NoError(t, c.HandleText(context.Background(), 100, "Два HR специалиста"))
	require.NoError(t, c.HandleText(context.Background(), 100, "Ищем менеджеров по продажам"))

	view, ok := registry.View(100)
	require.True(t, ok)
	assert.Equal(t, 4, view.TurnCount)
	assert.Empty(t, archiver.archived)

	// Profile attributes extracted along the way
	profile, ok := registry.Profile(100)
	require.True(t, ok)
	assert.Equal(t, "50", profile["company_size"])
}

func TestController_TextBuildsFullHistory(t *testing.T) {
	gen := &fakeGenerator{fn: replyWith("ответ")}
	c, _, _, _ := setupController(t, gen)

	require.NoError(t, c.HandleStart(context.Background(), 100))
	require.NoError(t, c.HandleText(context.Background(), 100, "первое сообщение"))
	require.NoError(t, c.HandleText(context.Background(), 100, "второе сообщение"))

	// opener turn (user+assistant) + first exchange (user+assistant) + current
	require.Len(t, gen.calls, 3)
	last := gen.calls[2]
	require.Len(t, last, 5)
	assert.Equal(t, generator.RoleUser, last[0].Role)
	assert.Equal(t, "первое сообщение", last[2].Content)
	assert.Equal(t, generator.RoleAssistant, last[3].Role)
	assert.Equal(t, "второе сообщение", last[4].Content)
}

func TestController_ExplicitStopFinishes(t *testing.T) {
	gen := &fakeGenerator{fn: replyWith("Добрый день!")}
	c, sender, archiver, registry := setupController(t, gen)

	require.NoError(t, c.HandleStart(context.Background(), 100))
	require.NoError(t, c.HandleText(context.Background(), 100, "стоп"))

	_, ok := registry.View(100)
	assert.False(t, ok)

	require.Len(t, archiver.archived, 1)
	assert.Equal(t, session.ReasonUserStop, archiver.archived[0].Reason)
	assert.Equal(t, finishedText, sender.last())

	// No generator call for the stop message itself
	assert.Len(t, gen.calls, 1)
}

func TestController_TerminationPhraseFinishes(t *testing.T) {
	replies := []string{
		"Добрый день! Чем занимаетесь?",
		"Отлично, тогда оформляем доступ!",
	}
	gen := &fakeGenerator{fn: func([]generator.Message) (*generator.Reply, error) {
		r := replies[0]
		replies = replies[1:]
		return &generator.Reply{Text: r}, nil
	}}
	c, sender, archiver, registry := setupController(t, gen)

	require.NoError(t, c.HandleStart(context.Background(), 100))
	require.NoError(t, c.HandleText(context.Background(), 100, "Готовы попробовать"))

	_, ok := registry.View(100)
	assert.False(t, ok)

	require.Len(t, archiver.archived, 1)
	assert.Equal(t, session.ReasonTermination, archiver.archived[0].Reason)
	// Closing reply went out, then the feedback prompt
	require.GreaterOrEqual(t, len(sender.sent), 2)
	assert.Equal(t, "Отлично, тогда оформляем доступ!", sender.sent[len(sender.sent)-2])
	assert.Equal(t, successText, sender.last())

	// The final turn made it into the snapshot before archival
	require.Len(t, archiver.archived[0].Turns, 2)
	assert.Equal(t, "Готовы попробовать", archiver.archived[0].Turns[1].UserText)
}

func TestController_GeneratorFailureKeepsSessionOpen(t *testing.T) {
	gen := &fakeGenerator{fn: replyWith("Добрый день!")}
	c, sender, _, registry := setupController(t, gen)

	require.NoError(t, c.HandleStart(context.Background(), 100))

	gen.fn = func([]generator.Message) (*generator.Reply, error) {
		return nil, fmt.Errorf("upstream timeout")
	}
	require.NoError(t, c.HandleText(context.Background(), 100, "вопрос"))

	assert.Equal(t, apologyText, sender.last())

	view, ok := registry.View(100)
	require.True(t, ok)
	// The failed exchange left no turn behind
	assert.Equal(t, 1, view.TurnCount)
}

func TestController_TextWithoutSession(t *testing.T) {
	gen := &fakeGenerator{fn: replyWith("x")}
	c, sender, _, _ := setupController(t, gen)

	require.NoError(t, c.HandleText(context.Background(), 100, "привет"))
	assert.Equal(t, pleaseStartText, sender.last())
	assert.Empty(t, gen.calls)
}

func TestController_FeedbackAfterFinish(t *testing.T) {
	gen := &fakeGenerator{fn: replyWith("Добрый день!")}
	c, sender, archiver, _ := setupController(t, gen)

	require.NoError(t, c.HandleStart(context.Background(), 100))
	require.NoError(t, c.HandleStop(context.Background(), 100))

	// First message after finishing is captured as feedback
	require.NoError(t, c.HandleText(context.Background(), 100, "Бот продавал убедительно"))
	assert.Equal(t, []string{"Бот продавал убедительно"}, archiver.feedback)
	assert.Equal(t, feedbackThanksText, sender.last())

	// The next one is an ordinary no-session message
	require.NoError(t, c.HandleText(context.Background(), 100, "еще отзыв"))
	assert.Len(t, archiver.feedback, 1)
	assert.Equal(t, pleaseStartText, sender.last())
}

func TestController_StopIdempotent(t *testing.T) {
	gen := &fakeGenerator{fn: replyWith("Добрый день!")}
	c, sender, archiver, _ := setupController(t, gen)

	require.NoError(t, c.HandleStop(context.Background(), 100))
	assert.Equal(t, finishedText, sender.last())
	assert.Empty(t, archiver.archived)

	require.NoError(t, c.HandleStart(context.Background(), 100))
	require.NoError(t, c.HandleStop(context.Background(), 100))
	require.NoError(t, c.HandleStop(context.Background(), 100))
	assert.Len(t, archiver.archived, 1)
}

func TestController_ResetSkipsFeedback(t *testing.T) {
	gen := &fakeGenerator{fn: replyWith("Добрый день!")}
	c, sender, archiver, registry := setupController(t, gen)

	require.NoError(t, c.HandleStart(context.Background(), 100))
	require.NoError(t, c.HandleReset(context.Background(), 100))

	_, ok := registry.View(100)
	assert.False(t, ok)
	require.Len(t, archiver.archived, 1)
	assert.Equal(t, session.ReasonForced, archiver.archived[0].Reason)
	assert.Equal(t, resetText, sender.last())

	// No feedback round armed after reset
	require.NoError(t, c.HandleText(context.Background(), 100, "отзыв"))
	assert.Empty(t, archiver.feedback)
	assert.Equal(t, pleaseStartText, sender.last())
}

func TestController_ArchiveFailureSkipsFeedbackRound(t *testing.T) {
	gen := &fakeGenerator{fn: replyWith("Добрый день!")}
	c, sender, archiver, _ := setupController(t, gen)
	archiver.fail = true

	require.NoError(t, c.HandleStart(context.Background(), 100))
	require.NoError(t, c.HandleStop(context.Background(), 100))
	assert.Equal(t, finishedText, sender.last())

	// With no archive on disk there is nothing to attach feedback to
	require.NoError(t, c.HandleText(context.Background(), 100, "отзыв"))
	assert.Empty(t, archiver.feedback)
	assert.Equal(t, pleaseStartText, sender.last())
}

func TestController_ConcurrentUsersDoNotBlockEachOther(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	gen := &fakeGenerator{}
	gen.fn = func(history []generator.Message) (*generator.Reply, error) {
		if history[len(history)-1].Content == "медленный вопрос" {
			close(started)
			<-release
		}
		return &generator.Reply{Text: "ответ"}, nil
	}
	c, _, _, registry := setupController(t, gen)

	require.NoError(t, c.HandleStart(context.Background(), 1))
	require.NoError(t, c.HandleStart(context.Background(), 2))

	// Park user 1 inside their generator call
	slowDone := make(chan struct{})
	go func() {
		_ = c.HandleText(context.Background(), 1, "медленный вопрос")
		close(slowDone)
	}()
	<-started

	// User 2's full turn completes while user 1 is still mid-generation
	fastDone := make(chan struct{})
	go func() {
		_ = c.HandleText(context.Background(), 2, "обычный вопрос")
		close(fastDone)
	}()

	select {
	case <-fastDone:
	case <-time.After(2 * time.Second):
		t.Fatal("second user's turn waited on the first user's generator call")
	}

	view, ok := registry.View(2)
	require.True(t, ok)
	assert.Equal(t, 2, view.TurnCount)

	// User 1's turn has not landed yet
	view, ok = registry.View(1)
	require.True(t, ok)
	assert.Equal(t, 1, view.TurnCount)

	close(release)
	<-slowDone

	view, ok = registry.View(1)
	require.True(t, ok)
	assert.Equal(t, 2, view.TurnCount)
}

func TestController_StatusAndProfileAndHistory(t *testing.T) {
	gen := &fakeGenerator{fn: replyWith("Сколько человек в компании?")}
	c, sender, _, _ := setupController(t, gen)

	require.NoError(t, c.HandleStatus(context.Background(), 100))
	assert.Equal(t, noSessionText, sender.last())
	require.NoError(t, c.HandleProfile(context.Background(), 100))
	assert.Equal(t, emptyProfileText, sender.last())
	require.NoError(t, c.HandleHistory(context.Background(), 100))
	assert.Equal(t, emptyHistoryText, sender.last())

	require.NoError(t, c.HandleStart(context.Background(), 100))
	require.NoError(t, c.HandleText(context.Background(), 100, "Нас 30 человек"))

	require.NoError(t, c.HandleStatus(context.Background(), 100))
	assert.Contains(t, sender.last(), "Количество сообщений: 2")

	require.NoError(t, c.HandleProfile(context.Background(), 100))
	assert.Contains(t, sender.last(), "company_size: 30")

	require.NoError(t, c.HandleHistory(context.Background(), 100))
	assert.Contains(t, sender.last(), "Нас 30 человек")
}
