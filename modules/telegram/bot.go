package telegram

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/legendx/enhancebot/common/model"
)

// Per-user and global dispatch limits. The Bot API throttles around 30
// messages per second overall and one per second per chat.
const (
	globalRate  = rate.Limit(30)
	globalBurst = 30
	userRate    = rate.Limit(1)
	userBurst   = 3
)

// Bot runs the long-poll loop and routes updates to the orchestrator.
// Each update is handled on its own goroutine so one user's CPU-bound
// enhancement never stalls the dispatch of other conversations.
type Bot struct {
	api *tgbotapi.BotAPI
	svc *Service
	log zerolog.Logger

	globalLimiter *rate.Limiter
	userLimiters  map[int64]*rate.Limiter
	limitersMu    sync.Mutex

	wg sync.WaitGroup
}

// NewBot wires the update loop around an authorized bot connection and the
// orchestrator service.
func NewBot(api *tgbotapi.BotAPI, svc *Service, log zerolog.Logger) *Bot {
	return &Bot{
		api:           api,
		svc:           svc,
		log:           log,
		globalLimiter: rate.NewLimiter(globalRate, globalBurst),
		userLimiters:  make(map[int64]*rate.Limiter),
	}
}

// Run consumes updates until ctx is canceled, then waits for in-flight
// handlers to finish. In-flight work is never canceled mid-enhancement; a
// handler whose destination disappeared fails softly inside the service.
func (b *Bot) Run(ctx context.Context) error {
	b.log.Info().Str("username", b.api.Self.UserName).Msg("bot started")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "callback_query"}
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			b.log.Info().Msg("bot stopped")
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return nil
			}
			b.dispatch(ctx, update)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		if cb.Data != checkMembershipCallback || cb.Message == nil {
			return
		}
		if !b.allow(cb.From.ID) {
			b.log.Debug().Int64("user_id", cb.From.ID).Msg("callback rate limited")
			return
		}
		ref := model.MessageRef{ChatID: cb.Message.Chat.ID, MessageID: cb.Message.MessageID}
		b.spawn(func() {
			b.svc.HandleCheckCallback(ctx, cb.ID, cb.From.ID, ref)
		})

	case update.Message != nil:
		msg := update.Message
		if msg.From == nil {
			return
		}
		if !b.allow(msg.From.ID) {
			b.log.Debug().Int64("user_id", msg.From.ID).Msg("message rate limited")
			return
		}

		switch {
		case msg.IsCommand():
			if msg.Command() == "start" {
				chatID := msg.Chat.ID
				b.spawn(func() { b.svc.HandleStart(chatID) })
			}
		case len(msg.Photo) > 0:
			// Largest rendition is last.
			photo := msg.Photo[len(msg.Photo)-1]
			sub := model.PhotoSubmission{
				ChatID:    msg.Chat.ID,
				UserID:    msg.From.ID,
				FileID:    photo.FileID,
				MessageID: msg.MessageID,
			}
			b.spawn(func() { b.svc.HandlePhoto(ctx, sub) })
		case msg.Text != "":
			chatID := msg.Chat.ID
			b.spawn(func() { b.svc.HandleText(chatID) })
		}
	}
}

// spawn runs fn on its own goroutine; a panic in a handler is logged and
// absorbed so the dispatcher never dies with the process.
func (b *Bot) spawn(fn func()) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				b.log.Error().Interface("panic", r).Msg("handler panicked")
			}
		}()
		fn()
	}()
}

// allow applies the global and per-user dispatch limits.
func (b *Bot) allow(userID int64) bool {
	if !b.globalLimiter.Allow() {
		return false
	}
	b.limitersMu.Lock()
	lim, ok := b.userLimiters[userID]
	if !ok {
		lim = rate.NewLimiter(userRate, userBurst)
		b.userLimiters[userID] = lim
	}
	b.limitersMu.Unlock()
	return lim.Allow()
}
