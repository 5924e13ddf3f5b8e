package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/legendx/enhancebot/common/model"
	"github.com/legendx/enhancebot/metrics"
	"github.com/legendx/enhancebot/modules/verify"
)

// User-visible texts, kept together so the copy stays consistent.
const (
	welcomeTextFmt = "👋 *Welcome to LEGEND EXPERT ✨*\n\n" +
		"Professional AI Photo Enhancement Bot\n\n" +
		"🔔 Join our channel first:\n%s\n\n" +
		"After joining, press *I've Joined — Check*"
	promptText    = "📸 Send a photo to enhance.\nUse /start if needed."
	rejectText    = "❌ Please join the channel first and verify."
	progressText  = "⏳ Enhancing your photo, please wait..."
	failedText    = "❌ Enhancement failed."
	captionText   = "✨ Enhanced by LEGEND EXPERT"
	verifiedText  = "✅ Verified!\nSend a photo and LEGEND EXPERT will enhance it ✨"
	joinFirstText = "❌ Please join the channel first."
)

// MembershipChecker is the oracle the orchestrator consults on cache misses.
type MembershipChecker interface {
	CheckMembership(ctx context.Context, channel string, userID int64) model.MembershipCheck
}

// Enhancer produces enhanced bytes for a submission.
type Enhancer interface {
	Enhance(ctx context.Context, data []byte) (model.EnhancementOutcome, error)
}

// Service orchestrates one photo submission end to end: verification gate,
// file fetch, enhancement, delivery. Every failure terminates in a
// user-visible message; nothing propagates to the dispatch loop.
type Service struct {
	api      ChatAPI
	cache    *verify.Cache
	oracle   MembershipChecker
	enhancer Enhancer
	channel  string
	ttl      time.Duration
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

// NewService wires the orchestrator.
func NewService(api ChatAPI, cache *verify.Cache, oracle MembershipChecker, enhancer Enhancer,
	channel string, ttl time.Duration, m *metrics.Metrics, log zerolog.Logger) *Service {
	return &Service{
		api:      api,
		cache:    cache,
		oracle:   oracle,
		enhancer: enhancer,
		channel:  channel,
		ttl:      ttl,
		metrics:  m,
		log:      log,
	}
}

// HandleStart answers /start with the welcome message and join keyboard.
func (s *Service) HandleStart(chatID int64) {
	kb := joinKeyboard(s.channel)
	text := fmt.Sprintf(welcomeTextFmt, channelURL(s.channel))
	if _, err := s.api.SendText(chatID, text, &kb); err != nil {
		s.log.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to send welcome")
	}
}

// HandleText answers free-form text with a prompt to send a photo.
func (s *Service) HandleText(chatID int64) {
	if _, err := s.api.SendText(chatID, promptText, nil); err != nil {
		s.log.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to send prompt")
	}
}

// HandleCheckCallback re-runs the membership check from the verify button and
// edits the prompt message with the verdict. The callback is answered first
// so the client stops its spinner regardless of the outcome.
func (s *Service) HandleCheckCallback(ctx context.Context, callbackID string, userID int64, ref model.MessageRef) {
	if err := s.api.AnswerCallback(callbackID); err != nil {
		s.log.Debug().Err(err).Msg("failed to answer callback")
	}

	check := s.oracle.CheckMembership(ctx, s.channel, userID)
	s.metrics.MembershipChecks.WithLabelValues(check.State.String()).Inc()

	text := joinFirstText
	if check.Verified() {
		s.cache.MarkVerified(userID, s.ttl)
		text = verifiedText
	}
	if err := s.api.EditText(ref, text); err != nil {
		s.log.Debug().Err(err).Int64("user_id", userID).Msg("failed to edit verification verdict")
	}
}

// HandlePhoto runs the per-submission state machine:
// verification gate → fetch → enhance → deliver. Terminal failures produce a
// user-visible message and return normally.
func (s *Service) HandlePhoto(ctx context.Context, sub model.PhotoSubmission) {
	log := s.log.With().
		Str("request_id", uuid.NewString()).
		Int64("user_id", sub.UserID).
		Int64("chat_id", sub.ChatID).
		Logger()

	if !s.cache.IsVerified(sub.UserID) {
		check := s.oracle.CheckMembership(ctx, s.channel, sub.UserID)
		s.metrics.MembershipChecks.WithLabelValues(check.State.String()).Inc()
		if !check.Verified() {
			log.Info().Str("result", check.State.String()).Msg("submission rejected")
			kb := joinKeyboard(s.channel)
			if _, err := s.api.SendText(sub.ChatID, rejectText, &kb); err != nil {
				log.Warn().Err(err).Msg("failed to send rejection")
			}
			return
		}
		s.cache.MarkVerified(sub.UserID, s.ttl)
	}

	s.metrics.PhotosReceived.Inc()

	// Cosmetic progress placeholder; must be resolved on every terminal path.
	placeholder, phErr := s.api.SendText(sub.ChatID, progressText, nil)
	if phErr != nil {
		log.Debug().Err(phErr).Msg("failed to send progress placeholder")
	}

	data, err := s.api.DownloadFile(ctx, sub.FileID)
	if err != nil {
		log.Warn().Err(err).Msg("photo download failed")
		s.metrics.Enhancements.WithLabelValues("failed").Inc()
		s.failPlaceholder(placeholder, phErr, sub.ChatID, log)
		return
	}

	outcome, err := s.enhancer.Enhance(ctx, data)
	if err != nil {
		log.Warn().Err(err).Msg("enhancement failed")
		s.metrics.Enhancements.WithLabelValues("failed").Inc()
		s.failPlaceholder(placeholder, phErr, sub.ChatID, log)
		return
	}
	s.metrics.Enhancements.WithLabelValues(string(outcome.Source)).Inc()

	if err := s.api.SendPhoto(sub.ChatID, outcome.Data, captionText); err != nil {
		// Best-effort delivery: log and resolve the placeholder, no retry.
		log.Warn().Err(err).Msg("delivery failed")
		s.metrics.DeliveryFailures.Inc()
		s.failPlaceholder(placeholder, phErr, sub.ChatID, log)
		return
	}

	if phErr == nil {
		if err := s.api.DeleteMessage(placeholder); err != nil {
			log.Debug().Err(err).Msg("failed to delete progress placeholder")
		}
	}
	log.Info().Str("source", string(outcome.Source)).Msg("photo enhanced")
}

// failPlaceholder resolves the progress message on a failure path. When the
// placeholder itself was never sent, the failure text is sent fresh.
func (s *Service) failPlaceholder(placeholder model.MessageRef, phErr error, chatID int64, log zerolog.Logger) {
	if phErr != nil {
		if _, err := s.api.SendText(chatID, failedText, nil); err != nil {
			log.Debug().Err(err).Msg("failed to send failure notice")
		}
		return
	}
	if err := s.api.EditText(placeholder, failedText); err != nil {
		log.Debug().Err(err).Msg("failed to edit progress placeholder")
	}
}
