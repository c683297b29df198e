// Package processor runs inbound events through the reply pipeline:
// loop guards, the idempotency lock, context assembly, generation and
// dispatch. Failures downstream of the webhook are logged and absorbed
// so Meta never sees an error and retries a half-processed event.
package processor

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Pbezama/admin-panel-back/internal/events"
	"github.com/Pbezama/admin-panel-back/internal/generation"
	"github.com/Pbezama/admin-panel-back/internal/guard"
	"github.com/Pbezama/admin-panel-back/internal/knowledge"
	"github.com/Pbezama/admin-panel-back/internal/store"
	"github.com/Pbezama/admin-panel-back/pkg/logging"
)

// Repository is the slice of the store the pipeline needs.
type Repository interface {
	GetAccountByEntryID(ctx context.Context, entryID string) (*store.Account, error)
	Claim(ctx context.Context, eventID, brandID, platform string) bool
	InsertCommentLog(ctx context.Context, l store.CommentLog) error
}

// ContextAssembler builds the brand context fed to generation.
type ContextAssembler interface {
	Assemble(ctx context.Context, brandID string) (*knowledge.BrandContext, error)
}

// GraphAPI is the outbound Meta surface the pipeline uses.
type GraphAPI interface {
	GetPostCaption(ctx context.Context, mediaID, token string) string
	ReplyToInstagramComment(ctx context.Context, commentID, message, token string) (string, error)
	ReplyToFacebookComment(ctx context.Context, commentID, message, token string) (string, error)
	SendDirectMessage(ctx context.Context, recipientID, message, token string) (string, error)
	HideComment(ctx context.Context, commentID, token string) error
}

// ApprovalFlow handles publication detection and WhatsApp decisions.
type ApprovalFlow interface {
	HandlePublication(ctx context.Context, ev events.PublicationEvent, account *store.Account) error
	Decide(ctx context.Context, ev events.ApprovalReplyEvent) error
}

// Metrics groups the pipeline's Prometheus collectors. A nil Metrics
// disables instrumentation, which tests rely on.
type Metrics struct {
	Events    *prometheus.CounterVec
	Dropped   *prometheus.CounterVec
	Duration  *prometheus.HistogramVec
	Replies   *prometheus.CounterVec
	Decisions *prometheus.CounterVec
}

func (m *Metrics) event(platform, kind string) {
	if m != nil && m.Events != nil {
		m.Events.WithLabelValues(platform, kind).Inc()
	}
}

func (m *Metrics) drop(platform, reason string) {
	if m != nil && m.Dropped != nil {
		m.Dropped.WithLabelValues(platform, reason).Inc()
	}
}

func (m *Metrics) observe(kind string, start time.Time) {
	if m != nil && m.Duration != nil {
		m.Duration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) reply(channel, status string) {
	if m != nil && m.Replies != nil {
		m.Replies.WithLabelValues(channel, status).Inc()
	}
}

func (m *Metrics) decision(decision string) {
	if m != nil && m.Decisions != nil {
		m.Decisions.WithLabelValues(decision).Inc()
	}
}

// Processor is the event pipeline.
type Processor struct {
	repo      Repository
	guard     *guard.Guard
	assembler ContextAssembler
	generator generation.Generator
	graph     GraphAPI
	approval  ApprovalFlow
	metrics   *Metrics
	logger    logging.Logger
}

// New wires the pipeline. metrics may be nil.
func New(repo Repository, g *guard.Guard, assembler ContextAssembler, gen generation.Generator, api GraphAPI, flow ApprovalFlow, metrics *Metrics, logger logging.Logger) *Processor {
	return &Processor{
		repo:      repo,
		guard:     g,
		assembler: assembler,
		generator: gen,
		graph:     api,
		approval:  flow,
		metrics:   metrics,
		logger:    logger,
	}
}

// Process routes a normalized event to its pipeline. It never returns
// an error; the webhook always acknowledges.
func (p *Processor) Process(ctx context.Context, ev events.InboundEvent) {
	start := time.Now()
	defer p.metrics.observe(string(ev.EventKind()), start)

	switch e := ev.(type) {
	case events.CommentEvent:
		p.metrics.event(string(e.Platform), string(e.EventKind()))
		p.processComment(ctx, e)
	case events.DirectMessageEvent:
		p.metrics.event(string(e.Platform), string(e.EventKind()))
		p.processDirectMessage(ctx, e)
	case events.PublicationEvent:
		p.metrics.event(string(e.Platform), string(e.EventKind()))
		p.processPublication(ctx, e)
	case events.ApprovalReplyEvent:
		p.metrics.event("whatsapp", string(e.EventKind()))
		p.processApprovalReply(ctx, e)
	default:
		p.logger.WithField("kind", ev.EventKind()).Warn("Unhandled event kind")
	}
}

func (p *Processor) processComment(ctx context.Context, ev events.CommentEvent) {
	platform := string(ev.Platform)
	log := p.logger.WithFields(logging.Fields{
		"platform":   platform,
		"comment_id": ev.CommentID,
		"actor_id":   ev.ActorID,
	})

	if p.guard.IsOwnAccount(ev.ActorID) {
		p.metrics.drop(platform, "own_account")
		log.Debug("Comment from connected account, skipping")
		return
	}
	if p.guard.IsBotReply(ctx, ev.CommentID) {
		p.metrics.drop(platform, "bot_reply")
		log.Debug("Comment is one of our own replies, skipping")
		return
	}
	if guard.IsLowSignal(ev.Text) {
		p.metrics.drop(platform, "low_signal")
		log.Debug("Low-signal comment, skipping")
		return
	}
	if p.guard.IsDuplicate(ctx, ev.CommentID) {
		p.metrics.drop(platform, "duplicate")
		log.Debug("Comment already seen, skipping")
		return
	}

	account, err := p.repo.GetAccountByEntryID(ctx, ev.PageID)
	if err != nil {
		log.WithError(err).Error("Account lookup failed")
		return
	}
	if account == nil {
		p.metrics.drop(platform, "unknown_account")
		log.Debug("No connected account for entry, skipping")
		return
	}
	brandID := account.BrandID()

	if !p.repo.Claim(ctx, ev.CommentID, brandID, platform) {
		p.metrics.drop(platform, "locked")
		log.Debug("Another worker claimed this comment")
		return
	}
	p.guard.MarkProcessed(ctx, ev.CommentID)

	token := account.AccessToken.String
	postDescription := p.graph.GetPostCaption(ctx, ev.MediaID, token)

	bc, err := p.assembler.Assemble(ctx, brandID)
	if err != nil {
		log.WithError(err).Warn("Context assembly failed, using fallback reply")
		bc = nil
	}

	decision := p.generator.CommentReply(ctx, bc, postDescription, ev.Text)

	entry := store.CommentLog{
		BrandID:          brandID,
		BrandName:        account.DisplayName(),
		Plataforma:       platform,
		CommentID:        ev.CommentID,
		SenderID:         ev.ActorID,
		MediaID:          ev.MediaID,
		TextoPublicacion: postDescription,
		Comentario:       ev.Text,
		EsInapropiado:    decision.EsInapropiado,
		RazonInapropiado: decision.RazonInapropiado,
		Respuesta:        decision.RespuestaComentario,
		MensajeInbox:     decision.MensajeInbox,
	}

	if decision.EsInapropiado {
		if err := p.graph.HideComment(ctx, ev.CommentID, token); err != nil {
			log.WithError(err).Warn("Failed to hide inappropriate comment")
		} else {
			log.WithField("reason", decision.RazonInapropiado).Info("Inappropriate comment hidden")
		}
		p.metrics.reply("comment", "hidden")
		p.insertLog(ctx, entry, log)
		return
	}

	if decision.RespuestaComentario != "" {
		replyID, err := p.replyToComment(ctx, ev, decision.RespuestaComentario, token)
		if err != nil {
			p.metrics.reply("comment", "error")
			log.WithError(err).Warn("Failed to post public reply")
		} else {
			p.guard.MarkBotReply(ctx, replyID)
			entry.RespuestaEnviada = true
			p.metrics.reply("comment", "sent")
			log.WithField("reply_id", replyID).Info("Public reply posted")
		}
	}

	if decision.MensajeInbox != "" {
		if _, err := p.graph.SendDirectMessage(ctx, ev.ActorID, decision.MensajeInbox, token); err != nil {
			p.metrics.reply("dm", "error")
			log.WithError(err).Warn("Failed to send follow-up DM")
		} else {
			entry.DMEnviado = true
			p.metrics.reply("dm", "sent")
		}
	}

	p.insertLog(ctx, entry, log)
}

func (p *Processor) replyToComment(ctx context.Context, ev events.CommentEvent, message, token string) (string, error) {
	if ev.Platform == events.PlatformFacebook {
		return p.graph.ReplyToFacebookComment(ctx, ev.CommentID, message, token)
	}
	return p.graph.ReplyToInstagramComment(ctx, ev.CommentID, message, token)
}

func (p *Processor) insertLog(ctx context.Context, entry store.CommentLog, log logging.Entry) {
	if err := p.repo.InsertCommentLog(ctx, entry); err != nil {
		log.WithError(err).Warn("Failed to record comment log")
	}
}

func (p *Processor) processDirectMessage(ctx context.Context, ev events.DirectMessageEvent) {
	platform := string(ev.Platform)
	log := p.logger.WithFields(logging.Fields{
		"platform":  platform,
		"sender_id": ev.SenderID,
	})

	if p.guard.IsOwnAccount(ev.SenderID) {
		p.metrics.drop(platform, "own_account")
		return
	}
	if guard.IsLowSignal(ev.Text) {
		p.metrics.drop(platform, "low_signal")
		return
	}

	account, err := p.repo.GetAccountByEntryID(ctx, ev.PageID)
	if err != nil {
		log.WithError(err).Error("Account lookup failed")
		return
	}
	if account == nil {
		p.metrics.drop(platform, "unknown_account")
		return
	}

	bc, err := p.assembler.Assemble(ctx, account.BrandID())
	if err != nil {
		log.WithError(err).Warn("Context assembly failed, using fallback reply")
		bc = nil
	}

	reply := p.generator.DMReply(ctx, bc, ev.SenderID, ev.Text)
	if reply == "" {
		return
	}

	if _, err := p.graph.SendDirectMessage(ctx, ev.SenderID, reply, account.AccessToken.String); err != nil {
		p.metrics.reply("dm", "error")
		log.WithError(err).Warn("Failed to send DM reply")
		return
	}
	p.metrics.reply("dm", "sent")
	log.Info("DM reply sent")
}

func (p *Processor) processPublication(ctx context.Context, ev events.PublicationEvent) {
	log := p.logger.WithFields(logging.Fields{
		"platform": string(ev.Platform),
		"post_id":  ev.PostID,
	})

	account, err := p.repo.GetAccountByEntryID(ctx, ev.PageID)
	if err != nil {
		log.WithError(err).Error("Account lookup failed")
		return
	}
	if account == nil {
		p.metrics.drop(string(ev.Platform), "unknown_account")
		log.Debug("Publication for unconnected account, skipping")
		return
	}

	if err := p.approval.HandlePublication(ctx, ev, account); err != nil {
		log.WithError(err).Error("Publication handling failed")
	}
}

func (p *Processor) processApprovalReply(ctx context.Context, ev events.ApprovalReplyEvent) {
	if err := p.approval.Decide(ctx, ev); err != nil {
		p.logger.WithError(err).WithField("from", ev.From).Error("Approval decision failed")
		return
	}
	p.metrics.decision(string(ev.Decision))
}
