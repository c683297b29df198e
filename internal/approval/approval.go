// Package approval implements the human-in-the-loop flow for detected
// publications: persist the rule, create an approval task, notify the
// assignee over WhatsApp, and apply their decision.
package approval

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Pbezama/admin-panel-back/internal/events"
	"github.com/Pbezama/admin-panel-back/internal/graph"
	"github.com/Pbezama/admin-panel-back/internal/store"
	"github.com/Pbezama/admin-panel-back/internal/whatsapp"
	"github.com/Pbezama/admin-panel-back/pkg/logging"
)

const (
	publicationExpiry  = 30 * 24 * time.Hour
	publicationRunes   = 500
	taskCaptionPreview = 200
)

// Repository is the slice of the store the approval flow needs.
type Repository interface {
	PublicationExists(ctx context.Context, brandID, postID string) (bool, error)
	InsertPublication(ctx context.Context, p store.PublicationRow) error
	ApprovePublication(ctx context.Context, postID string) (bool, error)
	RejectPublication(ctx context.Context, postID string) (bool, error)
	CreateTask(ctx context.Context, t store.Task) (int64, error)
	CompleteTask(ctx context.Context, id int64, estado string) (bool, error)
	MarkTaskModified(ctx context.Context, id int64) (bool, error)
	ResolveAssignee(ctx context.Context, account *store.Account) (*store.Assignee, error)
	SavePendingApproval(ctx context.Context, p store.PendingApproval) error
	GetPendingApproval(ctx context.Context, telefono string) (*store.PendingApproval, error)
	ClearPendingApproval(ctx context.Context, telefono string) error
}

// PostFetcher fetches post metadata from the Graph API.
type PostFetcher interface {
	GetPostDetails(ctx context.Context, postID, token string) (*graph.PostDetails, error)
}

// Notifier delivers approval requests and confirmations to a phone.
type Notifier interface {
	SendApprovalRequest(ctx context.Context, telefono, pageName string, taskID int64, post whatsapp.PostSummary) error
	SendText(ctx context.Context, telefono, mensaje string) error
}

// Manager drives the publication approval lifecycle.
type Manager struct {
	store        Repository
	posts        PostFetcher
	notifier     Notifier
	logger       logging.Logger
	dashboardURL string
	now          func() time.Time
}

// NewManager wires the approval flow. dashboardURL may be empty.
func NewManager(repo Repository, posts PostFetcher, notifier Notifier, dashboardURL string, logger logging.Logger) *Manager {
	return &Manager{
		store:        repo,
		posts:        posts,
		notifier:     notifier,
		logger:       logger,
		dashboardURL: dashboardURL,
		now:          time.Now,
	}
}

type feedFallback struct {
	Message string `json:"message"`
	Story   string `json:"story"`
	Link    string `json:"link"`
}

// HandlePublication processes a newly detected post. With a reachable
// assignee the rule is stored pending and an approval request goes out;
// without one the rule activates immediately. Steps after the rule
// insert are best effort: a failed task or notification leaves the rule
// pending for the dashboard to pick up.
func (m *Manager) HandlePublication(ctx context.Context, ev events.PublicationEvent, account *store.Account) error {
	brandID := account.BrandID()
	log := m.logger.WithFields(logging.Fields{
		"brand_id": brandID,
		"post_id":  ev.PostID,
	})

	exists, err := m.store.PublicationExists(ctx, brandID, ev.PostID)
	if err != nil {
		return fmt.Errorf("checking publication: %w", err)
	}
	if exists {
		log.Debug("Publication already registered, skipping")
		return nil
	}

	details := m.fetchDetails(ctx, ev, account)

	assignee, err := m.store.ResolveAssignee(ctx, account)
	if err != nil {
		log.WithError(err).Warn("Failed to resolve assignee, activating rule without approval")
		assignee = nil
	}

	approvalState := store.ApprovalPending
	if assignee == nil {
		approvalState = store.ApprovalActive
	}

	now := m.now()
	row := store.PublicationRow{
		BrandID:   brandID,
		BrandName: account.DisplayName(),
		PostID:    ev.PostID,
		Value:     publicationValue(details),
		Approval:  approvalState,
		Expiry:    now.Add(publicationExpiry),
		CreatedAt: now,
	}
	if err := m.store.InsertPublication(ctx, row); err != nil {
		return fmt.Errorf("storing publication: %w", err)
	}

	if assignee == nil {
		log.Info("No assignee with phone found, publication rule auto-activated")
		return nil
	}

	taskID, err := m.store.CreateTask(ctx, buildTask(account, assignee, ev, details))
	if err != nil {
		log.WithError(err).Warn("Failed to create approval task, rule stays pending")
		return nil
	}

	pending := store.PendingApproval{
		Telefono: assignee.Telefono,
		TareaID:  taskID,
		PostID:   ev.PostID,
	}
	if err := m.store.SavePendingApproval(ctx, pending); err != nil {
		log.WithError(err).Warn("Failed to record pending approval")
	}

	summary := whatsapp.PostSummary{
		MediaType: "unknown",
	}
	if details != nil {
		summary.Caption = details.Caption
		summary.MediaType = details.MediaType
		summary.Permalink = details.Permalink
	}
	if err := m.notifier.SendApprovalRequest(ctx, assignee.Telefono, account.DisplayName(), taskID, summary); err != nil {
		log.WithError(err).Warn("Failed to send approval request, rule stays pending")
		return nil
	}

	log.WithFields(logging.Fields{
		"task_id":  taskID,
		"assignee": assignee.Nombre,
	}).Info("Approval request sent")
	return nil
}

// fetchDetails asks the Graph API for post metadata, falling back to
// the webhook payload when the API call fails (common right after a
// post, or with expired tokens).
func (m *Manager) fetchDetails(ctx context.Context, ev events.PublicationEvent, account *store.Account) *graph.PostDetails {
	if account.AccessToken.Valid && account.AccessToken.String != "" {
		details, err := m.posts.GetPostDetails(ctx, ev.PostID, account.AccessToken.String)
		if err != nil {
			m.logger.WithError(err).WithField("post_id", ev.PostID).Warn("Graph API post lookup failed, using webhook payload")
		} else if details != nil {
			return details
		}
	}

	var fb feedFallback
	if len(ev.Raw) > 0 {
		if err := json.Unmarshal(ev.Raw, &fb); err != nil {
			m.logger.WithError(err).Debug("Could not parse publication payload")
		}
	}
	caption := fb.Message
	if caption == "" {
		caption = fb.Story
	}
	return &graph.PostDetails{
		PostID:    ev.PostID,
		Caption:   caption,
		MediaType: ev.ItemType,
		Permalink: fb.Link,
	}
}

func publicationValue(details *graph.PostDetails) string {
	if details == nil {
		return ""
	}
	value := details.Caption
	runes := []rune(value)
	if len(runes) > publicationRunes {
		value = string(runes[:publicationRunes]) + "..."
	}
	if details.Permalink != "" {
		value += "\n[Link: " + details.Permalink + "]"
	}
	return value
}

func buildTask(account *store.Account, assignee *store.Assignee, ev events.PublicationEvent, details *graph.PostDetails) store.Task {
	caption := ""
	permalink := ""
	mediaType := ev.ItemType
	if details != nil {
		caption = details.Caption
		permalink = details.Permalink
		if details.MediaType != "" {
			mediaType = details.MediaType
		}
	}
	runes := []rune(caption)
	if len(runes) > taskCaptionPreview {
		caption = string(runes[:taskCaptionPreview]) + "..."
	}
	if caption == "" {
		caption = "(sin descripción)"
	}

	descripcion := fmt.Sprintf(
		"Se detectó una nueva publicación en %s.\n\nDescripción: %s\nTipo: %s",
		account.DisplayName(), caption, mediaType,
	)
	if permalink != "" {
		descripcion += "\nLink: " + permalink
	}
	descripcion += "\n\nResponde por WhatsApp (Si/No/Modificar) o desde el dashboard."

	return store.Task{
		BrandID:        account.BrandID(),
		BrandName:      nullString(account.DisplayName()),
		Titulo:         "Nueva publicación detectada",
		Descripcion:    nullString(descripcion),
		Tipo:           "aprobacion_regla",
		Prioridad:      "alta",
		Estado:         store.TaskPending,
		AsignadoA:      nullInt64(assignee.ID),
		NombreAsignado: nullString(assignee.Nombre),
	}
}

// Decide applies a WhatsApp reply to the sender's outstanding approval.
// Free-text replies carry no task id and resolve through the pending
// approval record for that phone.
func (m *Manager) Decide(ctx context.Context, ev events.ApprovalReplyEvent) error {
	log := m.logger.WithFields(logging.Fields{
		"from":     ev.From,
		"decision": string(ev.Decision),
	})

	pending, err := m.store.GetPendingApproval(ctx, ev.From)
	if err != nil {
		return fmt.Errorf("looking up pending approval: %w", err)
	}
	if pending == nil {
		log.Debug("Reply without outstanding approval")
		return m.notifier.SendText(ctx, ev.From, "No encontré ninguna aprobación pendiente para ti. Puedes revisar tus tareas en el dashboard.")
	}

	taskID := ev.TaskID
	if taskID == 0 {
		taskID = pending.TareaID
	}

	switch ev.Decision {
	case events.DecisionApprove:
		activated, err := m.store.ApprovePublication(ctx, pending.PostID)
		if err != nil {
			return fmt.Errorf("approving publication: %w", err)
		}
		if _, err := m.store.CompleteTask(ctx, taskID, store.TaskApproved); err != nil {
			log.WithError(err).Warn("Failed to close approval task")
		}
		if err := m.store.ClearPendingApproval(ctx, ev.From); err != nil {
			log.WithError(err).Warn("Failed to clear pending approval")
		}
		if !activated {
			log.Warn("Approval received but publication was not pending")
		}
		log.WithField("task_id", taskID).Info("Publication rule approved")
		return m.notifier.SendText(ctx, ev.From, "✅ Regla aprobada. Las respuestas automáticas para esta publicación quedan activas.")

	case events.DecisionReject:
		if _, err := m.store.RejectPublication(ctx, pending.PostID); err != nil {
			return fmt.Errorf("rejecting publication: %w", err)
		}
		if _, err := m.store.CompleteTask(ctx, taskID, store.TaskRejected); err != nil {
			log.WithError(err).Warn("Failed to close approval task")
		}
		if err := m.store.ClearPendingApproval(ctx, ev.From); err != nil {
			log.WithError(err).Warn("Failed to clear pending approval")
		}
		log.WithField("task_id", taskID).Info("Publication rule rejected")
		return m.notifier.SendText(ctx, ev.From, "❌ Regla rechazada. No se responderá automáticamente a esta publicación.")

	case events.DecisionModify:
		if _, err := m.store.MarkTaskModified(ctx, taskID); err != nil {
			log.WithError(err).Warn("Failed to mark task as modified")
		}
		mensaje := "✏️ Puedes editar la regla desde el dashboard. La aprobación sigue pendiente hasta que decidas."
		if m.dashboardURL != "" {
			mensaje += "\n" + m.dashboardURL
		}
		log.WithField("task_id", taskID).Info("Publication rule sent to edit")
		return m.notifier.SendText(ctx, ev.From, mensaje)
	}

	log.Warn("Unknown approval decision")
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(n int64) sql.NullInt64 {
	return sql.NullInt64{Int64: n, Valid: n != 0}
}
