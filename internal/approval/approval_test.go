package approval

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"

	"github.com/Pbezama/admin-panel-back/internal/events"
	"github.com/Pbezama/admin-panel-back/internal/graph"
	"github.com/Pbezama/admin-panel-back/internal/store"
	"github.com/Pbezama/admin-panel-back/internal/whatsapp"
	"github.com/Pbezama/admin-panel-back/pkg/logging"
)

type stubRepo struct {
	existing map[string]bool
	assignee *store.Assignee
	pending  *store.PendingApproval

	insertedPublication *store.PublicationRow
	createdTask         *store.Task
	savedPending        *store.PendingApproval
	approvedPost        string
	rejectedPost        string
	completedTask       int64
	completedEstado     string
	modifiedTask        int64
	clearedPhone        string
}

func (r *stubRepo) PublicationExists(ctx context.Context, brandID, postID string) (bool, error) {
	return r.existing[postID], nil
}

func (r *stubRepo) InsertPublication(ctx context.Context, p store.PublicationRow) error {
	r.insertedPublication = &p
	return nil
}

func (r *stubRepo) ApprovePublication(ctx context.Context, postID string) (bool, error) {
	r.approvedPost = postID
	return true, nil
}

func (r *stubRepo) RejectPublication(ctx context.Context, postID string) (bool, error) {
	r.rejectedPost = postID
	return true, nil
}

func (r *stubRepo) CreateTask(ctx context.Context, t store.Task) (int64, error) {
	r.createdTask = &t
	return 42, nil
}

func (r *stubRepo) CompleteTask(ctx context.Context, id int64, estado string) (bool, error) {
	r.completedTask = id
	r.completedEstado = estado
	return true, nil
}

func (r *stubRepo) MarkTaskModified(ctx context.Context, id int64) (bool, error) {
	r.modifiedTask = id
	return true, nil
}

func (r *stubRepo) ResolveAssignee(ctx context.Context, account *store.Account) (*store.Assignee, error) {
	return r.assignee, nil
}

func (r *stubRepo) SavePendingApproval(ctx context.Context, p store.PendingApproval) error {
	r.savedPending = &p
	return nil
}

func (r *stubRepo) GetPendingApproval(ctx context.Context, telefono string) (*store.PendingApproval, error) {
	return r.pending, nil
}

func (r *stubRepo) ClearPendingApproval(ctx context.Context, telefono string) error {
	r.clearedPhone = telefono
	return nil
}

type stubPosts struct {
	details *graph.PostDetails
}

func (p *stubPosts) GetPostDetails(ctx context.Context, postID, token string) (*graph.PostDetails, error) {
	return p.details, nil
}

type stubNotifier struct {
	approvalPhone  string
	approvalTaskID int64
	approvalPost   whatsapp.PostSummary
	texts          []string
}

func (n *stubNotifier) SendApprovalRequest(ctx context.Context, telefono, pageName string, taskID int64, post whatsapp.PostSummary) error {
	n.approvalPhone = telefono
	n.approvalTaskID = taskID
	n.approvalPost = post
	return nil
}

func (n *stubNotifier) SendText(ctx context.Context, telefono, mensaje string) error {
	n.texts = append(n.texts, mensaje)
	return nil
}

func testAccount() *store.Account {
	return &store.Account{
		ID:          1,
		PageID:      "page_1",
		PageName:    sql.NullString{String: "Tienda Luna", Valid: true},
		InstagramID: sql.NullString{String: "ig_1", Valid: true},
		AccessToken: sql.NullString{String: "tok", Valid: true},
		Activo:      true,
	}
}

func newTestManager(repo *stubRepo, posts *stubPosts, notifier *stubNotifier) *Manager {
	return NewManager(repo, posts, notifier, "https://panel.example.com", logging.NewLogger())
}

func TestHandlePublicationWithAssignee(t *testing.T) {
	repo := &stubRepo{
		existing: map[string]bool{},
		assignee: &store.Assignee{ID: 7, Nombre: "Pedro", Telefono: "56911112222"},
	}
	posts := &stubPosts{details: &graph.PostDetails{
		PostID:    "post_1",
		Caption:   "Liquidación de invierno",
		MediaType: "IMAGE",
		Permalink: "https://instagram.com/p/abc",
	}}
	notifier := &stubNotifier{}
	m := newTestManager(repo, posts, notifier)

	ev := events.PublicationEvent{Platform: events.PlatformInstagram, PostID: "post_1", PageID: "page_1"}
	if err := m.HandlePublication(context.Background(), ev, testAccount()); err != nil {
		t.Fatalf("HandlePublication: %v", err)
	}

	if repo.insertedPublication == nil {
		t.Fatal("publication not stored")
	}
	if repo.insertedPublication.Approval != store.ApprovalPending {
		t.Errorf("approval state = %q, want pendiente", repo.insertedPublication.Approval)
	}
	if !strings.Contains(repo.insertedPublication.Value, "Liquidación de invierno") {
		t.Errorf("value missing caption: %q", repo.insertedPublication.Value)
	}
	if !strings.Contains(repo.insertedPublication.Value, "[Link: https://instagram.com/p/abc]") {
		t.Errorf("value missing permalink: %q", repo.insertedPublication.Value)
	}

	if repo.createdTask == nil {
		t.Fatal("task not created")
	}
	if repo.createdTask.Titulo != "Nueva publicación detectada" {
		t.Errorf("task title = %q", repo.createdTask.Titulo)
	}
	if repo.createdTask.AsignadoA.Int64 != 7 {
		t.Errorf("task assignee = %d", repo.createdTask.AsignadoA.Int64)
	}

	if repo.savedPending == nil || repo.savedPending.TareaID != 42 || repo.savedPending.PostID != "post_1" {
		t.Errorf("pending approval = %+v", repo.savedPending)
	}
	if notifier.approvalPhone != "56911112222" || notifier.approvalTaskID != 42 {
		t.Errorf("approval request = phone %q task %d", notifier.approvalPhone, notifier.approvalTaskID)
	}
}

func TestHandlePublicationNoAssigneeAutoActivates(t *testing.T) {
	repo := &stubRepo{existing: map[string]bool{}}
	posts := &stubPosts{details: &graph.PostDetails{PostID: "post_2", Caption: "Hola"}}
	notifier := &stubNotifier{}
	m := newTestManager(repo, posts, notifier)

	ev := events.PublicationEvent{Platform: events.PlatformInstagram, PostID: "post_2", PageID: "page_1"}
	if err := m.HandlePublication(context.Background(), ev, testAccount()); err != nil {
		t.Fatalf("HandlePublication: %v", err)
	}

	if repo.insertedPublication.Approval != store.ApprovalActive {
		t.Errorf("approval state = %q, want activo", repo.insertedPublication.Approval)
	}
	if repo.createdTask != nil {
		t.Error("no task should be created without an assignee")
	}
	if notifier.approvalPhone != "" {
		t.Error("no approval request should be sent")
	}
}

func TestHandlePublicationDuplicateSkipped(t *testing.T) {
	repo := &stubRepo{
		existing: map[string]bool{"post_3": true},
		assignee: &store.Assignee{ID: 7, Nombre: "Pedro", Telefono: "569"},
	}
	m := newTestManager(repo, &stubPosts{}, &stubNotifier{})

	ev := events.PublicationEvent{Platform: events.PlatformInstagram, PostID: "post_3", PageID: "page_1"}
	if err := m.HandlePublication(context.Background(), ev, testAccount()); err != nil {
		t.Fatalf("HandlePublication: %v", err)
	}
	if repo.insertedPublication != nil {
		t.Error("duplicate publication should not be stored again")
	}
}

func TestHandlePublicationPayloadFallback(t *testing.T) {
	repo := &stubRepo{existing: map[string]bool{}}
	posts := &stubPosts{details: nil}
	m := newTestManager(repo, posts, &stubNotifier{})

	raw, _ := json.Marshal(map[string]string{
		"message": "Texto desde el webhook",
		"link":    "https://facebook.com/post/9",
	})
	ev := events.PublicationEvent{
		Platform: events.PlatformFacebook,
		PostID:   "post_4",
		PageID:   "page_1",
		ItemType: "status",
		Raw:      raw,
	}
	if err := m.HandlePublication(context.Background(), ev, testAccount()); err != nil {
		t.Fatalf("HandlePublication: %v", err)
	}
	if !strings.Contains(repo.insertedPublication.Value, "Texto desde el webhook") {
		t.Errorf("value missing fallback text: %q", repo.insertedPublication.Value)
	}
	if !strings.Contains(repo.insertedPublication.Value, "[Link: https://facebook.com/post/9]") {
		t.Errorf("value missing fallback link: %q", repo.insertedPublication.Value)
	}
}

func TestDecideApprove(t *testing.T) {
	repo := &stubRepo{pending: &store.PendingApproval{Telefono: "569", TareaID: 42, PostID: "post_1"}}
	notifier := &stubNotifier{}
	m := newTestManager(repo, &stubPosts{}, notifier)

	ev := events.ApprovalReplyEvent{TaskID: 42, Decision: events.DecisionApprove, From: "569"}
	if err := m.Decide(context.Background(), ev); err != nil {
		t.Fatalf("Decide: %v", err)
	}

	if repo.approvedPost != "post_1" {
		t.Errorf("approved post = %q", repo.approvedPost)
	}
	if repo.completedTask != 42 || repo.completedEstado != store.TaskApproved {
		t.Errorf("task completion = %d %q", repo.completedTask, repo.completedEstado)
	}
	if repo.clearedPhone != "569" {
		t.Errorf("pending approval not cleared: %q", repo.clearedPhone)
	}
	if len(notifier.texts) != 1 || !strings.Contains(notifier.texts[0], "aprobada") {
		t.Errorf("confirmation = %v", notifier.texts)
	}
}

func TestDecideRejectFreeText(t *testing.T) {
	repo := &stubRepo{pending: &store.PendingApproval{Telefono: "569", TareaID: 42, PostID: "post_1"}}
	notifier := &stubNotifier{}
	m := newTestManager(repo, &stubPosts{}, notifier)

	// free-text replies carry no task id; the pending record resolves it
	ev := events.ApprovalReplyEvent{TaskID: 0, Decision: events.DecisionReject, From: "569"}
	if err := m.Decide(context.Background(), ev); err != nil {
		t.Fatalf("Decide: %v", err)
	}

	if repo.rejectedPost != "post_1" {
		t.Errorf("rejected post = %q", repo.rejectedPost)
	}
	if repo.completedTask != 42 || repo.completedEstado != store.TaskRejected {
		t.Errorf("task completion = %d %q", repo.completedTask, repo.completedEstado)
	}
	if repo.clearedPhone != "569" {
		t.Error("pending approval should be cleared on reject")
	}
}

func TestDecideModifyKeepsPending(t *testing.T) {
	repo := &stubRepo{pending: &store.PendingApproval{Telefono: "569", TareaID: 42, PostID: "post_1"}}
	notifier := &stubNotifier{}
	m := newTestManager(repo, &stubPosts{}, notifier)

	ev := events.ApprovalReplyEvent{TaskID: 42, Decision: events.DecisionModify, From: "569"}
	if err := m.Decide(context.Background(), ev); err != nil {
		t.Fatalf("Decide: %v", err)
	}

	if repo.modifiedTask != 42 {
		t.Errorf("modified task = %d", repo.modifiedTask)
	}
	if repo.clearedPhone != "" {
		t.Error("pending approval must survive a modify decision")
	}
	if repo.approvedPost != "" || repo.rejectedPost != "" {
		t.Error("modify must not change the publication rule")
	}
	if len(notifier.texts) != 1 || !strings.Contains(notifier.texts[0], "dashboard") {
		t.Errorf("expected dashboard pointer, got %v", notifier.texts)
	}
}

func TestDecideWithoutPendingApproval(t *testing.T) {
	repo := &stubRepo{pending: nil}
	notifier := &stubNotifier{}
	m := newTestManager(repo, &stubPosts{}, notifier)

	ev := events.ApprovalReplyEvent{TaskID: 0, Decision: events.DecisionApprove, From: "569"}
	if err := m.Decide(context.Background(), ev); err != nil {
		t.Fatalf("Decide: %v", err)
	}

	if repo.approvedPost != "" {
		t.Error("nothing should be approved without a pending record")
	}
	if len(notifier.texts) != 1 || !strings.Contains(notifier.texts[0], "pendiente") {
		t.Errorf("expected no-pending notice, got %v", notifier.texts)
	}
}
