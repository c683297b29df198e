package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Pbezama/admin-panel-back/internal/events"
	"github.com/Pbezama/admin-panel-back/pkg/version"
)

// DecisionRequest is a dashboard-originated approval decision. It goes
// through the same pipeline as WhatsApp replies so both paths stay in
// sync.
type DecisionRequest struct {
	TaskID   int64  `json:"task_id" binding:"required"`
	Decision string `json:"decision" binding:"required"`
	From     string `json:"from" binding:"required"`
}

// HandleRuleDecision applies an approval decision made in the dashboard.
func HandleRuleDecision(c *gin.Context) {
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "task_id, decision and from are required"})
		return
	}

	decision := events.Decision(req.Decision)
	switch decision {
	case events.DecisionApprove, events.DecisionReject, events.DecisionModify:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "decision must be aprobar, rechazar or modificar"})
		return
	}

	deps.Pipeline.Process(c.Request.Context(), events.ApprovalReplyEvent{
		TaskID:   req.TaskID,
		Decision: decision,
		From:     req.From,
	})

	c.JSON(http.StatusOK, gin.H{"status": "applied"})
}

// HandleDiagnostics exposes guard state and build info for operators.
func HandleDiagnostics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":          version.Version,
		"commit":           version.GetShortCommit(),
		"own_account_ids":  deps.Guard.OwnIDCount(),
		"verify_token_set": deps.VerifyToken != "",
	})
}
