package events

import "encoding/json"

// Platform identifies the social network an event originated from.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
)

// Kind discriminates InboundEvent variants.
type Kind string

const (
	KindComment       Kind = "comment"
	KindPublication   Kind = "publication"
	KindDirectMessage Kind = "direct_message"
	KindApprovalReply Kind = "approval_reply"
)

// InboundEvent is one normalized webhook item. Each variant is immutable
// once constructed; the normalizer produces exactly one per accepted item.
type InboundEvent interface {
	EventKind() Kind
}

// CommentEvent is a public comment on a post or media item.
type CommentEvent struct {
	Platform  Platform
	CommentID string
	MediaID   string
	PageID    string
	ActorID   string
	ActorName string
	Text      string
}

func (CommentEvent) EventKind() Kind { return KindComment }

// PublicationEvent is a newly published post on a connected page.
// Raw carries the provider value untouched for audit and rendering.
type PublicationEvent struct {
	Platform Platform
	PostID   string
	PageID   string
	ItemType string
	Raw      json.RawMessage
}

func (PublicationEvent) EventKind() Kind { return KindPublication }

// DirectMessageEvent is an inbound private message to a connected page.
type DirectMessageEvent struct {
	Platform Platform
	SenderID string
	PageID   string
	Text     string
}

func (DirectMessageEvent) EventKind() Kind { return KindDirectMessage }

// Decision is a human verdict on a pending rule.
type Decision string

const (
	DecisionApprove Decision = "aprobar"
	DecisionReject  Decision = "rechazar"
	DecisionModify  Decision = "modificar"
)

// ApprovalReplyEvent is an assignee's answer to an approval request,
// delivered through the messaging gateway. TaskID is zero when the reply
// was free text rather than a button press; the approval layer then
// resolves the sender's open task by phone number.
type ApprovalReplyEvent struct {
	TaskID   int64
	Decision Decision
	From     string
}

func (ApprovalReplyEvent) EventKind() Kind { return KindApprovalReply }
