package events

import (
	"encoding/json"

	"github.com/Pbezama/admin-panel-back/pkg/logging"
)

// MetaPayload is the envelope Meta posts to the webhook endpoint for both
// Instagram and Facebook subscriptions.
type MetaPayload struct {
	Object string      `json:"object"`
	Entry  []MetaEntry `json:"entry"`
}

// MetaEntry groups the notifications for one page or profile. ID is the
// page id (Facebook) or professional-account id (Instagram).
type MetaEntry struct {
	ID        string          `json:"id"`
	Time      int64           `json:"time"`
	Changes   []MetaChange    `json:"changes"`
	Messaging []MetaMessaging `json:"messaging"`
}

// MetaChange is one field-tagged notification. Value is decoded lazily
// because its shape depends entirely on Field.
type MetaChange struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

// MetaMessaging is one Messenger item within an entry.
type MetaMessaging struct {
	Sender    MetaParty           `json:"sender"`
	Recipient MetaParty           `json:"recipient"`
	Message   *MetaMessagePayload `json:"message"`
}

// MetaParty identifies a messaging participant.
type MetaParty struct {
	ID string `json:"id"`
}

// MetaMessagePayload is the message body of a Messenger item.
type MetaMessagePayload struct {
	MID    string `json:"mid"`
	Text   string `json:"text"`
	IsEcho bool   `json:"is_echo"`
}

type metaActor struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// commentsValue is the change value for the Instagram "comments" field.
type commentsValue struct {
	ID    string    `json:"id"`
	Text  string    `json:"text"`
	From  metaActor `json:"from"`
	Media struct {
		ID string `json:"id"`
	} `json:"media"`
	MediaID string `json:"media_id"`
}

// feedValue is the change value for the Facebook "feed" field. It covers
// both comments (item=comment) and new publications (item=status/photo/...).
type feedValue struct {
	Item      string    `json:"item"`
	Verb      string    `json:"verb"`
	CommentID string    `json:"comment_id"`
	PostID    string    `json:"post_id"`
	Message   string    `json:"message"`
	From      metaActor `json:"from"`
}

// publicationItems are the feed item types treated as new publications.
var publicationItems = map[string]bool{
	"status": true,
	"photo":  true,
	"video":  true,
	"share":  true,
}

// Normalizer turns provider payloads into canonical inbound events.
// Malformed or unsupported items are dropped with a diagnostic, never
// surfaced as errors: the webhook endpoint must acknowledge Meta
// regardless of what the payload contained.
type Normalizer struct {
	logger logging.Logger
}

func NewNormalizer(logger logging.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Meta normalizes a Meta webhook payload into inbound events in a single
// pass over its entries.
func (n *Normalizer) Meta(payload *MetaPayload) []InboundEvent {
	if payload == nil {
		return nil
	}

	var out []InboundEvent
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if ev, ok := n.normalizeChange(entry.ID, change); ok {
				out = append(out, ev)
			}
		}
		for _, msg := range entry.Messaging {
			if ev, ok := n.normalizeMessaging(entry.ID, msg); ok {
				out = append(out, ev)
			}
		}
	}
	return out
}

func (n *Normalizer) normalizeChange(entryID string, change MetaChange) (InboundEvent, bool) {
	switch change.Field {
	case "comments":
		return n.normalizeInstagramComment(entryID, change.Value)
	case "feed":
		return n.normalizeFeed(entryID, change.Value)
	default:
		n.logger.WithFields(logging.Fields{
			"entry_id": entryID,
			"field":    change.Field,
		}).Debug("Unhandled change field, dropping")
		return nil, false
	}
}

func (n *Normalizer) normalizeInstagramComment(entryID string, raw json.RawMessage) (InboundEvent, bool) {
	var value commentsValue
	if err := json.Unmarshal(raw, &value); err != nil {
		n.logger.WithError(err).WithField("entry_id", entryID).Warn("Malformed comments value, dropping")
		return nil, false
	}

	mediaID := value.Media.ID
	if mediaID == "" {
		mediaID = value.MediaID
	}

	if value.ID == "" || value.Text == "" || value.From.ID == "" {
		n.logger.WithFields(logging.Fields{
			"entry_id":   entryID,
			"comment_id": value.ID,
		}).Warn("Incomplete Instagram comment, dropping")
		return nil, false
	}

	return CommentEvent{
		Platform:  PlatformInstagram,
		CommentID: value.ID,
		MediaID:   mediaID,
		PageID:    entryID,
		ActorID:   value.From.ID,
		ActorName: value.From.Username,
		Text:      value.Text,
	}, true
}

func (n *Normalizer) normalizeFeed(entryID string, raw json.RawMessage) (InboundEvent, bool) {
	var value feedValue
	if err := json.Unmarshal(raw, &value); err != nil {
		n.logger.WithError(err).WithField("entry_id", entryID).Warn("Malformed feed value, dropping")
		return nil, false
	}

	verb := value.Verb
	if verb == "" {
		verb = "add"
	}

	switch {
	case value.Item == "comment" && verb == "add":
		if value.CommentID == "" || value.Message == "" || value.From.ID == "" {
			n.logger.WithFields(logging.Fields{
				"entry_id":   entryID,
				"comment_id": value.CommentID,
			}).Warn("Incomplete Facebook comment, dropping")
			return nil, false
		}
		return CommentEvent{
			Platform:  PlatformFacebook,
			CommentID: value.CommentID,
			MediaID:   value.PostID,
			PageID:    entryID,
			ActorID:   value.From.ID,
			ActorName: value.From.Name,
			Text:      value.Message,
		}, true

	case publicationItems[value.Item] && verb == "add":
		if value.PostID == "" {
			n.logger.WithField("entry_id", entryID).Warn("Publication without post_id, dropping")
			return nil, false
		}
		return PublicationEvent{
			Platform: PlatformFacebook,
			PostID:   value.PostID,
			PageID:   entryID,
			ItemType: value.Item,
			Raw:      raw,
		}, true

	case value.Item == "reaction":
		n.logger.WithField("entry_id", entryID).Debug("Reaction event, dropping")
		return nil, false

	default:
		n.logger.WithFields(logging.Fields{
			"entry_id": entryID,
			"item":     value.Item,
			"verb":     verb,
		}).Debug("Unhandled feed item, dropping")
		return nil, false
	}
}

func (n *Normalizer) normalizeMessaging(entryID string, msg MetaMessaging) (InboundEvent, bool) {
	if msg.Message == nil {
		return nil, false
	}
	if msg.Message.IsEcho {
		// Our own outbound DMs come back as echoes.
		n.logger.WithField("entry_id", entryID).Debug("Echo message, dropping")
		return nil, false
	}
	if msg.Sender.ID == "" || msg.Message.Text == "" {
		n.logger.WithField("entry_id", entryID).Warn("Incomplete messaging item, dropping")
		return nil, false
	}

	pageID := msg.Recipient.ID
	if pageID == "" {
		pageID = entryID
	}

	return DirectMessageEvent{
		Platform: PlatformInstagram,
		SenderID: msg.Sender.ID,
		PageID:   pageID,
		Text:     msg.Message.Text,
	}, true
}
