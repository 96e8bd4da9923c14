// Package notify sends moderation alerts. Delivery problems are logged
// and swallowed; notifications are never allowed to fail a comment write.
package notify

import (
	"log"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/chip902/chip-hosting-comments/internal/models"
)

// Notifier alerts the moderator over SMS when a comment lands in the
// moderation queue. It is a no-op unless fully configured.
type Notifier struct {
	client *twilio.RestClient
	from   string
	to     string
}

// New builds a Notifier. Any empty credential disables delivery.
func New(accountSID, authToken, from, to string) *Notifier {
	if accountSID == "" || authToken == "" || from == "" || to == "" {
		return &Notifier{}
	}
	return &Notifier{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
		from: from,
		to:   to,
	}
}

// CommentQueued fires when a new comment needs human moderation.
func (n *Notifier) CommentQueued(comment *models.Comment) {
	log.Printf("Comment %s on post %s queued for moderation", comment.ID, comment.PostID)
	n.send("New comment awaiting moderation on post " + comment.PostID)
}

// CommentApproved fires when a queued comment flips to approved.
func (n *Notifier) CommentApproved(comment *models.Comment) {
	log.Printf("New comment notification: comment %s on post %s approved", comment.ID, comment.PostID)
}

func (n *Notifier) send(body string) {
	if n.client == nil {
		return
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetTo(n.to)
	params.SetFrom(n.from)
	params.SetBody(body)

	if _, err := n.client.Api.CreateMessage(params); err != nil {
		log.Printf("Error sending moderation alert: %v", err)
	}
}
