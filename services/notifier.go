package services

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cppla/inkwell/models"
)

// MailSender delivers a plain text message.
type MailSender interface {
	Send(to, subject, body string) error
}

// MailNotifier emails the site owner about each new comment awaiting review.
type MailNotifier struct {
	sender  MailSender
	to      string
	baseURL string
	logger  *zap.Logger
}

func NewMailNotifier(sender MailSender, to, baseURL string, logger *zap.Logger) *MailNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MailNotifier{sender: sender, to: to, baseURL: strings.TrimRight(baseURL, "/"), logger: logger}
}

// CommentSubmitted sends in the background; failures are only logged.
func (n *MailNotifier) CommentSubmitted(c models.Comment) {
	if n == nil || n.sender == nil || n.to == "" {
		return
	}
	subject, body := n.compose(c)
	go func() {
		if err := n.sender.Send(n.to, subject, body); err != nil {
			n.logger.Warn("comment notification failed", zap.Uint("comment_id", c.ID), zap.Error(err))
		}
	}()
}

func (n *MailNotifier) compose(c models.Comment) (string, string) {
	subject := fmt.Sprintf("New comment from %s awaiting review", c.Author)
	var b strings.Builder
	fmt.Fprintf(&b, "Post #%d received a new comment.\n\n", c.PostID)
	fmt.Fprintf(&b, "Author: %s\n", c.Author)
	if c.Email != "" {
		fmt.Fprintf(&b, "Email: %s\n", c.Email)
	}
	fmt.Fprintf(&b, "Time: %s\n\n%s\n", c.CreatedAt.Format("2006-01-02 15:04:05"), c.Content)
	if n.baseURL != "" {
		fmt.Fprintf(&b, "\nReview: %s/admin/comments?status=PENDING\n", n.baseURL)
	}
	return subject, b.String()
}
