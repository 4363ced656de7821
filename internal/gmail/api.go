package gmail

import (
	"context"

	gmailv1 "google.golang.org/api/gmail/v1"
)

const user = "me"

// ListPageRequest is one page request against the message listing.
type ListPageRequest struct {
	LabelIDs   []string
	Query      string
	MaxResults int64
	PageToken  string
}

// Lister lists message ids page by page.
type Lister interface {
	ListMessages(ctx context.Context, req ListPageRequest) (*gmailv1.ListMessagesResponse, error)
}

// MessageGetter fetches one full message.
type MessageGetter interface {
	GetMessage(ctx context.Context, id string) (*gmailv1.Message, error)
}

// AttachmentGetter fetches the content of one attachment part.
type AttachmentGetter interface {
	GetAttachment(ctx context.Context, messageID, attachmentID string) (*gmailv1.MessagePartBody, error)
}

// API bundles the three remote operations the pipeline needs.
type API interface {
	Lister
	MessageGetter
	AttachmentGetter
}

// ServiceAPI implements API on top of a Gmail service, retrying
// rate-limited and transient failures.
type ServiceAPI struct {
	svc   *gmailv1.Service
	retry RetryPolicy
}

func NewAPI(svc *gmailv1.Service, retry RetryPolicy) *ServiceAPI {
	return &ServiceAPI{svc: svc, retry: retry}
}

func (a *ServiceAPI) ListMessages(ctx context.Context, req ListPageRequest) (*gmailv1.ListMessagesResponse, error) {
	call := a.svc.Users.Messages.List(user).MaxResults(req.MaxResults)
	if len(req.LabelIDs) > 0 {
		call = call.LabelIds(req.LabelIDs...)
	}
	if req.Query != "" {
		call = call.Q(req.Query)
	}
	if req.PageToken != "" {
		call = call.PageToken(req.PageToken)
	}
	var resp *gmailv1.ListMessagesResponse
	err := a.retry.Do(ctx, func() error {
		var err error
		resp, err = call.Context(ctx).Do()
		return err
	})
	return resp, err
}

func (a *ServiceAPI) GetMessage(ctx context.Context, id string) (*gmailv1.Message, error) {
	var msg *gmailv1.Message
	err := a.retry.Do(ctx, func() error {
		var err error
		msg, err = a.svc.Users.Messages.Get(user, id).Format("full").Context(ctx).Do()
		return err
	})
	return msg, err
}

func (a *ServiceAPI) GetAttachment(ctx context.Context, messageID, attachmentID string) (*gmailv1.MessagePartBody, error) {
	var body *gmailv1.MessagePartBody
	err := a.retry.Do(ctx, func() error {
		var err error
		body, err = a.svc.Users.Messages.Attachments.Get(user, messageID, attachmentID).Context(ctx).Do()
		return err
	})
	return body, err
}
