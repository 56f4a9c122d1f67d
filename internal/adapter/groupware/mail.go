package groupware

import "context"

// MailInput holds the fields accepted by SendMail.
type MailInput struct {
	To      []string
	Subject string
	Body    string
	Cc      []string
	Bcc     []string
}

// MailPayload builds the mail document for in.
func MailPayload(in MailInput) map[string]interface{} {
	payload := map[string]interface{}{
		"to":      in.To,
		"subject": in.Subject,
	}
	if in.Body != "" {
		payload["body"] = in.Body
	}
	if len(in.Cc) > 0 {
		payload["cc"] = in.Cc
	}
	if len(in.Bcc) > 0 {
		payload["bcc"] = in.Bcc
	}
	return payload
}

// SendMail sends an email through the user's mail account.
func (c *Client) SendMail(ctx context.Context, in MailInput) error {
	_, err := c.postJSON(ctx, c.baseURL+"/mail/", MailPayload(in), nil)
	return err
}
