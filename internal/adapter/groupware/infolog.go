package groupware

import (
	"context"
	"net/url"
	"strings"
)

// TaskInput holds the fields accepted by CreateTask.
type TaskInput struct {
	Title       string
	DueDate     string
	Description string
}

// UserBaseURL replaces the last path segment of the base URL with the
// user's name, so that InfoLog entries land in the user's own collection
// (".../groupdav.php/sysop" becomes ".../groupdav.php/alice"). A base URL
// without a path gets the name appended.
func UserBaseURL(baseURL, username string) string {
	trimmed := strings.TrimSuffix(baseURL, "/")
	u, err := url.Parse(trimmed)
	if err != nil || u.Path == "" || u.Path == "/" {
		return trimmed + "/" + username
	}
	u.Path = u.Path[:strings.LastIndex(u.Path, "/")] + "/" + username
	u.RawPath = ""
	return u.String()
}

// TaskPayload builds the InfoLog document for in. A due date is extended to
// the end of that day.
func TaskPayload(in TaskInput) map[string]string {
	payload := map[string]string{
		"title":  in.Title,
		"status": "needs-action",
	}
	if in.Description != "" {
		payload["description"] = in.Description
	}
	if in.DueDate != "" {
		payload["due"] = in.DueDate + " 23:59:59"
	}
	return payload
}

// CreateTask adds a task to the user's InfoLog and returns the payload sent.
func (c *Client) CreateTask(ctx context.Context, in TaskInput) (map[string]string, error) {
	payload := TaskPayload(in)
	target := UserBaseURL(c.baseURL, c.username) + "/infolog/"
	if _, err := c.postJSON(ctx, target, payload, nil); err != nil {
		return nil, err
	}
	return payload, nil
}
