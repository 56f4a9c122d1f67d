package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/adapter/groupware"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/knowledge"
)

const (
	defaultContactPage = 10
	maxContactPage     = 15
	defaultDuration    = 60
	defaultPriority    = 5
	defaultTimeZone    = "UTC"
)

func init() {
	RegisterBuiltins(DefaultRegistry)
}

// RegisterBuiltins adds the groupware tools to r in the order they are
// offered to the model.
func RegisterBuiltins(r *Registry) {
	r.MustRegister(&Tool{Definition: createContactDef, Execute: createContact})
	r.MustRegister(&Tool{Definition: searchContactsDef, Execute: searchContacts})
	r.MustRegister(&Tool{
		Definition: getAllContactsDef,
		Defaults:   map[string]interface{}{"limit": defaultContactPage, "offset": 0},
		Execute:    getAllContacts,
	})
	r.MustRegister(&Tool{Definition: sendEmailDef, Execute: sendEmail})
	r.MustRegister(&Tool{
		Definition: createEventDef,
		Defaults:   map[string]interface{}{"time_zone": defaultTimeZone},
		Execute:    createEvent,
	})
	r.MustRegister(&Tool{Definition: listEventsDef, Execute: listEvents})
	r.MustRegister(&Tool{Definition: createTaskDef, Execute: createTask})
	r.MustRegister(&Tool{Definition: getCompanyInfoDef, Execute: getCompanyInfo})
}

type result = map[string]interface{}

func errorResult(message string) result {
	return result{"status": "error", "message": message}
}

func httpFailure(err error, describe func(*groupware.HTTPError) result) result {
	var httpErr *groupware.HTTPError
	if errors.As(err, &httpErr) {
		return describe(httpErr)
	}
	return errorResult(fmt.Sprintf("An unexpected error occurred: %v", err))
}

func invalidArgs(tool string, err error) result {
	return errorResult(fmt.Sprintf("Invalid arguments for %s: %v", tool, err))
}

type createContactArgs struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Company  string `json:"company"`
	Address  string `json:"address"`
	Notes    string `json:"notes"`
}

func createContact(ctx context.Context, env Env, args map[string]interface{}) interface{} {
	var a createContactArgs
	if err := decodeArgs(args, &a); err != nil {
		return invalidArgs("create_contact", err)
	}
	payload, err := env.Backend.CreateContact(ctx, groupware.ContactInput{
		FullName: a.FullName,
		Email:    a.Email,
		Phone:    a.Phone,
		Company:  a.Company,
		Address:  a.Address,
		Notes:    a.Notes,
	})
	if err != nil {
		return httpFailure(err, func(e *groupware.HTTPError) result {
			return result{
				"status":  "error",
				"message": fmt.Sprintf("Failed to create contact. Server responded with status %d.", e.StatusCode),
				"details": e.Body,
			}
		})
	}
	return result{
		"status":          "success",
		"message":         "Contact created successfully.",
		"contact_details": payload,
	}
}

type searchContactsArgs struct {
	Query string `json:"query"`
}

func searchContacts(ctx context.Context, env Env, args map[string]interface{}) interface{} {
	var a searchContactsArgs
	if err := decodeArgs(args, &a); err != nil {
		return invalidArgs("search_contacts", err)
	}
	contacts, err := env.Backend.ListContacts(ctx)
	if err != nil {
		var httpErr *groupware.HTTPError
		if errors.As(err, &httpErr) {
			return result{
				"status":  "error",
				"message": fmt.Sprintf("Failed to retrieve contacts. Server responded with status %d.", httpErr.StatusCode),
				"details": httpErr.Body,
			}
		}
		return errorResult(fmt.Sprintf("An unexpected error occurred during search: %v", err))
	}

	matches := make([]groupware.Contact, 0)
	for _, c := range contacts {
		if c.Matches(a.Query) {
			matches = append(matches, c)
		}
	}

	message := fmt.Sprintf("No contacts found matching '%s' (searched through %d total contacts).", a.Query, len(contacts))
	if len(matches) > 0 {
		message = fmt.Sprintf("Found %d contact(s) matching '%s' (searched through %d total contacts).", len(matches), a.Query, len(contacts))
	}
	return result{
		"status":         "success",
		"found":          len(matches) > 0,
		"message":        message,
		"total_searched": len(contacts),
		"contacts":       matches,
	}
}

type pageArgs struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

func getAllContacts(ctx context.Context, env Env, args map[string]interface{}) interface{} {
	var a pageArgs
	if err := decodeArgs(args, &a); err != nil {
		return invalidArgs("get_all_contacts", err)
	}
	limit := a.Limit
	if limit <= 0 {
		limit = defaultContactPage
	}
	if limit > maxContactPage {
		limit = maxContactPage
	}
	offset := a.Offset
	if offset < 0 {
		offset = 0
	}

	contacts, err := env.Backend.ListContacts(ctx)
	if err != nil {
		var httpErr *groupware.HTTPError
		if errors.As(err, &httpErr) {
			return result{
				"status":  "error",
				"message": fmt.Sprintf("Failed to retrieve contacts. Server responded with status %d.", httpErr.StatusCode),
				"details": httpErr.Body,
			}
		}
		return errorResult(fmt.Sprintf("An unexpected error occurred while retrieving contacts: %v", err))
	}

	total := len(contacts)
	start := offset
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	page := contacts[start:end]
	if page == nil {
		page = []groupware.Contact{}
	}

	var nextOffset interface{}
	hasMore := end < total
	if hasMore {
		nextOffset = end
	}
	return result{
		"status":            "success",
		"message":           fmt.Sprintf("Retrieved %d contact(s) from address book (page %d).", len(page), offset/limit+1),
		"total_contacts":    total,
		"returned_contacts": len(page),
		"offset":            offset,
		"limit":             limit,
		"has_more":          hasMore,
		"next_offset":       nextOffset,
		"contacts":          page,
	}
}

type sendEmailArgs struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
	Cc      []string `json:"cc"`
	Bcc     []string `json:"bcc"`
}

func sendEmail(ctx context.Context, env Env, args map[string]interface{}) interface{} {
	var a sendEmailArgs
	if err := decodeArgs(args, &a); err != nil {
		return invalidArgs("send_email", err)
	}
	err := env.Backend.SendMail(ctx, groupware.MailInput{
		To:      a.To,
		Subject: a.Subject,
		Body:    a.Body,
		Cc:      a.Cc,
		Bcc:     a.Bcc,
	})
	if err != nil {
		return httpFailure(err, func(e *groupware.HTTPError) result {
			return errorResult("Failed to send email. API Error: " + e.Body)
		})
	}
	return result{
		"status":  "success",
		"message": fmt.Sprintf("Email with subject '%s' was sent successfully to %s.", a.Subject, strings.Join(a.To, ", ")),
	}
}

type createEventArgs struct {
	Title           string   `json:"title"`
	StartDatetime   string   `json:"start_datetime"`
	EndDatetime     string   `json:"end_datetime"`
	TimeZone        string   `json:"time_zone"`
	Description     string   `json:"description"`
	Location        string   `json:"location"`
	Attendees       []string `json:"attendees"`
	AttendeeEmails  []string `json:"attendee_emails"`
	DurationMinutes int      `json:"duration_minutes"`
	Priority        int      `json:"priority"`
}

var datetimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
}

func parseDatetime(s string) (time.Time, bool) {
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// eventDuration derives the duration in minutes from the end time, falling
// back to an explicit duration and then to one hour.
func eventDuration(a createEventArgs) int {
	start, okStart := parseDatetime(a.StartDatetime)
	end, okEnd := parseDatetime(a.EndDatetime)
	if okStart && okEnd && end.After(start) {
		return int(end.Sub(start).Minutes())
	}
	if a.DurationMinutes > 0 {
		return a.DurationMinutes
	}
	return defaultDuration
}

func createEvent(ctx context.Context, env Env, args map[string]interface{}) interface{} {
	var a createEventArgs
	if err := decodeArgs(args, &a); err != nil {
		return invalidArgs("create_event", err)
	}
	attendees := a.Attendees
	if len(attendees) == 0 {
		attendees = a.AttendeeEmails
	}
	priority := a.Priority
	if priority <= 0 {
		priority = defaultPriority
	}
	tz := a.TimeZone
	if tz == "" {
		tz = defaultTimeZone
	}

	payload, err := env.Backend.CreateEvent(ctx, groupware.EventInput{
		Title:           a.Title,
		Start:           a.StartDatetime,
		TimeZone:        tz,
		DurationMinutes: eventDuration(a),
		Description:     a.Description,
		Location:        a.Location,
		Attendees:       attendees,
		Priority:        priority,
	})
	if err != nil {
		return httpFailure(err, func(e *groupware.HTTPError) result {
			return errorResult("Failed to create event. API Error: " + e.Body)
		})
	}
	return result{
		"status":        "success",
		"message":       fmt.Sprintf("Event '%s' created successfully at %s.", a.Title, a.StartDatetime),
		"event_details": payload,
	}
}

type listEventsArgs struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func listEvents(ctx context.Context, env Env, args map[string]interface{}) interface{} {
	var a listEventsArgs
	if err := decodeArgs(args, &a); err != nil {
		return invalidArgs("list_events", err)
	}
	events, err := env.Backend.ListEvents(ctx, a.StartDate, a.EndDate)
	if err != nil {
		return httpFailure(err, func(e *groupware.HTTPError) result {
			return errorResult(fmt.Sprintf("API Error: %d - %s", e.StatusCode, e.Body))
		})
	}
	if events == nil {
		events = []groupware.Event{}
	}
	return events
}

type createTaskArgs struct {
	Title       string `json:"title"`
	DueDate     string `json:"due_date"`
	Description string `json:"description"`
}

func createTask(ctx context.Context, env Env, args map[string]interface{}) interface{} {
	var a createTaskArgs
	if err := decodeArgs(args, &a); err != nil {
		return invalidArgs("create_task", err)
	}
	payload, err := env.Backend.CreateTask(ctx, groupware.TaskInput{
		Title:       a.Title,
		DueDate:     a.DueDate,
		Description: a.Description,
	})
	if err != nil {
		return httpFailure(err, func(e *groupware.HTTPError) result {
			return errorResult("Failed to create the task. The server responded with an error: " + e.Body)
		})
	}
	message := fmt.Sprintf("Task '%s' was created successfully in your InfoLog.", a.Title)
	if a.DueDate != "" {
		message += fmt.Sprintf(" It is due on %s.", a.DueDate)
	}
	return result{
		"status":               "success",
		"message":              message,
		"created_task_details": payload,
	}
}

func getCompanyInfo(ctx context.Context, env Env, args map[string]interface{}) interface{} {
	if env.Knowledge == nil {
		return errorResult("The company knowledge file (company_info.md) could not be found on the server.")
	}
	content, err := env.Knowledge.Content()
	if err != nil {
		if errors.Is(err, knowledge.ErrNotFound) {
			return errorResult("The company knowledge file (company_info.md) could not be found on the server.")
		}
		return errorResult(fmt.Sprintf("An error occurred while reading the knowledge base: %v", err))
	}
	return result{
		"status":  "success",
		"message": "Company knowledge base retrieved successfully.",
		"content": content,
	}
}
