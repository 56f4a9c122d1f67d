package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/adapter/groupware"
	"github.com/EGroupware/EGroupware-chatbot-MCP/internal/knowledge"
)

type fakeBackend struct {
	contacts []groupware.Contact
	events   []groupware.Event
	err      error

	contactInputs []groupware.ContactInput
	eventInputs   []groupware.EventInput
	taskInputs    []groupware.TaskInput
	mailInputs    []groupware.MailInput
}

func (f *fakeBackend) CreateContact(ctx context.Context, in groupware.ContactInput) (map[string]string, error) {
	f.contactInputs = append(f.contactInputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return groupware.ContactPayload(in), nil
}

func (f *fakeBackend) ListContacts(ctx context.Context) ([]groupware.Contact, error) {
	return f.contacts, f.err
}

func (f *fakeBackend) CreateEvent(ctx context.Context, in groupware.EventInput) (map[string]interface{}, error) {
	f.eventInputs = append(f.eventInputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return groupware.EventPayload(in), nil
}

func (f *fakeBackend) ListEvents(ctx context.Context, startDate, endDate string) ([]groupware.Event, error) {
	return f.events, f.err
}

func (f *fakeBackend) CreateTask(ctx context.Context, in groupware.TaskInput) (map[string]string, error) {
	f.taskInputs = append(f.taskInputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return groupware.TaskPayload(in), nil
}

func (f *fakeBackend) SendMail(ctx context.Context, in groupware.MailInput) error {
	f.mailInputs = append(f.mailInputs, in)
	return f.err
}

type fakeKnowledge struct {
	content string
	err     error
}

func (f fakeKnowledge) Content() (string, error) { return f.content, f.err }

func run(t *testing.T, name string, env Env, args map[string]interface{}) map[string]interface{} {
	t.Helper()
	tool, ok := DefaultRegistry.Lookup(name)
	require.True(t, ok, "tool %s not registered", name)
	out := tool.Execute(context.Background(), env, tool.Normalize(args))
	data, err := json.Marshal(out)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	return decoded
}

func someContacts(n int) []groupware.Contact {
	contacts := make([]groupware.Contact, n)
	for i := range contacts {
		contacts[i] = groupware.Contact{Name: fmt.Sprintf("Person %d", i), Email: fmt.Sprintf("p%d@example.com", i)}
	}
	return contacts
}

func TestCreateContactSuccess(t *testing.T) {
	backend := &fakeBackend{}
	got := run(t, "create_contact", Env{Backend: backend}, map[string]interface{}{
		"full_name": "Jane Doe",
		"email":     "jane@example.com",
	})

	assert.Equal(t, "success", got["status"])
	assert.Equal(t, "Contact created successfully.", got["message"])
	details := got["contact_details"].(map[string]interface{})
	assert.Equal(t, "Doe", details["name/surname"])
	require.Len(t, backend.contactInputs, 1)
}

func TestCreateContactServerError(t *testing.T) {
	backend := &fakeBackend{err: &groupware.HTTPError{StatusCode: 500, Body: "boom"}}
	got := run(t, "create_contact", Env{Backend: backend}, map[string]interface{}{
		"full_name": "Jane Doe",
		"email":     "jane@example.com",
	})

	assert.Equal(t, "error", got["status"])
	assert.Equal(t, "Failed to create contact. Server responded with status 500.", got["message"])
	assert.Equal(t, "boom", got["details"])
}

func TestSearchContacts(t *testing.T) {
	backend := &fakeBackend{contacts: []groupware.Contact{
		{Name: "Jane Doe", Email: "jane@example.com"},
		{Name: "John Smith", Email: "john@example.com"},
	}}

	got := run(t, "search_contacts", Env{Backend: backend}, map[string]interface{}{"query": "jane"})
	assert.Equal(t, true, got["found"])
	assert.Equal(t, "Found 1 contact(s) matching 'jane' (searched through 2 total contacts).", got["message"])
	assert.Len(t, got["contacts"], 1)

	got = run(t, "search_contacts", Env{Backend: backend}, map[string]interface{}{"query": "nobody"})
	assert.Equal(t, false, got["found"])
	assert.Equal(t, "No contacts found matching 'nobody' (searched through 2 total contacts).", got["message"])
	assert.Equal(t, []interface{}{}, got["contacts"])
}

func TestSearchContactsUnexpectedError(t *testing.T) {
	backend := &fakeBackend{err: errors.New("dial tcp: refused")}
	got := run(t, "search_contacts", Env{Backend: backend}, map[string]interface{}{"query": "x"})
	assert.Equal(t, "error", got["status"])
	assert.Contains(t, got["message"], "An unexpected error occurred during search")
}

func TestGetAllContactsPagination(t *testing.T) {
	backend := &fakeBackend{contacts: someContacts(23)}

	got := run(t, "get_all_contacts", Env{Backend: backend}, nil)
	assert.EqualValues(t, 10, got["limit"])
	assert.EqualValues(t, 10, got["returned_contacts"])
	assert.EqualValues(t, 23, got["total_contacts"])
	assert.Equal(t, true, got["has_more"])
	assert.EqualValues(t, 10, got["next_offset"])
	assert.Equal(t, "Retrieved 10 contact(s) from address book (page 1).", got["message"])

	got = run(t, "get_all_contacts", Env{Backend: backend}, map[string]interface{}{"limit": 100, "offset": 15})
	assert.EqualValues(t, 15, got["limit"])
	assert.EqualValues(t, 8, got["returned_contacts"])
	assert.Equal(t, false, got["has_more"])
	assert.Nil(t, got["next_offset"])
	assert.Equal(t, "Retrieved 8 contact(s) from address book (page 2).", got["message"])
}

func TestGetAllContactsOffsetPastEnd(t *testing.T) {
	backend := &fakeBackend{contacts: someContacts(3)}
	got := run(t, "get_all_contacts", Env{Backend: backend}, map[string]interface{}{"offset": 50})
	assert.EqualValues(t, 0, got["returned_contacts"])
	assert.Equal(t, []interface{}{}, got["contacts"])
}

func TestSendEmail(t *testing.T) {
	backend := &fakeBackend{}
	got := run(t, "send_email", Env{Backend: backend}, map[string]interface{}{
		"to":      []interface{}{"a@example.com", "b@example.com"},
		"subject": "Hello",
	})
	assert.Equal(t, "Email with subject 'Hello' was sent successfully to a@example.com, b@example.com.", got["message"])

	backend.err = &groupware.HTTPError{StatusCode: 400, Body: "bad recipient"}
	got = run(t, "send_email", Env{Backend: backend}, map[string]interface{}{
		"to":      []interface{}{"a@example.com"},
		"subject": "Hello",
	})
	assert.Equal(t, "Failed to send email. API Error: bad recipient", got["message"])
}

func TestCreateEventDurationFromEnd(t *testing.T) {
	backend := &fakeBackend{}
	got := run(t, "create_event", Env{Backend: backend}, map[string]interface{}{
		"title":          "Review",
		"start_datetime": "2025-03-01 10:00:00",
		"end_datetime":   "2025-03-01 11:30:00",
		"attendees":      []interface{}{"x@example.com"},
	})

	assert.Equal(t, "Event 'Review' created successfully at 2025-03-01 10:00:00.", got["message"])
	require.Len(t, backend.eventInputs, 1)
	in := backend.eventInputs[0]
	assert.Equal(t, 90, in.DurationMinutes)
	assert.Equal(t, "UTC", in.TimeZone)
	assert.Equal(t, 5, in.Priority)
	assert.Equal(t, []string{"x@example.com"}, in.Attendees)
}

func TestCreateEventDefaultDuration(t *testing.T) {
	backend := &fakeBackend{}
	run(t, "create_event", Env{Backend: backend}, map[string]interface{}{
		"title":          "Standup",
		"start_datetime": "2025-03-01 10:00:00",
		"end_datetime":   "not a date",
	})
	require.Len(t, backend.eventInputs, 1)
	assert.Equal(t, 60, backend.eventInputs[0].DurationMinutes)
}

func TestListEvents(t *testing.T) {
	backend := &fakeBackend{}
	tool, _ := DefaultRegistry.Lookup("list_events")
	out := tool.Execute(context.Background(), Env{Backend: backend}, map[string]interface{}{
		"start_date": "2025-03-01", "end_date": "2025-03-02",
	})
	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))

	backend.err = &groupware.HTTPError{StatusCode: 403, Body: "forbidden"}
	got := run(t, "list_events", Env{Backend: backend}, map[string]interface{}{
		"start_date": "2025-03-01", "end_date": "2025-03-02",
	})
	assert.Equal(t, "API Error: 403 - forbidden", got["message"])
}

func TestCreateTask(t *testing.T) {
	backend := &fakeBackend{}
	got := run(t, "create_task", Env{Backend: backend}, map[string]interface{}{"title": "Buy milk"})
	assert.Equal(t, "Task 'Buy milk' was created successfully in your InfoLog.", got["message"])
	assert.NotContains(t, got["message"], "It is due on")
	require.Len(t, backend.taskInputs, 1)
	assert.Empty(t, backend.taskInputs[0].DueDate)
	assert.NotContains(t, groupware.TaskPayload(backend.taskInputs[0]), "due")
	assert.NotNil(t, got["created_task_details"])

	got = run(t, "create_task", Env{Backend: backend}, map[string]interface{}{"title": "File taxes", "due_date": "2025-04-15"})
	assert.Equal(t, "Task 'File taxes' was created successfully in your InfoLog. It is due on 2025-04-15.", got["message"])
	assert.Len(t, backend.taskInputs, 2)
}

func TestCreateTaskServerError(t *testing.T) {
	backend := &fakeBackend{err: &groupware.HTTPError{StatusCode: 500, Body: "db down"}}
	got := run(t, "create_task", Env{Backend: backend}, map[string]interface{}{"title": "x"})
	assert.Equal(t, "error", got["status"])
	assert.Equal(t, "Failed to create the task. The server responded with an error: db down", got["message"])
}

func TestGetCompanyInfo(t *testing.T) {
	got := run(t, "get_company_info", Env{Knowledge: fakeKnowledge{content: "# ACME"}}, nil)
	assert.Equal(t, "success", got["status"])
	assert.Equal(t, "# ACME", got["content"])

	got = run(t, "get_company_info", Env{Knowledge: fakeKnowledge{err: knowledge.ErrNotFound}}, nil)
	assert.Equal(t, "The company knowledge file (company_info.md) could not be found on the server.", got["message"])
}
