package tools

import "github.com/EGroupware/EGroupware-chatbot-MCP/internal/domain"

type schema = map[string]interface{}

func str() schema { return schema{"type": "string"} }

func strDesc(desc string) schema { return schema{"type": "string", "description": desc} }

func strArray(desc string) schema {
	return schema{"type": "array", "items": schema{"type": "string"}, "description": desc}
}

func function(name, description string, parameters schema) domain.ToolDefinition {
	return domain.ToolDefinition{
		Type: "function",
		Function: domain.FunctionDefinition{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}
}

var createContactDef = function("create_contact",
	"Adds a new contact to the EGroupware address book.",
	schema{
		"type": "object",
		"properties": schema{
			"full_name": str(),
			"email":     str(),
			"phone":     str(),
			"company":   str(),
			"address":   str(),
			"notes":     str(),
		},
		"required": []string{"full_name", "email"},
	})

var searchContactsDef = function("search_contacts",
	"Searches for existing contacts by name or email.",
	schema{
		"type": "object",
		"properties": schema{
			"query": str(),
		},
		"required": []string{"query"},
	})

var getAllContactsDef = function("get_all_contacts",
	"Retrieves contacts from the EGroupware address book with pagination. Start with a small page and only fetch more when the user asks.",
	schema{
		"type": "object",
		"properties": schema{
			"limit":  schema{"type": "integer", "description": "Maximum number of contacts to return (at most 15)."},
			"offset": schema{"type": "integer", "description": "Number of contacts to skip."},
		},
	})

var sendEmailDef = function("send_email",
	"Sends an email to one or more recipients. Requires a subject and a list of 'to' addresses. Can optionally include a body, cc, and bcc.",
	schema{
		"type": "object",
		"properties": schema{
			"to":      strArray("A list of primary recipient email addresses."),
			"subject": strDesc("The subject line of the email."),
			"body":    strDesc("The plain text body content of the email."),
			"cc":      strArray("A list of CC recipient email addresses."),
			"bcc":     strArray("A list of BCC recipient email addresses."),
		},
		"required": []string{"to", "subject"},
	})

var createEventDef = function("create_event",
	"Schedules a new event in the user's calendar. Requires a title, start time, and end time. Can optionally include a timezone, description, location, and a list of attendee emails.",
	schema{
		"type": "object",
		"properties": schema{
			"title":          strDesc("The title or subject of the event."),
			"start_datetime": strDesc("The start date and time in 'YYYY-MM-DD HH:MM:SS' format."),
			"end_datetime":   strDesc("The end date and time in 'YYYY-MM-DD HH:MM:SS' format. The AI must calculate this if the user provides a duration (e.g., 'for 90 minutes')."),
			"time_zone":      strDesc("The IANA Time Zone for the event (e.g., 'Europe/Berlin', 'America/New_York'). If the user doesn't specify one, you should ask or infer it. Defaults to 'UTC' if not provided."),
			"description":    strDesc("A detailed agenda for the event."),
			"location":       strDesc("The physical location or online meeting link."),
			"attendees":      strArray("A list of email addresses for people to invite."),
		},
		"required": []string{"title", "start_datetime", "end_datetime"},
	})

var listEventsDef = function("list_events",
	"Lists upcoming events between a start and end date.",
	schema{
		"type": "object",
		"properties": schema{
			"start_date": strDesc("Start date in YYYY-MM-DD format."),
			"end_date":   strDesc("End date in YYYY-MM-DD format."),
		},
		"required": []string{"start_date", "end_date"},
	})

var createTaskDef = function("create_task",
	"Creates a new task in the user's InfoLog. Requires a title and can optionally include a due date and a description.",
	schema{
		"type": "object",
		"properties": schema{
			"title":       strDesc("The title or subject of the task."),
			"due_date":    strDesc("The due date for the task, in 'YYYY-MM-DD' format."),
			"description": strDesc("A detailed description of the task."),
		},
		"required": []string{"title"},
	})

var getCompanyInfoDef = function("get_company_info",
	"Fetches the company's internal knowledge base. Use this to answer any questions about the company's mission, products, policies, history, or contact details.",
	schema{
		"type":       "object",
		"properties": schema{},
	})
