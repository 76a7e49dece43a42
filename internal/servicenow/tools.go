// ABOUTME: Built-in ServiceNow tool set exposed through the gateway.
// ABOUTME: Implements the mcp.ToolBackend interface over the Table API client.

package servicenow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/crestline/snowgate/internal/mcp"
)

// ErrToolNotFound indicates the requested tool is not registered.
var ErrToolNotFound = errors.New("tool not found")

// ToolExecutionError wraps a failure from a tool handler with the tool name.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("executing tool %s: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }

// toolHandler executes one tool and returns its textual result.
type toolHandler func(ctx context.Context, arguments json.RawMessage) (string, error)

type toolEntry struct {
	descriptor mcp.ToolDescriptor
	handler    toolHandler
}

// Registry holds the built-in tool set. It implements mcp.ToolBackend.
type Registry struct {
	client *Client
	logger *slog.Logger
	order  []string
	tools  map[string]toolEntry
}

// NewRegistry creates the tool registry and registers the built-in tools.
func NewRegistry(client *Client, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		client: client,
		logger: logger,
		tools:  make(map[string]toolEntry),
	}

	builtins := []struct {
		name        string
		description string
		args        any
		handler     toolHandler
	}{
		{
			name:        "search_incidents",
			description: "Search incidents by encoded query, newest first",
			args:        searchIncidentsArgs{},
			handler:     r.searchIncidents,
		},
		{
			name:        "get_incident",
			description: "Fetch a single incident by its number (e.g. INC0010001)",
			args:        getIncidentArgs{},
			handler:     r.getIncident,
		},
		{
			name:        "create_incident",
			description: "Create a new incident",
			args:        createIncidentArgs{},
			handler:     r.createIncident,
		},
		{
			name:        "update_incident",
			description: "Update fields on an existing incident by number",
			args:        updateIncidentArgs{},
			handler:     r.updateIncident,
		},
		{
			name:        "search_records",
			description: "Search any table by encoded query",
			args:        searchRecordsArgs{},
			handler:     r.searchRecords,
		},
	}

	for _, b := range builtins {
		schema, err := schemaFor(b.args)
		if err != nil {
			return nil, fmt.Errorf("building schema for %s: %w", b.name, err)
		}
		r.order = append(r.order, b.name)
		r.tools[b.name] = toolEntry{
			descriptor: mcp.ToolDescriptor{
				Name:        b.name,
				Description: b.description,
				InputSchema: schema,
			},
			handler: b.handler,
		}
	}

	return r, nil
}

// ListTools returns the descriptors of all registered tools.
func (r *Registry) ListTools(_ context.Context) ([]mcp.ToolDescriptor, error) {
	descriptors := make([]mcp.ToolDescriptor, 0, len(r.order))
	for _, name := range r.order {
		descriptors = append(descriptors, r.tools[name].descriptor)
	}
	return descriptors, nil
}

// CallTool executes the named tool. Handler failures are wrapped in
// ToolExecutionError so callers can surface the failing tool by name.
func (r *Registry) CallTool(ctx context.Context, name string, arguments json.RawMessage) ([]mcp.Content, error) {
	entry, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	text, err := entry.handler(ctx, arguments)
	if err != nil {
		return nil, &ToolExecutionError{Tool: name, Err: err}
	}

	return []mcp.Content{{Type: "text", Text: text}}, nil
}

// Tool argument structs. The description tags feed the generated schemas.

type searchIncidentsArgs struct {
	Query string `json:"query,omitempty" description:"ServiceNow encoded query, e.g. active=true^priority=1"`
	Limit int    `json:"limit,omitempty" description:"Maximum number of incidents to return (default 10)"`
}

type getIncidentArgs struct {
	Number string `json:"number" description:"Incident number, e.g. INC0010001"`
}

type createIncidentArgs struct {
	ShortDescription string `json:"short_description" description:"One-line summary of the incident"`
	Description      string `json:"description,omitempty" description:"Detailed description"`
	Urgency          string `json:"urgency,omitempty" description:"Urgency 1-3"`
	Impact           string `json:"impact,omitempty" description:"Impact 1-3"`
}

type updateIncidentArgs struct {
	Number    string `json:"number" description:"Incident number to update"`
	State     string `json:"state,omitempty" description:"New state value"`
	WorkNotes string `json:"work_notes,omitempty" description:"Work notes to append"`
	Urgency   string `json:"urgency,omitempty" description:"Urgency 1-3"`
}

type searchRecordsArgs struct {
	Table string `json:"table" description:"Table name, e.g. change_request"`
	Query string `json:"query,omitempty" description:"ServiceNow encoded query"`
	Limit int    `json:"limit,omitempty" description:"Maximum number of records to return (default 10)"`
}

const defaultSearchLimit = 10

func (r *Registry) searchIncidents(ctx context.Context, arguments json.RawMessage) (string, error) {
	var args searchIncidentsArgs
	if err := json.Unmarshal(arguments, &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if args.Limit <= 0 {
		args.Limit = defaultSearchLimit
	}

	query := args.Query
	if query == "" {
		query = "ORDERBYDESCsys_created_on"
	}

	records, err := r.client.ListRecords(ctx, "incident", query, args.Limit)
	if err != nil {
		return "", err
	}
	return formatRecords(records)
}

func (r *Registry) getIncident(ctx context.Context, arguments json.RawMessage) (string, error) {
	var args getIncidentArgs
	if err := json.Unmarshal(arguments, &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if args.Number == "" {
		return "", errors.New("incident number is required")
	}

	record, err := r.findIncident(ctx, args.Number)
	if err != nil {
		return "", err
	}
	return formatRecord(record)
}

func (r *Registry) createIncident(ctx context.Context, arguments json.RawMessage) (string, error) {
	var args createIncidentArgs
	if err := json.Unmarshal(arguments, &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if args.ShortDescription == "" {
		return "", errors.New("short_description is required")
	}

	fields := map[string]any{"short_description": args.ShortDescription}
	if args.Description != "" {
		fields["description"] = args.Description
	}
	if args.Urgency != "" {
		fields["urgency"] = args.Urgency
	}
	if args.Impact != "" {
		fields["impact"] = args.Impact
	}

	record, err := r.client.CreateRecord(ctx, "incident", fields)
	if err != nil {
		return "", err
	}
	return formatRecord(record)
}

func (r *Registry) updateIncident(ctx context.Context, arguments json.RawMessage) (string, error) {
	var args updateIncidentArgs
	if err := json.Unmarshal(arguments, &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if args.Number == "" {
		return "", errors.New("incident number is required")
	}

	fields := map[string]any{}
	if args.State != "" {
		fields["state"] = args.State
	}
	if args.WorkNotes != "" {
		fields["work_notes"] = args.WorkNotes
	}
	if args.Urgency != "" {
		fields["urgency"] = args.Urgency
	}
	if len(fields) == 0 {
		return "", errors.New("no fields to update")
	}

	incident, err := r.findIncident(ctx, args.Number)
	if err != nil {
		return "", err
	}
	sysID, _ := incident["sys_id"].(string)
	if sysID == "" {
		return "", fmt.Errorf("incident %s has no sys_id", args.Number)
	}

	record, err := r.client.UpdateRecord(ctx, "incident", sysID, fields)
	if err != nil {
		return "", err
	}
	return formatRecord(record)
}

func (r *Registry) searchRecords(ctx context.Context, arguments json.RawMessage) (string, error) {
	var args searchRecordsArgs
	if err := json.Unmarshal(arguments, &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if args.Table == "" {
		return "", errors.New("table is required")
	}
	if args.Limit <= 0 {
		args.Limit = defaultSearchLimit
	}

	records, err := r.client.ListRecords(ctx, args.Table, args.Query, args.Limit)
	if err != nil {
		return "", err
	}
	return formatRecords(records)
}

// findIncident resolves an incident by its number field.
func (r *Registry) findIncident(ctx context.Context, number string) (Record, error) {
	records, err := r.client.ListRecords(ctx, "incident", "number="+number, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("incident %s not found", number)
	}
	return records[0], nil
}

func formatRecord(record Record) (string, error) {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding record: %w", err)
	}
	return string(data), nil
}

func formatRecords(records []Record) (string, error) {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding records: %w", err)
	}
	return string(data), nil
}
