// Package servicenow implements the backend tool-execution engine.
//
// It exposes a small built-in tool set (incident search/create/update plus a
// generic table search) over the ServiceNow Table REST API, and implements
// the gateway's mcp.ToolBackend interface. Tool argument schemas are
// reflected from Go structs so descriptors always match what the handlers
// actually decode.
package servicenow
