package mcp

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

// Response is the envelope returned for every tool call. Exactly one of Data
// and Error is set.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data"`
	Error   *ErrorInfo `json:"error"`
}

// ErrorInfo is the structured failure the agent branches on
type ErrorInfo struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Success wraps a payload
func Success(data any) Response {
	return Response{Success: true, Data: data}
}

// Failure wraps an error kind and message
func Failure(kind, message string) Response {
	return Response{Success: false, Error: &ErrorInfo{Kind: kind, Message: message}}
}

// toolResult renders the envelope as JSON text content. Failures also carry
// the MCP isError flag.
func toolResult(resp Response) *mcp.CallToolResult {
	body, err := json.Marshal(resp)
	if err != nil {
		body, _ = json.Marshal(Failure(internalKind, internalMessage))
		return mcp.NewToolResultError(string(body))
	}

	if !resp.Success {
		return mcp.NewToolResultError(string(body))
	}
	return mcp.NewToolResultText(string(body))
}
