package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/vodnote/internal/entry"
	"github.com/hpungsan/vodnote/internal/errors"
	"github.com/hpungsan/vodnote/internal/metrics"
	"github.com/hpungsan/vodnote/internal/review"
	"github.com/hpungsan/vodnote/internal/timecode"
)

// previewLen bounds the text returned by log_list without include_text.
const previewLen = 80

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	session    *review.Session
	exportsDir string
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(session *review.Session, exportsDir string) *Handlers {
	return &Handlers{session: session, exportsDir: exportsDir}
}

// Request types for each tool

// AddRequest represents the arguments for log_add.
type AddRequest struct {
	At   string `json:"at"`
	Text string `json:"text"`
}

// UpdateRequest represents the arguments for log_update.
type UpdateRequest struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// DeleteRequest represents the arguments for log_delete.
type DeleteRequest struct {
	ID string `json:"id"`
}

// ListRequest represents the arguments for log_list.
type ListRequest struct {
	IncludeText bool `json:"include_text,omitempty"`
}

// ImportRequest represents the arguments for log_import.
type ImportRequest struct {
	Text string `json:"text,omitempty"`
	File string `json:"file,omitempty"`
}

// ExportRequest represents the arguments for log_export.
type ExportRequest struct {
	File   string `json:"file,omitempty"`
	ToFile bool   `json:"to_file,omitempty"`
}

// ClearRequest represents the arguments for log_clear.
type ClearRequest struct {
	Confirm bool `json:"confirm"`
}

// VideoSetRequest represents the arguments for video_set.
type VideoSetRequest struct {
	URL string `json:"url"`
}

// Output types

// EntryOutput is one note as returned to clients.
type EntryOutput struct {
	ID        string  `json:"id"`
	Timestamp float64 `json:"timestamp"`
	Time      string  `json:"time"`
	Text      string  `json:"text"`
}

// ListOutput is the result of log_list.
type ListOutput struct {
	VideoID string        `json:"video_id,omitempty"`
	Count   int           `json:"count"`
	Items   []EntryOutput `json:"items"`
}

// ImportOutput is the result of log_import.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Items    []EntryOutput `json:"items"`
}

// ExportOutput is the result of log_export.
type ExportOutput struct {
	Count int    `json:"count"`
	Text  string `json:"text"`
	Path  string `json:"path,omitempty"`
}

// VideoOutput is the result of video_set and video_get.
type VideoOutput struct {
	SourceURL string `json:"source_url"`
	VideoID   string `json:"video_id,omitempty"`
	Changed   bool   `json:"changed,omitempty"`
}

func toOutput(e entry.Entry, full bool) EntryOutput {
	text := e.Text
	if !full {
		text = entry.Preview(text, previewLen)
	}
	return EntryOutput{
		ID:        e.ID,
		Timestamp: e.Timestamp,
		Time:      timecode.Format(e.Timestamp),
		Text:      text,
	}
}

func toOutputs(entries []entry.Entry, full bool) []EntryOutput {
	items := make([]EntryOutput, 0, len(entries))
	for _, e := range entries {
		items = append(items, toOutput(e, full))
	}
	return items
}

// Handler implementations

// HandleAdd handles the log_add tool call.
func (h *Handlers) HandleAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AddRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	seconds, ok := timecode.ParseOffset(input.At)
	if !ok {
		return errorResult(errors.NewInvalidRequest("at must be mm:ss, h:mm:ss or seconds")), nil
	}

	e, err := h.session.AddAt(seconds, input.Text)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(toOutput(e, true))
}

// HandleUpdate handles the log_update tool call.
func (h *Handlers) HandleUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UpdateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	e, err := h.session.Update(input.ID, input.Text)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(toOutput(e, true))
}

// HandleDelete handles the log_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DeleteRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	if !h.session.Delete(input.ID) {
		return errorResult(errors.NewNotFound(input.ID)), nil
	}
	return successResult(map[string]any{"id": input.ID, "deleted": true})
}

// HandleList handles the log_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	entries := h.session.Entries()
	return successResult(ListOutput{
		VideoID: h.session.VideoID(),
		Count:   len(entries),
		Items:   toOutputs(entries, input.IncludeText),
	})
}

// HandleImport handles the log_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	var created []entry.Entry
	switch {
	case input.File != "" && input.Text != "":
		return errorResult(errors.NewInvalidRequest("give either text or file, not both")), nil
	case input.File != "":
		created, err = h.session.ImportFile(h.exportsDir, input.File)
	case strings.TrimSpace(input.Text) != "":
		created, err = h.session.ImportText(input.Text)
	default:
		return errorResult(errors.NewInvalidRequest("text or file is required")), nil
	}
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(ImportOutput{
		Imported: len(created),
		Items:    toOutputs(created, true),
	})
}

// HandleExport handles the log_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	out := ExportOutput{
		Count: len(h.session.Entries()),
		Text:  h.session.ExportText(),
	}
	if input.ToFile || input.File != "" {
		path, n, err := h.session.ExportFile(h.exportsDir, input.File)
		if err != nil {
			return errorResult(err), nil
		}
		out.Path = path
		out.Count = n
	} else {
		metrics.IncExport(metrics.SinkStdout)
	}
	return successResult(out)
}

// HandleClear handles the log_clear tool call.
func (h *Handlers) HandleClear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ClearRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if !input.Confirm {
		return errorResult(errors.NewCancelled("clear")), nil
	}

	n := h.session.Clear()
	return successResult(map[string]any{"deleted": n})
}

// HandleVideoSet handles the video_set tool call.
func (h *Handlers) HandleVideoSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[VideoSetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if strings.TrimSpace(input.URL) == "" {
		return errorResult(errors.NewInvalidRequest("url is required")), nil
	}

	id, changed := h.session.SetSourceURL(input.URL)
	return successResult(VideoOutput{
		SourceURL: h.session.SourceURL(),
		VideoID:   id,
		Changed:   changed,
	})
}

// HandleVideoGet handles the video_get tool call.
func (h *Handlers) HandleVideoGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(VideoOutput{
		SourceURL: h.session.SourceURL(),
		VideoID:   h.session.VideoID(),
	})
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var vErr *errors.VodnoteError
	if stderrors.As(err, &vErr) {
		errorObj := map[string]any{
			"code":    vErr.Code,
			"message": vErr.Message,
			"status":  vErr.Status,
		}
		if vErr.Code == errors.ErrInternal {
			errorObj["message"] = "an internal error occurred"
		} else if vErr.Details != nil {
			errorObj["details"] = vErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
