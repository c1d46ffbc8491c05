package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"

	"github.com/hpungsan/vodnote/internal/entry"
	"github.com/hpungsan/vodnote/internal/errors"
	"github.com/hpungsan/vodnote/internal/metrics"
	"github.com/hpungsan/vodnote/internal/review"
	"github.com/hpungsan/vodnote/internal/timecode"
	"github.com/hpungsan/vodnote/internal/videoref"
)

// maxImportBytes caps the import request body.
const maxImportBytes = 1 << 20

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	session  *review.Session
	renderer *Renderer
}

// importRequest is the JSON body accepted by POST /logs/import.
type importRequest struct {
	Text string `json:"text"`
}

// HandleList handles GET /logs.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	videoID := h.session.VideoID()
	entries := h.session.Entries()

	if wantsJSON(r) {
		items := make([]map[string]any, 0, len(entries))
		for _, e := range entries {
			items = append(items, map[string]any{
				"id":        e.ID,
				"timestamp": e.Timestamp,
				"time":      timecode.Format(e.Timestamp),
				"text":      e.Text,
			})
		}
		renderJSON(w, http.StatusOK, map[string]any{
			"video_id": videoID,
			"count":    len(entries),
			"items":    items,
		})
		return
	}

	imported, _ := strconv.Atoi(r.URL.Query().Get("imported"))
	h.renderer.renderPage(w, "logs", LogsPageData{
		PageData: PageData{
			Title:     "Notes",
			Version:   h.renderer.version,
			CSRFToken: csrf.Token(r),
		},
		VideoID:   videoID,
		SourceURL: h.session.SourceURL(),
		Notes:     noteViews(entries, videoID),
		CSRFField: csrf.TemplateField(r),
		Imported:  imported,
	})
}

// HandleExport handles GET /logs/export. The body is the rewrite-ready text.
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	text := h.session.ExportText()
	metrics.IncExport(metrics.SinkHTTP)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if r.URL.Query().Get("download") != "" {
		name := "notes.txt"
		if id := h.session.VideoID(); id != "" {
			name = id + ".txt"
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	}
	_, _ = io.WriteString(w, text)
}

// HandleImport handles POST /logs/import from the form or as JSON.
func (h *Handlers) HandleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	var text string
	if isJSONBody(r) {
		var req importRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.renderer.renderError(w, r, errors.NewInvalidRequest(fmt.Sprintf("invalid JSON body: %v", err)))
			return
		}
		text = req.Text
	} else {
		if err := r.ParseForm(); err != nil {
			h.renderer.renderError(w, r, errors.NewInvalidRequest(fmt.Sprintf("invalid form: %v", err)))
			return
		}
		text = r.PostFormValue("text")
	}

	created, err := h.session.ImportText(text)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{"imported": len(created)})
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/logs?imported=%d", len(created)), http.StatusSeeOther)
}

// HandleDelete handles DELETE /logs/{id}.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.session.Delete(id) {
		h.renderer.renderError(w, r, errors.NewNotFound(id))
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{"id": id, "deleted": true})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func isJSONBody(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func noteViews(entries []entry.Entry, videoID string) []NoteView {
	views := make([]NoteView, 0, len(entries))
	for _, e := range entries {
		v := NoteView{
			ID:      e.ID,
			Time:    timecode.Format(e.Timestamp),
			Seconds: int64(e.Timestamp),
			HTML:    renderMarkdown(e.Text),
		}
		if videoID != "" {
			v.WatchURL = fmt.Sprintf("%s&t=%ds", videoref.WatchURL(videoID), v.Seconds)
		}
		views = append(views, v)
	}
	return views
}
