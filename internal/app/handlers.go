package app

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const submitSchemaJSON = `{
	"type": "object",
	"required": ["filename", "content"],
	"properties": {
		"filename": {"type": "string", "minLength": 1},
		"content": {"type": "string", "minLength": 1}
	},
	"additionalProperties": false
}`

var submitSchema = mustCompileSchema("submit.json", submitSchemaJSON)

func mustCompileSchema(name string, src string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(src)); err != nil {
		panic(err)
	}
	return compiler.MustCompile(name)
}

type submitRequest struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

func (a *App) handleSubmitDocument(w http.ResponseWriter, r *http.Request) {
	var raw any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := submitSchema.Validate(raw); err != nil {
		http.Error(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}
	data, _ := json.Marshal(raw)
	var req submitRequest
	_ = json.Unmarshal(data, &req)

	ctx := r.Context()
	docID, err := a.Store.InsertDocument(ctx, req.Filename, req.Content)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	runID, err := a.Store.CreateRun(ctx, docID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := a.Queue.PushSummaryJob(ctx, runID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"document_id": docID,
		"run_id":      runID,
		"status":      "queued",
	})
}

func (a *App) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	run, chunkResults, err := a.Store.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	chunks := make([]map[string]any, 0, len(chunkResults))
	for _, cr := range chunkResults {
		chunks = append(chunks, map[string]any{
			"position":   cr.Position,
			"role":       cr.Role,
			"provider":   cr.Provider,
			"attempts":   cr.Attempts,
			"ok":         cr.OK,
			"error":      cr.Error,
			"elapsed_ms": cr.ElapsedMS,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":      run.ID,
		"document_id": run.DocumentID,
		"status":      run.Status,
		"summary":     run.Summary,
		"degraded":    run.Degraded,
		"total_ms":    run.TotalMS,
		"chunks":      chunks,
	})
}

func (a *App) handleProviderStatus(w http.ResponseWriter, r *http.Request) {
	snapshot := a.Avail.Snapshot(a.Engine.Names())
	out := make([]map[string]any, 0, len(snapshot))
	for _, ps := range snapshot {
		entry := map[string]any{
			"name":      ps.Name,
			"status":    ps.Status,
			"calls":     ps.Calls,
			"successes": ps.Successes,
		}
		if ps.CooldownRemaining > 0 {
			entry["cooldown_remaining_seconds"] = int(ps.CooldownRemaining.Seconds())
		}
		if ps.LastError != "" {
			entry["last_error"] = ps.LastError
			entry["last_class"] = ps.LastClass
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": out})
}

func (a *App) handleProviderReset(w http.ResponseWriter, r *http.Request) {
	a.Avail.ResetAll()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
