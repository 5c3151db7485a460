package reports

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Handler provides HTTP access to report templates, inline rendering, and
// archived exports.
type Handler struct {
	Exporter *Exporter
}

// NewHandler constructs a report HTTP handler.
func NewHandler(exporter *Exporter) *Handler {
	return &Handler{Exporter: exporter}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Exporter == nil {
		writeError(w, http.StatusInternalServerError, "report exporter not configured")
		return
	}

	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case r.Method == http.MethodGet && path == "/api/v1/reports/templates":
		h.handleListTemplates(w)
	case r.Method == http.MethodGet && path == "/api/v1/reports/artifacts":
		h.handleListArtifacts(w, r)
	case strings.HasPrefix(path, "/api/v1/reports/"):
		h.handleTemplate(w, r, strings.TrimPrefix(path, "/api/v1/reports/"))
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleListTemplates(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]any{"templates": Templates()})
}

func (h *Handler) handleListArtifacts(w http.ResponseWriter, r *http.Request) {
	infos, err := h.Exporter.ListArtifacts(r.Context(), r.URL.Query().Get("template"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"artifacts": infos})
}

func (h *Handler) handleTemplate(w http.ResponseWriter, r *http.Request, remainder string) {
	segments := strings.Split(remainder, "/")
	key := segments[0]
	template, ok := ResolveTemplate(key)
	if !ok {
		writeError(w, http.StatusNotFound, "report template not found")
		return
	}

	switch {
	case len(segments) == 1 && r.Method == http.MethodGet:
		h.handleRun(w, r, template)
	case len(segments) == 2 && segments[1] == "export" && r.Method == http.MethodPost:
		h.handleExport(w, r, template)
	case len(segments) == 1 || (len(segments) == 2 && segments[1] == "export"):
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	default:
		writeError(w, http.StatusNotFound, "report endpoint not found")
	}
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request, template Template) {
	result, err := h.Exporter.Run(r.Context(), template.Key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	switch negotiateFormat(r) {
	case FormatCSV:
		streamCSV(w, result)
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

type exportRequest struct {
	Formats []string `json:"formats"`
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request, template Template) {
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err.Error() != "EOF" {
		writeError(w, http.StatusBadRequest, "invalid export request payload")
		return
	}
	formats := make([]Format, 0, len(req.Formats))
	for _, f := range req.Formats {
		switch Format(strings.ToLower(strings.TrimSpace(f))) {
		case FormatJSON:
			formats = append(formats, FormatJSON)
		case FormatCSV:
			formats = append(formats, FormatCSV)
		default:
			writeError(w, http.StatusBadRequest, "unsupported export format")
			return
		}
	}
	artifacts, err := h.Exporter.Export(r.Context(), template.Key, formats)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"artifacts": artifacts})
}

func negotiateFormat(r *http.Request) Format {
	wanted := strings.ToLower(r.URL.Query().Get("format"))
	if wanted == "" && strings.Contains(r.Header.Get("Accept"), "text/csv") {
		wanted = string(FormatCSV)
	}
	if Format(wanted) == FormatCSV {
		return FormatCSV
	}
	return FormatJSON
}

func streamCSV(w http.ResponseWriter, result RunResult) {
	filename := fmt.Sprintf("%s-%s.csv", result.Template.Key, time.Now().UTC().Format("20060102T150405Z"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	writer := csv.NewWriter(w)
	defer writer.Flush()

	headers := make([]string, len(result.Template.Columns))
	for i, column := range result.Template.Columns {
		headers[i] = column.Name
	}
	if err := writer.Write(headers); err != nil {
		return
	}
	for _, row := range result.Rows {
		record := make([]string, len(result.Template.Columns))
		for i, column := range result.Template.Columns {
			record[i] = formatValue(row[column.Name])
		}
		if err := writer.Write(record); err != nil {
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
