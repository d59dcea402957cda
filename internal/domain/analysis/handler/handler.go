// Package handler exposes the analysis service over a JSON HTTP API.
package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/FACorreiaa/sales-insights/internal/domain/analysis/service"
	"github.com/FACorreiaa/sales-insights/internal/domain/export"
	"github.com/FACorreiaa/sales-insights/internal/domain/ingest/reader"
	"github.com/FACorreiaa/sales-insights/internal/domain/ingest/sniffer"
	"github.com/FACorreiaa/sales-insights/pkg/apperr"
	"github.com/FACorreiaa/sales-insights/pkg/scratch"
	"github.com/FACorreiaa/sales-insights/pkg/storage"
)

const (
	sessionName  = "salesdash"
	sessionIDKey = "sid"
)

// Defaults are used when a request omits k or p.
type Defaults struct {
	K          int
	Components int
}

// Upload attributes kept in the storage metadata.
const (
	attrDelimiter   = "delimiter"
	attrSheet       = "sheet"
	attrFingerprint = "fingerprint"
)

// AnalysisHandler handles the upload, analysis, export and scratch routes.
type AnalysisHandler struct {
	analyzer  service.Analyzer
	uploads   storage.Storage
	scratch   *scratch.Store
	sessions  sessions.Store
	defaults  Defaults
	maxUpload int64
	logger    *slog.Logger
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(
	analyzer service.Analyzer,
	uploads storage.Storage,
	scratchStore *scratch.Store,
	sessionStore sessions.Store,
	defaults Defaults,
	maxUpload int64,
	logger *slog.Logger,
) *AnalysisHandler {
	return &AnalysisHandler{
		analyzer:  analyzer,
		uploads:   uploads,
		scratch:   scratchStore,
		sessions:  sessionStore,
		defaults:  defaults,
		maxUpload: maxUpload,
		logger:    logger,
	}
}

// Register mounts the API routes on mux.
func (h *AnalysisHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/uploads", h.Upload)
	mux.HandleFunc("GET /api/uploads", h.ListUploads)
	mux.HandleFunc("GET /api/uploads/{id}/dashboard", h.Dashboard)
	mux.HandleFunc("GET /api/uploads/{id}/pca", h.PCA)
	mux.HandleFunc("GET /api/uploads/{id}/kmeans", h.KMeans)
	mux.HandleFunc("GET /api/uploads/{id}/export/{kind}", h.Export)
	mux.HandleFunc("GET /api/scratch", h.ListScratch)
	mux.HandleFunc("GET /api/scratch/bundle.zip", h.Bundle)
	mux.HandleFunc("GET /api/scratch/{name}", h.GetScratch)
	mux.HandleFunc("POST /api/scratch/{name}", h.PutScratch)
	mux.HandleFunc("GET /healthz", h.Health)
}

type uploadResponse struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Size        int64      `json:"size"`
	SHA256      string     `json:"sha256"`
	Sheets      []string   `json:"sheets,omitempty"`
	Headers     []string   `json:"headers,omitempty"`
	Fingerprint string     `json:"fingerprint,omitempty"`
	Preview     [][]string `json:"preview,omitempty"`
}

// Upload stores a multipart file with its reader hints. Workbooks report their
// sheets; delimited text reports the detected header, its fingerprint and a
// preview of the first rows.
func (h *AnalysisHandler) Upload(w http.ResponseWriter, r *http.Request) {
	sid, err := h.sessionID(w, r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, h.logger, apperr.BadRequest("Falta el archivo", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, h.logger, apperr.BadRequest("No se pudo recibir el archivo", err))
		return
	}
	if len(data) == 0 {
		writeError(w, r, h.logger, apperr.FileIO(reader.ReadFailedMessage, reader.ErrEmptyInput))
		return
	}

	rawDelimiter := r.FormValue("delimiter")
	if _, err := parseDelimiter(rawDelimiter); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	attrs := map[string]string{}
	if rawDelimiter != "" {
		attrs[attrDelimiter] = rawDelimiter
	}
	if sheet := r.FormValue("sheet"); sheet != "" {
		attrs[attrSheet] = sheet
	}

	var resp uploadResponse
	switch {
	case isWorkbook(header.Filename):
		if sheets, err := reader.ListSheets(data); err == nil {
			resp.Sheets = sheets
		}
	case !reader.IsPDF(data):
		if cfg, err := sniffer.DetectConfig(data); err == nil {
			resp.Headers, resp.Fingerprint, resp.Preview = cfg.Headers, cfg.Fingerprint, cfg.SampleRows
			attrs[attrFingerprint] = cfg.Fingerprint
		}
	}

	info, err := h.uploads.Save(r.Context(), sid, header.Filename, header.Header.Get("Content-Type"), data, attrs)
	if err != nil {
		writeError(w, r, h.logger, fmt.Errorf("save upload: %w", err))
		return
	}
	resp.ID, resp.Name, resp.Size, resp.SHA256 = info.ID, info.Name, info.Size, info.SHA256

	h.logger.Info("upload stored",
		slog.String("session", sid.String()),
		slog.String("file_id", info.ID.String()),
		slog.Int64("size", info.Size),
	)
	writeSuccess(w, http.StatusCreated, resp)
}

// ListUploads lists the session's uploads.
func (h *AnalysisHandler) ListUploads(w http.ResponseWriter, r *http.Request) {
	sid, err := h.sessionID(w, r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	files, err := h.uploads.List(r.Context(), sid)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, files)
}

func (h *AnalysisHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	in, err := h.input(w, r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	out, err := h.analyzer.Dashboard(r.Context(), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, out)
}

func (h *AnalysisHandler) PCA(w http.ResponseWriter, r *http.Request) {
	in, err := h.input(w, r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	p, err := intParam(r, "p", h.defaults.Components)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	out, err := h.analyzer.PCA(r.Context(), in, listParam(r, "cols"), p)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, out)
}

func (h *AnalysisHandler) KMeans(w http.ResponseWriter, r *http.Request) {
	in, err := h.input(w, r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	k, err := intParam(r, "k", h.defaults.K)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	out, err := h.analyzer.KMeans(r.Context(), in, listParam(r, "cols"), k)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, out)
}

// Export renders one artifact, keeps a copy in the session scratch area and
// sends it as an attachment.
func (h *AnalysisHandler) Export(w http.ResponseWriter, r *http.Request) {
	in, err := h.input(w, r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	kind := r.PathValue("kind")

	body, contentType, err := service.Export(r.Context(), h.analyzer, in, kind)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if sid, err := h.sessionID(w, r); err == nil {
		if _, err := h.scratch.Put(sid, kind, body); err != nil {
			h.logger.Warn("failed to keep export in scratch", slog.Any("error", err))
		}
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", kind))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// PutScratch stores the request body as a named session artifact.
func (h *AnalysisHandler) PutScratch(w http.ResponseWriter, r *http.Request) {
	sid, err := h.sessionID(w, r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxUpload))
	if err != nil {
		writeError(w, r, h.logger, apperr.BadRequest("No se pudo recibir el contenido", err))
		return
	}

	artifact, err := h.scratch.Put(sid, r.PathValue("name"), data)
	if err != nil {
		writeError(w, r, h.logger, apperr.BadRequest("Nombre inválido", err))
		return
	}
	writeSuccess(w, http.StatusCreated, artifact)
}

// GetScratch downloads one session artifact.
func (h *AnalysisHandler) GetScratch(w http.ResponseWriter, r *http.Request) {
	sid, err := h.sessionID(w, r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	name, err := scratch.CleanName(r.PathValue("name"))
	if err != nil {
		writeError(w, r, h.logger, apperr.BadRequest("Nombre inválido", err))
		return
	}
	data, err := h.scratch.Get(sid, name)
	if err != nil {
		writeError(w, r, h.logger, apperr.NotFound("Artefacto no encontrado"))
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *AnalysisHandler) ListScratch(w http.ResponseWriter, r *http.Request) {
	sid, err := h.sessionID(w, r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, h.scratch.List(sid))
}

// Bundle downloads every session artifact as one ZIP archive.
func (h *AnalysisHandler) Bundle(w http.ResponseWriter, r *http.Request) {
	sid, err := h.sessionID(w, r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	files := h.scratch.Files(sid)
	if len(files) == 0 {
		writeError(w, r, h.logger, apperr.NotFound("No hay artefactos en la sesión"))
		return
	}

	var buf bytes.Buffer
	if err := export.Bundle(&buf, files); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="bundle.zip"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *AnalysisHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// input loads the upload named by the {id} path value and merges the query
// hints over the ones stored with the upload.
func (h *AnalysisHandler) input(w http.ResponseWriter, r *http.Request) (service.Input, error) {
	sid, err := h.sessionID(w, r)
	if err != nil {
		return service.Input{}, err
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return service.Input{}, apperr.BadRequest("Identificador inválido", err)
	}

	data, info, err := h.uploads.Read(r.Context(), sid, id)
	if err != nil {
		if storage.IsNotFound(err) {
			return service.Input{}, apperr.NotFound("Archivo no encontrado")
		}
		return service.Input{}, err
	}

	rawDelimiter, sheet := info.Attributes[attrDelimiter], info.Attributes[attrSheet]
	q := r.URL.Query()
	if q.Has("delimiter") {
		rawDelimiter = q.Get("delimiter")
	}
	if q.Has("sheet") {
		sheet = q.Get("sheet")
	}
	delimiter, err := parseDelimiter(rawDelimiter)
	if err != nil {
		return service.Input{}, err
	}
	sheetIndex, err := intParam(r, "sheet_index", 0)
	if err != nil {
		return service.Input{}, err
	}

	return service.Input{
		Data:       data,
		FileName:   info.Name,
		Delimiter:  delimiter,
		Sheet:      sheet,
		SheetIndex: sheetIndex,
	}, nil
}

// sessionID returns the caller's session id, issuing a cookie on first use.
func (h *AnalysisHandler) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, error) {
	// A cookie that fails to decode yields a fresh session, which is fine.
	sess, _ := h.sessions.Get(r, sessionName)

	if raw, ok := sess.Values[sessionIDKey].(string); ok {
		if id, err := uuid.Parse(raw); err == nil {
			return id, nil
		}
	}

	id := uuid.New()
	sess.Values[sessionIDKey] = id.String()
	if err := sess.Save(r, w); err != nil {
		return uuid.Nil, fmt.Errorf("save session: %w", err)
	}
	return id, nil
}

func parseDelimiter(raw string) (rune, error) {
	switch raw {
	case "":
		return 0, nil
	case "tab", `\t`, "\t":
		return '\t', nil
	case ",", ";", "|":
		return rune(raw[0]), nil
	}
	return 0, apperr.BadRequest("Delimitador no soportado", errors.New(raw))
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.BadRequest(fmt.Sprintf("Parámetro %s inválido", name), err)
	}
	return v, nil
}

func listParam(r *http.Request, name string) []string {
	var out []string
	for _, v := range r.URL.Query()[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func isWorkbook(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".xls":
		return true
	}
	return false
}
