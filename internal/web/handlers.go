package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/JonMunkholm/sheetload/internal/core"
	"github.com/JonMunkholm/sheetload/internal/logging"
)

// multipartMemory is how much of a multipart form is held in memory before
// parts spill to temporary files.
const multipartMemory = 32 << 20

type validateResponse struct {
	Message string `json:"message"`
	*core.ValidationSummary
}

type insertRequest struct {
	SessionID string `json:"sessionId"`
}

type insertResponse struct {
	Message string `json:"message"`
	*core.InsertResult
}

type uploadResponse struct {
	Message string `json:"message"`
	*core.UploadResult
}

type exportRequest struct {
	Headers        []string             `json:"headers"`
	InvalidRecords []core.InvalidRecord `json:"invalidRecords"`
}

// handleValidate validates an uploaded sheet and stages its valid rows.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	s.withUpload(w, r, func(name string, file io.Reader) {
		sum, err := s.service.Validate(r.Context(), name, file)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, validateResponse{Message: "Validation complete", ValidationSummary: sum})
	})
}

// handleInsert inserts a previously validated session.
func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	var req insertRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	res, err := s.service.Insert(r.Context(), req.SessionID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, insertResponse{Message: "Data inserted", InsertResult: res})
}

// handleUpload validates a sheet and inserts its valid rows in one call.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	s.withUpload(w, r, func(name string, file io.Reader) {
		res, err := s.service.Upload(r.Context(), name, file)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, uploadResponse{Message: "Excel processed", UploadResult: res})
	})
}

// handleExportInvalid renders posted invalid records as an xlsx download.
func (s *Server) handleExportInvalid(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="Invalid_Records.xlsx"`)
	if err := s.service.ExportInvalid(w, req.Headers, req.InvalidRecords); err != nil {
		// Headers may be sent already; the client sees a truncated file.
		logging.FromContext(r.Context()).Error("export invalid records", "error", err)
	}
}

// handleColumnTypes lists the configured column types.
func (s *Server) handleColumnTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"columnTypes": s.service.ColumnTypes()})
}

type healthResponse struct {
	Status   string             `json:"status"`
	Database string             `json:"database"`
	Ingests  core.LimiterStatus `json:"ingests"`
}

// handleHealth reports database reachability and ingest slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Database: "ok", Ingests: s.service.LimiterStatus()}
	status := http.StatusOK
	if err := s.service.Ping(ctx); err != nil {
		logging.FromContext(ctx).Warn("health check failed", "error", err)
		resp.Status, resp.Database = "degraded", "unreachable"
		status = http.StatusServiceUnavailable
	}
	writeJSONStatus(w, status, resp)
}

// withUpload parses a multipart request with a size cap and passes the
// "file" part to fn. Temporary files are removed afterwards.
func (s *Server) withUpload(w http.ResponseWriter, r *http.Request, fn func(name string, file io.Reader)) {
	maxSize := s.cfg.Ingest.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.respondError(w, r, errFileTooLarge)
			return
		}
		s.respondError(w, r, errNoFile)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, errNoFile)
		return
	}
	defer file.Close()

	logging.FromContext(r.Context()).Debug("upload received", "file", header.Filename, "size", header.Size)

	fn(header.Filename, file)
}

// decodeJSON reads a JSON body into v. Exported invalid records carry the
// raw rows back, so the cap is a multiple of the upload limit.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 4*s.cfg.Ingest.MaxFileSize)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errBadBody
	}
	return nil
}
