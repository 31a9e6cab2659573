// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Shivanand-hulikatti/eventhub/internal/apperr"
	"github.com/Shivanand-hulikatti/eventhub/internal/auth"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
	"github.com/Shivanand-hulikatti/eventhub/internal/service"
)

const (
	maxJSONBody   = 1 << 20
	maxUploadSize = 5 << 20
)

var imageTypes = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.MessageResponse{Message: msg})
}

// writeError maps err onto a status and JSON envelope. Internal errors are
// logged and never echoed to the client.
func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	e, ok := apperr.As(err)
	if !ok || e.Kind == apperr.KindInternal {
		log.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{
			Error: "internal error", Code: string(apperr.CodeInternal),
		})
		return
	}
	if e.Kind == apperr.KindUpstream {
		log.WarnContext(r.Context(), "upstream failure",
			"method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, e.Kind.HTTPStatus(), model.ErrorResponse{
		Error: e.Message, Code: string(e.Code), Fields: e.Fields,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	return decodeStrict(r.Body, dst)
}

func decodeStrict(body io.Reader, dst any) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Invalid("request body is empty")
		}
		return apperr.Invalid("invalid request body: " + err.Error())
	}
	return nil
}

func isMultipart(r *http.Request) bool {
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && ct == "multipart/form-data"
}

// decodeWithUpload reads either a JSON body or a multipart form whose "data"
// part holds the JSON document and whose fileField part holds an image.
func decodeWithUpload(w http.ResponseWriter, r *http.Request, dst any, fileField string) (*service.Upload, error) {
	if !isMultipart(r) {
		return nil, decodeJSON(w, r, dst)
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+maxJSONBody)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, apperr.CodeUploadInvalid, "invalid multipart form", err)
	}
	if data := r.FormValue("data"); data != "" {
		if err := decodeStrict(strings.NewReader(data), dst); err != nil {
			return nil, err
		}
	}

	f, hdr, err := r.FormFile(fileField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, apperr.CodeUploadInvalid, "could not read "+fileField, err)
	}
	defer f.Close()

	if !imageTypes[strings.ToLower(filepath.Ext(hdr.Filename))] {
		return nil, apperr.New(apperr.KindValidation, apperr.CodeUploadInvalid, fileField+" must be an image")
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(f, maxUploadSize+1)); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, apperr.CodeUploadInvalid, "could not read "+fileField, err)
	}
	if buf.Len() > maxUploadSize {
		return nil, apperr.New(apperr.KindValidation, apperr.CodeUploadInvalid, fileField+" is too large")
	}
	return &service.Upload{Name: hdr.Filename, Data: buf.Bytes()}, nil
}

// pageFromQuery reads page, limit, sortBy and sortOrder.
func pageFromQuery(r *http.Request) model.Page {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return model.Page{
		Page:      page,
		Limit:     limit,
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}
}

func boolQuery(r *http.Request, key string) *bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(key))
	if err != nil {
		return nil
	}
	return &v
}

// identity returns the caller set by Authenticate. Routes that reach a
// handler without one are mounted outside the authenticated group by mistake.
func identity(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Pinger is a dependency the readiness probe checks.
type Pinger func(ctx context.Context) error

// Readiness handles GET /readyz by pinging every named dependency.
func Readiness(checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		out := make(map[string]string, len(checks))
		for name, ping := range checks {
			if err := ping(r.Context()); err != nil {
				out[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			out[name] = "ok"
		}
		writeJSON(w, status, out)
	}
}
