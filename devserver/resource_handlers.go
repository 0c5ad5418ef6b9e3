package devserver

import (
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/jrsteele09/go-admin-client/internal/errors"
	"github.com/jrsteele09/go-admin-client/resources"
)

// uploadedFile describes a stored multipart file; content is not kept.
type uploadedFile struct {
	Field string `json:"field"`
	Name  string `json:"name"`
	Size  int64  `json:"size"`
}

func (s *Server) ListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, ok := resourceName(w, r)
		if !ok {
			return
		}
		q := r.URL.Query()
		page := atoiOr(q.Get("page"), 1)
		limit := atoiOr(q.Get("limit"), 0)

		filter := map[string]string{}
		for k := range q {
			if k != "page" && k != "limit" {
				filter[k] = q.Get(k)
			}
		}
		writeJSON(w, http.StatusOK, s.records.list(name, filter, page, limit))
	}
}

func (s *Server) GetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, ok := resourceName(w, r)
		if !ok {
			return
		}
		rec, err := s.records.get(name, r.PathValue("id"))
		if err != nil {
			writeRecordError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func (s *Server) CreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, ok := resourceName(w, r)
		if !ok {
			return
		}
		rec, err := readRecord(r, resources.Name(name))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, s.records.create(name, rec))
	}
}

func (s *Server) UpdateHandler(partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, ok := resourceName(w, r)
		if !ok {
			return
		}
		rec, err := readRecord(r, resources.Name(name))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		updated, err := s.records.update(name, r.PathValue("id"), rec, partial)
		if err != nil {
			writeRecordError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func (s *Server) DeleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, ok := resourceName(w, r)
		if !ok {
			return
		}
		if err := s.records.delete(name, r.PathValue("id")); err != nil {
			writeRecordError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func resourceName(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := r.PathValue("resource")
	if !resources.Known(name) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown resource %q", name))
		return "", false
	}
	return name, true
}

func writeRecordError(w http.ResponseWriter, err error) {
	if errors.Is(err, errors.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeError(w, http.StatusInternalServerError, "internal error")
}

// readRecord decodes a JSON body, or a multipart form for resources that take files.
func readRecord(r *http.Request, name resources.Name) (Record, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var rec Record
		if err := readJSON(r, &rec); err != nil {
			return nil, fmt.Errorf("malformed json body")
		}
		if rec == nil {
			rec = Record{}
		}
		return rec, nil
	}

	if !name.Multipart() {
		return nil, fmt.Errorf("%s does not accept files", name)
	}
	if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
		return nil, fmt.Errorf("malformed multipart body")
	}
	defer r.MultipartForm.RemoveAll()

	rec := Record{}
	for k, values := range r.MultipartForm.Value {
		if len(values) > 0 {
			rec[k] = values[0]
		}
	}
	var files []uploadedFile
	for field, headers := range r.MultipartForm.File {
		for _, fh := range headers {
			f, err := fh.Open()
			if err != nil {
				return nil, fmt.Errorf("unreadable file %q", fh.Filename)
			}
			n, err := io.Copy(io.Discard, f)
			f.Close()
			if err != nil {
				return nil, fmt.Errorf("unreadable file %q", fh.Filename)
			}
			files = append(files, uploadedFile{Field: field, Name: fh.Filename, Size: n})
		}
	}
	if len(files) > 0 {
		rec["files"] = files
	}
	return rec, nil
}
