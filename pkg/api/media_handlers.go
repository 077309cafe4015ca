package api

import (
	"net/http"
	"strings"

	"github.com/makersite/makersite/pkg/audit"
	"github.com/makersite/makersite/pkg/httputil"
	"github.com/makersite/makersite/pkg/media"
)

// maxUploadBytes caps a single multipart upload request
const maxUploadBytes = 64 << 20

func (s *Server) listMedia(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	page, err := s.deps.Media.List(r.Context(), actor, httputil.ParseParams(r, "type", "user_id"))
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WritePage(w, page)
}

func (s *Server) uploadMedia(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httputil.WriteBadRequest(w, "invalid multipart request")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteBadRequest(w, "file field is required")
		return
	}
	defer file.Close()

	item, err := s.deps.Media.Upload(r.Context(), actor, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteCreated(w, item)
}

func (s *Server) bulkUploadMedia(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httputil.WriteBadRequest(w, "invalid multipart request")
		return
	}

	var items []media.UploadItem
	var closers []interface{ Close() error }
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	if r.MultipartForm != nil {
		for _, headers := range r.MultipartForm.File {
			for _, header := range headers {
				file, err := header.Open()
				if err != nil {
					httputil.WriteBadRequest(w, "unreadable file part: "+header.Filename)
					return
				}
				closers = append(closers, file)
				items = append(items, media.UploadItem{
					OriginalName: header.Filename,
					MimeType:     header.Header.Get("Content-Type"),
					Content:      file,
				})
			}
		}
	}

	result, err := s.deps.Media.BulkUpload(r.Context(), actor, items)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteCreated(w, result)
}

func (s *Server) getMedia(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	item, err := s.deps.Media.Get(r.Context(), actor, id)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteData(w, item)
}

func (s *Server) updateMediaTags(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var in struct {
		Tags []string `json:"tags"`
	}
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}
	for i, tag := range in.Tags {
		in.Tags[i] = strings.TrimSpace(tag)
	}

	item, err := s.deps.Media.UpdateTags(r.Context(), actor, id, in.Tags)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteData(w, item)
}

func (s *Server) deleteMedia(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := s.deps.Media.Delete(r.Context(), actor, id); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	s.record(r, audit.EventTypeMediaDelete, actor, id, "media deleted")
	httputil.WriteData(w, map[string]bool{"deleted": true})
}
