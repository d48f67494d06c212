package httpadapter

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
)

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if rt.cfg.MaxUploadMB > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, int64(rt.cfg.MaxUploadMB)<<20)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if status := mapErrorToHTTPStatus(err); status == http.StatusRequestEntityTooLarge {
			writeJSON(w, status, map[string]string{"error": "upload exceeds the size limit"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart form with a 'file' field is required"})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	tenant, err := tenantFrom(r, r.FormValue("tenant_id"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	doc, err := rt.svc.Ingest.Upload(r.Context(), domain.UploadRequest{
		TenantID:   tenant,
		Category:   r.FormValue("category"),
		UploadedBy: r.FormValue("uploaded_by"),
		Filename:   header.Filename,
		MimeType:   partMimeType(header.Header.Get("Content-Type"), header.Filename),
		Body:       file,
	})
	var size int64
	if doc != nil {
		size = doc.Size
	}
	rt.metrics.RecordUpload(serviceName, "file", size, err)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, doc)
}

// partMimeType trusts a specific declared type; generic ones defer to the
// file extension.
func partMimeType(declared, filename string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && !strings.HasPrefix(declared, "application/octet-stream") {
		return declared
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		return byExt
	}
	return declared
}

type remoteDocumentRequest struct {
	TenantID   string `json:"tenant_id"`
	URL        string `json:"url"`
	Filename   string `json:"filename"`
	MimeType   string `json:"mime_type"`
	Category   string `json:"category"`
	UploadedBy string `json:"uploaded_by"`
}

func (rt *Router) registerRemoteDocument(w http.ResponseWriter, r *http.Request) {
	var req remoteDocumentRequest
	if err := decodeJSON(r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}
	tenant, err := tenantFrom(r, req.TenantID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	doc, err := rt.svc.Ingest.RegisterRemote(r.Context(), domain.RemoteDocumentRequest{
		TenantID:   tenant,
		Category:   req.Category,
		UploadedBy: req.UploadedBy,
		URL:        req.URL,
		Filename:   req.Filename,
		MimeType:   req.MimeType,
	})
	rt.metrics.RecordUpload(serviceName, "url", 0, err)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tenant, err := tenantFrom(r, q.Get("tenant_id"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	docs, err := rt.svc.Documents.List(r.Context(), domain.DocumentFilter{
		TenantID: tenant,
		Category: q.Get("category"),
		Status:   domain.DocumentStatus(q.Get("status")),
	})
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs, "count": len(docs)})
}

// documentTenant resolves the caller's tenant for the id routes: the
// tenant_id query parameter, then the header.
func documentTenant(r *http.Request) (string, error) {
	return tenantFrom(r, r.URL.Query().Get("tenant_id"))
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	tenant, err := documentTenant(r)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	doc, err := rt.svc.Documents.GetByID(r.Context(), tenant, r.PathValue("id"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) deleteDocument(w http.ResponseWriter, r *http.Request) {
	tenant, err := documentTenant(r)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if err := rt.svc.Documents.Delete(r.Context(), tenant, r.PathValue("id")); err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) reprocessDocument(w http.ResponseWriter, r *http.Request) {
	tenant, err := documentTenant(r)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	doc, err := rt.svc.Documents.Reprocess(r.Context(), tenant, r.PathValue("id"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, doc)
}
