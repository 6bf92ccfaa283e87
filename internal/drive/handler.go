package drive

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
)

type Handler struct {
	source        FileSource
	ingestService *IngestService
	folderID      string
}

// NewHandler serves the import routes. folderID is the default folder for
// listing and bulk import.
func NewHandler(source FileSource, ingestService *IngestService, folderID string) *Handler {
	return &Handler{
		source:        source,
		ingestService: ingestService,
		folderID:      folderID,
	}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/drive/files", h.ListFiles).Methods(http.MethodGet)
	router.HandleFunc("/api/drive/files/{fileId}/ingest", h.IngestFile).Methods(http.MethodPost)
	router.HandleFunc("/api/drive/ingest", h.IngestFolder).Methods(http.MethodPost)
}

func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.source.ListFiles(r.Context(), h.folder(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if files == nil {
		files = make([]*File, 0)
	}

	writeJSON(w, http.StatusOK, files)
}

func (h *Handler) IngestFile(w http.ResponseWriter, r *http.Request) {
	fileID := mux.Vars(r)["fileId"]
	if fileID == "" {
		http.Error(w, "fileId parameter is required", http.StatusBadRequest)
		return
	}

	result, err := h.ingestService.IngestFile(r.Context(), fileID)
	if err != nil {
		http.Error(w, fmt.Sprintf("ingestion failed: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) IngestFolder(w http.ResponseWriter, r *http.Request) {
	results, err := h.ingestService.IngestFolder(r.Context(), h.folder(r))
	if err != nil {
		http.Error(w, fmt.Sprintf("ingestion failed: %v", err), http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = make([]IngestResult, 0)
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "files": results})
}

func (h *Handler) folder(r *http.Request) string {
	if id := r.URL.Query().Get("folderId"); id != "" {
		return id
	}
	return h.folderID
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
