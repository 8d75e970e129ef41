package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/trellis-notes/trellis/internal/config"
	apperrors "github.com/trellis-notes/trellis/internal/errors"
	"github.com/trellis-notes/trellis/internal/logger"
	"github.com/trellis-notes/trellis/internal/search"
	"github.com/trellis-notes/trellis/internal/services"
)

type APIServer struct {
	cfg      *config.Config
	services *services.Services
	server   *http.Server
}

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type SearchRequest struct {
	Query           string `json:"query"`
	FastSearch      bool   `json:"fastSearch"`
	IncludeArchived bool   `json:"includeArchived"`
	FuzzyAttributes bool   `json:"fuzzyAttributes"`
	Limit           int    `json:"limit"`
}

type CreateNoteRequest struct {
	ParentNoteID string `json:"parentNoteId"`
	Title        string `json:"title"`
	Type         string `json:"type"`
	Mime         string `json:"mime"`
	Content      string `json:"content"`
}

type UpdateNoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type CreateAttributeRequest struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Value       string `json:"value"`
	Inheritable bool   `json:"inheritable"`
}

type MoveBranchRequest struct {
	ParentNoteID string `json:"parentNoteId"`
}

type CloneNoteRequest struct {
	ParentNoteID string `json:"parentNoteId"`
}

func NewAPIServer(cfg *config.Config, svc *services.Services) *APIServer {
	return &APIServer{
		cfg:      cfg,
		services: svc,
	}
}

func (s *APIServer) Start(host string, port int) error {
	router := mux.NewRouter()

	api := router.PathPrefix("/api/v1").Subrouter()

	// Notes endpoints
	api.HandleFunc("/notes", s.handleListNotes).Methods("GET")
	api.HandleFunc("/notes", s.handleCreateNote).Methods("POST")
	api.HandleFunc("/notes/search", s.handleSearchNotes).Methods("POST")
	api.HandleFunc("/notes/{id}", s.handleGetNote).Methods("GET")
	api.HandleFunc("/notes/{id}", s.handleUpdateNote).Methods("PUT")
	api.HandleFunc("/notes/{id}", s.handleDeleteNote).Methods("DELETE")
	api.HandleFunc("/notes/{id}/children", s.handleNoteChildren).Methods("GET")
	api.HandleFunc("/notes/{id}/clone", s.handleCloneNote).Methods("POST")

	// Attributes endpoints
	api.HandleFunc("/notes/{id}/attributes", s.handleListAttributes).Methods("GET")
	api.HandleFunc("/notes/{id}/attributes", s.handleCreateAttribute).Methods("POST")
	api.HandleFunc("/attributes/{id}", s.handleUpdateAttribute).Methods("PUT")
	api.HandleFunc("/attributes/{id}", s.handleDeleteAttribute).Methods("DELETE")

	// Tree endpoints
	api.HandleFunc("/branches/{id}/move", s.handleMoveBranch).Methods("PUT")

	// Statistics and info endpoints
	api.HandleFunc("/stats", s.handleStats).Methods("GET")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           86400,
	})

	handler := c.Handler(router)

	addr := fmt.Sprintf("%s:%d", host, port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("Starting HTTP API server on %s", addr)
	return s.server.ListenAndServe()
}

func (s *APIServer) Stop() error {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *APIServer) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := APIResponse{
		Success: statusCode < 400,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("Failed to encode JSON response: %v", err)
	}
}

func (s *APIServer) writeError(w http.ResponseWriter, statusCode int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := APIResponse{
		Success: false,
		Error:   err.Error(),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("Failed to encode JSON response: %v", err)
	}
}

// writeServiceError maps service errors onto HTTP status codes.
func (s *APIServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case apperrors.IsValidation(err) || apperrors.IsParse(err):
		s.writeError(w, http.StatusBadRequest, err)
	case err == apperrors.ErrNoteNotFound || err == apperrors.ErrAttributeNotFound || err == apperrors.ErrBranchNotFound:
		s.writeError(w, http.StatusNotFound, err)
	case err == apperrors.ErrEmptyTitle:
		s.writeError(w, http.StatusBadRequest, err)
	case err == apperrors.ErrReadOnly:
		s.writeError(w, http.StatusForbidden, err)
	default:
		s.writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *APIServer) pathParam(r *http.Request, param string) (string, error) {
	vars := mux.Vars(r)
	value, exists := vars[param]
	if !exists || value == "" {
		return "", fmt.Errorf("missing parameter: %s", param)
	}
	return value, nil
}

// Handlers

func (s *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"readOnly":  s.services.DB.IsReadOnly(),
	}

	if err := s.services.DB.Conn().Ping(); err != nil {
		health["status"] = "unhealthy"
		health["databaseError"] = err.Error()
		s.writeJSON(w, http.StatusServiceUnavailable, health)
		return
	}

	s.writeJSON(w, http.StatusOK, health)
}

func (s *APIServer) handleStats(w http.ResponseWriter, r *http.Request) {
	notes := s.services.Store.Notes()

	labels := 0
	relations := 0
	for _, note := range notes {
		labels += s.services.Store.LabelCount(note.NoteID)
		relations += s.services.Store.RelationCount(note.NoteID)
	}

	stats := map[string]interface{}{
		"noteCount":     len(notes),
		"labelCount":    labels,
		"relationCount": relations,
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *APIServer) handleListNotes(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.services.Notes.List())
}

func (s *APIServer) handleGetNote(w http.ResponseWriter, r *http.Request) {
	id, err := s.pathParam(r, "id")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	note, err := s.services.Notes.GetByID(id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, note)
}

func (s *APIServer) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	note, err := s.services.Notes.Create(req.ParentNoteID, req.Title, req.Type, req.Mime, req.Content)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, note)
}

func (s *APIServer) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	id, err := s.pathParam(r, "id")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	// Missing fields keep their current values.
	existing, err := s.services.Notes.GetByID(id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if req.Title == "" {
		req.Title = existing.Title
	}
	if req.Content == "" {
		req.Content = existing.Content
	}

	note, err := s.services.Notes.Update(id, req.Title, req.Content)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, note)
}

func (s *APIServer) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	id, err := s.pathParam(r, "id")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.services.Notes.Delete(id); err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

func (s *APIServer) handleNoteChildren(w http.ResponseWriter, r *http.Request) {
	id, err := s.pathParam(r, "id")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if _, err := s.services.Notes.GetByID(id); err != nil {
		s.writeServiceError(w, err)
		return
	}

	children := make([]map[string]interface{}, 0)
	for _, childID := range s.services.Store.ChildNoteIDs(id) {
		child := s.services.Store.GetNote(childID)
		if child == nil {
			continue
		}
		children = append(children, map[string]interface{}{
			"noteId":        child.NoteID,
			"title":         child.Title,
			"childrenCount": s.services.Store.ChildrenCount(childID),
		})
	}

	s.writeJSON(w, http.StatusOK, children)
}

func (s *APIServer) handleCloneNote(w http.ResponseWriter, r *http.Request) {
	id, err := s.pathParam(r, "id")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	var req CloneNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	branch, err := s.services.Tree.Clone(id, req.ParentNoteID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, branch)
}

func (s *APIServer) handleListAttributes(w http.ResponseWriter, r *http.Request) {
	id, err := s.pathParam(r, "id")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if _, err := s.services.Notes.GetByID(id); err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, s.services.Store.Attributes(id))
}

func (s *APIServer) handleCreateAttribute(w http.ResponseWriter, r *http.Request) {
	id, err := s.pathParam(r, "id")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	var req CreateAttributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	var attr interface{}
	switch req.Type {
	case "label", "":
		attr, err = s.services.Attributes.AddLabel(id, req.Name, req.Value, req.Inheritable)
	case "relation":
		attr, err = s.services.Attributes.AddRelation(id, req.Name, req.Value, req.Inheritable)
	default:
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("unknown attribute type: %s", req.Type))
		return
	}
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, attr)
}

func (s *APIServer) handleUpdateAttribute(w http.ResponseWriter, r *http.Request) {
	id, err := s.pathParam(r, "id")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	var req struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	if err := s.services.Attributes.UpdateValue(id, req.Value); err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, s.services.Store.GetAttribute(id))
}

func (s *APIServer) handleDeleteAttribute(w http.ResponseWriter, r *http.Request) {
	id, err := s.pathParam(r, "id")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.services.Attributes.Delete(id); err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

func (s *APIServer) handleMoveBranch(w http.ResponseWriter, r *http.Request) {
	id, err := s.pathParam(r, "id")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	var req MoveBranchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	if err := s.services.Tree.Move(id, req.ParentNoteID); err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, s.services.Store.GetBranch(id))
}

func (s *APIServer) handleSearchNotes(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	ctx := &search.Context{
		FastSearch:           req.FastSearch,
		IncludeArchivedNotes: req.IncludeArchived,
		FuzzyAttributeSearch: req.FuzzyAttributes,
	}

	results, err := s.services.Search.Search(req.Query, ctx)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	if req.Limit > 0 && len(results) > req.Limit {
		results = results[:req.Limit]
	}

	s.writeJSON(w, http.StatusOK, results)
}
