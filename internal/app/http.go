package app

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	switch r.URL.Path {
	case "/api/posts":
		s.handleGet(w, r, func() (any, error) {
			doc, err := s.service.GetPosts(r.Context())
			return doc, err
		})
	case "/api/gallery":
		s.handleGet(w, r, func() (any, error) {
			doc, err := s.service.GetGallery(r.Context())
			return doc, err
		})
	case "/api/progress":
		s.handleGet(w, r, func() (any, error) {
			doc, err := s.service.GetProgress(r.Context())
			return doc, err
		})
	case "/api/posts/save":
		s.handleSavePost(w, r)
	case "/api/gallery/save":
		s.handleSaveGallery(w, r)
	case "/api/progress/save":
		s.handleSaveProgress(w, r)
	case "/api/upload":
		s.handleUpload(w, r)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found")
	}
}

func (s *HTTPServer) handleGet(w http.ResponseWriter, r *http.Request, load func() (any, error)) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
		return
	}
	if !s.requireStore(w) {
		return
	}
	payload, err := load()
	if err != nil {
		status, code, message := mapError(err)
		writeError(w, status, code, message)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) handleSavePost(w http.ResponseWriter, r *http.Request) {
	var req PostSaveRequest
	if !s.acceptSave(w, r, &req) {
		return
	}
	result, err := s.service.SavePost(r.Context(), req)
	if err != nil {
		status, code, message := mapError(err)
		writeError(w, status, code, message)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": result.Message + ". Site will redeploy automatically.",
		"postId":  result.ID,
	})
}

func (s *HTTPServer) handleSaveGallery(w http.ResponseWriter, r *http.Request) {
	var req GallerySaveRequest
	if !s.acceptSave(w, r, &req) {
		return
	}
	result, err := s.service.SaveGallery(r.Context(), req)
	if err != nil {
		status, code, message := mapError(err)
		writeError(w, status, code, message)
		return
	}
	response := map[string]any{"success": true, "message": result.Message}
	if result.ID != "" {
		response["imageId"] = result.ID
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *HTTPServer) handleSaveProgress(w http.ResponseWriter, r *http.Request) {
	var req ProgressSaveRequest
	if !s.acceptSave(w, r, &req) {
		return
	}
	result, err := s.service.SaveProgress(r.Context(), req)
	if err != nil {
		status, code, message := mapError(err)
		writeError(w, status, code, message)
		return
	}
	response := map[string]any{"success": true, "message": result.Message}
	if result.ID != "" {
		response["goalId"] = result.ID
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *HTTPServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	var req UploadRequest
	if !s.acceptSave(w, r, &req) {
		return
	}
	result, err := s.service.Upload(r.Context(), req)
	if err != nil {
		status, code, message := mapError(err)
		writeError(w, status, code, message)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"path":     result.Path,
		"filename": result.Filename,
		"message":  "File uploaded successfully",
	})
}

type validator interface {
	Validate() error
}

// acceptSave enforces the shared preconditions of every mutating endpoint:
// POST only, a configured store, a decodable JSON body, and a payload that
// passes boundary validation.
func (s *HTTPServer) acceptSave(w http.ResponseWriter, r *http.Request, req validator) bool {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
		return false
	}
	if !s.requireStore(w) {
		return false
	}
	if err := decodeBody(r, req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return false
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return false
	}
	return true
}

func (s *HTTPServer) requireStore(w http.ResponseWriter) bool {
	if !s.service.Ready() {
		writeError(w, http.StatusInternalServerError, "STORE_NOT_CONFIGURED",
			"Content store not configured. Set the store credentials in the environment.")
		return false
	}
	return true
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{"code": code, "error": message})
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return fmt.Errorf("request body required")
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func mapError(err error) (status int, code, message string) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error"
}
