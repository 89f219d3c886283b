package httpapi

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const (
	// multipartOverhead leaves room for boundaries and form fields around the file.
	multipartOverhead = 1 << 20
	multipartMemory   = 32 << 10
	audioField        = "audio"
)

type speechToTextResponse struct {
	Text string `json:"text"`
}

type textToSpeechRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleSpeechToText(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isTooLarge(err) {
			respondError(w, http.StatusRequestEntityTooLarge, "upload_too_large", fmt.Sprintf("audio exceeds %d bytes", limit))
			return
		}
		respondError(w, http.StatusBadRequest, "invalid_upload", err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(audioField)
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing_file", "no audio file provided")
		return
	}
	defer file.Close()
	if header.Size > limit {
		respondError(w, http.StatusRequestEntityTooLarge, "upload_too_large", fmt.Sprintf("audio exceeds %d bytes", limit))
		return
	}

	spooled, err := s.spoolUpload(file, header.Filename)
	if err != nil {
		log.Printf("spool upload failed: %v", err)
		respondError(w, http.StatusInternalServerError, "upload_failed", "could not store the upload")
		return
	}
	defer discardUpload(spooled)

	text, err := s.service.Transcribe(r.Context(), spooled, filepath.Base(header.Filename))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, speechToTextResponse{Text: text})
}

func (s *Server) handleTextToSpeech(w http.ResponseWriter, r *http.Request) {
	var req textToSpeechRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	clip, err := s.service.Synthesize(r.Context(), req.Text)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", clip.ContentType)
	w.Header().Set("Cache-Control", "no-store")
	if clip.Format != "" {
		w.Header().Set("X-Audio-Format", clip.Format)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(clip.Data)
}

// spoolUpload copies the upload into a temp file under the upload dir and
// rewinds it. The caller owns the file and must discard it.
func (s *Server) spoolUpload(src io.Reader, filename string) (*os.File, error) {
	dir := s.cfg.UploadDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.CreateTemp(dir, "stt-*"+uploadExt(filename))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(f, src); err != nil {
		discardUpload(f)
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		discardUpload(f)
		return nil, err
	}
	return f, nil
}

// discardUpload closes and removes a spooled upload. Cleanup is best-effort.
func discardUpload(f *os.File) {
	_ = f.Close()
	if err := os.Remove(f.Name()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("remove upload %s: %v", f.Name(), err)
	}
}

// uploadExt keeps a short alphanumeric extension so the provider can sniff
// the container format.
func uploadExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}
	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return ""
		}
	}
	return ext
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "request body too large")
}
