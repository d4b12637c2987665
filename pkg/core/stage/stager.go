// Package stage places fetched documents where the extraction model can
// read them and removes them afterwards.
package stage

import (
	"bytes"
	"context"
	"io"
	"time"

	"financial_underwriting/pkg/core/apperr"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

// Artifact is a staged copy of a document.
type Artifact struct {
	Name     string
	URI      string
	MIMEType string
}

// FileAPI is the part of the GenAI Files service used for staging;
// (*genai.Client).Files satisfies it.
type FileAPI interface {
	Upload(ctx context.Context, r io.Reader, config *genai.UploadFileConfig) (*genai.File, error)
	Get(ctx context.Context, name string, config *genai.GetFileConfig) (*genai.File, error)
	Delete(ctx context.Context, name string, config *genai.DeleteFileConfig) (*genai.DeleteFileResponse, error)
}

// GeminiFileStager stages documents through the Gemini Files API.
type GeminiFileStager struct {
	files        FileAPI
	pollInterval time.Duration
	maxPolls     int
}

func NewGeminiFileStager(client *genai.Client) *GeminiFileStager {
	return NewGeminiFileStagerWith(client.Files)
}

func NewGeminiFileStagerWith(files FileAPI) *GeminiFileStager {
	return &GeminiFileStager{files: files, pollInterval: 2 * time.Second, maxPolls: 30}
}

// Stage uploads body under a unique tmp- display name and waits until the file is
// ready for generation.
func (s *GeminiFileStager) Stage(ctx context.Context, body []byte, mimeType string) (*Artifact, error) {
	if len(body) == 0 {
		return nil, apperr.Staging(nil, "nothing to stage")
	}
	if mimeType == "" {
		mimeType = "application/pdf"
	}

	name := "tmp-" + uuid.NewString()
	file, err := s.files.Upload(ctx, bytes.NewReader(body), &genai.UploadFileConfig{
		MIMEType:    mimeType,
		DisplayName: name,
	})
	if err != nil {
		return nil, apperr.Staging(err, "upload %s", name)
	}

	staged := file.Name
	for i := 0; file.State == genai.FileStateProcessing && i < s.maxPolls; i++ {
		select {
		case <-ctx.Done():
			s.bestEffortDelete(staged)
			return nil, apperr.Staging(ctx.Err(), "waiting for %s", staged)
		case <-time.After(s.pollInterval):
		}
		file, err = s.files.Get(ctx, staged, nil)
		if err != nil {
			s.bestEffortDelete(staged)
			return nil, apperr.Staging(err, "poll %s", staged)
		}
	}

	switch file.State {
	case genai.FileStateFailed:
		s.bestEffortDelete(staged)
		return nil, apperr.Staging(nil, "file %s failed processing", staged)
	case genai.FileStateProcessing:
		s.bestEffortDelete(staged)
		return nil, apperr.Staging(nil, "file %s still processing", staged)
	}

	return &Artifact{Name: staged, URI: file.URI, MIMEType: mimeType}, nil
}

// Release deletes a staged artifact.
func (s *GeminiFileStager) Release(ctx context.Context, a *Artifact) error {
	if a == nil || a.Name == "" {
		return nil
	}
	if _, err := s.files.Delete(ctx, a.Name, nil); err != nil {
		return apperr.Staging(err, "delete %s", a.Name)
	}
	return nil
}

func (s *GeminiFileStager) bestEffortDelete(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, _ = s.files.Delete(ctx, name, nil)
}
