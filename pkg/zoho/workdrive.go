// SPDX-License-Identifier: Apache-2.0
package zoho

import (
	"context"
	"fmt"
	"net/url"
)

// File is a minimal WorkDrive file model.
type File struct {
	ID       string
	Name     string
	MimeType string
}

// WorkDriveService lists WorkDrive folder contents.
type WorkDriveService struct {
	client *Client
}

// NewWorkDriveService creates a WorkDrive service over client.
func NewWorkDriveService(client *Client) *WorkDriveService {
	return &WorkDriveService{client: client}
}

// ListFiles lists files inside a WorkDrive folder. limit is the page size
// requested from the server, best-effort.
func (s *WorkDriveService) ListFiles(ctx context.Context, folderID string, limit int) ([]File, error) {
	if limit <= 0 {
		limit = 50
	}
	endpoint := fmt.Sprintf("%s/workdrive/api/v1/folders/%s/files?%s",
		s.client.APIBase(), url.PathEscape(folderID),
		url.Values{"limit": {fmt.Sprint(limit)}}.Encode())

	var payload struct {
		Data []struct {
			ID       string `json:"id"`
			Name     string `json:"name"`
			MimeType string `json:"mime_type"`
		} `json:"data"`
	}
	if err := s.client.doJSON(ctx, "GET", endpoint, nil, "", &payload); err != nil {
		return nil, err
	}

	files := make([]File, 0, len(payload.Data))
	for _, it := range payload.Data {
		files = append(files, File{ID: it.ID, Name: it.Name, MimeType: it.MimeType})
	}
	return files, nil
}
