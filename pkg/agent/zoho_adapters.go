// SPDX-License-Identifier: Apache-2.0
package agent

import (
	"context"

	"github.com/agpldev/ag-nexus-pm-agent/pkg/zoho"
)

// WorkDriveLister adapts a WorkDrive folder listing to the loop's Lister.
type WorkDriveLister struct {
	Service  *zoho.WorkDriveService
	FolderID string
	Limit    int
}

// ListDocuments implements Lister.
func (l *WorkDriveLister) ListDocuments(ctx context.Context) ([]Document, error) {
	files, err := l.Service.ListFiles(ctx, l.FolderID, l.Limit)
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(files))
	for _, f := range files {
		// Author is not part of WorkDrive listings; drafts fall back to
		// the project documents address.
		docs = append(docs, Document{ID: f.ID, Name: f.Name})
	}
	return docs, nil
}

// ProjectsTaskCreator adapts Zoho Projects task creation to the loop's TaskCreator.
type ProjectsTaskCreator struct {
	Service   *zoho.ProjectsService
	PortalID  string
	ProjectID string
}

// CreateTask implements TaskCreator.
func (c *ProjectsTaskCreator) CreateTask(ctx context.Context, title, body string) (string, error) {
	ref, err := c.Service.CreateTask(ctx, c.PortalID, c.ProjectID, title, body)
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

// ClientAuthenticator adapts zoho.Client token refresh to the loop's Authenticator.
type ClientAuthenticator struct {
	Client *zoho.Client
}

// RefreshAccessToken implements Authenticator.
func (a *ClientAuthenticator) RefreshAccessToken(ctx context.Context) error {
	_, err := a.Client.RefreshAccessToken(ctx)
	return err
}
