// SPDX-License-Identifier: Apache-2.0
package zoho

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Project is a minimal Zoho Projects project model.
type Project struct {
	ID   string
	Name string
}

// TaskRef identifies a created task.
type TaskRef struct {
	ID   string
	Name string
}

// ProjectsService wraps the Zoho Projects task endpoints.
type ProjectsService struct {
	client *Client
}

// NewProjectsService creates a Projects service over client.
func NewProjectsService(client *Client) *ProjectsService {
	return &ProjectsService{client: client}
}

// ListPortalProjects lists projects in a portal.
func (s *ProjectsService) ListPortalProjects(ctx context.Context, portalID string, limit int) ([]Project, error) {
	if limit <= 0 {
		limit = 50
	}
	endpoint := fmt.Sprintf("%s/projects/v1/portals/%s/projects/?%s",
		s.client.APIBase(), url.PathEscape(portalID),
		url.Values{"index": {"1"}, "range": {fmt.Sprint(limit)}}.Encode())

	var payload struct {
		Projects []struct {
			ID   any    `json:"id"`
			Name string `json:"name"`
		} `json:"projects"`
	}
	if err := s.client.doJSON(ctx, "GET", endpoint, nil, "", &payload); err != nil {
		return nil, err
	}

	projects := make([]Project, 0, len(payload.Projects))
	for _, it := range payload.Projects {
		projects = append(projects, Project{ID: fmt.Sprint(it.ID), Name: it.Name})
	}
	return projects, nil
}

// CreateTask creates a task in the given portal and project.
func (s *ProjectsService) CreateTask(ctx context.Context, portalID, projectID, title, body string) (*TaskRef, error) {
	endpoint := fmt.Sprintf("%s/projects/v1/portals/%s/projects/%s/tasks/",
		s.client.APIBase(), url.PathEscape(portalID), url.PathEscape(projectID))

	form := url.Values{
		"name":        {title},
		"description": {body},
	}

	var payload struct {
		Tasks []struct {
			ID   any    `json:"id"`
			Name string `json:"name"`
		} `json:"tasks"`
	}
	err := s.client.doJSON(ctx, "POST", endpoint,
		strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", &payload)
	if err != nil {
		return nil, err
	}
	if len(payload.Tasks) == 0 {
		return nil, fmt.Errorf("task created but response contained no task entry")
	}
	return &TaskRef{ID: fmt.Sprint(payload.Tasks[0].ID), Name: payload.Tasks[0].Name}, nil
}
