// SPDX-License-Identifier: Apache-2.0
package zoho

import (
	"context"
	"net/http"
	"testing"

	"github.com/agpldev/ag-nexus-pm-agent/pkg/errors"
)

// authedClient returns a client whose tokens are already refreshed against srv.
func authedClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v2/token", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"atk"}`))
	})
	mux.HandleFunc("/", handler)
	c, _ := newTestClient(t, mux)
	if _, err := c.RefreshAccessToken(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	return c
}

func TestListFiles(t *testing.T) {
	c := authedClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/workdrive/api/v1/folders/folder123/files" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("limit"); got != "50" {
			t.Errorf("expected limit=50, got %s", got)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer atk" {
			t.Errorf("unexpected auth header %q", auth)
		}
		w.Write([]byte(`{"data":[
			{"id":"f1","name":"Requirement Specification.docx","mime_type":"application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
			{"id":"f2","name":"Notes","mime_type":null}
		]}`))
	})

	files, err := NewWorkDriveService(c).ListFiles(context.Background(), "folder123", 0)
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	if files[0].ID != "f1" || files[0].Name != "Requirement Specification.docx" {
		t.Errorf("unexpected first file: %+v", files[0])
	}
	if files[1].MimeType != "" {
		t.Errorf("null mime type should decode empty, got %q", files[1].MimeType)
	}
}

func TestListFilesRateLimitedClassification(t *testing.T) {
	c := authedClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := NewWorkDriveService(c).ListFiles(context.Background(), "folder123", 10)
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Code(err) != errors.CodeRateLimited {
		t.Errorf("expected CodeRateLimited, got %s", errors.Code(err))
	}
	if !errors.IsTransient(err) {
		t.Error("429 must be transient")
	}
}

func TestCreateTask(t *testing.T) {
	c := authedClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/projects/v1/portals/portal-7/projects/project-42/tasks/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = r.ParseForm()
		if got := r.PostForm.Get("name"); got != "Fix missing consent field" {
			t.Errorf("unexpected task name %q", got)
		}
		if got := r.PostForm.Get("description"); got == "" {
			t.Error("expected task description")
		}
		w.Write([]byte(`{"tasks":[{"id":101,"name":"Fix missing consent field"}]}`))
	})

	ref, err := NewProjectsService(c).CreateTask(context.Background(),
		"portal-7", "project-42", "Fix missing consent field", "Details in review notes.")
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if ref.ID != "101" {
		t.Errorf("expected task id 101, got %s", ref.ID)
	}
}

func TestCreateTaskServerErrorClassification(t *testing.T) {
	c := authedClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := NewProjectsService(c).CreateTask(context.Background(), "p", "pr", "T", "B")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Code(err) != errors.CodeRemote {
		t.Errorf("expected CodeRemote, got %s", errors.Code(err))
	}
	if !errors.IsTransient(err) {
		t.Error("5xx must be transient")
	}
}

func TestListPortalProjects(t *testing.T) {
	c := authedClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/projects/v1/portals/portal-7/projects/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"projects":[{"id":42,"name":"Compliance"},{"id":"43","name":"Platform"}]}`))
	})

	projects, err := NewProjectsService(c).ListPortalProjects(context.Background(), "portal-7", 0)
	if err != nil {
		t.Fatalf("ListPortalProjects failed: %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(projects))
	}
	if projects[0].ID != "42" || projects[1].ID != "43" {
		t.Errorf("ids should normalize to strings: %+v", projects)
	}
}
