// SPDX-License-Identifier: Apache-2.0
package agent

import "strings"

// Document is the loop's view of a project document under review.
type Document struct {
	ID     string
	Name   string
	Author string
}

// AssessDocument runs the document quality checks and returns the list of
// issues found, empty when the document passes.
func AssessDocument(doc Document) []string {
	var issues []string
	if !strings.Contains(doc.Name, ".") {
		issues = append(issues, "Missing file extension")
	}
	title, _, _ := strings.Cut(doc.Name, ".")
	if len([]rune(title)) < 5 {
		issues = append(issues, "Document title is too short")
	}
	return issues
}

// mockDocuments stands in for the remote listing when live APIs are disabled.
func mockDocuments() []Document {
	return []Document{
		{ID: "doc1", Name: "Requirement Specification.docx", Author: "author1@example.com"},
		{ID: "doc2", Name: "Design Document.pdf", Author: "author2@example.com"},
		{ID: "doc3", Name: "Notes", Author: "author3@example.com"}, // missing extension
	}
}
