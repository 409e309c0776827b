// SPDX-License-Identifier: Apache-2.0
package agent

import (
	"fmt"
	"strings"
)

// Draft is a review email prepared for a document author.
type Draft struct {
	To      string
	Subject string
	Body    string
}

// DraftReviewEmail renders the review email for a document and its issues.
func DraftReviewEmail(doc Document, issues []string) Draft {
	to := doc.Author
	if to == "" {
		// Author unknown from WorkDrive listings.
		to = "project-docs@example.com"
	}
	return Draft{
		To:      to,
		Subject: "Review of your document: " + doc.Name,
		Body: "Hello,\n\nI reviewed your document and found:\n- " +
			strings.Join(issues, "\n- ") +
			"\n\nThanks,\nNexus Agent",
	}
}

// Render writes the draft in the run report's email block format.
func (d Draft) Render() string {
	var b strings.Builder
	b.WriteString("--- New Email Draft ---\n")
	fmt.Fprintf(&b, "To: %s\n", d.To)
	fmt.Fprintf(&b, "Subject: %s\n", d.Subject)
	fmt.Fprintf(&b, "Body:\n%s\n", d.Body)
	b.WriteString("-----------------------\n")
	return b.String()
}
