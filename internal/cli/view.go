package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/roach88/notevault/internal/engine"
	"github.com/roach88/notevault/internal/record"
)

// RecordView is the JSON shape of a record.
type RecordView struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	CreatedAt  int64  `json:"timestamp"`
	Owner      string `json:"owner"`
	Subject    string `json:"subject"`
	Annotation string `json:"annotation,omitempty"`
	Content    string `json:"content"`
	Mine       bool   `json:"mine"`
}

func newRecordView(r record.Record, s engine.Session) RecordView {
	return RecordView{
		ID:         r.ID,
		Status:     r.Status.String(),
		CreatedAt:  r.CreatedAt,
		Owner:      r.Owner,
		Subject:    r.Subject,
		Annotation: r.Annotation,
		Content:    r.Content,
		Mine:       s.Owner != "" && s.Owns(r.Owner),
	}
}

// TransitionView is the JSON shape of a published transition.
type TransitionView struct {
	Seq     int64  `json:"seq"`
	State   string `json:"state"`
	Message string `json:"message,omitempty"`
}

func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format(time.RFC3339)
}

// renderTable renders records newest first, one per line.
func renderTable(views []RecordView) string {
	if len(views) == 0 {
		return "No notes found."
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tCREATED\tANALYSIS\tOWNER")
	for _, v := range views {
		owner := v.Owner
		if v.Mine {
			owner += " (you)"
		}
		annotation := v.Annotation
		if annotation == "" {
			annotation = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", v.ID, v.Status, formatTime(v.CreatedAt), annotation, owner)
	}
	w.Flush()
	return strings.TrimRight(b.String(), "\n")
}

// renderRecord renders one record as labeled lines.
func renderRecord(v RecordView) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 1, ' ', 0)
	fmt.Fprintf(w, "ID:\t%s\n", v.ID)
	fmt.Fprintf(w, "Status:\t%s\n", v.Status)
	fmt.Fprintf(w, "Created:\t%s\n", formatTime(v.CreatedAt))
	fmt.Fprintf(w, "Owner:\t%s\n", v.Owner)
	fmt.Fprintf(w, "Subject:\t%s\n", v.Subject)
	if v.Annotation != "" {
		fmt.Fprintf(w, "Analysis:\t%s\n", v.Annotation)
	}
	fmt.Fprintf(w, "Content:\t%s\n", v.Content)
	w.Flush()
	return strings.TrimRight(b.String(), "\n")
}
