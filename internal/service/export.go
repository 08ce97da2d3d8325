package service

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Chinu7077/Talk-to-Chinu/internal/model"
)

type ExportFormat string

const (
	ExportText     ExportFormat = "text"
	ExportMarkdown ExportFormat = "markdown"
	ExportJSON     ExportFormat = "json"
)

type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

const exportTimeLayout = "2006-01-02 15:04:05"

// ExportSession renders a session as a downloadable document named
// <title>_<date>.<ext>.
func ExportSession(session *model.Session, format ExportFormat) (*ExportResult, error) {
	date := time.Now().Format("2006-01-02")
	base := sanitizeFilename(session.Title)

	switch format {
	case ExportText:
		return &ExportResult{
			Filename:    fmt.Sprintf("%s_%s.txt", base, date),
			ContentType: "text/plain",
			Data:        []byte(renderText(session)),
		}, nil
	case ExportMarkdown:
		return &ExportResult{
			Filename:    fmt.Sprintf("%s_%s.md", base, date),
			ContentType: "text/markdown",
			Data:        []byte(renderMarkdown(session)),
		}, nil
	case ExportJSON:
		data, err := renderJSON(session)
		if err != nil {
			return nil, err
		}
		return &ExportResult{
			Filename:    fmt.Sprintf("%s_%s.json", base, date),
			ContentType: "application/json",
			Data:        data,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

func renderText(session *model.Session) string {
	var b strings.Builder
	for i, msg := range session.Messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("%s: %s\n%s\n",
			speaker(msg), msg.Text, msg.Timestamp.Format(exportTimeLayout)))
	}
	return b.String()
}

func renderMarkdown(session *model.Session) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("# %s\n\n", session.Title))
	b.WriteString(fmt.Sprintf("*Exported on %s*\n\n", time.Now().Format(exportTimeLayout)))
	for _, msg := range session.Messages {
		b.WriteString(fmt.Sprintf("## %s\n\n%s\n\n*%s*\n\n---\n\n",
			speaker(msg), msg.Text, msg.Timestamp.Format(exportTimeLayout)))
	}
	return b.String()
}

func renderJSON(session *model.Session) ([]byte, error) {
	doc := struct {
		Title      string          `json:"title"`
		ExportedAt time.Time       `json:"exportedAt"`
		Messages   []model.Message `json:"messages"`
	}{
		Title:      session.Title,
		ExportedAt: time.Now(),
		Messages:   session.Messages,
	}
	return json.MarshalIndent(doc, "", "  ")
}

func speaker(msg model.Message) string {
	if msg.IsUser {
		return "You"
	}
	return "AI"
}

// sanitizeFilename keeps titles filesystem-safe.
func sanitizeFilename(title string) string {
	out := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '-'
		}
		return r
	}, title)
	out = strings.TrimSpace(out)
	if out == "" {
		return "Chat"
	}
	return out
}
