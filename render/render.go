package render

import (
	"fmt"
	"io"
	"strings"

	"pvcse/minutes"
)

type (
	Format string

	// Renderer serializes a finalized minutes document.
	Renderer interface {
		Render(w io.Writer, doc minutes.Document) error
		ContentType() string
		FileName() string
	}

	Options struct {
		Title string
	}
)

const (
	PDF      Format = "pdf"
	Word     Format = "word"
	Markdown Format = "markdown"
	JSON     Format = "json"
)

const DefaultTitle = "Procès Verbal de CSE"

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pdf":
		return PDF, nil
	case "word", "docx":
		return Word, nil
	case "markdown", "md":
		return Markdown, nil
	case "json":
		return JSON, nil
	}
	return "", fmt.Errorf("export format %q: %w", s, minutes.ErrUnsupportedFormat)
}

// For returns the renderer for f. Word output is not implemented and fails
// rather than producing an empty file.
func For(f Format, opts Options) (Renderer, error) {
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	switch f {
	case PDF:
		return pdfRenderer{opts}, nil
	case Markdown:
		return markdownRenderer{opts}, nil
	case JSON:
		return jsonRenderer{}, nil
	case Word:
		return nil, fmt.Errorf("word export is not implemented yet: %w", minutes.ErrUnsupportedFormat)
	}
	return nil, fmt.Errorf("export format %q: %w", f, minutes.ErrUnsupportedFormat)
}

// clock formats a millisecond offset as mm:ss or hh:mm:ss.
func clock(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	s := ms / 1000
	h, m := s/3600, (s/60)%60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s%60)
	}
	return fmt.Sprintf("%02d:%02d", m, s%60)
}

func voteLine(v minutes.Vote) string {
	line := fmt.Sprintf("%s : pour %d, contre %d, abstention %d", v.Subject, v.For, v.Against, v.Abstain)
	if v.Outcome != "" {
		line += " (" + v.Outcome + ")"
	}
	return line
}
