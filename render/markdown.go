package render

import (
	"fmt"
	"io"
	"strings"

	"pvcse/minutes"
)

type markdownRenderer struct {
	opts Options
}

func (markdownRenderer) ContentType() string { return "text/markdown; charset=utf-8" }
func (markdownRenderer) FileName() string    { return "pv_cse.md" }

func (r markdownRenderer) Render(w io.Writer, doc minutes.Document) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", r.opts.Title)

	if len(doc.Attendance) > 0 {
		b.WriteString("## Présences\n\n")
		fmt.Fprintf(&b, "Personnes présentes : %s\n\n", strings.Join(doc.Attendance, ", "))
	}

	if len(doc.Discussions) > 0 {
		b.WriteString("## Discussions\n\n")
		for _, d := range doc.Discussions {
			ts := ""
			if d.Timestamp > 0 {
				ts = "[" + clock(d.Timestamp) + "] "
			}
			spk := ""
			if d.Speaker != "" {
				spk = "**" + d.Speaker + "** : "
			}
			fmt.Fprintf(&b, "%s%s%s\n\n", ts, spk, strings.TrimSpace(d.Text))
		}
	}

	if len(doc.Decisions) > 0 {
		b.WriteString("## Décisions\n\n")
		for _, d := range doc.Decisions {
			fmt.Fprintf(&b, "- %s\n", d)
		}
		b.WriteString("\n")
	}

	if len(doc.Votes) > 0 {
		b.WriteString("## Votes\n\n")
		for _, v := range doc.Votes {
			fmt.Fprintf(&b, "- %s\n", voteLine(v))
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
