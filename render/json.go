package render

import (
	"encoding/json"
	"io"

	"pvcse/minutes"
)

type jsonRenderer struct{}

func (jsonRenderer) ContentType() string { return "application/json" }
func (jsonRenderer) FileName() string    { return "pv_cse.json" }

func (jsonRenderer) Render(w io.Writer, doc minutes.Document) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
