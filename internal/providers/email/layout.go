package email

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
)

//go:embed templates/layout.html
var templateFS embed.FS

var layout = template.Must(template.ParseFS(templateFS, "templates/layout.html"))

type layoutData struct {
	Subject    string
	Paragraphs []string
	Footer     string
}

// Wrap renders a plain-text body into the HTML email layout.
func Wrap(subject, body, footer string) (string, error) {
	data := layoutData{Subject: subject, Footer: footer}
	for _, block := range strings.Split(body, "\n\n") {
		if block = strings.TrimSpace(block); block != "" {
			data.Paragraphs = append(data.Paragraphs, block)
		}
	}

	var out bytes.Buffer
	if err := layout.Execute(&out, data); err != nil {
		return "", err
	}
	return out.String(), nil
}
