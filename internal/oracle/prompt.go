package oracle

import (
	"bytes"
	"embed"
	"text/template"

	"github.com/myrjola/casebook/internal/errors"
	"github.com/myrjola/casebook/internal/models"
)

//go:embed prompts/suspect.tmpl
var promptFiles embed.FS

var prompts = template.Must(template.ParseFS(promptFiles, "prompts/suspect.tmpl"))

type promptData struct {
	Case     models.Case
	Suspect  models.Suspect
	Guilty   bool
	History  []models.DialogueLine
	Question string
}

// renderPrompt executes the named template: "persona" for system prompts, "transcript" for single-shot prompts.
func renderPrompt(name string, req Request) (string, error) {
	var buf bytes.Buffer
	data := promptData{
		Case:     req.Case,
		Suspect:  req.Suspect,
		Guilty:   req.Case.KillerID == req.Suspect.ID,
		History:  recentHistory(req.History),
		Question: req.Question,
	}
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", errors.Wrap(err, "render prompt")
	}
	return buf.String(), nil
}
