package prompt

import (
	"bytes"
	_ "embed"
	"os"
	"strings"
	"text/template"

	hjson "github.com/hjson/hjson-go/v4"
	"github.com/rotisserie/eris"
)

//go:embed prompts.hjson
var embeddedPrompts []byte

type library struct {
	Prompts []PromptTemplate `json:"prompts"`
}

// Load builds a registry from the embedded library, replacing it with the
// file at overridePath when one is given.
func Load(overridePath string) (*Registry, error) {
	data := embeddedPrompts
	source := "embedded prompts.hjson"
	if overridePath != "" {
		b, err := os.ReadFile(overridePath)
		if err != nil {
			return nil, eris.Wrapf(err, "prompt: read %s", overridePath)
		}
		data, source = b, overridePath
	}
	r, err := Parse(data)
	if err != nil {
		return nil, eris.Wrapf(err, "prompt: load %s", source)
	}
	return r, nil
}

// Parse decodes an Hjson prompt library.
func Parse(data []byte) (*Registry, error) {
	var lib library
	if err := hjson.Unmarshal(data, &lib); err != nil {
		return nil, eris.Wrap(err, "prompt: parse hjson")
	}
	r := NewRegistry()
	for i := range lib.Prompts {
		pt := lib.Prompts[i]
		pt.SystemPrompt = strings.TrimSpace(pt.SystemPrompt)
		pt.UserPromptTmpl = strings.TrimSpace(pt.UserPromptTmpl)
		if err := r.Register(&pt); err != nil {
			return nil, eris.Wrapf(err, "prompt #%d", i)
		}
	}
	return r, nil
}

// RenderUserPrompt executes the user prompt template with the given context
func RenderUserPrompt(pt *PromptTemplate, ctx *PromptExecutionContext) (string, error) {
	tmpl, err := template.New(pt.ID).Option("missingkey=zero").Parse(pt.UserPromptTmpl)
	if err != nil {
		return "", eris.Wrapf(err, "prompt: parse template %s", pt.ID)
	}
	var vars map[string]interface{}
	if ctx != nil {
		vars = ctx.Variables
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", eris.Wrapf(err, "prompt: render %s", pt.ID)
	}
	return buf.String(), nil
}
