package grading

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"sync"
	"text/template"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

// Persona selects the grading voice rendered into the prompt.
type Persona string

const (
	// PersonaFormal is the default: formal, concise and supportive.
	PersonaFormal Persona = "formal"
	// PersonaEncouraging leads with strengths and grants partial credit generously.
	PersonaEncouraging Persona = "encouraging"
	// PersonaStrict grades every step against the rubric.
	PersonaStrict Persona = "strict"
)

const (
	// DefaultQuestionText is used when a question has no authored text.
	DefaultQuestionText = "Mathematical proof/explanation question"
	// DefaultRubricText replaces an empty rubric.
	DefaultRubricText = "Award points based on: correctness (4pts), clarity (3pts), completeness (3pts)"
)

var (
	loadOnce  sync.Once
	loadErr   error
	templates map[Persona]*template.Template
)

// IsValidPersona reports whether name is a known persona.
func IsValidPersona(name string) bool {
	switch Persona(name) {
	case PersonaFormal, PersonaEncouraging, PersonaStrict:
		return true
	default:
		return false
	}
}

func loadTemplates() error {
	loadOnce.Do(func() {
		templates = make(map[Persona]*template.Template)
		for _, persona := range []Persona{PersonaFormal, PersonaEncouraging, PersonaStrict} {
			tmpl, err := template.ParseFS(promptFS, "prompts/"+string(persona)+".tmpl", "prompts/output.tmpl")
			if err != nil {
				loadErr = fmt.Errorf("parse %s prompt template: %w", persona, err)
				return
			}
			templates[persona] = tmpl
		}
	})
	return loadErr
}

type promptData struct {
	QuestionText string
	Rubric       string
	Answer       string
}

// PromptBuilder renders grading prompts for one persona.
type PromptBuilder struct {
	persona Persona
	tmpl    *template.Template
}

// NewPromptBuilder returns a builder for persona; an empty persona selects PersonaFormal.
func NewPromptBuilder(persona Persona) (*PromptBuilder, error) {
	if persona == "" {
		persona = PersonaFormal
	}
	if !IsValidPersona(string(persona)) {
		return nil, fmt.Errorf("unknown grading persona %q", persona)
	}
	if err := loadTemplates(); err != nil {
		return nil, err
	}

	return &PromptBuilder{persona: persona, tmpl: templates[persona]}, nil
}

// Persona returns the persona this builder renders.
func (b *PromptBuilder) Persona() Persona {
	return b.persona
}

// Build renders the prompt. Missing question text and rubric fall back to defaults.
func (b *PromptBuilder) Build(req Request) string {
	question := strings.TrimSpace(req.QuestionText)
	if question == "" {
		question = DefaultQuestionText
	}

	rubric := RenderRubric(req.RubricTables)
	if strings.TrimSpace(rubric) == "" {
		rubric = DefaultRubricText
	}

	data := promptData{
		QuestionText: question,
		Rubric:       rubric,
		Answer:       req.StudentAnswer,
	}

	var buf bytes.Buffer
	if err := b.tmpl.ExecuteTemplate(&buf, string(b.persona)+".tmpl", data); err != nil {
		// Templates are parsed at construction and only read string fields.
		panic(fmt.Sprintf("render %s prompt: %v", b.persona, err))
	}
	return buf.String()
}
