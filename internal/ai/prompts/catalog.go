// Package prompts holds the system instructions, prompt templates and fixed
// fallback payloads sent to or substituted for the model.
package prompts

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

const (
	ParseDocument     = "parse_document"
	ParseText         = "parse_text"
	ATSScore          = "ats_score"
	Chat              = "chat"
	Analyze           = "analyze"
	InterviewQuestion = "interview_questions"
	AnswerFeedback    = "answer_feedback"
	InterviewAnalysis = "interview_analysis"
)

// Instructions are the system instructions bound to gateway calls.
type Instructions struct {
	ResumeParser  string `yaml:"resume_parser"`
	ResumeAdvisor string `yaml:"resume_advisor"`
	ATSScorer     string `yaml:"ats_scorer"`
	Interviewer   string `yaml:"interviewer"`
}

type Question struct {
	ID             int      `yaml:"id"`
	Question       string   `yaml:"question"`
	Type           string   `yaml:"type"`
	ExpectedPoints []string `yaml:"expectedPoints"`
}

type Feedback struct {
	Score        int      `yaml:"score"`
	Strengths    []string `yaml:"strengths"`
	Improvements []string `yaml:"improvements"`
	Summary      string   `yaml:"summary"`
}

type Analysis struct {
	OverallScore        int      `yaml:"overallScore"`
	Strengths           []string `yaml:"strengths"`
	AreasForImprovement []string `yaml:"areasForImprovement"`
	Recommendations     []string `yaml:"recommendations"`
	Summary             string   `yaml:"summary"`
}

// Fallbacks are returned in place of model output when the gateway fails.
type Fallbacks struct {
	ChatReply    string     `yaml:"chat_reply"`
	AnalyzeReply string     `yaml:"analyze_reply"`
	Questions    []Question `yaml:"questions"`
	Feedback     Feedback   `yaml:"feedback"`
	Analysis     Analysis   `yaml:"analysis"`
}

// Catalog is the parsed prompt catalog.
type Catalog struct {
	Instructions Instructions      `yaml:"instructions"`
	Templates    map[string]string `yaml:"templates"`
	Fallbacks    Fallbacks         `yaml:"fallbacks"`

	parsed map[string]*template.Template
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the embedded catalog. It panics if the embedded file is
// malformed, which is a build defect.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Parse(catalogYAML)
	})
	if defaultErr != nil {
		panic(fmt.Sprintf("prompts: embedded catalog: %v", defaultErr))
	}
	return defaultCatalog
}

// Parse decodes a catalog document and compiles its templates.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	c.parsed = make(map[string]*template.Template, len(c.Templates))
	for name, body := range c.Templates {
		tmpl, err := template.New(name).Option("missingkey=error").Parse(body)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", name, err)
		}
		c.parsed[name] = tmpl
	}
	return &c, nil
}

// Render executes the named template with data.
func (c *Catalog) Render(name string, data any) (string, error) {
	tmpl, ok := c.parsed[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt template %q", name)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return strings.TrimSpace(b.String()), nil
}
