package resumes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"jobprep-backend/internal/ai"
	"jobprep-backend/internal/ai/prompts"
	"jobprep-backend/internal/shared/metrics"
	"jobprep-backend/internal/shared/telemetry"
)

// Source is what the parser works from. Data is the raw upload; Text, when
// set, skips document text extraction.
type Source struct {
	Data     []byte
	MimeType string
	FileName string
	Text     string
}

// Parsed is the outcome of the strategy chain.
type Parsed struct {
	Sections Sections
	Source   ParseSource
}

// TextExtractor turns an uploaded document into plain text.
type TextExtractor interface {
	Text(ctx context.Context, data []byte, mimeType, fileName string) (string, error)
}

var errNotApplicable = errors.New("strategy not applicable")

type parseStrategy struct {
	source ParseSource
	run    func(ctx context.Context, in *parseInput) (Parsed, error)
}

// parseInput carries the source through the chain and caches derived text.
type parseInput struct {
	Source
	textLoaded bool
}

// Parser runs the AI document, AI text and heuristic tiers in order and
// stops at the first that yields at least one field.
type Parser struct {
	gateway   ai.Gateway
	extractor TextExtractor
	catalog   *prompts.Catalog
	chain     []parseStrategy
}

// NewParser builds the default strategy chain.
func NewParser(gateway ai.Gateway, extractor TextExtractor, catalog *prompts.Catalog) *Parser {
	p := &Parser{gateway: gateway, extractor: extractor, catalog: catalog}
	p.chain = []parseStrategy{
		{source: SourceAIDocument, run: p.fromDocument},
		{source: SourceAIText, run: p.fromText},
		{source: SourceHeuristic, run: p.fromHeuristic},
	}
	return p
}

// Parse always produces sections unless ctx is done. When nothing can be
// recognised the manual-entry placeholder is returned.
func (p *Parser) Parse(ctx context.Context, src Source) (Parsed, error) {
	in := &parseInput{Source: src}
	for _, strategy := range p.chain {
		if err := ctx.Err(); err != nil {
			return Parsed{}, err
		}
		parsed, err := strategy.run(ctx, in)
		if err == nil {
			metrics.IncResumeParsed(string(parsed.Source))
			return parsed, nil
		}
		if errors.Is(err, errNotApplicable) {
			continue
		}
		metrics.IncAIFallback("resume_" + string(strategy.source))
		telemetry.Warn("resume.parse_fallback", map[string]any{
			"tier":     string(strategy.source),
			"fileName": src.FileName,
			"error":    err,
		})
	}
	metrics.IncResumeParsed(string(SourcePlaceholder))
	return Parsed{Sections: PlaceholderSections(), Source: SourcePlaceholder}, nil
}

func (p *Parser) fromDocument(ctx context.Context, in *parseInput) (Parsed, error) {
	if len(in.Data) == 0 {
		return Parsed{}, errNotApplicable
	}
	prompt, err := p.catalog.Render(prompts.ParseDocument, nil)
	if err != nil {
		return Parsed{}, err
	}
	raw, err := p.gateway.GenerateFromDocument(ctx, ai.Document{Data: in.Data, MimeType: in.MimeType}, ai.Request{
		Op:                "parse_document",
		Prompt:            prompt,
		SystemInstruction: p.catalog.Instructions.ResumeParser,
	})
	if err != nil {
		return Parsed{}, err
	}
	sections, err := DecodeAISections(raw)
	if err != nil {
		return Parsed{}, err
	}
	return Parsed{Sections: sections, Source: SourceAIDocument}, nil
}

func (p *Parser) fromText(ctx context.Context, in *parseInput) (Parsed, error) {
	text := p.text(ctx, in)
	if strings.TrimSpace(text) == "" {
		return Parsed{}, errNotApplicable
	}
	prompt, err := p.catalog.Render(prompts.ParseText, map[string]any{"Text": text})
	if err != nil {
		return Parsed{}, err
	}
	raw, err := p.gateway.GenerateText(ctx, ai.Request{
		Op:                "parse_text",
		Prompt:            prompt,
		SystemInstruction: p.catalog.Instructions.ResumeParser,
	})
	if err != nil {
		return Parsed{}, err
	}
	sections, err := DecodeAISections(raw)
	if err != nil {
		return Parsed{}, err
	}
	return Parsed{Sections: sections, Source: SourceAIText}, nil
}

func (p *Parser) fromHeuristic(ctx context.Context, in *parseInput) (Parsed, error) {
	sections, ok := HeuristicParse(p.text(ctx, in))
	if !ok {
		return Parsed{Sections: sections, Source: SourcePlaceholder}, nil
	}
	return Parsed{Sections: sections, Source: SourceHeuristic}, nil
}

// text returns Source.Text or extracts it from Data once.
func (p *Parser) text(ctx context.Context, in *parseInput) string {
	if in.textLoaded || strings.TrimSpace(in.Text) != "" || len(in.Data) == 0 || p.extractor == nil {
		return in.Text
	}
	in.textLoaded = true
	text, err := p.extractor.Text(ctx, in.Data, in.MimeType, in.FileName)
	if err != nil {
		telemetry.Warn("resume.text_extract_failed", map[string]any{
			"fileName": in.FileName,
			"mimeType": in.MimeType,
			"error":    err,
		})
		return ""
	}
	in.Text = text
	return text
}

var sectionAliases = map[string][]string{
	SectionPersonalInfo: {"personalInfo", "personal_info", "personal"},
	SectionEducation:    {"education"},
	SectionExperience:   {"experience", "workExperience", "work_experience"},
	SectionProjects:     {"projects"},
	SectionExtraData:    {"extraData", "extra_data", "extra"},
}

var placeholderValues = map[string]struct{}{
	"n/a": {}, "na": {}, "none": {}, "null": {}, "not provided": {}, "unknown": {}, "-": {},
	"not mentioned": {}, "not specified": {},
}

// DecodeAISections reads model output into sections. Each section may be an
// array of {key, value} pairs, an object (key order is kept) or an array of
// entry objects, which get 1-based suffixes. Placeholder values are dropped.
// Output with no usable field is ErrParse.
func DecodeAISections(raw string) (Sections, error) {
	block, err := ai.ExtractJSONObject(raw)
	if err != nil {
		return Sections{}, err
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(block, &top); err != nil {
		return Sections{}, fmt.Errorf("%w: %v", ai.ErrParse, err)
	}

	var out Sections
	for _, name := range SectionNames {
		sec := Section{}
		for _, alias := range sectionAliases[name] {
			rawSec, ok := top[alias]
			if !ok {
				continue
			}
			decoded, err := decodeSection(rawSec)
			if err != nil {
				return Sections{}, fmt.Errorf("%w: section %s: %v", ai.ErrParse, name, err)
			}
			sec = decoded
			break
		}
		out.Set(name, sec)
	}
	if out.FieldCount() == 0 {
		return Sections{}, fmt.Errorf("%w: no fields extracted", ai.ErrParse)
	}
	return out, nil
}

func decodeSection(raw json.RawMessage) (Section, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Section{}, nil
	}
	switch trimmed[0] {
	case '{':
		pairs, err := decodeOrderedObject(trimmed)
		if err != nil {
			return nil, err
		}
		sec := Section{}
		for _, kv := range pairs {
			sec = appendField(sec, kv.key, kv.value)
		}
		return sec, nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		sec := Section{}
		entry := 0
		for _, item := range items {
			item = bytes.TrimSpace(item)
			if len(item) == 0 || item[0] != '{' {
				continue
			}
			pairs, err := decodeOrderedObject(item)
			if err != nil {
				return nil, err
			}
			if key, value, ok := keyValuePair(pairs); ok {
				sec = appendField(sec, key, value)
				continue
			}
			entry++
			for _, kv := range pairs {
				key := kv.key
				if baseKey(key) == key {
					key = fmt.Sprintf("%s%d", key, entry)
				}
				sec = appendField(sec, key, kv.value)
			}
		}
		return sec, nil
	}
	return nil, fmt.Errorf("unexpected section shape")
}

type rawPair struct {
	key   string
	value json.RawMessage
}

func decodeOrderedObject(raw []byte) ([]rawPair, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var out []rawPair
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		out = append(out, rawPair{key: key, value: value})
	}
	return out, nil
}

// keyValuePair recognises {"key": "...", "value": ...} items.
func keyValuePair(pairs []rawPair) (string, json.RawMessage, bool) {
	var key string
	var value json.RawMessage
	var hasKey, hasValue bool
	for _, kv := range pairs {
		switch kv.key {
		case "key":
			if err := json.Unmarshal(kv.value, &key); err != nil {
				return "", nil, false
			}
			hasKey = true
		case "value":
			value = kv.value
			hasValue = true
		default:
			return "", nil, false
		}
	}
	return key, value, hasKey && hasValue
}

func appendField(sec Section, key string, raw json.RawMessage) Section {
	key = strings.TrimSpace(key)
	value := strings.TrimSpace(stringify(raw))
	if key == "" || value == "" {
		return sec
	}
	if _, placeholder := placeholderValues[strings.ToLower(value)]; placeholder {
		return sec
	}
	return append(sec, Field{Key: key, Value: value})
}

// stringify renders a JSON value as field text. Arrays of scalars are
// joined with ", ".
func stringify(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return ""
		}
		return s
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return ""
		}
		parts := make([]string, 0, len(items))
		for _, item := range items {
			if s := strings.TrimSpace(stringify(item)); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case 'n':
		return ""
	}
	return string(trimmed)
}
