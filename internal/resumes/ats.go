package resumes

import (
	"context"
	"fmt"
	"strings"

	"jobprep-backend/internal/ai"
	"jobprep-backend/internal/ai/prompts"
	"jobprep-backend/internal/shared/metrics"
	"jobprep-backend/internal/shared/telemetry"
)

// Scorer computes ATS compatibility scores.
type Scorer struct {
	gateway ai.Gateway
	catalog *prompts.Catalog
}

func NewScorer(gateway ai.Gateway, catalog *prompts.Catalog) *Scorer {
	return &Scorer{gateway: gateway, catalog: catalog}
}

// Score asks the model for a 0-100 rating and falls back to HeuristicScore
// when the call fails or the reply has no integer. A placeholder record is
// never sent to the model.
func (s *Scorer) Score(ctx context.Context, sections Sections) int {
	if sections.FieldCount() == 0 || sections.IsPlaceholder() {
		return HeuristicScore(sections)
	}
	score, err := s.scoreWithModel(ctx, sections)
	if err == nil {
		return score
	}
	metrics.IncAIFallback("ats_score")
	telemetry.Warn("resume.ats_fallback", map[string]any{"error": err})
	return HeuristicScore(sections)
}

func (s *Scorer) scoreWithModel(ctx context.Context, sections Sections) (int, error) {
	prompt, err := s.catalog.Render(prompts.ATSScore, map[string]any{"Sections": FormatSections(sections)})
	if err != nil {
		return 0, err
	}
	raw, err := s.gateway.GenerateText(ctx, ai.Request{
		Op:                "ats_score",
		Prompt:            prompt,
		SystemInstruction: s.catalog.Instructions.ATSScorer,
	})
	if err != nil {
		return 0, err
	}
	n, err := ai.FirstInt(raw)
	if err != nil {
		return 0, err
	}
	return ai.Clamp(n, 0, 100), nil
}

var personalBonuses = []struct {
	key    string
	points int
}{
	{"email", 15},
	{"name", 15},
	{"phone", 10},
	{"linkedin", 5},
	{"github", 5},
}

// HeuristicScore is the deterministic score: base 50, personal-info bonuses
// and per-field section bonuses with independent caps, clamped to [0,100].
func HeuristicScore(sections Sections) int {
	score := 50
	for _, b := range personalBonuses {
		if hasPersonalKey(sections.PersonalInfo, b.key) {
			score += b.points
		}
	}
	score += min(2*sections.Experience.filled(), 15)
	score += min(sections.Education.filled(), 10)
	score += min(sections.Projects.filled(), 10)
	score += min(sections.ExtraData.filled(), 5)
	return ai.Clamp(score, 0, 100)
}

// hasPersonalKey matches key or key plus a numeric suffix. The sentinel
// name never counts.
func hasPersonalKey(sec Section, key string) bool {
	for _, f := range sec {
		if f.isSentinel() || strings.TrimSpace(f.Value) == "" {
			continue
		}
		if baseKey(f.Key) == key {
			return true
		}
	}
	return false
}

var sectionTitles = map[string]string{
	SectionPersonalInfo: "PERSONAL INFORMATION",
	SectionEducation:    "EDUCATION",
	SectionExperience:   "EXPERIENCE",
	SectionProjects:     "PROJECTS",
	SectionExtraData:    "SKILLS & ADDITIONAL INFORMATION",
}

// FormatSections renders every section verbatim for prompts.
func FormatSections(sections Sections) string {
	var b strings.Builder
	for _, name := range SectionNames {
		sec, _ := sections.Get(name)
		fmt.Fprintf(&b, "%s:\n", sectionTitles[name])
		if len(sec) == 0 {
			b.WriteString("Not provided\n\n")
			continue
		}
		for _, f := range sec {
			fmt.Fprintf(&b, "- %s: %s\n", f.Key, f.Value)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}
