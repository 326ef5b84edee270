package resumes

import (
	"context"
	"strings"

	"jobprep-backend/internal/ai"
	"jobprep-backend/internal/ai/prompts"
	"jobprep-backend/internal/shared/metrics"
	"jobprep-backend/internal/shared/telemetry"
)

// Advisor answers questions about a resume. Model failures never reach
// the caller: the fixed fallback text is returned instead.
type Advisor struct {
	gateway ai.Gateway
	catalog *prompts.Catalog
}

func NewAdvisor(gateway ai.Gateway, catalog *prompts.Catalog) *Advisor {
	return &Advisor{gateway: gateway, catalog: catalog}
}

// Reply answers a chat message grounded in the resume.
func (a *Advisor) Reply(ctx context.Context, r Resume, message string) string {
	reply, err := a.generate(ctx, "resume_chat", prompts.Chat, map[string]any{
		"Sections": FormatSections(r.Sections),
		"ATSScore": r.ATSScore,
		"Message":  message,
	})
	if err != nil {
		metrics.IncAIFallback("resume_chat")
		telemetry.Warn("resume.chat_fallback", map[string]any{"resumeId": r.ID, "error": err})
		return a.catalog.Fallbacks.ChatReply
	}
	return reply
}

// Analyze produces a free-form review of the whole resume.
func (a *Advisor) Analyze(ctx context.Context, r Resume) string {
	analysis, err := a.generate(ctx, "resume_analyze", prompts.Analyze, map[string]any{
		"Sections": FormatSections(r.Sections),
		"ATSScore": r.ATSScore,
	})
	if err != nil {
		metrics.IncAIFallback("resume_analyze")
		telemetry.Warn("resume.analyze_fallback", map[string]any{"resumeId": r.ID, "error": err})
		return a.catalog.Fallbacks.AnalyzeReply
	}
	return analysis
}

func (a *Advisor) generate(ctx context.Context, op, template string, data map[string]any) (string, error) {
	prompt, err := a.catalog.Render(template, data)
	if err != nil {
		return "", err
	}
	out, err := a.gateway.GenerateText(ctx, ai.Request{
		Op:                op,
		Prompt:            prompt,
		SystemInstruction: a.catalog.Instructions.ResumeAdvisor,
	})
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", ai.ErrUnavailable
	}
	return out, nil
}
