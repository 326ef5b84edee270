package resumes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"jobprep-backend/internal/ai/prompts"
)

func TestHeuristicScore(t *testing.T) {
	tests := []struct {
		name     string
		sections Sections
		want     int
	}{
		{
			name:     "placeholder earns no bonus",
			sections: PlaceholderSections(),
			want:     50,
		},
		{
			name: "contact details, two experience and one education field",
			sections: Sections{
				PersonalInfo: Section{{"email", "a@b.co"}, {"name", "Ann Lee"}, {"phone", "+1 555 123 4567"}},
				Experience:   Section{{"company_name1", "Acme Inc"}, {"role1", "Engineer"}},
				Education:    Section{{"university1", "MIT"}},
			},
			want: 95,
		},
		{
			name: "numbered personal keys count once",
			sections: Sections{
				PersonalInfo: Section{{"email2", "a@b.co"}, {"linkedin", "linkedin.com/in/a"}, {"github", "github.com/a"}},
			},
			want: 75,
		},
		{
			name: "caps apply per section and total clamps to 100",
			sections: Sections{
				PersonalInfo: Section{{"email", "a"}, {"name", "b"}, {"phone", "c"}, {"linkedin", "d"}, {"github", "e"}},
				Experience:   repeatField("duty", 20),
				Education:    repeatField("degree", 20),
				Projects:     repeatField("project_name", 20),
				ExtraData:    repeatField("skills", 20),
			},
			want: 100,
		},
		{
			name: "blank values are ignored",
			sections: Sections{
				PersonalInfo: Section{{"email", "  "}},
				Experience:   Section{{"role1", ""}},
			},
			want: 50,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HeuristicScore(tt.sections))
		})
	}
}

func repeatField(key string, n int) Section {
	sec := make(Section, 0, n)
	for i := 0; i < n; i++ {
		sec = append(sec, Field{Key: key, Value: "x"})
	}
	return sec
}

func TestScorerUsesModelAndClamps(t *testing.T) {
	sections := Sections{PersonalInfo: Section{{"name", "Ann Lee"}}}
	tests := []struct {
		reply string
		want  int
	}{
		{"87", 87},
		{"Score: 72/100", 72},
		{"150", 100},
		{"-5", 0},
	}
	for _, tt := range tests {
		gw := newFakeGateway(map[string]string{"ats_score": tt.reply})
		scorer := NewScorer(gw, prompts.Default())
		assert.Equal(t, tt.want, scorer.Score(context.Background(), sections), "reply %q", tt.reply)
	}
}

func TestScorerFallsBackToHeuristic(t *testing.T) {
	sections := Sections{PersonalInfo: Section{{"name", "Ann Lee"}, {"email", "ann@example.com"}}}

	unavailable := NewScorer(newFakeGateway(nil), prompts.Default())
	assert.Equal(t, 80, unavailable.Score(context.Background(), sections))

	noNumber := NewScorer(newFakeGateway(map[string]string{"ats_score": "excellent"}), prompts.Default())
	assert.Equal(t, 80, noNumber.Score(context.Background(), sections))
}

func TestScorerSkipsModelForPlaceholder(t *testing.T) {
	gw := newFakeGateway(map[string]string{"ats_score": "99"})
	scorer := NewScorer(gw, prompts.Default())

	assert.Equal(t, 50, scorer.Score(context.Background(), PlaceholderSections()))
	assert.Zero(t, gw.called("ats_score"))
}
