package report

import (
	"testing"

	"github.com/fadilmartias/ielts-assessor/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierFor(t *testing.T) {
	tests := []struct {
		band float64
		want Tier
	}{
		{9.0, TierStrong},
		{7.0, TierStrong},
		{6.9999, TierMid},
		{5.5, TierMid},
		{5.4999, TierWeak},
		{0, TierWeak},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TierFor(tt.band), "band %v", tt.band)
	}
}

func TestTierPresentation(t *testing.T) {
	assert.Equal(t, "green", TierStrong.Color())
	assert.Equal(t, "yellow", TierMid.Color())
	assert.Equal(t, "red", TierWeak.Color())
	assert.Equal(t, "success", TierStrong.Badge())
	assert.Equal(t, "warning", TierMid.Badge())
	assert.Equal(t, "destructive", TierWeak.Badge())
}

func TestRender(t *testing.T) {
	r := &model.AssessmentReport{
		OverallBandScore:            6.5,
		CEFRLevel:                   "B2",
		TaskAchievementResponse:     model.CriterionAssessment{BandScore: 7, Justification: "Clear position."},
		CoherenceAndCohesion:        model.CriterionAssessment{BandScore: 6},
		LexicalResource:             model.CriterionAssessment{BandScore: 6.5},
		GrammaticalRangeAndAccuracy: model.CriterionAssessment{BandScore: 5, Weaknesses: []string{"Article errors"}},
		KeyRecommendations:          []string{"Vary sentence structure"},
		TranscribedAnswer:           "essay",
		Task:                        model.TaskInfo{Type: model.TaskTwo, Question: "Discuss.", WordCount: 260},
	}

	v := Render(r)

	assert.Equal(t, "6.5", v.Overall.Label)
	assert.Equal(t, TierMid, v.Overall.Tier)
	assert.InDelta(t, 72.22, v.ProgressPercent, 0.01)
	assert.Equal(t, "B2", v.CEFRLevel)
	assert.Equal(t, 260, v.Task.WordCount)

	require.Len(t, v.Criteria, 4)
	assert.Equal(t, "Task Achievement/Response", v.Criteria[0].Name)
	assert.Equal(t, "7.0", v.Criteria[0].Score.Label)
	assert.Equal(t, TierStrong, v.Criteria[0].Score.Tier)
	assert.Equal(t, "coherenceAndCohesion", v.Criteria[1].Key)
	assert.Equal(t, "Lexical Resource", v.Criteria[2].Name)
	assert.Equal(t, "Grammatical Range and Accuracy", v.Criteria[3].Name)
	assert.Equal(t, TierWeak, v.Criteria[3].Score.Tier)
	assert.Equal(t, []string{"Article errors"}, v.Criteria[3].Weaknesses)

	assert.Equal(t, 6.5, r.OverallBandScore)
}

func TestRender_ProgressIsClamped(t *testing.T) {
	assert.Equal(t, 100.0, Render(&model.AssessmentReport{OverallBandScore: 9.5}).ProgressPercent)
	assert.Equal(t, 0.0, Render(&model.AssessmentReport{OverallBandScore: -1}).ProgressPercent)
}
