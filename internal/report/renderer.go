// Package report turns an assessment report into a display structure with
// score tiers. Tiers are presentational only.
package report

import (
	"fmt"
	"math"

	"github.com/fadilmartias/ielts-assessor/internal/model"
)

type Tier string

const (
	TierStrong Tier = "strong"
	TierMid    Tier = "mid"
	TierWeak   Tier = "weak"
)

const (
	strongThreshold = 7.0
	midThreshold    = 5.5
	maxBand         = 9.0
)

// TierFor classifies a band: >= 7.0 strong, >= 5.5 mid, otherwise weak.
func TierFor(band float64) Tier {
	switch {
	case band >= strongThreshold:
		return TierStrong
	case band >= midThreshold:
		return TierMid
	default:
		return TierWeak
	}
}

func (t Tier) Color() string {
	switch t {
	case TierStrong:
		return "green"
	case TierMid:
		return "yellow"
	}
	return "red"
}

func (t Tier) Badge() string {
	switch t {
	case TierStrong:
		return "success"
	case TierMid:
		return "warning"
	}
	return "destructive"
}

type Score struct {
	Value float64 `json:"value"`
	Label string  `json:"label"`
	Tier  Tier    `json:"tier"`
	Color string  `json:"color"`
	Badge string  `json:"badge"`
}

type CriterionView struct {
	Key           string   `json:"key"`
	Name          string   `json:"name"`
	Score         Score    `json:"score"`
	Justification string   `json:"justification"`
	Strengths     []string `json:"strengths"`
	Weaknesses    []string `json:"weaknesses"`
	Improvements  []string `json:"improvements"`
}

type View struct {
	Overall            Score           `json:"overall"`
	ProgressPercent    float64         `json:"progressPercent"`
	CEFRLevel          string          `json:"cefrLevel"`
	Task               model.TaskInfo  `json:"task"`
	Criteria           []CriterionView `json:"criteria"`
	OverallStrengths   []string        `json:"overallStrengths"`
	OverallWeaknesses  []string        `json:"overallWeaknesses"`
	KeyRecommendations []string        `json:"keyRecommendations"`
	TranscribedAnswer  string          `json:"transcribedAnswer"`
}

// Render builds the view for r. It does not modify r.
func Render(r *model.AssessmentReport) View {
	v := View{
		Overall:            scoreOf(r.OverallBandScore),
		ProgressPercent:    progress(r.OverallBandScore),
		CEFRLevel:          r.CEFRLevel,
		Task:               r.Task,
		OverallStrengths:   r.OverallStrengths,
		OverallWeaknesses:  r.OverallWeaknesses,
		KeyRecommendations: r.KeyRecommendations,
		TranscribedAnswer:  r.TranscribedAnswer,
	}
	for _, c := range r.Criteria() {
		v.Criteria = append(v.Criteria, CriterionView{
			Key:           c.Key,
			Name:          c.Name,
			Score:         scoreOf(c.Assessment.BandScore),
			Justification: c.Assessment.Justification,
			Strengths:     c.Assessment.Strengths,
			Weaknesses:    c.Assessment.Weaknesses,
			Improvements:  c.Assessment.Improvements,
		})
	}
	return v
}

func scoreOf(band float64) Score {
	t := TierFor(band)
	return Score{
		Value: band,
		Label: fmt.Sprintf("%.1f", band),
		Tier:  t,
		Color: t.Color(),
		Badge: t.Badge(),
	}
}

func progress(band float64) float64 {
	p := band / maxBand * 100
	return math.Max(0, math.Min(100, p))
}
