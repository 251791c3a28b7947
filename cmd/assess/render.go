package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fadilmartias/ielts-assessor/internal/report"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	headingStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))

	tierColors = map[report.Tier]lipgloss.Color{
		report.TierStrong: lipgloss.Color("10"),
		report.TierMid:    lipgloss.Color("11"),
		report.TierWeak:   lipgloss.Color("9"),
	}
)

func badge(s report.Score) string {
	return lipgloss.NewStyle().
		Bold(true).
		Padding(0, 1).
		Foreground(lipgloss.Color("0")).
		Background(tierColors[s.Tier]).
		Render(s.Label)
}

func renderTerminal(v report.View) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n\n", titleStyle.Render("IELTS Writing Assessment"))
	fmt.Fprintf(&b, "Overall band %s  CEFR %s  (%.0f%%)\n", badge(v.Overall), headingStyle.Render(v.CEFRLevel), v.ProgressPercent)
	fmt.Fprintf(&b, "%s\n\n", mutedStyle.Render(fmt.Sprintf("%s, %d words", v.Task.Type, v.Task.WordCount)))

	for _, c := range v.Criteria {
		fmt.Fprintf(&b, "%s %s\n", badge(c.Score), headingStyle.Render(c.Name))
		if c.Justification != "" {
			fmt.Fprintf(&b, "  %s\n", c.Justification)
		}
		writeList(&b, "Strengths", c.Strengths)
		writeList(&b, "Weaknesses", c.Weaknesses)
		writeList(&b, "Improvements", c.Improvements)
		b.WriteString("\n")
	}

	writeList(&b, "Overall strengths", v.OverallStrengths)
	writeList(&b, "Overall weaknesses", v.OverallWeaknesses)
	writeList(&b, "Key recommendations", v.KeyRecommendations)
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "  %s\n", mutedStyle.Render(title+":"))
	for _, it := range items {
		fmt.Fprintf(b, "    - %s\n", it)
	}
}
