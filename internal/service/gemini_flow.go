package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fadilmartias/ielts-assessor/internal/model"
	"github.com/fadilmartias/ielts-assessor/internal/util"
	"github.com/tidwall/gjson"
	"google.golang.org/genai"
)

// GeminiAssessmentFlow runs the schema constrained prompts against Gemini.
type GeminiAssessmentFlow struct {
	gemini GeminiServiceInterface
	model  string
}

func NewGeminiAssessmentFlow(gemini GeminiServiceInterface, model string) *GeminiAssessmentFlow {
	return &GeminiAssessmentFlow{gemini: gemini, model: model}
}

func (f *GeminiAssessmentFlow) Transcribe(ctx context.Context, images []string) (string, error) {
	if len(images) == 0 {
		return "", fmt.Errorf("no images to transcribe")
	}
	parts := []*genai.Part{genai.NewPartFromText(transcriptionPrompt(len(images)))}
	for i, uri := range images {
		mimeType, data, err := util.DecodeDataURI(uri)
		if err != nil {
			return "", fmt.Errorf("image %d: %w", i+1, err)
		}
		parts = append(parts, genai.NewPartFromBytes(data, mimeType))
	}

	text, err := f.generate(ctx, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, transcriptionSchema, nil)
	if err != nil {
		return "", err
	}
	t := gjson.Get(text, "transcription")
	if !t.Exists() {
		return "", fmt.Errorf("%w: missing transcription", ErrMalformedResponse)
	}
	return strings.TrimSpace(t.String()), nil
}

func (f *GeminiAssessmentFlow) Evaluate(ctx context.Context, in model.EvaluationInput) (*model.AssessmentReport, error) {
	system := genai.NewContentFromText(evaluationSystemPrompt, genai.RoleUser)
	text, err := f.generate(ctx, genai.Text(evaluationPrompt(in)), evaluationSchema, system)
	if err != nil {
		return nil, err
	}
	return DecodeReport(text)
}

func (f *GeminiAssessmentFlow) AnalyzeText(ctx context.Context, text string) (*model.TextAnalysis, error) {
	out, err := f.generate(ctx, genai.Text(analysisPrompt(text)), analysisSchema, nil)
	if err != nil {
		return nil, err
	}
	var analysis model.TextAnalysis
	if err := json.Unmarshal([]byte(stripCodeFence(out)), &analysis); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &analysis, nil
}

func (f *GeminiAssessmentFlow) generate(ctx context.Context, contents []*genai.Content, schema *genai.Schema, system *genai.Content) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(float32(0.1)),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    schema,
		SystemInstruction: system,
	}
	result, err := f.gemini.GenerateContent(ctx, f.model, contents, cfg)
	if err != nil {
		return "", err
	}
	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}
	return text, nil
}

func stringSchema(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: desc}
}

func numberSchema(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeNumber, Description: desc}
}

func stringListSchema(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Description: desc, Items: &genai.Schema{Type: genai.TypeString}}
}

func criterionSchema(name string) *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeObject,
		Description: "Evaluation of " + name + ".",
		Properties: map[string]*genai.Schema{
			"bandScore":     numberSchema("The band score for " + name + "."),
			"justification": stringSchema("Justification for the " + name + " band score."),
			"strengths":     stringListSchema("Strengths in " + name + "."),
			"weaknesses":    stringListSchema("Weaknesses in " + name + "."),
			"improvements":  stringListSchema("Suggestions for improvement in " + name + "."),
		},
		Required: requiredCriterionFields,
	}
}

var evaluationSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"overallBandScore":            numberSchema("The overall band score for the writing task."),
		"cefrLevel":                   stringSchema("The CEFR level corresponding to the band score."),
		"taskAchievementResponse":     criterionSchema("Task Achievement/Response"),
		"coherenceAndCohesion":        criterionSchema("Coherence and Cohesion"),
		"lexicalResource":             criterionSchema("Lexical Resource"),
		"grammaticalRangeAndAccuracy": criterionSchema("Grammatical Range and Accuracy"),
		"overallStrengths":            stringListSchema("Overall strengths of the writing task."),
		"overallWeaknesses":           stringListSchema("Overall weaknesses of the writing task."),
		"keyRecommendations":          stringListSchema("Key recommendations for improvement."),
		"transcribedAnswer":           stringSchema("The transcribed version of the answer."),
	},
	Required: []string{
		"overallBandScore", "cefrLevel",
		"taskAchievementResponse", "coherenceAndCohesion", "lexicalResource", "grammaticalRangeAndAccuracy",
		"overallStrengths", "overallWeaknesses", "keyRecommendations", "transcribedAnswer",
	},
}

var transcriptionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"transcription": stringSchema("The transcribed text from the images."),
	},
	Required: []string{"transcription"},
}

var analysisSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"strengths":  stringListSchema("A list of the strengths identified in the text, with specific examples."),
		"weaknesses": stringListSchema("A list of the weaknesses identified in the text, with specific examples."),
	},
	Required: []string{"strengths", "weaknesses"},
}
