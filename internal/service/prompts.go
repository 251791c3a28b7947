package service

import (
	"fmt"
	"strings"

	"github.com/fadilmartias/ielts-assessor/internal/model"
)

const evaluationSystemPrompt = "You are an IELTS writing examiner. You grade strictly according to the public IELTS band descriptors."

func evaluationPrompt(in model.EvaluationInput) string {
	return fmt.Sprintf(`You are an IELTS writing examiner. Evaluate the following IELTS writing task submission based on the official IELTS criteria: Task Achievement/Response, Coherence and Cohesion, Lexical Resource, and Grammatical Range and Accuracy. Provide detailed feedback and suggest areas of improvement.

Band scores range from 0 to 9 in steps of 0.5. The overall band score is the mean of the four criterion scores rounded to the nearest half band. Give the CEFR level that corresponds to the overall band score.
Set "transcribedAnswer" to the answer exactly as it was evaluated.

Task Type: %s
Question: %s
Answer: %s
Candidate Name: %s
Candidate Email: %s

Respond in a JSON format.
`, in.TaskType, in.Question, in.Answer, in.CandidateName, in.CandidateEmail)
}

// evaluationJSONShape documents the expected payload for models that cannot
// take a response schema.
const evaluationJSONShape = `{
  "overallBandScore": <number 0-9>,
  "cefrLevel": "<CEFR level, e.g. B2>",
  "taskAchievementResponse": <criterion>,
  "coherenceAndCohesion": <criterion>,
  "lexicalResource": <criterion>,
  "grammaticalRangeAndAccuracy": <criterion>,
  "overallStrengths": ["..."],
  "overallWeaknesses": ["..."],
  "keyRecommendations": ["..."],
  "transcribedAnswer": "<the evaluated answer>"
}
where <criterion> is:
{
  "bandScore": <number 0-9>,
  "justification": "...",
  "strengths": ["..."],
  "weaknesses": ["..."],
  "improvements": ["..."]
}`

func transcriptionPrompt(imageCount int) string {
	var b strings.Builder
	b.WriteString("You are an AI that transcribes images to text. Extract the text in the image provided.")
	if imageCount > 1 {
		fmt.Fprintf(&b, " There are %d images. They are consecutive pages of the same handwritten document, in order. Combine their text into one coherent transcription without repeating text that appears on two pages.", imageCount)
	}
	b.WriteString(" Keep the original wording, spelling and paragraph breaks; do not correct mistakes.")
	return b.String()
}

func analysisPrompt(text string) string {
	return "You are an expert IELTS writing assessor. Analyze the following text and identify the key strengths and weaknesses, providing specific examples from the text for each point.\n\nText: " + text
}
