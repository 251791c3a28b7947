package model

type TaskType string

const (
	TaskOneAcademic TaskType = "Task 1 (Academic)"
	TaskOneGeneral  TaskType = "Task 1 (General)"
	TaskTwo         TaskType = "Task 2"
)

var TaskTypes = []TaskType{TaskOneAcademic, TaskOneGeneral, TaskTwo}

func (t TaskType) Valid() bool {
	for _, v := range TaskTypes {
		if t == v {
			return true
		}
	}
	return false
}

// SubmissionInput is the raw form as received from a client. Images are
// data URIs in upload order.
type SubmissionInput struct {
	TaskType       string   `json:"taskType" validate:"required,tasktype"`
	Question       string   `json:"question"`
	QuestionImages []string `json:"questionImages"`
	Answer         string   `json:"answer"`
	AnswerImages   []string `json:"answerImages"`
	CandidateName  string   `json:"candidateName" validate:"omitempty,max=120"`
	CandidateEmail string   `json:"candidateEmail" validate:"omitempty,email"`
}

// SubmissionRequest is a validated submission. For each of question and
// answer exactly one of the text or the image list is set.
type SubmissionRequest struct {
	TaskType       TaskType
	Question       string
	QuestionImages []string
	Answer         string
	AnswerImages   []string
	CandidateName  string
	CandidateEmail string
}

// EvaluationInput is what the evaluation collaborator receives once the
// question and answer have been resolved to text.
type EvaluationInput struct {
	TaskType       TaskType `json:"taskType"`
	Question       string   `json:"question"`
	Answer         string   `json:"answer"`
	CandidateName  string   `json:"candidateName,omitempty"`
	CandidateEmail string   `json:"candidateEmail,omitempty"`
}

type CriterionAssessment struct {
	BandScore     float64  `json:"bandScore"`
	Justification string   `json:"justification"`
	Strengths     []string `json:"strengths"`
	Weaknesses    []string `json:"weaknesses"`
	Improvements  []string `json:"improvements"`
}

type TaskInfo struct {
	Type      TaskType `json:"type"`
	Question  string   `json:"question"`
	WordCount int      `json:"wordCount"`
}

type Candidate struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// AssessmentReport is the normalized outcome of one submission. It lives
// only in memory.
type AssessmentReport struct {
	OverallBandScore            float64             `json:"overallBandScore"`
	CEFRLevel                   string              `json:"cefrLevel"`
	TaskAchievementResponse     CriterionAssessment `json:"taskAchievementResponse"`
	CoherenceAndCohesion        CriterionAssessment `json:"coherenceAndCohesion"`
	LexicalResource             CriterionAssessment `json:"lexicalResource"`
	GrammaticalRangeAndAccuracy CriterionAssessment `json:"grammaticalRangeAndAccuracy"`
	OverallStrengths            []string            `json:"overallStrengths"`
	OverallWeaknesses           []string            `json:"overallWeaknesses"`
	KeyRecommendations          []string            `json:"keyRecommendations"`
	TranscribedAnswer           string              `json:"transcribedAnswer"`
	Task                        TaskInfo            `json:"task"`
	Candidate                   *Candidate          `json:"candidate,omitempty"`
}

type Criterion struct {
	Key        string
	Name       string
	Assessment CriterionAssessment
}

// Criteria lists the four criteria in the official order.
func (r *AssessmentReport) Criteria() []Criterion {
	return []Criterion{
		{Key: "taskAchievementResponse", Name: "Task Achievement/Response", Assessment: r.TaskAchievementResponse},
		{Key: "coherenceAndCohesion", Name: "Coherence and Cohesion", Assessment: r.CoherenceAndCohesion},
		{Key: "lexicalResource", Name: "Lexical Resource", Assessment: r.LexicalResource},
		{Key: "grammaticalRangeAndAccuracy", Name: "Grammatical Range and Accuracy", Assessment: r.GrammaticalRangeAndAccuracy},
	}
}

// TextAnalysis is the output of the standalone strengths/weaknesses flow.
type TextAnalysis struct {
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
}
