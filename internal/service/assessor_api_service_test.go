package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fadilmartias/ielts-assessor/internal/logger"
	"github.com/fadilmartias/ielts-assessor/internal/model"
	"github.com/fadilmartias/ielts-assessor/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/sjson"
)

type uploadedFile struct {
	name        string
	contentType string
	data        []byte
}

type multipartRecorder struct {
	values map[string][]string
	files  map[string][]uploadedFile
}

func assessorServer(t *testing.T, status int, reply string, rec *multipartRecorder) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !assert.NoError(t, r.ParseMultipartForm(32<<20)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if rec != nil {
			rec.values = r.MultipartForm.Value
			rec.files = map[string][]uploadedFile{}
			for field, headers := range r.MultipartForm.File {
				for _, fh := range headers {
					f, err := fh.Open()
					if !assert.NoError(t, err) {
						continue
					}
					data, err := io.ReadAll(f)
					assert.NoError(t, err)
					f.Close()
					rec.files[field] = append(rec.files[field], uploadedFile{fh.Filename, fh.Header.Get("Content-Type"), data})
				}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func remoteReport(t *testing.T) string {
	t.Helper()
	raw, err := sjson.SetRaw(reportJSON, "task", `{"type": "Task 2", "question": "Discuss.", "word_count": 254}`)
	require.NoError(t, err)
	return raw
}

func TestAssessorAPI_TextSubmission(t *testing.T) {
	rec := &multipartRecorder{}
	srv := assessorServer(t, http.StatusOK, remoteReport(t), rec)

	report, err := NewAssessorAPIService(srv.URL, 5*time.Second, logger.NewNopLogger()).Assess(context.Background(), model.SubmissionRequest{
		TaskType:       model.TaskTwo,
		Question:       "Discuss both views.",
		Answer:         "An essay.",
		CandidateName:  "Jane",
		CandidateEmail: "jane@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Task 2"}, rec.values["task_type"])
	assert.Equal(t, []string{"Jane"}, rec.values["name"])
	assert.Equal(t, []string{"jane@example.com"}, rec.values["email"])
	assert.Equal(t, []string{"Discuss both views."}, rec.values["question_text"])
	assert.Equal(t, []string{"An essay."}, rec.values["answer_text"])
	assert.Empty(t, rec.files)

	assert.Equal(t, 254, report.Task.WordCount)
	assert.Equal(t, model.TaskTwo, report.Task.Type)
	assert.Equal(t, "Discuss.", report.Task.Question)
}

func TestAssessorAPI_ImageSubmission(t *testing.T) {
	rec := &multipartRecorder{}
	srv := assessorServer(t, http.StatusOK, remoteReport(t), rec)

	_, err := NewAssessorAPIService(srv.URL, 5*time.Second, logger.NewNopLogger()).Assess(context.Background(), model.SubmissionRequest{
		TaskType:       model.TaskOneAcademic,
		QuestionImages: []string{util.EncodeDataURI("image/png", []byte("chart"))},
		AnswerImages: []string{
			util.EncodeDataURI("image/jpeg", []byte("page1")),
			util.EncodeDataURI("image/jpeg", []byte("page2")),
		},
	})
	require.NoError(t, err)

	assert.NotContains(t, rec.values, "question_text")
	assert.NotContains(t, rec.values, "answer_text")
	require.Len(t, rec.files["question_images"], 1)
	assert.Equal(t, "question_image_0.png", rec.files["question_images"][0].name)
	assert.Equal(t, []byte("chart"), rec.files["question_images"][0].data)

	answers := rec.files["answer_images"]
	require.Len(t, answers, 2)
	assert.Equal(t, "answer_image_0.jpg", answers[0].name)
	assert.Equal(t, "image/jpeg", answers[0].contentType)
	assert.Equal(t, []byte("page1"), answers[0].data)
	assert.Equal(t, []byte("page2"), answers[1].data)
}

func TestAssessorAPI_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		reply  string
		want   string
	}{
		{"detail string", http.StatusBadRequest, `{"detail": "Question is required"}`, "Question is required"},
		{"detail list", http.StatusUnprocessableEntity, `{"detail": [{"msg": "field required"}, {"msg": "bad email"}]}`, "field required; bad email"},
		{"error field", http.StatusInternalServerError, `{"error": "model overloaded"}`, "model overloaded"},
		{"no body", http.StatusBadGateway, ``, "Request failed with status 502"},
		{"error payload with 200", http.StatusOK, `{"error": "Image is unreadable"}`, "Image is unreadable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := assessorServer(t, tt.status, tt.reply, nil)
			_, err := NewAssessorAPIService(srv.URL, 5*time.Second, logger.NewNopLogger()).Assess(context.Background(), model.SubmissionRequest{
				TaskType: model.TaskTwo, Question: "Discuss both views.", Answer: "An essay.",
			})

			var rejected *RejectedError
			require.ErrorAs(t, err, &rejected)
			assert.Equal(t, tt.want, rejected.Message)
		})
	}
}

func TestAssessorAPI_MalformedReport(t *testing.T) {
	srv := assessorServer(t, http.StatusOK, `{"overallBandScore": 7}`, nil)
	_, err := NewAssessorAPIService(srv.URL, 5*time.Second, logger.NewNopLogger()).Assess(context.Background(), model.SubmissionRequest{
		TaskType: model.TaskTwo, Question: "Discuss both views.", Answer: "An essay.",
	})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}
