package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fadilmartias/ielts-assessor/internal/logger"
	"github.com/fadilmartias/ielts-assessor/internal/model"
	"github.com/fadilmartias/ielts-assessor/internal/util"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

// AssessorAPIService posts submissions to a remote assessment API that
// transcribes and evaluates in a single multipart request.
type AssessorAPIService struct {
	url    string
	client *resty.Client
	log    logger.ILogger
}

func NewAssessorAPIService(url string, timeout time.Duration, log logger.ILogger) *AssessorAPIService {
	return &AssessorAPIService{
		url:    url,
		client: resty.New().SetTimeout(timeout),
		log:    log,
	}
}

func (s *AssessorAPIService) Assess(ctx context.Context, req model.SubmissionRequest) (*model.AssessmentReport, error) {
	r := s.client.R().
		SetContext(ctx).
		SetMultipartFormData(map[string]string{
			"task_type": string(req.TaskType),
			"name":      req.CandidateName,
			"email":     req.CandidateEmail,
		})

	if req.Question != "" {
		r.SetMultipartFormData(map[string]string{"question_text": req.Question})
	}
	if err := attachImages(r, "question_images", "question_image", req.QuestionImages); err != nil {
		return nil, err
	}
	if req.Answer != "" {
		r.SetMultipartFormData(map[string]string{"answer_text": req.Answer})
	}
	if err := attachImages(r, "answer_images", "answer_image", req.AnswerImages); err != nil {
		return nil, err
	}

	resp, err := r.Post(s.url)
	if err != nil {
		return nil, fmt.Errorf("assessment request failed: %w", err)
	}

	body := resp.String()
	if resp.IsError() {
		s.log.Warn("assessor_api", "assessment request rejected", map[string]interface{}{"status": resp.StatusCode()})
		return nil, &RejectedError{Message: remoteErrorMessage(body, resp.StatusCode())}
	}

	report, err := DecodeReport(body)
	if err != nil {
		return nil, err
	}
	// The remote API reports the task context with snake_case keys.
	if t := gjson.Get(body, "task"); t.IsObject() {
		report.Task.Type = model.TaskType(t.Get("type").String())
		report.Task.Question = t.Get("question").String()
		report.Task.WordCount = int(t.Get("word_count").Int())
	}
	return report, nil
}

func attachImages(r *resty.Request, field, prefix string, images []string) error {
	for i, uri := range images {
		mimeType, data, err := util.DecodeDataURI(uri)
		if err != nil {
			return fmt.Errorf("%s %d: %w", field, i+1, err)
		}
		name := fmt.Sprintf("%s_%d%s", prefix, i, util.ExtensionFor(mimeType))
		r.SetMultipartField(field, name, mimeType, bytes.NewReader(data))
	}
	return nil
}

func remoteErrorMessage(body string, status int) string {
	if gjson.Valid(body) {
		for _, key := range []string{"detail", "error"} {
			v := gjson.Get(body, key)
			if !v.Exists() {
				continue
			}
			if v.IsArray() {
				var msgs []string
				v.ForEach(func(_, item gjson.Result) bool {
					if m := item.Get("msg"); m.Exists() {
						msgs = append(msgs, m.String())
					} else {
						msgs = append(msgs, item.String())
					}
					return true
				})
				return strings.Join(msgs, "; ")
			}
			if m := v.String(); m != "" {
				return m
			}
		}
	}
	return fmt.Sprintf("Request failed with status %d", status)
}
