package validator

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fadilmartias/ielts-assessor/internal/model"
	"github.com/fadilmartias/ielts-assessor/internal/util"
	"github.com/go-playground/validator/v10"
)

const (
	MinQuestionLength = 10
	MinAnswerLength   = 50
	MaxImageBytes     = 5 * 1024 * 1024
)

const (
	msgTaskType      = "You need to select a task type."
	msgMissingField  = "Please provide this field by typing or uploading an image."
	msgTextAndImages = "Provide either typed text or images, not both."
	msgEmail         = "Invalid email address."
	msgName          = "Name must be at most 120 characters."
	msgFileTooLarge  = "File must be less than 5MB."
	msgFileInvalid   = "Failed to read file."
)

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("tasktype", func(fl validator.FieldLevel) bool {
		return model.TaskType(fl.Field().String()).Valid()
	})
	return v
}

// ImageFile is one uploaded file before encoding. Size may be set without
// Data for files that were not read because they are too large.
type ImageFile struct {
	Name     string
	MIMEType string
	Size     int64
	Data     []byte
}

// ValidateSubmission checks a raw submission and returns the normalized
// request, or a FormError keyed by JSON field name.
func ValidateSubmission(in model.SubmissionInput) (*model.SubmissionRequest, *util.FormError) {
	fieldErrs := map[string]string{}
	var order []string
	addErr := func(field, msg string) {
		if _, ok := fieldErrs[field]; ok {
			return
		}
		fieldErrs[field] = msg
		order = append(order, msg)
	}

	in.TaskType = strings.TrimSpace(in.TaskType)
	in.CandidateName = strings.TrimSpace(in.CandidateName)
	in.CandidateEmail = strings.TrimSpace(in.CandidateEmail)

	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			addErr("form", err.Error())
		}
		for _, fe := range verrs {
			switch fe.Field() {
			case "TaskType":
				addErr("taskType", msgTaskType)
			case "CandidateEmail":
				addErr("candidateEmail", msgEmail)
			case "CandidateName":
				addErr("candidateName", msgName)
			default:
				addErr(fe.Field(), fmt.Sprintf("%s is invalid.", fe.Field()))
			}
		}
	}

	question := strings.TrimSpace(in.Question)
	if msg := checkTextOrImages(question, in.QuestionImages, MinQuestionLength, "Question"); msg != "" {
		addErr(fieldFor("question", in.QuestionImages), msg)
	}
	answer := strings.TrimSpace(in.Answer)
	if msg := checkTextOrImages(answer, in.AnswerImages, MinAnswerLength, "Answer"); msg != "" {
		addErr(fieldFor("answer", in.AnswerImages), msg)
	}

	if msg := checkImages(in.QuestionImages); msg != "" {
		addErr("questionImages", msg)
	}
	if msg := checkImages(in.AnswerImages); msg != "" {
		addErr("answerImages", msg)
	}

	if len(fieldErrs) > 0 {
		return nil, util.NewFormError("Invalid form data: "+strings.Join(order, " "), fieldErrs)
	}

	req := &model.SubmissionRequest{
		TaskType:       model.TaskType(in.TaskType),
		CandidateName:  in.CandidateName,
		CandidateEmail: in.CandidateEmail,
	}
	if len(in.QuestionImages) > 0 {
		req.QuestionImages = append([]string(nil), in.QuestionImages...)
	} else {
		req.Question = question
	}
	if len(in.AnswerImages) > 0 {
		req.AnswerImages = append([]string(nil), in.AnswerImages...)
	} else {
		req.Answer = answer
	}
	return req, nil
}

// MeetsMinimum reports whether trimmed text reaches min characters.
func MeetsMinimum(text string, min int) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) >= min
}

// AppendImages encodes files and appends the accepted ones to existing.
// Rejected files produce one message each; existing entries are kept.
func AppendImages(existing []string, files []ImageFile) ([]string, []string) {
	out := append([]string(nil), existing...)
	var errs []string
	for _, f := range files {
		size := f.Size
		if size == 0 {
			size = int64(len(f.Data))
		}
		if size > MaxImageBytes {
			errs = append(errs, fmt.Sprintf("%s: %s", f.Name, msgFileTooLarge))
			continue
		}
		if len(f.Data) == 0 {
			errs = append(errs, fmt.Sprintf("%s: %s", f.Name, msgFileInvalid))
			continue
		}
		mimeType := f.MIMEType
		if mimeType == "" || mimeType == "application/octet-stream" {
			mimeType = util.DetectMIME(f.Name, f.Data)
		}
		out = append(out, util.EncodeDataURI(mimeType, f.Data))
	}
	return out, errs
}

func checkTextOrImages(text string, images []string, min int, label string) string {
	switch {
	case len(images) > 0 && text != "":
		return msgTextAndImages
	case len(images) > 0:
		return ""
	case text == "":
		return msgMissingField
	case utf8.RuneCountInString(text) < min:
		return fmt.Sprintf("%s must be at least %d characters.", label, min)
	}
	return ""
}

func checkImages(images []string) string {
	for _, uri := range images {
		size, err := util.DecodedSize(uri)
		if err != nil {
			return msgFileInvalid
		}
		if size > MaxImageBytes {
			return msgFileTooLarge
		}
		if _, _, err := util.DecodeDataURI(uri); err != nil {
			return msgFileInvalid
		}
	}
	return ""
}

func fieldFor(base string, images []string) string {
	if len(images) > 0 {
		return base + "Images"
	}
	return base
}
