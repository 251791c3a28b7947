package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/fadilmartias/ielts-assessor/internal/logger"
	"github.com/fadilmartias/ielts-assessor/internal/middleware"
	"github.com/fadilmartias/ielts-assessor/internal/model"
	"github.com/fadilmartias/ielts-assessor/internal/report"
	"github.com/fadilmartias/ielts-assessor/internal/store"
	"github.com/fadilmartias/ielts-assessor/internal/usecase"
	"github.com/fadilmartias/ielts-assessor/internal/util"
	"github.com/fadilmartias/ielts-assessor/internal/validator"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
)

const (
	SessionCookie = "ielts_session"
	SessionHeader = "X-Session-ID"
)

type AssessmentHandler struct {
	uc           *usecase.AssessmentUsecase
	sessions     *store.SessionStore
	log          logger.ILogger
	rateLimitMax int
	secureCookie bool
}

func NewAssessmentHandler(uc *usecase.AssessmentUsecase, sessions *store.SessionStore, log logger.ILogger, rateLimitMax int, secureCookie bool) *AssessmentHandler {
	return &AssessmentHandler{uc: uc, sessions: sessions, log: log, rateLimitMax: rateLimitMax, secureCookie: secureCookie}
}

func (h *AssessmentHandler) RegisterRoutes(app *fiber.App) {
	api := app.Group("/api")
	api.Post("/assessments", middleware.RateLimiter(h.rateLimitMax, time.Minute), h.Submit)
	api.Get("/assessments/session", h.SessionState)
	api.Get("/assessments/session/report", h.SessionReport)
	api.Delete("/assessments/session", h.EndSession)
	api.Post("/analysis/strengths-weaknesses", middleware.RateLimiter(h.rateLimitMax, time.Minute), h.Analyze)
}

func (h *AssessmentHandler) Submit(c *fiber.Ctx) error {
	sessionID := h.sessionID(c)
	token := h.sessions.StartLoading(sessionID)

	input, err := h.parseSubmission(c)
	if err != nil {
		h.sessions.SetError(sessionID, token, usecase.UserMessage(err))
		return h.respondError(c, err)
	}

	result, err := h.uc.Submit(c.UserContext(), input)
	if err != nil {
		if !h.sessions.SetError(sessionID, token, usecase.UserMessage(err)) {
			h.log.Info("handler", "discarded stale assessment error", map[string]interface{}{"kind": usecase.KindOf(err)})
		}
		return h.respondError(c, err)
	}

	if !h.sessions.SetResult(sessionID, token, result) {
		h.log.Info("handler", "discarded stale assessment result", nil)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Assessment completed",
		Data:    result,
	})
}

func (h *AssessmentHandler) SessionState(c *fiber.Ctx) error {
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Success get session state",
		Data:    h.sessions.Get(h.sessionID(c)),
	})
}

func (h *AssessmentHandler) SessionReport(c *fiber.Ctx) error {
	state := h.sessions.Get(h.sessionID(c))
	if state.Result == nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusNotFound,
			Message: "no assessment result in this session",
		})
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Success get assessment report",
		Data:    report.Render(state.Result),
	})
}

func (h *AssessmentHandler) EndSession(c *fiber.Ctx) error {
	h.sessions.Clear(h.sessionID(c))
	c.ClearCookie(SessionCookie)
	return util.SuccessResponse(c, util.SuccessResponseFormat{Message: "Session ended"})
}

type analyzeRequest struct {
	Text string `json:"text"`
}

func (h *AssessmentHandler) Analyze(c *fiber.Ctx) error {
	var req analyzeRequest
	if err := c.BodyParser(&req); err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusBadRequest,
			Message: "invalid request body",
		}, err)
	}
	analysis, err := h.uc.AnalyzeText(c.UserContext(), req.Text)
	if err != nil {
		return h.respondError(c, err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Success analyze text",
		Data:    analysis,
	})
}

// sessionID returns a copy of the caller's session ID; it outlives the
// request as a store key, so it must not alias fasthttp's buffers.
func (h *AssessmentHandler) sessionID(c *fiber.Ctx) string {
	if id := c.Get(SessionHeader); id != "" {
		return utils.CopyString(id)
	}
	if id := c.Cookies(SessionCookie); id != "" {
		return utils.CopyString(id)
	}
	id := uuid.NewString()
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    id,
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	c.Set(SessionHeader, id)
	return id
}

func (h *AssessmentHandler) parseSubmission(c *fiber.Ctx) (model.SubmissionInput, error) {
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return h.parseMultipart(c)
	}
	var in model.SubmissionInput
	if err := c.BodyParser(&in); err != nil {
		return in, &usecase.AssessmentError{Kind: usecase.KindValidation, Message: "Invalid form data: request body could not be parsed.", Err: err}
	}
	return in, nil
}

// parseMultipart accepts the field names of the remote assessor API.
func (h *AssessmentHandler) parseMultipart(c *fiber.Ctx) (model.SubmissionInput, error) {
	var in model.SubmissionInput
	form, err := c.MultipartForm()
	if err != nil {
		return in, &usecase.AssessmentError{Kind: usecase.KindValidation, Message: "Invalid form data: multipart body could not be parsed.", Err: err}
	}

	in.TaskType = formValue(form, "task_type")
	in.CandidateName = formValue(form, "name")
	in.CandidateEmail = formValue(form, "email")
	in.Question = formValue(form, "question_text")
	in.Answer = formValue(form, "answer_text")

	fieldErrs := map[string]string{}
	var uploadErrs []string
	for _, f := range []struct {
		form string
		json string
		dst  *[]string
	}{
		{"question_images", "questionImages", &in.QuestionImages},
		{"answer_images", "answerImages", &in.AnswerImages},
	} {
		files, err := readFiles(form.File[f.form])
		if err != nil {
			return in, &usecase.AssessmentError{Kind: usecase.KindValidation, Message: "Invalid form data: failed to read file.", Err: err}
		}
		accepted, errs := validator.AppendImages(*f.dst, files)
		*f.dst = accepted
		if len(errs) > 0 {
			fieldErrs[f.json] = strings.Join(errs, " ")
			uploadErrs = append(uploadErrs, errs...)
		}
	}
	if len(fieldErrs) > 0 {
		return in, &usecase.AssessmentError{
			Kind:    usecase.KindValidation,
			Message: "Invalid form data: " + strings.Join(uploadErrs, " "),
			Fields:  fieldErrs,
		}
	}
	return in, nil
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func readFiles(headers []*multipart.FileHeader) ([]validator.ImageFile, error) {
	files := make([]validator.ImageFile, 0, len(headers))
	for _, fh := range headers {
		f := validator.ImageFile{Name: fh.Filename, MIMEType: fh.Header.Get(fiber.HeaderContentType), Size: fh.Size}
		if fh.Size > validator.MaxImageBytes {
			files = append(files, f)
			continue
		}
		src, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		f.Data, err = io.ReadAll(src)
		src.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		files = append(files, f)
	}
	return files, nil
}

func (h *AssessmentHandler) respondError(c *fiber.Ctx, err error) error {
	var ae *usecase.AssessmentError
	if !errors.As(err, &ae) {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Code:    fiber.StatusInternalServerError,
			Message: usecase.UserMessage(err),
		}, err)
	}

	code := fiber.StatusInternalServerError
	switch ae.Kind {
	case usecase.KindValidation, usecase.KindTranscription:
		code = fiber.StatusUnprocessableEntity
	case usecase.KindEvaluation:
		code = fiber.StatusBadGateway
	}
	if code >= fiber.StatusInternalServerError || ae.Kind == usecase.KindEvaluation {
		h.log.Error("handler", "assessment failed", map[string]interface{}{"kind": ae.Kind, "error": err})
	}

	format := util.ErrorResponseFormat{Code: code, Message: ae.Message}
	if len(ae.Fields) > 0 {
		format.Details = ae.Fields
	}
	return util.ErrorResponse(c, format, ae.Err)
}
