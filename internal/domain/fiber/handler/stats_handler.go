package handler

import (
	"github.com/fadilmartias/ielts-assessor/internal/dto"
	"github.com/fadilmartias/ielts-assessor/internal/repository"
	"github.com/fadilmartias/ielts-assessor/internal/response"
	"github.com/fadilmartias/ielts-assessor/internal/util"
	"github.com/gofiber/fiber/v2"
)

const maxPageSize = 100

type StatsHandler struct {
	repo *repository.AssessmentRecordRepository
}

func NewStatsHandler(repo *repository.AssessmentRecordRepository) *StatsHandler {
	return &StatsHandler{repo: repo}
}

func (h *StatsHandler) RegisterRoutes(app *fiber.App) {
	app.Get("/api/stats", h.List)
	app.Get("/api/stats/summary", h.Summary)
}

func (h *StatsHandler) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	pageSize := c.QueryInt("page_size", 20)
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = 20
	}

	records, total, err := h.repo.ListRecords(c.UserContext(), page, pageSize)
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Message: "failed to list usage statistics",
		}, err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message:    "Success get usage statistics",
		Data:       dto.NewAssessmentRecordDTOs(records),
		Pagination: response.NewPagination(page, pageSize, len(records), total),
	})
}

func (h *StatsHandler) Summary(c *fiber.Ctx) error {
	rows, err := h.repo.CountByOutcome(c.UserContext())
	if err != nil {
		return util.ErrorResponse(c, util.ErrorResponseFormat{
			Message: "failed to summarize usage statistics",
		}, err)
	}
	return util.SuccessResponse(c, util.SuccessResponseFormat{
		Message: "Success get usage summary",
		Data:    rows,
	})
}
