package records

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/vladqvarvar-create/Crossaut-fire/internal/history"
)

type (
	// Dto is the response shape for persisted transcription history.
	Dto struct {
		Id         string  `json:"id"`
		ChatId     int64   `json:"chat_id"`
		Kind       string  `json:"kind"`
		Duration   int     `json:"duration_secs"`
		Result     *string `json:"result"`
		Trouble    *string `json:"trouble"`
		FinishedAt string  `json:"finished_at"`
	}

	Store interface {
		Recent(limit int) ([]history.Record, error)
	}

	Controller struct {
		validate *validator.Validate
		store    Store
	}
)

const defaultLimit = 20

func New(validate *validator.Validate, store Store) *Controller {
	return &Controller{validate: validate, store: store}
}

func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.GET("", controller.recent)
}

// recent returns the most recently finished transcriptions, newest
// first. The 'limit' query parameter is bounded to keep the response
// size sane.
func (controller *Controller) recent(ec echo.Context) error {
	limit := defaultLimit
	if raw := ec.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be an integer")
		}

		if err := controller.validate.Var(parsed, "gte=1,lte=100"); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be between 1 and 100")
		}

		limit = parsed
	}

	records, err := controller.store.Recent(limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	dtos := make([]*Dto, 0, len(records))
	for _, record := range records {
		dtos = append(dtos, newDto(record))
	}

	return ec.JSON(http.StatusOK, dtos)
}

func newDto(record history.Record) *Dto {
	return &Dto{
		Id:         record.ID,
		ChatId:     record.ChatID,
		Kind:       record.Kind,
		Duration:   record.DurationSecs,
		Result:     record.Result,
		Trouble:    record.Trouble,
		FinishedAt: record.FinishedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
