package jobs

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/vladqvarvar-create/Crossaut-fire/internal/processing"
)

type (
	StateDto   string
	TroubleDto struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}

	// Dto is the response shape for transcription jobs (list, get, and
	// the websocket activity feed).
	Dto struct {
		Id         uuid.UUID   `json:"id"`
		Kind       string      `json:"kind"`
		ChatId     int64       `json:"chat_id"`
		Duration   int         `json:"duration_secs"`
		State      StateDto    `json:"state"`
		Trouble    *TroubleDto `json:"trouble"`
		Result     *string     `json:"result"`
		EnqueuedAt time.Time   `json:"enqueued_at"`
	}

	Service interface {
		GetAllJobs() []*processing.Job
		GetJob(uuid.UUID) *processing.Job
	}

	Controller struct {
		validate *validator.Validate
		service  Service
	}
)

const (
	IDLE        StateDto = "IDLE"
	DOWNLOADING StateDto = "DOWNLOADING"
	CONVERTING  StateDto = "CONVERTING"
	RECOGNIZING StateDto = "RECOGNIZING"
	COMPLETE    StateDto = "COMPLETE"
	TROUBLED    StateDto = "TROUBLED"
)

func New(validate *validator.Validate, service Service) *Controller {
	return &Controller{validate: validate, service: service}
}

// SetRoutes accepts the echo group for the job endpoints and sets the
// routes on it.
func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.GET("", controller.list)
	eg.GET("/:id", controller.get)
}

// list returns all jobs known to the processing service, optionally
// filtered via the 'state' query parameter.
func (controller *Controller) list(ec echo.Context) error {
	stateFilter := ec.QueryParam("state")
	if stateFilter != "" {
		if err := controller.validate.Var(stateFilter, "oneof=IDLE DOWNLOADING CONVERTING RECOGNIZING COMPLETE TROUBLED"); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "state filter must be a valid job state")
		}
	}

	jobs := controller.service.GetAllJobs()
	dtos := make([]*Dto, 0, len(jobs))
	for _, job := range jobs {
		dto := NewDto(job)
		if stateFilter != "" && dto.State != StateDto(stateFilter) {
			continue
		}

		dtos = append(dtos, dto)
	}

	return ec.JSON(http.StatusOK, dtos)
}

func (controller *Controller) get(ec echo.Context) error {
	id, err := uuid.Parse(ec.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "job ID is not a valid UUID")
	}

	job := controller.service.GetJob(id)
	if job == nil {
		return echo.NewHTTPError(http.StatusNotFound, processing.ErrJobNotFound.Error())
	}

	return ec.JSON(http.StatusOK, NewDto(job))
}

// NewDto maps a processing job to it's API representation.
func NewDto(job *processing.Job) *Dto {
	dto := &Dto{
		Id:         job.ID,
		Kind:       job.Kind.String(),
		ChatId:     job.ChatID,
		Duration:   job.Duration,
		State:      stateToDto(job.State),
		EnqueuedAt: job.EnqueuedAt,
	}

	if job.Trouble != nil {
		dto.Trouble = &TroubleDto{Type: job.Trouble.Type().String(), Message: job.Trouble.Error()}
	}

	if job.Result != nil {
		dto.Result = &job.Result.Text
	}

	return dto
}

func stateToDto(state processing.JobState) StateDto {
	switch state {
	case processing.IDLE:
		return IDLE
	case processing.DOWNLOADING:
		return DOWNLOADING
	case processing.CONVERTING:
		return CONVERTING
	case processing.RECOGNIZING:
		return RECOGNIZING
	case processing.COMPLETE:
		return COMPLETE
	case processing.TROUBLED:
		return TROUBLED
	default:
		return StateDto("UNKNOWN")
	}
}
