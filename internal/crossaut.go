package internal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vladqvarvar-create/Crossaut-fire/internal/api"
	"github.com/vladqvarvar-create/Crossaut-fire/internal/bot"
	"github.com/vladqvarvar-create/Crossaut-fire/internal/event"
	"github.com/vladqvarvar-create/Crossaut-fire/internal/ffmpeg"
	"github.com/vladqvarvar-create/Crossaut-fire/internal/history"
	"github.com/vladqvarvar-create/Crossaut-fire/internal/processing"
	"github.com/vladqvarvar-create/Crossaut-fire/internal/provision"
	"github.com/vladqvarvar-create/Crossaut-fire/internal/recognize"
	"github.com/vladqvarvar-create/Crossaut-fire/internal/telegram"
	"github.com/vladqvarvar-create/Crossaut-fire/pkg/logger"
)

var log = logger.Get("Core")

type (
	RunnableService interface {
		Run(context.Context) error
	}

	RestGateway interface {
		RunnableService
		BroadcastJobUpdate(uuid.UUID) error
		BroadcastJobComplete(uuid.UUID) error
	}

	TranscriptionService interface {
		RunnableService
		Enqueue(kind processing.JobKind, chatID int64, messageID int64, progressMessageID int64, fileID string, duration int) *processing.Job
		GetJob(uuid.UUID) *processing.Job
		GetAllJobs() []*processing.Job
	}

	BotService interface {
		RunnableService
		Username() string
		UpdateProgress(ctx context.Context, job *processing.Job, text string)
	}
)

// crossautImpl is the top-level object for the bot. It owns every service
// instance and the event bus connecting them, and is responsible for
// provisioning the host before the services come up.
type crossautImpl struct {
	eventBus     event.EventCoordinator
	config       CrossautConfig
	historyStore *history.Store

	transcriptionService TranscriptionService
	botService           BotService
	restGateway          RestGateway

	statusMutex sync.Mutex
	provisioned bool
	startedAt   time.Time
}

func New(config CrossautConfig) *crossautImpl {
	log.Emit(logger.DEBUG, "Bootstrapping services using config: %#v\n", config)
	crossaut := &crossautImpl{
		eventBus:     event.New(),
		config:       config,
		historyStore: history.New(),
	}

	telegramClient := telegram.NewClient(config.Telegram)
	normaliser := ffmpeg.NewNormaliser(config.Ffmpeg)

	if serv, err := processing.New(config.Processing, telegramClient, normaliser, recognize.NewDemoTranscriber(), crossaut, crossaut.eventBus); err == nil {
		crossaut.transcriptionService = serv
	} else {
		panic(fmt.Sprintf("failed to construct transcription service due to error: %s", err.Error()))
	}

	crossaut.botService = bot.New(config.Bot, telegramClient, crossaut.transcriptionService, crossaut.historyStore)
	crossaut.restGateway = api.NewRestGateway(&config.Api, crossaut.transcriptionService, crossaut.historyStore, crossaut)

	return crossaut
}

// Run brings up all of Crossaut:
//   - host provisioning (system and Python dependencies)
//   - history store connection
//   - event bus wiring
//   - service instances (bot, transcription pipeline, REST gateway)
//
// This function will not return until the bot is stopped. To stop it, the
// provided context must be cancelled. Errors from which the bot cannot
// recover will also cause it to stop.
func (crossaut *crossautImpl) Run(parent context.Context) error {
	crossaut.statusMutex.Lock()
	crossaut.startedAt = time.Now()
	crossaut.statusMutex.Unlock()

	crossaut.registerEventHandlers()

	if err := crossaut.provisionHost(parent); err != nil {
		return err
	}

	log.Emit(logger.NEW, "Connecting to history store...\n")
	if err := crossaut.historyStore.Connect(crossaut.config.History); err != nil {
		return err
	}
	defer crossaut.historyStore.Close()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	crashHandler := func(label string, err error) {
		log.Emit(logger.FATAL, "Service crash (%s)! %s\n", label, err.Error())
		cancel()
	}

	wg := &sync.WaitGroup{}
	crossaut.spawnAsyncService(ctx, wg, crossaut.transcriptionService, "transcription-service", crashHandler)
	crossaut.spawnAsyncService(ctx, wg, crossaut.botService, "bot-service", crashHandler)
	crossaut.spawnAsyncService(ctx, wg, crossaut.restGateway, "rest-gateway", crashHandler)
	log.Emit(logger.SUCCESS, "Crossaut services spawned!\n")

	wg.Wait()
	return nil
}

// provisionHost installs the system and Python dependencies the pipeline
// needs, then verifies the install actually landed. Errors are returned
// unwrapped so the caller can inspect the failing step's exit code.
func (crossaut *crossautImpl) provisionHost(ctx context.Context) error {
	if !crossaut.config.Provision.Enabled {
		log.Emit(logger.INFO, "Host provisioning disabled, assuming dependencies are already present\n")
		return nil
	}

	log.Emit(logger.NEW, "Provisioning host dependencies...\n")
	provisioner := provision.New(crossaut.config.Provision)
	if err := provisioner.Run(ctx); err != nil {
		return err
	}

	if err := provisioner.Verify(ctx); err != nil {
		return err
	}

	crossaut.eventBus.Dispatch(event.PROVISION_COMPLETE, nil)
	log.Emit(logger.SUCCESS, "Host provisioning complete\n")
	return nil
}

// registerEventHandlers connects the event bus to the websocket activity
// feed, the history store, and the health endpoint's provisioned flag.
// Broadcasts run async as they only fan out to connected clients; history
// persistence runs on the dispatching thread so a completed job is
// recorded before its JOB_COMPLETE handling finishes. Must be called
// before provisioning so the PROVISION_COMPLETE dispatch has a subscriber.
func (crossaut *crossautImpl) registerEventHandlers() {
	provisionEvents := make(event.HandlerChannel, 1)
	crossaut.eventBus.RegisterHandlerChannel(provisionEvents, event.PROVISION_COMPLETE)
	go func() {
		for range provisionEvents {
			crossaut.statusMutex.Lock()
			crossaut.provisioned = true
			crossaut.statusMutex.Unlock()
		}
	}()

	crossaut.eventBus.RegisterAsyncHandlerFunction(event.JOB_UPDATE, func(_ event.Event, payload event.Payload) {
		if id, ok := payload.(uuid.UUID); ok {
			if err := crossaut.restGateway.BroadcastJobUpdate(id); err != nil {
				log.Emit(logger.WARNING, "Failed to broadcast job update: %v\n", err)
			}
		}
	})

	crossaut.eventBus.RegisterHandlerFunction(event.JOB_COMPLETE, func(_ event.Event, payload event.Payload) {
		id, ok := payload.(uuid.UUID)
		if !ok {
			return
		}

		if err := crossaut.restGateway.BroadcastJobComplete(id); err != nil {
			log.Emit(logger.WARNING, "Failed to broadcast job completion: %v\n", err)
		}

		if job := crossaut.transcriptionService.GetJob(id); job != nil {
			crossaut.recordJobOutcome(job)
		}
	})
}

func (crossaut *crossautImpl) recordJobOutcome(job *processing.Job) {
	record := history.Record{
		ID:           job.ID.String(),
		ChatID:       job.ChatID,
		Kind:         job.Kind.String(),
		DurationSecs: job.Duration,
		EnqueuedAt:   job.EnqueuedAt,
		FinishedAt:   time.Now(),
	}
	if job.Result != nil {
		record.Result = &job.Result.Text
	}
	if job.Trouble != nil {
		message := job.Trouble.Error()
		record.Trouble = &message
	}

	if err := crossaut.historyStore.Save(record); err != nil {
		log.Emit(logger.ERROR, "Failed to persist outcome of job %s: %v\n", job.ID, err)
	}
}

// UpdateProgress relays pipeline stage updates to the chat that submitted
// the job.
func (crossaut *crossautImpl) UpdateProgress(ctx context.Context, job *processing.Job, text string) {
	crossaut.botService.UpdateProgress(ctx, job, text)
}

func (crossaut *crossautImpl) BotUsername() string {
	return crossaut.botService.Username()
}

func (crossaut *crossautImpl) Provisioned() bool {
	crossaut.statusMutex.Lock()
	defer crossaut.statusMutex.Unlock()
	return crossaut.provisioned
}

func (crossaut *crossautImpl) StartedAt() time.Time {
	crossaut.statusMutex.Lock()
	defer crossaut.statusMutex.Unlock()
	return crossaut.startedAt
}

// spawnAsyncService will run the provided function/service as its own
// go-routine, ensuring that the service waitgroup is updated correctly
func (crossaut *crossautImpl) spawnAsyncService(ctx context.Context, wg *sync.WaitGroup, service RunnableService, serviceLabel string, crashHandler func(string, error)) {
	log.Emit(logger.NEW, "Spawning %s\n", serviceLabel)
	wg.Add(1)

	go func(wg *sync.WaitGroup, label string, crash func(string, error)) {
		defer func() {
			if r := recover(); r != nil {
				crash(label, fmt.Errorf("panic %v", r))
			}
		}()

		defer wg.Done()
		if err := service.Run(ctx); err != nil {
			crash(label, err)
		}
	}(wg, serviceLabel, crashHandler)
}
