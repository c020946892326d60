package processing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vladqvarvar-create/Crossaut-fire/internal/event"
	"github.com/vladqvarvar-create/Crossaut-fire/internal/recognize"
	"github.com/vladqvarvar-create/Crossaut-fire/internal/telegram"
	"github.com/vladqvarvar-create/Crossaut-fire/pkg/logger"
	"github.com/vladqvarvar-create/Crossaut-fire/pkg/worker"
)

var log = logger.Get("Processing")

type (
	downloader interface {
		GetFile(ctx context.Context, fileID string) (*telegram.File, error)
		DownloadToTemp(ctx context.Context, filePath string) (string, error)
	}

	normaliser interface {
		NormaliseToWav(ctx context.Context, inputPath string) (string, error)
		ProbeDuration(path string) (int, error)
	}

	// progressNotifier pushes stage updates back to the chat the job
	// came from. Delivery is best effort; a failed edit must not fail
	// the job.
	progressNotifier interface {
		UpdateProgress(ctx context.Context, job *Job, text string)
	}

	// transcriptionService owns the queue of transcription jobs. Jobs are
	// enqueued by the bot when an audio attachment arrives, claimed by
	// pool workers, and driven through the download/convert/recognise
	// pipeline. Completed jobs stay queryable until pruned.
	transcriptionService struct {
		*sync.Mutex

		eventBus    event.EventCoordinator
		downloader  downloader
		normaliser  normaliser
		transcriber recognize.Transcriber
		notifier    progressNotifier

		config     Config
		jobs       []*Job
		workerPool *worker.WorkerPool

		runCtx context.Context
	}
)

func New(
	config Config,
	downloader downloader,
	normaliser normaliser,
	transcriber recognize.Transcriber,
	notifier progressNotifier,
	eventBus event.EventCoordinator,
) (*transcriptionService, error) {
	if config.Parallelism < 1 {
		return nil, fmt.Errorf("processing parallelism must be at least 1, got %d", config.Parallelism)
	}

	service := &transcriptionService{
		Mutex:       &sync.Mutex{},
		eventBus:    eventBus,
		downloader:  downloader,
		normaliser:  normaliser,
		transcriber: transcriber,
		notifier:    notifier,
		config:      config,
		jobs:        make([]*Job, 0),
		workerPool:  worker.NewWorkerPool(),
	}

	for i := 0; i < config.Parallelism; i++ {
		label := fmt.Sprintf("transcription-worker-%d", i)
		service.workerPool.PushWorker(worker.NewWorker(label, service.ExecuteTask))
	}

	return service, nil
}

// Run starts the services worker pool and blocks until the provided
// context is cancelled, at which point the pool is drained and closed.
func (service *transcriptionService) Run(ctx context.Context) error {
	service.runCtx = ctx
	if err := service.workerPool.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	service.workerPool.Close()
	return nil
}

// Enqueue accepts a new piece of audio for transcription and wakes the
// worker pool. The returned job is already visible via GetJob/GetAllJobs.
func (service *transcriptionService) Enqueue(kind JobKind, chatID int64, messageID int64, progressMessageID int64, fileID string, duration int) *Job {
	job := &Job{
		ID:                uuid.New(),
		Kind:              kind,
		ChatID:            chatID,
		MessageID:         messageID,
		ProgressMessageID: progressMessageID,
		FileID:            fileID,
		Duration:          duration,
		EnqueuedAt:        time.Now(),
		State:             IDLE,
	}

	service.Lock()
	service.jobs = append(service.jobs, job)
	service.pruneTerminalJobs()
	snapshot := *job
	service.Unlock()

	log.Emit(logger.NEW, "Enqueued %s for chat %d\n", &snapshot, chatID)
	service.eventBus.Dispatch(event.JOB_UPDATE, job.ID)
	service.workerPool.WakeupWorkers()

	return &snapshot
}

// ExecuteTask is the worker function for this service, called by the
// services WorkerPool. It claims the first IDLE job it finds and runs it
// through the pipeline. If processing fails with a Trouble then it is
// raised on the job, and the job's state set to TROUBLED.
func (service *transcriptionService) ExecuteTask(w worker.Worker) (bool, error) {
	job := service.claimIdleJob()
	if job == nil {
		return false, nil
	}

	err := job.process(service.runCtx, service.downloader, service.normaliser, service.transcriber, service.notifier, service.transition, service.updateJob)
	if err != nil {
		if trbl, ok := err.(Trouble); ok {
			log.Emit(logger.ERROR, "%s failed: %s\n", job, trbl.Error())
			service.Lock()
			job.Trouble = &trbl
			service.Unlock()

			service.notifier.UpdateProgress(service.runCtx, job, trbl.UserMessage())
			service.transition(job, TROUBLED)
		} else {
			return false, err
		}
	}

	service.eventBus.Dispatch(event.JOB_COMPLETE, job.ID)
	return true, nil
}

// GetJob accepts the ID of a job and attempts to find it in the services
// queue. If it cannot be found, nil is returned. The returned job is a
// detached copy; workers mutate the queued job only under the services
// mutex, so callers must never be handed the shared pointer.
func (service *transcriptionService) GetJob(id uuid.UUID) *Job {
	service.Lock()
	defer service.Unlock()

	for _, job := range service.jobs {
		if job.ID == id {
			snapshot := *job
			return &snapshot
		}
	}

	return nil
}

// GetAllJobs returns a snapshot of the jobs known to this service. As with
// GetJob, each entry is a detached copy.
func (service *transcriptionService) GetAllJobs() []*Job {
	service.Lock()
	defer service.Unlock()

	jobs := make([]*Job, 0, len(service.jobs))
	for _, job := range service.jobs {
		snapshot := *job
		jobs = append(jobs, &snapshot)
	}

	return jobs
}

// transition moves a job to the given state under the services mutex and
// dispatches a JOB_UPDATE for observers (websocket feed, history store).
func (service *transcriptionService) transition(job *Job, state JobState) {
	service.Lock()
	job.State = state
	service.Unlock()

	service.eventBus.Dispatch(event.JOB_UPDATE, job.ID)
}

// updateJob applies fn to the queued job under the services mutex. All
// worker-side writes to job fields outside of transition go through here.
func (service *transcriptionService) updateJob(job *Job, fn func()) {
	service.Lock()
	fn()
	service.Unlock()
}

// claimIdleJob will try and find an IDLE job in the queue, and move it to
// DOWNLOADING to prevent another worker from claiming it once the mutex
// lock is released.
//
// Note: This function takes ownership of the mutex, and releases it when returning.
func (service *transcriptionService) claimIdleJob() *Job {
	service.Lock()
	defer service.Unlock()

	for _, job := range service.jobs {
		if job.State == IDLE {
			job.State = DOWNLOADING
			return job
		}
	}

	return nil
}

// pruneTerminalJobs drops the oldest terminal jobs beyond the configured
// retention count. Caller must hold the mutex.
func (service *transcriptionService) pruneTerminalJobs() {
	terminal := 0
	for _, job := range service.jobs {
		if job.State == COMPLETE || job.State == TROUBLED {
			terminal++
		}
	}

	for i := 0; i < len(service.jobs) && terminal > service.config.RetainCompleted; {
		job := service.jobs[i]
		if job.State == COMPLETE || job.State == TROUBLED {
			service.jobs = append(service.jobs[:i], service.jobs[i+1:]...)
			terminal--
			continue
		}
		i++
	}
}
