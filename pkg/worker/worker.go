package worker

import (
	"github.com/vladqvarvar-create/Crossaut-fire/pkg/logger"
)

var workerLogger = logger.Get("Worker")

type (
	WorkerWakeupChan chan int
	WorkerStatus     int

	// WorkerTask is the unit of work executed by a worker. The returned
	// boolean indicates whether the task found any work to do; a worker
	// whose task reports no work will go to sleep until woken.
	WorkerTask func(Worker) (bool, error)

	Worker interface {
		Start()
		Status() WorkerStatus
		WakeupChan() WorkerWakeupChan
		Label() string
		Close()
	}

	taskWorker struct {
		label         string
		task          WorkerTask
		wakeupChan    WorkerWakeupChan
		currentStatus WorkerStatus
	}
)

const (
	Sleeping WorkerStatus = iota
	Working
	Finished
)

func NewWorker(label string, task WorkerTask) *taskWorker {
	return &taskWorker{
		label:         label,
		task:          task,
		wakeupChan:    make(WorkerWakeupChan),
		currentStatus: Sleeping,
	}
}

// Start runs the workers task in a loop until the task reports that
// no work remains, at which point the worker sleeps until it's woken
// via it's wakeup channel. Closure of the wakeup channel causes the
// worker to finish. This method blocks, and is expected to be run
// inside a goroutine by the owning pool.
func (worker *taskWorker) Start() {
	worker.currentStatus = Working
	for {
		didWork, err := worker.task(worker)
		if err != nil {
			workerLogger.Emit(logger.ERROR, "Worker '%s' task reported error (%T): %v\n", worker.label, err, err)
			worker.currentStatus = Finished
			return
		}

		if didWork {
			continue
		}

		if !worker.sleep() {
			return
		}
	}
}

func (worker *taskWorker) Status() WorkerStatus { return worker.currentStatus }

func (worker *taskWorker) WakeupChan() WorkerWakeupChan { return worker.wakeupChan }

func (worker *taskWorker) Label() string { return worker.label }

// Close closes the worker by closing it's wakeup channel. Note that this
// does not interrupt a task that is currently executing.
func (worker *taskWorker) Close() {
	close(worker.wakeupChan)
}

// sleep blocks until the workers wakeup channel is signalled from
// another goroutine. Returns false if the channel was closed, which
// indicates the worker should quit.
func (worker *taskWorker) sleep() (isAlive bool) {
	worker.currentStatus = Sleeping

	if _, isAlive = <-worker.wakeupChan; isAlive {
		worker.currentStatus = Working
	} else {
		worker.currentStatus = Finished
	}

	return isAlive
}
