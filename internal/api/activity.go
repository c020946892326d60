package api

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/vladqvarvar-create/Crossaut-fire/internal/api/jobs"
	"github.com/vladqvarvar-create/Crossaut-fire/internal/http/websocket"
)

const (
	TITLE_JOB_UPDATE   = "JOB_UPDATE"
	TITLE_JOB_COMPLETE = "JOB_COMPLETE"
)

type (
	JobUpdate struct {
		JobId uuid.UUID `json:"job_id"`
		Job   *jobs.Dto `json:"job"`
	}

	// broadcaster pushes job activity to every connected websocket
	// client. The orchestrator feeds it from the event bus.
	broadcaster struct {
		socketHub  *websocket.SocketHub
		jobService jobs.Service
	}

	jobStatusArgs struct {
		JobId string `mapstructure:"job_id"`
	}
)

func newBroadcaster(socketHub *websocket.SocketHub, jobService jobs.Service) *broadcaster {
	return &broadcaster{socketHub: socketHub, jobService: jobService}
}

func (hub *broadcaster) BroadcastJobUpdate(id uuid.UUID) error {
	return hub.broadcastJob(TITLE_JOB_UPDATE, id)
}

func (hub *broadcaster) BroadcastJobComplete(id uuid.UUID) error {
	return hub.broadcastJob(TITLE_JOB_COMPLETE, id)
}

func (hub *broadcaster) broadcastJob(title string, id uuid.UUID) error {
	job := hub.jobService.GetJob(id)
	if job == nil {
		return fmt.Errorf("cannot broadcast %s: no job with ID %s", title, id)
	}

	update := JobUpdate{JobId: id, Job: jobs.NewDto(job)}
	hub.socketHub.Send(&websocket.SocketMessage{
		Title: title,
		Body:  map[string]interface{}{"arguments": update},
		Type:  websocket.Update,
	})

	return nil
}

// bindSocketCommands wires the client-invocable commands; the connection
// payload gives new clients the current job list, and JOB_STATUS lets a
// client poll a single job over the socket.
func (gateway *RestGateway) bindSocketCommands() {
	gateway.socket.WithConnectionCallback(func() map[string]interface{} {
		all := gateway.jobService.GetAllJobs()
		dtos := make([]*jobs.Dto, 0, len(all))
		for _, job := range all {
			dtos = append(dtos, jobs.NewDto(job))
		}

		return map[string]interface{}{"jobs": dtos}
	})

	gateway.socket.BindCommand("JOB_STATUS", func(hub *websocket.SocketHub, message *websocket.SocketMessage) error {
		var args jobStatusArgs
		if err := message.DecodeArgumentsInto(&args); err != nil {
			return fmt.Errorf("JOB_STATUS arguments invalid: %w", err)
		}

		id, err := uuid.Parse(args.JobId)
		if err != nil {
			return fmt.Errorf("JOB_STATUS job_id is not a valid UUID: %w", err)
		}

		job := gateway.jobService.GetJob(id)
		if job == nil {
			return fmt.Errorf("no job with ID %s", id)
		}

		hub.Send(message.FormReply(TITLE_JOB_UPDATE, map[string]interface{}{"job": jobs.NewDto(job)}, websocket.Response))
		return nil
	})
}
