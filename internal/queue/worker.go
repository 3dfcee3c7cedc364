package queue

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/avelarde/crosspost/internal/service"
)

// Worker executes queued publish tasks. Handlers return nil on skips (lost
// claims, already terminal posts) so asynq never retries work another
// worker finished.
type Worker struct {
	publish  service.PublishService
	comments service.CommentService
}

func NewWorker(publish service.PublishService, comments service.CommentService) *Worker {
	return &Worker{
		publish:  publish,
		comments: comments,
	}
}

func (w *Worker) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}
	return w.publish.Process(ctx, payload.PostID)
}

func (w *Worker) HandlePublishCommentTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishCommentPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}
	return w.comments.Publish(ctx, payload.CommentID)
}
