package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/hibiken/asynq"
)

// EnqueuePost schedules a publish attempt for the post after the given
// delay. A zero delay publishes as soon as a worker picks the task up.
func (q *Queue) EnqueuePost(ctx context.Context, postID int64, delay time.Duration) error {
	payload, err := json.Marshal(PublishPostPayload{PostID: postID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypePublishPost, payload)

	_, err = q.client.EnqueueContext(ctx, task, asynq.ProcessIn(delay), asynq.MaxRetry(3))
	if err != nil {
		return err
	}

	log.Printf("Task scheduled: post %d in %s", postID, delay)
	return nil
}

// EnqueueComment schedules a trailing comment for its absolute fire time.
func (q *Queue) EnqueueComment(ctx context.Context, commentID int64, processAt time.Time) error {
	payload, err := json.Marshal(PublishCommentPayload{CommentID: commentID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypePublishComment, payload)

	_, err = q.client.EnqueueContext(ctx, task, asynq.ProcessAt(processAt), asynq.MaxRetry(3))
	if err != nil {
		return err
	}

	log.Printf("Task scheduled: comment %d at %s", commentID, processAt)
	return nil
}
