package queue

import (
	"github.com/hibiken/asynq"
)

const (
	TaskTypePublishPost    = "publish:post"
	TaskTypePublishComment = "publish:comment"
)

type PublishPostPayload struct {
	PostID int64 `json:"post_id"`
}

type PublishCommentPayload struct {
	CommentID int64 `json:"comment_id"`
}

// Queue is the enqueue side of the task pipeline. The worker side lives in
// Worker so the publish service can enqueue follow-up tasks without a cycle.
type Queue struct {
	client *asynq.Client
}

func NewQueue(client *asynq.Client) *Queue {
	return &Queue{client: client}
}
