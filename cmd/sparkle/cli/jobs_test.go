package cli

import (
	"context"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkleops/sparkle-ops/jobs"
)

type fakeClient struct {
	tasks []*asynq.Task
}

func (f *fakeClient) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{Type: task.Type(), Queue: jobs.QueueDefault}, nil
}

func (f *fakeClient) Close() error { return nil }

func TestTriggerQuoteExpiry(t *testing.T) {
	client := &fakeClient{}
	c := &JobsCLI{client: client}

	info, err := c.Trigger(context.Background(), jobs.TaskQuoteExpire)
	require.NoError(t, err)
	assert.Equal(t, jobs.TaskQuoteExpire, info.Type)
	require.Len(t, client.tasks, 1)
}

func TestTriggerUnknownJob(t *testing.T) {
	c := &JobsCLI{client: &fakeClient{}}
	_, err := c.Trigger(context.Background(), "quote:unknown")
	assert.ErrorContains(t, err, "unsupported job")
}

func TestInspectWithoutInspector(t *testing.T) {
	var c *JobsCLI
	_, err := c.InspectQueues(context.Background())
	assert.Error(t, err)
}
