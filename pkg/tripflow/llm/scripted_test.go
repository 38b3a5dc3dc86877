package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/tripflow/pkg/tripflow"
	"github.com/randalmurphal/tripflow/pkg/tripflow/llm"
)

func TestScripted_ReplaysInOrderAndSticks(t *testing.T) {
	client := llm.NewScripted("first", "second")
	ctx := context.Background()

	for _, want := range []string{"first", "second", "second"} {
		resp, err := client.Complete(ctx, llm.Request{})
		require.NoError(t, err)
		assert.Equal(t, want, resp.Content)
	}
}

func TestScripted_RecordsRequests(t *testing.T) {
	client := llm.NewScripted("ok")

	_, err := client.Complete(context.Background(), llm.Request{
		System:   "route the conversation",
		Messages: []tripflow.Message{{Role: tripflow.RoleUser, Content: "Paris"}},
	})
	require.NoError(t, err)

	require.Len(t, client.Requests, 1)
	assert.Equal(t, "route the conversation", client.Requests[0].System)
	assert.Equal(t, "Paris", client.Requests[0].Messages[0].Content)
}

func TestScripted_Fail(t *testing.T) {
	client := llm.NewScripted("never returned")
	client.Fail(errors.New("offline"))

	_, err := client.Complete(context.Background(), llm.Request{})
	require.Error(t, err)
	assert.Equal(t, tripflow.KindInference, tripflow.KindOf(err))
}

func TestScripted_EmptyScript(t *testing.T) {
	client := llm.NewScripted()

	resp, err := client.Complete(context.Background(), llm.Request{})
	require.NoError(t, err)
	assert.Empty(t, resp.Content)
}
