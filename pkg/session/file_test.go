package session_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conductor-framework/conductor/pkg/session"
)

func TestFileStore_RoundTrip(t *testing.T) {
	store, err := session.NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	sess := session.New("agent-123", "assistant")
	sess.Append(session.Turn{Role: session.RoleUser, Content: "hello"})
	sess.Append(session.Turn{Role: session.RoleAssistant, Content: "hi", Name: "assistant"})
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Load(ctx, "agent-123")
	require.NoError(t, err)
	assert.Equal(t, "agent-123", got.ID)
	assert.Equal(t, "assistant", got.Owner)
	require.Len(t, got.Turns, 2)
	assert.Equal(t, "hello", got.Turns[0].Content)
	assert.Equal(t, "hi", got.Turns[1].Content)
}

func TestFileStore_LoadUnknownID(t *testing.T) {
	store, err := session.NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load(context.Background(), "agent-ghost")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestFileStore_OnDiskShape(t *testing.T) {
	dir := t.TempDir()
	store, err := session.NewFileStore(dir)
	require.NoError(t, err)

	sess := session.New("agent-123", "assistant")
	sess.Append(session.Turn{Role: session.RoleUser, Content: "hello"})
	require.NoError(t, store.Save(context.Background(), sess))

	data, err := os.ReadFile(filepath.Join(dir, "agent-123.json"))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "agent-123", raw["session_id"])
	assert.Equal(t, "assistant", raw["owner_name"])
	assert.Equal(t, float64(1), raw["message_count"])
	assert.Contains(t, raw, "conversation")
	assert.Contains(t, raw, "created_at")
	assert.Contains(t, raw, "last_updated")
}

func TestFileStore_SaveResultAppends(t *testing.T) {
	store, err := session.NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.SaveResult(ctx, "agent-123", &session.RunRecord{
			Status:    "done",
			StartedAt: time.Now().UTC(),
			Duration:  time.Second,
		}))
	}

	// Run history files never show up as sessions.
	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFileStore_ListAndDelete(t *testing.T) {
	store, err := session.NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, id := range []string{"agent-b", "agent-a", "workflow-c"} {
		require.NoError(t, store.Save(ctx, session.New(id, "owner")))
	}
	require.NoError(t, store.SaveResult(ctx, "agent-a", &session.RunRecord{Status: "done"}))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"agent-a", "agent-b", "workflow-c"}, ids)

	require.NoError(t, store.Delete(ctx, "agent-a"))
	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"agent-b", "workflow-c"}, ids)

	// Deleting an unknown id is not an error.
	assert.NoError(t, store.Delete(ctx, "agent-ghost"))
}

func TestFileStore_ConcurrentSavesSerialize(t *testing.T) {
	store, err := session.NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess := session.New("agent-shared", "owner")
			sess.Append(session.Turn{Role: session.RoleUser, Content: strings.Repeat("x", i)})
			assert.NoError(t, store.Save(ctx, sess))
		}(i)
	}
	wg.Wait()

	// The winner is arbitrary, but the file is never torn.
	got, err := store.Load(ctx, "agent-shared")
	require.NoError(t, err)
	require.Len(t, got.Turns, 1)
}

func TestNewID_CarriesKindPrefix(t *testing.T) {
	assert.True(t, strings.HasPrefix(session.NewID("agent"), "agent-"))
	assert.True(t, strings.HasPrefix(session.NewID("workflow"), "workflow-"))
	assert.NotEqual(t, session.NewID("agent"), session.NewID("agent"))

	assert.NoError(t, session.ValidateID("agent-abc", "agent"))
	assert.Error(t, session.ValidateID("agent-abc", "workflow"))
}
