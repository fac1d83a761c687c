package manifest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrovault/coldchain-service/internal/core/services/intake"
)

type mockEnqueuer struct {
	tasks    []*asynq.Task
	enqueued map[string]bool
	err      error
}

func (m *mockEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.enqueued == nil {
		m.enqueued = make(map[string]bool)
	}
	id := taskID(opts)
	if id != "" && m.enqueued[id] {
		return nil, asynq.ErrTaskIDConflict
	}
	m.enqueued[id] = true
	m.tasks = append(m.tasks, task)
	return &asynq.TaskInfo{ID: id, Type: task.Type(), Queue: "default"}, nil
}

func taskID(opts []asynq.Option) string {
	for _, opt := range opts {
		if opt.Type() == asynq.TaskIDOpt {
			return opt.Value().(string)
		}
	}
	return ""
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *Store, *mockEnqueuer) {
	t.Helper()

	store := newTestStore(t)
	queue := &mockEnqueuer{}
	dispatcher := NewDispatcher(store, NewRegistry(nil), queue, &DispatcherConfig{
		ScanInterval: time.Minute,
		Retention:    30 * 24 * time.Hour,
	}, nil)
	return dispatcher, store, queue
}

func TestDispatchIncomingEnqueuesPerManifest(t *testing.T) {
	dispatcher, store, queue := newTestDispatcher(t)
	warehouseID := uuid.New()

	name := warehouseID.String() + "_week34.csv"
	dropManifest(t, store, name, "batch_code\nB-001\n")

	count, err := dispatcher.DispatchIncoming(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.Len(t, queue.tasks, 1)
	assert.Equal(t, intake.TaskTypeImportManifest, queue.tasks[0].Type())

	var payload intake.ImportManifestPayload
	require.NoError(t, json.Unmarshal(queue.tasks[0].Payload(), &payload))
	assert.Equal(t, warehouseID, payload.WarehouseID)
	assert.Equal(t, store.IncomingPath(name), payload.Path)
}

func TestDispatchIncomingSkipsUnroutableFiles(t *testing.T) {
	dispatcher, store, queue := newTestDispatcher(t)

	dropManifest(t, store, "no-prefix.csv", "x")
	dropManifest(t, store, "not-a-uuid_week34.csv", "x")
	dropManifest(t, store, uuid.New().String()+"_notes.txt", "x")

	count, err := dispatcher.DispatchIncoming(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, queue.tasks)
}

func TestDispatchIncomingRescanDoesNotDuplicate(t *testing.T) {
	dispatcher, store, queue := newTestDispatcher(t)

	dropManifest(t, store, uuid.New().String()+"_week34.csv", "x")

	count, err := dispatcher.DispatchIncoming(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Second scan before the worker picks the file up: the queue reports a
	// task ID conflict and the dispatcher moves on.
	count, err = dispatcher.DispatchIncoming(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Len(t, queue.tasks, 1)
}

func TestWarehouseFromName(t *testing.T) {
	warehouseID := uuid.New()

	tests := []struct {
		name   string
		input  string
		wantOK bool
	}{
		{"valid prefix", warehouseID.String() + "_week34.csv", true},
		{"no separator", warehouseID.String() + ".csv", false},
		{"not a uuid", "warehouse-7_week34.csv", false},
		{"empty prefix", "_week34.csv", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := warehouseFromName(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, warehouseID, id)
			}
		})
	}
}
