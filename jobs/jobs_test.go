package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/Pechenuxa1/EffectiveMobileTestTask/internal/jobs"
	"github.com/Pechenuxa1/EffectiveMobileTestTask/internal/shared"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{Type: task.Type(), Queue: QueueDefault}, nil
}

func (f *fakeEnqueuer) Close() error { return nil }

type memoryRecorder struct {
	entries []shared.AuditLog
	err     error
}

func (m *memoryRecorder) Record(ctx context.Context, log shared.AuditLog) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, log)
	return nil
}

func sampleEntry() shared.AuditLog {
	return shared.AuditLog{
		ActorID:  7,
		Action:   "logout",
		Entity:   "user",
		EntityID: "7",
		At:       time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC),
	}
}

func TestClientEnqueueAudit(t *testing.T) {
	enq := &fakeEnqueuer{}
	client := NewClientWith(enq)

	require.NoError(t, client.EnqueueAudit(context.Background(), sampleEntry()))
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, TaskAuthAudit, enq.tasks[0].Type())

	var decoded shared.AuditLog
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &decoded))
	assert.Equal(t, sampleEntry(), decoded)

	enq.err = errors.New("redis down")
	assert.Error(t, client.EnqueueAudit(context.Background(), sampleEntry()))

	var nilClient *Client
	assert.Error(t, nilClient.EnqueueAudit(context.Background(), sampleEntry()))
}

func TestAuditHandler(t *testing.T) {
	recorder := &memoryRecorder{}
	handler := NewAuditHandler(recorder, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewAuditTask(sampleEntry())
	require.NoError(t, err)
	require.NoError(t, handler.Handle(context.Background(), task))
	assert.Equal(t, []shared.AuditLog{sampleEntry()}, recorder.entries)

	err = handler.Handle(context.Background(), asynq.NewTask(TaskAuthAudit, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	recorder.err = errors.New("db down")
	err = handler.Handle(context.Background(), task)
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)

	registration := handler.TaskHandler()
	assert.Equal(t, TaskAuthAudit, registration.Type)
	assert.NotNil(t, registration.Handler)
}

func TestHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(nil, nil).MountRoutes)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"queue":"default","pending":0}`, rr.Body.String())
}

func TestNewWorkerRequiresHandlers(t *testing.T) {
	_, err := NewWorker(WorkerConfig{RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:0"}})
	assert.Error(t, err)

	handler := NewAuditHandler(&memoryRecorder{}, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	worker, err := NewWorker(WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:0"},
		Handlers:  []TaskHandler{handler.TaskHandler(), {Type: "ignored"}},
	})
	require.NoError(t, err)
	assert.NotNil(t, worker)

	var nilWorker *Worker
	assert.Error(t, nilWorker.Run(context.Background()))
}
