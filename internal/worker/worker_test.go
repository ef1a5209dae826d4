package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	"table_admin/internal/audit"
	"table_admin/internal/observability"
	"table_admin/internal/queue"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Insert(ctx context.Context, tx *sql.Tx, event audit.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

type fakeAcknowledger struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.acked = true
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked = true
	a.requeue = requeue
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

type fakeRepublisher struct {
	published []amqp.Publishing
	keys      []string
	err       error
}

func (p *fakeRepublisher) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, key)
	p.published = append(p.published, msg)
	return nil
}

func setupTestWorker(t *testing.T) (*AuditWorker, sqlmock.Sqlmock, *MockAuditRepository) {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := new(MockAuditRepository)
	w := &AuditWorker{
		ID:      1,
		DB:      db,
		Repo:    repo,
		Queue:   "table_events",
		Metrics: observability.NewMetrics(prometheus.NewRegistry()),
	}
	return w, sqlMock, repo
}

func newDelivery(t *testing.T, event any, headers amqp.Table) (amqp.Delivery, *fakeAcknowledger) {
	t.Helper()

	body, err := json.Marshal(event)
	require.NoError(t, err)

	ack := &fakeAcknowledger{}
	return amqp.Delivery{
		Acknowledger: ack,
		Body:         body,
		Headers:      headers,
		RoutingKey:   "table_events",
		ContentType:  "application/json",
	}, ack
}

func sampleEvent() audit.Event {
	return audit.NewEvent(audit.ActionInsertRow, "orders", audit.Actor{UserID: 7, Username: "alice"}).WithRow(42)
}

func TestHandle_StoresEventAndAcks(t *testing.T) {
	w, sqlMock, repo := setupTestWorker(t)
	msg, ack := newDelivery(t, sampleEvent(), nil)

	sqlMock.ExpectBegin()
	sqlMock.ExpectCommit()
	repo.On("Insert", mock.MatchedBy(func(e audit.Event) bool {
		return e.Table == "orders" && e.RowID != nil && *e.RowID == 42 && e.Username == "alice"
	})).Return(nil)

	w.Handle(context.Background(), &fakeRepublisher{}, msg)

	assert.True(t, ack.acked)
	assert.False(t, ack.nacked)
	assert.Equal(t, float64(1), testutil.ToFloat64(w.Metrics.QueueMessagesConsumed.WithLabelValues("table_events")))
	repo.AssertExpectations(t)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestHandle_InvalidPayloadIsDropped(t *testing.T) {
	w, _, repo := setupTestWorker(t)

	ack := &fakeAcknowledger{}
	msg := amqp.Delivery{Acknowledger: ack, Body: []byte("{not json")}

	w.Handle(context.Background(), &fakeRepublisher{}, msg)

	assert.True(t, ack.nacked)
	assert.False(t, ack.requeue)
	assert.Equal(t, float64(1), testutil.ToFloat64(w.Metrics.AuditEventsFailed.WithLabelValues("invalid_payload")))
	repo.AssertNotCalled(t, "Insert", mock.Anything)
}

func TestHandle_EventWithoutTableIsDropped(t *testing.T) {
	w, _, repo := setupTestWorker(t)
	msg, ack := newDelivery(t, map[string]string{"action": "insert_row"}, nil)

	w.Handle(context.Background(), &fakeRepublisher{}, msg)

	assert.True(t, ack.nacked)
	repo.AssertNotCalled(t, "Insert", mock.Anything)
}

func TestHandle_StoreFailureRepublishesWithRetryCount(t *testing.T) {
	w, sqlMock, repo := setupTestWorker(t)
	msg, ack := newDelivery(t, sampleEvent(), amqp.Table{queue.RetryHeader: int32(1)})

	sqlMock.ExpectBegin()
	sqlMock.ExpectRollback()
	repo.On("Insert", mock.Anything).Return(errors.New("connection reset"))

	pub := &fakeRepublisher{}
	w.Handle(context.Background(), pub, msg)

	require.Len(t, pub.published, 1)
	assert.Equal(t, "table_events", pub.keys[0])
	assert.Equal(t, int32(2), pub.published[0].Headers[queue.RetryHeader])
	assert.Equal(t, msg.Body, pub.published[0].Body)
	assert.True(t, ack.acked)
	assert.False(t, ack.nacked)
}

func TestHandle_MaxRetriesDropsMessage(t *testing.T) {
	w, sqlMock, repo := setupTestWorker(t)
	msg, ack := newDelivery(t, sampleEvent(), amqp.Table{queue.RetryHeader: int32(MaxRetries)})

	sqlMock.ExpectBegin()
	sqlMock.ExpectRollback()
	repo.On("Insert", mock.Anything).Return(errors.New("connection reset"))

	pub := &fakeRepublisher{}
	w.Handle(context.Background(), pub, msg)

	assert.Empty(t, pub.published)
	assert.True(t, ack.nacked)
	assert.False(t, ack.requeue)
	assert.Equal(t, float64(1), testutil.ToFloat64(w.Metrics.AuditEventsFailed.WithLabelValues("max_retries")))
}

func TestHandle_RepublishFailureDropsMessage(t *testing.T) {
	w, sqlMock, repo := setupTestWorker(t)
	msg, ack := newDelivery(t, sampleEvent(), nil)

	sqlMock.ExpectBegin()
	sqlMock.ExpectRollback()
	repo.On("Insert", mock.Anything).Return(errors.New("connection reset"))

	w.Handle(context.Background(), &fakeRepublisher{err: errors.New("channel closed")}, msg)

	assert.True(t, ack.nacked)
	assert.Equal(t, float64(1), testutil.ToFloat64(w.Metrics.AuditEventsFailed.WithLabelValues("republish_error")))
}

func TestRepublishWithRetry_KeepsOriginalHeaders(t *testing.T) {
	msg := amqp.Delivery{
		RoutingKey: "table_events",
		Headers:    amqp.Table{"x-origin": "api"},
		Body:       []byte(`{}`),
	}
	pub := &fakeRepublisher{}

	require.NoError(t, republishWithRetry(pub, &msg, 1))

	assert.Equal(t, "api", pub.published[0].Headers["x-origin"])
	assert.Equal(t, int32(1), pub.published[0].Headers[queue.RetryHeader])
	_, mutated := msg.Headers[queue.RetryHeader]
	assert.False(t, mutated)
}
