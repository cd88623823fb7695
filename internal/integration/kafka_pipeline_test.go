//go:build integration

package integration_test

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazardwatch/disaster-etl/internal/adapter/kafka"
	"github.com/hazardwatch/disaster-etl/internal/adapter/store"
	"github.com/hazardwatch/disaster-etl/internal/config"
	"github.com/hazardwatch/disaster-etl/internal/domain"
	"github.com/hazardwatch/disaster-etl/internal/observability"
	"github.com/hazardwatch/disaster-etl/internal/pipeline"
)

const testEventsTopic = "test-disaster-events"

func floatPtr(v float64) *float64 { return &v }

func testConfig(broker, groupSuffix string) *config.Config {
	return &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaEventsTopic:   testEventsTopic,
		KafkaGroupID:       fmt.Sprintf("test-%s-%d", groupSuffix, time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}
}

func sampleEvent(id string) domain.DisasterEvent {
	return domain.DisasterEvent{
		EventID:      id,
		EventType:    "earthquake",
		Title:        "M 6.5 - offshore",
		Description:  "M 6.5 - offshore",
		Latitude:     37.4,
		Longitude:    -122.1,
		Magnitude:    floatPtr(6.5),
		Severity:     domain.SeverityHigh,
		EventTime:    "2023-11-14T22:13:20Z",
		DetectedTime: "2023-11-14T22:14:00Z",
		Source:       "USGS",
		RawData:      `{"id":"abc"}`,
	}
}

// countStoredEvents polls the analytical store until the expected number of
// rows appears or the context expires.
func countStoredEvents(ctx context.Context, t *testing.T, path string, want int) int {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	for {
		var n int
		if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err == nil && n >= want {
			return n
		}
		select {
		case <-ctx.Done():
			t.Fatalf("timed out waiting for %d stored events", want)
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// TestKafkaWriterReader verifies the adapter layer: kafka.Writer (Publisher)
// and kafka.Reader (BatchExtractor) round-trip a canonical event with its key
// and headers intact.
func TestKafkaWriterReader(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testEventsTopic)

	cfg := testConfig(broker, "reader")

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	event := sampleEvent("usgs_abc")
	require.NoError(t, writer.Publish(ctx, event))

	// Retry because the consumer group may need time to rebalance before
	// partitions are assigned and messages become available.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	var batch []domain.RawEvent
	for {
		var err error
		batch, err = reader.ExtractBatch(ctx, 1)
		require.NoError(t, err)
		if len(batch) > 0 {
			break
		}
		if ctx.Err() != nil {
			t.Fatal("timed out waiting for message from events topic")
		}
	}
	require.Len(t, batch, 1)
	raw := batch[0]
	assert.Equal(t, []byte("usgs_abc"), raw.Key)
	assert.Equal(t, testEventsTopic, raw.Topic)
	assert.Equal(t, "earthquake", raw.Headers["event_type"])
	assert.Equal(t, "USGS", raw.Headers["source"])
	require.NotNil(t, raw.Commit, "commit callback should be set")
	require.NoError(t, raw.Commit(ctx))

	decoded, err := domain.DecodeEvent(raw.Value)
	require.NoError(t, err)
	assert.Equal(t, event, decoded)
}

// TestPipelineEndToEnd wires the full enrichment flow (Reader → Processor →
// Store) against real Kafka and verifies events land in the analytical store,
// with duplicate deliveries deduplicated on event_id.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testEventsTopic)

	cfg := testConfig(broker, "pipeline")

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	events := []domain.DisasterEvent{
		sampleEvent("usgs_abc"),
		sampleEvent("usgs_def"),
		sampleEvent("nasa_EONET_123"),
		sampleEvent("usgs_abc"), // duplicate delivery
	}
	for _, event := range events {
		require.NoError(t, writer.Publish(ctx, event))
	}

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	storePath := filepath.Join(t.TempDir(), "events.db")
	storeWriter, err := store.Open(storePath, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = storeWriter.Close() })

	processor := pipeline.NewProcessor(nil, nil, nil, discardLogger())
	w := pipeline.New(reader, processor, storeWriter, discardLogger(), observability.NewMetricsForTesting(), 50, 4)

	workerCtx, workerCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(workerCtx) }()

	// Three distinct event ids; the duplicate collapses on insert.
	n := countStoredEvents(ctx, t, storePath, 3)

	workerCancel()
	require.NoError(t, <-errCh)
	assert.Equal(t, 3, n)

	db, err := sql.Open("sqlite3", storePath)
	require.NoError(t, err)
	defer db.Close()

	var severity, eventTime string
	var impact float64
	require.NoError(t, db.QueryRow(
		`SELECT severity, event_time, impact_score FROM events WHERE event_id = ?`, "usgs_abc",
	).Scan(&severity, &eventTime, &impact))
	assert.Equal(t, domain.SeverityHigh, severity)
	assert.Equal(t, "2023-11-14 22:13:20 UTC", eventTime)
	assert.Equal(t, domain.DefaultImpactScore, impact)
}

// TestPipelinePoisonMessage verifies an undecodable message is dropped and
// committed while valid messages keep flowing to the store.
func TestPipelinePoisonMessage(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testEventsTopic)

	cfg := testConfig(broker, "poison")

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: testEventsTopic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	valid, err := domain.EncodeEvent(sampleEvent("usgs_abc"))
	require.NoError(t, err)
	require.NoError(t, producer.WriteMessages(ctx,
		kafkago.Message{Key: []byte("bad"), Value: []byte("not-json{{{")},
		kafkago.Message{Key: []byte("usgs_abc"), Value: valid},
	))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	storePath := filepath.Join(t.TempDir(), "events.db")
	storeWriter, err := store.Open(storePath, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = storeWriter.Close() })

	processor := pipeline.NewProcessor(nil, nil, nil, discardLogger())
	w := pipeline.New(reader, processor, storeWriter, discardLogger(), observability.NewMetricsForTesting(), 50, 4)

	workerCtx, workerCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(workerCtx) }()

	n := countStoredEvents(ctx, t, storePath, 1)

	workerCancel()
	require.NoError(t, <-errCh)
	assert.Equal(t, 1, n)

	db, err := sql.Open("sqlite3", storePath)
	require.NoError(t, err)
	defer db.Close()

	var eventID string
	require.NoError(t, db.QueryRow(`SELECT event_id FROM events`).Scan(&eventID))
	assert.Equal(t, "usgs_abc", eventID)
}
