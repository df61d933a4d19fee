package assessments

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SkothaSec/project-mimir/pkg/models"
)

func TestAppendPushesAndTrims(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := newRedisStore(client, "test", 3)

	rec := models.RawAlertRecord{Verdict: "Benign", AlertGroupID: "g-1"}
	payload, err := json.Marshal(rec)
	require.NoError(t, err)

	mock.ExpectTxPipeline()
	mock.ExpectLPush("test:records", string(payload)).SetVal(1)
	mock.ExpectLTrim("test:records", 0, 2).SetVal("OK")
	mock.ExpectTxPipelineExec()

	require.NoError(t, store.Append(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestDecodesAndSkipsCorruptEntries(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := newRedisStore(client, "test", 0)

	mock.ExpectLRange("test:records", 0, 4).SetVal([]string{
		`{"verdict":"High Risk","raw_logs":"[{}]"}`,
		`{corrupt`,
		`{"verdict":"Benign"}`,
	})

	records, err := store.Latest(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "High Risk", records[0].Verdict)
	assert.Equal(t, "Benign", records[1].Verdict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestPropagatesRedisErrors(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := newRedisStore(client, "", 0)

	mock.ExpectLRange("mimir:assessments:records", 0, 4).SetErr(errors.New("connection refused"))

	_, err := store.Latest(context.Background(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Contains(t, errors.FlattenHints(err), "results.redis.addr")
}

func TestPing(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := newRedisStore(client, "", 0)

	mock.ExpectPing().SetVal("PONG")
	require.NoError(t, store.Ping(context.Background()))

	mock.ExpectPing().SetErr(errors.New("connection refused"))
	err := store.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping redis assessment store")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewRedisStoreDoesNotDial(t *testing.T) {
	store := NewRedisStore(RedisConfig{Addr: "127.0.0.1:1"})
	require.NotNil(t, store)
	defer store.Close()

	_, err := store.Latest(context.Background(), 1)
	assert.Error(t, err)
}
