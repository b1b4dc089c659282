package server_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	cidlink "github.com/ipld/go-ipld-prime/linking/cid"
	"github.com/stretchr/testify/require"

	"github.com/storacha/shard-migrator/pkg/awsconfig"
	"github.com/storacha/shard-migrator/pkg/dynamotable"
	"github.com/storacha/shard-migrator/pkg/internal/digestutil"
	"github.com/storacha/shard-migrator/pkg/internal/testutil"
	"github.com/storacha/shard-migrator/pkg/model"
	"github.com/storacha/shard-migrator/pkg/objectio"
	"github.com/storacha/shard-migrator/pkg/server"
)

type memClient struct {
	objects map[string][]byte
}

func newMemClient() *memClient { return &memClient{objects: map[string][]byte{}} }

func key(bucket, k string) string { return bucket + "/" + k }

func (m *memClient) Head(ctx context.Context, bucket, k string) (int64, error) {
	b, ok := m.objects[key(bucket, k)]
	if !ok {
		return 0, objectio.ErrNotFound
	}
	return int64(len(b)), nil
}

func (m *memClient) Get(ctx context.Context, bucket, k string) (objectio.GetResult, error) {
	b, ok := m.objects[key(bucket, k)]
	if !ok {
		return objectio.GetResult{}, objectio.ErrNotFound
	}
	return objectio.GetResult{Body: io.NopCloser(bytes.NewReader(b)), ContentLength: int64(len(b))}, nil
}

func (m *memClient) Put(ctx context.Context, bucket, k string, body io.Reader, contentLength int64, checksumSHA256 string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[key(bucket, k)] = data
	return nil
}

func (m *memClient) CreateMultipartUpload(ctx context.Context, bucket, k string) (string, error) {
	return "upload-1", nil
}

func (m *memClient) UploadPart(ctx context.Context, bucket, k, uploadID string, partNumber int32, body io.Reader, contentLength int64, checksumSHA256 string) (objectio.Part, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return objectio.Part{}, err
	}
	m.objects[fmt.Sprintf("%s#%d", key(bucket, k), partNumber)] = data
	return objectio.Part{PartNumber: partNumber}, nil
}

func (m *memClient) CompleteMultipartUpload(ctx context.Context, bucket, k, uploadID string, parts []objectio.Part) error {
	var buf bytes.Buffer
	for _, p := range parts {
		buf.Write(m.objects[fmt.Sprintf("%s#%d", key(bucket, k), p.PartNumber)])
	}
	m.objects[key(bucket, k)] = buf.Bytes()
	return nil
}

func (m *memClient) AbortMultipartUpload(ctx context.Context, bucket, k, uploadID string) error {
	return nil
}

var _ objectio.Client = (*memClient)(nil)

type memTable struct {
	rows map[model.BlockIndexKey]model.BlockIndexRow
}

func newMemTable() *memTable { return &memTable{rows: map[model.BlockIndexKey]model.BlockIndexRow{}} }

func (t *memTable) BatchGet(ctx context.Context, keys []model.BlockIndexKey) ([]model.BlockIndexRow, error) {
	var out []model.BlockIndexRow
	for _, k := range keys {
		if row, ok := t.rows[k]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (t *memTable) BatchPut(ctx context.Context, rows []model.BlockIndexRow) error {
	for _, row := range rows {
		t.rows[row.Key()] = row
	}
	return nil
}

func (t *memTable) BatchDelete(ctx context.Context, keys []model.BlockIndexKey) error {
	for _, k := range keys {
		delete(t.rows, k)
	}
	return nil
}

var _ dynamotable.Table = (*memTable)(nil)

func newTestDeps(srcClient, destClient *memClient, table dynamotable.Table) server.Deps {
	return server.Deps{
		SourceClientFor: func(ctx context.Context, region string) (objectio.Client, error) {
			return srcClient, nil
		},
		DestClient: destClient,
		Dest: awsconfig.DestConfig{
			CarparkBucket:   "carpark",
			SatnavBucket:    "satnav",
			DudewhereBucket: "dudewhere",
		},
		Table: table,
	}
}

func TestHashHandler(t *testing.T) {
	src := newMemClient()
	_, data := testutil.RandomCAR(3, 64)
	src.objects[key("dotstorage-0", "complete/a.car")] = data

	mux := server.NewServer(newTestDeps(src, newMemClient(), newMemTable()))

	req := httptest.NewRequest(http.MethodGet, "/hash?"+url.Values{
		"region": {"us-east-2"},
		"bucket": {"dotstorage-0"},
		"key":    {"complete/a.car"},
	}.Encode(), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		OK  bool `json:"ok"`
		Cid struct {
			Link string `json:"/"`
		} `json:"cid"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.OK)

	sum := sha256.Sum256(data)
	expected, err := model.NewShardCid(sum[:])
	require.NoError(t, err)
	require.Equal(t, expected.String(), resp.Cid.Link)
}

func TestHashHandlerValidation(t *testing.T) {
	mux := server.NewServer(newTestDeps(newMemClient(), newMemClient(), newMemTable()))

	req := httptest.NewRequest(http.MethodGet, "/hash?region=eu-west-1&bucket=dotstorage-0&key=a.car", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCopyHandlerThenHead(t *testing.T) {
	src := newMemClient()
	links, data := testutil.RandomCAR(3, 64)
	src.objects[key("dotstorage-0", "complete/a.car")] = data

	sum := sha256.Sum256(data)
	shard, err := model.NewShardCid(sum[:])
	require.NoError(t, err)
	root := links[0].(cidlink.Link).Cid

	dest := newMemClient()
	mux := server.NewServer(newTestDeps(src, dest, newMemTable()))

	q := url.Values{
		"region": {"us-east-2"},
		"bucket": {"dotstorage-0"},
		"key":    {"complete/a.car"},
		"shard":  {shard.String()},
		"root":   {root.String()},
	}
	req := httptest.NewRequest(http.MethodPost, "/copy?"+q.Encode(), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	normalizedRoot := model.NormalizeRootLink(root)
	headReq := httptest.NewRequest(http.MethodGet, "/head?"+url.Values{
		"shard": {shard.String()},
		"root":  {normalizedRoot.String()},
	}.Encode(), nil)
	headRec := httptest.NewRecorder()
	mux.ServeHTTP(headRec, headReq)
	require.Equal(t, http.StatusOK, headRec.Code)

	var headResp struct {
		OK    bool `json:"ok"`
		Shard bool `json:"shard"`
		Index bool `json:"index"`
		Link  bool `json:"link"`
	}
	require.NoError(t, json.Unmarshal(headRec.Body.Bytes(), &headResp))
	require.True(t, headResp.OK)
	require.True(t, headResp.Shard)
	require.True(t, headResp.Index)
	require.True(t, headResp.Link)
}

func TestReindexHandler(t *testing.T) {
	src := newMemClient()
	links, data := testutil.RandomCAR(3, 64)
	src.objects[key("dotstorage-0", "complete/a.car")] = data

	sum := sha256.Sum256(data)
	shard, err := model.NewShardCid(sum[:])
	require.NoError(t, err)

	table := newMemTable()
	legacyCarPath := "us-east-2/dotstorage-0/complete/a.car"
	for _, link := range links {
		digest := link.(cidlink.Link).Cid.Hash()
		row := model.BlockIndexRow{
			BlockMultihash: digestutil.Format(digest),
			CarPath:        legacyCarPath,
			Offset:         0,
			Length:         uint64(len(data)),
		}
		table.rows[row.Key()] = row
	}

	mux := server.NewServer(newTestDeps(src, newMemClient(), table))
	req := httptest.NewRequest(http.MethodPost, "/reindex?"+url.Values{
		"region": {"us-east-2"},
		"bucket": {"dotstorage-0"},
		"key":    {"complete/a.car"},
		"shard":  {shard.String()},
	}.Encode(), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		OK      bool `json:"ok"`
		Updated int  `json:"updated"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.OK)
	require.Equal(t, len(links), resp.Updated)

	canonicalPath := model.CanonicalCarPath(shard)
	for _, link := range links {
		digest := link.(cidlink.Link).Cid.Hash()
		mhStr := digestutil.Format(digest)
		_, stillLegacy := table.rows[model.BlockIndexKey{BlockMultihash: mhStr, CarPath: legacyCarPath}]
		require.False(t, stillLegacy)
		_, atCanonical := table.rows[model.BlockIndexKey{BlockMultihash: mhStr, CarPath: canonicalPath}]
		require.True(t, atCanonical)
	}
}
