package server

import (
	"strings"

	"github.com/storacha/shard-migrator/pkg/migrateerr"
)

// validRegions are the only regions the request surface accepts for
// region (spec §6). The source buckets this tool migrates out of only
// ever live in one of these two.
var validRegions = map[string]bool{
	"us-east-2": true,
	"us-west-2": true,
}

func requireParam(q paramSource, name string) (string, error) {
	v := q.Get(name)
	if v == "" {
		return "", &migrateerr.ValidationError{Field: name, Msg: "missing"}
	}
	return v, nil
}

func validateRegion(region string) error {
	if !validRegions[region] {
		return &migrateerr.ValidationError{Field: "region", Msg: "must be one of us-east-2, us-west-2"}
	}
	return nil
}

func validateBucket(bucket string) error {
	if !strings.HasPrefix(bucket, "dotstorage") {
		return &migrateerr.ValidationError{Field: "bucket", Msg: "must start with dotstorage"}
	}
	return nil
}

func validateKey(key string) error {
	if !strings.HasSuffix(key, ".car") {
		return &migrateerr.ValidationError{Field: "key", Msg: "must end with .car"}
	}
	return nil
}

// paramSource abstracts url.Values so handlers can be tested without a
// real *http.Request.
type paramSource interface {
	Get(name string) string
}
