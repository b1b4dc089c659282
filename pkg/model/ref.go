// Package model holds the value types shared by the hasher, copier and
// reindexer: object locators, shard/root identifiers and block-index rows.
package model

import (
	"fmt"
)

// ObjectRef locates a single object in an S3-compatible store. It is a
// value type: callers copy it freely, the same way bucket/key pairs are
// passed around by value elsewhere in this codebase.
type ObjectRef struct {
	Region   string
	Bucket   string
	Key      string
	Endpoint string // optional; empty means the default AWS endpoint
	Creds    *Credentials
}

// Credentials overrides the ambient credential chain for a single ObjectRef.
// Nil means "use whatever the process's default credential chain resolves".
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// CarPath renders the legacy "{region}/{bucket}/{key}" form used as the
// carpath of pre-migration block-index rows.
func (o ObjectRef) CarPath() string {
	return fmt.Sprintf("%s/%s/%s", o.Region, o.Bucket, o.Key)
}
