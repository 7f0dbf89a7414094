// Package archive exports a collection to S3-compatible object storage as
// JSON pages and loads such pages back.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dmitrijs2005/doccollection/collection"
)

// ObjectClient is the part of *s3.Client the archive uses.
type ObjectClient interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Collection is the part of *collection.Accessor the archive uses.
type Collection interface {
	Name() string
	ListRecords(ctx context.Context, opts collection.Options) ([]collection.Record, error)
	CreateRecords(ctx context.Context, recs []collection.Record) error
}

// Archive reads and writes pages under bucket/prefix/<collection>/.
type Archive struct {
	client ObjectClient
	bucket string
	prefix string
}

// New returns an Archive. The prefix may be empty.
func New(client ObjectClient, bucket, prefix string) *Archive {
	return &Archive{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (a *Archive) dir(coll string) string {
	return path.Join(a.prefix, coll) + "/"
}

// PageKey returns the object key of the n-th page (1-based).
func (a *Archive) PageKey(coll string, n int) string {
	return fmt.Sprintf("%spage-%06d.json", a.dir(coll), n)
}

// Export pages through the whole collection by id and writes one object per
// page. It returns the number of records written.
func (a *Archive) Export(ctx context.Context, c Collection, pageSize int) (int, error) {
	if pageSize <= 0 {
		pageSize = collection.DefaultLimit
	}

	var (
		after any
		total int
	)
	for page := 1; ; page++ {
		recs, err := c.ListRecords(ctx, collection.Options{
			Paging: &collection.PagingOptions{StartAfter: after, Limit: pageSize},
		})
		if err != nil {
			return total, fmt.Errorf("list page %d: %w", page, err)
		}
		if len(recs) == 0 {
			return total, nil
		}

		body, err := json.Marshal(recs)
		if err != nil {
			return total, fmt.Errorf("encode page %d: %w", page, err)
		}
		_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(a.bucket),
			Key:         aws.String(a.PageKey(c.Name(), page)),
			Body:        bytes.NewReader(body),
			ContentType: aws.String("application/json"),
		})
		if err != nil {
			return total, fmt.Errorf("put page %d: %w", page, err)
		}

		total += len(recs)
		if len(recs) < pageSize {
			return total, nil
		}
		after = recs[len(recs)-1].ID
	}
}

// Import reads every page of the collection and creates its records in
// bulk writes of at most collection.MaxBatchSize. It returns the number of
// records submitted.
func (a *Archive) Import(ctx context.Context, c Collection) (int, error) {
	keys, err := a.pageKeys(ctx, c.Name())
	if err != nil {
		return 0, err
	}

	var (
		pending []collection.Record
		total   int
	)
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := c.CreateRecords(ctx, pending); err != nil {
			return err
		}
		total += len(pending)
		pending = nil
		return nil
	}

	for _, key := range keys {
		recs, err := a.readPage(ctx, key)
		if err != nil {
			return total, err
		}
		for _, r := range recs {
			pending = append(pending, r)
			if len(pending) == collection.MaxBatchSize {
				if err := flush(); err != nil {
					return total, err
				}
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}

func (a *Archive) pageKeys(ctx context.Context, coll string) ([]string, error) {
	var keys []string
	p := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(a.dir(coll)),
	})
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, ".json") {
				keys = append(keys, key)
			}
		}
	}
	return keys, nil
}

func (a *Archive) readPage(ctx context.Context, key string) ([]collection.Record, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	defer out.Body.Close()

	var recs []collection.Record
	if err := json.NewDecoder(out.Body).Decode(&recs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return recs, nil
}
