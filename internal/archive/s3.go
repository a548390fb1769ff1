package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Store archives metainfo files in an S3 (or compatible) bucket under
// <prefix>/<HASH>.torrent.
type S3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

var _ Store = (*S3Store)(nil)

func NewS3Store(client *s3.Client, bucket, prefix string) *S3Store {
	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
	}
}

func (s *S3Store) Save(ctx context.Context, raw []byte) (Entry, error) {
	hash, err := InfoHash(raw)
	if err != nil {
		return Entry{}, err
	}
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(hash)),
		Body:   bytes.NewReader(raw),
		ACL:    types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return Entry{}, fmt.Errorf("failed to upload %s: %w", hash, err)
	}
	return Entry{Hash: hash, Size: int64(len(raw))}, nil
}

func (s *S3Store) Load(ctx context.Context, hash string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(hash)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch %s: %w", hash, err)
	}
	defer out.Body.Close()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", hash, err)
	}
	return raw, nil
}

func (s *S3Store) List(ctx context.Context) ([]Entry, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
	}
	if s.prefix != "" {
		input.Prefix = aws.String(s.prefix + "/")
	}

	var out []Entry
	for {
		page, err := s.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to list archive objects: %w", err)
		}
		for _, obj := range page.Contents {
			hash := hashFromKey(aws.ToString(obj.Key))
			if hash == "" {
				continue
			}
			out = append(out, Entry{
				Hash:       hash,
				Size:       aws.ToInt64(obj.Size),
				ArchivedAt: obj.LastModified,
			})
		}
		if !aws.ToBool(page.IsTruncated) || page.NextContinuationToken == nil {
			break
		}
		input.ContinuationToken = page.NextContinuationToken
	}
	if out == nil {
		out = []Entry{}
	}
	return out, nil
}

func (s *S3Store) Delete(ctx context.Context, hash string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(hash)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", hash, err)
	}
	return nil
}

func (s *S3Store) key(hash string) string {
	if s.prefix == "" {
		return normalizeKey(hash) + torrentExt
	}
	return s.prefix + "/" + normalizeKey(hash) + torrentExt
}
