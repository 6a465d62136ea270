package db

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	ReportRetention  = 90 * 24 * time.Hour
	CompressionLevel = gzip.BestSpeed
	reportsPrefix    = "reports"
)

type MinioClient struct {
	*minio.Client
	bucket string
}

type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

func NewMinioClient(opts MinioOptions) (*MinioClient, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := client.ListBuckets(ctx); err != nil {
		return nil, fmt.Errorf("failed to list MinIO buckets: %w", err)
	}

	if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
		// Bucket might already exist
		exists, errBucketExists := client.BucketExists(ctx, opts.Bucket)
		if errBucketExists != nil || !exists {
			return nil, fmt.Errorf("failed to create reports bucket: %w", err)
		}
	}

	return &MinioClient{Client: client, bucket: opts.Bucket}, nil
}

func (m *MinioClient) HealthCheck(ctx context.Context) error {
	_, err := m.ListBuckets(ctx)
	return err
}

// StoredObject describes one exported report
type StoredObject struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// ReportStorage keeps gzip-compressed report exports in MinIO under
// reports/{period}/{yyyy}/{mm}/{dd}/{hhmmss}.{ext}.gz
type ReportStorage struct {
	client *MinioClient
}

func NewReportStorage(client *MinioClient) *ReportStorage {
	return &ReportStorage{client: client}
}

// ObjectName builds the key of a report generated at the given time
func ObjectName(period string, at time.Time, ext string) string {
	return fmt.Sprintf("%s/%s/%s.%s.gz", reportsPrefix, period, at.UTC().Format("2006/01/02/150405"), ext)
}

// Store compresses body and uploads it, returning the object name
func (rs *ReportStorage) Store(ctx context.Context, period string, at time.Time, ext, contentType string, body []byte) (string, error) {
	objectName := ObjectName(period, at, ext)

	var buf bytes.Buffer
	gzipWriter, err := gzip.NewWriterLevel(&buf, CompressionLevel)
	if err != nil {
		return "", fmt.Errorf("failed to create gzip writer: %w", err)
	}
	if _, err := gzipWriter.Write(body); err != nil {
		gzipWriter.Close()
		return "", fmt.Errorf("failed to compress report: %w", err)
	}
	if err := gzipWriter.Close(); err != nil {
		return "", fmt.Errorf("failed to close gzip writer: %w", err)
	}

	_, err = rs.client.PutObject(ctx, rs.client.bucket, objectName, &buf, int64(buf.Len()),
		minio.PutObjectOptions{
			ContentType:     contentType,
			ContentEncoding: "gzip",
		})
	if err != nil {
		return "", fmt.Errorf("failed to upload report to MinIO: %w", err)
	}

	return objectName, nil
}

// Get downloads and decompresses a stored report
func (rs *ReportStorage) Get(ctx context.Context, objectName string) ([]byte, error) {
	obj, err := rs.client.GetObject(ctx, rs.client.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get report %s: %w", objectName, err)
	}
	defer obj.Close()

	gzipReader, err := gzip.NewReader(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to open report %s: %w", objectName, err)
	}
	defer gzipReader.Close()

	return io.ReadAll(gzipReader)
}

// List returns the stored reports of a period, or all reports when period is empty
func (rs *ReportStorage) List(ctx context.Context, period string) ([]StoredObject, error) {
	prefix := reportsPrefix + "/"
	if period != "" {
		prefix += period + "/"
	}

	var out []StoredObject
	for object := range rs.client.ListObjects(ctx, rs.client.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list reports: %w", object.Err)
		}
		out = append(out, StoredObject{Name: object.Key, Size: object.Size, LastModified: object.LastModified})
	}
	return out, nil
}

// DeleteBefore removes reports generated before the given time
func (rs *ReportStorage) DeleteBefore(ctx context.Context, before time.Time) (int, error) {
	objectsCh := make(chan minio.ObjectInfo)
	removed := 0
	go func() {
		defer close(objectsCh)
		for object := range rs.client.ListObjects(ctx, rs.client.bucket, minio.ListObjectsOptions{
			Prefix:    reportsPrefix + "/",
			Recursive: true,
		}) {
			if object.Err != nil {
				continue
			}
			if at, ok := ReportTime(object.Key); ok && at.Before(before) {
				removed++
				objectsCh <- object
			}
		}
	}()

	errorsCh := rs.client.RemoveObjects(ctx, rs.client.bucket, objectsCh, minio.RemoveObjectsOptions{})
	for err := range errorsCh {
		if err.Err != nil {
			return 0, fmt.Errorf("failed to delete report %s: %w", err.ObjectName, err.Err)
		}
	}

	return removed, nil
}

// ReportTime extracts the generation time from a key like
// reports/daily/2026/01/15/093000.json.gz
func ReportTime(objectKey string) (time.Time, bool) {
	parts := strings.Split(objectKey, "/")
	if len(parts) < 6 {
		return time.Time{}, false
	}
	n := len(parts)
	clock, _, _ := strings.Cut(parts[n-1], ".")
	at, err := time.Parse("2006/01/02/150405", strings.Join([]string{parts[n-4], parts[n-3], parts[n-2], clock}, "/"))
	if err != nil {
		return time.Time{}, false
	}
	return at, true
}
