// reports хранит выгруженные отчёты о результатах теста в MinIO/S3
// и выдаёт на них presigned GET-ссылки.
package reports

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pribylovaa/go-career-advisor/internal/config"
)

// Link — ссылка на скачивание отчёта.
type Link struct {
	Key       string
	URL       string
	ExpiresAt time.Time
}

// Store — адаптер MinIO для отчётов.
type Store struct {
	client *mclient.Client
	bucket string
	ttl    time.Duration
	now    func() time.Time
}

// New создаёт клиент MinIO. Endpoint может содержать схему: она определяет Secure.
// Отсутствие бакета — ошибка (fail-fast на старте).
func New(ctx context.Context, cfg config.S3Config) (*Store, error) {
	const op = "reports.New"

	endpoint := cfg.Endpoint
	secure := strings.HasPrefix(endpoint, "https://")
	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" && u.Host != "" {
		endpoint = u.Host
		secure = u.Scheme == "https"
	}

	client, err := mclient.New(endpoint, &mclient.Options{
		Creds:  credentials.NewStaticV4(cfg.RootUser, cfg.RootPassword, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !exists {
		return nil, fmt.Errorf("%s: bucket %q does not exist", op, cfg.Bucket)
	}

	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	return &Store{client: client, bucket: cfg.Bucket, ttl: ttl, now: time.Now}, nil
}

// Publish загружает отчёт и возвращает presigned GET-ссылку.
// filename попадает в Content-Disposition ответа при скачивании.
func (s *Store) Publish(ctx context.Context, key, filename string, body []byte) (*Link, error) {
	const op = "reports.Publish"

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(body), int64(len(body)),
		mclient.PutObjectOptions{ContentType: "text/plain; charset=utf-8"},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: put: %w", op, err)
	}

	params := url.Values{}
	params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", filename))

	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.ttl, params)
	if err != nil {
		return nil, fmt.Errorf("%s: presign: %w", op, err)
	}

	return &Link{Key: key, URL: u.String(), ExpiresAt: s.now().Add(s.ttl).UTC()}, nil
}
