package reports

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pribylovaa/go-career-advisor/internal/config"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Интеграционные тесты MinIO-хранилища отчётов.
//
// Запуск:
//   GO_TEST_INTEGRATION=1 go test ./internal/reports -v -race -count=1

func startMinio(t *testing.T, createBucket bool) (*Store, error) {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	const (
		rootUser     = "root"
		rootPassword = "rootpass"
		bucket       = "reports"
	)

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "docker.io/minio/minio:latest",
			Env:          map[string]string{"MINIO_ROOT_USER": rootUser, "MINIO_ROOT_PASSWORD": rootPassword},
			Cmd:          []string{"server", "/data"},
			ExposedPorts: []string{"9000/tcp"},
			WaitingFor:   wait.ForListeningPort("9000/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, _ := c.Host(ctx)
	port, _ := c.MappedPort(ctx, "9000/tcp")

	if createBucket {
		admin, err := mclient.New(host+":"+port.Port(), &mclient.Options{
			Creds: credentials.NewStaticV4(rootUser, rootPassword, ""),
		})
		require.NoError(t, err)
		require.NoError(t, admin.MakeBucket(ctx, bucket, mclient.MakeBucketOptions{Region: "us-east-1"}))
	}

	return New(ctx, config.S3Config{
		Endpoint:     fmt.Sprintf("http://%s:%s", host, port.Port()),
		RootUser:     rootUser,
		RootPassword: rootPassword,
		Bucket:       bucket,
		PresignTTL:   2 * time.Minute,
	})
}

func TestIntegration_New_BucketMustExist(t *testing.T) {
	_, err := startMinio(t, false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not exist")
}

func TestIntegration_Publish_DownloadsReport(t *testing.T) {
	st, err := startMinio(t, true)
	require.NoError(t, err)

	r := sampleResult(t)
	body := Render("alice", r)

	link, err := st.Publish(context.Background(), Key(r), Filename(r), body)
	require.NoError(t, err)
	require.Equal(t, Key(r), link.Key)
	require.WithinDuration(t, time.Now().Add(2*time.Minute), link.ExpiresAt, 5*time.Second)

	resp, err := http.Get(link.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Disposition"), Filename(r))

	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, body, got)
}
