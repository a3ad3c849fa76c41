package publish

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"resty.dev/v3"

	"github.com/vk/meghabuild/internal/config"
	"github.com/vk/meghabuild/internal/ctxlog"
)

// MavenPublisher deploys to a Maven repository over HTTP, e.g. GitHub
// Packages. The jar, the POM and their checksums are uploaded first;
// maven-metadata.xml goes last since it is what makes the version visible
// to resolvers. Uploaded files are deleted again if any later step fails.
type MavenPublisher struct {
	target  *config.PublishTarget
	timeout time.Duration
	now     func() time.Time
}

// NewMavenPublisher creates a publisher for t.
func NewMavenPublisher(t *config.PublishTarget) *MavenPublisher {
	return &MavenPublisher{target: t, timeout: 5 * time.Minute, now: time.Now}
}

type mavenSession struct {
	client *resty.Client
	base   string
	creds  Credentials
}

func (s *mavenSession) request(ctx context.Context) *resty.Request {
	r := s.client.R().SetContext(ctx)
	if s.creds.Username != "" || s.creds.Secret != "" {
		r.SetBasicAuth(s.creds.Username, s.creds.Secret)
	}
	return r
}

func (s *mavenSession) put(ctx context.Context, path string, data []byte) error {
	url := s.base + "/" + path
	resp, err := s.request(ctx).
		SetHeader("Content-Type", mimetype.Detect(data).String()).
		SetBody(data).
		Put(url)
	if err != nil {
		return fmt.Errorf("PUT %s: %w", url, err)
	}
	if resp.IsError() {
		return fmt.Errorf("PUT %s: %s", url, resp.Status())
	}
	return nil
}

// get returns nil data for a missing file.
func (s *mavenSession) get(ctx context.Context, path string) ([]byte, error) {
	url := s.base + "/" + path
	resp, err := s.request(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status())
	}
	return []byte(resp.String()), nil
}

func (s *mavenSession) delete(ctx context.Context, path string) error {
	url := s.base + "/" + path
	resp, err := s.request(ctx).Delete(url)
	if err != nil {
		return err
	}
	if resp.IsError() && resp.StatusCode() != http.StatusNotFound {
		return fmt.Errorf("DELETE %s: %s", url, resp.Status())
	}
	return nil
}

// Publish implements Publisher.
func (m *MavenPublisher) Publish(ctx context.Context, a *Artifact, creds Credentials) ([]string, error) {
	logger := ctxlog.FromContext(ctx)
	files, err := a.files()
	if err != nil {
		return nil, err
	}

	client := resty.New().SetTimeout(m.timeout).SetRetryCount(0)
	defer client.Close()
	s := &mavenSession{client: client, base: strings.TrimSuffix(m.target.URL, "/"), creds: creds}

	var uploaded []string
	rollback := func() {
		for i := len(uploaded) - 1; i >= 0; i-- {
			if err := s.delete(context.WithoutCancel(ctx), uploaded[i]); err != nil {
				logger.Warn("Rollback could not remove file.", "path", uploaded[i], "error", err)
			}
		}
	}

	for _, f := range files {
		path := a.VersionDir() + "/" + f.Name
		logger.Debug("Uploading file.", "path", path, "size", len(f.Data))
		if err := s.put(ctx, path, f.Data); err != nil {
			rollback()
			return nil, err
		}
		uploaded = append(uploaded, path)
	}

	mdPath := a.ArtifactDir() + "/" + metadataName
	existing, err := s.get(ctx, mdPath)
	if err != nil {
		rollback()
		return nil, err
	}
	md, err := mergeMetadata(existing, a, m.now())
	if err != nil {
		rollback()
		return nil, err
	}
	if err := s.put(ctx, mdPath, md); err != nil {
		rollback()
		return nil, err
	}
	return append(uploaded, mdPath), nil
}
