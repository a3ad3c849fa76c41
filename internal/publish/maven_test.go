package publish

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/meghabuild/internal/config"
	"github.com/vk/meghabuild/internal/testutil"
)

// mavenRepo is an in-memory Maven repository speaking PUT/GET/DELETE.
type mavenRepo struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    []string
	failPut string
	auth    string
}

func newMavenRepo(t *testing.T) (*mavenRepo, *httptest.Server) {
	t.Helper()
	repo := &mavenRepo{objects: map[string][]byte{}}
	srv := httptest.NewServer(repo)
	t.Cleanup(srv.Close)
	return repo, srv
}

func (r *mavenRepo) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, pass, ok := req.BasicAuth(); ok {
		r.auth = user + ":" + pass
	}
	key := strings.TrimPrefix(req.URL.Path, "/repo/")
	switch req.Method {
	case http.MethodPut:
		if r.failPut != "" && strings.HasSuffix(key, r.failPut) {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		body, _ := io.ReadAll(req.Body)
		r.objects[key] = body
		r.puts = append(r.puts, key)
		w.WriteHeader(http.StatusCreated)
	case http.MethodGet:
		data, ok := r.objects[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(data)
	case http.MethodDelete:
		delete(r.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (r *mavenRepo) keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for k := range r.objects {
		out = append(out, k)
	}
	return out
}

func TestMavenPublisher_Publish(t *testing.T) {
	ctx, _ := testutil.Context(t)
	repo, srv := newMavenRepo(t)
	pub := NewMavenPublisher(&config.PublishTarget{Name: "github", Kind: config.TargetMaven, URL: srv.URL + "/repo/"})

	files, err := pub.Publish(ctx, testArtifact(t), Credentials{Username: "mope", Secret: "s3cr3t"})
	require.NoError(t, err)

	require.Len(t, files, 7)
	assert.Equal(t, "io/github/mopemope/meghanada/maven-metadata.xml", repo.puts[len(repo.puts)-1])
	assert.Equal(t, files, repo.puts)
	assert.Equal(t, "mope:s3cr3t", repo.auth)
	assert.Equal(t, "PK\x03\x04jar-bytes", string(repo.objects["io/github/mopemope/meghanada/1.3.2/meghanada-1.3.2.jar"]))
	assert.Contains(t, string(repo.objects["io/github/mopemope/meghanada/maven-metadata.xml"]), "<version>1.3.2</version>")
}

func TestMavenPublisher_MergesExistingMetadata(t *testing.T) {
	ctx, _ := testutil.Context(t)
	repo, srv := newMavenRepo(t)
	repo.objects["io/github/mopemope/meghanada/maven-metadata.xml"] = []byte(`<metadata><groupId>io.github.mopemope</groupId>` +
		`<artifactId>meghanada</artifactId><versioning><versions><version>1.3.1</version></versions></versioning></metadata>`)
	pub := NewMavenPublisher(&config.PublishTarget{Name: "github", URL: srv.URL + "/repo"})

	_, err := pub.Publish(ctx, testArtifact(t), Credentials{})
	require.NoError(t, err)

	md := string(repo.objects["io/github/mopemope/meghanada/maven-metadata.xml"])
	assert.Contains(t, md, "<version>1.3.1</version>")
	assert.Contains(t, md, "<version>1.3.2</version>")
	assert.Empty(t, repo.auth)
}

func TestMavenPublisher_RollsBackOnFailure(t *testing.T) {
	tests := []struct {
		name    string
		failPut string
	}{
		{name: "pom upload fails", failPut: ".pom"},
		{name: "metadata upload fails", failPut: "maven-metadata.xml"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx, _ := testutil.Context(t)
			repo, srv := newMavenRepo(t)
			repo.failPut = tc.failPut
			pub := NewMavenPublisher(&config.PublishTarget{Name: "github", URL: srv.URL + "/repo"})

			files, err := pub.Publish(ctx, testArtifact(t), Credentials{Secret: "x"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "500")
			assert.Nil(t, files)
			assert.Empty(t, repo.keys(), "no file may remain after a failed publish")
		})
	}
}
