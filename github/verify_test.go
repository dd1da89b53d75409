package github

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sockerless/forkgate/simulator"
)

const (
	upstream = "tkttech/TKT-CYBER-XMD-V3"
	repoName = "TKT-CYBER-XMD-V3"
)

func newVerifier(t *testing.T) (*simulator.GitHub, *Verifier) {
	t.Helper()
	logger := zerolog.New(io.Discard)
	sim := simulator.NewGitHub(logger)
	srv := httptest.NewServer(sim)
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, "", "TKT-CYBER-XMD-V3-Deployer", 5*time.Second)
	return sim, NewVerifier(client, VerifierConfig{Upstream: upstream, RepoName: repoName, MarkerPath: "package.json"}, logger)
}

func TestVerifyFork(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(*simulator.GitHub)
		want   Verification
		checks int
	}{
		{
			name:   "verified",
			setup:  func(g *simulator.GitHub) { g.AddFork("alice", repoName, upstream, "package.json") },
			want:   Verification{Verified: true},
			checks: 2,
		},
		{
			name:   "repository missing",
			setup:  func(*simulator.GitHub) {},
			want:   Verification{Reason: ReasonRepoUnavailable},
			checks: 1,
		},
		{
			name: "not a fork",
			setup: func(g *simulator.GitHub) {
				g.AddRepo(simulator.GitHubRepo{Owner: "alice", Name: repoName, Files: map[string]string{"package.json": "{}"}})
			},
			want:   Verification{Reason: ReasonNotFork},
			checks: 1,
		},
		{
			name:   "fork of another project",
			setup:  func(g *simulator.GitHub) { g.AddFork("alice", repoName, "someone/TKT-CYBER-XMD-V3", "package.json") },
			want:   Verification{Reason: ReasonWrongUpstream},
			checks: 1,
		},
		{
			name:   "upstream name differs in case",
			setup:  func(g *simulator.GitHub) { g.AddFork("alice", repoName, "TKTTECH/TKT-CYBER-XMD-V3", "package.json") },
			want:   Verification{Reason: ReasonWrongUpstream},
			checks: 1,
		},
		{
			name:   "marker file missing",
			setup:  func(g *simulator.GitHub) { g.AddFork("alice", repoName, upstream) },
			want:   Verification{Reason: ReasonMarkerMissing},
			checks: 2,
		},
		{
			name: "marker check errors",
			setup: func(g *simulator.GitHub) {
				g.AddFork("alice", repoName, upstream, "package.json")
				g.Fail(simulator.OpGetContents, "alice/"+repoName, http.StatusInternalServerError, "boom")
			},
			want:   Verification{Reason: ReasonMarkerUnavailable},
			checks: 2,
		},
		{
			name: "rate limited",
			setup: func(g *simulator.GitHub) {
				g.AddFork("alice", repoName, upstream, "package.json")
				g.Fail(simulator.OpGetRepo, "", http.StatusForbidden, "API rate limit exceeded")
			},
			want:   Verification{Reason: ReasonRepoUnavailable},
			checks: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim, v := newVerifier(t)
			tt.setup(sim)

			got := v.VerifyFork(context.Background(), "alice")
			assert.Equal(t, tt.want, got)
			assert.Len(t, sim.Calls(), tt.checks)
		})
	}
}

func TestVerifyForkAfterMarkerRemoved(t *testing.T) {
	sim, v := newVerifier(t)
	sim.AddFork("alice", repoName, upstream, "package.json")
	require.True(t, v.VerifyFork(context.Background(), "alice").Verified)

	sim.RemoveFile("alice", repoName, "package.json")
	assert.Equal(t, ReasonMarkerMissing, v.VerifyFork(context.Background(), "alice").Reason)
}

func TestVerifyForkUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client := NewClient(srv.URL, "", "ua", time.Second)
	v := NewVerifier(client, VerifierConfig{Upstream: upstream, RepoName: repoName, MarkerPath: "package.json"}, zerolog.New(io.Discard))
	assert.Equal(t, Verification{Reason: ReasonRepoUnavailable}, v.VerifyFork(context.Background(), "alice"))
}

func TestClientHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", "TKT-CYBER-XMD-V3-Deployer", time.Second).GetRepo(context.Background(), "alice", repoName)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Status)
	assert.Equal(t, "application/vnd.github.v3+json", got.Get("Accept"))
	assert.Equal(t, "TKT-CYBER-XMD-V3-Deployer", got.Get("User-Agent"))
	assert.Empty(t, got.Get("Authorization"))

	status, err := NewClient(srv.URL, "ghp_token", "ua", time.Second).ContentStatus(context.Background(), "alice", repoName, "package.json")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Bearer ghp_token", got.Get("Authorization"))
}
