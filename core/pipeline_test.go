package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sockerless/forkgate/api"
	"github.com/sockerless/forkgate/github"
)

func newTestPipeline(v *fakeVerifier, p *fakeProvisioner, m *Metrics) *Pipeline {
	pl := NewPipeline(v, SessionFormat{Marker: DefaultSessionMarker}, p, m, testLogger())
	pl.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 123456789, time.UTC) }
	return pl
}

func validRequest() api.DeployRequest {
	return api.DeployRequest{GitHubUsername: "alice", SessionID: "(TKT-CYBER~)" + payload32}
}

func TestDeploySuccess(t *testing.T) {
	v := &fakeVerifier{result: github.Verification{Verified: true}}
	p := &fakeProvisioner{instance: api.Instance{Name: "tkt-cyber-xmd-v31-1", URL: "https://tkt-cyber-xmd-v31-1.herokuapp.com"}}
	m := NewMetrics()

	out, err := newTestPipeline(v, p, m).Deploy(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, StateDone, out.State)
	assert.Equal(t, "tkt-cyber-xmd-v31-1", out.Instance.Name)
	assert.Equal(t, "alice", out.Instance.SourceAccount)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 123456789, time.UTC), out.CompletedAt)
	assert.Equal(t, 1, v.calls)
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DeployTotal.WithLabelValues("done")))
}

func TestDeployInvalidHandleMakesNoRemoteCalls(t *testing.T) {
	for _, handle := range []string{"", "bad name!", strings.Repeat("x", 40)} {
		v := &fakeVerifier{result: github.Verification{Verified: true}}
		p := &fakeProvisioner{}

		req := validRequest()
		req.GitHubUsername = handle
		out, err := newTestPipeline(v, p, nil).Deploy(context.Background(), req)

		var inputErr *api.InputFormatError
		require.ErrorAs(t, err, &inputErr, handle)
		assert.Equal(t, api.CodeInvalidUsername, inputErr.Code())
		assert.Equal(t, StateFormatCheck, out.State)
		assert.Zero(t, v.calls)
		assert.Zero(t, p.calls)
	}
}

func TestDeployUnverifiedForkStopsBeforeSession(t *testing.T) {
	v := &fakeVerifier{result: github.Verification{Reason: github.ReasonMarkerMissing}}
	p := &fakeProvisioner{}
	m := NewMetrics()

	req := validRequest()
	req.SessionID = "garbage"
	out, err := newTestPipeline(v, p, m).Deploy(context.Background(), req)

	var forkErr *api.ForkNotVerifiedError
	require.ErrorAs(t, err, &forkErr, "fork is checked before the session")
	assert.Equal(t, "marker_missing", forkErr.Reason)
	assert.Equal(t, StateForkCheck, out.State)
	assert.Zero(t, p.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DeployTotal.WithLabelValues("fork_check")))
}

func TestDeployInvalidSession(t *testing.T) {
	v := &fakeVerifier{result: github.Verification{Verified: true}}
	p := &fakeProvisioner{}

	req := validRequest()
	req.SessionID = "(TKT-CYBER~)" + payload20
	out, err := newTestPipeline(v, p, nil).Deploy(context.Background(), req)

	var sessErr *api.InvalidSessionError
	require.ErrorAs(t, err, &sessErr)
	assert.Equal(t, StateSessionCheck, out.State)
	assert.Equal(t, 1, v.calls)
	assert.Zero(t, p.calls)
}

func TestDeployProvisionFailure(t *testing.T) {
	v := &fakeVerifier{result: github.Verification{Verified: true}}
	cause := &api.ProvisioningError{Step: StepBuild, App: "x", Err: errors.New("boom")}
	p := &fakeProvisioner{err: cause}

	out, err := newTestPipeline(v, p, nil).Deploy(context.Background(), validRequest())
	require.ErrorIs(t, err, cause)
	assert.Equal(t, StateProvision, out.State)
	assert.Empty(t, out.Instance.Name)
}
