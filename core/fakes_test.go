package core

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sockerless/forkgate/api"
	"github.com/sockerless/forkgate/github"
	"github.com/sockerless/forkgate/heroku"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// fakePlatform is an in-memory Platform recording calls as "op:app".
type fakePlatform struct {
	mu      sync.Mutex
	apps    map[string]heroku.App
	vars    map[string]map[string]string
	builds  map[string][]heroku.BuildCreateOpts
	calls   []string
	errs    map[string]error // keyed by "op" or "op:app"
	listErr error
	now     time.Time
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		apps:   map[string]heroku.App{},
		vars:   map[string]map[string]string{},
		builds: map[string][]heroku.BuildCreateOpts{},
		errs:   map[string]error{},
		now:    time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakePlatform) failure(op, app string) error {
	if err, ok := f.errs[op+":"+app]; ok {
		return err
	}
	return f.errs[op]
}

func (f *fakePlatform) CreateApp(_ context.Context, opts heroku.AppCreateOpts) (*heroku.App, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "create:"+opts.Name)
	if err := f.failure("create", opts.Name); err != nil {
		return nil, err
	}
	app := heroku.App{Name: opts.Name, CreatedAt: f.now, Region: &heroku.Region{Name: opts.Region}}
	f.apps[opts.Name] = app
	return &app, nil
}

func (f *fakePlatform) UpdateConfigVars(_ context.Context, app string, vars map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "configure:"+app)
	if err := f.failure("configure", app); err != nil {
		return err
	}
	f.vars[app] = vars
	return nil
}

func (f *fakePlatform) CreateBuild(_ context.Context, app string, opts heroku.BuildCreateOpts) (*heroku.Build, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "build:"+app)
	if err := f.failure("build", app); err != nil {
		return nil, err
	}
	f.builds[app] = append(f.builds[app], opts)
	return &heroku.Build{ID: "b1", Status: "pending", SourceBlob: opts.SourceBlob}, nil
}

func (f *fakePlatform) ListApps(context.Context) ([]heroku.App, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "list:")
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]heroku.App, 0, len(f.apps))
	for _, a := range f.apps {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakePlatform) DeleteApp(ctx context.Context, app string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete:"+app)
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := f.failure("delete", app); err != nil {
		return err
	}
	if _, ok := f.apps[app]; !ok {
		return &heroku.APIError{Status: 404, ID: "not_found", Message: "Couldn't find that app."}
	}
	delete(f.apps, app)
	return nil
}

func (f *fakePlatform) add(name string, createdAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apps[name] = heroku.App{Name: name, CreatedAt: createdAt}
}

func (f *fakePlatform) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.apps))
	for n := range f.apps {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (f *fakePlatform) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// fakeVerifier returns a fixed verification and counts calls.
type fakeVerifier struct {
	result github.Verification
	calls  int
}

func (v *fakeVerifier) VerifyFork(context.Context, string) github.Verification {
	v.calls++
	return v.result
}

// fakeProvisioner returns a fixed instance or error and counts calls.
type fakeProvisioner struct {
	instance api.Instance
	err      error
	calls    int
}

func (p *fakeProvisioner) Provision(_ context.Context, handle, _ string) (api.Instance, error) {
	p.calls++
	if p.err != nil {
		return api.Instance{}, p.err
	}
	inst := p.instance
	inst.SourceAccount = handle
	return inst, nil
}
