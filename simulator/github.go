package simulator

import (
	"encoding/base64"
	"net/http"
	"path"
	"strings"

	"github.com/rs/zerolog"
)

// GitHubRepo is the simulator's record of one repository.
type GitHubRepo struct {
	Owner  string
	Name   string
	Parent string // full name of the parent; empty when not a fork
	Fork   bool
	Files  map[string]string
}

// FullName returns "owner/name".
func (r GitHubRepo) FullName() string { return r.Owner + "/" + r.Name }

// GitHub fakes GET /repos/{owner}/{repo} and its contents endpoint.
type GitHub struct {
	repos  *StateStore[GitHubRepo]
	rec    *recorder
	logger zerolog.Logger
	mux    *http.ServeMux
}

// NewGitHub returns an empty hosting API fake.
func NewGitHub(logger zerolog.Logger) *GitHub {
	g := &GitHub{
		repos:  NewStateStore[GitHubRepo](),
		rec:    newRecorder(),
		logger: logger.With().Str("sim", "github").Logger(),
		mux:    http.NewServeMux(),
	}
	g.mux.HandleFunc("GET /repos/{owner}/{repo}", g.handleGetRepo)
	g.mux.HandleFunc("GET /repos/{owner}/{repo}/contents/{path...}", g.handleGetContents)
	return g
}

// ServeHTTP implements http.Handler.
func (g *GitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mux.ServeHTTP(w, r)
}

// AddRepo stores a repository. Owner and name match case-insensitively,
// as on GitHub.
func (g *GitHub) AddRepo(repo GitHubRepo) {
	if repo.Files == nil {
		repo.Files = map[string]string{}
	}
	g.repos.Put(repoKey(repo.Owner, repo.Name), repo)
}

// AddFork stores owner/name as a fork of parent holding the given files.
func (g *GitHub) AddFork(owner, name, parent string, files ...string) {
	repo := GitHubRepo{Owner: owner, Name: name, Parent: parent, Fork: true, Files: map[string]string{}}
	for _, f := range files {
		repo.Files[f] = ""
	}
	g.AddRepo(repo)
}

// RemoveFile deletes a file from a stored repository.
func (g *GitHub) RemoveFile(owner, name, file string) {
	g.repos.Update(repoKey(owner, name), func(r *GitHubRepo) { delete(r.Files, file) })
}

// Fail makes every call of op against target ("owner/repo", or "" for any)
// answer with status and message until Reset.
func (g *GitHub) Fail(op Op, target string, status int, message string) {
	g.rec.fail(op, target, status, message)
}

// Reset clears injected failures.
func (g *GitHub) Reset() { g.rec.reset() }

// Calls returns the call log in arrival order.
func (g *GitHub) Calls() []Call { return g.rec.snapshot() }

// Count returns how many times op was called.
func (g *GitHub) Count(op Op) int { return g.rec.count(op) }

func repoKey(owner, name string) string {
	return strings.ToLower(owner + "/" + name)
}

func (g *GitHub) injected(w http.ResponseWriter, op Op, target string) bool {
	f, ok := g.rec.record(op, target)
	if !ok {
		return false
	}
	writeGitHubError(w, f.status, f.message)
	return true
}

func (g *GitHub) handleGetRepo(w http.ResponseWriter, r *http.Request) {
	owner, name := r.PathValue("owner"), r.PathValue("repo")
	if g.injected(w, OpGetRepo, owner+"/"+name) {
		return
	}
	repo, ok := g.repos.Get(repoKey(owner, name))
	if !ok {
		writeGitHubError(w, http.StatusNotFound, "Not Found")
		return
	}
	WriteJSON(w, http.StatusOK, repoJSON(repo))
}

func (g *GitHub) handleGetContents(w http.ResponseWriter, r *http.Request) {
	owner, name := r.PathValue("owner"), r.PathValue("repo")
	if g.injected(w, OpGetContents, owner+"/"+name) {
		return
	}
	repo, ok := g.repos.Get(repoKey(owner, name))
	if !ok {
		writeGitHubError(w, http.StatusNotFound, "Not Found")
		return
	}
	filePath := r.PathValue("path")
	content, ok := repo.Files[filePath]
	if !ok {
		writeGitHubError(w, http.StatusNotFound, "Not Found")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"type":     "file",
		"name":     path.Base(filePath),
		"path":     filePath,
		"size":     len(content),
		"encoding": "base64",
		"content":  base64.StdEncoding.EncodeToString([]byte(content)),
	})
}

func repoJSON(repo GitHubRepo) map[string]any {
	out := map[string]any{
		"name":      repo.Name,
		"full_name": repo.FullName(),
		"owner":     map[string]any{"login": repo.Owner},
		"fork":      repo.Fork,
		"private":   false,
	}
	if repo.Parent != "" {
		parentName := repo.Parent
		if i := strings.LastIndex(parentName, "/"); i >= 0 {
			parentName = parentName[i+1:]
		}
		out["parent"] = map[string]any{"name": parentName, "full_name": repo.Parent}
	}
	return out
}

func writeGitHubError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{
		"message":           message,
		"documentation_url": "https://docs.github.com/rest",
	})
}
