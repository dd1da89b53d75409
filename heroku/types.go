package heroku

import "time"

// App is the subset of the Platform API app resource forkgate reads.
type App struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name"`
	WebURL    string    `json:"web_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Region    *Region   `json:"region,omitempty"`
}

// Region identifies where an app runs.
type Region struct {
	Name string `json:"name"`
}

// AppCreateOpts is the body of POST /apps.
type AppCreateOpts struct {
	Name   string `json:"name"`
	Region string `json:"region,omitempty"`
}

// SourceBlob points a build at a downloadable source archive.
type SourceBlob struct {
	URL     string `json:"url"`
	Version string `json:"version,omitempty"`
}

// BuildCreateOpts is the body of POST /apps/{name}/builds.
type BuildCreateOpts struct {
	SourceBlob SourceBlob `json:"source_blob"`
}

// Build is the subset of the build resource returned on creation.
type Build struct {
	ID         string     `json:"id"`
	Status     string     `json:"status"`
	SourceBlob SourceBlob `json:"source_blob"`
}
