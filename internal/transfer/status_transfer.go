package transfer

import "github.com/maheshrc27/threads-poster/internal/models"

type HealthResponse struct {
	Status        string              `json:"status"`
	Authenticated bool                `json:"authenticated"`
	Running       bool                `json:"running"`
	LastCycle     *models.CycleReport `json:"last_cycle"`
	LastError     string              `json:"last_error,omitempty"`
}

type PostView struct {
	Row      int    `json:"row"`
	Text     string `json:"text"`
	Image    string `json:"image,omitempty"`
	Status   string `json:"status"`
	PostedAt string `json:"posted_at,omitempty"`
}

type PostsResponse struct {
	Path    string     `json:"path"`
	Total   int        `json:"total"`
	Pending int        `json:"pending"`
	Posted  int        `json:"posted"`
	Posts   []PostView `json:"posts"`
}
