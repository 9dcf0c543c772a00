package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/fablepress/fable/internal/api"
	"github.com/fablepress/fable/internal/svcctx"
)

// StorySummary is one available story template.
type StorySummary struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Gender string `json:"gender"`
	Pages  int    `json:"pages"`
}

// ListStoriesResponse is the response for listing story templates.
type ListStoriesResponse struct {
	Stories []StorySummary `json:"stories"`
}

// ListStoriesEndpoint handles GET /api/stories.
type ListStoriesEndpoint struct{}

var _ api.Endpoint = (*ListStoriesEndpoint)(nil)

func (e *ListStoriesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/stories", e.handler
}

func (e *ListStoriesEndpoint) RequiresInit() bool { return true }

func (e *ListStoriesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	stories := svcctx.StoriesFrom(r.Context())
	if stories == nil {
		writeError(w, http.StatusServiceUnavailable, "story store not initialized")
		return
	}

	templates, err := stories.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := ListStoriesResponse{Stories: make([]StorySummary, 0, len(templates))}
	for _, tpl := range templates {
		resp.Stories = append(resp.Stories, StorySummary{
			ID:     tpl.ID,
			Title:  tpl.Title,
			Gender: tpl.Gender,
			Pages:  len(tpl.Pages),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *ListStoriesEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "stories",
		Short: "List available story templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListStoriesResponse
			if err := client.Get(cmd.Context(), "/api/stories", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
