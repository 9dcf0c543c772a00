package endpoints

import (
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/fablepress/fable/internal/api"
	"github.com/fablepress/fable/internal/svcctx"
)

// PreviewEndpoint handles GET /previews/{name}, serving preview JPEGs.
type PreviewEndpoint struct{}

var _ api.Endpoint = (*PreviewEndpoint)(nil)

func (e *PreviewEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/previews/{name}", e.handler
}

func (e *PreviewEndpoint) RequiresInit() bool { return true }

func (e *PreviewEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	store := svcctx.StoreFrom(r.Context())
	rc, err := store.OpenPreview(name)
	if err != nil {
		writeError(w, http.StatusNotFound, "preview not found")
		return
	}
	defer rc.Close()

	// Preview names embed the job id and page, so the bytes never change
	// once written.
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	io.Copy(w, rc)
}

func (e *PreviewEndpoint) Command(_ func() string) *cobra.Command {
	return nil
}
