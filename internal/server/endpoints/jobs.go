package endpoints

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fablepress/fable/internal/api"
	"github.com/fablepress/fable/internal/svcctx"
)

// maxUploadBytes bounds the multipart form, reference photos included.
const maxUploadBytes = 32 << 20 // 32MB

// allowedPhotoExts are the reference photo formats the imaging codec decodes.
var allowedPhotoExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

// CreateJobResponse is returned when a job is accepted.
type CreateJobResponse struct {
	JobID string `json:"job_id"`
}

// CreateJobEndpoint handles POST /api/jobs with a multipart form.
type CreateJobEndpoint struct{}

var _ api.Endpoint = (*CreateJobEndpoint)(nil)

func (e *CreateJobEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/jobs", e.handler
}

func (e *CreateJobEndpoint) RequiresInit() bool { return true }

func (e *CreateJobEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	childName := strings.TrimSpace(r.FormValue("child_name"))
	if childName == "" {
		writeError(w, http.StatusBadRequest, "child_name is required")
		return
	}
	gender := strings.TrimSpace(r.FormValue("gender"))

	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "photo is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedPhotoExts[ext] {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported photo type %s", ext))
		return
	}

	photo, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read photo: %v", err))
		return
	}
	if len(photo) == 0 {
		writeError(w, http.StatusBadRequest, "photo is empty")
		return
	}

	manager := svcctx.JobManagerFrom(r.Context())
	if manager == nil {
		writeError(w, http.StatusServiceUnavailable, "job manager not initialized")
		return
	}

	jobID, err := manager.StartJob(r.Context(), childName, gender, photo)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to start job: %v", err))
		return
	}

	// Keep the reference photo on disk for inspection and re-runs. The
	// pipeline already holds its own copy, so failure here is not fatal.
	if store := svcctx.StoreFrom(r.Context()); store != nil {
		if _, err := store.SaveUpload(jobID, ext, photo); err != nil {
			if logger := svcctx.LoggerFrom(r.Context()); logger != nil {
				logger.Warn("failed to persist upload", "job_id", jobID, "error", err)
			}
		}
	}

	writeJSON(w, http.StatusAccepted, CreateJobResponse{JobID: jobID})
}

func (e *CreateJobEndpoint) Command(getServerURL func() string) *cobra.Command {
	var photoPath, childName, gender string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Start a storybook job",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp CreateJobResponse
			fields := map[string]string{
				"child_name": childName,
				"gender":     gender,
			}
			if err := client.PostMultipart(cmd.Context(), "/api/jobs", "photo", photoPath, fields, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&photoPath, "photo", "", "Path to the child's reference photo")
	cmd.Flags().StringVar(&childName, "name", "", "Child's first name")
	cmd.Flags().StringVar(&gender, "gender", "", "Child's gender (girl, boy)")
	cmd.MarkFlagRequired("photo")
	cmd.MarkFlagRequired("name")
	return cmd
}

// JobResponse is the job status snapshot returned to clients.
type JobResponse struct {
	JobID          string `json:"job_id"`
	TotalPages     int    `json:"total_pages"`
	CompletedPages int    `json:"completed_pages"`
	Message        string `json:"message"`
	Done           bool   `json:"done"`
	Failed         bool   `json:"failed"`
	Error          string `json:"error,omitempty"`
	DownloadURL    string `json:"download_url,omitempty"`
}

// GetJobEndpoint handles GET /api/jobs/{job_id}.
type GetJobEndpoint struct{}

var _ api.Endpoint = (*GetJobEndpoint)(nil)

func (e *GetJobEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/jobs/{job_id}", e.handler
}

func (e *GetJobEndpoint) RequiresInit() bool { return true }

func (e *GetJobEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job_id is required")
		return
	}

	tracker := svcctx.TrackerFrom(r.Context())
	snap, err := tracker.Read(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("job %s not found", jobID))
		return
	}

	resp := JobResponse{
		JobID:          snap.JobID,
		TotalPages:     snap.TotalPages,
		CompletedPages: snap.CompletedPages,
		Message:        snap.Message,
		Done:           snap.Done,
		Failed:         snap.Failed,
		Error:          snap.Error,
	}
	if snap.Done && !snap.Failed {
		if store := svcctx.StoreFrom(r.Context()); store != nil && store.PDFExists(jobID) {
			resp.DownloadURL = fmt.Sprintf("/api/jobs/%s/download", jobID)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *GetJobEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <job_id>",
		Short: "Get job progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp JobResponse
			if err := client.Get(cmd.Context(), "/api/jobs/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// PreviewsResponse lists preview refs produced so far, in page order.
// Each ref is fetchable at /previews/{ref}.
type PreviewsResponse struct {
	JobID    string   `json:"job_id"`
	Previews []string `json:"previews"`
}

// JobPreviewsEndpoint handles GET /api/jobs/{job_id}/previews.
type JobPreviewsEndpoint struct{}

var _ api.Endpoint = (*JobPreviewsEndpoint)(nil)

func (e *JobPreviewsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/jobs/{job_id}/previews", e.handler
}

func (e *JobPreviewsEndpoint) RequiresInit() bool { return true }

func (e *JobPreviewsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job_id is required")
		return
	}

	tracker := svcctx.TrackerFrom(r.Context())
	snap, err := tracker.Read(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("job %s not found", jobID))
		return
	}

	resp := PreviewsResponse{JobID: jobID, Previews: snap.PreviewList()}
	if resp.Previews == nil {
		resp.Previews = []string{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *JobPreviewsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "previews <job_id>",
		Short: "List page previews for a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp PreviewsResponse
			if err := client.Get(cmd.Context(), "/api/jobs/"+args[0]+"/previews", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// DownloadJobEndpoint handles GET /api/jobs/{job_id}/download.
type DownloadJobEndpoint struct{}

var _ api.Endpoint = (*DownloadJobEndpoint)(nil)

func (e *DownloadJobEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/jobs/{job_id}/download", e.handler
}

func (e *DownloadJobEndpoint) RequiresInit() bool { return true }

func (e *DownloadJobEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job_id is required")
		return
	}

	tracker := svcctx.TrackerFrom(r.Context())
	snap, err := tracker.Read(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("job %s not found", jobID))
		return
	}
	if !snap.Done || snap.Failed {
		writeError(w, http.StatusConflict, "job has no finished book")
		return
	}

	store := svcctx.StoreFrom(r.Context())
	rc, err := store.OpenPDF(jobID)
	if err != nil {
		writeError(w, http.StatusNotFound, "book not found")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "storybook_"+jobID+".pdf"))
	io.Copy(w, rc)
}

func (e *DownloadJobEndpoint) Command(getServerURL func() string) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "download <job_id>",
		Short: "Download the finished book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID := args[0]
			if outPath == "" {
				outPath = "storybook_" + jobID + ".pdf"
			}

			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer f.Close()

			client := api.NewClient(getServerURL())
			if err := client.Download(cmd.Context(), "/api/jobs/"+jobID+"/download", f); err != nil {
				os.Remove(outPath)
				return err
			}
			fmt.Printf("Saved %s\n", outPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "f", "", "Output file (default: storybook_<job_id>.pdf)")
	return cmd
}
