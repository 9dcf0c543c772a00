// Package pipeline turns one job submission into a finished book: story
// outline, appearance analysis, parallel page generation, and PDF
// assembly.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fablepress/fable/internal/backend"
	"github.com/fablepress/fable/internal/pdf"
	"github.com/fablepress/fable/internal/progress"
	"github.com/fablepress/fable/internal/storage"
	"github.com/fablepress/fable/internal/story"
	"github.com/fablepress/fable/internal/vision"
)

// JobInput is one submitted job.
type JobInput struct {
	JobID     string
	ChildName string
	Gender    string
	Photo     []byte
}

// Pipeline executes jobs. All fields are required except Describer,
// which degrades to no appearance hint when absent.
type Pipeline struct {
	Backend   backend.Backend
	Fallback  backend.Backend
	Policy    *backend.RetryPolicy
	Tracker   progress.Tracker
	Store     storage.Store
	Stories   *story.Store
	Describer vision.Describer
	Logger    *slog.Logger

	Workers    int
	JobTimeout time.Duration
	PageSize   int
}

// Run executes one job to its terminal state. Only two failures are
/// fatal to a job: the outline failing to load before fan-out, and PDF
// assembly failing after it. Either way the job record ends with
// done=true; the returned error mirrors what was recorded.
func (p *Pipeline) Run(ctx context.Context, in JobInput) error {
	logger := p.logger().With("job_id", in.JobID)
	start := time.Now()

	outline, err := p.loadOutline(ctx, in)
	if err != nil {
		logger.Error("failed to load story outline", "error", err)
		fail := fmt.Errorf("could not load story outline")
		p.Tracker.SetDone(ctx, in.JobID, fail)
		return fail
	}
	logger.Info("story outline loaded", "story", outline.StoryID, "title", outline.Title, "pages", len(outline.Pages))

	appearance := p.describeChild(ctx, in, logger)

	p.Tracker.SetMessage(ctx, in.JobID, progress.MsgCreatingAll)
	specs := p.buildSpecs(in, outline, appearance)

	scheduler := &FanOutScheduler{
		Backend:    p.Backend,
		Fallback:   p.Fallback,
		Policy:     p.Policy,
		Tracker:    p.Tracker,
		Store:      p.Store,
		Logger:     p.Logger,
		Workers:    p.Workers,
		JobTimeout: p.JobTimeout,
		PageSize:   p.PageSize,
	}
	pages := scheduler.Run(ctx, in.JobID, in.Photo, specs)

	fallbacks := 0
	for _, pg := range pages {
		if pg.Fallback {
			fallbacks++
		}
	}
	if fallbacks > 0 {
		logger.Warn("some pages fell back to local rendering", "fallback_pages", fallbacks, "total", len(pages))
	}

	p.Tracker.SetMessage(ctx, in.JobID, progress.MsgCompiling)
	if err := p.assemble(in.JobID, pages); err != nil {
		logger.Error("failed to assemble pdf", "error", err)
		fail := fmt.Errorf("could not assemble PDF")
		p.Tracker.SetDone(ctx, in.JobID, fail)
		return fail
	}

	p.Tracker.SetDone(ctx, in.JobID, nil)
	logger.Info("job finished",
		"pages", len(pages),
		"fallback_pages", fallbacks,
		"duration", time.Since(start),
	)
	return nil
}

func (p *Pipeline) loadOutline(ctx context.Context, in JobInput) (*story.Outline, error) {
	p.Tracker.SetMessage(ctx, in.JobID, progress.MsgLoadingOutline)

	tpl, err := p.Stories.ForGender(in.Gender)
	if err != nil {
		return nil, err
	}
	return story.BuildOutline(tpl, in.ChildName)
}

// describeChild is best-effort: any failure means pages are generated
// without an appearance hint.
func (p *Pipeline) describeChild(ctx context.Context, in JobInput, logger *slog.Logger) string {
	if p.Describer == nil {
		return ""
	}

	p.Tracker.SetMessage(ctx, in.JobID, progress.MsgAnalyzing)
	hint, err := p.Describer.Describe(ctx, in.Photo)
	if err != nil {
		logger.Warn("appearance analysis failed, continuing without hint", "error", err)
		return ""
	}
	logger.Info("appearance analyzed", "hint_len", len(hint))
	return hint
}

func (p *Pipeline) buildSpecs(in JobInput, outline *story.Outline, appearance string) []PageSpec {
	specs := make([]PageSpec, 0, len(outline.Pages))
	for _, page := range outline.Pages {
		specs = append(specs, PageSpec{
			Page: page,
			Prompt: BuildPagePrompt(PromptInput{
				ChildName:  in.ChildName,
				Gender:     in.Gender,
				Appearance: appearance,
				Title:      outline.Title,
				Page:       page,
			}),
		})
	}
	return specs
}

func (p *Pipeline) assemble(jobID string, pages []PageResult) error {
	images := make([][]byte, 0, len(pages))
	for _, pg := range pages {
		images = append(images, pg.Image)
	}

	var buf bytes.Buffer
	if err := pdf.Assemble(&buf, images); err != nil {
		return err
	}
	if _, err := p.Store.SavePDF(jobID, buf.Bytes()); err != nil {
		return err
	}
	return nil
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
