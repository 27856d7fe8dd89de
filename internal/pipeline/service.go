package pipeline

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"pdf-layout-translator/internal/config"
	"pdf-layout-translator/internal/doc"
	"pdf-layout-translator/internal/governor"
	"pdf-layout-translator/internal/logger"
)

// Job is one document translation request.
type Job struct {
	ID         string
	InputPath  string
	OutputPath string
}

// NewJob creates a job with a fresh ID.
func NewJob(inputPath, outputPath string) Job {
	return Job{ID: uuid.NewString(), InputPath: inputPath, OutputPath: outputPath}
}

// Result summarizes one processed document.
type Result struct {
	JobID       string
	Pages       []*PageResult
	FailedPages int
	Passthrough int
}

// Service processes documents through the per-page orchestrator. Pages
// within one document run in order; different documents run concurrently,
// sharing the orchestrator's resource governor.
type Service struct {
	cfg   *config.Config
	orch  *Orchestrator
	pages *commitGuard
}

// commitGuard gives each document an exclusive lock for its final commit,
// so concurrent jobs never interleave writes to shared output state.
type commitGuard struct {
	mu sync.Mutex
}

func (g *commitGuard) withLock(fn func() error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn()
}

// NewService creates a document service around an orchestrator.
func NewService(cfg *config.Config, orch *Orchestrator) *Service {
	return &Service{cfg: cfg, orch: orch, pages: &commitGuard{}}
}

// TranslateFile preflights and opens the input, translates it, saves the
// output, and validates the result.
func (s *Service) TranslateFile(ctx context.Context, job Job) (*Result, error) {
	info, err := doc.Preflight(job.InputPath)
	if err != nil {
		return nil, NewError(ErrDocument, "input preflight failed", err)
	}
	if !info.IsTextPDF {
		return nil, NewError(ErrDocument, "document has no extractable text layer (scanned PDF?)", nil)
	}

	logger.Info("translation job started",
		logger.String("job", job.ID),
		logger.String("file", info.FileName),
		logger.Int("pages", info.PageCount))

	d, err := doc.Open(job.InputPath, s.cfg.Zoom, s.cfg.FontPath)
	if err != nil {
		return nil, NewError(ErrDocument, "open document failed", err)
	}
	defer d.Close()

	result, err := s.TranslateDocument(ctx, job.ID, d)
	if err != nil {
		return nil, err
	}

	if err := s.pages.withLock(func() error { return d.Save(job.OutputPath) }); err != nil {
		return nil, NewError(ErrDocument, "save output failed", err)
	}
	if err := ValidateOutput(job.OutputPath, info.PageCount); err != nil {
		return nil, err
	}

	logger.Info("translation job finished",
		logger.String("job", job.ID),
		logger.Int("failedPages", result.FailedPages),
		logger.Int("passthrough", result.Passthrough))
	return result, nil
}

// TranslateDocument runs every page of an open document through the
// pipeline in page order. Under the abort policy the first failed page
// fails the document; under keep-original, failed and passthrough pages
// stay as they were and processing continues.
func (s *Service) TranslateDocument(ctx context.Context, jobID string, d doc.Document) (*Result, error) {
	result := &Result{JobID: jobID}

	for i := 0; i < d.PageCount(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := d.Page(i)
		if err != nil {
			return nil, NewPageError(ErrDocument, i, "load page failed", err)
		}

		pr := s.orch.ProcessPage(ctx, page)
		result.Pages = append(result.Pages, pr)

		switch {
		case pr.State == StateFailed:
			result.FailedPages++
			if s.cfg.OnPageFailure == config.AbortDocument {
				return nil, pr.Err
			}
			// keep-original: the page reverted; move on.
		case pr.Passthrough:
			result.Passthrough++
		}
	}
	return result, nil
}

// TranslateAll processes several jobs concurrently, bounded by the
// configured worker count.
func (s *Service) TranslateAll(ctx context.Context, jobs []Job) ([]*Result, error) {
	pool := governor.NewPool(ctx, s.cfg.Workers)
	results := make([]*Result, len(jobs))

	for i, job := range jobs {
		i, job := i, job
		pool.Go(func() error {
			r, err := s.TranslateFile(pool.Context(), job)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := pool.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
