package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-layout-translator/internal/config"
	"pdf-layout-translator/internal/doc"
	"pdf-layout-translator/internal/layout"
)

func testService(policy config.FailurePolicy, det *fakeDetector) *Service {
	cfg := config.Default()
	cfg.OnPageFailure = policy
	return NewService(cfg, newOrchestrator(det, &fakeTranslator{}))
}

func threePageDoc(failPage int) *doc.MemDocument {
	pages := make([]*doc.MemPage, 3)
	for i := range pages {
		pages[i] = testPage()
		if i == failPage {
			pages[i].FailApply = errors.New("content stream damaged")
		}
	}
	return doc.NewMemDocument(pages...)
}

func TestKeepOriginalPolicyContinuesPastFailure(t *testing.T) {
	det := &fakeDetector{boxes: []layout.Box{textBoxPixels()}}
	service := testService(config.KeepOriginal, det)
	d := threePageDoc(1)

	result, err := service.TranslateDocument(context.Background(), "job-1", d)
	require.NoError(t, err)
	require.Len(t, result.Pages, 3)
	assert.Equal(t, 1, result.FailedPages)
	assert.Equal(t, StateFailed, result.Pages[1].State)
	assert.Equal(t, StateCommitted, result.Pages[0].State)
	assert.Equal(t, StateCommitted, result.Pages[2].State)
}

func TestAbortPolicyStopsOnFailure(t *testing.T) {
	det := &fakeDetector{boxes: []layout.Box{textBoxPixels()}}
	service := testService(config.AbortDocument, det)
	d := threePageDoc(1)

	_, err := service.TranslateDocument(context.Background(), "job-2", d)
	require.Error(t, err)
	var perr *PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ErrWipe, perr.Code)
	assert.Equal(t, 1, perr.Page)
}

func TestPagesProcessedInOrder(t *testing.T) {
	det := &fakeDetector{boxes: []layout.Box{textBoxPixels()}}
	service := testService(config.KeepOriginal, det)
	d := threePageDoc(-1)

	result, err := service.TranslateDocument(context.Background(), "job-3", d)
	require.NoError(t, err)
	for i, pr := range result.Pages {
		assert.Equal(t, i, pr.Page, "results must follow page order")
	}
}

func TestDetectionFailureCountsAsPassthrough(t *testing.T) {
	det := &fakeDetector{err: errors.New("backend down")}
	service := testService(config.KeepOriginal, det)
	d := threePageDoc(-1)

	result, err := service.TranslateDocument(context.Background(), "job-4", d)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Passthrough)
	assert.Zero(t, result.FailedPages)
}

func TestNewJobAssignsIDs(t *testing.T) {
	a := NewJob("in.pdf", "out.pdf")
	b := NewJob("in.pdf", "out.pdf")
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestCanceledContextStopsDocument(t *testing.T) {
	det := &fakeDetector{boxes: []layout.Box{textBoxPixels()}}
	service := testService(config.KeepOriginal, det)
	d := threePageDoc(-1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := service.TranslateDocument(ctx, "job-5", d)
	assert.ErrorIs(t, err, context.Canceled)
}
