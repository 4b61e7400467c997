package fleet

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFactory struct {
	id  string
	err error
}

func (f stubFactory) MakeViaRef(ctx context.Context, old Service) (Service, error) {
	if f.err != nil {
		return nil, f.err
	}
	return stubService{id: f.id}, nil
}

func newWorker() *WorkerController {
	return NewWorkerController(0, NewWorkerInbox(8), nil)
}

func TestWorkerController_StageServiceCreatesSite(t *testing.T) {
	w := newWorker()

	err := w.apply(context.Background(), StageServiceDirective("api", stubFactory{id: "v1"}))

	require.NoError(t, err)
	site := w.sites["api"]
	require.NotNil(t, site)
	assert.Equal(t, stubService{id: "v1"}, site.peekStaged())
}

func TestWorkerController_StageServicePropagatesBuildError(t *testing.T) {
	w := newWorker()
	boom := errors.New("boom")

	err := w.apply(context.Background(), StageServiceDirective("api", stubFactory{err: boom}))

	var ce *CoreError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrKindBuildService, ce.Kind)
	assert.ErrorIs(t, err, boom)
}

func TestWorkerController_UpdateDeployedWithStaged_SiteNotExist(t *testing.T) {
	w := newWorker()

	err := w.apply(context.Background(), UpdateDeployedWithStagedDirective("missing"))

	assert.ErrorIs(t, err, ErrSiteNotExist)
}

func TestWorkerController_UpdateDeployedWithStaged_PreviousHandlerNotExist(t *testing.T) {
	w := newWorker()
	require.NoError(t, w.apply(context.Background(), StageServiceDirective("api", stubFactory{id: "v1"})))

	err := w.apply(context.Background(), UpdateDeployedWithStagedDirective("api"))

	assert.ErrorIs(t, err, ErrPreviousHandlerNotExist)
}

func TestWorkerController_AbortStaging(t *testing.T) {
	w := newWorker()
	require.NoError(t, w.apply(context.Background(), StageServiceDirective("api", stubFactory{id: "v1"})))

	err := w.apply(context.Background(), AbortStagingDirective("api"))

	require.NoError(t, err)
	assert.False(t, w.sites["api"].isStaged())
}

func TestWorkerController_RemoveService_SiteNotExist(t *testing.T) {
	w := newWorker()

	err := w.apply(context.Background(), RemoveServiceDirective("missing"))

	assert.ErrorIs(t, err, ErrSiteNotExist)
}

func TestWorkerController_UnknownDirectiveKind(t *testing.T) {
	w := newWorker()

	err := w.apply(context.Background(), Directive{Kind: DirectiveKind(99), Site: "x"})

	require.Error(t, err)
}

func TestWorkerController_BuildStatusReflectsSites(t *testing.T) {
	w := newWorker()
	require.NoError(t, w.apply(context.Background(), StageServiceDirective("api", stubFactory{id: "v1"})))

	snap := w.buildStatus()

	require.Len(t, snap.Sites, 1)
	assert.Equal(t, SiteName("api"), snap.Sites[0].Name)
	assert.False(t, snap.Sites[0].Deployed)
	assert.True(t, snap.Sites[0].Staged)
}
