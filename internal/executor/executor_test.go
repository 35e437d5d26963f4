package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/lustre-client-installer/internal/logging"
	"github.com/yairfalse/lustre-client-installer/internal/plan"
)

type mockManager struct {
	mock.Mock
}

func (m *mockManager) AddSigningKey(ctx context.Context, url string) error {
	return m.Called(url).Error(0)
}

func (m *mockManager) AddRepository(ctx context.Context, url, label string) error {
	return m.Called(url, label).Error(0)
}

func (m *mockManager) RewriteRepositoryRevision(ctx context.Context, repoFile, oldToken, newToken string) error {
	return m.Called(repoFile, oldToken, newToken).Error(0)
}

func (m *mockManager) RefreshCache(ctx context.Context) error {
	return m.Called().Error(0)
}

func (m *mockManager) Install(ctx context.Context, packages []string) error {
	return m.Called(packages).Error(0)
}

func (m *mockManager) Remove(ctx context.Context, packages []string) error {
	return m.Called(packages).Error(0)
}

func (m *mockManager) CleanCache(ctx context.Context) error {
	return m.Called().Error(0)
}

func testPlan() plan.Plan {
	return plan.Plan{Steps: []plan.Step{
		{Kind: plan.AddSigningKey, URL: "https://example.com/key.asc"},
		{Kind: plan.AddRepository, URL: "https://example.com/fsx.repo", Label: "aws-fsx"},
		{Kind: plan.RefreshCache},
		{Kind: plan.InstallPackages, Packages: []string{"lustre-client"}},
		{Kind: plan.CleanCache, BestEffort: true},
	}}
}

func TestExecuteRunsStepsInOrder(t *testing.T) {
	pm := &mockManager{}
	pm.On("AddSigningKey", "https://example.com/key.asc").Return(nil)
	pm.On("AddRepository", "https://example.com/fsx.repo", "aws-fsx").Return(nil)
	pm.On("RefreshCache").Return(nil)
	pm.On("Install", []string{"lustre-client"}).Return(nil)
	pm.On("CleanCache").Return(nil)

	exec := New(pm, logging.NewNop(), NewMetrics())
	result, err := exec.Execute(context.Background(), testPlan(), false)

	require.NoError(t, err)
	assert.False(t, result.Failed())
	require.Len(t, result.Steps, 5)
	for _, s := range result.Steps {
		assert.Equal(t, StatusSucceeded, s.Status)
	}
	pm.AssertExpectations(t)
}

// Under dry-run no call may reach the package manager.
func TestExecuteDryRunTouchesNothing(t *testing.T) {
	pm := &mockManager{}

	exec := New(pm, logging.NewNop(), nil)
	result, err := exec.Execute(context.Background(), testPlan(), true)

	require.NoError(t, err)
	require.Len(t, result.Steps, 5)
	for _, s := range result.Steps {
		assert.Equal(t, StatusDryRun, s.Status)
	}
	pm.AssertNotCalled(t, "AddSigningKey", mock.Anything)
	pm.AssertNotCalled(t, "AddRepository", mock.Anything, mock.Anything)
	pm.AssertNotCalled(t, "RefreshCache")
	pm.AssertNotCalled(t, "Install", mock.Anything)
	pm.AssertNotCalled(t, "CleanCache")
}

func TestExecuteFailsFastButCleansCache(t *testing.T) {
	pm := &mockManager{}
	pm.On("AddSigningKey", mock.Anything).Return(nil)
	pm.On("AddRepository", mock.Anything, mock.Anything).Return(errors.New("repository unreachable"))
	pm.On("CleanCache").Return(nil)

	exec := New(pm, logging.NewNop(), NewMetrics())
	result, err := exec.Execute(context.Background(), testPlan(), false)

	var failed *InstallationFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "add-repository", failed.Step)

	require.Len(t, result.Steps, 5)
	assert.Equal(t, StatusSucceeded, result.Steps[0].Status)
	assert.Equal(t, StatusFailed, result.Steps[1].Status)
	assert.Equal(t, StatusSkipped, result.Steps[2].Status)
	assert.Equal(t, StatusSkipped, result.Steps[3].Status)
	// Cache cleanup is best-effort and still runs after the failure.
	assert.Equal(t, StatusSucceeded, result.Steps[4].Status)

	pm.AssertNotCalled(t, "RefreshCache")
	pm.AssertNotCalled(t, "Install", mock.Anything)
	pm.AssertCalled(t, "CleanCache")
}

func TestExecuteBestEffortFailureDoesNotFailRun(t *testing.T) {
	pm := &mockManager{}
	pm.On("AddSigningKey", mock.Anything).Return(nil)
	pm.On("AddRepository", mock.Anything, mock.Anything).Return(nil)
	pm.On("RefreshCache").Return(nil)
	pm.On("Install", mock.Anything).Return(nil)
	pm.On("CleanCache").Return(errors.New("cache locked"))

	exec := New(pm, logging.NewNop(), nil)
	result, err := exec.Execute(context.Background(), testPlan(), false)

	require.NoError(t, err)
	assert.Equal(t, StatusFailed, result.Steps[4].Status)
}

func TestMetricsRecordsDurationsAndErrors(t *testing.T) {
	m := NewMetrics()
	m.Record("add-repository", 10, nil)
	m.Record("install-packages", 20, errors.New("boom"))

	assert.Equal(t, int64(30), int64(m.Total()))
	// Logging the summary must not panic with a nop logger.
	m.LogSummary(logging.NewNop())
}
