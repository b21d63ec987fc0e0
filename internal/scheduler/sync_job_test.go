package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brokerhub/internal/domain"
)

type fakeLister struct {
	accounts []domain.BrokerAccount
	err      error
}

func (f *fakeLister) ListAllActive() ([]domain.BrokerAccount, error) {
	return f.accounts, f.err
}

type fakeSyncer struct {
	mu     sync.Mutex
	synced []string
	errs   map[string]error
}

func (f *fakeSyncer) Sync(_ context.Context, _, accountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synced = append(f.synced, accountID)
	return f.errs[accountID]
}

func accountsFixture(ids ...string) []domain.BrokerAccount {
	out := make([]domain.BrokerAccount, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.BrokerAccount{AccountID: id, UserID: "user-1", IsActive: true})
	}
	return out
}

func TestSyncAllJobSyncsEveryAccount(t *testing.T) {
	lister := &fakeLister{accounts: accountsFixture("a1", "a2", "a3")}
	syncer := &fakeSyncer{}
	job := NewSyncAllJob(lister, syncer, zerolog.Nop())

	require.NoError(t, job.Run())
	assert.ElementsMatch(t, []string{"a1", "a2", "a3"}, syncer.synced)
}

func TestSyncAllJobIsolatesFailures(t *testing.T) {
	lister := &fakeLister{accounts: accountsFixture("a1", "a2")}
	syncer := &fakeSyncer{errs: map[string]error{
		"a1": errors.New("broker down"),
	}}
	job := NewSyncAllJob(lister, syncer, zerolog.Nop())

	require.NoError(t, job.Run(), "one failing account does not fail the cycle")
	assert.ElementsMatch(t, []string{"a1", "a2"}, syncer.synced)
}

func TestSyncAllJobPartialCountsAsSuccess(t *testing.T) {
	lister := &fakeLister{accounts: accountsFixture("a1")}
	syncer := &fakeSyncer{errs: map[string]error{
		"a1": &domain.PartialSyncError{AccountID: "a1", Failed: []string{domain.SyncFetchTrades}},
	}}
	job := NewSyncAllJob(lister, syncer, zerolog.Nop())

	assert.NoError(t, job.Run())
}

func TestSyncAllJobAllFailed(t *testing.T) {
	lister := &fakeLister{accounts: accountsFixture("a1", "a2")}
	syncer := &fakeSyncer{errs: map[string]error{
		"a1": errors.New("down"),
		"a2": errors.New("down"),
	}}
	job := NewSyncAllJob(lister, syncer, zerolog.Nop())

	assert.Error(t, job.Run())
}

func TestSyncAllJobListError(t *testing.T) {
	lister := &fakeLister{err: errors.New("db closed")}
	job := NewSyncAllJob(lister, &fakeSyncer{}, zerolog.Nop())

	assert.Error(t, job.Run())
}

func TestSyncAllJobEmpty(t *testing.T) {
	job := NewSyncAllJob(&fakeLister{}, &fakeSyncer{}, zerolog.Nop())
	assert.NoError(t, job.Run())
}
