package call

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/truckwell/dispatch-voice-service/internal/adapters/retell"
	"github.com/truckwell/dispatch-voice-service/internal/domain"
	"github.com/truckwell/dispatch-voice-service/internal/repository"
	"gorm.io/gorm"
)

var testDBSeq atomic.Int64

func openTestRepos(t *testing.T) repository.RepositoryManager {
	t.Helper()
	dsn := fmt.Sprintf("file:call_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(db))
	return repository.NewGormRepositoryManager(db)
}

type fakeProvider struct {
	webCall   *retell.WebCall
	err       error
	calls     int
	lastAgent string
	lastVars  map[string]string
	lastMeta  map[string]string
}

func (f *fakeProvider) CreateWebCall(ctx context.Context, agentID string, metadata, dynamicVariables map[string]string) (*retell.WebCall, error) {
	f.calls++
	f.lastAgent = agentID
	f.lastMeta = metadata
	f.lastVars = dynamicVariables
	if f.err != nil {
		return nil, f.err
	}
	return f.webCall, nil
}

type fakeEnricher struct {
	err    error
	calls  int
	lastID string
	onCall func(ctx context.Context, callID string) error
}

func (f *fakeEnricher) ProcessCallEnded(ctx context.Context, callID string) error {
	f.calls++
	f.lastID = callID
	if f.onCall != nil {
		return f.onCall(ctx, callID)
	}
	return f.err
}

func seedProvisionedAgent(t *testing.T, repos repository.RepositoryManager) *domain.Agent {
	t.Helper()
	agent := &domain.Agent{
		Name:          "Dispatch Check-In",
		Prompts:       "routine check-in",
		SystemPrompt:  "Hello {{driver_name}}, calling about load {{load_number}}.",
		RetellAgentID: "agent_abc",
		RetellLLMID:   "llm_abc",
	}
	require.NoError(t, repos.Agent().Create(context.Background(), agent))
	return agent
}

func TestStartCheckIn_Success(t *testing.T) {
	repos := openTestRepos(t)
	agent := seedProvisionedAgent(t, repos)
	provider := &fakeProvider{webCall: &retell.WebCall{CallID: "call_1", AccessToken: "tok", AgentID: "agent_abc"}}
	svc := NewService(repos, provider, &fakeEnricher{}, time.Millisecond)
	ctx := context.Background()

	conv, err := svc.StartCheckIn(ctx, StartCheckInRequest{
		AgentID:     agent.ID,
		DriverName:  "Mike",
		DriverPhone: "+15551234567",
		LoadNumber:  "LD-4512",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ConversationStatusInProgress, conv.Status)
	assert.Equal(t, "call_1", conv.RetellCallID)
	assert.Equal(t, "tok", conv.RetellAccessToken)
	assert.Equal(t, "LD-4512", conv.LoadNumber)

	assert.Equal(t, "agent_abc", provider.lastAgent)
	assert.Equal(t, "Mike", provider.lastVars["driver_name"])
	assert.Equal(t, "LD-4512", provider.lastVars["load_number"])
	assert.Equal(t, conv.ID, provider.lastMeta["conversation_id"])

	// Starting a call counts as agent usage.
	got, err := repos.Agent().GetByID(ctx, agent.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.LastUsedAt)
}

func TestStartCheckIn_ResolvesExistingDriver(t *testing.T) {
	repos := openTestRepos(t)
	agent := seedProvisionedAgent(t, repos)
	ctx := context.Background()
	driver := &domain.Driver{Name: "Sam", PhoneNumber: "+15550000000"}
	require.NoError(t, repos.Driver().Create(ctx, driver))

	provider := &fakeProvider{webCall: &retell.WebCall{CallID: "call_2", AccessToken: "tok"}}
	svc := NewService(repos, provider, &fakeEnricher{}, time.Millisecond)

	conv, err := svc.StartCheckIn(ctx, StartCheckInRequest{
		AgentID:    agent.ID,
		DriverID:   driver.ID,
		LoadNumber: "LD-9",
	})
	require.NoError(t, err)
	assert.Equal(t, driver.ID, conv.DriverID)
	assert.Equal(t, "Sam", provider.lastVars["driver_name"])
}

func TestStartCheckIn_UnprovisionedAgent(t *testing.T) {
	repos := openTestRepos(t)
	ctx := context.Background()
	agent := &domain.Agent{Name: "Draft", Prompts: "routine"}
	require.NoError(t, repos.Agent().Create(ctx, agent))

	provider := &fakeProvider{}
	svc := NewService(repos, provider, &fakeEnricher{}, time.Millisecond)

	_, err := svc.StartCheckIn(ctx, StartCheckInRequest{
		AgentID:     agent.ID,
		DriverName:  "Mike",
		DriverPhone: "+15551234567",
		LoadNumber:  "LD-1",
	})
	require.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Zero(t, provider.calls, "provider must not be contacted for unprovisioned agents")

	// The PENDING conversation is the only trace of the attempt.
	items, err := repos.Conversation().List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, domain.ConversationStatusPending, items[0].Status)
	assert.Empty(t, items[0].RetellCallID)

	got, err := repos.Agent().GetByID(ctx, agent.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LastUsedAt)
}

func TestStartCheckIn_UnknownAgent(t *testing.T) {
	repos := openTestRepos(t)
	svc := NewService(repos, &fakeProvider{}, &fakeEnricher{}, time.Millisecond)

	_, err := svc.StartCheckIn(context.Background(), StartCheckInRequest{
		AgentID:     "missing",
		DriverName:  "Mike",
		DriverPhone: "+15551234567",
		LoadNumber:  "LD-1",
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStartCheckIn_MissingDriverFields(t *testing.T) {
	repos := openTestRepos(t)
	agent := seedProvisionedAgent(t, repos)
	svc := NewService(repos, &fakeProvider{}, &fakeEnricher{}, time.Millisecond)

	_, err := svc.StartCheckIn(context.Background(), StartCheckInRequest{
		AgentID:    agent.ID,
		DriverName: "Mike",
		LoadNumber: "LD-1",
	})
	require.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestStartCheckIn_ProviderFailure(t *testing.T) {
	repos := openTestRepos(t)
	agent := seedProvisionedAgent(t, repos)
	provider := &fakeProvider{err: errors.New("retell 500")}
	svc := NewService(repos, provider, &fakeEnricher{}, time.Millisecond)
	ctx := context.Background()

	_, err := svc.StartCheckIn(ctx, StartCheckInRequest{
		AgentID:     agent.ID,
		DriverName:  "Mike",
		DriverPhone: "+15551234567",
		LoadNumber:  "LD-1",
	})
	require.Error(t, err)

	var extErr *domain.ExternalServiceError
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, "retell", extErr.Service)

	items, listErr := repos.Conversation().List(ctx)
	require.NoError(t, listErr)
	require.Len(t, items, 1)
	assert.Equal(t, domain.ConversationStatusPending, items[0].Status)
}

func TestEndCall_WithoutHandleCompletesImmediately(t *testing.T) {
	repos := openTestRepos(t)
	ctx := context.Background()
	conv, err := repos.Conversation().Create(ctx, "agent-1", "driver-1", "LD-1")
	require.NoError(t, err)

	enricher := &fakeEnricher{}
	svc := NewService(repos, &fakeProvider{}, enricher, time.Millisecond)

	require.NoError(t, svc.EndCall(ctx, conv.ID))
	assert.Zero(t, enricher.calls, "no provider call means no enrichment")

	got, err := repos.Conversation().GetByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ConversationStatusCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)
}

func TestEndCall_WithHandleRunsEnrichmentAfterGrace(t *testing.T) {
	repos := openTestRepos(t)
	ctx := context.Background()
	conv, err := repos.Conversation().Create(ctx, "agent-1", "driver-1", "LD-1")
	require.NoError(t, err)
	require.NoError(t, repos.Conversation().SetCallHandle(ctx, conv.ID, "call_1", "tok"))

	enricher := &fakeEnricher{onCall: func(ctx context.Context, callID string) error {
		return repos.Conversation().SetStatus(ctx, conv.ID, domain.ConversationStatusCompleted)
	}}
	svc := NewService(repos, &fakeProvider{}, enricher, time.Millisecond)

	require.NoError(t, svc.EndCall(ctx, conv.ID))
	assert.Equal(t, 1, enricher.calls)
	assert.Equal(t, "call_1", enricher.lastID)
}

func TestEndCall_EnrichmentFailureDegradesToCompleted(t *testing.T) {
	repos := openTestRepos(t)
	ctx := context.Background()
	conv, err := repos.Conversation().Create(ctx, "agent-1", "driver-1", "LD-1")
	require.NoError(t, err)
	require.NoError(t, repos.Conversation().SetCallHandle(ctx, conv.ID, "call_1", "tok"))

	enricher := &fakeEnricher{err: errors.New("retell unavailable")}
	svc := NewService(repos, &fakeProvider{}, enricher, time.Millisecond)

	require.NoError(t, svc.EndCall(ctx, conv.ID), "enrichment failures must not surface to the caller")

	got, err := repos.Conversation().GetByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ConversationStatusCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)
	assert.Empty(t, got.Transcript)
}

func TestEndCall_CallerDisconnectDoesNotAbortCompletion(t *testing.T) {
	repos := openTestRepos(t)
	ctx := context.Background()
	conv, err := repos.Conversation().Create(ctx, "agent-1", "driver-1", "LD-1")
	require.NoError(t, err)
	require.NoError(t, repos.Conversation().SetCallHandle(ctx, conv.ID, "call_1", "tok"))

	enricher := &fakeEnricher{onCall: func(ctx context.Context, callID string) error {
		assert.NoError(t, ctx.Err(), "enrichment must run detached from the request context")
		return repos.Conversation().SetStatus(ctx, conv.ID, domain.ConversationStatusCompleted)
	}}
	svc := NewService(repos, &fakeProvider{}, enricher, time.Millisecond)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, svc.EndCall(cancelled, conv.ID))
	assert.Equal(t, 1, enricher.calls)

	got, err := repos.Conversation().GetByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ConversationStatusCompleted, got.Status)
}

func TestEndCall_CallerDisconnectStillDegradesToCompleted(t *testing.T) {
	repos := openTestRepos(t)
	ctx := context.Background()
	conv, err := repos.Conversation().Create(ctx, "agent-1", "driver-1", "LD-1")
	require.NoError(t, err)
	require.NoError(t, repos.Conversation().SetCallHandle(ctx, conv.ID, "call_1", "tok"))

	enricher := &fakeEnricher{err: errors.New("retell unavailable")}
	svc := NewService(repos, &fakeProvider{}, enricher, time.Millisecond)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, svc.EndCall(cancelled, conv.ID))

	got, err := repos.Conversation().GetByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ConversationStatusCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)
}

func TestEndCall_UnknownConversation(t *testing.T) {
	repos := openTestRepos(t)
	svc := NewService(repos, &fakeProvider{}, &fakeEnricher{}, time.Millisecond)

	err := svc.EndCall(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
