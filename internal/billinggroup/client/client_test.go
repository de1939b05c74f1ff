package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policydesk/internal/billinggroup/models"
	id "policydesk/pkg/domain"
	dErrors "policydesk/pkg/domain-errors"
	"policydesk/pkg/platform/circuit"
	"policydesk/pkg/platform/sentinel"
	"policydesk/pkg/requestcontext"
)

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/api", opts...)
	require.NoError(t, err)
	return c
}

func TestNew_RejectsInvalidURL(t *testing.T) {
	for _, raw := range []string{"", "not a url", "/relative/path"} {
		_, err := New(raw)
		assert.Error(t, err, raw)
	}
}

func TestDirectoryEndpoints(t *testing.T) {
	policyID := id.PolicyID(uuid.New())
	subID := id.SubPolicyholderID(uuid.New())
	email := "fin@acme.com"

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/policies/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "req-7", r.Header.Get("X-Request-ID"))
		_ = json.NewEncoder(w).Encode(models.Policy{ID: policyID, PolicyNumber: "AP-1", HolderName: "Acme"})
	})
	mux.HandleFunc("GET /api/policies/{id}/sub-policyholders", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"sub_policyholders":null}`))
	})
	mux.HandleFunc("GET /api/policies/{id}/contacts", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ContactsResponse{Contacts: []models.Contact{{Name: "Ana", Email: &email}}})
	})
	mux.HandleFunc("GET /api/sub-policyholders/{id}/contacts", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, subID.String(), r.PathValue("id"))
		_, _ = w.Write([]byte(`{"contacts":[{"email":null,"active":false}]}`))
	})
	c := newTestClient(t, mux)
	ctx := requestcontext.WithRequestID(context.Background(), "req-7")

	policy, err := c.GetPolicy(ctx, policyID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", policy.HolderName)

	subs, err := c.ListSubPolicyholders(ctx, policyID)
	require.NoError(t, err)
	assert.NotNil(t, subs)
	assert.Empty(t, subs)

	contacts, err := c.ListPolicyContacts(ctx, policyID)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	got, ok := contacts[0].UsableEmail()
	assert.True(t, ok)
	assert.Equal(t, email, got)

	subContacts, err := c.ListSubPolicyholderContacts(ctx, subID)
	require.NoError(t, err)
	require.Len(t, subContacts, 1)
	assert.False(t, subContacts[0].IsActive())
}

func TestBillingGroupEndpoints(t *testing.T) {
	policyID := id.PolicyID(uuid.New())
	subID := id.SubPolicyholderID(uuid.New())
	var (
		mu       sync.Mutex
		received models.WireMembers
	)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/policies/{id}/billing-groups", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /api/policies/{id}/billing-groups", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		_ = json.NewEncoder(w).Encode(received)
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	members := []models.Member{
		{ID: id.NewMemberID(), GroupName: "Matriz", Ref: models.PrimaryRef(), IsLeader: true, Order: 1, Emails: []string{"a@x.com", "b@x.com"}},
		{ID: id.NewMemberID(), GroupName: "Matriz", Ref: models.SecondaryRef(subID), Order: 2, Emails: []string{"a@x.com", "b@x.com"}},
	}
	require.NoError(t, c.ReplaceBillingGroups(ctx, policyID, members))
	mu.Lock()
	sent := received
	mu.Unlock()

	require.Len(t, sent.Members, 2)
	assert.Equal(t, members[0].ID.String(), sent.Members[0].ID, "working row ids are sent as is")
	require.NotNil(t, sent.Members[0].PolicyholderID)
	assert.Equal(t, policyID.String(), *sent.Members[0].PolicyholderID)
	assert.Nil(t, sent.Members[0].SubPolicyholderID)
	require.NotNil(t, sent.Members[0].Emails)
	assert.Equal(t, "a@x.com, b@x.com", *sent.Members[0].Emails)
	assert.Nil(t, sent.Members[0].AdditionalMailingNotes)

	got, err := c.ListBillingGroups(ctx, policyID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Ref.IsPrimary())
	assert.Equal(t, models.SecondaryRef(subID), got[1].Ref)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, got[1].Emails)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "not found",
			status: http.StatusNotFound,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, sentinel.ErrNotFound)
			},
		},
		{
			name:   "coded rejection keeps the collaborator code",
			status: http.StatusUnprocessableEntity,
			body:   `{"error":"invariant_violation","error_description":"row 2: more than one leader"}`,
			check: func(t *testing.T, err error) {
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
				assert.Contains(t, err.Error(), "more than one leader")
			},
		},
		{
			name:   "bare 422 is an invariant violation",
			status: http.StatusUnprocessableEntity,
			check: func(t *testing.T, err error) {
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
			},
		},
		{
			name:   "bare 400 is a bad request",
			status: http.StatusBadRequest,
			body:   "nope",
			check: func(t *testing.T, err error) {
				assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
			},
		},
		{
			name:   "503 means the collaborator is unavailable",
			status: http.StatusServiceUnavailable,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, sentinel.ErrUnavailable)
			},
		},
		{
			name:   "server error is neither unavailable nor coded",
			status: http.StatusInternalServerError,
			body:   "boom",
			check: func(t *testing.T, err error) {
				assert.False(t, errors.Is(err, sentinel.ErrUnavailable))
				assert.Contains(t, err.Error(), "500")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			_, err := c.GetPolicy(context.Background(), id.PolicyID(uuid.New()))
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestTransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.GetPolicy(context.Background(), id.PolicyID(uuid.New()))
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
}

func TestDeadlineIsNotUnavailable(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.GetPolicy(ctx, id.PolicyID(uuid.New()))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, errors.Is(err, sentinel.ErrUnavailable))
}

func TestBreakerFailsFast(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}), WithBreaker(circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))))
	ctx := context.Background()

	for range 2 {
		_, err := c.GetPolicy(ctx, id.PolicyID(uuid.New()))
		require.Error(t, err)
	}
	_, err := c.GetPolicy(ctx, id.PolicyID(uuid.New()))
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	assert.Equal(t, int32(2), calls.Load())
}

func TestServerErrorsDoNotOpenBreaker(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}), WithBreaker(circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))))
	ctx := context.Background()

	for range 5 {
		_, err := c.ListSubPolicyholderContacts(ctx, id.SubPolicyholderID(uuid.New()))
		require.Error(t, err)
		assert.False(t, errors.Is(err, sentinel.ErrUnavailable))
	}
	assert.Equal(t, int32(5), calls.Load())
}
