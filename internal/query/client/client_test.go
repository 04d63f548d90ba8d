package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"claimledger/internal/account"
	"claimledger/internal/claim"
	"claimledger/internal/index/memory"
	"claimledger/internal/ledger"
	"claimledger/internal/pointer"
	"claimledger/internal/query/client"
	"claimledger/internal/query/handler"
	"claimledger/internal/verifier"
	"claimledger/internal/violation"
	"claimledger/pkg/platform/sentinel"
)

var (
	alice = ledger.LegalIdentity{Name: "alice", Key: "key-alice"}
	bob   = ledger.LegalIdentity{Name: "bob", Key: "key-bob"}
)

// =============================================================================
// Client against a real handler
// =============================================================================

type ClientSuite struct {
	suite.Suite
	index  *memory.Store
	server *httptest.Server
	client *client.Client
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	registry := verifier.DefaultRegistry()
	s.index = memory.New()
	router := chi.NewRouter()
	handler.New(s.index, verifier.NewDefault(), registry, nil).Register(router)
	s.server = httptest.NewServer(router)

	var err error
	s.client, err = client.New(s.server.URL+"/", registry, client.WithHTTPClient(s.server.Client()))
	s.Require().NoError(err)
}

func (s *ClientSuite) TearDownTest() {
	s.server.Close()
}

func (s *ClientSuite) TestQueryByRefAndLinearID() {
	ctx := context.Background()
	acct := account.MustNew(alice, "savings")
	ref := ledger.StateRef{TxHash: "tx-acct", Index: 0}
	s.Require().NoError(s.index.Put(ctx, ledger.AnyStateAndRef{State: acct, Ref: ref}))

	byRef, err := s.client.Query(ctx, account.DefaultType, pointer.Criteria{Ref: &ref})
	s.Require().NoError(err)
	s.Require().Len(byRef, 1)
	s.Equal(acct, byRef[0].State)

	id := acct.LinearID()
	byID, err := s.client.Query(ctx, account.DefaultType, pointer.Criteria{LinearID: &id})
	s.Require().NoError(err)
	s.Len(byID, 1)

	wrongType, err := s.client.Query(ctx, "claim", pointer.Criteria{Ref: &ref})
	s.Require().NoError(err)
	s.Empty(wrongType)
}

func (s *ClientSuite) TestResolvesPointerThroughRemoteQuery() {
	ctx := context.Background()
	acct := account.MustNew(alice, "current")
	record := ledger.AnyStateAndRef{State: acct, Ref: ledger.StateRef{TxHash: "tx-remote"}}
	s.Require().NoError(s.index.Put(ctx, record))

	p := pointer.NewStatic(record)
	res, err := p.Resolve(ctx, pointer.FromQuery(s.client))
	s.Require().NoError(err)
	s.True(res.Found())
	s.Equal(acct, res.Record.State)
}

func (s *ClientSuite) TestValidate() {
	ctx := context.Background()
	tx := ledger.Transaction{
		ID:      "tx-issue",
		Kind:    ledger.Issue,
		Created: []ledger.ContractState{claim.New[string](alice, bob, "email", "bob@example.com")},
		Signers: ledger.NewKeySet(alice.Key),
	}
	s.NoError(s.client.Validate(ctx, tx))

	tx.Signers = ledger.NewKeySet(bob.Key)
	err := s.client.Validate(ctx, tx)
	s.Require().Error(err)
	s.ErrorIs(err, violation.New(violation.ClaimIssueSigners))
	s.ErrorIs(err, violation.ErrSignature)
}

// =============================================================================
// Errors and construction
// =============================================================================

func TestClient_ServerErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c, err := client.New(server.URL, verifier.DefaultRegistry())
	require.NoError(t, err)

	ref := ledger.StateRef{TxHash: "tx"}
	_, err = c.Query(context.Background(), "account", pointer.Criteria{Ref: &ref})
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
}

func TestNew_RejectsInvalidBaseURL(t *testing.T) {
	registry := verifier.DefaultRegistry()
	for _, raw := range []string{"", "ftp://example.com", "http://", "://bad"} {
		_, err := client.New(raw, registry)
		assert.Error(t, err, raw)
	}
	_, err := client.New("http://example.com", nil)
	assert.Error(t, err)
}
