package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimledger/internal/ledger"
	dErrors "claimledger/pkg/domain-errors"
)

type memo struct {
	Author ledger.LegalIdentity
}

func (m memo) StateType() ledger.StateType  { return "memo" }
func (m memo) Participants() []ledger.Party { return []ledger.Party{m.Author} }

func TestKeySet(t *testing.T) {
	s := ledger.NewKeySet("b", "a", "", "a")

	assert.True(t, s.Contains("a"))
	assert.False(t, s.Contains("c"))
	assert.False(t, s.Contains(""), "empty key never signs")
	assert.Equal(t, []ledger.Key{"a", "b"}, s.Keys())

	var empty ledger.KeySet
	assert.False(t, empty.Contains("a"))
}

func TestParties(t *testing.T) {
	alice := ledger.LegalIdentity{Name: "alice", Key: "ka"}
	bob := ledger.LegalIdentity{Name: "bob", Key: "kb"}

	t.Run("equality is by value", func(t *testing.T) {
		assert.True(t, ledger.ContainsParty([]ledger.Party{alice}, ledger.LegalIdentity{Name: "alice", Key: "ka"}))
		assert.False(t, ledger.ContainsParty([]ledger.Party{alice}, bob))
		assert.False(t, ledger.ContainsParty([]ledger.Party{alice}, nil))
	})

	t.Run("distinct drops nil and repeats", func(t *testing.T) {
		assert.Equal(t, []ledger.Party{alice, bob}, ledger.DistinctParties(alice, nil, bob, alice))
	})

	t.Run("same party handles nil", func(t *testing.T) {
		assert.True(t, ledger.SameParty(nil, nil))
		assert.False(t, ledger.SameParty(alice, nil))
		assert.True(t, ledger.SameParty(alice, alice))
	})

	t.Run("canonical string includes key", func(t *testing.T) {
		assert.Equal(t, "legal:alice#ka", alice.String())
		assert.True(t, ledger.LegalIdentity{}.IsZero())
	})
}

func TestTransaction(t *testing.T) {
	alice := ledger.LegalIdentity{Name: "alice", Key: "ka"}
	tx := ledger.Transaction{
		ID:       "tx-9",
		Kind:     ledger.Amend,
		Consumed: []ledger.AnyStateAndRef{{State: memo{Author: alice}, Ref: ledger.StateRef{TxHash: "tx-1", Index: 0}}},
		Created:  []ledger.ContractState{memo{Author: alice}, memo{Author: alice}},
	}

	t.Run("created refs use the transaction id", func(t *testing.T) {
		refs := tx.CreatedRefs()
		require.Len(t, refs, 2)
		assert.Equal(t, ledger.StateRef{TxHash: "tx-9", Index: 1}, refs[1].Ref)
	})

	t.Run("state types are distinct", func(t *testing.T) {
		assert.Equal(t, []ledger.StateType{"memo"}, tx.StateTypes())
	})

	t.Run("narrow recovers typed records", func(t *testing.T) {
		typed, ok := ledger.Narrow[memo](tx.Consumed[0])
		require.True(t, ok)
		assert.Equal(t, alice, typed.State.Author)
		assert.Equal(t, tx.Consumed[0], ledger.Erase(typed))
	})
}

func TestParseTransitionKind(t *testing.T) {
	k, err := ledger.ParseTransitionKind("amend")
	require.NoError(t, err)
	assert.Equal(t, ledger.Amend, k)

	_, err = ledger.ParseTransitionKind("merge")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
