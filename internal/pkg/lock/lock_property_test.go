// Property-based tests for scope-level serialization of escrow mutations.
package lock

import (
	"fmt"
	"sync"
	"testing"

	"pgregory.net/rapid"
)

// TestConcurrentScopeSerializationProperty checks that any set of concurrent
// read-modify-write operations against the same scope produces the same
// result as sequential execution.
func TestConcurrentScopeSerializationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initialBalance := rapid.Int64Range(1000, 100000).Draw(t, "initialBalance")
		numOps := rapid.IntRange(2, 20).Draw(t, "numOps")

		amounts := make([]int64, numOps)
		expected := initialBalance
		for i := range amounts {
			amounts[i] = rapid.Int64Range(-500, 500).Draw(t, "amount")
			expected += amounts[i]
		}

		account := rapid.Int64Range(1, 1000000).Draw(t, "account")
		scope := fmt.Sprintf("escrow:acct%d:usdt", account)

		sl := NewScopeLock()
		balance := initialBalance

		var wg sync.WaitGroup
		wg.Add(numOps)
		for _, amount := range amounts {
			go func(amount int64) {
				defer wg.Done()
				sl.Lock(scope)
				defer sl.Unlock(scope)
				balance += amount
			}(amount)
		}
		wg.Wait()

		if balance != expected {
			t.Fatalf("balance mismatch: expected %d, got %d (initial=%d, numOps=%d)",
				expected, balance, initialBalance, numOps)
		}
	})
}

// Distinct scopes never block each other, so operations against different
// escrow entries interleave freely while each entry stays consistent.
func TestIndependentScopesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numScopes := rapid.IntRange(2, 8).Draw(t, "numScopes")
		opsPerScope := rapid.IntRange(1, 10).Draw(t, "opsPerScope")

		sl := NewScopeLock()
		balances := make([]int64, numScopes)

		var wg sync.WaitGroup
		for i := 0; i < numScopes; i++ {
			for j := 0; j < opsPerScope; j++ {
				wg.Add(1)
				go func(idx int) {
					defer wg.Done()
					scope := fmt.Sprintf("tournament:%d", idx)
					sl.Lock(scope)
					defer sl.Unlock(scope)
					balances[idx]++
				}(i)
			}
		}
		wg.Wait()

		for i, b := range balances {
			if b != int64(opsPerScope) {
				t.Fatalf("scope %d: expected %d operations, got %d", i, opsPerScope, b)
			}
		}
	})
}

func TestTryLock(t *testing.T) {
	sl := NewScopeLock()

	if !sl.TryLock("registry:create") {
		t.Fatal("first TryLock should succeed")
	}
	if sl.TryLock("registry:create") {
		t.Fatal("second TryLock on held scope should fail")
	}
	sl.Unlock("registry:create")

	if !sl.TryLock("registry:create") {
		t.Fatal("TryLock after Unlock should succeed")
	}
	sl.Unlock("registry:create")
}
