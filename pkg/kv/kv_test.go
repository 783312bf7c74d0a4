package kv

import (
	"testing"
)

func newStores(t *testing.T) map[string]Store {
	t.Helper()
	bolt, err := NewBoltStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewBoltStore() error = %v", err)
	}
	t.Cleanup(func() { bolt.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"bbolt":  bolt,
	}
}

// TestStoreGetRemoveRoundTrip exercises §8's round-trip property:
// store_config(k,v); get_config(k) = Some(v); remove_config(k); get_config(k) = None.
func TestStoreGetRemoveRoundTrip(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.StoreConfig("x", []byte("1")); err != nil {
				t.Fatalf("StoreConfig() error = %v", err)
			}
			v, ok, err := store.GetConfig("x")
			if err != nil || !ok || string(v) != "1" {
				t.Fatalf("GetConfig() = (%q, %v, %v), want (1, true, nil)", v, ok, err)
			}

			if err := store.RemoveConfig("x"); err != nil {
				t.Fatalf("RemoveConfig() error = %v", err)
			}
			_, ok, err = store.GetConfig("x")
			if err != nil || ok {
				t.Fatalf("GetConfig() after remove = (ok=%v, err=%v), want (false, nil)", ok, err)
			}
		})
	}
}

// TestTransactionConditionalSet exercises §8 scenario 5 literally.
func TestTransactionConditionalSet(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.StoreConfig("x", []byte("1")); err != nil {
				t.Fatalf("StoreConfig() error = %v", err)
			}

			err := store.Transaction([]Op{
				{Kind: OpConditionalSet, Key: "x", Value: []byte("2"), ExpectedPresent: true, ExpectedPrior: []byte("1")},
				{Kind: OpSet, Key: "y", Value: []byte("3")},
			})
			if err != nil {
				t.Fatalf("Transaction() error = %v", err)
			}

			all, err := store.GetAllConfig()
			if err != nil {
				t.Fatalf("GetAllConfig() error = %v", err)
			}
			if string(all["x"]) != "2" || string(all["y"]) != "3" {
				t.Fatalf("GetAllConfig() = %v, want x=2 y=3", mapStrings(all))
			}

			err = store.Transaction([]Op{
				{Kind: OpConditionalSet, Key: "x", Value: []byte("9"), ExpectedPresent: true, ExpectedPrior: []byte("1")},
			})
			if err != ErrInvalidState {
				t.Fatalf("Transaction() error = %v, want ErrInvalidState", err)
			}

			all, err = store.GetAllConfig()
			if err != nil {
				t.Fatalf("GetAllConfig() error = %v", err)
			}
			if string(all["x"]) != "2" || string(all["y"]) != "3" {
				t.Fatalf("state mutated after rejected transaction: %v", mapStrings(all))
			}
		})
	}
}

func TestWatchConfigReceivesChange(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ch, cancel, err := store.WatchConfig("k")
			if err != nil {
				t.Fatalf("WatchConfig() error = %v", err)
			}
			defer cancel()

			if err := store.StoreConfig("k", []byte("v1")); err != nil {
				t.Fatalf("StoreConfig() error = %v", err)
			}

			select {
			case change := <-ch:
				if string(change.New) != "v1" {
					t.Errorf("ConfigChange.New = %q, want v1", change.New)
				}
			default:
				t.Fatal("expected a ConfigChange on the watch channel")
			}
		})
	}
}

func mapStrings(m map[string][]byte) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = string(v)
	}
	return out
}
