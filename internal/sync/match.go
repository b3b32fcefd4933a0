package sync

import "github.com/newrelic/stripe-env-sync/internal/provider"

// liveIndex maps a test_id annotation to the live record carrying it.
type liveIndex map[string]*provider.Record

func newLiveIndex(liveSet []provider.Record) liveIndex {
	index := make(liveIndex, len(liveSet))

	for n := range liveSet {
		testID := liveSet[n].TestID()
		if testID == "" {
			continue
		}

		// first seen wins, same as a front-to-back scan
		if _, ok := index[testID]; ok {
			continue
		}

		index[testID] = &liveSet[n]
	}

	return index
}

func (index liveIndex) lookup(testID string) *provider.Record {
	if testID == "" {
		return nil
	}

	return index[testID]
}

func (index liveIndex) findLiveCounterpart(
	testRecord *provider.Record,
) *provider.Record {
	return index.lookup(testRecord.ID)
}
