package dissemination

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestE2PartnersAndSenseAfterTwoArrivesNthr8(t *testing.T) {
	const nthr = 8
	b := New(nthr)

	size, err := Size(nthr)
	assert.NoError(t, err)
	assert.Equal(t, uint32(3), size)

	assert.Same(t, &b.flags[1][0][0].tflag, b.flags[0][0][0].pflag)
	assert.Same(t, &b.flags[2][0][1].tflag, b.flags[0][0][1].pflag)
	assert.Same(t, &b.flags[4][0][2].tflag, b.flags[0][0][2].pflag)

	var wg sync.WaitGroup
	states := make([]*State, nthr)
	for i := uint32(0); i < nthr; i++ {
		states[i] = NewState(i)
	}

	runTwoArrives := func(id uint32) {
		defer wg.Done()
		for r := 0; r < 2; r++ {
			b.Arrive(states[id])
		}
	}
	wg.Add(nthr)
	for i := uint32(0); i < nthr; i++ {
		go runTwoArrives(i)
	}
	wg.Wait()

	assert.Equal(t, uint32(0), states[0].parity)
	assert.Equal(t, uint32(0), states[0].sense)
}

func TestRoundCountMatchesLog2CeilForPowerOfTwo(t *testing.T) {
	for _, nthr := range []uint32{1, 2, 4, 8, 16, 64} {
		size, err := Size(nthr)
		assert.NoError(t, err)
		b := New(nthr)
		assert.Equal(t, size, b.size)
	}
}

func TestMutualRendezvousAndPublication(t *testing.T) {
	for _, nthr := range []uint32{1, 2, 3, 4, 7, 8, 15, 16, 64} {
		const rounds = 300
		b := New(nthr)

		slots := make([][]int, rounds)
		for r := range slots {
			slots[r] = make([]int, nthr)
		}
		var mu sync.Mutex
		failures := 0

		var wg sync.WaitGroup
		wg.Add(int(nthr))
		for i := uint32(0); i < nthr; i++ {
			go func(id uint32) {
				defer wg.Done()
				st := NewState(id)
				for r := 0; r < rounds; r++ {
					slots[r][id] = int(id) + 1
					b.Arrive(st)
					for j := uint32(0); j < nthr; j++ {
						if slots[r][j] != int(j)+1 {
							mu.Lock()
							failures++
							mu.Unlock()
						}
					}
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, 0, failures, "nthr=%d", nthr)
	}
}

func TestSenseTogglesEveryTwoRounds(t *testing.T) {
	const nthr = 4
	b := New(nthr)
	var wg sync.WaitGroup

	st0 := NewState(0)
	others := make([]*State, nthr-1)
	for i := range others {
		others[i] = NewState(uint32(i + 1))
	}

	prevSense := st0.sense
	for round := 0; round < 20; round++ {
		wg.Add(nthr - 1)
		for _, other := range others {
			go func(s *State) {
				defer wg.Done()
				b.Arrive(s)
			}(other)
		}
		b.Arrive(st0)
		wg.Wait()

		if round%2 == 1 {
			assert.NotEqual(t, prevSense, st0.sense)
			prevSense = st0.sense
		} else {
			assert.Equal(t, prevSense, st0.sense)
		}
	}
}

func TestStressSumAcrossRounds(t *testing.T) {
	const nthr = 64
	const rounds = 2000
	b := New(nthr)

	shared := make([]int, nthr)
	var wg sync.WaitGroup
	wg.Add(nthr)
	for i := uint32(0); i < nthr; i++ {
		go func(id uint32) {
			defer wg.Done()
			st := NewState(id)
			for r := 0; r < rounds; r++ {
				shared[id]++
				b.Arrive(st)
			}
		}(i)
	}
	wg.Wait()

	sum := 0
	for _, v := range shared {
		sum += v
	}
	assert.Equal(t, nthr*rounds, sum)
}
