package entity

import (
	"fmt"
	"math/rand/v2"
)

// ChannelIndex — фиксированный упорядоченный набор каналов для понижения размерности.
// Выбирается один раз и используется одинаково при обучении и при проверке.
type ChannelIndex struct {
	Seed    uint64 // зерно, из которого получен набор
	Total   int    // полное число каналов в объёме эмбеддингов
	Indices []int
}

// NewChannelIndex выбирает d различных каналов из [0, total) детерминированно по seed.
func NewChannelIndex(total, d int, seed uint64) (*ChannelIndex, error) {
	if total <= 0 {
		return nil, fmt.Errorf("total channels must be positive, got %d", total)
	}
	if d <= 0 || d > total {
		return nil, fmt.Errorf("subsample size %d out of range (0, %d]", d, total)
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	perm := rng.Perm(total)
	indices := make([]int, d)
	copy(indices, perm[:d])
	return &ChannelIndex{Seed: seed, Total: total, Indices: indices}, nil
}

// Len возвращает размер набора (d). Пустой индекс означает «без выборки».
func (ci *ChannelIndex) Len() int {
	if ci == nil {
		return 0
	}
	return len(ci.Indices)
}

// Validate проверяет, что индексы различны и лежат в [0, Total).
func (ci *ChannelIndex) Validate() error {
	seen := make(map[int]struct{}, len(ci.Indices))
	for _, idx := range ci.Indices {
		if idx < 0 || idx >= ci.Total {
			return fmt.Errorf("channel index %d out of range [0, %d)", idx, ci.Total)
		}
		if _, dup := seen[idx]; dup {
			return fmt.Errorf("duplicate channel index %d", idx)
		}
		seen[idx] = struct{}{}
	}
	return nil
}

// Equal сравнивает два индекса поэлементно.
func (ci *ChannelIndex) Equal(other *ChannelIndex) bool {
	if ci.Len() != other.Len() {
		return false
	}
	if ci.Len() == 0 {
		return true
	}
	if ci.Total != other.Total || ci.Seed != other.Seed {
		return false
	}
	for i := range ci.Indices {
		if ci.Indices[i] != other.Indices[i] {
			return false
		}
	}
	return true
}
