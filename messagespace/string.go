/*

SPDX-Copyright: Copyright (c) Capital One Services, LLC
SPDX-License-Identifier: Apache-2.0
Copyright 2017 Capital One Services, LLC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and limitations under the License.

*/

package messagespace

import (
	"fmt"
	"math/big"
)

// DefaultMaxWordLength bounds the word length StringMessageSpace will
// rank. Words of greater length, even if accepted by the automaton,
// are outside the message space.
const DefaultMaxWordLength = 128

// StringMessageSpace ranks the words of a regular language, recognized
// by a deterministic finite automaton, by length then lexicographic
// position within each length (using the automaton's own alphabet
// ordering). table[length][stateIndex] holds the number of words of
// exactly that length accepted starting from that state; table[0] is
// seeded from the accepting predicate and is never counted toward
// Order, since Order sums lengths 1..maxLen only.
type StringMessageSpace struct {
	automaton  Automaton
	alphabet   []rune
	start      int
	maxLen     int
	states     []int
	stateIndex map[int]int
	table      [][]*big.Int
	order      *big.Int
}

// NewStringMessageSpace builds the DP table for a and returns the
// resulting message space. maxWordLength <= 0 selects
// DefaultMaxWordLength. Construction rejects a nil automaton or one
// whose language, truncated to maxWordLength, is empty (this also
// rejects the automaton that accepts only the empty word, since Order
// never counts length 0).
func NewStringMessageSpace(a Automaton, maxWordLength int) (*StringMessageSpace, error) {
	if a == nil {
		return nil, fmt.Errorf("messagespace: automaton must not be nil")
	}
	if maxWordLength <= 0 {
		maxWordLength = DefaultMaxWordLength
	}
	states := a.States()
	if len(states) == 0 {
		return nil, fmt.Errorf("messagespace: automaton has no states")
	}

	sms := &StringMessageSpace{
		automaton: a,
		alphabet:  a.Alphabet(),
		start:     a.InitialState(),
		maxLen:    maxWordLength,
		states:    states,
	}
	sms.stateIndex = make(map[int]int, len(states))
	for i, s := range states {
		sms.stateIndex[s] = i
	}
	sms.buildTable()

	if _, ok := sms.stateIndex[sms.start]; !ok {
		return nil, fmt.Errorf("messagespace: automaton's initial state is not among its own States()")
	}
	if sms.Order().Sign() == 0 {
		return nil, fmt.Errorf("messagespace: automaton's language (up to length %d) is empty or contains only the empty word", maxWordLength)
	}
	return sms, nil
}

func (sms *StringMessageSpace) buildTable() {
	row0 := make([]*big.Int, len(sms.states))
	for i, s := range sms.states {
		if sms.automaton.IsAccepting(s) {
			row0[i] = big.NewInt(1)
		} else {
			row0[i] = big.NewInt(0)
		}
	}
	table := [][]*big.Int{row0}

	for length := 1; length <= sms.maxLen; length++ {
		prev := table[length-1]
		row := make([]*big.Int, len(sms.states))
		allZero := true
		for i, s := range sms.states {
			sum := big.NewInt(0)
			for _, c := range sms.alphabet {
				next, ok := sms.automaton.Step(s, c)
				if !ok {
					continue
				}
				ni, ok := sms.stateIndex[next]
				if !ok {
					continue
				}
				sum.Add(sum, prev[ni])
			}
			row[i] = sum
			if sum.Sign() != 0 {
				allZero = false
			}
		}
		table = append(table, row)
		if allZero {
			break
		}
	}
	sms.table = table
}

// IsFinite reports whether the table build terminated because it found
// an all-zero row before reaching maxLen (no word longer than that can
// be accepted), as opposed to being truncated by the maxLen cap itself.
func (sms *StringMessageSpace) IsFinite() bool {
	return len(sms.table)-1 < sms.maxLen
}

// Order returns the number of words, of length 1..maxLen, accepted by
// the automaton.
func (sms *StringMessageSpace) Order() *big.Int {
	if sms.order != nil {
		return new(big.Int).Set(sms.order)
	}
	order := big.NewInt(0)
	s0 := sms.stateIndex[sms.start]
	for length := 1; length < len(sms.table); length++ {
		order.Add(order, sms.table[length][s0])
	}
	sms.order = order
	return new(big.Int).Set(order)
}

// MaxValue returns Order() - 1.
func (sms *StringMessageSpace) MaxValue() *big.Int {
	return new(big.Int).Sub(sms.Order(), big.NewInt(1))
}

func (sms *StringMessageSpace) slice(length int) *big.Int {
	if length < 0 || length >= len(sms.table) {
		return big.NewInt(0)
	}
	return sms.table[length][sms.stateIndex[sms.start]]
}

// Rank implements the §4.3 ranking algorithm: reject words the
// automaton does not accept or whose length exceeds maxLen, then add
// the count of all strictly-shorter accepted words to the count of
// accepted words of the same length that precede w lexicographically.
func (sms *StringMessageSpace) Rank(w string) (*big.Int, error) {
	runes := []rune(w)
	n := len(runes)
	if n == 0 || n > sms.maxLen {
		return nil, &OutsideMessageSpaceError{Value: w}
	}

	state := sms.start
	for _, c := range runes {
		next, ok := sms.automaton.Step(state, c)
		if !ok {
			return nil, &OutsideMessageSpaceError{Value: w}
		}
		state = next
	}
	if !sms.automaton.IsAccepting(state) {
		return nil, &OutsideMessageSpaceError{Value: w}
	}

	r := big.NewInt(0)
	for length := 1; length < n; length++ {
		r.Add(r, sms.slice(length))
	}

	state = sms.start
	for i, c := range runes {
		cPos := indexOfRune(sms.alphabet, c)
		for pos := 0; pos < cPos; pos++ {
			sigma := sms.alphabet[pos]
			next, ok := sms.automaton.Step(state, sigma)
			if !ok {
				continue
			}
			ni, ok := sms.stateIndex[next]
			if !ok {
				continue
			}
			r.Add(r, sms.sliceByIndex(n-(i+1), ni))
		}
		next, _ := sms.automaton.Step(state, c)
		state = next
	}
	return r, nil
}

func (sms *StringMessageSpace) sliceByIndex(length, stateIdx int) *big.Int {
	if length < 0 || length >= len(sms.table) {
		return big.NewInt(0)
	}
	return sms.table[length][stateIdx]
}

// Unrank implements the §4.3 unranking algorithm: peel preceding
// length-slices to find the target length, then greedily select each
// character by comparing the remaining rank against subtree sizes.
func (sms *StringMessageSpace) Unrank(r *big.Int) (string, error) {
	if r.Sign() < 0 {
		return "", &OutsideMessageSpaceError{Value: r}
	}
	remaining := new(big.Int).Set(r)

	n := 0
	for length := 1; length < len(sms.table); length++ {
		s := sms.slice(length)
		if remaining.Cmp(s) < 0 {
			n = length
			break
		}
		remaining.Sub(remaining, s)
	}
	if n == 0 {
		return "", &OutsideMessageSpaceError{Value: r}
	}

	runes := make([]rune, 0, n)
	state := sms.start
	for i := 0; i < n; i++ {
		remLen := n - (i + 1)
		found := false
		for _, sigma := range sms.alphabet {
			next, ok := sms.automaton.Step(state, sigma)
			if !ok {
				continue
			}
			ni, ok := sms.stateIndex[next]
			if !ok {
				continue
			}
			step := sms.sliceByIndex(remLen, ni)
			if remaining.Cmp(step) >= 0 {
				remaining.Sub(remaining, step)
				continue
			}
			runes = append(runes, sigma)
			state = next
			found = true
			break
		}
		if !found {
			return "", &OutsideMessageSpaceError{Value: r}
		}
	}
	return string(runes), nil
}

func indexOfRune(alphabet []rune, c rune) int {
	for i, a := range alphabet {
		if a == c {
			return i
		}
	}
	return -1
}
