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

// IntegerRangeMessageSpace is the message space of all integers in
// [min, max], ranked as v - min.
type IntegerRangeMessageSpace struct {
	min, max *big.Int
}

// NewIntegerRangeMessageSpace constructs the range [min, max]. min may
// be negative; min must not exceed max.
func NewIntegerRangeMessageSpace(min, max *big.Int) (*IntegerRangeMessageSpace, error) {
	if min.Cmp(max) > 0 {
		return nil, fmt.Errorf("messagespace: min (%s) must not exceed max (%s)", min, max)
	}
	return &IntegerRangeMessageSpace{min: new(big.Int).Set(min), max: new(big.Int).Set(max)}, nil
}

// Min returns the lower bound of the range.
func (s *IntegerRangeMessageSpace) Min() *big.Int { return new(big.Int).Set(s.min) }

// Max returns the upper bound of the range.
func (s *IntegerRangeMessageSpace) Max() *big.Int { return new(big.Int).Set(s.max) }

// Order returns max - min + 1.
func (s *IntegerRangeMessageSpace) Order() *big.Int {
	o := new(big.Int).Sub(s.max, s.min)
	return o.Add(o, big.NewInt(1))
}

// MaxValue returns Order() - 1.
func (s *IntegerRangeMessageSpace) MaxValue() *big.Int {
	o := s.Order()
	return o.Sub(o, big.NewInt(1))
}

// Rank returns v - min, or OutsideMessageSpaceError if v is not in [min, max].
func (s *IntegerRangeMessageSpace) Rank(v *big.Int) (*big.Int, error) {
	if v.Cmp(s.min) < 0 || v.Cmp(s.max) > 0 {
		return nil, &OutsideMessageSpaceError{Value: v}
	}
	return new(big.Int).Sub(v, s.min), nil
}

// Unrank returns min + r, or OutsideMessageSpaceError if r is out of range.
func (s *IntegerRangeMessageSpace) Unrank(r *big.Int) (*big.Int, error) {
	if r.Sign() < 0 || r.Cmp(s.MaxValue()) > 0 {
		return nil, &OutsideMessageSpaceError{Value: r}
	}
	return new(big.Int).Add(r, s.min), nil
}

// IntegerMessageSpace is an IntegerRangeMessageSpace with min fixed at 0.
type IntegerMessageSpace struct {
	*IntegerRangeMessageSpace
}

// NewIntegerMessageSpace constructs the range [0, max]. max must not be negative.
func NewIntegerMessageSpace(max *big.Int) (*IntegerMessageSpace, error) {
	if max.Sign() < 0 {
		return nil, fmt.Errorf("messagespace: max must not be negative: %s", max)
	}
	rs, err := NewIntegerRangeMessageSpace(big.NewInt(0), max)
	if err != nil {
		return nil, err
	}
	return &IntegerMessageSpace{rs}, nil
}
