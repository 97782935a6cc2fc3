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

// Package messagespace bijects structured domains — integer ranges,
// enumerations, and DFA-recognized string languages — onto the
// contiguous integer range [0, order) so that an integer cipher can be
// lifted to operate over any of them.
package messagespace

import (
	"fmt"
	"math/big"
)

// MessageSpace bijects a finite set of values of type M onto
// [0, Order()). Implementations are immutable once constructed and
// safe to share across goroutines.
type MessageSpace[M any] interface {
	// Order returns the number of elements in the message space.
	Order() *big.Int
	// MaxValue returns the largest valid rank, Order()-1.
	MaxValue() *big.Int
	// Rank returns the integer position of v within the space, or an
	// OutsideMessageSpaceError if v is not a member.
	Rank(v M) (*big.Int, error)
	// Unrank returns the element at integer position r, or an
	// OutsideMessageSpaceError if r is not in [0, Order()).
	Unrank(r *big.Int) (M, error)
}

// OutsideMessageSpaceError reports that a value was not a member of a
// message space's domain, either as an input to Rank or as an
// out-of-range rank given to Unrank. Callers that need to distinguish
// this condition from a plain construction error should use errors.As.
type OutsideMessageSpaceError struct {
	Value interface{}
}

func (e *OutsideMessageSpaceError) Error() string {
	return fmt.Sprintf("messagespace: %v is outside the message space", e.Value)
}
