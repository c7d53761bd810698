// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package safemath

import (
	"fmt"
	"math"
	"time"
)

// Uint64 converts signed integers to uint64 while guarding against negatives
func Uint64[T ~int | ~int32 | ~int64](v T) (uint64, error) {
	if v < 0 {
		return 0, fmt.Errorf("value %d out of uint64 range", v)
	}
	return uint64(v), nil
}

// UnixNanos returns t as nanoseconds since the Unix epoch. Instants before
// the epoch are rejected since they cannot be ordered as unsigned keys.
func UnixNanos(t time.Time) (uint64, error) {
	return Uint64(t.UnixNano())
}

// TimeFromUnixNanos is the inverse of UnixNanos
func TimeFromUnixNanos(nanos uint64) (time.Time, error) {
	if nanos > math.MaxInt64 {
		return time.Time{}, fmt.Errorf("value %d out of int64 range", nanos)
	}
	return time.Unix(0, int64(nanos)).UTC(), nil
}
