// Copyright 2025 Dolthub, Inc.
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

package similartext

import (
	"fmt"
	"sort"
	"strings"
)

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// levenshtein returns the edit distance between a and b.
func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(min(prev[j]+1, cur[j-1]+1), prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// Closest returns the names at the smallest edit distance from src, in the
// order they are given. Names too far from src are not returned.
func Closest(names []string, src string) []string {
	if len(src) == 0 {
		return nil
	}

	minDistance := -1
	matches := make(map[int][]string)
	for _, name := range names {
		dist := levenshtein([]rune(strings.ToLower(name)), []rune(strings.ToLower(src)))
		if minDistance == -1 || dist < minDistance {
			minDistance = dist
		}
		matches[dist] = append(matches[dist], name)
	}

	if minDistance == -1 || minDistance > len(src)/2 {
		return nil
	}
	return matches[minDistance]
}

// Find returns a string with suggestions for name(s) in `names`
// similar to the string `src` until a max distance of `maxDistance`.
func Find(names []string, src string) string {
	similar := Closest(names, src)
	if len(similar) == 0 {
		return ""
	}
	return fmt.Sprintf(", maybe you mean %s?", strings.Join(similar, " or "))
}

// FindFromMap does the same as Find but taking a map instead
// of a string array as first argument.
func FindFromMap(names interface{}, src string) string {
	var keys []string
	switch m := names.(type) {
	case map[string]int:
		for k := range m {
			keys = append(keys, k)
		}
	case map[string]struct{}:
		for k := range m {
			keys = append(keys, k)
		}
	case map[string]bool:
		for k := range m {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return Find(keys, src)
}
