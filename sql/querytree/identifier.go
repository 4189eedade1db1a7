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

package querytree

import "strings"

// Identifier is an immutable dotted name like db.table.column.
type Identifier struct {
	parts    []string
	fullName string
}

// NewIdentifier creates an identifier from its parts.
func NewIdentifier(parts ...string) Identifier {
	p := make([]string, len(parts))
	copy(p, parts)
	return Identifier{parts: p, fullName: strings.Join(p, ".")}
}

// ParseIdentifier splits a dotted name into an identifier.
func ParseIdentifier(name string) Identifier {
	if name == "" {
		return Identifier{}
	}
	return NewIdentifier(strings.Split(name, ".")...)
}

// Parts returns a copy of the identifier parts.
func (i Identifier) Parts() []string {
	p := make([]string, len(i.parts))
	copy(p, i.parts)
	return p
}

// Size returns the number of parts.
func (i Identifier) Size() int { return len(i.parts) }

// At returns the part at the given position.
func (i Identifier) At(idx int) string { return i.parts[idx] }

// FullName returns the dotted name.
func (i Identifier) FullName() string { return i.fullName }

func (i Identifier) String() string { return i.fullName }

// IsEmpty returns whether the identifier has no parts.
func (i Identifier) IsEmpty() bool { return len(i.parts) == 0 }

// IsShort returns whether the identifier has a single part.
func (i Identifier) IsShort() bool { return len(i.parts) == 1 }

// IsCompound returns whether the identifier has more than one part.
func (i Identifier) IsCompound() bool { return len(i.parts) > 1 }

// Front returns the first part.
func (i Identifier) Front() string { return i.parts[0] }

// Back returns the last part.
func (i Identifier) Back() string { return i.parts[len(i.parts)-1] }

// PopFirst returns the identifier without its first n parts.
func (i Identifier) PopFirst(n int) Identifier {
	if n >= len(i.parts) {
		return Identifier{}
	}
	return NewIdentifier(i.parts[n:]...)
}

// PopLast returns the identifier without its last n parts.
func (i Identifier) PopLast(n int) Identifier {
	if n >= len(i.parts) {
		return Identifier{}
	}
	return NewIdentifier(i.parts[:len(i.parts)-n]...)
}

// StartsWith returns whether the first parts of the identifier are the parts
// of the given dotted prefix.
func (i Identifier) StartsWith(prefix string) bool {
	p := ParseIdentifier(prefix)
	if p.Size() > i.Size() {
		return false
	}
	for idx, part := range p.parts {
		if i.parts[idx] != part {
			return false
		}
	}
	return true
}

// Equals returns whether both identifiers have the same parts.
func (i Identifier) Equals(o Identifier) bool {
	return i.fullName == o.fullName && len(i.parts) == len(o.parts)
}
