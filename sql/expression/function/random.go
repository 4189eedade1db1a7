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

package function

import (
	"math/rand"

	uuid "github.com/satori/go.uuid"

	"github.com/dolthub/go-query-analyzer/sql"
)

func newRand() sql.Function {
	return &builtin{
		name:             "rand",
		minArgs:          0,
		maxArgs:          1,
		nonDeterministic: true,
		returnType:       fixedType(sql.UInt32),
		eval: func(_ *sql.Context, _ []interface{}) (interface{}, error) {
			return uint64(rand.Uint32()), nil
		},
	}
}

func newGenerateUUIDv4() sql.Function {
	return &builtin{
		name:             "generateUUIDv4",
		minArgs:          0,
		maxArgs:          1,
		nonDeterministic: true,
		returnType:       fixedType(sql.UUID),
		eval: func(_ *sql.Context, _ []interface{}) (interface{}, error) {
			return uuid.NewV4().String(), nil
		},
	}
}

func newNow() sql.Function {
	return &builtin{
		name:             "now",
		minArgs:          0,
		maxArgs:          1,
		nonDeterministic: true,
		returnType:       fixedType(sql.DateTime),
		eval: func(ctx *sql.Context, _ []interface{}) (interface{}, error) {
			return ctx.QueryTime(), nil
		},
	}
}
