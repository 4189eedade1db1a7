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

package sql_test

import (
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dolthub/go-query-analyzer/sql"
)

func TestSettingsSet(t *testing.T) {
	require := require.New(t)
	s := sql.DefaultSettings()

	require.True(s.EnablePositionalArguments)
	require.NoError(s.Set("enable_positional_arguments", "0"))
	require.False(s.EnablePositionalArguments)
	require.NoError(s.Set("enable_positional_arguments", int64(1)))
	require.True(s.EnablePositionalArguments)
	require.NoError(s.Set("join_use_nulls", "on"))
	require.True(s.JoinUseNulls)

	require.NoError(s.Set("max_subquery_depth", "3"))
	require.Equal(uint64(3), s.MaxSubqueryDepth)

	require.NoError(s.Set("count_distinct_implementation", "uniq"))
	require.Equal("uniq", s.CountDistinctImplementation)

	err := s.Set("no_such_setting", 1)
	require.Error(err)
	require.True(sql.ErrUnknownSetting.Is(err))

	err = s.Set("join_use_nulls", "maybe")
	require.Error(err)
	require.True(sql.ErrInvalidSettingValue.Is(err))

	v, err := s.Get("max_subquery_depth")
	require.NoError(err)
	require.Equal(uint64(3), v)
	require.Contains(s.Names(), "prefer_column_name_to_alias")
}

func TestLoadSettings(t *testing.T) {
	require := require.New(t)

	s, err := sql.LoadSettings(strings.NewReader(`
prefer_column_name_to_alias: true
max_subquery_depth: 5
`))
	require.NoError(err)
	require.True(s.PreferColumnNameToAlias)
	require.Equal(uint64(5), s.MaxSubqueryDepth)
	require.True(s.EnableOrderByAll)

	_, err = sql.LoadSettings(strings.NewReader("unknown_setting: 1\n"))
	require.Error(err)
}

func TestContextSettings(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()
	require.Equal("default", ctx.GetCurrentDatabase())
	require.True(ctx.Settings().EnableScalarSubqueryOptimization)

	override := sql.DefaultSettings()
	override.OnlyAnalyze = true
	require.True(ctx.WithSettings(override).Settings().OnlyAnalyze)
	require.False(ctx.Settings().OnlyAnalyze)
}

func TestScalarRegistry(t *testing.T) {
	require := require.New(t)
	r := sql.NewScalarRegistry()

	var calls int32
	compute := func() (sql.Scalar, error) {
		atomic.AddInt32(&calls, 1)
		return sql.Scalar{Type: sql.UInt8, Value: uint64(1)}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, _, err := r.GetOrCompute("k", compute)
			require.NoError(err)
			require.Equal(uint64(1), s.Value)
		}()
	}
	wg.Wait()

	require.Equal(int32(1), atomic.LoadInt32(&calls))
	require.Equal(1, r.Len())

	_, hit, err := r.GetOrCompute("k", compute)
	require.NoError(err)
	require.True(hit)

	s, ok := r.Get("k")
	require.True(ok)
	require.Equal(sql.UInt8, s.Type)
}
