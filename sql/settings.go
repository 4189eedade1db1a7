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

package sql

import (
	"io"
	"io/ioutil"
	"reflect"
	"sort"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v2"
)

// Settings are the toggles that change how queries are analyzed.
type Settings struct {
	EnablePositionalArguments                bool   `yaml:"enable_positional_arguments"`
	PreferColumnNameToAlias                  bool   `yaml:"prefer_column_name_to_alias"`
	EnableGlobalWithStatement                bool   `yaml:"enable_global_with_statement"`
	EnableScopesForWithStatement             bool   `yaml:"enable_scopes_for_with_statement"`
	AllowExperimentalCorrelatedSubqueries    bool   `yaml:"allow_experimental_correlated_subqueries"`
	AsteriskIncludeAliasColumns              bool   `yaml:"asterisk_include_alias_columns"`
	AsteriskIncludeMaterializedColumns       bool   `yaml:"asterisk_include_materialized_columns"`
	JoinUseNulls                             bool   `yaml:"join_use_nulls"`
	GroupByUseNulls                          bool   `yaml:"group_by_use_nulls"`
	SingleJoinPreferLeftTable                bool   `yaml:"single_join_prefer_left_table"`
	JoinedSubqueryRequiresAlias              bool   `yaml:"joined_subquery_requires_alias"`
	TransformNullIn                          bool   `yaml:"transform_null_in"`
	AggregateFunctionsNullForEmpty           bool   `yaml:"aggregate_functions_null_for_empty"`
	CountDistinctImplementation              string `yaml:"count_distinct_implementation"`
	EnableOrderByAll                         bool   `yaml:"enable_order_by_all"`
	FormatDisplaySecretsInShowAndSelect      bool   `yaml:"format_display_secrets_in_show_and_select"`
	EnableScalarSubqueryOptimization         bool   `yaml:"enable_scalar_subquery_optimization"`
	OnlyAnalyze                              bool   `yaml:"only_analyze"`
	CompatibilityJoinUsingTopLevelIdentifier bool   `yaml:"analyzer_compatibility_join_using_top_level_identifier"`
	MaxSubqueryDepth                         uint64 `yaml:"max_subquery_depth"`
	MaxExpandedASTElements                   uint64 `yaml:"max_expanded_ast_elements"`
	MaxAnalyzerRecursionDepth                uint64 `yaml:"max_analyzer_recursion_depth"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() *Settings {
	return &Settings{
		EnablePositionalArguments:        true,
		EnableGlobalWithStatement:        true,
		EnableScopesForWithStatement:     true,
		SingleJoinPreferLeftTable:        true,
		JoinedSubqueryRequiresAlias:      true,
		CountDistinctImplementation:      "uniqExact",
		EnableOrderByAll:                 true,
		EnableScalarSubqueryOptimization: true,
		MaxSubqueryDepth:                 100,
		MaxExpandedASTElements:           500000,
		MaxAnalyzerRecursionDepth:        1000,
	}
}

// LoadSettings reads YAML encoded settings on top of the defaults.
func LoadSettings(r io.Reader) (*Settings, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	s := DefaultSettings()
	if err := yaml.UnmarshalStrict(data, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Clone returns a copy of the settings.
func (s *Settings) Clone() *Settings {
	c := *s
	return &c
}

// Names returns the names of all the settings, sorted.
func (s *Settings) Names() []string {
	t := reflect.TypeOf(*s)
	names := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		names = append(names, t.Field(i).Tag.Get("yaml"))
	}
	sort.Strings(names)
	return names
}

// Get returns the value of the setting with the given name.
func (s *Settings) Get(name string) (interface{}, error) {
	f, ok := s.field(name)
	if !ok {
		return nil, ErrUnknownSetting.New(name)
	}
	return f.Interface(), nil
}

// Set changes the setting with the given name. The value is converted to the
// type of the setting, so "1", 1 and true are all valid for a boolean.
func (s *Settings) Set(name string, value interface{}) error {
	f, ok := s.field(name)
	if !ok {
		return ErrUnknownSetting.New(name)
	}

	switch f.Kind() {
	case reflect.Bool:
		var (
			b   bool
			err error
		)
		switch v := value.(type) {
		case string:
			switch strings.ToLower(v) {
			case "on", "yes":
				v = "true"
			case "off", "no":
				v = "false"
			}
			b, err = cast.ToBoolE(v)
		case int64, uint64, int32, uint32:
			b = cast.ToInt64(v) != 0
		default:
			b, err = cast.ToBoolE(v)
		}
		if err != nil {
			return ErrInvalidSettingValue.New(value, name, err.Error())
		}
		f.SetBool(b)
	case reflect.Uint64:
		n, err := cast.ToUint64E(value)
		if err != nil {
			return ErrInvalidSettingValue.New(value, name, err.Error())
		}
		f.SetUint(n)
	case reflect.String:
		str, err := cast.ToStringE(value)
		if err != nil {
			return ErrInvalidSettingValue.New(value, name, err.Error())
		}
		f.SetString(str)
	}
	return nil
}

func (s *Settings) field(name string) (reflect.Value, bool) {
	v := reflect.ValueOf(s).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).Tag.Get("yaml") == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}
