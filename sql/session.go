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
	"context"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"
)

// Session holds the state shared by all the queries of a client.
type Session struct {
	mu        sync.RWMutex
	id        uint32
	currentDB string
	settings  *Settings
	logger    *logrus.Entry
}

// NewSession creates a session with the given id and default settings.
func NewSession(id uint32) *Session {
	return &Session{
		id:        id,
		currentDB: "default",
		settings:  DefaultSettings(),
	}
}

// ID returns the session id.
func (s *Session) ID() uint32 { return s.id }

// GetCurrentDatabase returns the database used for unqualified tables.
func (s *Session) GetCurrentDatabase() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentDB
}

// SetCurrentDatabase sets the database used for unqualified tables.
func (s *Session) SetCurrentDatabase(db string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentDB = db
}

// Settings returns the session settings.
func (s *Session) Settings() *Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// SetSettings replaces the session settings.
func (s *Session) SetSettings(settings *Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

// GetLogger returns the session logger.
func (s *Session) GetLogger() *logrus.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.logger == nil {
		s.logger = logrus.WithField(ConnectionIDLogKey, s.id)
	}
	return s.logger
}

// SetLogger sets the session logger.
func (s *Session) SetLogger(logger *logrus.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
}

// ConnectionIDLogKey is the logger field of the session id.
const ConnectionIDLogKey = "connectionID"

// Context of the query analysis.
type Context struct {
	context.Context
	*Session
	query        string
	queryTime    time.Time
	tracer       opentracing.Tracer
	queryContext *ScalarRegistry
	viewSource   string
	settings     *Settings
}

// ContextOption is a function to configure the context.
type ContextOption func(*Context)

// WithSession adds the given session to the context.
func WithSession(s *Session) ContextOption {
	return func(ctx *Context) {
		ctx.Session = s
	}
}

// WithTracer adds the given tracer to the context.
func WithTracer(t opentracing.Tracer) ContextOption {
	return func(ctx *Context) {
		ctx.tracer = t
	}
}

// WithQuery adds the given query to the context.
func WithQuery(q string) ContextOption {
	return func(ctx *Context) {
		ctx.query = q
	}
}

// WithSettings overrides the session settings for this query only.
func WithSettings(s *Settings) ContextOption {
	return func(ctx *Context) {
		ctx.settings = s
	}
}

// WithQueryContext sets the registry of scalar subquery results shared by
// the queries of the same query context.
func WithQueryContext(r *ScalarRegistry) ContextOption {
	return func(ctx *Context) {
		ctx.queryContext = r
	}
}

// WithViewSource marks the query as the source query of the given view
// table, named database.table. Scalar subqueries reading that table are not
// shared through the query context.
func WithViewSource(table string) ContextOption {
	return func(ctx *Context) {
		ctx.viewSource = table
	}
}

// NewContext creates a new query context. Options can be passed to configure
// the context. By default, the context will have a new session with default
// settings, a noop tracer and no query context.
func NewContext(
	ctx context.Context,
	opts ...ContextOption,
) *Context {
	c := &Context{
		Context:   ctx,
		Session:   NewSession(0),
		queryTime: time.Now(),
		tracer:    opentracing.NoopTracer{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewEmptyContext returns a default context with default values.
func NewEmptyContext() *Context { return NewContext(context.TODO()) }

// Query returns the query string associated with this context.
func (c *Context) Query() string { return c.query }

// QueryTime returns the time.Time when the context associated with this query was created
func (c *Context) QueryTime() time.Time {
	return c.queryTime
}

// Settings returns the settings in effect for this query.
func (c *Context) Settings() *Settings {
	if c.settings != nil {
		return c.settings
	}
	return c.Session.Settings()
}

// QueryContext returns the shared scalar registry, or nil if the query runs
// without a query context.
func (c *Context) QueryContext() *ScalarRegistry {
	return c.queryContext
}

// ViewSource returns the view table this query is the source of, if any.
func (c *Context) ViewSource() string {
	return c.viewSource
}

// Span creates a new tracing span with the given context.
// It will return the span and a new context that should be passed to all
// children of this span.
func (c *Context) Span(
	opName string,
	opts ...opentracing.StartSpanOption,
) (opentracing.Span, *Context) {
	parentSpan := opentracing.SpanFromContext(c.Context)
	if parentSpan != nil {
		opts = append(opts, opentracing.ChildOf(parentSpan.Context()))
	}
	span := c.tracer.StartSpan(opName, opts...)
	ctx := opentracing.ContextWithSpan(c.Context, span)

	return span, c.WithContext(ctx)
}

// WithContext returns a new context with the given underlying context.
func (c *Context) WithContext(ctx context.Context) *Context {
	nc := *c
	nc.Context = ctx
	return &nc
}

// WithSettings returns a copy of the context using the given settings.
func (c *Context) WithSettings(s *Settings) *Context {
	nc := *c
	nc.settings = s
	return &nc
}
