// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/trackersync/lib/clock"
	"github.com/bureau-foundation/trackersync/lib/feedback"
	"github.com/bureau-foundation/trackersync/lib/github"
	"github.com/bureau-foundation/trackersync/lib/trackersync"
	"github.com/bureau-foundation/trackersync/lib/workerpool"
)

const (
	testWebhookSecret = "test-secret-for-hmac"
	testProjectID     = "proj"
)

var epoch = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

// --- Fake engine ---

type configChange struct {
	accountID string
	projectID string
	previous  *feedback.Config
	next      feedback.Config
}

type fakeEngine struct {
	pool *workerpool.Pool

	mu            sync.Mutex
	issueEvents   []*github.IssuesEvent
	commentEvents []*github.IssueCommentEvent
	commentRaw    [][]byte
	eventProjects []string
	handleErr     error

	repos    []trackersync.AvailableRepo
	reposErr error
	codes    []string

	configChanges   []configChange
	configErr       error
	onConfigChanged func()
	schedule        bool
	createdComments []string
	statusChanges   [][2]bool
}

func (e *fakeEngine) HandleIssueEvent(_ context.Context, project *feedback.Project, event *github.IssuesEvent) (*feedback.Indexing, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handleErr != nil {
		return nil, e.handleErr
	}
	e.issueEvents = append(e.issueEvents, event)
	e.eventProjects = append(e.eventProjects, project.ID)
	return feedback.Indexed(nil), nil
}

func (e *fakeEngine) HandleIssueCommentEvent(_ context.Context, project *feedback.Project, event *github.IssueCommentEvent, raw []byte) (*feedback.Indexing, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handleErr != nil {
		return nil, e.handleErr
	}
	e.commentEvents = append(e.commentEvents, event)
	e.commentRaw = append(e.commentRaw, raw)
	e.eventProjects = append(e.eventProjects, project.ID)
	return nil, nil
}

func (e *fakeEngine) AvailableRepos(_ context.Context, _ string, code string) ([]trackersync.AvailableRepo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.codes = append(e.codes, code)
	return e.repos, e.reposErr
}

func (e *fakeEngine) ConfigChanged(_ context.Context, accountID, projectID string, previous *feedback.Config, next feedback.Config) error {
	e.mu.Lock()
	e.configChanges = append(e.configChanges, configChange{accountID, projectID, previous, next})
	hook, err := e.onConfigChanged, e.configErr
	e.mu.Unlock()
	if hook != nil {
		hook()
	}
	return err
}

func (e *fakeEngine) CommentCreated(ctx context.Context, _ *feedback.Project, _ *feedback.Idea, comment *feedback.Comment) *workerpool.Future[*github.IssueComment] {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.createdComments = append(e.createdComments, comment.ID)
	if !e.schedule {
		return workerpool.Done[*github.IssueComment](nil)
	}
	return workerpool.Go(ctx, e.pool, "comment_created", func(context.Context) (*github.IssueComment, error) {
		return &github.IssueComment{}, nil
	})
}

func (e *fakeEngine) StatusAndOrResponseChanged(ctx context.Context, _ *feedback.Project, _ *feedback.Idea, statusChanged, responseChanged bool) *workerpool.Future[*trackersync.StatusAndResponse] {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.statusChanges = append(e.statusChanges, [2]bool{statusChanged, responseChanged})
	if !e.schedule {
		return workerpool.Done[*trackersync.StatusAndResponse](nil)
	}
	return workerpool.Go(ctx, e.pool, "status_and_response_changed", func(context.Context) (*trackersync.StatusAndResponse, error) {
		return &trackersync.StatusAndResponse{}, nil
	})
}

func (e *fakeEngine) handledEvents() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.issueEvents) + len(e.commentEvents)
}

// --- Fake store ---

type fakeStore struct {
	mu       sync.Mutex
	projects map[string]*feedback.Project
	ideas    map[string]*feedback.Idea
	comments map[string]*feedback.Comment
	versions int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		projects: make(map[string]*feedback.Project),
		ideas:    make(map[string]*feedback.Idea),
		comments: make(map[string]*feedback.Comment),
	}
}

func (s *fakeStore) putProject(projectID string, config feedback.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions++
	s.projects[projectID] = &feedback.Project{ID: projectID, Version: "v" + strconv.Itoa(s.versions), Config: config}
}

func (s *fakeStore) GetProject(_ context.Context, projectID string) (*feedback.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	project, ok := s.projects[projectID]
	if !ok {
		return nil, feedback.ErrNotFound
	}
	copied := *project
	return &copied, nil
}

func (s *fakeStore) UpdateConfig(_ context.Context, projectID, expectedVersion string, config feedback.Config) (*feedback.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	project, ok := s.projects[projectID]
	if !ok {
		return nil, feedback.ErrNotFound
	}
	if expectedVersion != "" && expectedVersion != project.Version {
		return nil, feedback.ErrVersionMismatch
	}
	s.versions++
	project.Config = config
	project.Version = "v" + strconv.Itoa(s.versions)
	copied := *project
	return &copied, nil
}

func (s *fakeStore) GetIdea(_ context.Context, projectID, ideaID string) (*feedback.Idea, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idea, ok := s.ideas[projectID+"/"+ideaID]
	if !ok {
		return nil, feedback.ErrNotFound
	}
	return idea, nil
}

func (s *fakeStore) GetComment(_ context.Context, projectID, ideaID, commentID string) (*feedback.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	comment, ok := s.comments[projectID+"/"+ideaID+"/"+commentID]
	if !ok {
		return nil, feedback.ErrNotFound
	}
	return comment, nil
}

func (s *fakeStore) project(t *testing.T, projectID string) *feedback.Project {
	t.Helper()
	project, err := s.GetProject(context.Background(), projectID)
	if err != nil {
		t.Fatalf("GetProject(%s): %v", projectID, err)
	}
	return project
}

// --- Harness ---

type testService struct {
	handler http.Handler
	engine  *fakeEngine
	store   *fakeStore
	clock   *clock.FakeClock
}

func boardConfig() feedback.Config {
	return feedback.Config{
		Name: "Acme",
		Categories: []feedback.Category{{
			ID:   "bugs",
			Name: "Bugs",
			Workflow: feedback.Workflow{
				EntryStatus: "new",
				Statuses:    []feedback.Status{{ID: "new", Name: "New"}, {ID: "done", Name: "Done"}},
			},
		}},
	}
}

func newTestService(t *testing.T) *testService {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	pool := workerpool.New(workerpool.Config{MinWorkers: 1, MaxWorkers: 2, Logger: logger})
	t.Cleanup(func() { pool.Shutdown(context.Background()) })

	engine := &fakeEngine{pool: pool}
	store := newFakeStore()
	store.putProject(testProjectID, boardConfig())
	fake := clock.Fake(epoch)

	trackerService := &TrackerService{
		engine:   engine,
		projects: store,
		ideas:    store,
		comments: store,
		logger:   logger,
	}
	webhook := NewWebhookHandler([]byte(testWebhookSecret), engine, store, fake, logger)
	return &testService{
		handler: trackerService.routes(webhook),
		engine:  engine,
		store:   store,
		clock:   fake,
	}
}

func (s *testService) do(method, target, body string, header http.Header) *httptest.ResponseRecorder {
	request := httptest.NewRequest(method, target, strings.NewReader(body))
	for name, values := range header {
		request.Header[name] = values
	}
	recorder := httptest.NewRecorder()
	s.handler.ServeHTTP(recorder, request)
	return recorder
}

func TestHealthz(t *testing.T) {
	service := newTestService(t)
	if recorder := service.do(http.MethodGet, "/healthz", "", nil); recorder.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", recorder.Code)
	}
}
