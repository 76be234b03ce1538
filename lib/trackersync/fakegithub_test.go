// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trackersync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/bureau-foundation/trackersync/lib/github"
)

type fakeRepository struct {
	ID    int64
	Owner string
	Name  string
}

func (r fakeRepository) path() string { return r.Owner + "/" + r.Name }

type fakeIssue struct {
	ID     int64
	Number int
	State  string
	Labels []string
}

type fakeHook struct {
	ID     int64
	URL    string
	Secret string
	Active bool
	Events []string
}

type fakeComment struct {
	ID     int64
	Issue  int
	Body   string
	Author string
}

type fakeLabel struct {
	Name        string
	Color       string
	Description string
}

// fakeGitHub is an in-memory GitHub REST API covering the endpoints
// the engine calls. Repository-scoped requests fail with 403 while
// forbidden is set, and so do requests matching a forbidden route.
type fakeGitHub struct {
	*httptest.Server
	t *testing.T

	mu            sync.Mutex
	nextID        int64
	repositories  map[int64]fakeRepository
	issues        map[int]*fakeIssue
	labels        map[string]*fakeLabel
	comments      []fakeComment
	hooks         map[string][]*fakeHook
	users         map[int64]map[string]any
	installations map[int64][]int64
	forbidden     bool
	forbidRoutes  []string
	requests      []string
}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	t.Helper()
	fake := &fakeGitHub{
		t:             t,
		nextID:        1000,
		repositories:  make(map[int64]fakeRepository),
		issues:        make(map[int]*fakeIssue),
		labels:        make(map[string]*fakeLabel),
		hooks:         make(map[string][]*fakeHook),
		users:         make(map[int64]map[string]any),
		installations: make(map[int64][]int64),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /repositories/{id}", fake.getRepository)
	mux.HandleFunc("GET /user/installations", fake.listUserInstallations)
	mux.HandleFunc("GET /user/{id}", fake.getUser)
	mux.HandleFunc("GET /installation/repositories", fake.listInstallationRepositories)
	mux.HandleFunc("GET /repos/{owner}/{repo}/hooks", fake.listHooks)
	mux.HandleFunc("POST /repos/{owner}/{repo}/hooks", fake.createHook)
	mux.HandleFunc("DELETE /repos/{owner}/{repo}/hooks/{id}", fake.deleteHook)
	mux.HandleFunc("GET /repos/{owner}/{repo}/labels", fake.listLabels)
	mux.HandleFunc("POST /repos/{owner}/{repo}/labels", fake.createLabel)
	mux.HandleFunc("GET /repos/{owner}/{repo}/issues/{number}", fake.getIssue)
	mux.HandleFunc("PATCH /repos/{owner}/{repo}/issues/{number}", fake.editIssue)
	mux.HandleFunc("POST /repos/{owner}/{repo}/issues/{number}/labels", fake.addLabels)
	mux.HandleFunc("DELETE /repos/{owner}/{repo}/issues/{number}/labels/{name}", fake.removeLabel)
	mux.HandleFunc("POST /repos/{owner}/{repo}/issues/{number}/comments", fake.createComment)

	fake.Server = httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		fake.mu.Lock()
		route := request.Method + " " + request.URL.Path
		fake.requests = append(fake.requests, route)
		forbidden := fake.forbidden || slices.Contains(fake.forbidRoutes, route)
		fake.mu.Unlock()
		if forbidden && (strings.HasPrefix(request.URL.Path, "/repos/") || strings.HasPrefix(request.URL.Path, "/repositories/")) {
			fake.writeJSON(writer, http.StatusForbidden, map[string]any{"message": "Resource not accessible by integration"})
			return
		}
		mux.ServeHTTP(writer, request)
	}))
	t.Cleanup(fake.Close)
	return fake
}

func (fake *fakeGitHub) writeJSON(writer http.ResponseWriter, status int, value any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	if err := json.NewEncoder(writer).Encode(value); err != nil {
		fake.t.Errorf("encoding response: %v", err)
	}
}

func (fake *fakeGitHub) notFound(writer http.ResponseWriter) {
	fake.writeJSON(writer, http.StatusNotFound, map[string]any{"message": "Not Found"})
}

// --- Seeding and inspection ---

func (fake *fakeGitHub) addRepository(repository fakeRepository) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	fake.repositories[repository.ID] = repository
}

func (fake *fakeGitHub) addIssue(number int, id int64, labels ...string) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	fake.issues[number] = &fakeIssue{ID: id, Number: number, State: github.StateOpen, Labels: labels}
}

func (fake *fakeGitHub) addLabel(name, color string) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	fake.labels[name] = &fakeLabel{Name: name, Color: color}
}

func (fake *fakeGitHub) addHook(repositoryPath string, hook fakeHook) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	hook.ID = fake.newID()
	fake.hooks[repositoryPath] = append(fake.hooks[repositoryPath], &hook)
}

func (fake *fakeGitHub) addUser(id int64, login, name, email string) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	fake.users[id] = map[string]any{"id": id, "login": login, "name": name, "email": email}
}

func (fake *fakeGitHub) addInstallation(installationID int64, repositoryIDs ...int64) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	fake.installations[installationID] = repositoryIDs
}

func (fake *fakeGitHub) setForbidden(forbidden bool) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	fake.forbidden = forbidden
}

// forbid makes one route, "METHOD /path", fail with 403.
func (fake *fakeGitHub) forbid(route string) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	fake.forbidRoutes = append(fake.forbidRoutes, route)
}

func (fake *fakeGitHub) issue(number int) fakeIssue {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	issue := *fake.issues[number]
	issue.Labels = slices.Clone(issue.Labels)
	return issue
}

func (fake *fakeGitHub) label(name string) (fakeLabel, bool) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	label, ok := fake.labels[name]
	if !ok {
		return fakeLabel{}, false
	}
	return *label, true
}

func (fake *fakeGitHub) postedComments() []fakeComment {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return slices.Clone(fake.comments)
}

func (fake *fakeGitHub) repositoryHooks(repositoryPath string) []fakeHook {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	var hooks []fakeHook
	for _, hook := range fake.hooks[repositoryPath] {
		hooks = append(hooks, *hook)
	}
	return hooks
}

func (fake *fakeGitHub) requestCount() int {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return len(fake.requests)
}

// countRequests returns how many requests started with prefix, such
// as "PATCH /repos/acme/widgets/issues/42".
func (fake *fakeGitHub) countRequests(prefix string) int {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	count := 0
	for _, request := range fake.requests {
		if strings.HasPrefix(request, prefix) {
			count++
		}
	}
	return count
}

// newID must be called with fake.mu held.
func (fake *fakeGitHub) newID() int64 {
	fake.nextID++
	return fake.nextID
}

// --- Handlers ---

func repositoryJSON(repository fakeRepository) map[string]any {
	return map[string]any{
		"id":        repository.ID,
		"name":      repository.Name,
		"full_name": repository.path(),
		"owner":     map[string]any{"login": repository.Owner},
	}
}

func issueJSON(issue *fakeIssue) map[string]any {
	labels := make([]map[string]any, 0, len(issue.Labels))
	for _, name := range issue.Labels {
		labels = append(labels, map[string]any{"name": name})
	}
	return map[string]any{
		"id":     issue.ID,
		"number": issue.Number,
		"state":  issue.State,
		"labels": labels,
	}
}

func hookJSON(hook *fakeHook) map[string]any {
	return map[string]any{
		"id":     hook.ID,
		"active": hook.Active,
		"events": hook.Events,
		"config": map[string]any{"url": hook.URL, "content_type": "json"},
	}
}

func (fake *fakeGitHub) getRepository(writer http.ResponseWriter, request *http.Request) {
	id, _ := strconv.ParseInt(request.PathValue("id"), 10, 64)
	fake.mu.Lock()
	repository, ok := fake.repositories[id]
	fake.mu.Unlock()
	if !ok {
		fake.notFound(writer)
		return
	}
	fake.writeJSON(writer, http.StatusOK, repositoryJSON(repository))
}

func (fake *fakeGitHub) getUser(writer http.ResponseWriter, request *http.Request) {
	id, _ := strconv.ParseInt(request.PathValue("id"), 10, 64)
	fake.mu.Lock()
	user, ok := fake.users[id]
	fake.mu.Unlock()
	if !ok {
		fake.notFound(writer)
		return
	}
	fake.writeJSON(writer, http.StatusOK, user)
}

func (fake *fakeGitHub) listUserInstallations(writer http.ResponseWriter, request *http.Request) {
	if request.Header.Get("Authorization") != "token user" {
		fake.writeJSON(writer, http.StatusUnauthorized, map[string]any{"message": "Bad credentials"})
		return
	}
	fake.mu.Lock()
	ids := make([]int64, 0, len(fake.installations))
	for id := range fake.installations {
		ids = append(ids, id)
	}
	fake.mu.Unlock()
	slices.Sort(ids)

	installations := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		installations = append(installations, map[string]any{"id": id})
	}
	fake.writeJSON(writer, http.StatusOK, map[string]any{
		"total_count":   len(installations),
		"installations": installations,
	})
}

func (fake *fakeGitHub) listInstallationRepositories(writer http.ResponseWriter, request *http.Request) {
	token := strings.TrimPrefix(request.Header.Get("Authorization"), "token inst-")
	installationID, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		fake.writeJSON(writer, http.StatusUnauthorized, map[string]any{"message": "Bad credentials"})
		return
	}
	fake.mu.Lock()
	var repositories []map[string]any
	for _, id := range fake.installations[installationID] {
		repositories = append(repositories, repositoryJSON(fake.repositories[id]))
	}
	fake.mu.Unlock()
	fake.writeJSON(writer, http.StatusOK, map[string]any{
		"total_count":  len(repositories),
		"repositories": repositories,
	})
}

func (fake *fakeGitHub) listHooks(writer http.ResponseWriter, request *http.Request) {
	key := request.PathValue("owner") + "/" + request.PathValue("repo")
	fake.mu.Lock()
	hooks := make([]map[string]any, 0, len(fake.hooks[key]))
	for _, hook := range fake.hooks[key] {
		hooks = append(hooks, hookJSON(hook))
	}
	fake.mu.Unlock()
	fake.writeJSON(writer, http.StatusOK, hooks)
}

func (fake *fakeGitHub) createHook(writer http.ResponseWriter, request *http.Request) {
	var body struct {
		Events []string       `json:"events"`
		Active bool           `json:"active"`
		Config map[string]any `json:"config"`
	}
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
		fake.writeJSON(writer, http.StatusBadRequest, map[string]any{"message": err.Error()})
		return
	}
	key := request.PathValue("owner") + "/" + request.PathValue("repo")
	deliveryURL, _ := body.Config["url"].(string)
	secret, _ := body.Config["secret"].(string)

	fake.mu.Lock()
	hook := &fakeHook{ID: fake.newID(), URL: deliveryURL, Secret: secret, Active: body.Active, Events: body.Events}
	fake.hooks[key] = append(fake.hooks[key], hook)
	response := hookJSON(hook)
	fake.mu.Unlock()
	fake.writeJSON(writer, http.StatusCreated, response)
}

func (fake *fakeGitHub) deleteHook(writer http.ResponseWriter, request *http.Request) {
	key := request.PathValue("owner") + "/" + request.PathValue("repo")
	id, _ := strconv.ParseInt(request.PathValue("id"), 10, 64)
	fake.mu.Lock()
	defer fake.mu.Unlock()
	for index, hook := range fake.hooks[key] {
		if hook.ID == id {
			fake.hooks[key] = slices.Delete(fake.hooks[key], index, index+1)
			writer.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writer.WriteHeader(http.StatusNotFound)
}

func (fake *fakeGitHub) listLabels(writer http.ResponseWriter, request *http.Request) {
	fake.mu.Lock()
	names := make([]string, 0, len(fake.labels))
	for name := range fake.labels {
		names = append(names, name)
	}
	slices.Sort(names)
	labels := make([]map[string]any, 0, len(names))
	for _, name := range names {
		labels = append(labels, map[string]any{"name": name, "color": fake.labels[name].Color})
	}
	fake.mu.Unlock()
	fake.writeJSON(writer, http.StatusOK, labels)
}

func (fake *fakeGitHub) createLabel(writer http.ResponseWriter, request *http.Request) {
	var label fakeLabel
	var body struct {
		Name        string `json:"name"`
		Color       string `json:"color"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
		fake.writeJSON(writer, http.StatusBadRequest, map[string]any{"message": err.Error()})
		return
	}
	label = fakeLabel{Name: body.Name, Color: body.Color, Description: body.Description}

	fake.mu.Lock()
	_, exists := fake.labels[label.Name]
	if !exists {
		fake.labels[label.Name] = &label
	}
	fake.mu.Unlock()
	if exists {
		fake.writeJSON(writer, http.StatusUnprocessableEntity, map[string]any{
			"message": "Validation Failed",
			"errors":  []map[string]any{{"resource": "Label", "code": "already_exists", "field": "name"}},
		})
		return
	}
	fake.writeJSON(writer, http.StatusCreated, map[string]any{"name": label.Name, "color": label.Color})
}

// lockedIssue returns the addressed issue with fake.mu held, or writes
// 404 and returns nil with the lock released.
func (fake *fakeGitHub) lockedIssue(writer http.ResponseWriter, request *http.Request) *fakeIssue {
	number, _ := strconv.Atoi(request.PathValue("number"))
	fake.mu.Lock()
	issue, ok := fake.issues[number]
	if !ok {
		fake.mu.Unlock()
		fake.notFound(writer)
		return nil
	}
	return issue
}

func (fake *fakeGitHub) getIssue(writer http.ResponseWriter, request *http.Request) {
	issue := fake.lockedIssue(writer, request)
	if issue == nil {
		return
	}
	response := issueJSON(issue)
	fake.mu.Unlock()
	fake.writeJSON(writer, http.StatusOK, response)
}

func (fake *fakeGitHub) editIssue(writer http.ResponseWriter, request *http.Request) {
	var body struct {
		State string `json:"state"`
	}
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
		fake.writeJSON(writer, http.StatusBadRequest, map[string]any{"message": err.Error()})
		return
	}
	issue := fake.lockedIssue(writer, request)
	if issue == nil {
		return
	}
	if body.State != "" {
		issue.State = body.State
	}
	response := issueJSON(issue)
	fake.mu.Unlock()
	fake.writeJSON(writer, http.StatusOK, response)
}

func (fake *fakeGitHub) addLabels(writer http.ResponseWriter, request *http.Request) {
	var names []string
	if err := json.NewDecoder(request.Body).Decode(&names); err != nil {
		fake.writeJSON(writer, http.StatusBadRequest, map[string]any{"message": err.Error()})
		return
	}
	issue := fake.lockedIssue(writer, request)
	if issue == nil {
		return
	}
	for _, name := range names {
		if !slices.Contains(issue.Labels, name) {
			issue.Labels = append(issue.Labels, name)
		}
	}
	response := issueJSON(issue)["labels"]
	fake.mu.Unlock()
	fake.writeJSON(writer, http.StatusOK, response)
}

func (fake *fakeGitHub) removeLabel(writer http.ResponseWriter, request *http.Request) {
	name := request.PathValue("name")
	issue := fake.lockedIssue(writer, request)
	if issue == nil {
		return
	}
	index := slices.Index(issue.Labels, name)
	if index < 0 {
		fake.mu.Unlock()
		fake.notFound(writer)
		return
	}
	issue.Labels = slices.Delete(issue.Labels, index, index+1)
	response := issueJSON(issue)["labels"]
	fake.mu.Unlock()
	fake.writeJSON(writer, http.StatusOK, response)
}

func (fake *fakeGitHub) createComment(writer http.ResponseWriter, request *http.Request) {
	var body struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
		fake.writeJSON(writer, http.StatusBadRequest, map[string]any{"message": err.Error()})
		return
	}
	issue := fake.lockedIssue(writer, request)
	if issue == nil {
		return
	}
	comment := fakeComment{
		ID:     fake.newID(),
		Issue:  issue.Number,
		Body:   body.Body,
		Author: request.Header.Get("Authorization"),
	}
	fake.comments = append(fake.comments, comment)
	fake.mu.Unlock()
	fake.writeJSON(writer, http.StatusCreated, map[string]any{"id": comment.ID, "body": comment.Body})
}

// --- Clients ---

// tokenTransport stamps every request with a fixed token so the fake
// can tell which identity a client acts as.
type tokenTransport struct {
	token string
	base  http.RoundTripper
}

func (transport tokenTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	request = request.Clone(request.Context())
	request.Header.Set("Authorization", "token "+transport.token)
	return transport.base.RoundTrip(request)
}

// testProvider hands out clients for the fake. Installations listed in
// revoked fail the way a removed installation does, and repositories
// listed in refused fail client resolution with the given error.
type testProvider struct {
	github  *fakeGitHub
	revoked map[int64]bool
	refused map[int64]error
}

func (provider *testProvider) client(token string) (*github.Client, error) {
	return github.NewClient(github.Config{
		BaseURL: provider.github.URL,
		HTTPClient: &http.Client{Transport: tokenTransport{
			token: token,
			base:  provider.github.Client().Transport,
		}},
		Logger: testLogger(),
	})
}

func (provider *testProvider) AppClient(context.Context) (*github.Client, error) {
	return provider.client("app")
}

func (provider *testProvider) InstallationClient(_ context.Context, installationID int64) (*github.Client, error) {
	if provider.revoked[installationID] {
		return nil, fmt.Errorf("minting token for installation %d: %w", installationID, errors.New("404 Not Found"))
	}
	return provider.client(fmt.Sprintf("inst-%d", installationID))
}

func (provider *testProvider) RepositoryClient(_ context.Context, repositoryID int64) (*github.Client, error) {
	if err := provider.refused[repositoryID]; err != nil {
		return nil, err
	}
	return provider.client(fmt.Sprintf("repo-%d", repositoryID))
}
