// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trackersync

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/bureau-foundation/trackersync/lib/authgrant"
)

var legacy = fakeRepository{ID: 9, Owner: "acme", Name: "legacy"}

func TestAvailableReposRecordsGrants(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.github.addRepository(legacy)
	h.github.addInstallation(31, widgetsID, gadgetsID)
	h.github.addInstallation(32, legacy.ID)

	repos, err := h.engine.AvailableRepos(ctx, testAccountID, "good")
	if err != nil {
		t.Fatalf("AvailableRepos: %v", err)
	}
	want := []AvailableRepo{
		{RepositoryID: widgetsID, FullName: "acme/widgets"},
		{RepositoryID: gadgetsID, FullName: "acme/gadgets"},
		{RepositoryID: legacy.ID, FullName: "acme/legacy"},
	}
	if !slices.Equal(repos, want) {
		t.Errorf("repos = %+v, want %+v", repos, want)
	}

	grant, err := h.grants.Grant(ctx, testAccountID, legacy.ID)
	if err != nil {
		t.Fatalf("Grant(legacy): %v", err)
	}
	if grant.InstallationID != 32 {
		t.Errorf("legacy InstallationID = %d, want 32", grant.InstallationID)
	}
	if want := epoch.Add(authgrant.DefaultTTL); !grant.Expiry.Equal(want) {
		t.Errorf("Expiry = %v, want %v", grant.Expiry, want)
	}

	h.clock.Advance(authgrant.DefaultTTL + time.Second)
	if _, err := h.grants.Grant(ctx, testAccountID, legacy.ID); !errors.Is(err, authgrant.ErrNotFound) {
		t.Errorf("Grant after expiry = %v, want ErrNotFound", err)
	}
}

func TestAvailableReposErrors(t *testing.T) {
	tests := []struct {
		name    string
		options []harnessOption
		code    string
		revoke  bool
		want    Kind
	}{
		{name: "disabled", options: []harnessOption{disabled()}, code: "good", want: Unavailable},
		{name: "rejected code", code: "rejected", want: Forbidden},
		{name: "malformed token response", code: "garbled", want: Unavailable},
		{name: "installation unreachable", code: "good", revoke: true, want: Forbidden},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			h := newHarness(t, test.options...)
			h.github.addInstallation(31, widgetsID)
			if test.revoke {
				h.provider.revoked[31] = true
			}
			repos, err := h.engine.AvailableRepos(context.Background(), testAccountID, test.code)
			if KindOf(err) != test.want {
				t.Fatalf("AvailableRepos = %v, want %v", err, test.want)
			}
			if repos != nil {
				t.Errorf("repos = %v, want nil on failure", repos)
			}
			if _, err := h.grants.Grant(context.Background(), testAccountID, widgetsID); !errors.Is(err, authgrant.ErrNotFound) {
				t.Errorf("grant recorded despite failure: %v", err)
			}
		})
	}
}
