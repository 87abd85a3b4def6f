package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashureev/devgenie/internal/domain"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestUserRoundTrip(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	got, err := repo.GetUser(ctx, "missing")
	if err != nil || got != nil {
		t.Fatalf("GetUser(missing) = %v, %v; want nil, nil", got, err)
	}

	now := time.Now().Truncate(time.Second)
	user := &domain.User{UserID: "anon_1", Username: "anon-1", LastSeenAt: now, CreatedAt: now, UpdatedAt: now}
	if err := repo.UpsertUser(ctx, user); err != nil {
		t.Fatalf("UpsertUser failed: %v", err)
	}

	later := now.Add(time.Minute)
	if err := repo.UpdateLastSeen(ctx, "anon_1", later); err != nil {
		t.Fatalf("UpdateLastSeen failed: %v", err)
	}

	got, err = repo.GetUser(ctx, "anon_1")
	if err != nil || got == nil {
		t.Fatalf("GetUser = %v, %v", got, err)
	}
	if !got.LastSeenAt.Equal(later) {
		t.Errorf("LastSeenAt = %v, want %v", got.LastSeenAt, later)
	}
}

func saveAnalysis(t *testing.T, repo Repository, id, user, session, parent string, at time.Time) {
	t.Helper()
	err := repo.SaveAnalysis(context.Background(), &domain.Analysis{
		ID:             id,
		UserID:         user,
		SessionID:      session,
		ParentID:       parent,
		Mode:           domain.ModeExplain,
		Language:       domain.LanguagePython,
		OutputLanguage: domain.OutputOriginal,
		Code:           "print(" + id + ")",
		Result:         "result " + id,
		Warnings:       []string{"careful"},
		CreatedAt:      at,
	})
	if err != nil {
		t.Fatalf("SaveAnalysis(%s) failed: %v", id, err)
	}
}

func TestListAnalysesNewestFirstAndScoped(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	base := time.Now()

	saveAnalysis(t, repo, "a1", "u1", "s1", "", base)
	saveAnalysis(t, repo, "a2", "u1", "s1", "", base.Add(time.Second))
	saveAnalysis(t, repo, "a3", "u1", "s1", "a1", base.Add(2*time.Second))
	saveAnalysis(t, repo, "b1", "u1", "s2", "", base)
	saveAnalysis(t, repo, "c1", "u2", "s1", "", base)

	got, err := repo.ListAnalyses(ctx, "u1", "s1", 2)
	if err != nil {
		t.Fatalf("ListAnalyses failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a3" || got[1].ID != "a2" {
		t.Fatalf("ListAnalyses = %v", ids(got))
	}

	all, err := repo.ListAnalyses(ctx, "u1", "s1", 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("ListAnalyses(all) = %v, %v", ids(all), err)
	}
	if all[0].Warnings[0] != "careful" {
		t.Errorf("warnings not decoded: %v", all[0].Warnings)
	}
}

func TestGetAnalysisOwnership(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	saveAnalysis(t, repo, "a1", "u1", "s1", "", time.Now())

	got, err := repo.GetAnalysis(ctx, "u1", "a1")
	if err != nil {
		t.Fatalf("GetAnalysis failed: %v", err)
	}
	if got.Code != "print(a1)" || got.SessionID != "s1" || got.Mode != domain.ModeExplain {
		t.Errorf("GetAnalysis = %+v", got)
	}

	if _, err := repo.GetAnalysis(ctx, "u2", "a1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("other user's analysis: err = %v, want ErrNotFound", err)
	}
}

func TestListThread(t *testing.T) {
	repo := newTestStore(t)
	now := time.Now()
	saveAnalysis(t, repo, "root", "u1", "s1", "", now)
	saveAnalysis(t, repo, "f1", "u1", "s1", "root", now)
	saveAnalysis(t, repo, "f2", "u1", "s1", "root", now)

	thread, err := repo.ListThread(context.Background(), "root")
	if err != nil {
		t.Fatalf("ListThread failed: %v", err)
	}
	if len(thread) != 2 || thread[0].ID != "f1" || thread[1].ID != "f2" {
		t.Errorf("ListThread = %v", ids(thread))
	}
}

func TestDeleteSessionAnalyses(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	saveAnalysis(t, repo, "a1", "u1", "s1", "", time.Now())
	saveAnalysis(t, repo, "a2", "u1", "s2", "", time.Now())

	n, err := repo.DeleteSessionAnalyses(ctx, "u1", "s1")
	if err != nil || n != 1 {
		t.Fatalf("DeleteSessionAnalyses = %d, %v", n, err)
	}
	left, _ := repo.ListAnalyses(ctx, "u1", "s2", 0)
	if len(left) != 1 {
		t.Errorf("other session should be kept, got %v", ids(left))
	}
}

func TestCleanupExpired(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	old := time.Now().Add(-48 * time.Hour)
	fresh := time.Now()

	for _, u := range []*domain.User{
		{UserID: "old", Username: "old", LastSeenAt: old, CreatedAt: old, UpdatedAt: old},
		{UserID: "fresh", Username: "fresh", LastSeenAt: fresh, CreatedAt: fresh, UpdatedAt: fresh},
	} {
		if err := repo.UpsertUser(ctx, u); err != nil {
			t.Fatalf("UpsertUser failed: %v", err)
		}
	}
	saveAnalysis(t, repo, "o1", "old", "s", "", old)
	saveAnalysis(t, repo, "f1", "fresh", "s", "", fresh)

	users, analyses, err := repo.CleanupExpired(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("CleanupExpired failed: %v", err)
	}
	if users != 1 || analyses != 1 {
		t.Errorf("CleanupExpired = %d users, %d analyses", users, analyses)
	}
	if u, _ := repo.GetUser(ctx, "fresh"); u == nil {
		t.Error("fresh user should survive cleanup")
	}
}

func ids(list []*domain.Analysis) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.ID)
	}
	return out
}
