package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestFileRepository_NotFound verifies Load returns ErrNotFound for missing file.
func TestFileRepository_NotFound(t *testing.T) {
	t.Parallel()
	repo := NewFileRepository(filepath.Join(t.TempDir(), "missing.json"))
	s, err := repo.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, s)

	s, err = repo.LoadOrDefault(context.Background())
	require.NoError(t, err)
	require.False(t, s.OnboardingCompleted)
	require.Nil(t, s.LastSession)
}

// TestFileRepository_SaveLoad_Roundtrip ensures Save followed by Load returns equal state.
func TestFileRepository_SaveLoad_Roundtrip(t *testing.T) {
	t.Parallel()
	file := filepath.Join(t.TempDir(), "nested", "state.json")
	repo := NewFileRepository(file)

	started := time.Now().UTC().Truncate(time.Second)
	want := &AppState{
		OnboardingCompleted: true,
		LastSession: &SessionRecord{
			LocationID:   "0b1f3c52-9d1e-4d0e-8f4c-1f1b5c3b2a10",
			LocationName: "Sirkeci",
			StartedAt:    started,
			EndedAt:      started.Add(25 * time.Minute),
			Triggers:     2,
			Outcome:      "acknowledged",
		},
	}

	require.NoError(t, repo.Save(context.Background(), want))
	require.False(t, want.UpdatedAt.IsZero())

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, want.OnboardingCompleted, got.OnboardingCompleted)
	require.Equal(t, want.LastSession.LocationName, got.LastSession.LocationName)
	require.Equal(t, want.LastSession.LocationID, got.LastSession.LocationID)
	require.Equal(t, want.LastSession.Triggers, got.LastSession.Triggers)
	require.Equal(t, want.LastSession.Outcome, got.LastSession.Outcome)
	require.True(t, want.LastSession.StartedAt.Equal(got.LastSession.StartedAt))
	require.True(t, want.LastSession.EndedAt.Equal(got.LastSession.EndedAt))
	require.Equal(t, want.UpdatedAt.UnixNano(), got.UpdatedAt.UnixNano())

	info, err := os.Stat(file)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(filePermissions), info.Mode().Perm())
}

// TestFileRepository_Update verifies read-modify-write on a fresh and an existing file.
func TestFileRepository_Update(t *testing.T) {
	t.Parallel()
	repo := NewFileRepository(filepath.Join(t.TempDir(), "state.json"))
	ctx := context.Background()

	require.NoError(t, repo.Update(ctx, func(s *AppState) {
		s.OnboardingCompleted = true
	}))

	require.NoError(t, repo.Update(ctx, func(s *AppState) {
		require.True(t, s.OnboardingCompleted)
		s.LastSession = &SessionRecord{LocationName: "Home", Outcome: "stopped"}
	}))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	require.True(t, got.OnboardingCompleted)
	require.Equal(t, "Home", got.LastSession.LocationName)
	require.True(t, got.LastSession.StartedAt.IsZero())
}

// TestFileRepository_Corrupted ensures a broken file is reported, not reset.
func TestFileRepository_Corrupted(t *testing.T) {
	t.Parallel()
	file := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(file, []byte("{not json"), filePermissions))

	repo := NewFileRepository(file)
	_, err := repo.Load(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
	require.Error(t, repo.Update(context.Background(), func(*AppState) {}))
}
