package play

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/SingularTensor/Mathly/internal/services/practice/domain/problem"
	"github.com/SingularTensor/Mathly/internal/services/practice/domain/quiz"
	"github.com/SingularTensor/Mathly/internal/services/practice/domain/sector"
	"github.com/SingularTensor/Mathly/internal/services/practice/storage"
)

type progressKey struct {
	userID string
	sector sector.Key
}

type fakeSession struct {
	session  storage.PlaySession
	consumed bool
}

// fakeStore is an in-memory storage.Store.
type fakeStore struct {
	mu       sync.Mutex
	users    map[string]storage.User
	progress map[progressKey]storage.SectorProgress
	commits  map[string]storage.RunCommit
	sessions map[string]fakeSession

	commitCalls int
	putErr      error
	commitErr   error
	listErr     error
	// beforeConsume runs at the start of ConsumeProblem, outside the lock.
	beforeConsume func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    map[string]storage.User{},
		progress: map[progressKey]storage.SectorProgress{},
		commits:  map[string]storage.RunCommit{},
		sessions: map[string]fakeSession{},
	}
}

func cloneSession(in storage.PlaySession) storage.PlaySession {
	out := in
	if in.Run != nil {
		run := *in.Run
		out.Run = &run
	}
	if in.Problem != nil {
		p := *in.Problem
		p.Operands = append([]int(nil), in.Problem.Operands...)
		p.Candidates = append([]int(nil), in.Problem.Candidates...)
		out.Problem = &p
	}
	return out
}

func (f *fakeStore) EnsureUser(_ context.Context, userID, displayName string, now time.Time) (storage.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		user = storage.User{ID: userID, DisplayName: displayName, CreatedAt: now, UpdatedAt: now}
		f.users[userID] = user
	}
	return user, nil
}

func (f *fakeStore) GetUser(_ context.Context, userID string) (storage.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return storage.User{}, storage.ErrNotFound
	}
	return user, nil
}

func (f *fakeStore) AdjustWallet(_ context.Context, userID string, delta int, now time.Time) (storage.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return storage.User{}, storage.ErrNotFound
	}
	if user.Wallet+delta < 0 {
		return storage.User{}, storage.ErrInsufficientFunds
	}
	user.Wallet += delta
	user.UpdatedAt = now
	f.users[userID] = user
	return user, nil
}

func (f *fakeStore) SetWallet(_ context.Context, userID string, amount int, now time.Time) (storage.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return storage.User{}, storage.ErrNotFound
	}
	user.Wallet = amount
	user.UpdatedAt = now
	f.users[userID] = user
	return user, nil
}

func (f *fakeStore) GetSectorProgress(_ context.Context, userID string, key sector.Key) (storage.SectorProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	progress, ok := f.progress[progressKey{userID, key}]
	if !ok {
		return storage.SectorProgress{}, storage.ErrNotFound
	}
	return progress, nil
}

func (f *fakeStore) CreateSectorProgress(_ context.Context, progress storage.SectorProgress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := progressKey{progress.UserID, progress.Sector}
	if _, ok := f.progress[key]; ok {
		return storage.ErrAlreadyExists
	}
	if progress.Level == 0 {
		progress.Level = 1
	}
	f.progress[key] = progress
	return nil
}

func (f *fakeStore) ListSectorProgress(_ context.Context, userID string) ([]storage.SectorProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.SectorProgress
	for key, progress := range f.progress {
		if key.userID == userID {
			out = append(out, progress)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sector < out[j].Sector })
	return out, nil
}

func (f *fakeStore) ListLeaderboard(_ context.Context, query storage.LeaderboardQuery) (storage.LeaderboardPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return storage.LeaderboardPage{}, f.listErr
	}
	var entries []storage.LeaderboardEntry
	for key, progress := range f.progress {
		if key.sector != query.Sector {
			continue
		}
		entries = append(entries, storage.LeaderboardEntry{
			UserID:         key.userID,
			DisplayName:    f.users[key.userID].DisplayName,
			Level:          progress.Level,
			ProblemsSolved: progress.ProblemsSolved,
			ExpEarned:      progress.ExpEarned,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ExpEarned > entries[j].ExpEarned })
	if len(entries) > query.PageSize {
		entries = entries[:query.PageSize]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return storage.LeaderboardPage{Entries: entries}, nil
}

func (f *fakeStore) CommitRun(_ context.Context, commit storage.RunCommit) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commitCalls++
	if f.commitErr != nil {
		return false, f.commitErr
	}
	if _, ok := f.commits[commit.RunID]; ok {
		return false, nil
	}
	user, ok := f.users[commit.UserID]
	if !ok {
		return false, storage.ErrNotFound
	}
	f.commits[commit.RunID] = commit
	user.Wallet += commit.Exp
	f.users[commit.UserID] = user
	key := progressKey{commit.UserID, commit.Sector}
	progress, ok := f.progress[key]
	if !ok {
		progress = storage.SectorProgress{UserID: commit.UserID, Sector: commit.Sector, Level: 1}
	}
	progress.ProblemsSolved += commit.ProblemsSolved
	progress.ExpEarned += commit.Exp
	progress.UpdatedAt = commit.CommittedAt
	f.progress[key] = progress
	return true, nil
}

func (f *fakeStore) UpgradeSector(_ context.Context, req storage.UpgradeRequest) (storage.UpgradeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[req.UserID]
	if !ok {
		return storage.UpgradeResult{}, storage.ErrNotFound
	}
	key := progressKey{req.UserID, req.Sector}
	progress, ok := f.progress[key]
	if !ok {
		progress = storage.SectorProgress{UserID: req.UserID, Sector: req.Sector, Level: 1}
	}
	cost := req.Cost(progress.Level)
	if user.Wallet < cost {
		return storage.UpgradeResult{Progress: progress, Cost: cost, Wallet: user.Wallet}, storage.ErrInsufficientFunds
	}
	user.Wallet -= cost
	progress.Level++
	progress.UpdatedAt = req.Now
	f.users[req.UserID] = user
	f.progress[key] = progress
	return storage.UpgradeResult{Progress: progress, Cost: cost, Wallet: user.Wallet}, nil
}

func (f *fakeStore) GetPlaySession(_ context.Context, userID string, now time.Time) (storage.PlaySession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.sessions[userID]
	if !ok || !entry.session.ExpiresAt.After(now) {
		return storage.PlaySession{}, storage.ErrNotFound
	}
	out := cloneSession(entry.session)
	if entry.consumed {
		out.Problem = nil
	}
	return out, nil
}

func (f *fakeStore) PutPlaySession(_ context.Context, session storage.PlaySession) (storage.PlaySession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return storage.PlaySession{}, f.putErr
	}
	entry, ok := f.sessions[session.UserID]
	live := ok && entry.session.ExpiresAt.After(session.UpdatedAt)
	switch {
	case session.Version == 0 && live:
		return storage.PlaySession{}, storage.ErrConflict
	case session.Version != 0 && (!ok || entry.session.Version != session.Version):
		return storage.PlaySession{}, storage.ErrConflict
	}
	next := cloneSession(session)
	next.Version = entry.session.Version + 1
	f.sessions[session.UserID] = fakeSession{session: next}
	return cloneSession(next), nil
}

func (f *fakeStore) ConsumeProblem(_ context.Context, userID, problemID string, now time.Time) (storage.PlaySession, error) {
	if hook := f.beforeConsume; hook != nil {
		f.beforeConsume = nil
		hook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.sessions[userID]
	if !ok || entry.consumed || entry.session.Problem == nil || !entry.session.ExpiresAt.After(now) {
		return storage.PlaySession{}, storage.ErrNotFound
	}
	if entry.session.Problem.ID != problemID {
		return storage.PlaySession{}, storage.ErrNotFound
	}
	entry.consumed = true
	entry.session.Version++
	f.sessions[userID] = entry
	return cloneSession(entry.session), nil
}

func (f *fakeStore) DeletePlaySession(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, userID)
	return nil
}

func (f *fakeStore) DeleteExpiredPlaySessions(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var removed int64
	for userID, entry := range f.sessions {
		if !entry.session.ExpiresAt.After(now) {
			delete(f.sessions, userID)
			removed++
		}
	}
	return removed, nil
}

// pendingProblem returns the stored pending problem for assertions.
func (f *fakeStore) pendingProblem(userID string) *problem.Problem {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.sessions[userID]
	if !ok || entry.consumed || entry.session.Problem == nil {
		return nil
	}
	p := *entry.session.Problem
	return &p
}

func (f *fakeStore) storedRun(userID string) *quiz.Run {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.sessions[userID]
	if !ok || entry.session.Run == nil {
		return nil
	}
	run := *entry.session.Run
	return &run
}

var _ storage.Store = (*fakeStore)(nil)
