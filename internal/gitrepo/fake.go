package gitrepo

import (
	"context"
	"sync"
)

// FakeCommit is a commit recorded by Fake.
type FakeCommit struct {
	Author  string
	Date    string
	Message string
	Paths   []string
}

// Fake is an in-memory VCS. Errors queued in Fail are returned, in order, by
// the operation they are keyed on ("stage", "stage-all", "commit",
// "compact"); an operation that fails has no effect.
type Fake struct {
	mu        sync.Mutex
	Fail      map[string][]error
	Commits   []FakeCommit
	Calls     []string
	Compacted int

	staged []string
}

func (f *Fake) next(op string) error {
	f.Calls = append(f.Calls, op)
	queue := f.Fail[op]
	if len(queue) == 0 {
		return nil
	}
	f.Fail[op] = queue[1:]
	return queue[0]
}

func (f *Fake) Stage(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.next("stage"); err != nil {
		return err
	}
	f.staged = append(f.staged, path)
	return nil
}

func (f *Fake) StageAll(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.next("stage-all"); err != nil {
		return err
	}
	f.staged = append(f.staged, ".")
	return nil
}

func (f *Fake) Commit(_ context.Context, author, date, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.next("commit"); err != nil {
		return err
	}
	f.Commits = append(f.Commits, FakeCommit{
		Author:  author,
		Date:    date,
		Message: message,
		Paths:   f.staged,
	})
	f.staged = nil
	return nil
}

func (f *Fake) Compact(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.next("compact"); err != nil {
		return err
	}
	f.Compacted++
	return nil
}
