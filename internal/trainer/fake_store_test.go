package trainer

import (
	"context"
	"sync"

	"github.com/soraally1/glucovision/internal/models"
)

// fakeStore 仅用于单元测试（内存模型存储）
type fakeStore struct {
	mu        sync.Mutex
	artifacts map[string]*models.ModelArtifact
	loadErr   error
	saveErr   error
	saves     int

	// saving 非 nil 时，Save 进入后通知并阻塞到 release 关闭
	saving  chan struct{}
	release chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{artifacts: make(map[string]*models.ModelArtifact)}
}

func (f *fakeStore) Load(ctx context.Context, key string) (*models.ModelArtifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	a, ok := f.artifacts[key]
	if !ok {
		return nil, models.ErrArtifactNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) Save(ctx context.Context, a *models.ModelArtifact) error {
	if f.saving != nil {
		f.saving <- struct{}{}
		<-f.release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	cp := *a
	f.artifacts[a.Key] = &cp
	return nil
}

func (f *fakeStore) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves
}

func (f *fakeStore) get(key string) *models.ModelArtifact {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.artifacts[key]
}
