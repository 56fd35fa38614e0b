package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"GovPulse/internal/domain/models"
)

// FileEffectLog is the execution target for applied actions: a JSON-lines
// file, one record per applied action. It stands in for whatever external
// system a deployment wires actions into.
type FileEffectLog struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

func NewFileEffectLog(path string) (*FileEffectLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open effect log %s: %w", path, err)
	}
	return &FileEffectLog{f: f, path: path}, nil
}

func (l *FileEffectLog) Apply(ctx context.Context, a *models.Action) error {
	b, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal action: %w", err)
	}
	b = append(b, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.f.Write(b); err != nil {
		return fmt.Errorf("append effect log: %w", err)
	}
	return nil
}

func (l *FileEffectLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}
