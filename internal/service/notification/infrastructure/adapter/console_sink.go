package adapter

import (
	"context"
	"io"
	"sync"

	"orderflow/internal/service/notification/domain"
)

// ConsoleSink 把通知渲染为文本写到 w（通常是 os.Stdout）。
type ConsoleSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{w: w}
}

func (s *ConsoleSink) Deliver(_ context.Context, n domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.w, n.Render()+"\n")
	return err
}
