package realtime

import (
	"errors"
	"sync"
)

var (
	// ErrSendBufferFull буфер отправки соединения переполнен (медленный клиент)
	ErrSendBufferFull = errors.New("send buffer full")
	// ErrConnectionClosed соединение уже закрыто
	ErrConnectionClosed = errors.New("connection closed")
)

// Sink принимает кадры для одного соединения.
// Send не должен блокироваться: медленный получатель получает ошибку, а не задерживает рассылку.
type Sink interface {
	Send(frame []byte) error
	Close() error
}

// BufferedSink ограниченная FIFO очередь кадров одного соединения.
// Единственный читатель (цикл записи транспорта) забирает кадры из Frames.
type BufferedSink struct {
	frames chan []byte
	done   chan struct{}
	mu     sync.RWMutex
	closed bool
}

// NewBufferedSink создает очередь на size кадров.
func NewBufferedSink(size int) *BufferedSink {
	if size <= 0 {
		size = 1
	}
	return &BufferedSink{
		frames: make(chan []byte, size),
		done:   make(chan struct{}),
	}
}

// Send ставит кадр в очередь без блокировки.
func (s *BufferedSink) Send(frame []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrConnectionClosed
	}

	select {
	case s.frames <- frame:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Frames канал кадров для цикла записи. Закрывается после Close,
// оставшиеся в буфере кадры можно дочитать.
func (s *BufferedSink) Frames() <-chan []byte {
	return s.frames
}

// Done закрывается при закрытии очереди.
func (s *BufferedSink) Done() <-chan struct{} {
	return s.done
}

// Close закрывает очередь. Повторный вызов ничего не делает.
func (s *BufferedSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	close(s.frames)
	return nil
}
