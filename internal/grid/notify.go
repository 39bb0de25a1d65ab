package grid

import "sync"

// ToastVariant is the severity of a transient notification.
type ToastVariant string

const (
	ToastSuccess ToastVariant = "success"
	ToastWarning ToastVariant = "warning"
	ToastError   ToastVariant = "error"
)

// Toast is a transient user notification.
type Toast struct {
	Title   string       `json:"title"`
	Message string       `json:"message"`
	Variant ToastVariant `json:"variant"`
}

// Notifier displays toasts. Display itself is owned by the host.
type Notifier interface {
	Notify(Toast)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Toast)

// Notify calls f.
func (f NotifierFunc) Notify(t Toast) { f(t) }

// ToastQueue buffers toasts until the host drains them.
type ToastQueue struct {
	mu     sync.Mutex
	toasts []Toast
}

// Notify appends the toast.
func (q *ToastQueue) Notify(t Toast) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.toasts = append(q.toasts, t)
}

// Drain returns and forgets the buffered toasts.
func (q *ToastQueue) Drain() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.toasts
	q.toasts = nil
	return out
}

type discardNotifier struct{}

func (discardNotifier) Notify(Toast) {}
