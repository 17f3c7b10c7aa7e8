//go:generate go run go.uber.org/mock/mockgen -source=worker.go -destination=../../mocks/mock_worker.go -package=mocks
package workers

import (
	"context"
	"reflect"
)

// Worker is a long-running background task. It does not protect itself:
// panics and errors are handled by the Supervisor.
type Worker interface {
	Run(ctx context.Context) error
}

// workerName returns the worker's type name for logs.
func workerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
