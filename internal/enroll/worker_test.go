package enroll

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffattend/internal/attendance"
	"staffattend/internal/employee"
	"staffattend/internal/faceclient"
	"staffattend/internal/gallery"
	"staffattend/internal/queue"
)

func TestWorkerEnrollsQueuedEmployees(t *testing.T) {
	q := queue.NewInMemory(8)
	emps := employee.NewService(
		employee.NewMemoryRepository(attendance.NewMemoryRepository()),
		&gallery.MemoryVersion{},
		queue.Jobs{Queue: q},
		nil,
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := emps.Create(ctx, employee.Employee{Code: "EMP001", Name: "Ana", Active: true, Photo: "aGVsbG8="})
	require.NoError(t, err)
	_, err = emps.Create(ctx, employee.Employee{Code: "EMP002", Name: "Ben", Active: true, Photo: "d29ybGQ="})
	require.NoError(t, err)
	require.NoError(t, emps.Delete(ctx, "EMP002"))
	require.NoError(t, q.Publish(ctx, queue.Message{Type: "checkin"}))

	done := make(chan error, 1)
	go func() { done <- NewWorker(q, emps, faceclient.New("", true), nil).Run(ctx) }()

	assert.Eventually(t, func() bool {
		g, err := emps.Gallery(ctx)
		return err == nil && len(g.Descriptors) == 1
	}, 2*time.Second, 10*time.Millisecond)

	g, err := emps.Gallery(ctx)
	require.NoError(t, err)
	assert.Equal(t, "EMP001", g.Descriptors[0].EmployeeID)
	assert.Len(t, g.Descriptors[0].Vector, 16)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
