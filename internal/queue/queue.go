package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TypeEnroll asks the worker to extract descriptors from an employee photo.
const TypeEnroll = "enroll"

// Message represents work to be processed.
type Message struct {
	Type string          `json:"type"`
	Body json.RawMessage `json:"body"`
}

// Queue is the abstraction over different backends.
type Queue interface {
	Publish(ctx context.Context, msg Message) error
	Consume(ctx context.Context) (<-chan Message, error)
}

// InMemory is a minimal channel-backed queue for dev/testing.
type InMemory struct {
	ch chan Message
}

// NewInMemory creates a bounded in-memory queue.
func NewInMemory(size int) *InMemory {
	return &InMemory{ch: make(chan Message, size)}
}

// Publish enqueues a message.
func (q *InMemory) Publish(ctx context.Context, msg Message) error {
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume returns a channel for workers.
func (q *InMemory) Consume(ctx context.Context) (<-chan Message, error) {
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			select {
			case msg := <-q.ch:
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// RedisQueue implements a simple Redis list-backed queue.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue builds a queue using LPUSH/BRPOP semantics.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = "staffattend:jobs"
	}
	return &RedisQueue{client: client, key: key}
}

// Publish enqueues a message.
func (q *RedisQueue) Publish(ctx context.Context, msg Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, b).Err()
}

// Consume streams messages using BRPOP. Undecodable entries are dropped.
func (q *RedisQueue) Consume(ctx context.Context) (<-chan Message, error) {
	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			res, err := q.client.BRPop(ctx, 5*time.Second, q.key).Result()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if !errors.Is(err, redis.Nil) {
					time.Sleep(time.Second)
				}
				continue
			}
			if len(res) != 2 {
				continue
			}
			var msg Message
			if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
				continue
			}
			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// EnrollJob is the body of a TypeEnroll message.
type EnrollJob struct {
	EmployeeCode string `json:"employeeCode"`
}

// Jobs publishes typed jobs on a Queue.
type Jobs struct {
	Queue Queue
}

// EnqueueEnroll schedules descriptor extraction for an employee.
func (j Jobs) EnqueueEnroll(ctx context.Context, code string) error {
	body, err := json.Marshal(EnrollJob{EmployeeCode: code})
	if err != nil {
		return err
	}
	return j.Queue.Publish(ctx, Message{Type: TypeEnroll, Body: body})
}

// DecodeEnroll parses the body of an enroll message.
func DecodeEnroll(msg Message) (EnrollJob, error) {
	if msg.Type != TypeEnroll {
		return EnrollJob{}, fmt.Errorf("unexpected message type %q", msg.Type)
	}
	var job EnrollJob
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		return EnrollJob{}, fmt.Errorf("decode enroll job: %w", err)
	}
	if job.EmployeeCode == "" {
		return EnrollJob{}, fmt.Errorf("enroll job without employee code")
	}
	return job, nil
}
