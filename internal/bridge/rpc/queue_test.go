package rpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payload(tag string) map[string]interface{} {
	return map[string]interface{}{"tag": tag}
}

func drainTags(t *testing.T, q *Queue) []string {
	t.Helper()
	var tags []string
	for {
		req, ok := q.Dequeue()
		if !ok {
			break
		}
		tags = append(tags, req.Payload["tag"].(string))
	}
	return tags
}

func TestQueueAssignsMonotonicSeq(t *testing.T) {
	q := NewQueue()
	s0 := q.Enqueue(payload("a"), PriorityNormal)
	s1 := q.Enqueue(payload("b"), PriorityNormal)
	assert.Equal(t, int64(0), s0)
	assert.Equal(t, int64(1), s1)
}

func TestQueueConstLeadsLowTrails(t *testing.T) {
	q := NewQueue()
	q.Enqueue(payload("low1"), PriorityLow)
	q.Enqueue(payload("normal1"), PriorityNormal)
	q.Enqueue(payload("const1"), PriorityConst)
	q.Enqueue(payload("low2"), PriorityLow)
	q.Enqueue(payload("const2"), PriorityConst)
	q.Enqueue(payload("normal2"), PriorityNormal)

	tags := drainTags(t, q)
	require.Equal(t, []string{"const1", "const2", "normal1", "normal2", "low1", "low2"}, tags)
}

func TestQueueConstFIFOWithinRun(t *testing.T) {
	q := NewQueue()
	q.Enqueue(payload("c1"), PriorityConst)
	q.Enqueue(payload("c2"), PriorityConst)
	q.Enqueue(payload("c3"), PriorityConst)

	tags := drainTags(t, q)
	require.Equal(t, []string{"c1", "c2", "c3"}, tags)
}

func TestQueueFIFOWithinPriority(t *testing.T) {
	q := NewQueue()
	for _, tag := range []string{"n1", "n2", "n3"} {
		q.Enqueue(payload(tag), PriorityNormal)
	}
	tags := drainTags(t, q)
	require.Equal(t, []string{"n1", "n2", "n3"}, tags)
}

func TestEnqueueStampsSeqOntoPayload(t *testing.T) {
	q := NewQueue()
	p := payload("x")
	q.Enqueue(p, PriorityNormal)
	assert.Equal(t, int64(0), p["seq"])
}

func TestDequeueEmptyQueue(t *testing.T) {
	q := NewQueue()
	_, ok := q.Dequeue()
	assert.False(t, ok)
}
