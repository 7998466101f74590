package orchestrator

import (
	"testing"

	"github.com/google/uuid"

	"github.com/bobarin/scenecast/internal/models"
)

func TestQueueStrictPriorityOrdering(t *testing.T) {
	q := NewQueue()
	low := uuid.New()
	high := uuid.New()
	normal := uuid.New()

	q.Push(low, models.PriorityLow)
	q.Push(normal, models.PriorityNormal)
	q.Push(high, models.PriorityHigh)

	first, _ := q.Pop()
	second, _ := q.Pop()
	third, _ := q.Pop()

	if first != high || second != normal || third != low {
		t.Fatalf("expected high,normal,low order, got %v,%v,%v", first, second, third)
	}
}

func TestQueueFIFOWithinPriority(t *testing.T) {
	q := NewQueue()
	a := uuid.New()
	b := uuid.New()
	c := uuid.New()

	q.Push(a, models.PriorityNormal)
	q.Push(b, models.PriorityNormal)
	q.Push(c, models.PriorityNormal)

	first, _ := q.Pop()
	second, _ := q.Pop()
	third, _ := q.Pop()

	if first != a || second != b || third != c {
		t.Fatalf("expected FIFO order a,b,c, got %v,%v,%v", first, second, third)
	}
}

func TestQueuePopEmpty(t *testing.T) {
	q := NewQueue()
	if _, ok := q.Pop(); ok {
		t.Fatal("expected Pop on empty queue to return false")
	}
}

func TestQueueRemove(t *testing.T) {
	q := NewQueue()
	a := uuid.New()
	b := uuid.New()
	q.Push(a, models.PriorityNormal)
	q.Push(b, models.PriorityNormal)

	if !q.Remove(a) {
		t.Fatal("expected Remove to find a")
	}
	if q.Len() != 1 {
		t.Fatalf("expected 1 item remaining, got %d", q.Len())
	}
	first, _ := q.Pop()
	if first != b {
		t.Fatalf("expected b to remain, got %v", first)
	}
}
