package datacenter

import "container/heap"

// EventHeap is a datacenter's pending-event queue. It also issues the datacenter's event
// IDs, so the tie-break sequence belongs to one run and concurrent runs never share it.
type EventHeap struct {
	events pendingEvents
	lastID uint64
}

// NewEventHeap creates an empty queue whose first issued ID is 1.
func NewEventHeap() *EventHeap {
	return &EventHeap{}
}

// NextID returns an ID greater than every ID this queue has issued before.
func (h *EventHeap) NextID() uint64 {
	h.lastID++
	return h.lastID
}

func (h *EventHeap) Len() int {
	return len(h.events)
}

// Schedule adds e to the queue.
func (h *EventHeap) Schedule(e Event) {
	heap.Push(&h.events, e)
}

// PopNext removes and returns the next event, nil when empty.
func (h *EventHeap) PopNext() Event {
	if len(h.events) == 0 {
		return nil
	}
	return heap.Pop(&h.events).(Event)
}

// Peek returns the next event without removing it.
func (h *EventHeap) Peek() Event {
	if len(h.events) == 0 {
		return nil
	}
	return h.events[0]
}

// runsBefore reports whether a is delivered before b.
func runsBefore(a, b Event) bool {
	// Primary: simulated time.
	if a.Timestamp() != b.Timestamp() {
		return a.Timestamp() < b.Timestamp()
	}

	// Secondary: EventTypePriority. At one instant the submission places VMs before any
	// migration finish moves them; the tick itself carries no work and goes last.
	if pa, pb := EventTypePriority[a.Type()], EventTypePriority[b.Type()]; pa != pb {
		return pa < pb
	}

	// Tertiary: scheduling order, as issued by NextID.
	return a.EventID() < b.EventID()
}

// pendingEvents is the heap.Interface backing an EventHeap.
type pendingEvents []Event

func (p pendingEvents) Len() int           { return len(p) }
func (p pendingEvents) Less(i, j int) bool { return runsBefore(p[i], p[j]) }
func (p pendingEvents) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }

func (p *pendingEvents) Push(x any) {
	*p = append(*p, x.(Event))
}

func (p *pendingEvents) Pop() any {
	old := *p
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*p = old[:n-1]
	return e
}
