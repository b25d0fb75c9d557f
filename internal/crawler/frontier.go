package crawler

import "sync"

// Frontier is a blocking FIFO of tasks that knows when the crawl is finished:
// Pop returns false only once the queue is empty and no popped task is still
// being processed, or after Close.
type Frontier struct {
	mu       sync.Mutex
	cond     *sync.Cond
	tasks    []Task
	maxDepth int
	inFlight int
	closed   bool
	drained  bool
	onDrain  func()
}

// NewFrontier seeds a frontier. The seed is admitted regardless of maxDepth;
// every later push must satisfy Depth < maxDepth.
func NewFrontier(seed Task, maxDepth int) *Frontier {
	f := &Frontier{
		tasks:    []Task{seed},
		maxDepth: maxDepth,
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// OnDrain registers fn to run once, when the frontier drains or closes.
func (f *Frontier) OnDrain(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onDrain = fn
}

// Push enqueues task and reports whether it was accepted. Tasks at or beyond
// the depth ceiling and pushes after Close are dropped.
func (f *Frontier) Push(task Task) bool {
	if task.Depth >= f.maxDepth {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || f.drained {
		return false
	}
	f.tasks = append(f.tasks, task)
	f.cond.Signal()
	return true
}

// Pop blocks until a task is available. The caller must call Done once the
// task has been handled.
func (f *Frontier) Pop() (Task, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for len(f.tasks) == 0 && !f.closed {
		if f.inFlight == 0 {
			f.finishLocked()
			return Task{}, false
		}
		f.cond.Wait()
	}
	if f.closed {
		return Task{}, false
	}
	task := f.tasks[0]
	f.tasks[0] = Task{}
	f.tasks = f.tasks[1:]
	f.inFlight++
	return task, true
}

// Done marks one popped task as finished.
func (f *Frontier) Done() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight > 0 {
		f.inFlight--
	}
	if f.inFlight == 0 && len(f.tasks) == 0 {
		f.finishLocked()
	}
}

// Close stops the frontier: pending tasks are discarded and every blocked Pop
// returns false.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.tasks = nil
	f.finishLocked()
}

// Len returns the number of queued tasks.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

// InFlight returns the number of popped tasks not yet marked Done.
func (f *Frontier) InFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight
}

func (f *Frontier) finishLocked() {
	f.cond.Broadcast()
	if f.drained {
		return
	}
	f.drained = true
	if f.onDrain != nil {
		go f.onDrain()
	}
}
