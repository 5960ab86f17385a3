package game

import "sync"

// Command is a discrete action requested for the controlled actor.
type Command uint8

const (
	CommandSplit Command = iota + 1
	CommandEject
	CommandAbility
)

// String returns the command name.
func (c Command) String() string {
	switch c {
	case CommandSplit:
		return "split"
	case CommandEject:
		return "eject"
	case CommandAbility:
		return "ability"
	default:
		return "unknown"
	}
}

// ParseCommand maps a command name to a Command.
func ParseCommand(name string) (Command, bool) {
	switch name {
	case "split":
		return CommandSplit, true
	case "eject":
		return CommandEject, true
	case "ability":
		return CommandAbility, true
	}
	return 0, false
}

// CommandQueue buffers input between frames. It is the only structure the
// simulation shares with other goroutines. Steering is latest-wins; actions
// are delivered in the order they were pushed.
type CommandQueue struct {
	mu       sync.Mutex
	steerX   float64
	steerY   float64
	steered  bool
	actions  []Command
	capacity int
}

// NewCommandQueue creates a queue holding at most capacity pending actions.
// Actions pushed past capacity are dropped.
func NewCommandQueue(capacity int) *CommandQueue {
	return &CommandQueue{
		actions:  make([]Command, 0, capacity),
		capacity: capacity,
	}
}

// Steer records the latest steering vector.
func (q *CommandQueue) Steer(dx, dy float64) {
	q.mu.Lock()
	q.steerX, q.steerY = dx, dy
	q.steered = true
	q.mu.Unlock()
}

// Push appends an action. Returns false if the queue is full.
func (q *CommandQueue) Push(c Command) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.actions) >= q.capacity {
		return false
	}
	q.actions = append(q.actions, c)
	return true
}

// Drain moves pending actions into dst and reports the steering vector if
// one was set since the last drain.
func (q *CommandQueue) Drain(dst []Command) (actions []Command, dx, dy float64, steered bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	actions = append(dst, q.actions...)
	q.actions = q.actions[:0]
	dx, dy, steered = q.steerX, q.steerY, q.steered
	q.steered = false
	return actions, dx, dy, steered
}
