//go:build qlearning

package policy

import (
	"math/rand"

	"github.com/joeycumines/go-schedsim/task"
)

func init() {
	qlearningFactory = func() (string, Policy) { return "qlearning", NewQLearning("qlearning") }
}

// qAction is one of the two choices the Q-learning prototype picks
// between at every tick: keep the current task running, or request a
// switch (spec.md §9, "Q-learning policy is declared experimental").
type qAction int

const (
	qKeep qAction = iota
	qSwitch
	qActionCount
)

// qState is a coarse discretisation of (queue depth, time since the
// current task was picked) into a handful of buckets, the minimal state
// a tabular Q-learning agent can generalise over.
type qState struct {
	depthBucket   int
	elapsedBucket int
}

func bucket(v int64, edges []int64) int {
	for i, e := range edges {
		if v <= e {
			return i
		}
	}
	return len(edges)
}

var depthEdges = []int64{0, 1, 3, 7}
var elapsedEdges = []int64{0, 1000, 10_000, 100_000}

// QLearning is the FIFO-runqueue, tabular Q-learning dispatcher sketched
// by spec.md's Open Question: it reuses Linux-Original's plain FIFO list
// for pick_next and layers an epsilon-greedy switch/keep decision onto
// task_tick, rewarding states with shorter queues. It exists only in builds
// with -tags qlearning, and policy.Standard() includes it only in such builds.
type QLearning struct {
	name string
	rq   []*task.Task

	q       map[qState]map[int]float64
	alpha   float64
	gamma   float64
	epsilon float64
	rng     *rand.Rand

	lastState  qState
	lastAction qAction
	haveLast   bool
}

// NewQLearning constructs a QLearning policy instance with default
// learning-rate/discount/epsilon hyperparameters.
func NewQLearning(name string) *QLearning {
	return &QLearning{
		name:    name,
		q:       map[qState]map[int]float64{},
		alpha:   0.1,
		gamma:   0.9,
		epsilon: 0.1,
		rng:     rand.New(rand.NewSource(1)),
	}
}

func (p *QLearning) Name() string { return p.name }

func (p *QLearning) Init(params map[string]any) error {
	p.rq = p.rq[:0]
	p.haveLast = false
	if v, ok := params["alpha"]; ok {
		f, err := asFloat64(v)
		if err != nil {
			return err
		}
		p.alpha = f
	}
	if v, ok := params["gamma"]; ok {
		f, err := asFloat64(v)
		if err != nil {
			return err
		}
		p.gamma = f
	}
	if v, ok := params["epsilon"]; ok {
		f, err := asFloat64(v)
		if err != nil {
			return err
		}
		p.epsilon = f
	}
	if v, ok := params["seed"]; ok {
		n, err := asInt64(v)
		if err != nil {
			return err
		}
		p.rng = rand.New(rand.NewSource(n))
	}
	return nil
}

func (p *QLearning) Enqueue(t *task.Task) {
	t.OnRQ = true
	p.rq = append(p.rq, t)
}

func (p *QLearning) Dequeue(t *task.Task) {
	for i, x := range p.rq {
		if x == t {
			p.rq = append(p.rq[:i], p.rq[i+1:]...)
			break
		}
	}
	t.OnRQ = false
}

func (p *QLearning) PickNext(prev *task.Task) *task.Task {
	if len(p.rq) == 0 {
		return nil
	}
	next := p.rq[0]
	p.rq = p.rq[1:]
	next.OnRQ = false
	return next
}

func (p *QLearning) PutPrev(prev *task.Task) {
	if prev.Runnable {
		p.Enqueue(prev)
	}
}

func (p *QLearning) CheckPreempt(current, newTask *task.Task) bool { return false }

func (p *QLearning) state(now, pickedAt int64) qState {
	return qState{
		depthBucket:   bucket(int64(len(p.rq)), depthEdges),
		elapsedBucket: bucket(now-pickedAt, elapsedEdges),
	}
}

func (p *QLearning) qValues(s qState) [int(qActionCount)]float64 {
	var out [int(qActionCount)]float64
	row := p.q[s]
	for a := 0; a < int(qActionCount); a++ {
		out[a] = row[a]
	}
	return out
}

func (p *QLearning) bestAction(s qState) (qAction, float64) {
	vals := p.qValues(s)
	best := qAction(0)
	bestVal := vals[0]
	for a := 1; a < int(qActionCount); a++ {
		if vals[a] > bestVal {
			bestVal = vals[a]
			best = qAction(a)
		}
	}
	return best, bestVal
}

func (p *QLearning) updateQ(s qState, a qAction, reward, nextMax float64) {
	row, ok := p.q[s]
	if !ok {
		row = map[int]float64{}
		p.q[s] = row
	}
	row[int(a)] += p.alpha * (reward + p.gamma*nextMax - row[int(a)])
}

// reward favours states with a shorter waiting queue: less waiting time
// accrues to everyone else.
func reward(s qState) float64 {
	return -float64(s.depthBucket)
}

// TaskTick chooses keep/switch via epsilon-greedy over the discretised
// state and folds the outcome of the previous decision back into the
// Q-table before choosing the next one.
func (p *QLearning) TaskTick(current *task.Task) bool {
	s := p.state(current.UpdatedAt, current.PickedAt)

	if p.haveLast {
		_, nextMax := p.bestAction(s)
		p.updateQ(p.lastState, p.lastAction, reward(s), nextMax)
	}

	var action qAction
	if p.rng.Float64() < p.epsilon {
		if p.rng.Intn(2) == 0 {
			action = qKeep
		} else {
			action = qSwitch
		}
	} else {
		action, _ = p.bestAction(s)
	}

	p.lastState, p.lastAction, p.haveLast = s, action, true
	return action == qSwitch
}

func (p *QLearning) ClassStats() map[string]any {
	return map[string]any{"q_states": len(p.q)}
}
