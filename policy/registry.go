package policy

// Standard returns a fresh instance of every production-ready scheduling
// policy, keyed by its canonical class name, together with the
// registration order used when no class_prio override promotes anything
// (spec.md §6). The experimental Q-learning prototype is included, last in
// the order, only in builds with the qlearning tag. Callers that want a
// subset or custom names build their own map instead of calling Standard.
func Standard() (map[string]Policy, []string) {
	order := []string{"fcfs", "round_robin", "sjf", "linux_original", "linux_on", "linux_o1", "fair"}
	m := map[string]Policy{
		"fcfs":           NewFCFS("fcfs"),
		"round_robin":    NewRoundRobin("round_robin"),
		"sjf":            NewSJF("sjf"),
		"linux_original": NewLinuxOriginal("linux_original"),
		"linux_on":       NewLinuxON("linux_on"),
		"linux_o1":       NewLinuxO1("linux_o1"),
		"fair":           NewFair("fair"),
	}
	if qlearningFactory != nil {
		name, p := qlearningFactory()
		m[name] = p
		order = append(order, name)
	}
	return m, order
}

// qlearningFactory is nil in a default build; the qlearning build tag
// (see qlearning.go) sets it in an init(), keeping the experimental
// policy out of Standard() otherwise (spec.md §9, Open Question).
var qlearningFactory func() (string, Policy)
