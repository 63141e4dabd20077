// Package workload expands configured operation templates into the concrete
// invocation descriptors a benchmark round submits.
package workload

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/signalnine/ledgermark/internal/config"
	"github.com/signalnine/ledgermark/internal/invoke"
)

// Generator picks weighted operations and renders their argument templates.
// Template tokens: {n} is the per-round operation counter, {round} the round
// number, {rand} a fresh random token per rendering. {worker} is rendered
// later by BindWorker, once a pool worker picks the invocation up.
type Generator struct {
	ops         []config.Operation
	totalWeight int
	rnd         *rand.Rand
}

func NewGenerator(ops []config.Operation, seed int64) (*Generator, error) {
	if len(ops) == 0 {
		return nil, fmt.Errorf("no operations to generate from")
	}
	total := 0
	for _, op := range ops {
		w := op.Weight
		if w < 1 {
			w = 1
		}
		total += w
	}
	return &Generator{
		ops:         ops,
		totalWeight: total,
		rnd:         rand.New(rand.NewSource(seed)),
	}, nil
}

// Round produces the descriptors for one benchmark round.
func (g *Generator) Round(round, count int) []invoke.Descriptor {
	descs := make([]invoke.Descriptor, 0, count)
	for n := 0; n < count; n++ {
		descs = append(descs, g.descriptor(round, n))
	}
	return descs
}

func (g *Generator) descriptor(round, n int) invoke.Descriptor {
	op := g.pick()
	args := make(map[string]any, len(op.Args))
	for k, v := range op.Args {
		args[k] = renderArg(v, round, n)
	}
	return invoke.Descriptor{
		Contract: op.Contract,
		Method:   op.Method,
		Args:     args,
		ReadOnly: op.ReadOnly,
	}
}

func (g *Generator) pick() config.Operation {
	r := g.rnd.Intn(g.totalWeight)
	for _, op := range g.ops {
		w := op.Weight
		if w < 1 {
			w = 1
		}
		if r < w {
			return op
		}
		r -= w
	}
	return g.ops[len(g.ops)-1]
}

func renderArg(template string, round, n int) string {
	s := strings.ReplaceAll(template, "{n}", strconv.Itoa(n))
	s = strings.ReplaceAll(s, "{round}", strconv.Itoa(round))
	if strings.Contains(s, "{rand}") {
		token := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
		s = strings.ReplaceAll(s, "{rand}", token)
	}
	return s
}

// BindWorker renders the {worker} token in a descriptor's string arguments.
// The worker id is only known at execution time, so this runs in the pool
// rather than at generation. Descriptors without the token pass through
// untouched; the input descriptor is never mutated.
func BindWorker(d invoke.Descriptor, worker int) invoke.Descriptor {
	var bound map[string]any
	for k, v := range d.Args {
		s, ok := v.(string)
		if !ok || !strings.Contains(s, "{worker}") {
			continue
		}
		if bound == nil {
			bound = make(map[string]any, len(d.Args))
			for k2, v2 := range d.Args {
				bound[k2] = v2
			}
		}
		bound[k] = strings.ReplaceAll(s, "{worker}", strconv.Itoa(worker))
	}
	if bound != nil {
		d.Args = bound
	}
	return d
}

// RoundArgs is the payload handed to every worker in a round: the resolved
// contract table the invocations route through.
type RoundArgs struct {
	Contracts map[string]invoke.Binding `json:"contracts"`
}

func NewRoundArgs(bindings map[string]invoke.Binding) *RoundArgs {
	return &RoundArgs{Contracts: bindings}
}
