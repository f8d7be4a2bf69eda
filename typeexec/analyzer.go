package typeexec

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	tf "github.com/bytecode-tools/typeflow"
)

// analyzer is the per-method fixed-point driver. It owns its frame table
// and worklist exclusively.
type analyzer struct {
	ctx    context.Context
	opts   Options
	logger Logger
	execID string

	method *tf.Method
	sig    MethodSignature
	code   []tf.Instruction
	interp *interpreter
	h      Hierarchy

	steps      []step
	frames     []*Frame
	postFrames []*Frame
	edges      map[Edge]struct{}
	worklist   *pcWorklist
}

func newAnalyzer(ctx context.Context, m *tf.Method, sig MethodSignature, opts Options) *analyzer {
	execID := uuid.NewString()
	h := orDefault(opts.Hierarchy)
	n := len(m.Instructions)
	return &analyzer{
		ctx:    ctx,
		opts:   opts,
		execID: execID,
		logger: loggerFor(opts).With(map[string]any{
			"exec":   execID,
			"method": m.ID(),
		}),
		method:     m,
		sig:        sig,
		code:       m.Instructions,
		interp:     &interpreter{h: h, ret: sig.Return},
		h:          h,
		steps:      make([]step, n),
		frames:     make([]*Frame, n),
		postFrames: make([]*Frame, n),
		edges:      make(map[Edge]struct{}),
		worklist:   newPCWorklist(n),
	}
}

// entryFrame seeds locals from the signature: the receiver unless static,
// then each parameter, category-2 parameters taking two slots.
func (a *analyzer) entryFrame(sig MethodSignature) (*Frame, error) {
	f := newFrame(a.method.MaxLocals, a.method.MaxStack)
	slot := 0
	if !a.method.Static {
		owner, err := classType(a.method.Owner)
		if err != nil {
			return nil, fail(TypeMismatch, "method owner %q: %v", a.method.Owner, err)
		}
		if err := f.setLocal(slot, ValueOf(owner)); err != nil {
			return nil, err
		}
		slot++
	}
	for _, arg := range sig.Args {
		if err := f.setLocal(slot, ValueOf(arg)); err != nil {
			return nil, err
		}
		slot += arg.Size()
	}
	return f, nil
}

func (a *analyzer) run() (*Result, error) {
	res := &Result{Method: a.method, ExecID: a.execID}

	a.logger.With(map[string]any{
		"instructions": len(a.code),
		"handlers":     len(a.method.TryCatch),
		"maxLocals":    a.method.MaxLocals,
		"maxStack":     a.method.MaxStack,
	}).Infof("Starting type-flow analysis")

	entry, err := a.entryFrame(a.sig)
	if err != nil {
		return a.finish(res, toVerifyError(err, 0, a.code[0].Op)), nil
	}
	a.frames[0] = entry
	a.worklist.push(0)

	for !a.worklist.isEmpty() {
		res.Iterations++
		if a.opts.MaxIterations > 0 && res.Iterations > a.opts.MaxIterations {
			return nil, fmt.Errorf("%s: %w (%d)", a.method.ID(), ErrIterationLimit, a.opts.MaxIterations)
		}

		select {
		case <-a.ctx.Done():
			res.Outcome = OutcomeCancelled
			a.logger.With(map[string]any{
				"iterations": res.Iterations,
				"cause":      a.ctx.Err(),
			}).Infof("Analysis cancelled")
			return a.collect(res), nil
		default:
		}

		pc := a.worklist.pop()
		if verr := a.step(pc); verr != nil {
			return a.finish(res, verr), nil
		}
	}

	res.Outcome = OutcomeSuccess
	a.collect(res)
	a.logger.With(map[string]any{
		"iterations":  res.Iterations,
		"edges":       len(res.Edges),
		"unreachable": len(res.Unreachable),
	}).Infof("Analysis completed")
	return res, nil
}

// step executes instruction pc against its frame and propagates the result
// to every successor.
func (a *analyzer) step(pc int) *VerifyError {
	in := &a.code[pc]
	if a.steps[pc] == nil {
		s, err := classify(in)
		if err != nil {
			return toVerifyError(err, pc, in.Op)
		}
		a.steps[pc] = s
	}

	before := a.frames[pc]
	if a.logger.IsEnabled(LevelDebug) {
		a.logger.With(map[string]any{
			"pc":     pc,
			"op":     in.Op,
			"stack":  stackPreview(before, a.opts.LogStackPreviewDepth),
			"locals": localsPreview(before, a.opts.LogMaxLocals),
			"queued": a.worklist.len(),
		}).Debugf("Executing %s", in.Op)
	}

	after := before.Clone()
	if err := after.execute(in, a.steps[pc], a.interp); err != nil {
		return toVerifyError(err, pc, in.Op)
	}
	a.postFrames[pc] = after

	for _, tc := range a.method.TryCatch {
		if !tc.Covers(pc) {
			continue
		}
		hf, err := before.handlerFrame(tc.Type)
		if err != nil {
			return toVerifyError(err, pc, in.Op)
		}
		if verr := a.flow(pc, tc.Handler, hf, EdgeException); verr != nil {
			return verr
		}
	}

	if in.Op.FallsThrough() {
		if pc+1 >= len(a.code) {
			return toVerifyError(fail(InvalidControlFlow, "execution falls off the end of the code"), pc, in.Op)
		}
		if verr := a.flow(pc, pc+1, after, EdgeFallthrough); verr != nil {
			return verr
		}
	}
	for _, target := range in.Successors() {
		if target < 0 || target >= len(a.code) {
			return toVerifyError(fail(InvalidControlFlow, "jump target %d outside the code", target), pc, in.Op)
		}
		if verr := a.flow(pc, target, after, EdgeJump); verr != nil {
			return verr
		}
	}
	return nil
}

// flow delivers f along the edge from -> to: adopted when to has no frame
// yet, merged otherwise, and scheduled when anything changed.
func (a *analyzer) flow(from, to int, f *Frame, kind EdgeKind) *VerifyError {
	a.edges[Edge{From: from, To: to, Kind: kind}] = struct{}{}

	existing := a.frames[to]
	if existing == nil {
		a.frames[to] = f.Clone()
		a.worklist.push(to)
		return nil
	}
	res, err := existing.merge(f, a.h, a.opts.StrictMerge)
	if err != nil {
		return toVerifyError(err, to, a.code[to].Op)
	}
	if res.widened && a.logger.IsEnabled(LevelDebug) {
		a.logger.With(map[string]any{
			"from":  from,
			"to":    to,
			"kind":  kind,
			"frame": existing,
		}).Debugf("Widened reference merge")
	}
	if res.changed {
		a.worklist.push(to)
	}
	return nil
}

func (a *analyzer) finish(res *Result, verr *VerifyError) *Result {
	res.Outcome = OutcomeFailure
	res.Err = verr
	a.collect(res)
	a.logger.With(map[string]any{
		"pc":         verr.Index,
		"op":         verr.Op,
		"kind":       verr.Kind,
		"iterations": res.Iterations,
	}).Warnf("Verification failed: %s", verr.Message)
	return res
}

// collect copies the frame table, edges and unreachable set into res.
func (a *analyzer) collect(res *Result) *Result {
	res.Frames = a.frames
	res.PostFrames = a.postFrames
	res.Edges = make([]Edge, 0, len(a.edges))
	for e := range a.edges {
		res.Edges = append(res.Edges, e)
	}
	sort.Slice(res.Edges, func(i, j int) bool {
		x, y := res.Edges[i], res.Edges[j]
		if x.From != y.From {
			return x.From < y.From
		}
		if x.To != y.To {
			return x.To < y.To
		}
		return x.Kind < y.Kind
	})
	res.Unreachable = unreachable(a.method)
	return res
}

// unreachable walks the control-flow graph from instruction 0 along
// fallthrough, jump, switch and handler edges and returns the indexes it
// never reaches. It does not depend on how far the analysis got, so the set
// is the same for every outcome.
func unreachable(m *tf.Method) []int {
	n := len(m.Instructions)
	if n == 0 {
		return nil
	}
	seen := make([]bool, n)
	queue := []int{0}
	seen[0] = true
	visit := func(pc int) {
		if pc >= 0 && pc < n && !seen[pc] {
			seen[pc] = true
			queue = append(queue, pc)
		}
	}
	for len(queue) > 0 {
		pc := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		in := &m.Instructions[pc]
		if in.Op.FallsThrough() {
			visit(pc + 1)
		}
		for _, t := range in.Successors() {
			visit(t)
		}
		for _, tc := range m.TryCatch {
			if tc.Covers(pc) {
				visit(tc.Handler)
			}
		}
	}
	var out []int
	for i, ok := range seen {
		if !ok {
			out = append(out, i)
		}
	}
	return out
}
