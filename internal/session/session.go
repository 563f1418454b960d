// Package session implements the logical command contract between a
// client and one simulation engine: INIT binds a model and engine, state
// commands mutate or inspect variables, SOLVE_IVP advances and samples,
// and evaluation commands read derived quantities. Any handler failure
// becomes a structured failure response; none terminates the session.
package session

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/kmatsu/odelab/internal/engine"
	"github.com/kmatsu/odelab/internal/models"
	"github.com/kmatsu/odelab/internal/ode"
	"github.com/kmatsu/odelab/internal/stepper"
)

// Session serves one logical simulation stream. Not safe for concurrent
// use; the transport serializes access.
type Session struct {
	registry *models.Registry
	log      *slog.Logger

	model ode.Model
	eng   *engine.Engine

	watching []string
	// Set when variables were mutated after the stepper started; the
	// next solve must reseed before advancing.
	restartNeeded bool
}

func New(registry *models.Registry, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{registry: registry, log: log}
}

// Process handles one JSON-encoded command message and returns the
// JSON-encoded response. Malformed input yields a failure status.
func (s *Session) Process(msg []byte) []byte {
	var req Request
	if err := json.Unmarshal(msg, &req); err != nil {
		return mustMarshal(fail(fmt.Errorf("malformed request: %w", err)))
	}
	return mustMarshal(s.Handle(req))
}

// Handle dispatches one command to its handler.
func (s *Session) Handle(req Request) any {
	s.log.Info("command received", "command", req.Command)
	switch req.Command {
	case CmdInit:
		return s.init(req.Params)
	case CmdSetDiffvarVal:
		return s.setDiffvarVal(req.Params)
	case CmdGetDiffvarName:
		return s.getDiffvarName()
	case CmdGetCurrentVal:
		return s.getCurrentVal()
	case CmdSetWatchingVar:
		return s.setWatchingVar(req.Params)
	case CmdSolveIVP:
		return s.solveIVP(req.Params)
	case CmdChangeTime:
		return s.changeTime(req.Params)
	case CmdSetModelConst:
		return s.setModelConst(req.Params)
	case CmdEvalModelVar:
		return s.evalModelVar(req.Params)
	case CmdCallModelMethod:
		return s.callModelMethod(req.Params)
	}
	return fail(fmt.Errorf("unknown command %q", req.Command))
}

func (s *Session) init(raw json.RawMessage) any {
	var p InitParams
	if err := unmarshalParams(raw, &p); err != nil {
		return fail(err)
	}
	model, err := s.registry.Get(p.Model)
	if err != nil {
		s.log.Error("INIT failed", "error", err)
		return fail(err)
	}
	eng, err := engine.New(model, engine.Options{
		T0:     p.T,
		Bounds: boundsFrom(p.InitStep, p.MinStep, p.MaxStep, stepper.Bounds{}),
	})
	if err != nil {
		s.log.Error("INIT failed", "error", err)
		return fail(err)
	}
	s.model = model
	s.eng = eng
	s.restartNeeded = false
	s.log.Info("engine initialized", "model", p.Model, "t", p.T)
	return ok()
}

func (s *Session) setDiffvarVal(raw json.RawMessage) any {
	if s.eng == nil {
		return fail(ode.ErrNotInitialized)
	}
	var p SetDiffvarValParams
	if err := unmarshalParams(raw, &p); err != nil {
		return fail(err)
	}
	// Mutation breaks stepper continuity even if the write then fails
	// on an unknown name; a restart is forced either way.
	s.restartNeeded = true
	if err := s.eng.Binding().SetScalars(p.Values); err != nil {
		s.log.Error("SET_DIFFVAR_VAL failed", "error", err)
		return fail(err)
	}
	return ok()
}

func (s *Session) getDiffvarName() any {
	if s.eng == nil {
		return fail(ode.ErrNotInitialized)
	}
	return DiffvarNameResponse{Success: true, Names: s.model.Vars().Names()}
}

func (s *Session) getCurrentVal() any {
	if s.eng == nil {
		return fail(ode.ErrNotInitialized)
	}
	return CurrentValResponse{Success: true, T: s.eng.T(), Y: s.eng.Y()}
}

func (s *Session) setWatchingVar(raw json.RawMessage) any {
	var p SetWatchingVarParams
	if err := unmarshalParams(raw, &p); err != nil {
		return fail(err)
	}
	s.watching = p.Vars
	return ok()
}

func (s *Session) solveIVP(raw json.RawMessage) any {
	if s.eng == nil {
		return fail(ode.ErrNotInitialized)
	}
	var p SolveIVPParams
	if err := unmarshalParams(raw, &p); err != nil {
		return fail(err)
	}
	if p.Interval <= 0 {
		return fail(fmt.Errorf("output interval must be positive, got %g", p.Interval))
	}
	if s.restartNeeded {
		if err := s.eng.Restart(engine.Checkpoint{}); err != nil {
			return fail(err)
		}
		s.restartNeeded = false
	}

	tprev := s.eng.T()
	sol, err := s.eng.Advance(p.Tn)
	if err != nil {
		s.log.Error("SOLVE_IVP failed", "error", err)
		return fail(err)
	}
	tout := engine.Grid(tprev, p.Tn, p.Interval)
	ys, err := sol.Sample(tout)
	if err != nil {
		return fail(err)
	}

	resp := SolutionResponse{Success: true, T: tout}
	n := s.model.Vars().Len()
	resp.Diffvars = make([][]float64, n)
	for i := 0; i < n; i++ {
		seq := make([]float64, len(tout))
		for k := range tout {
			seq[k] = ys[k][i]
		}
		resp.Diffvars[i] = seq
	}

	if len(s.watching) > 0 {
		resp.Watching, err = s.evalWatching(tout, ys)
		if err != nil {
			s.log.Error("SOLVE_IVP watch eval failed", "error", err)
			return fail(err)
		}
	}
	s.log.Info("IVP solved", "tn", p.Tn, "samples", len(tout))
	return resp
}

// evalWatching recomputes each watched attribute over the output grid.
func (s *Session) evalWatching(tout []float64, ys []ode.State) ([][]float64, error) {
	reader, okAttr := s.model.(ode.AttrReader)
	if !okAttr {
		return nil, fmt.Errorf("%w: model exposes no attributes", ode.ErrUnknownAttr)
	}
	out := make([][]float64, len(s.watching))
	for j := range out {
		out[j] = make([]float64, len(tout))
	}
	for k := range tout {
		tk := tout[k]
		err := s.eng.Eval(&engine.EvalPoint{T: &tk, Y: ys[k]}, func(ode.Model) error {
			for j, name := range s.watching {
				v, err := reader.Attr(name)
				if err != nil {
					return err
				}
				out[j][k] = v
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Session) changeTime(raw json.RawMessage) any {
	if s.eng == nil {
		return fail(ode.ErrNotInitialized)
	}
	var p ChangeTimeParams
	if err := unmarshalParams(raw, &p); err != nil {
		return fail(err)
	}
	cp := engine.Checkpoint{T: p.T}
	if p.InitStep != nil || p.MinStep != nil || p.MaxStep != nil {
		b := boundsFrom(p.InitStep, p.MinStep, p.MaxStep, s.eng.Bounds())
		cp.Bounds = &b
	}
	if err := s.eng.Restart(cp); err != nil {
		s.log.Error("CHANGE_TIME failed", "error", err)
		return fail(err)
	}
	s.restartNeeded = false
	return ok()
}

func (s *Session) setModelConst(raw json.RawMessage) any {
	if s.eng == nil {
		return fail(ode.ErrNotInitialized)
	}
	var p SetModelConstParams
	if err := unmarshalParams(raw, &p); err != nil {
		return fail(err)
	}
	cfg, okCfg := s.model.(ode.Configurable)
	if !okCfg {
		return fail(fmt.Errorf("%w: model has no constants", ode.ErrUnknownConstant))
	}
	for name, value := range p.Values {
		if err := cfg.SetParam(name, value); err != nil {
			s.log.Error("SET_MODEL_CONST failed", "error", err)
			return fail(err)
		}
	}
	// Constants feed the derivative; continuity is broken.
	s.restartNeeded = true
	return ok()
}

func (s *Session) evalModelVar(raw json.RawMessage) any {
	if s.eng == nil {
		return fail(ode.ErrNotInitialized)
	}
	var p EvalModelVarParams
	if err := unmarshalParams(raw, &p); err != nil {
		return fail(err)
	}
	reader, okAttr := s.model.(ode.AttrReader)
	if !okAttr {
		return fail(fmt.Errorf("%w: model exposes no attributes", ode.ErrUnknownAttr))
	}

	values := make([]float64, len(p.Vars))
	at := &engine.EvalPoint{T: &p.T, Y: p.Y}
	err := s.eng.Eval(at, func(ode.Model) error {
		for i, name := range p.Vars {
			v, err := reader.Attr(name)
			if err != nil {
				return err
			}
			values[i] = v
		}
		return nil
	})
	if err != nil {
		s.log.Error("EVAL_MODEL_VAR failed", "error", err)
		return fail(err)
	}
	return ValueArrayResponse{Success: true, Values: values}
}

func (s *Session) callModelMethod(raw json.RawMessage) any {
	if s.eng == nil {
		return fail(ode.ErrNotInitialized)
	}
	var p CallModelMethodParams
	if err := unmarshalParams(raw, &p); err != nil {
		return fail(err)
	}
	provider, okMethods := s.model.(ode.MethodProvider)
	if !okMethods {
		return fail(fmt.Errorf("%w: model registers no methods", ode.ErrUnknownMethod))
	}
	method, okName := provider.Methods()[p.Method]
	if !okName {
		return fail(fmt.Errorf("%w: %s", ode.ErrUnknownMethod, p.Method))
	}
	returns, err := method(p.Args)
	if err != nil {
		s.log.Error("CALL_MODEL_METHOD failed", "method", p.Method, "error", err)
		return fail(err)
	}
	return MethodReturnResponse{Success: true, Returns: returns}
}

func boundsFrom(initStep, minStep, maxStep *float64, base stepper.Bounds) stepper.Bounds {
	b := base
	if initStep != nil {
		b.Initial = *initStep
	}
	if minStep != nil {
		b.Min = *minStep
	}
	if maxStep != nil {
		b.Max = *maxStep
	}
	return b
}

func unmarshalParams(raw json.RawMessage, into any) error {
	if len(raw) == 0 {
		return fmt.Errorf("missing parameters")
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("malformed parameters: %w", err)
	}
	return nil
}

func ok() StatusResponse {
	return StatusResponse{Success: true}
}

func fail(err error) StatusResponse {
	return StatusResponse{Success: false, Message: err.Error()}
}

func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		data, _ = json.Marshal(fail(fmt.Errorf("encode response: %w", err)))
	}
	return data
}
