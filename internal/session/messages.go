package session

import (
	"encoding/json"

	"github.com/kmatsu/odelab/internal/ode"
)

// Command identifiers of the request/response protocol.
const (
	CmdInit            = "INIT"
	CmdSetDiffvarVal   = "SET_DIFFVAR_VAL"
	CmdGetDiffvarName  = "GET_DIFFVAR_NAME"
	CmdGetCurrentVal   = "GET_CURRENT_VAL"
	CmdSetWatchingVar  = "SET_WATCHING_VAR"
	CmdSolveIVP        = "SOLVE_IVP"
	CmdChangeTime      = "CHANGE_TIME"
	CmdSetModelConst   = "SET_MODEL_CONST"
	CmdEvalModelVar    = "EVAL_MODEL_VAR"
	CmdCallModelMethod = "CALL_MODEL_METHOD"
)

// Request is one command envelope.
type Request struct {
	Command string          `json:"command"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// StatusResponse reports success or a structured failure. Handler
// failures never terminate the serving session.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type InitParams struct {
	Model    string   `json:"model"`
	T        float64  `json:"t"`
	InitStep *float64 `json:"init_step,omitempty"`
	MinStep  *float64 `json:"min_step,omitempty"`
	MaxStep  *float64 `json:"max_step,omitempty"`
}

type SetDiffvarValParams struct {
	Values map[string]float64 `json:"valmap"`
}

type DiffvarNameResponse struct {
	Success bool     `json:"success"`
	Names   []string `json:"names"`
}

type CurrentValResponse struct {
	Success bool      `json:"success"`
	T       float64   `json:"t"`
	Y       []float64 `json:"y"`
}

type SetWatchingVarParams struct {
	Vars []string `json:"vars"`
}

type SolveIVPParams struct {
	Tn       float64 `json:"tn"`
	Interval float64 `json:"output_interval"`
}

// SolutionResponse carries the sampled solve output: the time grid, one
// value sequence per flat state component, and one sequence per watched
// variable.
type SolutionResponse struct {
	Success  bool        `json:"success"`
	T        []float64   `json:"t"`
	Diffvars [][]float64 `json:"diffvars"`
	Watching [][]float64 `json:"watching_vars,omitempty"`
}

type ChangeTimeParams struct {
	T        *float64 `json:"t,omitempty"`
	InitStep *float64 `json:"init_step,omitempty"`
	MinStep  *float64 `json:"min_step,omitempty"`
	MaxStep  *float64 `json:"max_step,omitempty"`
}

type SetModelConstParams struct {
	Values map[string]float64 `json:"valmap"`
}

type EvalModelVarParams struct {
	Vars []string  `json:"vars"`
	T    float64   `json:"t"`
	Y    []float64 `json:"y"`
}

type ValueArrayResponse struct {
	Success bool      `json:"success"`
	Values  []float64 `json:"values"`
}

type CallModelMethodParams struct {
	Method string               `json:"method_name"`
	Args   map[string]ode.Value `json:"args,omitempty"`
}

// MethodReturnResponse lists ordered tagged return entries; a
// multi-value return appears as multiple entries.
type MethodReturnResponse struct {
	Success bool        `json:"success"`
	Returns []ode.Value `json:"return_values"`
}
