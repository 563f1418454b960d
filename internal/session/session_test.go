package session

import (
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmatsu/odelab/internal/models"
	"github.com/kmatsu/odelab/internal/ode"
)

func newTestSession() *Session {
	return New(models.NewRegistry(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// do sends one command through the full JSON round trip and decodes the
// response into out.
func do(t *testing.T, s *Session, command string, params any, out any) {
	t.Helper()
	req := Request{Command: command}
	if params != nil {
		raw, err := json.Marshal(params)
		require.NoError(t, err)
		req.Params = raw
	}
	msg, err := json.Marshal(req)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(s.Process(msg), out))
}

func initDecay(t *testing.T, s *Session) {
	t.Helper()
	var resp StatusResponse
	do(t, s, CmdInit, InitParams{Model: "decay"}, &resp)
	require.True(t, resp.Success, resp.Message)
}

func setY(t *testing.T, s *Session, y float64) {
	t.Helper()
	var resp StatusResponse
	do(t, s, CmdSetDiffvarVal, SetDiffvarValParams{Values: map[string]float64{"y": y}}, &resp)
	require.True(t, resp.Success, resp.Message)
}

func TestInit(t *testing.T) {
	s := newTestSession()

	var resp StatusResponse
	initStep, minStep, maxStep := 0.1, 0.001, 1.0
	do(t, s, CmdInit, InitParams{
		Model:    "decay",
		T:        1.2,
		InitStep: &initStep,
		MinStep:  &minStep,
		MaxStep:  &maxStep,
	}, &resp)
	assert.True(t, resp.Success)

	var cur CurrentValResponse
	do(t, s, CmdGetCurrentVal, nil, &cur)
	assert.True(t, cur.Success)
	assert.Equal(t, 1.2, cur.T)
	assert.Equal(t, []float64{0}, cur.Y)
}

func TestInitUnknownModel(t *testing.T) {
	s := newTestSession()

	var resp StatusResponse
	do(t, s, CmdInit, InitParams{Model: "model.nonexistent.Model"}, &resp)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Message)

	// The failed INIT leaves no engine behind.
	do(t, s, CmdGetCurrentVal, nil, &resp)
	assert.False(t, resp.Success)
}

func TestSetAndGetDiffvarVal(t *testing.T) {
	s := newTestSession()
	initDecay(t, s)
	setY(t, s, 10.0)

	var cur CurrentValResponse
	do(t, s, CmdGetCurrentVal, nil, &cur)
	assert.Equal(t, 0.0, cur.T)
	assert.Equal(t, []float64{10.0}, cur.Y)
}

func TestSetDiffvarValUnknownName(t *testing.T) {
	s := newTestSession()
	initDecay(t, s)

	var resp StatusResponse
	do(t, s, CmdSetDiffvarVal, SetDiffvarValParams{Values: map[string]float64{"z": 1}}, &resp)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "unknown differential variable")
}

func TestGetDiffvarName(t *testing.T) {
	s := newTestSession()
	initDecay(t, s)

	var resp DiffvarNameResponse
	do(t, s, CmdGetDiffvarName, nil, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"y"}, resp.Names)
}

func TestSolveIVP(t *testing.T) {
	s := newTestSession()
	initDecay(t, s)
	setY(t, s, 10.0)

	var resp SolutionResponse
	do(t, s, CmdSolveIVP, SolveIVPParams{Tn: 1.0, Interval: 0.1}, &resp)
	require.True(t, resp.Success)
	require.Len(t, resp.T, 11)
	require.Len(t, resp.Diffvars, 1)

	for i, tv := range resp.T {
		want := 10.0 * math.Exp(-tv)
		assert.InEpsilonf(t, want, resp.Diffvars[0][i], 1e-5, "t=%g", tv)
	}

	// Second solve continues seamlessly from t=1.
	do(t, s, CmdSolveIVP, SolveIVPParams{Tn: 2.0, Interval: 0.1}, &resp)
	require.True(t, resp.Success)
	assert.Equal(t, 1.0, resp.T[0])
	for i, tv := range resp.T {
		want := 10.0 * math.Exp(-tv)
		assert.InEpsilonf(t, want, resp.Diffvars[0][i], 1e-5, "t=%g", tv)
	}
}

func TestSolveIVPWatching(t *testing.T) {
	s := newTestSession()
	initDecay(t, s)
	setY(t, s, 10.0)

	var status StatusResponse
	do(t, s, CmdSetWatchingVar, SetWatchingVarParams{Vars: []string{"ydot"}}, &status)
	require.True(t, status.Success)

	var resp SolutionResponse
	do(t, s, CmdSolveIVP, SolveIVPParams{Tn: 1.0, Interval: 0.5}, &resp)
	require.True(t, resp.Success)
	require.Len(t, resp.Watching, 1)
	require.Len(t, resp.Watching[0], len(resp.T))

	// For dy/dt = -y the watched derivative tracks -y over the grid.
	for i := range resp.T {
		assert.InDelta(t, -resp.Diffvars[0][i], resp.Watching[0][i], 1e-9)
	}
}

func TestSolveIVPAfterMutationRestarts(t *testing.T) {
	s := newTestSession()
	initDecay(t, s)
	setY(t, s, 10.0)

	var resp SolutionResponse
	do(t, s, CmdSolveIVP, SolveIVPParams{Tn: 1.0, Interval: 0.5}, &resp)
	require.True(t, resp.Success)

	// Perturb y mid-run; the session must reseed before the next solve.
	setY(t, s, 5.0)
	do(t, s, CmdSolveIVP, SolveIVPParams{Tn: 2.0, Interval: 0.5}, &resp)
	require.True(t, resp.Success)

	last := resp.Diffvars[0][len(resp.T)-1]
	assert.InEpsilon(t, 5.0*math.Exp(-1), last, 1e-5)
}

func TestChangeTime(t *testing.T) {
	s := newTestSession()
	initDecay(t, s)
	setY(t, s, 10.0)

	var resp SolutionResponse
	do(t, s, CmdSolveIVP, SolveIVPParams{Tn: 2.0, Interval: 1.0}, &resp)
	require.True(t, resp.Success)

	newT := 0.0
	var status StatusResponse
	do(t, s, CmdChangeTime, ChangeTimeParams{T: &newT}, &status)
	require.True(t, status.Success)

	var cur CurrentValResponse
	do(t, s, CmdGetCurrentVal, nil, &cur)
	assert.Equal(t, 0.0, cur.T)
	// State carries over; only the clock was rewound.
	assert.InEpsilon(t, 10.0*math.Exp(-2), cur.Y[0], 1e-5)
}

func TestSetModelConst(t *testing.T) {
	s := newTestSession()
	initDecay(t, s)
	setY(t, s, 10.0)

	var status StatusResponse
	do(t, s, CmdSetModelConst, SetModelConstParams{Values: map[string]float64{"tau": 2.0}}, &status)
	require.True(t, status.Success)

	var resp SolutionResponse
	do(t, s, CmdSolveIVP, SolveIVPParams{Tn: 1.0, Interval: 0.5}, &resp)
	require.True(t, resp.Success)
	last := resp.Diffvars[0][len(resp.T)-1]
	assert.InEpsilon(t, 10.0*math.Exp(-2), last, 1e-5)
}

func TestSetModelConstUnknown(t *testing.T) {
	s := newTestSession()
	initDecay(t, s)

	var status StatusResponse
	do(t, s, CmdSetModelConst, SetModelConstParams{Values: map[string]float64{"bogus": 1}}, &status)
	assert.False(t, status.Success)
	assert.Contains(t, status.Message, "unknown model constant")
}

func TestEvalModelVar(t *testing.T) {
	s := newTestSession()
	initDecay(t, s)

	var resp ValueArrayResponse
	do(t, s, CmdEvalModelVar, EvalModelVarParams{
		Vars: []string{"ydot"},
		T:    1.0,
		Y:    []float64{5.0},
	}, &resp)
	require.True(t, resp.Success)
	require.Len(t, resp.Values, 1)
	assert.Equal(t, -5.0, resp.Values[0])

	// Engine timeline untouched by the off-timeline evaluation.
	var cur CurrentValResponse
	do(t, s, CmdGetCurrentVal, nil, &cur)
	assert.Equal(t, 0.0, cur.T)
	assert.Equal(t, []float64{0.0}, cur.Y)
}

func TestEvalModelVarUnknownAttr(t *testing.T) {
	s := newTestSession()
	initDecay(t, s)

	var resp StatusResponse
	do(t, s, CmdEvalModelVar, EvalModelVarParams{Vars: []string{"bogus"}, Y: []float64{1}}, &resp)
	assert.False(t, resp.Success)
}

func TestCallModelMethod(t *testing.T) {
	s := newTestSession()
	initDecay(t, s)

	var resp MethodReturnResponse
	do(t, s, CmdCallModelMethod, CallModelMethodParams{
		Method: "normalize",
		Args:   map[string]ode.Value{"values": ode.ArrayValue([]float64{3, 4})},
	}, &resp)
	require.True(t, resp.Success)
	require.Len(t, resp.Returns, 2)

	assert.False(t, resp.Returns[0].Scalar)
	assert.InDelta(t, 0.6, resp.Returns[0].Values[0], 1e-12)
	assert.InDelta(t, 0.8, resp.Returns[0].Values[1], 1e-12)
	assert.True(t, resp.Returns[1].Scalar)
	assert.InDelta(t, 5.0, resp.Returns[1].Values[0], 1e-12)
}

func TestCallModelMethodUnknown(t *testing.T) {
	s := newTestSession()
	initDecay(t, s)

	var resp StatusResponse
	do(t, s, CmdCallModelMethod, CallModelMethodParams{Method: "bogus"}, &resp)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "unknown model method")
}

func TestUnknownCommand(t *testing.T) {
	s := newTestSession()

	var resp StatusResponse
	do(t, s, "FROBNICATE", nil, &resp)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Message, "unknown command")
}

func TestMalformedMessage(t *testing.T) {
	s := newTestSession()

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(s.Process([]byte("{not json")), &resp))
	assert.False(t, resp.Success)

	// The session survives and still serves commands.
	initDecay(t, s)
}

func TestCommandsBeforeInit(t *testing.T) {
	s := newTestSession()

	for _, cmd := range []string{CmdGetCurrentVal, CmdGetDiffvarName} {
		var resp StatusResponse
		do(t, s, cmd, nil, &resp)
		assert.Falsef(t, resp.Success, "command %s", cmd)
	}

	var resp StatusResponse
	do(t, s, CmdSolveIVP, SolveIVPParams{Tn: 1, Interval: 0.1}, &resp)
	assert.False(t, resp.Success)
}
