package partition

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teekernel/tee-partition-manager/ffa"
	"github.com/teekernel/tee-partition-manager/interfaces"
)

// scriptedPlatform runs a fixed sequence of partition-side steps, one per
// entry after boot. Each step inspects the frame the kernel entered with
// and rewrites it into the partition's next outgoing message.
type scriptedPlatform struct {
	*MockPlatform
	steps []func(t *testing.T, frame *ffa.ExecState) interfaces.Trap
}

func newScriptedPlatform(t *testing.T, steps ...func(t *testing.T, frame *ffa.ExecState) interfaces.Trap) *scriptedPlatform {
	t.Helper()

	p := &scriptedPlatform{MockPlatform: &MockPlatform{}, steps: steps}
	booted := false
	p.Handler = func(frame *ffa.ExecState) interfaces.Trap {
		if !booted {
			// initial entry: finish boot with an empty response
			booted = true
			DirectResponse(frame, 0)
			return interfaces.Trap{Kind: interfaces.TrapMessage}
		}

		require.NotEmpty(t, p.steps, "partition entered with no step left")
		step := p.steps[0]
		p.steps = p.steps[1:]
		return step(t, frame)
	}
	return p
}

// sendRequest makes the scripted partition issue a direct request to the
// given endpoint with the given parameter words.
func sendRequest(frame *ffa.ExecState, dest uint16, params [5]uint64) {
	ffa.DirectMessage{
		Function:    ffa.FuncMsgSendDirectReq64,
		Source:      ffa.PartitionID,
		Destination: dest,
		Params:      params,
	}.EncodeInto(frame)
}

// invoke drives one communication exchange so the scripted steps run.
func invoke(t *testing.T, sess *Session) error {
	t.Helper()

	buf := make([]byte, 8)
	_, err := sess.InvokeCommand(CmdCommunicate, buf)
	return err
}

func TestDispatchVersionQueryStaysInside(t *testing.T) {
	plat := newScriptedPlatform(t,
		func(t *testing.T, frame *ffa.ExecState) interfaces.Trap {
			frame.X[0] = ffa.FuncVersion
			return interfaces.Trap{Kind: interfaces.TrapMessage}
		},
		func(t *testing.T, frame *ffa.ExecState) interfaces.Trap {
			// the version answer lands in the frame without any host exit
			assert.Equal(t, ffa.MakeVersion(ffa.VersionMajor, ffa.VersionMinor), frame.X[0])
			DirectResponse(frame, 0)
			return interfaces.Trap{Kind: interfaces.TrapMessage}
		},
	)

	env := newTestEnv(t, plat.MockPlatform)
	sess, _ := env.open(t)

	require.NoError(t, invoke(t, sess))
	assert.Empty(t, plat.steps)

	// boot entry, command entry, resume after version
	assert.Equal(t, 3, plat.Entries)
}

func TestDispatchUnknownEndpoint(t *testing.T) {
	plat := newScriptedPlatform(t,
		func(t *testing.T, frame *ffa.ExecState) interfaces.Trap {
			sendRequest(frame, 0x7777, [5]uint64{1, 2, 3, 4, 5})
			return interfaces.Trap{Kind: interfaces.TrapMessage}
		},
		func(t *testing.T, frame *ffa.ExecState) interfaces.Trap {
			// an unknown endpoint produces an error report back into the
			// partition, not a host exit
			assert.Equal(t, ffa.FuncError, frame.X[0])
			assert.Equal(t, ffa.RetInvalidParameters, int64(frame.X[2]))
			DirectResponse(frame, 0)
			return interfaces.Trap{Kind: interfaces.TrapMessage}
		},
	)

	env := newTestEnv(t, plat.MockPlatform)
	sess, _ := env.open(t)

	require.NoError(t, invoke(t, sess))
	assert.Empty(t, plat.steps)
}

func TestDispatchUndefinedMessageKind(t *testing.T) {
	plat := newScriptedPlatform(t,
		func(t *testing.T, frame *ffa.ExecState) interfaces.Trap {
			frame.X[0] = 0xdeadbeef
			return interfaces.Trap{Kind: interfaces.TrapMessage}
		},
	)

	env := newTestEnv(t, plat.MockPlatform)
	sess, ctx := env.open(t)

	err := invoke(t, sess)
	require.Error(t, err)

	var tf *interfaces.TargetFaultError
	require.True(t, errors.As(err, &tf))
	assert.Equal(t, ffa.UndefinedMessageCode, tf.Code)

	// the context survives the abort; only the session is poisoned
	assert.NotNil(t, env.mgr.registry.lookup(ctx.ID()))
}

func TestDispatchHardwareFault(t *testing.T) {
	plat := newScriptedPlatform(t,
		func(t *testing.T, frame *ffa.ExecState) interfaces.Trap {
			return interfaces.Trap{Kind: interfaces.TrapFault, Code: 0x92000045}
		},
	)

	env := newTestEnv(t, plat.MockPlatform)
	sess, _ := env.open(t)

	err := invoke(t, sess)
	require.ErrorIs(t, err, interfaces.ErrTargetFaulted)

	var tf *interfaces.TargetFaultError
	require.True(t, errors.As(err, &tf))
	assert.Equal(t, uint32(0x92000045), tf.Code)
}

func TestDispatchMaskAndTimerBracketing(t *testing.T) {
	env := newTestEnv(t, nil)
	sess, _ := env.open(t)

	require.NoError(t, invoke(t, sess))

	plat := env.plat
	assert.Equal(t, plat.MaskCalls, plat.UnmaskCalls)
	assert.Equal(t, plat.TimerGrants, plat.TimerRestores)
	assert.Equal(t, 2, plat.MaskCalls)
}
