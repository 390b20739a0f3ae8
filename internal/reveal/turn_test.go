package reveal

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/stream"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testConfig() Config {
	return Config{Tick: 20 * time.Millisecond, CharsPerTick: 3, MinThinking: time.Second, Owner: "Ada"}
}

// stepUntilDone ticks the turn from start until it settles, checking the
// prefix and monotonic invariants at every tick.
func stepUntilDone(t *testing.T, turn *Turn, start time.Time, maxTicks int) time.Time {
	t.Helper()
	now := start
	prev := 0
	for i := 0; i < maxTicks && !turn.Done(); i++ {
		now = now.Add(20 * time.Millisecond)
		turn.Step(now)
		shown := turn.Displayed()
		require.True(t, strings.HasPrefix(turn.Full(), shown), "displayed %q not a prefix of %q", shown, turn.Full())
		require.GreaterOrEqual(t, len([]rune(shown)), prev)
		prev = len([]rune(shown))
	}
	require.True(t, turn.Done(), "turn did not settle within %d ticks", maxTicks)
	return now
}

func TestBuffer(t *testing.T) {
	var b Buffer
	b.Append("héllo")
	assert.Equal(t, 5, b.Len())
	assert.Equal(t, 3, b.Advance(3))
	assert.Equal(t, "hél", b.Displayed())
	assert.Equal(t, 2, b.Advance(3))
	assert.True(t, b.CaughtUp())
	assert.Equal(t, 0, b.Advance(3))

	b.Append("!")
	assert.False(t, b.CaughtUp())
	b.Snap()
	assert.Equal(t, "héllo!", b.Displayed())
	assert.Equal(t, 0, b.Advance(-1))
}

func TestTurn_ThinkingFloorHoldsForFastResponse(t *testing.T) {
	turn := NewTurn(testConfig(), t0)
	turn.Receive("Hi there")
	turn.End()

	for ms := 0; ms < 1000; ms += 20 {
		turn.Step(t0.Add(time.Duration(ms) * time.Millisecond))
		require.True(t, turn.Thinking(), "at %dms", ms)
		require.Empty(t, turn.Displayed())
		require.Empty(t, turn.Messages())
	}
	assert.Equal(t, 20*time.Millisecond, turn.thinkingLeft(t0.Add(980*time.Millisecond)))

	assert.True(t, turn.Step(t0.Add(time.Second)))
	assert.False(t, turn.Thinking())
	assert.Equal(t, Revealing, turn.State())
	assert.Equal(t, "Hi ", turn.Displayed())
}

func TestTurn_NoDelayWhenPastFloor(t *testing.T) {
	turn := NewTurn(testConfig(), t0)
	turn.Receive("slow")
	assert.True(t, turn.Step(t0.Add(3*time.Second)))
	assert.Equal(t, Revealing, turn.State())
	assert.Equal(t, "slo", turn.Displayed())
	assert.Equal(t, time.Duration(0), turn.thinkingLeft(t0.Add(3*time.Second)))
}

func TestTurn_WaitsForContent(t *testing.T) {
	turn := NewTurn(testConfig(), t0)
	assert.False(t, turn.Step(t0.Add(5*time.Second)))
	assert.True(t, turn.Thinking())
	assert.Equal(t, WaitingFirstContent, turn.State())
}

func TestTurn_RevealsAtFixedPaceThenSnaps(t *testing.T) {
	turn := NewTurn(testConfig(), t0)
	turn.Receive("I build ")
	turn.Receive("event-driven pipelines.")
	turn.End()

	turn.Step(t0.Add(time.Second))
	assert.Equal(t, "I b", turn.Displayed())
	turn.Step(t0.Add(time.Second + 20*time.Millisecond))
	assert.Equal(t, "I buil", turn.Displayed())

	stepUntilDone(t, turn, t0.Add(time.Second+20*time.Millisecond), 100)
	assert.Equal(t, Settled, turn.State())
	assert.Equal(t, turn.Full(), turn.Displayed())

	msgs := turn.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "I build event-driven pipelines.", msgs[0].Content)
	assert.False(t, msgs[0].IsError)
	assert.NotEmpty(t, msgs[0].ID)
}

func TestTurn_FragmentsArrivingDuringReveal(t *testing.T) {
	turn := NewTurn(testConfig(), t0)
	turn.Receive("ab")
	turn.Step(t0.Add(time.Second))
	assert.Equal(t, "ab", turn.Displayed())
	assert.Equal(t, Revealing, turn.State(), "caught up but not ended")

	turn.Receive("cdefgh")
	turn.Step(t0.Add(time.Second + 20*time.Millisecond))
	assert.Equal(t, "abcde", turn.Displayed())
	turn.End()
	stepUntilDone(t, turn, t0.Add(time.Second+20*time.Millisecond), 10)
	assert.Equal(t, "abcdefgh", turn.Displayed())
}

func TestTurn_EmptyResponseSettlesAfterFloor(t *testing.T) {
	turn := NewTurn(testConfig(), t0)
	turn.End()

	assert.False(t, turn.Step(t0.Add(500*time.Millisecond)))
	assert.True(t, turn.Thinking())

	assert.True(t, turn.Step(t0.Add(time.Second)))
	assert.Equal(t, Settled, turn.State())
	assert.False(t, turn.Thinking())
	assert.Empty(t, turn.Messages())
}

func TestTurn_FailureBeforeContentHonorsFloor(t *testing.T) {
	turn := NewTurn(testConfig(), t0)
	turn.Fail()

	assert.False(t, turn.Step(t0.Add(100*time.Millisecond)))
	assert.True(t, turn.Thinking())

	assert.True(t, turn.Step(t0.Add(time.Second)))
	assert.Equal(t, ErrorSettled, turn.State())
	msgs := turn.Messages()
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].IsError)
	assert.Equal(t, ErrorText("Ada"), msgs[0].Content)
}

func TestTurn_FailureMidStreamKeepsDisplayedContent(t *testing.T) {
	turn := NewTurn(testConfig(), t0)
	turn.Receive("Partial answer that never finishes")
	turn.Step(t0.Add(time.Second))
	turn.Step(t0.Add(time.Second + 20*time.Millisecond))
	shown := turn.Displayed()
	require.Equal(t, "Partia", shown)

	turn.Fail()
	assert.True(t, turn.Step(t0.Add(time.Second+40*time.Millisecond)))
	assert.Equal(t, ErrorSettled, turn.State())
	assert.Equal(t, shown, turn.Displayed(), "no characters lost or duplicated")

	msgs := turn.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, shown, msgs[0].Content)
	assert.False(t, msgs[0].IsError)
	assert.True(t, msgs[1].IsError)

	turn.Receive(" more")
	assert.False(t, turn.Step(t0.Add(2*time.Second)))
	assert.Equal(t, shown, turn.Displayed())
}

func TestTurn_StopPreventsUpdates(t *testing.T) {
	turn := NewTurn(testConfig(), t0)
	turn.Receive("hello")
	turn.Step(t0.Add(time.Second))
	turn.Stop()

	turn.Receive(" world")
	turn.End()
	assert.False(t, turn.Step(t0.Add(2*time.Second)))
	assert.Equal(t, "hel", turn.Displayed())
	assert.True(t, turn.Done())
	assert.False(t, turn.Thinking())
}

func TestTurn_MultibyteNeverSplit(t *testing.T) {
	turn := NewTurn(testConfig(), t0)
	turn.Receive("日本語のテキスト")
	turn.End()
	turn.Step(t0.Add(time.Second))
	assert.Equal(t, "日本語", turn.Displayed())
	stepUntilDone(t, turn, t0.Add(time.Second), 10)
	assert.Equal(t, "日本語のテキスト", turn.Displayed())
}

func TestConfigDefaults(t *testing.T) {
	c := Config{MinThinking: -time.Second}.withDefaults()
	assert.Equal(t, 20*time.Millisecond, c.Tick)
	assert.Equal(t, 3, c.CharsPerTick)
	assert.Equal(t, time.Duration(0), c.MinThinking)
	assert.Contains(t, ErrorText(""), "let the owner know")
}

func fastConfig() Config {
	return Config{Tick: time.Millisecond, CharsPerTick: 4, MinThinking: 30 * time.Millisecond, Owner: "Ada"}
}

func TestRun_Completes(t *testing.T) {
	events := make(chan stream.Event, 4)
	events <- stream.Event{Content: "Hello, "}
	events <- stream.Event{Content: "world"}
	events <- stream.Event{Done: true}
	close(events)

	var updates []Snapshot
	start := time.Now()
	snap, err := Run(context.Background(), fastConfig(), events, func(s Snapshot) { updates = append(updates, s) })
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.Equal(t, Settled, snap.State)
	assert.Equal(t, "Hello, world", snap.Displayed)
	require.NotEmpty(t, updates)
	assert.True(t, updates[0].Thinking)

	prev := ""
	for _, u := range updates {
		assert.True(t, strings.HasPrefix(u.Displayed, prev))
		prev = u.Displayed
	}
}

func TestRun_ClosedWithoutDoneIsFailure(t *testing.T) {
	events := make(chan stream.Event, 2)
	events <- stream.Event{Content: "half"}
	close(events)

	snap, err := Run(context.Background(), fastConfig(), events, nil)
	require.NoError(t, err)
	assert.Equal(t, ErrorSettled, snap.State)
	require.NotEmpty(t, snap.Messages)
	assert.True(t, snap.Messages[len(snap.Messages)-1].IsError)
}

func TestRun_Cancelled(t *testing.T) {
	events := make(chan stream.Event)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	snap, err := Run(ctx, fastConfig(), events, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, snap.Thinking)
}
