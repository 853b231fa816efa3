package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"automodel/internal/cadscript"
	"automodel/internal/events"
	"automodel/internal/llm/prompt"
	"automodel/internal/mesh"
)

const boxScript = `result = cad.Workplane("XY").Box(10, 20, 30)`
const tallBoxScript = `result = cad.Workplane("XY").Box(10, 20, 60)`

type stubGenerator struct {
	GenerateFunc func(ctx context.Context, req prompt.Request) (string, error)
}

func (s *stubGenerator) GenerateCode(ctx context.Context, req prompt.Request) (string, error) {
	return s.GenerateFunc(ctx, req)
}

// eventRecorder captures emitted events so tests can wait for the
// worker's terminal notification.
type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	name string
	evt  events.GenerationEvent
}

func newEventRecorder(t *testing.T) *eventRecorder {
	t.Helper()
	r := &eventRecorder{}
	events.SetCustomEmitter(func(ctx context.Context, name string, evt events.GenerationEvent) {
		r.mu.Lock()
		r.events = append(r.events, recordedEvent{name: name, evt: evt})
		r.mu.Unlock()
	})
	t.Cleanup(func() { events.SetCustomEmitter(nil) })
	return r
}

func (r *eventRecorder) waitFor(t *testing.T, names ...string) recordedEvent {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		r.mu.Lock()
		for _, rec := range r.events {
			for _, name := range names {
				if rec.name == name {
					r.mu.Unlock()
					return rec
				}
			}
		}
		r.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no %v event within deadline", names)
	return recordedEvent{}
}

func (r *eventRecorder) clear() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

func newTestService(t *testing.T, gen *stubGenerator) *GenerationService {
	t.Helper()
	svc := NewGenerationService(cadscript.New(), mesh.NewStore(), nil, nil, nil)
	require.NoError(t, svc.Startup(context.Background()))
	if gen != nil {
		svc.SetGenerator(gen)
	}
	return svc
}

func scriptedGenerator(scripts ...string) *stubGenerator {
	i := 0
	return &stubGenerator{
		GenerateFunc: func(ctx context.Context, req prompt.Request) (string, error) {
			if i >= len(scripts) {
				return "", fmt.Errorf("unexpected extra generation")
			}
			s := scripts[i]
			i++
			return s, nil
		},
	}
}

func generateAndWait(t *testing.T, rec *eventRecorder, svc *GenerationService, description string) {
	t.Helper()
	rec.clear()
	require.NoError(t, svc.Generate(description))
	done := rec.waitFor(t, events.GenerationModel, events.GenerationFailed)
	require.Equal(t, events.GenerationModel, done.name, "generation failed: %s", done.evt.Message)
}

func TestGenerate_FreshSuccess(t *testing.T) {
	rec := newEventRecorder(t)
	svc := newTestService(t, scriptedGenerator(boxScript))

	generateAndWait(t, rec, svc, "a box 10 by 20 by 30")

	assert.Equal(t, boxScript, svc.CurrentCode())
	assert.Equal(t, 1, svc.HistoryLen())
	assert.Equal(t, 0, svc.HistoryCursor())
	assert.False(t, svc.IsGenerating())
	require.NotNil(t, svc.CurrentMesh())
	assert.Equal(t, 12, svc.CurrentMesh().TriangleCount)
}

func TestGenerate_SecondPromptIsRevision(t *testing.T) {
	rec := newEventRecorder(t)

	var modes []prompt.Mode
	gen := &stubGenerator{
		GenerateFunc: func(ctx context.Context, req prompt.Request) (string, error) {
			modes = append(modes, req.Mode())
			if len(modes) == 1 {
				return boxScript, nil
			}
			return tallBoxScript, nil
		},
	}
	svc := newTestService(t, gen)

	generateAndWait(t, rec, svc, "a box")
	generateAndWait(t, rec, svc, "make it taller")

	require.Len(t, modes, 2)
	assert.Equal(t, prompt.ModeFresh, modes[0])
	assert.Equal(t, prompt.ModeRevision, modes[1])
	assert.Equal(t, 2, svc.HistoryLen())
}

func TestGenerate_RejectsBlankDescription(t *testing.T) {
	newEventRecorder(t)
	svc := newTestService(t, scriptedGenerator(boxScript))

	assert.Error(t, svc.Generate("   "))
	assert.False(t, svc.IsGenerating())
}

func TestGenerate_RejectsConcurrentRequest(t *testing.T) {
	rec := newEventRecorder(t)

	release := make(chan struct{})
	gen := &stubGenerator{
		GenerateFunc: func(ctx context.Context, req prompt.Request) (string, error) {
			<-release
			return boxScript, nil
		},
	}
	svc := newTestService(t, gen)

	require.NoError(t, svc.Generate("a box"))
	assert.ErrorIs(t, svc.Generate("another box"), ErrGenerationInFlight)
	assert.ErrorIs(t, svc.Undo(), ErrGenerationInFlight)

	close(release)
	done := rec.waitFor(t, events.GenerationModel, events.GenerationFailed)
	assert.Equal(t, events.GenerationModel, done.name)
	assert.Equal(t, 1, svc.HistoryLen())
}

func TestGenerate_NetworkFailureReportedInTranscript(t *testing.T) {
	rec := newEventRecorder(t)
	gen := &stubGenerator{
		GenerateFunc: func(ctx context.Context, req prompt.Request) (string, error) {
			return "", fmt.Errorf("network connection error: could not reach the Gemini API. Please check your internet connection.")
		},
	}
	svc := newTestService(t, gen)

	require.NoError(t, svc.Generate("a box"))
	failed := rec.waitFor(t, events.GenerationModel, events.GenerationFailed)
	require.Equal(t, events.GenerationFailed, failed.name)

	assert.False(t, svc.IsGenerating())
	assert.Equal(t, 0, svc.HistoryLen(), "failed generations must not enter history")

	transcript := svc.Transcript()
	require.NotEmpty(t, transcript)
	last := transcript[len(transcript)-1]
	assert.Equal(t, SpeakerApp, last.Speaker)
	assert.Contains(t, last.Message, "Error: ")
}

func TestGenerate_BadScriptKeepsCodeOutOfHistory(t *testing.T) {
	rec := newEventRecorder(t)
	svc := newTestService(t, scriptedGenerator(`result = 5`))

	require.NoError(t, svc.Generate("a box"))
	failed := rec.waitFor(t, events.GenerationModel, events.GenerationFailed)
	require.Equal(t, events.GenerationFailed, failed.name)

	assert.Contains(t, failed.evt.Message, "result")
	assert.Contains(t, failed.evt.Message, "Generated code:")
	assert.Equal(t, 0, svc.HistoryLen())
	// the attempted code stays visible for inspection
	assert.Equal(t, `result = 5`, svc.CurrentCode())
}

func TestUndoRedo_ReplaysSnapshots(t *testing.T) {
	rec := newEventRecorder(t)
	svc := newTestService(t, scriptedGenerator(boxScript, tallBoxScript))

	generateAndWait(t, rec, svc, "a box")
	generateAndWait(t, rec, svc, "make it taller")
	require.Equal(t, tallBoxScript, svc.CurrentCode())

	rec.clear()
	require.NoError(t, svc.Undo())
	assert.Equal(t, boxScript, svc.CurrentCode())
	rec.waitFor(t, events.GenerationModel)
	assert.True(t, svc.CanRedo())

	rec.clear()
	require.NoError(t, svc.Redo())
	assert.Equal(t, tallBoxScript, svc.CurrentCode())
	rec.waitFor(t, events.GenerationModel)
	assert.False(t, svc.CanRedo())
}

func TestUndo_AtBoundaryIsNoOp(t *testing.T) {
	rec := newEventRecorder(t)
	svc := newTestService(t, scriptedGenerator(boxScript))

	generateAndWait(t, rec, svc, "a box")

	require.NoError(t, svc.Undo())
	assert.Equal(t, boxScript, svc.CurrentCode(), "single snapshot must stay displayed")
	assert.Equal(t, 0, svc.HistoryCursor())

	require.NoError(t, svc.Redo())
	assert.Equal(t, 0, svc.HistoryCursor())
}

func TestGenerate_AfterUndoPrunesRedoBranch(t *testing.T) {
	rec := newEventRecorder(t)
	svc := newTestService(t, scriptedGenerator(boxScript, tallBoxScript, boxScript))

	generateAndWait(t, rec, svc, "a box")
	generateAndWait(t, rec, svc, "make it taller")
	require.NoError(t, svc.Undo())

	generateAndWait(t, rec, svc, "make it wider instead")

	assert.Equal(t, 2, svc.HistoryLen())
	assert.Equal(t, 1, svc.HistoryCursor())
	assert.False(t, svc.CanRedo())
}

func TestNewSession_ClearsEverything(t *testing.T) {
	rec := newEventRecorder(t)
	svc := newTestService(t, scriptedGenerator(boxScript))

	generateAndWait(t, rec, svc, "a box")
	svc.NewSession()

	assert.Empty(t, svc.CurrentCode())
	assert.Nil(t, svc.CurrentMesh())
	assert.Empty(t, svc.Transcript())
	assert.Equal(t, 0, svc.HistoryLen())
}

func TestSaveModelAs_WithoutModelFails(t *testing.T) {
	newEventRecorder(t)
	svc := newTestService(t, scriptedGenerator(boxScript))

	err := svc.SaveModelAs(filepath.Join(t.TempDir(), "out.stl"))
	assert.Error(t, err)
}

func TestOpenModelFile_ResetsCodeAndHistory(t *testing.T) {
	rec := newEventRecorder(t)
	svc := newTestService(t, scriptedGenerator(boxScript, boxScript))

	generateAndWait(t, rec, svc, "a box")

	saved := filepath.Join(t.TempDir(), "part.stl")
	require.NoError(t, svc.SaveModelAs(saved))

	require.NoError(t, svc.OpenModelFile(saved))
	assert.Empty(t, svc.CurrentCode())
	assert.Equal(t, 0, svc.HistoryLen())
	require.NotNil(t, svc.CurrentMesh())
	assert.FileExists(t, saved, "opened files must not be deleted")

	// the next prompt starts fresh since there is no code to revise
	var mode prompt.Mode
	svc.SetGenerator(&stubGenerator{
		GenerateFunc: func(ctx context.Context, req prompt.Request) (string, error) {
			mode = req.Mode()
			return boxScript, nil
		},
	})
	generateAndWait(t, rec, svc, "a different part")
	assert.Equal(t, prompt.ModeFresh, mode)
}

func TestGenerate_WithoutKeyOrGeneratorFails(t *testing.T) {
	newEventRecorder(t)
	t.Setenv("GEMINI_API_KEY", "")
	svc := newTestService(t, nil)

	err := svc.Generate("a box")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}
