package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"automodel/internal/cad"
	"automodel/internal/events"
	"automodel/internal/history"
	"automodel/internal/llm/client"
	"automodel/internal/llm/prompt"
	"automodel/internal/mesh"
	"automodel/internal/models"
)

// Transcript speakers.
const (
	SpeakerYou = "you"
	SpeakerApp = "automodel"
)

// ErrGenerationInFlight is returned when an operation that would start or
// replay a generation arrives while a worker is still running.
var ErrGenerationInFlight = errors.New("a generation is already in progress")

// ScriptExecutor runs generated script text against the CAD kernel.
type ScriptExecutor interface {
	Execute(code string) (*cad.Solid, error)
}

// MeshStore converts solids to mesh artifacts and back.
type MeshStore interface {
	Export(solid *cad.Solid) (string, error)
	Import(path string) (*mesh.Handle, error)
	Save(h *mesh.Handle, path string) error
}

// GenerationService is the session controller. It owns the session state
// (current code, revision history, transcript, displayed mesh), enforces
// the at-most-one-in-flight-generation rule, and runs each generation in
// a single background goroutine whose outcome is applied back under the
// controller mutex and surfaced to the frontend as events.
type GenerationService struct {
	context  context.Context
	executor ScriptExecutor
	meshes   MeshStore
	keyring  *KeyringService
	settings AppSettingsService
	sessions ModelSessionService

	mu          sync.Mutex
	generator   client.Generator
	history     *history.History
	transcript  []models.TranscriptEntry
	currentCode string
	currentMesh *mesh.Handle
	generating  bool
}

func NewGenerationService(executor ScriptExecutor, meshes MeshStore, keyring *KeyringService, settings AppSettingsService, sessions ModelSessionService) *GenerationService {
	return &GenerationService{
		executor: executor,
		meshes:   meshes,
		keyring:  keyring,
		settings: settings,
		sessions: sessions,
		history:  history.New(),
	}
}

func (s *GenerationService) Startup(ctx context.Context) error {
	if s.executor == nil {
		return fmt.Errorf("script executor not configured")
	}
	if s.meshes == nil {
		return fmt.Errorf("mesh store not configured")
	}
	s.mu.Lock()
	s.context = ctx
	s.mu.Unlock()
	return nil
}

// SetGenerator overrides the lazily built Gemini client. Used by tests.
func (s *GenerationService) SetGenerator(g client.Generator) {
	s.mu.Lock()
	s.generator = g
	s.mu.Unlock()
}

// Generate starts a generation from a part description. With code already
// on screen the request becomes a revision of that code; otherwise it is
// a fresh generation.
func (s *GenerationService) Generate(description string) error {
	desc := strings.TrimSpace(description)
	if desc == "" {
		s.setStatus(events.EventError, "Please enter a description for the CAD part.")
		return fmt.Errorf("description is required")
	}
	s.mu.Lock()
	existing := s.currentCode
	s.mu.Unlock()
	return s.start(prompt.Request{Description: desc, ExistingCode: existing}, desc)
}

// GenerateFromSketch starts a generation from an uploaded sketch image.
// The free description is ignored in this mode.
func (s *GenerationService) GenerateFromSketch(imagePath string) error {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		msg := fmt.Sprintf("Error uploading sketch: %v", err)
		s.appendTranscript(events.EventError, SpeakerApp, msg)
		s.setStatus(events.EventError, msg)
		return fmt.Errorf("read sketch image: %w", err)
	}
	req := prompt.Request{
		Description: prompt.SketchDescription,
		Image:       data,
		ImageMIME:   sketchMIME(imagePath),
	}
	return s.start(req, "Uploaded sketch: "+filepath.Base(imagePath))
}

func sketchMIME(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "image/png"
	}
}

// start enforces the single-flight rule, records the user's turn in the
// transcript, clears the viewer and spawns the worker goroutine.
func (s *GenerationService) start(req prompt.Request, userLine string) error {
	gen, err := s.acquireGenerator()
	if err != nil {
		s.appendTranscript(events.EventError, SpeakerApp, "Error: "+err.Error())
		s.setStatus(events.EventError, err.Error())
		return err
	}

	s.mu.Lock()
	if s.generating {
		s.mu.Unlock()
		events.Emit(s.ctx(), events.GenerationBusy, events.NewWarn("A generation is already in progress."))
		return ErrGenerationInFlight
	}
	s.generating = true
	s.mu.Unlock()

	s.appendTranscript(events.EventInfo, SpeakerYou, userLine)
	events.Emit(s.ctx(), events.ViewerCleared, events.NewInfo("Generating model, please wait..."))
	s.setStatus(events.EventInfo, "Generating model, please wait...")

	go s.run(gen, req)
	return nil
}

// acquireGenerator returns the configured generator, building the Gemini
// client on first use from the keyring (or the environment fallback).
func (s *GenerationService) acquireGenerator() (client.Generator, error) {
	s.mu.Lock()
	gen := s.generator
	s.mu.Unlock()
	if gen != nil {
		return gen, nil
	}

	apiKey := ""
	if s.keyring != nil {
		if key, err := s.keyring.GetApiKey(GeminiProvider); err == nil {
			apiKey = key
		}
	}
	if strings.TrimSpace(apiKey) == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("no Gemini API key configured. Add one in the settings or set GEMINI_API_KEY")
	}

	model := ""
	if s.settings != nil {
		if st, err := s.settings.Get(); err == nil {
			model = st.ModelName
		}
	}

	built, err := client.NewGeminiClient(s.ctx(), apiKey, client.GeminiOptions{Model: model})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.generator == nil {
		s.generator = built
	}
	gen = s.generator
	s.mu.Unlock()
	return gen, nil
}

// run is the generation worker. It performs the network call, the script
// execution and the mesh export sequentially, then applies exactly one of
// the two terminal outcomes. A recovered panic here is an orchestration
// defect: it is reported like any failure instead of crashing the app.
func (s *GenerationService) run(gen client.Generator, req prompt.Request) {
	defer func() {
		if r := recover(); r != nil {
			s.finishFailed(fmt.Sprintf("unexpected internal error: %v", r))
		}
	}()

	code, err := gen.GenerateCode(s.ctx(), req)
	if err != nil {
		s.finishFailed(err.Error())
		return
	}
	if strings.TrimSpace(code) == "" {
		s.finishFailed("no modeling code available for execution")
		return
	}
	s.codeParsed(code)

	solid, err := s.executor.Execute(code)
	if err != nil {
		// executor failures already carry the full script text
		s.finishFailed(err.Error())
		return
	}

	path, err := s.meshes.Export(solid)
	if err != nil {
		s.finishFailed(fmt.Sprintf("failed to export model mesh: %v", err))
		return
	}
	handle, err := s.meshes.Import(path) // the temp artifact is deleted by the import
	if err != nil {
		s.finishFailed(fmt.Sprintf("failed to load model mesh: %v", err))
		return
	}

	s.finishModel(code, handle)
}

// codeParsed records the cleaned script as the current code and notifies
// the frontend. This happens before execution so a failed run still
// leaves the attempted code inspectable.
func (s *GenerationService) codeParsed(code string) {
	s.mu.Lock()
	s.currentCode = code
	s.mu.Unlock()
	events.Emit(s.ctx(), events.GenerationCode, events.NewInfo(code))
}

func (s *GenerationService) finishFailed(reason string) {
	s.mu.Lock()
	s.generating = false
	s.mu.Unlock()

	s.appendTranscript(events.EventError, SpeakerApp, "Error: "+reason)
	events.Emit(s.ctx(), events.GenerationFailed, events.NewError(reason))
	s.setStatus(events.EventError, reason)
}

func (s *GenerationService) finishModel(code string, handle *mesh.Handle) {
	s.mu.Lock()
	s.generating = false
	s.currentMesh = handle
	if strings.TrimSpace(code) != "" {
		s.history.Push(code)
	}
	s.mu.Unlock()

	evt := events.NewSuccess("Model generated and displayed successfully!")
	evt.Mesh = handle.Data()
	events.Emit(s.ctx(), events.GenerationModel, evt)
	s.appendTranscript(events.EventSuccess, SpeakerApp, "Model generated successfully!")
	s.setStatus(events.EventSuccess, "Model generated and displayed successfully!")
}

// Undo steps the history back one snapshot and replays it locally, with
// no network call. Disallowed while a generation is running.
func (s *GenerationService) Undo() error {
	s.mu.Lock()
	if s.generating {
		s.mu.Unlock()
		return ErrGenerationInFlight
	}
	code, ok := s.history.Undo()
	if !ok {
		s.mu.Unlock()
		s.setStatus(events.EventWarn, "No more actions to undo.")
		return nil
	}
	s.currentCode = code
	s.mu.Unlock()

	s.appendTranscript(events.EventInfo, SpeakerApp, "Undoing last change.")
	return s.replay(code)
}

// Redo steps the history forward one snapshot and replays it locally.
func (s *GenerationService) Redo() error {
	s.mu.Lock()
	if s.generating {
		s.mu.Unlock()
		return ErrGenerationInFlight
	}
	code, ok := s.history.Redo()
	if !ok {
		s.mu.Unlock()
		s.setStatus(events.EventWarn, "No more actions to redo.")
		return nil
	}
	s.currentCode = code
	s.mu.Unlock()

	s.appendTranscript(events.EventInfo, SpeakerApp, "Redoing last change.")
	return s.replay(code)
}

// replay executes a stored snapshot and refreshes the viewer. It runs
// synchronously on the caller's goroutine since there is no network I/O.
func (s *GenerationService) replay(code string) error {
	solid, err := s.executor.Execute(code)
	if err != nil {
		s.appendTranscript(events.EventError, SpeakerApp, "Error: "+err.Error())
		s.setStatus(events.EventError, err.Error())
		return err
	}
	path, err := s.meshes.Export(solid)
	if err != nil {
		s.setStatus(events.EventError, fmt.Sprintf("failed to export model mesh: %v", err))
		return err
	}
	handle, err := s.meshes.Import(path)
	if err != nil {
		s.setStatus(events.EventError, fmt.Sprintf("failed to load model mesh: %v", err))
		return err
	}

	s.mu.Lock()
	s.currentMesh = handle
	s.mu.Unlock()

	evt := events.NewSuccess("Model displayed successfully!")
	evt.Mesh = handle.Data()
	events.Emit(s.ctx(), events.GenerationModel, evt)
	s.setStatus(events.EventSuccess, "Model displayed successfully!")
	return nil
}

// NewSession resets the whole session. The frontend asks the user for
// confirmation before calling this.
func (s *GenerationService) NewSession() {
	s.resetState("New session started. Enter a description to generate a new model.")
}

// ClearModel clears the viewer, the stored code and the transcript.
func (s *GenerationService) ClearModel() {
	s.resetState("Model cleared from viewer.")
}

func (s *GenerationService) resetState(status string) {
	s.mu.Lock()
	s.currentCode = ""
	s.currentMesh = nil
	s.transcript = nil
	s.history.Reset()
	s.mu.Unlock()

	events.Emit(s.ctx(), events.ViewerCleared, events.NewInfo(status))
	s.setStatus(events.EventInfo, status)
}

// OpenModelFile loads a mesh file directly, bypassing generation. The
// code history is terminated: a loaded mesh is not re-derivable from
// script, so the next generation starts fresh.
func (s *GenerationService) OpenModelFile(path string) error {
	s.mu.Lock()
	if s.generating {
		s.mu.Unlock()
		return ErrGenerationInFlight
	}
	s.mu.Unlock()

	handle, err := s.meshes.Import(path) // user-chosen path, never deleted
	if err != nil {
		msg := fmt.Sprintf("Error opening STL file: %v", err)
		s.setStatus(events.EventError, msg)
		return err
	}

	s.mu.Lock()
	s.currentMesh = handle
	s.currentCode = ""
	s.history.Reset()
	s.mu.Unlock()

	name := filepath.Base(path)
	evt := events.NewSuccess("Loaded model from: " + name)
	evt.Mesh = handle.Data()
	events.Emit(s.ctx(), events.GenerationModel, evt)
	s.appendTranscript(events.EventInfo, SpeakerApp, "--- Loaded STL: "+name+" ---")
	s.appendTranscript(events.EventWarn, SpeakerApp,
		"Note: further prompts will generate NEW models, as direct modification of loaded meshes is not supported.")
	s.setStatus(events.EventSuccess, "Loaded model from: "+name)
	return nil
}

// SaveModelAs writes the currently displayed mesh to a permanent path.
func (s *GenerationService) SaveModelAs(path string) error {
	s.mu.Lock()
	handle := s.currentMesh
	s.mu.Unlock()
	if handle == nil {
		s.setStatus(events.EventError, "No model to save.")
		return fmt.Errorf("no model to save")
	}
	if err := s.meshes.Save(handle, path); err != nil {
		s.setStatus(events.EventError, fmt.Sprintf("Error saving model: %v", err))
		return err
	}
	s.setStatus(events.EventSuccess, "Model saved successfully to: "+filepath.Base(path))
	return nil
}

// SaveSession persists the transcript, snapshots and cursor under a name.
func (s *GenerationService) SaveSession(name string) error {
	if s.sessions == nil {
		return fmt.Errorf("session service not available")
	}
	s.mu.Lock()
	snapshots := s.history.Snapshots()
	cursor := s.history.Cursor()
	code := s.currentCode
	transcript := make([]models.TranscriptEntry, len(s.transcript))
	copy(transcript, s.transcript)
	s.mu.Unlock()

	snapJSON, err := json.Marshal(snapshots)
	if err != nil {
		return err
	}
	trJSON, err := json.Marshal(transcript)
	if err != nil {
		return err
	}
	_, err = s.sessions.Save(name, code, string(snapJSON), cursor, string(trJSON))
	return err
}

// LoadSession restores a persisted session and replays its current code.
func (s *GenerationService) LoadSession(name string) error {
	if s.sessions == nil {
		return fmt.Errorf("session service not available")
	}
	sess, err := s.sessions.Load(name)
	if err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("session %q not found", name)
	}

	var snapshots []string
	if sess.SnapshotsJSON != "" {
		if err := json.Unmarshal([]byte(sess.SnapshotsJSON), &snapshots); err != nil {
			return fmt.Errorf("corrupt session snapshots: %w", err)
		}
	}
	var transcript []models.TranscriptEntry
	if sess.TranscriptJSON != "" {
		if err := json.Unmarshal([]byte(sess.TranscriptJSON), &transcript); err != nil {
			return fmt.Errorf("corrupt session transcript: %w", err)
		}
	}

	s.mu.Lock()
	if s.generating {
		s.mu.Unlock()
		return ErrGenerationInFlight
	}
	s.history.Restore(snapshots, sess.Cursor)
	s.currentCode = sess.CurrentCode
	s.currentMesh = nil
	s.transcript = transcript
	s.mu.Unlock()

	events.Emit(s.ctx(), events.ViewerCleared, events.NewInfo("Session restored: "+name))
	if strings.TrimSpace(sess.CurrentCode) != "" {
		return s.replay(sess.CurrentCode)
	}
	return nil
}

func (s *GenerationService) IsGenerating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generating
}

func (s *GenerationService) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanUndo()
}

func (s *GenerationService) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanRedo()
}

func (s *GenerationService) CurrentCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentCode
}

// CurrentMesh returns the displayed mesh in viewer form, or nil.
func (s *GenerationService) CurrentMesh() *mesh.MeshData {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentMesh == nil {
		return nil
	}
	return s.currentMesh.Data()
}

func (s *GenerationService) Transcript() []models.TranscriptEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.TranscriptEntry, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// HistoryLen and HistoryCursor expose the revision stack shape for the
// toolbar's undo/redo enablement.
func (s *GenerationService) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Len()
}

func (s *GenerationService) HistoryCursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Cursor()
}

func (s *GenerationService) ctx() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.context != nil {
		return s.context
	}
	return context.Background()
}

func (s *GenerationService) appendTranscript(eventType events.EventType, speaker, message string) {
	entry := models.TranscriptEntry{
		Speaker:   speaker,
		Message:   message,
		CreatedAt: time.Now().Format(time.RFC3339),
	}
	s.mu.Lock()
	s.transcript = append(s.transcript, entry)
	s.mu.Unlock()

	evt := newTypedEvent(eventType, message)
	evt.Speaker = speaker
	events.Emit(s.ctx(), events.Transcript, evt)
}

func (s *GenerationService) setStatus(eventType events.EventType, message string) {
	events.Emit(s.ctx(), events.Status, newTypedEvent(eventType, message))
}

func newTypedEvent(eventType events.EventType, message string) events.GenerationEvent {
	switch eventType {
	case events.EventError:
		return events.NewError(message)
	case events.EventWarn:
		return events.NewWarn(message)
	case events.EventSuccess:
		return events.NewSuccess(message)
	default:
		return events.NewInfo(message)
	}
}
