package main

import (
	"context"
	"fmt"

	"automodel/internal/mesh"
	"automodel/internal/models"
	"automodel/internal/services"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// App struct
type App struct {
	ctx        context.Context
	Generation *services.GenerationService
	Settings   services.AppSettingsService
	dbClose    func() error
}

// NewApp creates a new App application struct
func NewApp() *App {
	return &App{}
}

// startup is called when the app starts. The context is saved
// so we can call the runtime methods
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	if a.Generation != nil {
		if err := a.Generation.Startup(ctx); err != nil {
			runtime.LogError(a.ctx, fmt.Sprintf("failed to start generation service: %v", err))
		}
	}
}

// shutdown is called when the app is closing. Clean up resources here.
func (a *App) shutdown(ctx context.Context) {
	if a.dbClose != nil {
		if err := a.dbClose(); err != nil {
			runtime.LogError(ctx, fmt.Sprintf("failed to close database: %v", err))
		} else {
			runtime.LogInfo(ctx, "database closed")
		}
		a.dbClose = nil
	}
}

// GenerateModel starts a generation from a free-text part description.
func (a *App) GenerateModel(description string) error {
	if a.Generation == nil {
		return fmt.Errorf("generation service not available")
	}
	return a.Generation.Generate(description)
}

// UploadSketch opens a native image picker and starts a generation from
// the chosen sketch.
func (a *App) UploadSketch() error {
	if a.Generation == nil {
		return fmt.Errorf("generation service not available")
	}
	path, err := runtime.OpenFileDialog(a.ctx, runtime.OpenDialogOptions{
		Title: "Select Sketch Image",
		Filters: []runtime.FileFilter{
			{DisplayName: "Images (*.png;*.jpg;*.jpeg)", Pattern: "*.png;*.jpg;*.jpeg"},
		},
	})
	if err != nil {
		return err
	}
	if path == "" {
		return nil
	}
	return a.Generation.GenerateFromSketch(path)
}

// UndoModel steps the revision history back and re-renders.
func (a *App) UndoModel() error {
	if a.Generation == nil {
		return fmt.Errorf("generation service not available")
	}
	return a.Generation.Undo()
}

// RedoModel steps the revision history forward and re-renders.
func (a *App) RedoModel() error {
	if a.Generation == nil {
		return fmt.Errorf("generation service not available")
	}
	return a.Generation.Redo()
}

// NewSession clears the model, code, transcript and history.
func (a *App) NewSession() error {
	if a.Generation == nil {
		return fmt.Errorf("generation service not available")
	}
	a.Generation.NewSession()
	return nil
}

// ClearModel removes the current model from the viewer.
func (a *App) ClearModel() error {
	if a.Generation == nil {
		return fmt.Errorf("generation service not available")
	}
	a.Generation.ClearModel()
	return nil
}

// OpenModelFile shows a native open dialog and loads the chosen STL file
// into the viewer.
func (a *App) OpenModelFile() error {
	if a.Generation == nil {
		return fmt.Errorf("generation service not available")
	}
	path, err := runtime.OpenFileDialog(a.ctx, runtime.OpenDialogOptions{
		Title: "Open STL File",
		Filters: []runtime.FileFilter{
			{DisplayName: "STL Files (*.stl)", Pattern: "*.stl"},
		},
	})
	if err != nil {
		return err
	}
	if path == "" {
		return nil
	}
	return a.Generation.OpenModelFile(path)
}

// SaveModelAs shows a native save dialog and writes the current model.
func (a *App) SaveModelAs() error {
	if a.Generation == nil {
		return fmt.Errorf("generation service not available")
	}
	path, err := runtime.SaveFileDialog(a.ctx, runtime.SaveDialogOptions{
		Title:           "Save Model As",
		DefaultFilename: "model.stl",
		Filters: []runtime.FileFilter{
			{DisplayName: "STL Files (*.stl)", Pattern: "*.stl"},
		},
	})
	if err != nil {
		return err
	}
	if path == "" {
		return nil
	}
	return a.Generation.SaveModelAs(path)
}

// GetCurrentCode returns the script backing the displayed model.
func (a *App) GetCurrentCode() string {
	if a.Generation == nil {
		return ""
	}
	return a.Generation.CurrentCode()
}

// GetCurrentMesh returns the displayed mesh for viewer re-initialization.
func (a *App) GetCurrentMesh() *mesh.MeshData {
	if a.Generation == nil {
		return nil
	}
	return a.Generation.CurrentMesh()
}

// GetTranscript returns the conversation log for the current session.
func (a *App) GetTranscript() []models.TranscriptEntry {
	if a.Generation == nil {
		return nil
	}
	return a.Generation.Transcript()
}

// GetHistoryState reports undo/redo availability for toolbar enablement.
func (a *App) GetHistoryState() map[string]bool {
	state := map[string]bool{"canUndo": false, "canRedo": false, "generating": false}
	if a.Generation != nil {
		state["canUndo"] = a.Generation.CanUndo()
		state["canRedo"] = a.Generation.CanRedo()
		state["generating"] = a.Generation.IsGenerating()
	}
	return state
}

// SaveSession persists the current session under a name.
func (a *App) SaveSession(name string) error {
	if a.Generation == nil {
		return fmt.Errorf("generation service not available")
	}
	return a.Generation.SaveSession(name)
}

// LoadSession restores a persisted session and re-renders its model.
func (a *App) LoadSession(name string) error {
	if a.Generation == nil {
		return fmt.Errorf("generation service not available")
	}
	return a.Generation.LoadSession(name)
}

// GetAppSettings returns the current application settings
func (a *App) GetAppSettings() (*models.AppSettings, error) {
	if a.Settings == nil {
		return nil, fmt.Errorf("app settings service not available")
	}
	return a.Settings.Get()
}
