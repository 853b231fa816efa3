package events

import (
	"context"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// Emit delivers an event to the frontend. It is a package variable so the
// session controller can run headless in tests: the default is a no-op
// until EnableRuntimeEmitter or SetCustomEmitter is called.
var Emit = func(ctx context.Context, name string, evt GenerationEvent) {}

// EnableRuntimeEmitter routes events through the Wails runtime, which
// marshals them onto the frontend's UI thread, and logs every payload.
func EnableRuntimeEmitter() {
	Emit = func(ctx context.Context, name string, evt GenerationEvent) {
		runtime.EventsEmit(ctx, name, evt)
		logRuntimeEvent(ctx, evt)
	}
}

// SetCustomEmitter replaces the emitter, or restores the no-op when f is
// nil. Used by tests to capture notifications.
func SetCustomEmitter(f func(ctx context.Context, name string, evt GenerationEvent)) {
	if f == nil {
		Emit = func(context.Context, string, GenerationEvent) {}
		return
	}
	Emit = f
}
