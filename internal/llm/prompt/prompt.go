// Package prompt builds the instruction payload sent to the language
// model. Three modes exist; the mode is inferred from which optional
// request fields are populated, and every mode carries the same code
// contract clause.
package prompt

import (
	"embed"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// embeddedPrompts holds the built-in prompt templates so packaged
// executables can load them without access to the source tree.
//
//go:embed prompts/*.txt
var embeddedPrompts embed.FS

type Mode int

const (
	ModeFresh Mode = iota
	ModeRevision
	ModeFromImage
)

func (m Mode) String() string {
	switch m {
	case ModeRevision:
		return "revision"
	case ModeFromImage:
		return "from-image"
	default:
		return "fresh"
	}
}

// SketchDescription is the fixed placeholder used in place of the free
// description when generating from an uploaded sketch image.
const SketchDescription = "Generate a 3D model from the uploaded sketch"

// Request describes one generation. At most one of ExistingCode and Image
// is set; the populated field decides the mode. Immutable once handed to
// a worker.
type Request struct {
	Description  string
	ExistingCode string
	Image        []byte
	ImageMIME    string
}

// Mode infers the generation mode: an image wins over existing code,
// existing code wins over a fresh description.
func (r Request) Mode() Mode {
	if len(r.Image) > 0 {
		return ModeFromImage
	}
	if strings.TrimSpace(r.ExistingCode) != "" {
		return ModeRevision
	}
	return ModeFresh
}

// Build produces the generateContent payload for the request.
func Build(req Request) ([]*genai.Content, error) {
	contract, err := loadTemplate("contract.txt")
	if err != nil {
		return nil, err
	}

	switch req.Mode() {
	case ModeFromImage:
		tpl, err := loadTemplate("sketch.txt")
		if err != nil {
			return nil, err
		}
		mime := req.ImageMIME
		if mime == "" {
			mime = "image/png"
		}
		parts := []*genai.Part{
			genai.NewPartFromText(fmt.Sprintf(tpl, contract)),
			genai.NewPartFromBytes(req.Image, mime),
		}
		return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, nil

	case ModeRevision:
		desc := strings.TrimSpace(req.Description)
		if desc == "" {
			return nil, fmt.Errorf("a description of the changes is required")
		}
		tpl, err := loadTemplate("revision.txt")
		if err != nil {
			return nil, err
		}
		text := fmt.Sprintf(tpl, contract, req.ExistingCode, desc)
		return []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, nil

	default:
		desc := strings.TrimSpace(req.Description)
		if desc == "" {
			return nil, fmt.Errorf("a part description is required")
		}
		tpl, err := loadTemplate("fresh.txt")
		if err != nil {
			return nil, err
		}
		text := fmt.Sprintf(tpl, contract, desc)
		return []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, nil
	}
}

func loadTemplate(name string) (string, error) {
	data, err := embeddedPrompts.ReadFile("prompts/" + name)
	if err != nil {
		return "", fmt.Errorf("load prompt template %s: %w", name, err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}
