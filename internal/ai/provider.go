package ai

import (
	"context"
	"fmt"
	"strings"
)

// Wire roles the generation backend understands.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Part is one piece of a turn: either plain text or a reference to a file
// held by the backend's file service.
type Part struct {
	Text     string
	FileURI  string
	MIMEType string
}

// Turn is a single conversation entry in backend wire form.
type Turn struct {
	Role  string
	Parts []Part
}

// Request carries everything one generation call needs.
type Request struct {
	Model           string
	Instructions    string
	Turns           []Turn
	SearchGrounding bool
}

// StreamChunk is one fragment of a streamed generation. A chunk with Err set
// terminates the stream.
type StreamChunk struct {
	Text string
	Err  error
}

// Uploaded describes a file stored with the backend's file service.
type Uploaded struct {
	URI      string
	MimeType string
}

// Generator produces model responses and stores attachment files.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req *Request) (string, error)
	GenerateStream(ctx context.Context, req *Request) (<-chan StreamChunk, error)
	Upload(ctx context.Context, path string, mime string) (*Uploaded, error)
}

type GeneratorFactory func(args interface{}) (Generator, error)

var registry = map[string]GeneratorFactory{}

func Register(name string, factory GeneratorFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func NewProvider(name string, args interface{}) (Generator, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported ai provider: %s", name)
	}
	return factory(args)
}
