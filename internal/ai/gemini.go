package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"google.golang.org/genai"

	appErr "github.com/xxxsen/gemchat/internal/pkg/errors"
)

type geminiConfig struct {
	APIKey string `json:"api_key"`
}

type geminiProvider struct {
	apiKey string
}

func (p *geminiProvider) Name() string {
	return "gemini"
}

func (p *geminiProvider) client(ctx context.Context) (*genai.Client, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("api key not configured")
	}
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
}

func (p *geminiProvider) Generate(ctx context.Context, req *Request) (string, error) {
	client, err := p.client(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", appErr.ErrAIUnavailable, err)
	}
	resp, err := client.Models.GenerateContent(ctx, req.Model, buildContents(req.Turns), buildGenConfig(req))
	if err != nil {
		return "", fmt.Errorf("%w: %v", appErr.ErrAIUnavailable, err)
	}
	return resp.Text(), nil
}

func (p *geminiProvider) GenerateStream(ctx context.Context, req *Request) (<-chan StreamChunk, error) {
	client, err := p.client(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrAIUnavailable, err)
	}
	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		for resp, err := range client.Models.GenerateContentStream(ctx, req.Model, buildContents(req.Turns), buildGenConfig(req)) {
			if err != nil {
				select {
				case out <- StreamChunk{Err: fmt.Errorf("%w: %v", appErr.ErrAIUnavailable, err)}:
				case <-ctx.Done():
				}
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			select {
			case out <- StreamChunk{Text: text}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Upload stores a local file with the backend file service. Paths containing
// non-ASCII runes go through an ASCII-named temp copy first. Upload failures
// are attachment errors, not ErrAIUnavailable.
func (p *geminiProvider) Upload(ctx context.Context, path string, mime string) (*Uploaded, error) {
	client, err := p.client(ctx)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %v", filepath.Base(path), err)
	}
	uploadPath := path
	if hasNonASCII(path) {
		tmpPath, cleanup, err := asciiTempCopy(path)
		if err == nil {
			uploadPath = tmpPath
			defer cleanup()
		}
	}
	file, err := client.Files.UploadFromPath(ctx, uploadPath, &genai.UploadFileConfig{MIMEType: mime})
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", filepath.Base(path), err)
	}
	return &Uploaded{URI: file.URI, MimeType: file.MIMEType}, nil
}

func buildContents(turns []Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		parts := make([]*genai.Part, 0, len(turn.Parts))
		for _, part := range turn.Parts {
			if part.FileURI != "" {
				parts = append(parts, &genai.Part{FileData: &genai.FileData{
					FileURI:  part.FileURI,
					MIMEType: part.MIMEType,
				}})
				continue
			}
			parts = append(parts, &genai.Part{Text: part.Text})
		}
		contents = append(contents, &genai.Content{Role: turn.Role, Parts: parts})
	}
	return contents
}

func buildGenConfig(req *Request) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if req.Instructions != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.Instructions}}}
	}
	if req.SearchGrounding {
		config.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	return config
}

var unsafeNameRegex = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func hasNonASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return true
		}
	}
	return false
}

func asciiTempCopy(path string) (string, func(), error) {
	dir, err := os.MkdirTemp("", "gemchat_upload_")
	if err != nil {
		return "", nil, err
	}
	dst := filepath.Join(dir, asciiSafeName(filepath.Base(path)))
	if err := copyFile(path, dst); err != nil {
		_ = os.RemoveAll(dir)
		return "", nil, err
	}
	return dst, func() { _ = os.RemoveAll(dir) }, nil
}

// asciiSafeName decomposes the stem, drops everything outside ASCII and
// collapses the leftovers to a conservative character set.
func asciiSafeName(base string) string {
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	var b strings.Builder
	for _, r := range norm.NFKD.String(stem) {
		if r <= unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	safe := strings.Trim(unsafeNameRegex.ReplaceAllString(b.String(), "_"), "._-")
	if safe == "" {
		safe = "file"
	}
	return safe + ext
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func createGeminiGenerator(args interface{}) (Generator, error) {
	cfg := &geminiConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	return &geminiProvider{apiKey: strings.TrimSpace(cfg.APIKey)}, nil
}

func init() {
	Register("gemini", createGeminiGenerator)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("ai provider config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode ai provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode ai provider config: %w", err)
	}
	return nil
}
