package workflow

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"autopub/internal/api"
)

// Backend is the subset of the remote API the executor drives.
type Backend interface {
	FetchContent(ctx context.Context, sourceURL string) (*api.ToolResponse, error)
	Polish(ctx context.Context, text, instruction string) (*api.ToolResponse, error)
	UploadImage(ctx context.Context, name string, data []byte) (*api.UploadResult, error)
	RenderImages(ctx context.Context, r api.RenderRequest) (*api.ToolResponse, error)
	GetCookies(ctx context.Context, platform string) (*api.CookieResult, error)
	LoadCookies(ctx context.Context, platform string) (*api.CookieResult, error)
	ValidateCookies(ctx context.Context, platform string) (*api.CookieResult, error)
	Publish(ctx context.Context, platform string, req api.PublishRequest) (*api.PublishResult, error)
	DownloadAsset(ctx context.Context, assetPath string) ([]byte, error)
}

const defaultTitleRunes = 20

var stepDefaultErrors = map[StepKind]string{
	KindCredential: "failed to acquire login cookies",
	KindFetch:      "failed to fetch article",
	KindPolish:     "failed to polish article",
	KindImages:     "failed to render images",
	KindMetadata:   "failed to generate title and tags",
	KindPublish:    "failed to publish",
}

type ExecutorOption func(*Executor)

// WithFileReader replaces os.ReadFile for loading the background image.
func WithFileReader(read func(string) ([]byte, error)) ExecutorOption {
	return func(e *Executor) { e.readFile = read }
}

// WithNormalizer replaces the fetched-content normalizer. Pass nil to keep
// fetched text untouched.
func WithNormalizer(normalize func(string) (string, error)) ExecutorOption {
	return func(e *Executor) { e.normalize = normalize }
}

func WithExecutorLogger(log *slog.Logger) ExecutorOption {
	return func(e *Executor) { e.log = log }
}

// Executor maps a step id to exactly one remote operation. It never returns
// an error: failures are reported through StepResult.
type Executor struct {
	backend   Backend
	readFile  func(string) ([]byte, error)
	normalize func(string) (string, error)
	log       *slog.Logger
}

func NewExecutor(backend Backend, opts ...ExecutorOption) *Executor {
	e := &Executor{
		backend:   backend,
		readFile:  os.ReadFile,
		normalize: NormalizeContent,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) Ready(st State, id StepID) error {
	return Ready(st, id)
}

// Ready reports whether the upstream outputs step id depends on are present.
func Ready(st State, id StepID) error {
	if _, ok := st.Step(id); !ok {
		return fmt.Errorf("%w: %q", ErrStepNotFound, id)
	}
	def, ok := LookupDef(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrStepNotFound, id)
	}
	unmet := func(reason string) error {
		return fmt.Errorf("%w: %s: %s", ErrPrecondition, id, reason)
	}
	d := st.Data
	switch def.Kind {
	case KindFetch:
		if strings.TrimSpace(d.SourceURL) == "" {
			return unmet("no source url")
		}
	case KindPolish:
		if strings.TrimSpace(d.OriginalContent) == "" {
			return unmet("no article text")
		}
		if strings.TrimSpace(d.PolishPrompt) == "" {
			return unmet("no polish instruction")
		}
	case KindImages:
		if strings.TrimSpace(d.PolishedContent) == "" {
			return unmet("no polished text")
		}
		if strings.TrimSpace(d.BackgroundImage) == "" {
			return unmet("no background image")
		}
	case KindMetadata:
		if strings.TrimSpace(d.PolishedContent) == "" {
			return unmet("no polished text")
		}
		if strings.TrimSpace(d.TitlePrompt) == "" || strings.TrimSpace(d.TagsPrompt) == "" {
			return unmet("no title or tags instruction")
		}
	case KindPublish:
		if credentialsText(st, def.Platform) == "" {
			return unmet("no login cookies")
		}
		if len(d.Assets[def.Platform]) == 0 {
			return unmet("no rendered images")
		}
		if publishTitle(d) == "" {
			return unmet("no title")
		}
		if def.Platform == PlatformDouyin {
			if strings.TrimSpace(d.Title) == "" || len(d.Tags) == 0 {
				return unmet("no generated title and tags")
			}
			if strings.TrimSpace(d.PolishedContent) == "" {
				return unmet("no polished text")
			}
		}
	}
	return nil
}

// credentialsText returns the cookie payload the platform's credential step
// produced, or "" when the step has not completed.
func credentialsText(st State, p Platform) string {
	step, ok := st.Step(CredentialStepID(p))
	if !ok || step.Status != StepCompleted || len(step.Response) == 0 {
		return ""
	}
	res, err := api.DecodeCookieResult(step.Response)
	if err != nil {
		return ""
	}
	return res.CookiesText()
}

func publishTitle(d WorkflowData) string {
	if t := strings.TrimSpace(d.Title); t != "" {
		return t
	}
	return DefaultTitle(d.PolishedContent, defaultTitleRunes)
}

// Execute runs one attempt of step id against st.
func (e *Executor) Execute(ctx context.Context, st State, id StepID) StepResult {
	def, ok := LookupDef(id)
	if !ok {
		return StepResult{ID: id, Status: StepError, Error: fmt.Sprintf("unknown step %q", id)}
	}
	e.log.Debug("execute step", "step", id, "run", st.ID)

	var res StepResult
	switch def.Kind {
	case KindCredential:
		res = e.acquireCredentials(ctx, def)
	case KindFetch:
		res = e.fetch(ctx, def, st.Data)
	case KindPolish:
		res = e.polish(ctx, def, st.Data)
	case KindImages:
		res = e.renderImages(ctx, def, st.Data)
	case KindMetadata:
		res = e.metadata(ctx, def, st.Data)
	case KindPublish:
		res = e.publish(ctx, def, st)
	default:
		res = StepResult{Status: StepError, Error: fmt.Sprintf("step %q has no executor", id)}
	}
	res.ID = id
	if res.Status == StepError {
		e.log.Warn("step failed", "step", id, "err", res.Error)
	}
	return res
}

func completed(resp json.RawMessage, patch DataPatch) StepResult {
	return StepResult{Status: StepCompleted, Response: resp, Patch: patch}
}

func failed(def StepDef, err error) StepResult {
	return StepResult{Status: StepError, Error: errorText(err, stepDefaultErrors[def.Kind])}
}

func failedMsg(def StepDef, msg string) StepResult {
	if strings.TrimSpace(msg) == "" {
		msg = stepDefaultErrors[def.Kind]
	}
	return StepResult{Status: StepError, Error: msg}
}

// errorText prefers the server message, then the transport error text.
func errorText(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}

func (e *Executor) acquireCredentials(ctx context.Context, def StepDef) StepResult {
	res, err := e.backend.GetCookies(ctx, string(def.Platform))
	if err != nil {
		return failed(def, err)
	}
	if !res.Success {
		return failedMsg(def, res.Failure())
	}
	if res.CookiesText() == "" {
		return failedMsg(def, "backend returned no cookies")
	}
	return completed(res.Raw, DataPatch{})
}

// ReuseCredentials validates the platform's saved cookies and, when they are
// still accepted, loads them as the completed result of credential step id.
// It reports false when acquisition must run instead.
func (e *Executor) ReuseCredentials(ctx context.Context, id StepID) (StepResult, bool) {
	def, ok := LookupDef(id)
	if !ok || def.Kind != KindCredential {
		return StepResult{}, false
	}
	platform := string(def.Platform)

	check, err := e.backend.ValidateCookies(ctx, platform)
	if err != nil {
		e.log.Info("cookie validation failed", "platform", platform, "err", errorText(err, ""))
		return StepResult{}, false
	}
	if !check.Valid {
		e.log.Info("saved cookies rejected", "platform", platform, "reason", check.Failure())
		return StepResult{}, false
	}

	loaded, err := e.backend.LoadCookies(ctx, platform)
	if err != nil {
		e.log.Info("load saved cookies", "platform", platform, "err", errorText(err, ""))
		return StepResult{}, false
	}
	if !loaded.Success || loaded.CookiesText() == "" {
		e.log.Info("saved cookies unavailable", "platform", platform, "reason", loaded.Failure())
		return StepResult{}, false
	}
	res := completed(loaded.Raw, DataPatch{})
	res.ID = id
	return res, true
}

func (e *Executor) fetch(ctx context.Context, def StepDef, d WorkflowData) StepResult {
	resp, err := e.backend.FetchContent(ctx, strings.TrimSpace(d.SourceURL))
	if err != nil {
		return failed(def, err)
	}
	text, ok := resp.FirstText()
	if !ok || strings.TrimSpace(text) == "" {
		return failedMsg(def, "fetch returned no text")
	}
	if e.normalize != nil {
		normalized, err := e.normalize(text)
		if err != nil {
			e.log.Warn("normalize fetched content", "err", err)
		} else {
			text = normalized
		}
	}
	return completed(resp.Raw, DataPatch{OriginalContent: &text})
}

func (e *Executor) polish(ctx context.Context, def StepDef, d WorkflowData) StepResult {
	resp, err := e.backend.Polish(ctx, d.OriginalContent, d.PolishPrompt)
	if err != nil {
		return failed(def, err)
	}
	text, ok := resp.FirstText()
	if !ok || strings.TrimSpace(text) == "" {
		return failedMsg(def, "polish returned no text")
	}
	return completed(resp.Raw, DataPatch{PolishedContent: &text})
}

// backgroundPath returns the background image as a path the backend can
// open. A local file is uploaded first; a path that does not exist locally is
// taken to be on the backend already.
func (e *Executor) backgroundPath(ctx context.Context, local string) (string, error) {
	data, err := e.readFile(local)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		e.log.Debug("background image not found locally, using it as a backend path", "path", local)
		return local, nil
	case err != nil:
		return "", fmt.Errorf("read background image: %w", err)
	}
	res, err := e.backend.UploadImage(ctx, filepath.Base(local), data)
	if err != nil {
		return "", fmt.Errorf("upload background image: %w", err)
	}
	e.log.Debug("uploaded background image", "path", res.Path, "bytes", len(data))
	return res.Path, nil
}

func (e *Executor) renderImages(ctx context.Context, def StepDef, d WorkflowData) StepResult {
	background, err := e.backgroundPath(ctx, d.BackgroundImage)
	if err != nil {
		return failed(def, err)
	}
	fontColor := d.FontColor
	if fontColor == "" {
		fontColor = FontColors[0]
	}
	resp, err := e.backend.RenderImages(ctx, api.RenderRequest{
		Content:        d.PolishedContent,
		BackgroundPath: background,
		OutputDir:      d.OutputDir,
		FontColor:      fontColor,
	})
	if err != nil {
		return failed(def, err)
	}
	paths := ParseAssetPaths(string(resp.Raw))
	if len(paths) == 0 {
		e.log.Warn("render produced no recognizable image paths", "step", def.ID)
	}
	return completed(resp.Raw, DataPatch{Assets: map[Platform][]string{def.Platform: paths}})
}

type metadataResponse struct {
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
}

func (e *Executor) metadata(ctx context.Context, def StepDef, d WorkflowData) StepResult {
	titleResp, err := e.backend.Polish(ctx, d.PolishedContent, d.TitlePrompt)
	if err != nil {
		return failedMsg(def, "title: "+errorText(err, "generation failed"))
	}
	titleText, _ := titleResp.FirstText()
	title := DefaultTitle(strings.Trim(strings.TrimSpace(titleText), `"'“”《》`), 0)
	if title == "" {
		return failedMsg(def, "title: generation returned no text")
	}

	tagsResp, err := e.backend.Polish(ctx, d.PolishedContent, d.TagsPrompt)
	if err != nil {
		return failedMsg(def, "tags: "+errorText(err, "generation failed"))
	}
	tagsText, _ := tagsResp.FirstText()
	tags := ParseTags(tagsText)
	if len(tags) == 0 {
		return failedMsg(def, "tags: generation returned no tags")
	}

	raw, err := json.Marshal(metadataResponse{Title: title, Tags: tags})
	if err != nil {
		return failed(def, err)
	}
	return completed(raw, DataPatch{Title: &title, Tags: tags})
}

func (e *Executor) publish(ctx context.Context, def StepDef, st State) StepResult {
	if err := Ready(st, def.ID); err != nil {
		return failed(def, err)
	}
	d := st.Data
	assets := d.Assets[def.Platform]
	images := make([]string, 0, len(assets))
	for _, p := range assets {
		raw, err := e.backend.DownloadAsset(ctx, p)
		if err != nil {
			return failedMsg(def, fmt.Sprintf("download %s: %s", p, errorText(err, "failed")))
		}
		images = append(images, base64.StdEncoding.EncodeToString(raw))
	}

	res, err := e.backend.Publish(ctx, string(def.Platform), api.PublishRequest{
		Cookies: credentialsText(st, def.Platform),
		Title:   publishTitle(d),
		Content: d.PolishedContent,
		Images:  images,
		Tags:    d.Tags,
	})
	if err != nil {
		return failed(def, err)
	}
	if !res.Success {
		msg := res.Error
		if msg == "" {
			msg = res.Message
		}
		return failedMsg(def, msg)
	}
	return completed(res.Raw, DataPatch{})
}
