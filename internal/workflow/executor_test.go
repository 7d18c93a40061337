package workflow

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"sync"
	"testing"

	"autopub/internal/api"
)

func textResponse(text string) *api.ToolResponse {
	raw, _ := json.Marshal(map[string]any{"content": []map[string]string{{"type": "text", "text": text}}})
	return &api.ToolResponse{Content: []api.ContentBlock{{Type: "text", Text: text}}, Raw: raw}
}

func cookieResult(raw string) *api.CookieResult {
	res, err := api.DecodeCookieResult([]byte(raw))
	if err != nil {
		panic(err)
	}
	return res
}

// fakeBackend records calls and answers from per-operation hooks.
type fakeBackend struct {
	mu    sync.Mutex
	calls []string

	fetch    func(url string) (*api.ToolResponse, error)
	polish   func(text, prompt string) (*api.ToolResponse, error)
	upload   func(name string, data []byte) (*api.UploadResult, error)
	render   func(r api.RenderRequest) (*api.ToolResponse, error)
	get      func(platform string) (*api.CookieResult, error)
	load     func(platform string) (*api.CookieResult, error)
	validate func(platform string) (*api.CookieResult, error)
	publish  func(platform string, req api.PublishRequest) (*api.PublishResult, error)
	download func(path string) ([]byte, error)
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

var errNoHook = errors.New("unexpected call")

func (f *fakeBackend) FetchContent(_ context.Context, url string) (*api.ToolResponse, error) {
	f.record("fetch")
	if f.fetch == nil {
		return nil, errNoHook
	}
	return f.fetch(url)
}

func (f *fakeBackend) Polish(_ context.Context, text, prompt string) (*api.ToolResponse, error) {
	f.record("polish:" + prompt)
	if f.polish == nil {
		return nil, errNoHook
	}
	return f.polish(text, prompt)
}

func (f *fakeBackend) UploadImage(_ context.Context, name string, data []byte) (*api.UploadResult, error) {
	f.record("upload:" + name)
	if f.upload == nil {
		return &api.UploadResult{Success: true, Filename: name, Path: "data/static/uploads/" + name}, nil
	}
	return f.upload(name, data)
}

func (f *fakeBackend) RenderImages(_ context.Context, r api.RenderRequest) (*api.ToolResponse, error) {
	f.record("render")
	if f.render == nil {
		return nil, errNoHook
	}
	return f.render(r)
}

func (f *fakeBackend) GetCookies(_ context.Context, platform string) (*api.CookieResult, error) {
	f.record("get:" + platform)
	if f.get == nil {
		return nil, errNoHook
	}
	return f.get(platform)
}

func (f *fakeBackend) LoadCookies(_ context.Context, platform string) (*api.CookieResult, error) {
	f.record("load:" + platform)
	if f.load == nil {
		return nil, errNoHook
	}
	return f.load(platform)
}

func (f *fakeBackend) ValidateCookies(_ context.Context, platform string) (*api.CookieResult, error) {
	f.record("validate:" + platform)
	if f.validate == nil {
		return nil, errNoHook
	}
	return f.validate(platform)
}

func (f *fakeBackend) Publish(_ context.Context, platform string, req api.PublishRequest) (*api.PublishResult, error) {
	f.record("publish:" + platform)
	if f.publish == nil {
		return nil, errNoHook
	}
	return f.publish(platform, req)
}

func (f *fakeBackend) DownloadAsset(_ context.Context, path string) ([]byte, error) {
	f.record("download:" + path)
	if f.download == nil {
		return nil, errNoHook
	}
	return f.download(path)
}

func newTestExecutor(b Backend) *Executor {
	return NewExecutor(b,
		WithExecutorLogger(quietLogger()),
		WithFileReader(func(path string) ([]byte, error) {
			switch path {
			case "bg.png":
				return []byte("PNG"), nil
			case "locked.png":
				return nil, fmt.Errorf("open %s: %w", path, fs.ErrPermission)
			}
			return nil, fmt.Errorf("open %s: %w", path, fs.ErrNotExist)
		}),
	)
}

func stateWithSteps(t *testing.T, cfg WorkflowConfig, data WorkflowData) State {
	t.Helper()
	steps, err := Resolve(cfg)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return State{ID: "workflow_1_test", Steps: steps, Data: data, Config: cfg}
}

func TestExecutor_FetchNormalizesHTML(t *testing.T) {
	b := &fakeBackend{fetch: func(url string) (*api.ToolResponse, error) {
		if url != "https://zhuanlan.zhihu.com/p/1" {
			return nil, fmt.Errorf("unexpected url %q", url)
		}
		return textResponse("<h1>Title</h1><p>Hello <strong>world</strong></p>"), nil
	}}
	st := stateWithSteps(t, cfgOf(PlatformXiaohongshu), WorkflowData{SourceURL: " https://zhuanlan.zhihu.com/p/1 "})

	res := newTestExecutor(b).Execute(context.Background(), st, StepFetchContent)
	if res.Status != StepCompleted {
		t.Fatalf("expected completed, got %+v", res)
	}
	if res.Patch.OriginalContent == nil {
		t.Fatalf("fetch must patch the article text")
	}
	got := *res.Patch.OriginalContent
	if !strings.Contains(got, "# Title") || !strings.Contains(got, "**world**") {
		t.Fatalf("expected markdown, got %q", got)
	}
}

func TestExecutor_ErrorMessagePriority(t *testing.T) {
	st := stateWithSteps(t, cfgOf(PlatformXiaohongshu), WorkflowData{SourceURL: "https://example.com"})
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"server message", &api.Error{StatusCode: 502, Path: "/tools/zhihu_get", Message: "upstream blocked"}, "upstream blocked"},
		{"status only", &api.Error{StatusCode: 500, Path: "/tools/zhihu_get"}, "HTTP 500 for /tools/zhihu_get"},
		{"transport", fmt.Errorf("POST /tools/zhihu_get: %w", errors.New("connection refused")), "POST /tools/zhihu_get: connection refused"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := &fakeBackend{fetch: func(string) (*api.ToolResponse, error) { return nil, tc.err }}
			res := newTestExecutor(b).Execute(context.Background(), st, StepFetchContent)
			if res.Status != StepError || res.Error != tc.want {
				t.Fatalf("expected error %q, got %+v", tc.want, res)
			}
		})
	}

	b := &fakeBackend{fetch: func(string) (*api.ToolResponse, error) { return textResponse("  "), nil }}
	res := newTestExecutor(b).Execute(context.Background(), st, StepFetchContent)
	if res.Status != StepError || res.Error == "" {
		t.Fatalf("empty fetch should fail with a message, got %+v", res)
	}
}

func TestExecutor_CredentialStep(t *testing.T) {
	st := stateWithSteps(t, cfgOf(PlatformXiaohongshu), WorkflowData{})
	b := &fakeBackend{get: func(string) (*api.CookieResult, error) {
		return cookieResult(`{"content":[{"type":"text","text":"{\"success\":true,\"cookies\":\"[{\\\"name\\\":\\\"a1\\\"}]\"}"}]}`), nil
	}}
	res := newTestExecutor(b).Execute(context.Background(), st, CredentialStepID(PlatformXiaohongshu))
	if res.Status != StepCompleted {
		t.Fatalf("expected completed, got %+v", res)
	}
	decoded, err := api.DecodeCookieResult(res.Response)
	if err != nil || decoded.CookiesText() != `[{"name":"a1"}]` {
		t.Fatalf("cookie payload not kept verbatim: %s (%v)", res.Response, err)
	}

	b.get = func(string) (*api.CookieResult, error) {
		return cookieResult(`{"success":false,"error":"login timed out"}`), nil
	}
	res = newTestExecutor(b).Execute(context.Background(), st, CredentialStepID(PlatformXiaohongshu))
	if res.Status != StepError || res.Error != "login timed out" {
		t.Fatalf("expected application failure message, got %+v", res)
	}
}

func TestExecutor_ReuseCredentials(t *testing.T) {
	id := CredentialStepID(PlatformDouyin)
	b := &fakeBackend{
		validate: func(string) (*api.CookieResult, error) { return cookieResult(`{"valid":true}`), nil },
		load: func(string) (*api.CookieResult, error) {
			return cookieResult(`{"success":true,"cookies":[{"name":"sid"}]}`), nil
		},
	}
	res, ok := newTestExecutor(b).ReuseCredentials(context.Background(), id)
	if !ok || res.Status != StepCompleted || res.ID != id {
		t.Fatalf("expected reusable cookies, got %+v %v", res, ok)
	}

	b.validate = func(string) (*api.CookieResult, error) {
		return cookieResult(`{"valid":false,"error":"expired"}`), nil
	}
	if _, ok := newTestExecutor(b).ReuseCredentials(context.Background(), id); ok {
		t.Fatalf("invalid cookies must not be reused")
	}

	b.validate = func(string) (*api.CookieResult, error) { return nil, errors.New("timeout") }
	if _, ok := newTestExecutor(b).ReuseCredentials(context.Background(), id); ok {
		t.Fatalf("failed validation must not reuse cookies")
	}
}

func TestExecutor_ImagesExtractAssets(t *testing.T) {
	st := stateWithSteps(t, cfgOf(PlatformXiaohongshu), WorkflowData{
		PolishedContent: "polished",
		BackgroundImage: "bg.png",
		OutputDir:       "data/output_image",
	})
	var uploaded []byte
	var got api.RenderRequest
	b := &fakeBackend{
		upload: func(name string, data []byte) (*api.UploadResult, error) {
			uploaded = data
			return &api.UploadResult{Success: true, Filename: "f00d.png", Path: "data/static/uploads/f00d.png"}, nil
		},
		render: func(r api.RenderRequest) (*api.ToolResponse, error) {
			got = r
			return textResponse("输出路径: data/output_image\n文件列表: img_plan_0.png, generated.png, img_plan_1.png"), nil
		},
	}
	res := newTestExecutor(b).Execute(context.Background(), st, ImagesStepID(PlatformXiaohongshu))
	if res.Status != StepCompleted {
		t.Fatalf("expected completed, got %+v", res)
	}
	if string(uploaded) != "PNG" {
		t.Fatalf("background not uploaded: %q", uploaded)
	}
	if got.FontColor != "black" || got.BackgroundPath != "data/static/uploads/f00d.png" {
		t.Fatalf("unexpected render request: %+v", got)
	}
	if calls := b.Calls(); !slices.Equal(calls, []string{"upload:bg.png", "render"}) {
		t.Fatalf("unexpected calls %v", calls)
	}
	paths := res.Patch.Assets[PlatformXiaohongshu]
	if len(paths) != 2 || paths[0] != "data/output_image/img_plan_0.png" {
		t.Fatalf("unexpected assets %v", paths)
	}
}

func TestExecutor_ImagesBackgroundSources(t *testing.T) {
	st := stateWithSteps(t, cfgOf(PlatformXiaohongshu), WorkflowData{PolishedContent: "polished"})
	var got api.RenderRequest
	b := &fakeBackend{render: func(r api.RenderRequest) (*api.ToolResponse, error) {
		got = r
		return textResponse("done"), nil
	}}

	st.Data.BackgroundImage = "data/static/uploads/shared.png"
	res := newTestExecutor(b).Execute(context.Background(), st, ImagesStepID(PlatformXiaohongshu))
	if res.Status != StepCompleted || got.BackgroundPath != "data/static/uploads/shared.png" {
		t.Fatalf("backend path not passed through: %+v %+v", res, got)
	}
	if calls := b.Calls(); !slices.Equal(calls, []string{"render"}) {
		t.Fatalf("a backend path must not be uploaded, calls %v", calls)
	}

	st.Data.BackgroundImage = "locked.png"
	res = newTestExecutor(b).Execute(context.Background(), st, ImagesStepID(PlatformXiaohongshu))
	if res.Status != StepError || !strings.Contains(res.Error, "locked.png") {
		t.Fatalf("expected read failure, got %+v", res)
	}

	failing := &fakeBackend{upload: func(string, []byte) (*api.UploadResult, error) {
		return nil, &api.Error{StatusCode: 400, Path: "/upload/image", Message: "File too large. Maximum size: 10MB"}
	}}
	st.Data.BackgroundImage = "bg.png"
	res = newTestExecutor(failing).Execute(context.Background(), st, ImagesStepID(PlatformXiaohongshu))
	if res.Status != StepError || res.Error != "File too large. Maximum size: 10MB" {
		t.Fatalf("expected upload failure, got %+v", res)
	}
	if calls := failing.Calls(); slices.Contains(calls, "render") {
		t.Fatalf("render must not run after a failed upload, calls %v", calls)
	}
}

func TestExecutor_ImagesWithoutPathsIsNotAnError(t *testing.T) {
	st := stateWithSteps(t, cfgOf(PlatformXiaohongshu), WorkflowData{PolishedContent: "p", BackgroundImage: "bg.png"})
	b := &fakeBackend{render: func(api.RenderRequest) (*api.ToolResponse, error) { return textResponse("done"), nil }}
	res := newTestExecutor(b).Execute(context.Background(), st, ImagesStepID(PlatformXiaohongshu))
	if res.Status != StepCompleted || len(res.Patch.Assets[PlatformXiaohongshu]) != 0 {
		t.Fatalf("expected completed with zero assets, got %+v", res)
	}
}

func TestExecutor_MetadataCallsAreIndependent(t *testing.T) {
	st := stateWithSteps(t, cfgOf(PlatformDouyin), WorkflowData{
		PolishedContent: "body",
		TitlePrompt:     "make title",
		TagsPrompt:      "make tags",
	})
	b := &fakeBackend{polish: func(text, prompt string) (*api.ToolResponse, error) {
		if text != "body" {
			return nil, fmt.Errorf("unexpected text %q", text)
		}
		switch prompt {
		case "make title":
			return textResponse("“A short title”"), nil
		case "make tags":
			return textResponse("#travel #food, city"), nil
		}
		return nil, errNoHook
	}}
	res := newTestExecutor(b).Execute(context.Background(), st, MetadataStepID(PlatformDouyin))
	if res.Status != StepCompleted {
		t.Fatalf("expected completed, got %+v", res)
	}
	if *res.Patch.Title != "A short title" || strings.Join(res.Patch.Tags, ",") != "travel,food,city" {
		t.Fatalf("unexpected metadata %q %v", *res.Patch.Title, res.Patch.Tags)
	}

	b.polish = func(_, prompt string) (*api.ToolResponse, error) {
		if prompt == "make tags" {
			return nil, &api.Error{StatusCode: 500, Message: "model overloaded"}
		}
		return textResponse("Title"), nil
	}
	res = newTestExecutor(b).Execute(context.Background(), st, MetadataStepID(PlatformDouyin))
	if res.Status != StepError || res.Error != "tags: model overloaded" {
		t.Fatalf("tags failure must surface, got %+v", res)
	}
	if res.Patch.Title != nil {
		t.Fatalf("failed step must not patch data")
	}
}

func TestExecutor_Publish(t *testing.T) {
	st := stateWithSteps(t, cfgOf(PlatformXiaohongshu), WorkflowData{
		PolishedContent: "# Morning walk\nbody",
		Tags:            []string{"walk"},
		Assets:          map[Platform][]string{PlatformXiaohongshu: {"data/output_image/img_plan_0.png"}},
	})
	cred := CredentialStepID(PlatformXiaohongshu)
	for i := range st.Steps {
		if st.Steps[i].ID == cred {
			st.Steps[i].Status = StepCompleted
			st.Steps[i].Response = json.RawMessage(`{"success":true,"cookies":"[1]"}`)
		}
	}

	var got api.PublishRequest
	b := &fakeBackend{
		download: func(string) ([]byte, error) { return []byte("img"), nil },
		publish: func(platform string, req api.PublishRequest) (*api.PublishResult, error) {
			got = req
			return &api.PublishResult{Success: true, Message: "ok"}, nil
		},
	}
	res := newTestExecutor(b).Execute(context.Background(), st, PublishStepID(PlatformXiaohongshu))
	if res.Status != StepCompleted {
		t.Fatalf("expected completed, got %+v", res)
	}
	if got.Cookies != "[1]" || got.Title != "Morning walk" || got.Content != st.Data.PolishedContent {
		t.Fatalf("unexpected publish request: %+v", got)
	}
	if len(got.Images) != 1 || got.Images[0] != base64.StdEncoding.EncodeToString([]byte("img")) {
		t.Fatalf("images not encoded: %v", got.Images)
	}

	b.publish = func(string, api.PublishRequest) (*api.PublishResult, error) {
		return &api.PublishResult{Success: false, Error: "captcha required"}, nil
	}
	res = newTestExecutor(b).Execute(context.Background(), st, PublishStepID(PlatformXiaohongshu))
	if res.Status != StepError || res.Error != "captcha required" {
		t.Fatalf("expected application failure, got %+v", res)
	}
}

func TestReady(t *testing.T) {
	st := stateWithSteps(t, cfgOf(PlatformDouyin), WorkflowData{})
	for _, id := range []StepID{StepFetchContent, StepPolishContent, ImagesStepID(PlatformDouyin), MetadataStepID(PlatformDouyin), PublishStepID(PlatformDouyin)} {
		if err := Ready(st, id); !errors.Is(err, ErrPrecondition) {
			t.Fatalf("%s: expected ErrPrecondition, got %v", id, err)
		}
	}
	if err := Ready(st, CredentialStepID(PlatformDouyin)); err != nil {
		t.Fatalf("credential step has no preconditions: %v", err)
	}
	if err := Ready(st, PublishStepID(PlatformXiaohongshu)); !errors.Is(err, ErrStepNotFound) {
		t.Fatalf("expected ErrStepNotFound for disabled platform, got %v", err)
	}

	st.Data = WorkflowData{
		PolishedContent: "body",
		Assets:          map[Platform][]string{PlatformDouyin: {"a.png"}},
	}
	st.Steps[0].Status = StepCompleted
	st.Steps[0].Response = json.RawMessage(`{"success":true,"cookies":"[1]"}`)
	if err := Ready(st, PublishStepID(PlatformDouyin)); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("douyin publish needs generated title and tags, got %v", err)
	}
	st.Data.Title = "t"
	st.Data.Tags = []string{"x"}
	if err := Ready(st, PublishStepID(PlatformDouyin)); err != nil {
		t.Fatalf("expected ready, got %v", err)
	}

	st.Data.Assets = map[Platform][]string{PlatformDouyin: {}}
	err := Ready(st, PublishStepID(PlatformDouyin))
	if !errors.Is(err, ErrPrecondition) || !strings.Contains(err.Error(), "no rendered images") {
		t.Fatalf("publish without rendered images must be blocked, got %v", err)
	}
}
