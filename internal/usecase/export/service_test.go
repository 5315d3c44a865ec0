package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	apperrors "github.com/johnquangdev/grain-sync/errors"
	"github.com/johnquangdev/grain-sync/internal/domain/entities"
	"github.com/johnquangdev/grain-sync/internal/infrastructure/cache"
	"github.com/johnquangdev/grain-sync/internal/infrastructure/filestore"
	usecaseErrors "github.com/johnquangdev/grain-sync/internal/usecase/errors"
	"github.com/johnquangdev/grain-sync/pkg/config"
	"github.com/johnquangdev/grain-sync/pkg/grain"
)

// fakeSource serves pages keyed by cursor, "" being the first page
type fakeSource struct {
	pages     map[string]entities.RecordingPage
	failOn    map[string]error
	listed    []string
	fetched   []string
	listErr   error
	onFetched func(id string)
}

func (f *fakeSource) ListRecordings(ctx context.Context, cursor string) (*entities.RecordingPage, error) {
	f.listed = append(f.listed, cursor)
	if f.listErr != nil {
		return nil, f.listErr
	}
	page, ok := f.pages[cursor]
	if !ok {
		return nil, fmt.Errorf("unexpected cursor %q", cursor)
	}
	return &page, nil
}

func (f *fakeSource) GetRecording(ctx context.Context, recordingID, transcriptFormat string) (*entities.Recording, error) {
	if transcriptFormat != grain.TranscriptFormatJSON {
		return nil, fmt.Errorf("unexpected transcript format %q", transcriptFormat)
	}
	f.fetched = append(f.fetched, recordingID)
	if err := f.failOn[recordingID]; err != nil {
		return nil, err
	}
	for _, page := range f.pages {
		for _, rec := range page.Recordings {
			if rec.ID == recordingID {
				full := rec
				full.TranscriptJSON = []byte(`{"segments":[{"speaker":"Ana","text":"hi"}]}`)
				if f.onFetched != nil {
					f.onFetched(recordingID)
				}
				return &full, nil
			}
		}
	}
	return nil, fmt.Errorf("unknown recording %q", recordingID)
}

type recordingCheckpoints struct {
	*cache.KeyValueCheckpointStore
	saved []entities.Checkpoint
}

func (r *recordingCheckpoints) Save(ctx context.Context, cp *entities.Checkpoint) error {
	r.saved = append(r.saved, *cp)
	return r.KeyValueCheckpointStore.Save(ctx, cp)
}

type fixedPrompter struct {
	answer bool
	err    error
	asked  int
}

func (p *fixedPrompter) ConfirmResume(ctx context.Context, cp *entities.Checkpoint) (bool, error) {
	p.asked++
	return p.answer, p.err
}

type failingIndex struct {
	upserts int
}

func (f *failingIndex) Upsert(ctx context.Context, exported *entities.ExportedRecording) error {
	f.upserts++
	return errors.New("database unavailable")
}

func (f *failingIndex) FindByRecordingID(ctx context.Context, recordingID string) (*entities.ExportedRecording, error) {
	return nil, nil
}

func (f *failingIndex) Count(ctx context.Context) (int64, error) {
	return 0, nil
}

type memoryMirror struct {
	objects map[string][]byte
}

func (m *memoryMirror) Upload(ctx context.Context, relativePath string, payload []byte) error {
	m.objects[relativePath] = payload
	return nil
}

func strPtr(s string) *string { return &s }

func rec(id, title, start string) entities.Recording {
	return entities.Recording{
		ID:            id,
		Title:         title,
		URL:           "https://grain.com/share/recording/" + id,
		Source:        "zoom",
		StartDatetime: start,
		Participants:  json.RawMessage(`[{"name":"Ana","email":"ana@example.com","role":"host"}]`),
	}
}

type harness struct {
	root        string
	source      *fakeSource
	checkpoints *recordingCheckpoints
	store       *filestore.Store
}

func newHarness(t *testing.T, pages map[string]entities.RecordingPage) *harness {
	t.Helper()
	return &harness{
		root:   t.TempDir(),
		source: &fakeSource{pages: pages, failOn: map[string]error{}},
		checkpoints: &recordingCheckpoints{
			KeyValueCheckpointStore: cache.NewKeyValueCheckpointStore(cache.NewMemoryStore(), "test:cursor_state"),
		},
	}
}

func (h *harness) service(opts ...Option) *ExportService {
	h.store = filestore.NewStore(h.root, nil)
	svc := NewExportService(h.source, h.store, h.checkpoints, nil, opts...)
	svc.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return svc
}

func (h *harness) files(t *testing.T) []string {
	t.Helper()
	var files []string
	err := filepath.Walk(h.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			rel, _ := filepath.Rel(h.root, path)
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk output: %v", err)
	}
	sort.Strings(files)
	return files
}

func twoPages() map[string]entities.RecordingPage {
	return map[string]entities.RecordingPage{
		"":   {Recordings: []entities.Recording{rec("r1", "Kickoff", "2024-01-15T10:00:00Z")}, Cursor: strPtr("c2")},
		"c2": {Recordings: []entities.Recording{rec("r2", "Retro", "2024-02-03T16:30:00Z")}},
	}
}

var fullRun = Options{Resume: config.ResumeNever}

func TestRun_TwoPages(t *testing.T) {
	h := newHarness(t, twoPages())

	summary, err := h.service().Run(context.Background(), fullRun)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []string{"2024/01/15/r1_Kickoff.json", "2024/02/03/r2_Retro.json"}
	if got := h.files(t); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("files = %v, want %v", got, want)
	}
	if summary.Saved != 2 || summary.Skipped != 0 || summary.Pages != 2 || !summary.Completed {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.RunID == "" || summary.Mode != ModeFull {
		t.Fatalf("missing run metadata %+v", summary)
	}

	if len(h.checkpoints.saved) != 1 {
		t.Fatalf("expected one checkpoint save, got %d", len(h.checkpoints.saved))
	}
	if cp := h.checkpoints.saved[0]; cp.NextCursor() != "c2" || cp.ProcessedCount != 1 {
		t.Fatalf("unexpected checkpoint after page 1: %+v", cp)
	}
	if cp, _ := h.checkpoints.Load(context.Background()); cp != nil {
		t.Fatalf("expected checkpoint cleared after last page, got %+v", cp)
	}

	data, err := os.ReadFile(filepath.Join(h.root, "2024", "01", "15", "r1_Kickoff.json"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	for _, fragment := range []string{`"id": "r1"`, `"source": "zoom"`, `"speaker": "Ana"`, `"email": "ana@example.com"`, `"role": "host"`} {
		if !strings.Contains(string(data), fragment) {
			t.Fatalf("output missing %s:\n%s", fragment, data)
		}
	}
}

func TestRun_Idempotent(t *testing.T) {
	h := newHarness(t, twoPages())
	svc := h.service()

	if _, err := svc.Run(context.Background(), fullRun); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	first := h.files(t)
	h.source.fetched = nil

	summary, err := svc.Run(context.Background(), fullRun)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if len(h.source.fetched) != 0 {
		t.Fatalf("second run fetched %v, expected none", h.source.fetched)
	}
	if summary.Skipped != 2 || summary.Saved != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if got := h.files(t); strings.Join(got, ",") != strings.Join(first, ",") {
		t.Fatalf("file set changed: %v vs %v", got, first)
	}
}

func TestRun_FailureMidPageThenResume(t *testing.T) {
	pages := map[string]entities.RecordingPage{
		"":   {Recordings: []entities.Recording{rec("r1", "One", "2024-01-01T09:00:00Z")}, Cursor: strPtr("c2")},
		"c2": {Recordings: []entities.Recording{rec("r2", "Two", "2024-01-02T09:00:00Z"), rec("r3", "Three", "2024-01-03T09:00:00Z")}, Cursor: strPtr("c3")},
		"c3": {Recordings: []entities.Recording{rec("r4", "Four", "2024-01-04T09:00:00Z")}},
	}
	h := newHarness(t, pages)
	h.source.failOn["r3"] = &grain.APIError{StatusCode: 502, Endpoint: "/recordings/r3"}

	_, err := h.service().Run(context.Background(), fullRun)
	if err == nil {
		t.Fatalf("expected run to fail on r3")
	}
	if appErr, ok := apperrors.As(err); !ok || appErr.Code != apperrors.ErrorCode_GRAIN_API_FAILED {
		t.Fatalf("expected GRAIN_API_FAILED, got %v", err)
	}

	cp, err := h.checkpoints.Load(context.Background())
	if err != nil || cp == nil {
		t.Fatalf("expected checkpoint to survive failure, got %+v err=%v", cp, err)
	}
	if cp.NextCursor() != "c2" || cp.ProcessedCount != 1 {
		t.Fatalf("checkpoint must stay at the last completed page, got %+v", cp)
	}

	delete(h.source.failOn, "r3")
	h.source.listed = nil
	h.source.fetched = nil

	summary, err := h.service().Run(context.Background(), Options{Resume: config.ResumeAlways})
	if err != nil {
		t.Fatalf("resumed run failed: %v", err)
	}
	if h.source.listed[0] != "c2" {
		t.Fatalf("resume must start at c2, listed %v", h.source.listed)
	}
	if strings.Join(h.source.fetched, ",") != "r3,r4" {
		t.Fatalf("resume must only fetch r3 and r4, fetched %v", h.source.fetched)
	}
	if !summary.Resumed || summary.StartingCount != 1 || summary.ProcessedCount != 4 {
		t.Fatalf("unexpected resumed summary %+v", summary)
	}

	want := []string{
		"2024/01/01/r1_One.json",
		"2024/01/02/r2_Two.json",
		"2024/01/03/r3_Three.json",
		"2024/01/04/r4_Four.json",
	}
	if got := h.files(t); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("files = %v, want %v", got, want)
	}
	if cp, _ := h.checkpoints.Load(context.Background()); cp != nil {
		t.Fatalf("expected checkpoint cleared, got %+v", cp)
	}
}

func TestRun_TestModeSingleRecording(t *testing.T) {
	var recordings []entities.Recording
	for i := 1; i <= 5; i++ {
		recordings = append(recordings, rec(fmt.Sprintf("r%d", i), "Call", fmt.Sprintf("2024-03-0%dT10:00:00Z", i)))
	}
	h := newHarness(t, map[string]entities.RecordingPage{
		"": {Recordings: recordings, Cursor: strPtr("c2")},
	})

	seeded := entities.NewCheckpoint("c9", 40)
	if err := h.checkpoints.KeyValueCheckpointStore.Save(context.Background(), seeded); err != nil {
		t.Fatalf("seed checkpoint: %v", err)
	}

	summary, err := h.service().Run(context.Background(), Options{TestMode: true, Resume: config.ResumeAlways})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := h.files(t); len(got) != 1 || got[0] != "2024/03/01/r1_Call.json" {
		t.Fatalf("expected exactly one file, got %v", got)
	}
	if len(h.source.fetched) != 1 {
		t.Fatalf("expected one transcript fetch, got %v", h.source.fetched)
	}
	if h.source.listed[0] != "" {
		t.Fatalf("test mode must start from the first page, listed %v", h.source.listed)
	}
	if summary.Mode != ModeTest || summary.Completed {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(h.checkpoints.saved) != 0 {
		t.Fatalf("test mode must not write checkpoints, saved %v", h.checkpoints.saved)
	}
	if cp, _ := h.checkpoints.Load(context.Background()); cp == nil || cp.NextCursor() != "c9" {
		t.Fatalf("test mode must leave the saved checkpoint alone, got %+v", cp)
	}
}

func TestRun_ResumeModes(t *testing.T) {
	cases := []struct {
		name        string
		mode        config.ResumeMode
		prompter    *fixedPrompter
		wantCursor  string
		wantAsked   int
		wantErrCode int
	}{
		{name: "always", mode: config.ResumeAlways, wantCursor: "c2"},
		{name: "never", mode: config.ResumeNever, wantCursor: ""},
		{name: "prompt yes", mode: config.ResumePrompt, prompter: &fixedPrompter{answer: true}, wantCursor: "c2", wantAsked: 1},
		{name: "prompt no", mode: config.ResumePrompt, prompter: &fixedPrompter{answer: false}, wantCursor: "", wantAsked: 1},
		{name: "prompt without prompter", mode: config.ResumePrompt, wantErrCode: apperrors.ExitConfig},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, twoPages())
			if err := h.checkpoints.KeyValueCheckpointStore.Save(context.Background(), entities.NewCheckpoint("c2", 1)); err != nil {
				t.Fatalf("seed checkpoint: %v", err)
			}

			var opts []Option
			if tc.prompter != nil {
				opts = append(opts, WithPrompter(tc.prompter))
			}

			_, err := h.service(opts...).Run(context.Background(), Options{Resume: tc.mode})
			if tc.wantErrCode != 0 {
				if got := apperrors.ExitCodeOf(err); got != tc.wantErrCode {
					t.Fatalf("exit code = %d, want %d (err %v)", got, tc.wantErrCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if h.source.listed[0] != tc.wantCursor {
				t.Fatalf("first cursor = %q, want %q", h.source.listed[0], tc.wantCursor)
			}
			if tc.prompter != nil && tc.prompter.asked != tc.wantAsked {
				t.Fatalf("prompter asked %d times, want %d", tc.prompter.asked, tc.wantAsked)
			}
		})
	}
}

func TestRun_EmptyPageEndsRun(t *testing.T) {
	h := newHarness(t, map[string]entities.RecordingPage{
		"": {Recordings: []entities.Recording{}, Cursor: strPtr("c2")},
	})
	summary, err := h.service().Run(context.Background(), fullRun)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(h.source.listed) != 1 || summary.ProcessedCount != 0 || !summary.Completed {
		t.Fatalf("expected a single empty page, listed %v summary %+v", h.source.listed, summary)
	}
}

func TestRun_Unauthorized(t *testing.T) {
	h := newHarness(t, twoPages())
	h.source.listErr = &grain.APIError{StatusCode: 401, Endpoint: "/recordings"}

	_, err := h.service().Run(context.Background(), fullRun)
	appErr, ok := apperrors.As(err)
	if !ok || appErr.Code != apperrors.ErrorCode_GRAIN_UNAUTHENTICATED {
		t.Fatalf("expected GRAIN_UNAUTHENTICATED, got %v", err)
	}
	if !errors.Is(err, grain.ErrUnauthorized) {
		t.Fatalf("expected error chain to reach grain.ErrUnauthorized")
	}
}

func TestRun_CancelledKeepsCheckpoint(t *testing.T) {
	h := newHarness(t, twoPages())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel once the first page is fully written, before the page delay
	h.source.onFetched = func(id string) {
		if id == "r1" {
			cancel()
		}
	}

	_, err := h.service().Run(ctx, Options{Resume: config.ResumeNever, PageDelay: time.Second})
	if got := apperrors.ExitCodeOf(err); got != apperrors.ExitInterrupted {
		t.Fatalf("exit code = %d, want %d (err %v)", got, apperrors.ExitInterrupted, err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", err)
	}

	cp, _ := h.checkpoints.Load(context.Background())
	if cp == nil || cp.NextCursor() != "c2" {
		t.Fatalf("expected checkpoint at c2 after interruption, got %+v", cp)
	}
	if got := h.files(t); len(got) != 1 {
		t.Fatalf("expected only r1 on disk, got %v", got)
	}
}

func TestRun_CorruptCheckpointRestarts(t *testing.T) {
	h := newHarness(t, twoPages())
	path := filepath.Join(t.TempDir(), ".cursor_state.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	svc := NewExportService(h.source, filestore.NewStore(h.root, nil), cache.NewFileCheckpointStore(path), nil)
	if _, err := svc.Run(context.Background(), Options{Resume: config.ResumeAlways}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if h.source.listed[0] != "" {
		t.Fatalf("expected restart from first page, listed %v", h.source.listed)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected corrupt checkpoint removed")
	}
}

func TestRun_SinkFailuresAreNotFatal(t *testing.T) {
	h := newHarness(t, twoPages())
	index := &failingIndex{}
	mirror := &memoryMirror{objects: map[string][]byte{}}

	summary, err := h.service(WithExportIndex(index), WithMirror(mirror)).Run(context.Background(), fullRun)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Saved != 2 || index.upserts != 2 {
		t.Fatalf("expected both recordings indexed, summary %+v upserts %d", summary, index.upserts)
	}
	if _, ok := mirror.objects["2024/02/03/r2_Retro.json"]; !ok || len(mirror.objects) != 2 {
		t.Fatalf("unexpected mirrored objects %v", mirror.objects)
	}
}

func TestRun_RecordingWithoutID(t *testing.T) {
	h := newHarness(t, map[string]entities.RecordingPage{
		"": {Recordings: []entities.Recording{{Title: "Orphan"}}},
	})

	_, err := h.service().Run(context.Background(), fullRun)
	if !errors.Is(err, entities.ErrRecordingIDMissing) {
		t.Fatalf("expected ErrRecordingIDMissing, got %v", err)
	}
	if len(h.source.fetched) != 0 || len(h.files(t)) != 0 {
		t.Fatalf("nothing may be fetched or written for a recording without id")
	}
}

func TestRun_UnansweredPromptKeepsCheckpoint(t *testing.T) {
	h := newHarness(t, twoPages())
	h.source.listErr = errors.New("network down")
	if err := h.checkpoints.KeyValueCheckpointStore.Save(context.Background(), entities.NewCheckpoint("c42", 4200)); err != nil {
		t.Fatalf("seed checkpoint: %v", err)
	}
	prompter := &fixedPrompter{err: usecaseErrors.ErrNoResumeAnswer}

	_, err := h.service(WithPrompter(prompter)).Run(context.Background(), Options{Resume: config.ResumePrompt})
	if got := apperrors.ExitCodeOf(err); got != apperrors.ExitConfig {
		t.Fatalf("exit code = %d, want %d (err %v)", got, apperrors.ExitConfig, err)
	}
	if len(h.source.listed) != 0 {
		t.Fatalf("nothing may be listed without a resume answer, listed %v", h.source.listed)
	}

	cp, err := h.checkpoints.Load(context.Background())
	if err != nil || cp == nil || cp.NextCursor() != "c42" || cp.ProcessedCount != 4200 {
		t.Fatalf("checkpoint must survive an unanswered prompt, got %+v err=%v", cp, err)
	}
}

func TestRun_RecordingIDWithPathSeparators(t *testing.T) {
	h := newHarness(t, map[string]entities.RecordingPage{
		"": {Recordings: []entities.Recording{rec("../../../../escaped", "x", "2024-01-15T10:00:00Z")}},
	})

	_, err := h.service().Run(context.Background(), fullRun)
	if !errors.Is(err, entities.ErrRecordingIDUnsafe) {
		t.Fatalf("expected ErrRecordingIDUnsafe, got %v", err)
	}
	if len(h.source.fetched) != 0 || len(h.files(t)) != 0 {
		t.Fatalf("nothing may be fetched or written for an unsafe id")
	}
	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(h.root), "*escaped*"))
	if len(matches) != 0 {
		t.Fatalf("file written outside the output root: %v", matches)
	}
}

func TestRun_UnparsableDateWritesToRoot(t *testing.T) {
	h := newHarness(t, map[string]entities.RecordingPage{
		"": {Recordings: []entities.Recording{rec("r9", "Demo", "someday")}},
	})
	core, logs := observer.New(zap.WarnLevel)
	store := filestore.NewStore(h.root, zap.New(core))

	svc := NewExportService(h.source, store, h.checkpoints, nil)
	if _, err := svc.Run(context.Background(), fullRun); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := h.files(t); len(got) != 1 || got[0] != "r9_Demo.json" {
		t.Fatalf("expected r9_Demo.json at the root, got %v", got)
	}
	if n := logs.FilterMessage("Could not parse start datetime, writing to output root").Len(); n != 1 {
		t.Fatalf("expected one date warning per recording, got %d", n)
	}
}
