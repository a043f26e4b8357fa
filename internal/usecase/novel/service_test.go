package novel

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/novelvoice-team/novelvoice/internal/domain/entities"
)

type fakeNovelRepo struct {
	novels    map[uuid.UUID]*entities.Novel
	createErr error
}

func newFakeNovelRepo() *fakeNovelRepo {
	return &fakeNovelRepo{novels: make(map[uuid.UUID]*entities.Novel)}
}

func (r *fakeNovelRepo) Create(ctx context.Context, novel *entities.Novel) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.novels[novel.ID] = novel
	return nil
}

func (r *fakeNovelRepo) GetByID(ctx context.Context, id uuid.UUID) (*entities.Novel, error) {
	return r.novels[id], nil
}

func (r *fakeNovelRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]entities.Novel, error) {
	var out []entities.Novel
	for _, n := range r.novels {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (r *fakeNovelRepo) Update(ctx context.Context, novel *entities.Novel) error {
	r.novels[novel.ID] = novel
	return nil
}

func (r *fakeNovelRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.novels, id)
	return nil
}

type fakeChapterRepo struct {
	chapters []*entities.Chapter
}

func (r *fakeChapterRepo) Create(ctx context.Context, chapter *entities.Chapter) error {
	r.chapters = append(r.chapters, chapter)
	return nil
}

func (r *fakeChapterRepo) GetByID(ctx context.Context, id uuid.UUID) (*entities.Chapter, error) {
	for _, c := range r.chapters {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

func (r *fakeChapterRepo) ListByNovel(ctx context.Context, novelID uuid.UUID) ([]entities.Chapter, error) {
	var out []entities.Chapter
	for _, c := range r.chapters {
		if c.NovelID == novelID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeChapterRepo) NextAfter(ctx context.Context, novelID uuid.UUID, startPosition int64) (*entities.Chapter, error) {
	var next *entities.Chapter
	for _, c := range r.chapters {
		if c.NovelID != novelID || c.StartPosition <= startPosition {
			continue
		}
		if next == nil || c.StartPosition < next.StartPosition {
			next = c
		}
	}
	return next, nil
}

func (r *fakeChapterRepo) UpdateAudioStatus(ctx context.Context, id uuid.UUID, status entities.AudioStatus, audioPath string) error {
	return nil
}

func (r *fakeChapterRepo) DeleteByNovel(ctx context.Context, novelID uuid.UUID) error {
	kept := r.chapters[:0]
	for _, c := range r.chapters {
		if c.NovelID != novelID {
			kept = append(kept, c)
		}
	}
	r.chapters = kept
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeNovelRepo, *fakeChapterRepo) {
	t.Helper()
	novelRepo := newFakeNovelRepo()
	chapterRepo := &fakeChapterRepo{}
	svc := NewService(novelRepo, chapterRepo, t.TempDir(), zap.NewNop())
	return svc, novelRepo, chapterRepo
}

func TestDetectChapters(t *testing.T) {
	content := "第一章 起点\n正文一。\n第二章 转折\n正文二。\n第十三回 结局\n正文三。\n"
	marks := detectChapters(content)

	if len(marks) != 3 {
		t.Fatalf("expected 3 chapters, got %d", len(marks))
	}
	titles := []string{"第一章 起点", "第二章 转折", "第十三回 结局"}
	for i, want := range titles {
		if marks[i].title != want {
			t.Errorf("chapter %d title = %q, want %q", i, marks[i].title, want)
		}
	}
	if marks[0].start != 0 {
		t.Errorf("first chapter start = %d, want 0", marks[0].start)
	}
	for i := 1; i < len(marks); i++ {
		if marks[i].start <= marks[i-1].start {
			t.Errorf("chapter starts not increasing: %d then %d", marks[i-1].start, marks[i].start)
		}
	}
}

func TestDetectChaptersPreface(t *testing.T) {
	content := "这是序言文字。\n第一章 起点\n正文。\n"
	marks := detectChapters(content)

	if len(marks) != 2 {
		t.Fatalf("expected preface plus chapter, got %d marks", len(marks))
	}
	if marks[0].title != "前言" || marks[0].start != 0 {
		t.Errorf("preface mark = %+v", marks[0])
	}
	if marks[1].title != "第一章 起点" {
		t.Errorf("chapter title = %q", marks[1].title)
	}
}

func TestDetectChaptersNoHeadings(t *testing.T) {
	marks := detectChapters("没有任何章节标记的纯文本。")
	if len(marks) != 1 {
		t.Fatalf("expected a single fallback chapter, got %d", len(marks))
	}
	if marks[0].title != "全文" || marks[0].start != 0 {
		t.Errorf("fallback mark = %+v", marks[0])
	}
}

func TestDetectChaptersIgnoresInlineHeadings(t *testing.T) {
	content := "他说第一章已经写完了。\n第二章 真正的标题\n正文。\n"
	marks := detectChapters(content)

	for _, m := range marks {
		if m.title == "第一章已经写完了。" {
			t.Error("mid-line heading text must not start a chapter")
		}
	}
	if marks[len(marks)-1].title != "第二章 真正的标题" {
		t.Errorf("expected the line-anchored heading, got %+v", marks)
	}
}

func TestDetectChaptersIndentedHeading(t *testing.T) {
	content := "  第一章 缩进标题\n正文。\n"
	marks := detectChapters(content)
	if len(marks) != 1 {
		t.Fatalf("expected 1 chapter, got %d", len(marks))
	}
	if marks[0].title != "第一章 缩进标题" {
		t.Errorf("title = %q, want the trimmed heading", marks[0].title)
	}
}

func TestUploadCreatesNovelAndChapters(t *testing.T) {
	svc, novelRepo, chapterRepo := newTestService(t)
	userID := uuid.New()
	content := []byte("第一章 起点\n正文一。\n第二章 转折\n正文二。\n")

	novel, chapters, err := svc.Upload(context.Background(), userID, "测试小说", "作者", content)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if novel.UserID != userID || novel.Title != "测试小说" {
		t.Errorf("unexpected novel %+v", novel)
	}
	stored, err := os.ReadFile(novel.FilePath)
	if err != nil {
		t.Fatalf("stored file: %v", err)
	}
	if string(stored) != string(content) {
		t.Error("stored file differs from the upload")
	}

	if len(chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(chapters))
	}
	if len(chapterRepo.chapters) != 2 {
		t.Errorf("expected 2 chapter rows, got %d", len(chapterRepo.chapters))
	}
	if _, err := novelRepo.GetByID(context.Background(), novel.ID); err != nil {
		t.Errorf("novel row missing: %v", err)
	}
}

type fakeSourceStore struct {
	objects   map[string]string
	uploadErr error
}

func newFakeSourceStore() *fakeSourceStore {
	return &fakeSourceStore{objects: make(map[string]string)}
}

func (s *fakeSourceStore) UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.objects[objectName] = string(data)
	return nil
}

func (s *fakeSourceStore) RemoveObject(ctx context.Context, objectName string) error {
	delete(s.objects, objectName)
	return nil
}

func TestUploadMirrorsSourceToStore(t *testing.T) {
	svc, _, _ := newTestService(t)
	store := newFakeSourceStore()
	svc.SetSourceStore(store)
	content := []byte("第一章 起点\n正文。")

	novel, _, err := svc.Upload(context.Background(), uuid.New(), "t", "", content)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	mirrored, ok := store.objects[sourceObjectName(novel.ID)]
	if !ok {
		t.Fatal("source file was not mirrored to object storage")
	}
	if mirrored != string(content) {
		t.Error("mirrored object differs from the upload")
	}
}

func TestUploadSurvivesStoreFailure(t *testing.T) {
	svc, _, _ := newTestService(t)
	store := newFakeSourceStore()
	store.uploadErr = errors.New("storage down")
	svc.SetSourceStore(store)

	// mirroring is best effort; the upload itself must still succeed
	novel, _, err := svc.Upload(context.Background(), uuid.New(), "t", "", []byte("第一章 起点\n正文。"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if _, err := os.Stat(novel.FilePath); err != nil {
		t.Errorf("local file missing: %v", err)
	}
}

func TestDeleteRemovesMirroredSource(t *testing.T) {
	svc, _, _ := newTestService(t)
	store := newFakeSourceStore()
	svc.SetSourceStore(store)

	novel, _, err := svc.Upload(context.Background(), uuid.New(), "t", "", []byte("第一章 起点\n正文。"))
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(context.Background(), novel.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, ok := store.objects[sourceObjectName(novel.ID)]; ok {
		t.Error("mirrored object should be removed with the novel")
	}
}

func TestUploadEmptyContent(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, _, err := svc.Upload(context.Background(), uuid.New(), "空", "", []byte("   \n ")); err == nil {
		t.Error("expected an error for empty content")
	}
}

func TestUploadRollsBackFileOnRepoFailure(t *testing.T) {
	svc, novelRepo, _ := newTestService(t)
	novelRepo.createErr = errors.New("db down")

	_, _, err := svc.Upload(context.Background(), uuid.New(), "标题", "", []byte("第一章 起点\n正文。"))
	if err == nil {
		t.Fatal("expected the repo failure to surface")
	}

	entries, err := os.ReadDir(svc.uploadDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("stored file should be rolled back, found %d entries", len(entries))
	}
}

func TestChapterTextSlicing(t *testing.T) {
	svc, _, _ := newTestService(t)
	userID := uuid.New()
	content := []byte("第一章 起点\n正文一。\n第二章 转折\n正文二。\n")

	novel, chapters, err := svc.Upload(context.Background(), userID, "t", "", content)
	if err != nil {
		t.Fatal(err)
	}

	first, err := svc.ChapterText(context.Background(), novel, &chapters[0])
	if err != nil {
		t.Fatalf("ChapterText: %v", err)
	}
	if !strings.Contains(first, "正文一。") {
		t.Errorf("first chapter %q missing its body", first)
	}
	if strings.Contains(first, "第二章") {
		t.Errorf("first chapter %q bleeds into the next", first)
	}

	second, err := svc.ChapterText(context.Background(), novel, &chapters[1])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(second, "第二章 转折") {
		t.Errorf("second chapter %q should start at its heading", second)
	}
	if !strings.Contains(second, "正文二。") {
		t.Errorf("last chapter %q should run to the end of the file", second)
	}

	if first+second != string(content) {
		t.Error("chapter slices should partition the source file")
	}
}

func TestChapterTextOutOfRange(t *testing.T) {
	svc, _, _ := newTestService(t)
	novel, _, err := svc.Upload(context.Background(), uuid.New(), "t", "", []byte("第一章 起点\n正文。"))
	if err != nil {
		t.Fatal(err)
	}

	bad := entities.NewChapter(novel.ID, "坏", 99999)
	if _, err := svc.ChapterText(context.Background(), novel, bad); err == nil {
		t.Error("expected an error for an out-of-range start")
	}
}

func TestDeleteRemovesFileAndRows(t *testing.T) {
	svc, novelRepo, chapterRepo := newTestService(t)
	novel, _, err := svc.Upload(context.Background(), uuid.New(), "t", "", []byte("第一章 起点\n正文。"))
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(context.Background(), novel.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := os.Stat(novel.FilePath); !os.IsNotExist(err) {
		t.Error("source file should be removed")
	}
	if got, _ := novelRepo.GetByID(context.Background(), novel.ID); got != nil {
		t.Error("novel row should be removed")
	}
	if len(chapterRepo.chapters) != 0 {
		t.Errorf("chapter rows should be removed, %d left", len(chapterRepo.chapters))
	}
}

func TestUpdateLastRead(t *testing.T) {
	svc, novelRepo, _ := newTestService(t)
	novel, chapters, err := svc.Upload(context.Background(), uuid.New(), "t", "", []byte("第一章 起点\n正文。"))
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.UpdateLastRead(context.Background(), novel, chapters[0].ID); err != nil {
		t.Fatal(err)
	}
	stored, _ := novelRepo.GetByID(context.Background(), novel.ID)
	if stored.LastReadChapterID == nil || *stored.LastReadChapterID != chapters[0].ID {
		t.Error("last read chapter was not recorded")
	}
}
