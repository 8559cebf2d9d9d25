package artifacts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"pgregory.net/rapid"
)

func writeArtifact(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestUpload_StoresUnderRunPrefix(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := TestStore(t, "uiverify-artifacts")
	dir := t.TempDir()

	paths := []string{
		writeArtifact(t, dir, "send_survey_step1.png", "\x89PNG step1"),
		writeArtifact(t, dir, "send_survey_report.md", "# send_survey: PASSED\n"),
	}
	objs, err := store.Upload(ctx, "run-123", paths)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if len(objs) != 2 {
		t.Fatalf("uploaded %d objects, want 2", len(objs))
	}
	if objs[0].Key != "runs/run-123/send_survey_step1.png" {
		t.Fatalf("key = %q", objs[0].Key)
	}
	if objs[0].URL == "" {
		t.Fatal("expected a public URL")
	}

	got, err := store.GetObject(ctx, objs[1].Key)
	if err != nil {
		t.Fatalf("GetObject: %v", err)
	}
	if string(got) != "# send_survey: PASSED\n" {
		t.Fatalf("content = %q", got)
	}
}

func TestUpload_MissingFileStops(t *testing.T) {
	t.Parallel()
	store := TestStore(t, "uiverify-artifacts")
	dir := t.TempDir()
	ok := writeArtifact(t, dir, "portfolio_initial.png", "png")

	objs, err := store.Upload(context.Background(), "run-1", []string{ok, filepath.Join(dir, "missing.png")})
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
	if len(objs) != 1 {
		t.Fatalf("uploaded %d objects before the failure, want 1", len(objs))
	}
}

func TestGetObject_NotFound(t *testing.T) {
	t.Parallel()
	store := TestStore(t, "uiverify-artifacts")
	_, err := store.GetObject(context.Background(), "runs/none/portfolio_error.png")
	if !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("err = %v, want ErrObjectNotFound", err)
	}
}

func TestContentType(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"/tmp/portfolio_error.png":       "image/png",
		"/tmp/send_survey_report.md":     "text/markdown; charset=utf-8",
		"/tmp/send_survey_report.HTML":   "text/html; charset=utf-8",
		"/tmp/send_survey_report.tar.gz": "application/octet-stream",
	}
	for in, want := range cases {
		if got := ContentType(in); got != want {
			t.Errorf("ContentType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPublicURL_Disabled(t *testing.T) {
	t.Parallel()
	s := NewFromS3Client(nil, "bucket", "")
	if got := s.PublicURL("runs/a/b.png"); got != "" {
		t.Fatalf("PublicURL = %q, want empty", got)
	}
	s = NewFromS3Client(nil, "bucket", "https://cdn.example.test/")
	if got := s.PublicURL("/runs/a/b.png"); got != "https://cdn.example.test/runs/a/b.png" {
		t.Fatalf("PublicURL = %q", got)
	}
}

// testKey_KeepsRunPrefix checks that keys never escape the run prefix,
// whatever directory the artifact was written in.
func testKey_KeepsRunPrefix(t *rapid.T) {
	runID := rapid.StringMatching(`[a-f0-9-]{8,36}`).Draw(t, "runID")
	dir := rapid.StringMatching(`(/[a-z0-9_.]{1,8}){0,4}`).Draw(t, "dir")
	name := rapid.StringMatching(`[a-z0-9_]{1,20}\.png`).Draw(t, "name")

	key := Key(runID, dir+"/"+name)
	if key != "runs/"+runID+"/"+name {
		t.Fatalf("Key(%q, %q) = %q", runID, dir+"/"+name, key)
	}
}

func TestKey_KeepsRunPrefix(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testKey_KeepsRunPrefix)
}
