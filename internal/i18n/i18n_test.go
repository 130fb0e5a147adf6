package i18n

import (
	"context"
	"strings"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	loc := NewLocalizer(lang)
	return WithLocalizer(context.Background(), loc)
}

func TestTranslateVietnamese(t *testing.T) {
	ctx := initLang(t, "vi")

	got := T(ctx, "AppTitle")
	if got != "Ôn Thi Sử" {
		t.Errorf("T(AppTitle) = %q, want 'Ôn Thi Sử'", got)
	}

	got = T(ctx, "NoAnswer")
	if got != "Không trả lời" {
		t.Errorf("T(NoAnswer) = %q, want 'Không trả lời'", got)
	}
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "AppTitle")
	if got != "History Exam Practice" {
		t.Errorf("T(AppTitle) = %q, want 'History Exam Practice'", got)
	}
}

func TestTemplateData(t *testing.T) {
	ctx := initLang(t, "vi")

	got := Td(ctx, "Score", map[string]any{"Score": 17, "Total": 20})
	if !strings.Contains(got, "17") || !strings.Contains(got, "20") {
		t.Errorf("Td(Score) = %q, should contain score and total", got)
	}
}

func TestMissingTranslationFallsBackToID(t *testing.T) {
	ctx := initLang(t, "vi")

	if got := T(ctx, "NoSuchMessage"); got != "NoSuchMessage" {
		t.Errorf("T(NoSuchMessage) = %q, want the message ID back", got)
	}
}
