package pipeline

import (
	"errors"
	"strings"
	"testing"

	"docrouter/internal/analyze"
)

func TestSplitChunksEmptyDocument(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\n\n\n"} {
		if _, err := SplitChunks(input, 4000); !errors.Is(err, ErrEmptyDocument) {
			t.Fatalf("input %q: expected ErrEmptyDocument, got %v", input, err)
		}
	}
}

func TestSplitChunksSingleSmallDocument(t *testing.T) {
	chunks, err := SplitChunks("A short document.", 4000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Position != 0 || chunks[0].Text != "A short document." {
		t.Fatalf("unexpected chunk: %+v", chunks[0])
	}
}

func TestSplitChunksRespectsMax(t *testing.T) {
	para := strings.Repeat("word ", 30) // 150 chars
	text := strings.Join([]string{para, para, para, para, para, para}, "\n\n")
	chunks, err := SplitChunks(text, 400)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if n := len([]rune(c.Text)); n > 400 {
			t.Fatalf("chunk %d has %d runes, exceeds max", c.Position, n)
		}
	}
}

func TestSplitChunksNeverSplitsFittingParagraph(t *testing.T) {
	p1 := strings.Repeat("a", 300)
	p2 := strings.Repeat("b", 300)
	chunks, err := SplitChunks(p1+"\n\n"+p2, 400)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Text != p1 || chunks[1].Text != p2 {
		t.Fatalf("paragraph boundaries not preserved")
	}
}

func TestSplitChunksHardSplitsOversizedParagraph(t *testing.T) {
	para := strings.Repeat("x", 1000)
	chunks, err := SplitChunks(para, 400)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	var rebuilt strings.Builder
	for _, c := range chunks {
		rebuilt.WriteString(c.Text)
	}
	if rebuilt.String() != para {
		t.Fatalf("hard split lost text")
	}
}

func TestSplitChunksReconstruction(t *testing.T) {
	paras := []string{
		"First paragraph with some text.",
		strings.Repeat("Second paragraph, rather longer. ", 10),
		"Third.",
		strings.Repeat("Fourth paragraph that keeps going. ", 20),
	}
	text := strings.Join(paras, "\n\n")
	chunks, err := SplitChunks(text, 300)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var parts []string
	for i, c := range chunks {
		if c.Position != i {
			t.Fatalf("chunk %d has position %d", i, c.Position)
		}
		parts = append(parts, c.Text)
	}
	got := strings.ReplaceAll(strings.Join(parts, ""), "\n\n", "")
	want := strings.ReplaceAll(text, "\n\n", "")
	if got != want {
		t.Fatalf("reconstruction mismatch")
	}
}

func TestSplitChunksUnicodeBoundary(t *testing.T) {
	// Multi-byte runes must never be cut mid-codepoint.
	para := strings.Repeat("हिन्दी", 200) // 1200 runes of Devanagari
	chunks, err := SplitChunks(para, 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range chunks {
		if !strings.ContainsRune("हिन्दी", []rune(c.Text)[0]) {
			t.Fatalf("chunk starts with unexpected rune")
		}
		if c.Language != analyze.IndicHindi {
			t.Fatalf("chunk %d tagged %s, want indic_hindi", c.Position, c.Language)
		}
	}
}

func TestBuildTasksSingleChunk(t *testing.T) {
	chunks := []Chunk{{Position: 0, Text: "only"}}
	tasks := BuildTasks(chunks)
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	if tasks[0].Role != RoleWhole {
		t.Fatalf("single chunk should get the combined role, got %s", tasks[0].Role)
	}
	if tasks[0].Instruction == "" || tasks[0].ID == "" {
		t.Fatalf("task missing instruction or id")
	}
}

func TestBuildTasksRolesByPosition(t *testing.T) {
	chunks := []Chunk{
		{Position: 0}, {Position: 1}, {Position: 2}, {Position: 3},
	}
	tasks := BuildTasks(chunks)
	want := []Role{RoleIntroduction, RoleContent, RoleContent, RoleConclusion}
	for i, task := range tasks {
		if task.Role != want[i] {
			t.Fatalf("task %d role %s, want %s", i, task.Role, want[i])
		}
		if task.Instruction != roleInstructions[task.Role] {
			t.Fatalf("task %d instruction does not match its role", i)
		}
	}
}

func TestBuildTasksTwoChunks(t *testing.T) {
	tasks := BuildTasks([]Chunk{{Position: 0}, {Position: 1}})
	if tasks[0].Role != RoleIntroduction || tasks[1].Role != RoleConclusion {
		t.Fatalf("two chunks should be introduction + conclusion, got %s + %s",
			tasks[0].Role, tasks[1].Role)
	}
}
