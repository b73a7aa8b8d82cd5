package decode

import (
	"testing"
)

type samplePayload struct {
	WorkspaceID string  `json:"workspaceId"`
	Line        int     `json:"line"`
	Content     *string `json:"content"`
}

func TestMapReadsJSONTags(t *testing.T) {
	got, err := Map[samplePayload](map[string]any{
		"workspaceId": "w1",
		"line":        float64(12), // JSON numbers arrive as float64
		"content":     "hello",
	})
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if got.WorkspaceID != "w1" || got.Line != 12 {
		t.Fatalf("decoded = %+v", got)
	}
	if got.Content == nil || *got.Content != "hello" {
		t.Fatalf("content = %v", got.Content)
	}
}

func TestMapMissingFieldsZeroValue(t *testing.T) {
	got, err := Map[samplePayload](map[string]any{})
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if got.WorkspaceID != "" || got.Line != 0 || got.Content != nil {
		t.Fatalf("decoded = %+v", got)
	}
}

func TestMapRejectsFractionalInt(t *testing.T) {
	if _, err := Map[samplePayload](map[string]any{"line": 1.5}); err == nil {
		t.Fatal("fractional value decoded into int field")
	}
}

func TestMapNilPayload(t *testing.T) {
	if _, err := Map[samplePayload](nil); err == nil {
		t.Fatal("nil payload accepted")
	}
}
