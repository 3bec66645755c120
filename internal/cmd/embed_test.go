package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/ocr-provenance/workers/internal/embed"
)

func TestEmitRecord_FailedRecordYieldsError(t *testing.T) {
	msg := "CUDA out of memory"
	result := embed.EmbeddingResult{
		Success:    false,
		Embeddings: [][]float32{},
		Device:     "cuda:0",
		Error:      &msg,
	}

	var buf bytes.Buffer
	err := emitRecord(&buf, result, result.Success, result.Error)
	if err == nil {
		t.Fatal("failed record must surface as a command error")
	}
	if err.Error() != msg {
		t.Errorf("error must carry the record's message, got %q", err)
	}

	// The record is still written before the failure is surfaced.
	var got embed.EmbeddingResult
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("stdout must carry the result document: %v", err)
	}
	if got.Success || got.Error == nil || *got.Error != msg {
		t.Errorf("unexpected emitted record: %+v", got)
	}
}

func TestEmitRecord_SuccessfulRecord(t *testing.T) {
	result := embed.EmbeddingResult{Success: true, Count: 2}

	var buf bytes.Buffer
	if err := emitRecord(&buf, result, result.Success, nil); err != nil {
		t.Fatalf("successful record must not error: %v", err)
	}
	if buf.Len() == 0 || buf.Bytes()[buf.Len()-1] != '\n' {
		t.Error("record must end with a newline")
	}
}

func TestEmitRecord_FailedRecordWithoutMessage(t *testing.T) {
	var buf bytes.Buffer
	err := emitRecord(&buf, embed.QueryEmbeddingResult{}, false, nil)
	if err == nil {
		t.Fatal("failed record without a message still yields an error")
	}
}
