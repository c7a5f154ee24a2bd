package httpform

import (
	"io"
	"mime"
	"mime/multipart"
	"testing"
)

func TestBodyEncode(t *testing.T) {
	body := Body{
		Fields: []Field{{Name: "model", Value: "whisper"}},
		Files: []File{
			{FieldName: "audio", FileName: `my "memo".webm`, ContentType: "audio/webm", Data: []byte("webm")},
			{FieldName: "extra", FileName: "x.bin", Data: []byte{1, 2}},
		},
	}
	r, contentType, err := body.Encode()
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "multipart/form-data" {
		t.Fatalf("unexpected content type: %s (%v)", contentType, err)
	}

	reader := multipart.NewReader(r, params["boundary"])
	part, err := reader.NextPart()
	if err != nil {
		t.Fatalf("failed to read audio part: %v", err)
	}
	if part.FormName() != "audio" || part.FileName() != `my "memo".webm` || part.Header.Get("Content-Type") != "audio/webm" {
		t.Fatalf("unexpected audio part: name=%s file=%s type=%s", part.FormName(), part.FileName(), part.Header.Get("Content-Type"))
	}
	data, _ := io.ReadAll(part)
	if string(data) != "webm" {
		t.Fatalf("unexpected audio data: %q", data)
	}

	part, err = reader.NextPart()
	if err != nil {
		t.Fatalf("failed to read extra part: %v", err)
	}
	if part.Header.Get("Content-Type") != "application/octet-stream" {
		t.Fatalf("unexpected default content type: %s", part.Header.Get("Content-Type"))
	}

	part, err = reader.NextPart()
	if err != nil {
		t.Fatalf("failed to read model field: %v", err)
	}
	value, _ := io.ReadAll(part)
	if part.FormName() != "model" || string(value) != "whisper" {
		t.Fatalf("unexpected field: %s=%s", part.FormName(), value)
	}
}
