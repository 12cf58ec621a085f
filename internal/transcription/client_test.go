package transcription

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"cloud.google.com/go/speech/apiv2/speechpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// fakeRecognizer is a recognizer stand-in that records the request it
// received and returns a canned response or error.
type fakeRecognizer struct {
	response *speechpb.RecognizeResponse
	err      error

	gotRequest *speechpb.RecognizeRequest
	calls      int
}

func (f *fakeRecognizer) Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) (*speechpb.RecognizeResponse, error) {
	f.calls++
	f.gotRequest = req
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func (f *fakeRecognizer) Close() error { return nil }

func newTestClient(api recognizer) *Client {
	return &Client{
		config: withDefaults(Config{
			RecognizerName: "projects/test/locations/global/recognizers/default",
		}),
		api:    api,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func recognizeResponse(transcripts ...[]string) *speechpb.RecognizeResponse {
	results := make([]*speechpb.SpeechRecognitionResult, 0, len(transcripts))
	for _, alternatives := range transcripts {
		alts := make([]*speechpb.SpeechRecognitionAlternative, 0, len(alternatives))
		for _, text := range alternatives {
			alts = append(alts, &speechpb.SpeechRecognitionAlternative{Transcript: text})
		}
		results = append(results, &speechpb.SpeechRecognitionResult{Alternatives: alts})
	}
	return &speechpb.RecognizeResponse{Results: results}
}

func TestTranscribeSuccess(t *testing.T) {
	fake := &fakeRecognizer{
		response: recognizeResponse(
			[]string{"hello there", "hello their"},
			[]string{"general kenobi"},
		),
	}
	client := newTestClient(fake)

	transcript, err := client.Transcribe(context.Background(), []byte("audio"), "profile-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Top alternative of each result, in order, space-joined.
	if transcript != "hello there general kenobi" {
		t.Errorf("unexpected transcript: %q", transcript)
	}
}

func TestTranscribeRequestShape(t *testing.T) {
	fake := &fakeRecognizer{response: recognizeResponse([]string{"ok"})}
	client := newTestClient(fake)

	if _, err := client.Transcribe(context.Background(), []byte{0x01, 0x02}, "profile-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := fake.gotRequest
	if req == nil {
		t.Fatal("expected a recognition request to be sent")
	}
	if req.GetRecognizer() != "projects/test/locations/global/recognizers/default" {
		t.Errorf("unexpected recognizer: %q", req.GetRecognizer())
	}

	decoding := req.GetConfig().GetExplicitDecodingConfig()
	if decoding == nil {
		t.Fatal("expected explicit decoding config, got auto detection")
	}
	if decoding.GetEncoding() != speechpb.ExplicitDecodingConfig_M4A_AAC {
		t.Errorf("expected M4A_AAC encoding, got %v", decoding.GetEncoding())
	}

	langs := req.GetConfig().GetLanguageCodes()
	if len(langs) != 1 || langs[0] != "en-US" {
		t.Errorf("unexpected language codes: %v", langs)
	}
	if req.GetConfig().GetModel() != "long" {
		t.Errorf("unexpected model: %q", req.GetConfig().GetModel())
	}
	if string(req.GetContent()) != "\x01\x02" {
		t.Errorf("unexpected audio content: %v", req.GetContent())
	}
}

func TestTranscribeZeroResults(t *testing.T) {
	fake := &fakeRecognizer{response: &speechpb.RecognizeResponse{}}
	client := newTestClient(fake)

	transcript, err := client.Transcribe(context.Background(), []byte("audio"), "profile-1")
	if err != nil {
		t.Fatalf("zero results must not be an error, got %v", err)
	}
	if transcript != "" {
		t.Errorf("expected empty transcript, got %q", transcript)
	}
}

func TestTranscribeWhitespaceOnlyResults(t *testing.T) {
	fake := &fakeRecognizer{
		response: recognizeResponse([]string{"  "}, []string{""}),
	}
	client := newTestClient(fake)

	transcript, err := client.Transcribe(context.Background(), []byte("audio"), "profile-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transcript != "" {
		t.Errorf("expected empty transcript after trimming, got %q", transcript)
	}
}

func TestTranscribeSkipsResultsWithoutAlternatives(t *testing.T) {
	fake := &fakeRecognizer{
		response: recognizeResponse([]string{"first"}, []string{}, []string{"second"}),
	}
	client := newTestClient(fake)

	transcript, err := client.Transcribe(context.Background(), []byte("audio"), "profile-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transcript != "first second" {
		t.Errorf("unexpected transcript: %q", transcript)
	}
}

func TestTranscribeErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		expectKind Kind
	}{
		{
			name:       "recognizer not found",
			err:        status.Error(codes.NotFound, "recognizer does not exist"),
			expectKind: KindConfiguration,
		},
		{
			name:       "provider internal failure",
			err:        status.Error(codes.Internal, "backend blew up"),
			expectKind: KindUpstream,
		},
		{
			name:       "provider quota exceeded",
			err:        status.Error(codes.ResourceExhausted, "quota exceeded"),
			expectKind: KindUpstream,
		},
		{
			name:       "non-status failure",
			err:        errors.New("connection reset"),
			expectKind: KindInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(&fakeRecognizer{err: tt.err})

			_, err := client.Transcribe(context.Background(), []byte("audio"), "profile-1")
			if err == nil {
				t.Fatal("expected error, got nil")
			}

			var terr *Error
			if !errors.As(err, &terr) {
				t.Fatalf("expected *transcription.Error, got %T", err)
			}
			if terr.Kind != tt.expectKind {
				t.Errorf("expected kind %v, got %v", tt.expectKind, terr.Kind)
			}
			if terr.HTTPStatus() != 500 {
				t.Errorf("expected HTTP 500 mapping, got %d", terr.HTTPStatus())
			}
		})
	}
}

func TestTranscribeUnavailableClient(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := NewUnavailable(Config{RecognizerName: "projects/test/locations/global/recognizers/default"}, logger)

	_, err := client.Transcribe(context.Background(), []byte("audio"), "profile-1")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var terr *Error
	if !errors.As(err, &terr) {
		t.Fatalf("expected *transcription.Error, got %T", err)
	}
	if terr.Kind != KindUnavailable {
		t.Errorf("expected KindUnavailable, got %v", terr.Kind)
	}
}

func TestConfigDefaults(t *testing.T) {
	config := withDefaults(Config{RecognizerName: "r"})

	if config.LanguageCode != "en-US" {
		t.Errorf("expected default language en-US, got %q", config.LanguageCode)
	}
	if config.Model != "long" {
		t.Errorf("expected default model 'long', got %q", config.Model)
	}
	if config.Timeout != 60*time.Second {
		t.Errorf("expected default timeout 60s, got %v", config.Timeout)
	}
}

func TestGetStats(t *testing.T) {
	fake := &fakeRecognizer{response: recognizeResponse([]string{"ok"})}
	client := newTestClient(fake)

	for i := 0; i < 3; i++ {
		if _, err := client.Transcribe(context.Background(), []byte("audio"), "profile-1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	fake.err = status.Error(codes.Internal, "boom")
	if _, err := client.Transcribe(context.Background(), []byte("audio"), "profile-1"); err == nil {
		t.Fatal("expected error, got nil")
	}

	stats := client.GetStats()
	if stats.TotalRequests != 4 {
		t.Errorf("expected 4 total requests, got %d", stats.TotalRequests)
	}
	if stats.SuccessRequests != 3 {
		t.Errorf("expected 3 successes, got %d", stats.SuccessRequests)
	}
	if stats.FailedRequests != 1 {
		t.Errorf("expected 1 failure, got %d", stats.FailedRequests)
	}
	if stats.SuccessRate != 75 {
		t.Errorf("expected 75%% success rate, got %f", stats.SuccessRate)
	}
}
