package transcription

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	speech "cloud.google.com/go/speech/apiv2"
	"cloud.google.com/go/speech/apiv2/speechpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// recognizer is the subset of the Cloud Speech client the transcription
// client depends on. *speech.Client satisfies it.
type recognizer interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) (*speechpb.RecognizeResponse, error)
	Close() error
}

// Config contains transcription client configuration
type Config struct {
	RecognizerName  string
	CredentialsPath string
	LanguageCode    string
	Model           string
	Timeout         time.Duration
}

// Client issues single-shot recognition calls against a pre-configured
// Cloud Speech v2 recognizer. It is constructed once at startup and is
// safe for concurrent use.
type Client struct {
	config Config
	api    recognizer
	logger *slog.Logger

	// Statistics
	totalRequests   uint64
	successRequests uint64
	failedRequests  uint64
	avgResponseTime time.Duration

	mu sync.RWMutex
}

// ClientStats represents client statistics
type ClientStats struct {
	TotalRequests   uint64        `json:"total_requests"`
	SuccessRequests uint64        `json:"success_requests"`
	FailedRequests  uint64        `json:"failed_requests"`
	SuccessRate     float64       `json:"success_rate"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
}

// NewClient creates a transcription client backed by the Cloud Speech v2 API.
// When CredentialsPath is empty the SDK falls back to ambient Application
// Default Credentials discovery.
func NewClient(ctx context.Context, config Config, logger *slog.Logger) (*Client, error) {
	config = withDefaults(config)

	if config.RecognizerName == "" {
		return nil, fmt.Errorf("recognizer name cannot be empty")
	}

	var opts []option.ClientOption
	if config.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsPath))
	}

	api, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	return &Client{
		config: config,
		api:    api,
		logger: logger,
	}, nil
}

// NewUnavailable returns a client whose calls fail immediately with a
// service-unavailable classification. It is used when client construction
// failed at startup so the service can keep serving health checks while
// transcription requests are rejected without touching the network.
func NewUnavailable(config Config, logger *slog.Logger) *Client {
	return &Client{
		config: withDefaults(config),
		logger: logger,
	}
}

func withDefaults(config Config) Config {
	if config.LanguageCode == "" {
		config.LanguageCode = "en-US"
	}
	if config.Model == "" {
		config.Model = "long"
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	return config
}

// Transcribe sends audio content for recognition and returns the assembled
// transcript. The caller guarantees audio is non-empty. An empty transcript
// with a nil error means the provider found no speech.
func (c *Client) Transcribe(ctx context.Context, audio []byte, profileID string) (string, error) {
	if c.api == nil {
		c.logger.Error("transcription requested but speech client is not configured",
			slog.String("profile_id", profileID),
		)
		return "", &Error{
			Kind:    KindUnavailable,
			Message: "transcription service is not properly configured",
		}
	}

	startTime := time.Now()
	c.incrementTotalRequests()

	c.logger.Info("starting transcription",
		slog.String("profile_id", profileID),
		slog.Int("audio_bytes", len(audio)),
	)

	request := &speechpb.RecognizeRequest{
		Recognizer: c.config.RecognizerName,
		Config: &speechpb.RecognitionConfig{
			// Sample rate and channel count are carried by the container.
			DecodingConfig: &speechpb.RecognitionConfig_ExplicitDecodingConfig{
				ExplicitDecodingConfig: &speechpb.ExplicitDecodingConfig{
					Encoding: speechpb.ExplicitDecodingConfig_M4A_AAC,
				},
			},
			LanguageCodes: []string{c.config.LanguageCode},
			Model:         c.config.Model,
		},
		AudioSource: &speechpb.RecognizeRequest_Content{
			Content: audio,
		},
	}

	callCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	c.logger.Debug("sending recognition request",
		slog.String("recognizer", c.config.RecognizerName),
	)

	response, err := c.api.Recognize(callCtx, request)
	if err != nil {
		c.recordFailure(time.Since(startTime))
		return "", c.classifyError(err, profileID)
	}

	c.recordSuccess(time.Since(startTime))

	transcript := assembleTranscript(response)
	if transcript == "" {
		c.logger.Warn("recognition response contained no transcribable text",
			slog.String("profile_id", profileID),
		)
		return "", nil
	}

	c.logger.Info("transcription successful",
		slog.String("profile_id", profileID),
		slog.Int("transcript_length", len(transcript)),
	)

	return transcript, nil
}

// classifyError maps a provider failure to one of the fixed error kinds.
func (c *Client) classifyError(err error, profileID string) error {
	if st, ok := status.FromError(err); ok {
		if st.Code() == codes.NotFound {
			c.logger.Error("recognizer not found, check the resource name and region",
				slog.String("profile_id", profileID),
				slog.String("recognizer", c.config.RecognizerName),
				slog.String("error", err.Error()),
			)
			return &Error{
				Kind:    KindConfiguration,
				Message: "transcription recognizer configuration error: " + st.Message(),
				Cause:   err,
			}
		}

		c.logger.Error("provider API call failed during transcription",
			slog.String("profile_id", profileID),
			slog.String("grpc_code", st.Code().String()),
			slog.String("error", err.Error()),
		)
		return &Error{
			Kind:    KindUpstream,
			Message: "transcription failed due to provider error: " + st.Message(),
			Cause:   err,
		}
	}

	c.logger.Error("unexpected error during transcription API call",
		slog.String("profile_id", profileID),
		slog.String("error", err.Error()),
	)
	return &Error{
		Kind:    KindInternal,
		Message: "an unexpected error occurred during transcription",
		Cause:   err,
	}
}

// assembleTranscript joins the top alternative of each result, in result
// order, with single spaces and trims surrounding whitespace.
func assembleTranscript(response *speechpb.RecognizeResponse) string {
	if response == nil || len(response.GetResults()) == 0 {
		return ""
	}

	parts := make([]string, 0, len(response.GetResults()))
	for _, result := range response.GetResults() {
		alternatives := result.GetAlternatives()
		if len(alternatives) == 0 {
			continue
		}
		parts = append(parts, alternatives[0].GetTranscript())
	}

	return strings.TrimSpace(strings.Join(parts, " "))
}

// Statistics methods
func (c *Client) incrementTotalRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
}

func (c *Client) recordSuccess(responseTime time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.successRequests++
	c.updateAvgResponseTime(responseTime)
}

func (c *Client) recordFailure(responseTime time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failedRequests++
	c.updateAvgResponseTime(responseTime)
}

// updateAvgResponseTime must be called with the mutex held.
func (c *Client) updateAvgResponseTime(responseTime time.Duration) {
	// Simple moving average
	if c.avgResponseTime == 0 {
		c.avgResponseTime = responseTime
	} else {
		c.avgResponseTime = (c.avgResponseTime + responseTime) / 2
	}
}

// GetStats returns current client statistics
func (c *Client) GetStats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	successRate := float64(0)
	if c.totalRequests > 0 {
		successRate = float64(c.successRequests) / float64(c.totalRequests) * 100
	}

	return ClientStats{
		TotalRequests:   c.totalRequests,
		SuccessRequests: c.successRequests,
		FailedRequests:  c.failedRequests,
		SuccessRate:     successRate,
		AvgResponseTime: c.avgResponseTime,
	}
}

// Close releases the underlying provider connection.
func (c *Client) Close() error {
	if c.api == nil {
		return nil
	}
	return c.api.Close()
}
