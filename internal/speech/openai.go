package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/ent0n29/backtoback/internal/conversation"
)

// maxInputChars clamps text handed to the TTS vendor.
const maxInputChars = 1000

// speakerVoices maps each speaker to a distinct vendor voice.
var speakerVoices = map[conversation.Speaker]openai.SpeechVoice{
	conversation.SpeakerAgent1: openai.VoiceAlloy,
	conversation.SpeakerAgent2: openai.VoiceEcho,
	conversation.SpeakerHuman:  openai.VoiceNova,
}

// OpenAIConfig holds the settings for the speech synthesizer.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// OpenAISynthesizer renders turn text to mp3 through the OpenAI speech API
// and stores the result in the audio file store.
type OpenAISynthesizer struct {
	client  *openai.Client
	files   *FileStore
	model   openai.SpeechModel
	timeout time.Duration
}

func NewOpenAISynthesizer(cfg OpenAIConfig, files *FileStore) (*OpenAISynthesizer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	if files == nil {
		return nil, errors.New("audio file store is required")
	}
	model := openai.SpeechModel(cfg.Model)
	if cfg.Model == "" {
		model = openai.TTSModel1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &OpenAISynthesizer{
		client:  openai.NewClient(cfg.APIKey),
		files:   files,
		model:   model,
		timeout: cfg.Timeout,
	}, nil
}

func (s *OpenAISynthesizer) Synthesize(ctx context.Context, text string, speaker conversation.Speaker) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	if len(text) > maxInputChars {
		text = text[:maxInputChars]
	}
	voice, ok := speakerVoices[speaker]
	if !ok {
		voice = openai.VoiceAlloy
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          s.model,
		Input:          text,
		Voice:          voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return "", fmt.Errorf("create speech: %w", err)
	}
	defer resp.Close()

	return s.files.Save(uuid.NewString()+".mp3", resp)
}
