// Package scanner turns OCR text from scanned documents into the structured
// Scanned address shape using a chat completion model.
package scanner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"address-reconciliation/internal/constants"
	"address-reconciliation/internal/prompts"
	"address-reconciliation/pkg/address"
	"address-reconciliation/pkg/circuit"
	errs "address-reconciliation/pkg/errors"
	"address-reconciliation/pkg/logging"
	"address-reconciliation/pkg/metrics"
)

// ChatCompleter is the part of the OpenAI client the extractor needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Options struct {
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	// Hint names the usual service area, e.g. "Detroit, MI"; optional.
	Hint string
}

var mExtractions = metrics.Default.CounterVec("scanner_extractions_total",
	"OCR address extractions by result", "result")

type Extractor struct {
	client  ChatCompleter
	pm      *prompts.Manager
	breaker *circuit.Breaker
	opts    Options
	log     *logging.ComponentLogger
}

// New builds an extractor around client. Calls go through a circuit breaker
// so a failing model endpoint is not hammered by every scan.
func New(client ChatCompleter, pm *prompts.Manager, opts Options, log *logging.Logger) *Extractor {
	if opts.Model == "" {
		opts.Model = openai.GPT4oMini
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 200
	}
	if opts.Timeout <= 0 {
		opts.Timeout = constants.ScannerRequestTimeoutDefault
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Extractor{
		client: client,
		pm:     pm,
		breaker: circuit.New(circuit.Config{
			Name:              "openai_extract",
			OperationTimeout:  opts.Timeout,
			OpenFor:           constants.ScannerOpenFor,
			MaxConsecFailures: constants.ScannerMaxConsecFailures,
			FailureRate:       constants.ScannerCircuitFailureRate,
		}, log),
		opts: opts,
		log:  log.WithComponent("scanner"),
	}
}

// NewOpenAI is New with the stock OpenAI client.
func NewOpenAI(apiKey string, pm *prompts.Manager, opts Options, log *logging.Logger) *Extractor {
	return New(openai.NewClient(apiKey), pm, opts, log)
}

// Extract asks the model for the service address in ocrText. Fields the model
// could not find come back empty; the result is meant to be fed to
// address.Canonicalize, which decides whether it is usable.
func (e *Extractor) Extract(ctx context.Context, ocrText string) (address.Scanned, error) {
	text := strings.TrimSpace(ocrText)
	if text == "" {
		return address.Scanned{}, errs.NewValidation("scanner.Extract", "ocr text is empty", nil)
	}

	system, err := e.pm.Render(prompts.ExtractAddressSystem, map[string]any{"Hint": e.opts.Hint})
	if err != nil {
		return address.Scanned{}, err
	}
	user, err := e.pm.Render(prompts.ExtractAddressUser, map[string]any{"Text": text})
	if err != nil {
		return address.Scanned{}, err
	}

	var content string
	err = e.breaker.Do(ctx, func(ctx context.Context) error {
		resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: e.opts.Model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: user},
			},
			Temperature:    e.opts.Temperature,
			MaxTokens:      e.opts.MaxTokens,
			ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return errors.New("no choices in completion")
		}
		content = resp.Choices[0].Message.Content
		return nil
	}, nil)

	if errors.Is(err, circuit.ErrOpen) {
		mExtractions.WithLabelValues("rejected").Inc()
		return address.Scanned{}, errs.NewExternal("scanner.Extract", "openai", "extraction temporarily unavailable", err)
	}
	if err != nil {
		mExtractions.WithLabelValues("error").Inc()
		e.log.WithContext(ctx).Error("Address extraction failed", err, logging.Int("ocr_chars", len(text)))
		return address.Scanned{}, errs.NewExternal("scanner.Extract", "openai", "completion failed", err)
	}

	sc, err := ParseResponse(content)
	if err != nil {
		mExtractions.WithLabelValues("unparseable").Inc()
		e.log.WithContext(ctx).Warn("Unparseable extraction response", logging.String("content", truncate(content, 200)))
		return address.Scanned{}, errs.NewExternal("scanner.Extract", "openai", "unparseable response", err)
	}
	mExtractions.WithLabelValues("ok").Inc()
	return sc, nil
}

// ParseResponse decodes the model's {street, city, state, zip} object,
// tolerating a markdown code fence around it and trimming every field.
func ParseResponse(content string) (address.Scanned, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var raw struct {
		Street *string `json:"street"`
		City   *string `json:"city"`
		State  *string `json:"state"`
		Zip    any     `json:"zip"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return address.Scanned{}, err
	}
	if raw.Street == nil {
		return address.Scanned{}, errors.New(`response has no "street" field`)
	}
	return address.Scanned{
		Street: strings.TrimSpace(*raw.Street),
		City:   strings.TrimSpace(deref(raw.City)),
		State:  strings.TrimSpace(deref(raw.State)),
		Zip:    zipString(raw.Zip),
	}, nil
}

// models sometimes emit the zip as a number, losing a leading zero
func zipString(v any) string {
	switch z := v.(type) {
	case string:
		return strings.TrimSpace(z)
	case float64:
		if z > 0 && z < 100000 {
			return fmt.Sprintf("%05d", int64(z))
		}
		return strconv.FormatInt(int64(z), 10)
	default:
		return ""
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
