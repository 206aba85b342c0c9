// Package ai answers free-form reader questions through the Gemini REST
// API, with a persistent answer cache keyed by normalized question text.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"zavit/config"
)

// ErrDisabled is returned when the assistant is turned off in configuration.
var ErrDisabled = errors.New("assistant is disabled")

const promptPreamble = "Ти помічник, що відповідає на запитання про Новий Завіт українською мовою. " +
	"Відповідай стисло, простою мовою, спираючись на текст Писання. " +
	"Якщо запитання не стосується Біблії, ввічливо скажи, що можеш говорити лише про Новий Завіт.\n\nЗапитання: "

const (
	commentaryPreamble = "На основі коментарів Вільяма Барклі з його серії \"Daily Study Bible\", " +
		"надай короткий виклад його думок про ці вірші:\n\n"
	commentaryEpilogue = "\n\nВключи основні ідеї Барклі: історичний та культурний контекст, " +
		"значення грецьких/єврейських слів, богословське тлумачення та практичні уроки для сучасного життя."
)

// CommentaryPrompt builds the Barclay commentary request for an excerpt.
// Verse strings carry their own leading numbers.
func CommentaryPrompt(bookTitle string, chapterInBook int, verses []string) string {
	return commentaryPreamble +
		bookTitle + ", Розділ " + strconv.Itoa(chapterInBook) + "\n\n" +
		strings.Join(verses, "\n") + "\n" +
		commentaryEpilogue
}

// CommentaryKey is the cache key for a commentary on a verse run. Unlike
// free-form questions it is position-derived, the excerpt text never varies
// for the same address.
func CommentaryKey(chapterIndex, verseStart, verseCount int) string {
	return fmt.Sprintf("barclay-%d-%d-%d", chapterIndex, verseStart, verseCount)
}

// Cache is the persistent answer store.
type Cache interface {
	CachedAIResponse(ctx context.Context, key string) (string, bool, error)
	SaveAIResponse(ctx context.Context, key, model, response string) error
}

// Client calls the generateContent endpoint. Safe for concurrent use.
type Client struct {
	conf     config.AIConfig
	http     *http.Client
	cache    Cache
	splitter *Splitter
	log      *zap.Logger
}

func NewClient(conf config.AIConfig, cache Cache, log *zap.Logger) *Client {
	return &Client{
		conf:     conf,
		http:     &http.Client{Timeout: 60 * time.Second},
		cache:    cache,
		splitter: NewSplitter(conf.SentencesModel, log),
		log:      log,
	}
}

// CacheKey normalizes a question into a stable cache key.
func CacheKey(question string) string {
	return slug.Make(question)
}

// Ask answers a free-form question, consulting the cache first. The reply
// is cut to the configured limit on a sentence boundary.
func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	if !c.conf.Enable {
		return "", ErrDisabled
	}
	question = strings.TrimSpace(question)
	if len(question) == 0 {
		return "", errors.New("empty question")
	}
	return c.answer(ctx, CacheKey(question), promptPreamble+question)
}

// Commentary requests Barclay commentary with the given prompt, cached
// under key. The same cache, limit and retry rules as Ask apply.
func (c *Client) Commentary(ctx context.Context, key, prompt string) (string, error) {
	if !c.conf.Enable {
		return "", ErrDisabled
	}
	if len(prompt) == 0 {
		return "", errors.New("empty prompt")
	}
	return c.answer(ctx, key, prompt)
}

func (c *Client) answer(ctx context.Context, key, prompt string) (string, error) {
	if c.cache != nil {
		if answer, found, err := c.cache.CachedAIResponse(ctx, key); err != nil {
			c.log.Warn("Answer cache lookup failed", zap.String("key", key), zap.Error(err))
		} else if found {
			c.log.Debug("Answer served from cache", zap.String("key", key))
			return answer, nil
		}
	}

	answer, err := c.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	answer = c.splitter.TrimToLimit(answer, c.conf.ReplyLimit)

	if c.cache != nil {
		if err := c.cache.SaveAIResponse(ctx, key, c.conf.Model, answer); err != nil {
			c.log.Warn("Unable to cache answer", zap.String("key", key), zap.Error(err))
		}
	}
	return answer, nil
}

type (
	generateRequest struct {
		Contents []content `json:"contents"`
	}
	content struct {
		Parts []part `json:"parts"`
	}
	part struct {
		Text string `json:"text"`
	}
	generateResponse struct {
		Candidates []struct {
			Content content `json:"content"`
		} `json:"candidates"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
)

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(c.conf.Endpoint, "/"), c.conf.Model)

	var lastErr error
	for attempt := 0; attempt <= c.conf.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
			c.log.Debug("Retrying generate request", zap.Int("attempt", attempt))
		}

		answer, retryable, err := c.doRequest(ctx, url, body)
		if err == nil {
			return answer, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return "", fmt.Errorf("generate request failed: %w", lastErr)
}

func (c *Client) doRequest(ctx context.Context, url string, body []byte) (answer string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", string(c.conf.APIKey))

	resp, err := c.http.Do(req)
	if err != nil {
		return "", true, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", true, err
	}

	if resp.StatusCode != http.StatusOK {
		// throttling and server trouble are worth retrying, the rest is not
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", retryable, fmt.Errorf("unexpected status %s: %s", resp.Status, firstLine(data))
	}

	var gr generateResponse
	if err := json.Unmarshal(data, &gr); err != nil {
		return "", false, fmt.Errorf("unable to decode response: %w", err)
	}
	if gr.Error != nil {
		return "", false, fmt.Errorf("service error %d: %s", gr.Error.Code, gr.Error.Message)
	}
	if len(gr.Candidates) == 0 {
		return "", false, errors.New("response has no candidates")
	}

	var b strings.Builder
	for _, p := range gr.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	text := strings.TrimSpace(b.String())
	if len(text) == 0 {
		return "", false, errors.New("response candidate is empty")
	}
	return text, false, nil
}

func firstLine(data []byte) string {
	s := strings.TrimSpace(string(data))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
