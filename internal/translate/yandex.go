package translate

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Morwran/yagpt"
	"github.com/pkg/errors"
)

// IAM tokens live for 12 hours; refresh well before that.
const iamTokenTTL = time.Hour

// YandexBackend translates with YandexGPT.
type YandexBackend struct {
	oauthToken string
	ya         yagpt.YaGPTFace

	mu       sync.Mutex
	iamToken string
	issued   time.Time
}

func NewYandex(oauthToken, folderID string) (*YandexBackend, error) {
	ya, err := yagpt.NewYagpt(folderID)
	if err != nil {
		return nil, errors.Wrap(err, "init yagpt")
	}
	b := &YandexBackend{oauthToken: oauthToken, ya: ya}
	if _, err := b.token(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *YandexBackend) Name() string { return "yandex" }

func (b *YandexBackend) token() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.iamToken != "" && time.Since(b.issued) < iamTokenTTL {
		return b.iamToken, nil
	}
	iam, err := yagpt.NewYaIam(b.oauthToken)
	if err != nil {
		return "", errors.Wrap(err, "init yandex iam")
	}
	resp, err := iam.Create()
	if err != nil {
		return "", errors.Wrap(err, "create iam token")
	}
	b.iamToken = resp.IamToken
	b.issued = time.Now()
	return b.iamToken, nil
}

func (b *YandexBackend) Translate(ctx context.Context, text, target string) (string, error) {
	tok, err := b.token()
	if err != nil {
		return "", err
	}
	messages := []yagpt.Message{
		{Role: "system", Content: systemPrompt(target)},
		{Role: "user", Content: text},
	}
	resp, err := b.ya.CompletionWithCtx(ctx, tok, messages)
	if err != nil {
		return "", errors.Wrap(err, "yagpt completion")
	}
	if resp == nil || len(resp.Alternatives) == 0 {
		return "", errors.New("yagpt returned empty response")
	}
	return strings.TrimSpace(resp.Alternatives[0].Message.Content), nil
}
