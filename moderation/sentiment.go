package moderation

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/rushteam/feedrank/core"
)

// SentimentAnalyzer 返回文本情感极性，范围 [-1, 1]。
// 不可用时返回错误，审核器会跳过情感判定而不是失败。
type SentimentAnalyzer interface {
	Polarity(ctx context.Context, text string) (float64, error)
}

// LexiconAnalyzer 是基于情感词典的本地分析器：
// 极性 = 命中词极性的平均值；前面紧跟否定词时极性取反并减半。
type LexiconAnalyzer struct {
	Words     map[string]float64
	Negations map[string]struct{}
}

// DefaultLexicon 是默认情感词典。
var DefaultLexicon = map[string]float64{
	"amazing": 0.6, "awesome": 1.0, "great": 0.8, "love": 0.5, "perfect": 1.0,
	"excellent": 1.0, "wonderful": 1.0, "fantastic": 0.4, "beautiful": 0.85, "happy": 0.8,
	"good": 0.7, "nice": 0.6, "best": 1.0, "fun": 0.3, "lovely": 0.5,
	"hate": -0.8, "terrible": -1.0, "awful": -1.0, "bad": -0.7, "worst": -1.0,
	"horrible": -1.0, "disgusting": -1.0, "annoying": -0.8, "sad": -0.5, "ugly": -0.7,
	"boring": -1.0, "stupid": -0.8, "poor": -0.4, "angry": -0.5, "pathetic": -1.0,
}

var defaultNegations = []string{"not", "no", "never", "dont", "don't", "isnt", "isn't", "wasnt", "wasn't", "cant", "can't"}

func NewLexiconAnalyzer() *LexiconAnalyzer {
	neg := make(map[string]struct{}, len(defaultNegations))
	for _, n := range defaultNegations {
		neg[n] = struct{}{}
	}
	return &LexiconAnalyzer{Words: DefaultLexicon, Negations: neg}
}

func (a *LexiconAnalyzer) Polarity(_ context.Context, text string) (float64, error) {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	var sum float64
	var n int
	for i, w := range words {
		p, ok := a.Words[w]
		if !ok {
			continue
		}
		if i > 0 {
			if _, neg := a.Negations[words[i-1]]; neg {
				p *= -0.5
			}
		}
		sum += p
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return clamp(sum/float64(n), -1, 1), nil
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// RemoteSentiment 调用外部情感模型服务，响应 Scores[0] 即极性。
type RemoteSentiment struct {
	Service   core.ModelService
	ModelName string
}

func (r *RemoteSentiment) Polarity(ctx context.Context, text string) (float64, error) {
	if r == nil || r.Service == nil {
		return 0, core.ErrServiceUnavailable
	}
	resp, err := r.Service.Predict(ctx, &core.PredictRequest{ModelName: r.ModelName, Texts: []string{text}})
	if err != nil {
		return 0, fmt.Errorf("moderation: sentiment: %w", err)
	}
	if resp == nil || len(resp.Scores) == 0 {
		return 0, core.NewDomainError(core.ModuleModeration, core.ErrorCodeInternalError, "moderation: empty sentiment response")
	}
	return clamp(resp.Scores[0], -1, 1), nil
}

// FallbackSentiment 依次尝试多个分析器，返回第一个成功的结果。
type FallbackSentiment []SentimentAnalyzer

func (f FallbackSentiment) Polarity(ctx context.Context, text string) (float64, error) {
	var lastErr error = core.ErrServiceUnavailable
	for _, a := range f {
		p, err := a.Polarity(ctx, text)
		if err == nil {
			return p, nil
		}
		lastErr = err
	}
	return 0, lastErr
}
