// Package moderation 提供基于规则的文本审核，以及外部媒体审核服务的接入边界。
package moderation

import (
	"context"
	"regexp"
	"strings"
)

// DefaultSentimentThreshold 低于该情感极性视为负面。
const DefaultSentimentThreshold = -0.5

// DefaultBannedKeywords 是默认违禁词表，按小写子串匹配。
var DefaultBannedKeywords = []string{
	"spam", "hate", "abuse", "violence", "harassment", "bullying",
	"discrimination", "threat", "dangerous", "illegal",
}

var spamPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(buy|sale|discount|offer|deal).*(now|today|urgent)`),
	regexp.MustCompile(`(click|visit).*(link|website|url)`),
	regexp.MustCompile(`(free|win|prize|lottery|money)`),
	regexp.MustCompile(`(urgent|limited|expires|hurry)`),
}

// Moderator 是无状态的文本审核器，可并发使用。
//
// 判定顺序（阈值固定）：
//  1. 空文本：approve，confidence 1.0
//  2. 命中违禁词：inappropriate_language，confidence = 0.8
//  3. 情感极性 < 阈值：negative_sentiment，confidence ×= 0.9（情感分析失败时跳过）
//  4. 促销正则或重复词比例 > 3（词数 > 5）：spam，confidence = 0.7
//  5. 有问题则不通过；confidence > 0.7 建议 block，否则 review
//
// 评估过程中发生 panic 时返回 {true, 0.5, [moderation_error], review}。
type Moderator struct {
	BannedKeywords     []string
	SentimentThreshold float64
	// Sentiment 情感分析器，nil 时跳过第 3 步
	Sentiment SentimentAnalyzer
}

// NewModerator 创建使用默认词表、阈值和本地词典情感分析的审核器。
func NewModerator() *Moderator {
	return &Moderator{
		BannedKeywords:     DefaultBannedKeywords,
		SentimentThreshold: DefaultSentimentThreshold,
		Sentiment:          NewLexiconAnalyzer(),
	}
}

// Moderate 审核文本。
func (m *Moderator) Moderate(text string) Verdict {
	return m.ModerateContext(context.Background(), text)
}

// ModerateContext 审核文本，ctx 透传给情感分析器（远程模型时生效）。
func (m *Moderator) ModerateContext(ctx context.Context, text string) (v Verdict) {
	defer func() {
		if r := recover(); r != nil {
			v = errorVerdict()
		}
	}()

	if strings.TrimSpace(text) == "" {
		return approved(1.0)
	}

	lower := strings.ToLower(text)
	issues := issueSet{}
	confidence := 1.0

	for _, kw := range m.BannedKeywords {
		if kw != "" && strings.Contains(lower, kw) {
			issues.add(IssueInappropriateLanguage)
			confidence = 0.8
			break
		}
	}

	if m.Sentiment != nil {
		if polarity, err := m.Sentiment.Polarity(ctx, text); err == nil && polarity < m.SentimentThreshold {
			issues.add(IssueNegativeSentiment)
			confidence *= 0.9
		}
	}

	if IsSpam(text) {
		issues.add(IssueSpam)
		confidence = 0.7
	}

	return finalize(issues, confidence)
}

// IsSpam 判断文本是否像垃圾推广：命中促销正则，或词数 > 5 且 词数/去重词数 > 3。
func IsSpam(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range spamPatterns {
		if p.MatchString(lower) {
			return true
		}
	}
	words := strings.Fields(lower)
	if len(words) <= 5 {
		return false
	}
	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[w] = struct{}{}
	}
	return float64(len(words))/float64(len(unique)) > 3
}
