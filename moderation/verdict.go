package moderation

import "sort"

// Action 是审核建议动作。
type Action string

const (
	ActionApprove Action = "approve"
	ActionReview  Action = "review"
	ActionBlock   Action = "block"
)

// 问题标签
const (
	IssueInappropriateLanguage = "inappropriate_language"
	IssueNegativeSentiment     = "negative_sentiment"
	IssueSpam                  = "spam"
	IssueInappropriateMedia    = "potential_inappropriate_content"
	IssueModerationError       = "moderation_error"
)

// Verdict 是一次审核的结果，不持久化，由调用方决定如何处理。
type Verdict struct {
	IsAppropriate   bool     `json:"is_appropriate"`
	Confidence      float64  `json:"confidence"`
	Issues          []string `json:"issues"`
	SuggestedAction Action   `json:"suggested_action"`
}

// Has 判断是否包含某个问题标签。
func (v Verdict) Has(issue string) bool {
	i := sort.SearchStrings(v.Issues, issue)
	return i < len(v.Issues) && v.Issues[i] == issue
}

func approved(confidence float64) Verdict {
	return Verdict{IsAppropriate: true, Confidence: confidence, Issues: []string{}, SuggestedAction: ActionApprove}
}

func errorVerdict() Verdict {
	return Verdict{IsAppropriate: true, Confidence: 0.5, Issues: []string{IssueModerationError}, SuggestedAction: ActionReview}
}

// issueSet 收集问题标签，输出为去重后的有序切片。
type issueSet map[string]struct{}

func (s issueSet) add(issue string) { s[issue] = struct{}{} }

func (s issueSet) sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// finalize 汇总：有问题则不通过，confidence > 0.7 建议 block，否则 review。
func finalize(issues issueSet, confidence float64) Verdict {
	v := Verdict{
		IsAppropriate:   len(issues) == 0,
		Confidence:      confidence,
		Issues:          issues.sorted(),
		SuggestedAction: ActionApprove,
	}
	if !v.IsAppropriate {
		if confidence > 0.7 {
			v.SuggestedAction = ActionBlock
		} else {
			v.SuggestedAction = ActionReview
		}
	}
	return v
}
