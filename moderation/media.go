package moderation

import (
	"context"
	"fmt"

	"github.com/rushteam/feedrank/core"
)

// DefaultMediaThreshold 媒体风险分达到该值即标记。
const DefaultMediaThreshold = 0.5

// MediaReport 是外部视觉服务对一张图片/一段视频的分析结果。
type MediaReport struct {
	AdultScore    float64
	ViolenceScore float64
	Labels        []string
}

// MediaAnalyzer 是图像/视频分析的外部服务边界，本仓库不做任何视觉计算。
type MediaAnalyzer interface {
	AnalyzeMedia(ctx context.Context, url string) (MediaReport, error)
}

// UnavailableMedia 是未接入视觉服务时的占位实现，总是返回 ErrServiceUnavailable。
type UnavailableMedia struct{}

func (UnavailableMedia) AnalyzeMedia(context.Context, string) (MediaReport, error) {
	return MediaReport{}, core.ErrServiceUnavailable
}

// RemoteMedia 通过模型服务分析媒体：Scores 依次为 [adult, violence]，Labels[0] 为识别出的对象。
type RemoteMedia struct {
	Service   core.ModelService
	ModelName string
}

func (r *RemoteMedia) AnalyzeMedia(ctx context.Context, url string) (MediaReport, error) {
	if r == nil || r.Service == nil {
		return MediaReport{}, core.ErrServiceUnavailable
	}
	resp, err := r.Service.Predict(ctx, &core.PredictRequest{ModelName: r.ModelName, URLs: []string{url}})
	if err != nil {
		return MediaReport{}, fmt.Errorf("moderation: media: %w", err)
	}
	if resp == nil || len(resp.Scores) < 2 {
		return MediaReport{}, core.NewDomainError(core.ModuleModeration, core.ErrorCodeInternalError, "moderation: malformed media response")
	}
	rep := MediaReport{AdultScore: resp.Scores[0], ViolenceScore: resp.Scores[1]}
	if len(resp.Labels) > 0 {
		rep.Labels = resp.Labels[0]
	}
	return rep, nil
}

// ModerateMedia 审核图片/视频。
// 服务不可用或出错时返回 {true, 0.5, [moderation_error], review}；
// 风险分 >= threshold 时标记 potential_inappropriate_content，confidence 为最高风险分。
// 无风险时 approve，confidence 0.9。
func ModerateMedia(ctx context.Context, analyzer MediaAnalyzer, url string, threshold float64) (v Verdict) {
	defer func() {
		if r := recover(); r != nil {
			v = errorVerdict()
		}
	}()
	if analyzer == nil {
		return errorVerdict()
	}
	if threshold <= 0 {
		threshold = DefaultMediaThreshold
	}
	rep, err := analyzer.AnalyzeMedia(ctx, url)
	if err != nil {
		return errorVerdict()
	}
	risk := rep.AdultScore
	if rep.ViolenceScore > risk {
		risk = rep.ViolenceScore
	}
	if risk < threshold {
		return approved(0.9)
	}
	issues := issueSet{}
	issues.add(IssueInappropriateMedia)
	return finalize(issues, clamp(risk, 0, 1))
}
