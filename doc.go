// Package feedrank 是社交内容（帖子/短视频）的排序与推荐引擎。
//
// 设计要点：
// - Pipeline-first: 推荐链路由 Node 串联（Recall → Filter → ReRank），可由 YAML 配置组装
// - 离线快照 + 在线请求: engine.Rebuild 周期构建 TF-IDF / 交互矩阵 / 用户聚类，请求只读快照
// - 热度实时更新: 交互写入即累加话题/类目热度，读取时按时间衰减
//
// 入口见 engine 包；命令行演示见 cmd/feedrank。
package feedrank

import "github.com/rushteam/feedrank/pipeline"

// 轻量 facade：便于直接 import "feedrank" 使用链路抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)
