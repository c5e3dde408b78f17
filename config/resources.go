package config

import (
	"fmt"

	"github.com/rushteam/feedrank/core"
	"github.com/rushteam/feedrank/filter"
	"github.com/rushteam/feedrank/moderation"
	"github.com/rushteam/feedrank/recall"
)

// DefaultStoreName 是未指定 store 时引用的存储名。
const DefaultStoreName = "default"

// Resources 是配置驱动构建 Node 时可以按名称引用的运行时依赖。
// 节点配置里只写名字，例如 {type: ref, name: recall.cf}。
type Resources struct {
	Stores    map[string]core.Store
	Sources   map[string]recall.Source
	Filters   map[string]filter.Filter
	Trending  recall.TrendingSource
	Moderator *moderation.Moderator
}

// Store 按名称查找存储，name 为空时取 DefaultStoreName。
func (r *Resources) Store(name string) (core.Store, error) {
	if name == "" {
		name = DefaultStoreName
	}
	if s, ok := r.Stores[name]; ok && s != nil {
		return s, nil
	}
	return nil, fmt.Errorf("store %q not registered", name)
}

// Source 按名称查找召回源。
func (r *Resources) Source(name string) (recall.Source, error) {
	if s, ok := r.Sources[name]; ok && s != nil {
		return s, nil
	}
	return nil, fmt.Errorf("recall source %q not registered", name)
}

// Filter 按名称查找过滤器。
func (r *Resources) Filter(name string) (filter.Filter, error) {
	if f, ok := r.Filters[name]; ok && f != nil {
		return f, nil
	}
	return nil, fmt.Errorf("filter %q not registered", name)
}
