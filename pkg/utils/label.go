package utils

import "strings"

const (
	valueSep  = "|"
	sourceSep = ","
)

// Label 是挂在物品/请求上的可追踪标记，例如 recall_source=cf|content。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"` // recall / filter / rerank ...
}

// Values 按 '|' 拆分累积的取值。
func (l Label) Values() []string {
	if l.Value == "" {
		return nil
	}
	return strings.Split(l.Value, valueSep)
}

// MergeLabel 合并同名 Label：Value 以 '|' 累积，Source 以 ',' 累积，已有的取值不重复追加。
// 同一物品被多个召回源命中时，recall_source 因此记录全部来源且顺序为命中顺序。
func MergeLabel(existing Label, incoming Label) Label {
	if existing.Value == "" {
		return incoming
	}
	if incoming.Value == "" {
		return existing
	}
	return Label{
		Value:  appendUnique(existing.Value, incoming.Value, valueSep),
		Source: appendUnique(existing.Source, incoming.Source, sourceSep),
	}
}

func appendUnique(joined, incoming, sep string) string {
	switch {
	case joined == "":
		return incoming
	case incoming == "":
		return joined
	}
	have := strings.Split(joined, sep)
	for _, part := range strings.Split(incoming, sep) {
		dup := false
		for _, h := range have {
			if h == part {
				dup = true
				break
			}
		}
		if !dup {
			have = append(have, part)
		}
	}
	return strings.Join(have, sep)
}
