package feature

import (
	"fmt"
	"math"
	"sort"

	"github.com/goccy/go-json"
)

// DefaultMaxFeatures 是 TF-IDF 词表默认上限。
const DefaultMaxFeatures = 1000

// Document 是参与向量化的一条文本（帖子 ContentText 或用户 ProfileText）。
type Document struct {
	ID   string
	Text string
}

// Vectorizer 是拟合好的 TF-IDF 模型。
//
//   - tf：原始词频
//   - idf：平滑 idf = ln((1+n)/(1+df)) + 1
//   - 行向量做 L2 归一化
//
// 拟合后只读，可在多个请求间并发使用。
type Vectorizer struct {
	vocab map[string]int
	terms []string
	idf   []float64
}

// ContentMatrix 是物品 TF-IDF 矩阵，行顺序即语料顺序。
type ContentMatrix struct {
	IDs  []string
	Rows []SparseVector
}

// Len 返回行数。
func (m *ContentMatrix) Len() int {
	if m == nil {
		return 0
	}
	return len(m.IDs)
}

// Row 按物品 ID 查找行向量。
func (m *ContentMatrix) Row(id string) (SparseVector, bool) {
	if m == nil {
		return SparseVector{}, false
	}
	for i, v := range m.IDs {
		if v == id {
			return m.Rows[i], true
		}
	}
	return SparseVector{}, false
}

// BuildContentVectors 在 docs 上拟合 TF-IDF 并返回物品矩阵。
//
// 词表取语料词频最高的 maxFeatures 个词（同频按字典序），词表内按字典序编号；
// maxFeatures <= 0 时使用 DefaultMaxFeatures。
// docs 为空时返回空向量化器和空矩阵，不报错。相同输入顺序下结果确定。
func BuildContentVectors(docs []Document, maxFeatures int) (*Vectorizer, *ContentMatrix) {
	if maxFeatures <= 0 {
		maxFeatures = DefaultMaxFeatures
	}
	vz := &Vectorizer{vocab: map[string]int{}}
	matrix := &ContentMatrix{IDs: make([]string, 0, len(docs)), Rows: make([]SparseVector, 0, len(docs))}
	if len(docs) == 0 {
		return vz, matrix
	}

	tokens := make([][]string, len(docs))
	freq := make(map[string]int)
	df := make(map[string]int)
	for i, d := range docs {
		tokens[i] = Tokenize(d.Text)
		seen := make(map[string]struct{}, len(tokens[i]))
		for _, t := range tokens[i] {
			freq[t]++
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				df[t]++
			}
		}
	}

	terms := make([]string, 0, len(freq))
	for t := range freq {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if freq[terms[i]] != freq[terms[j]] {
			return freq[terms[i]] > freq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > maxFeatures {
		terms = terms[:maxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(docs))
	vz.terms = terms
	vz.idf = make([]float64, len(terms))
	for i, t := range terms {
		vz.vocab[t] = i
		vz.idf[i] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}

	for i, d := range docs {
		matrix.IDs = append(matrix.IDs, d.ID)
		matrix.Rows = append(matrix.Rows, vz.transformTokens(tokens[i]))
	}
	return vz, matrix
}

// Transform 用已拟合的词表向量化文本，词表外的词被忽略。
func (vz *Vectorizer) Transform(text string) SparseVector {
	if vz == nil || len(vz.vocab) == 0 {
		return SparseVector{}
	}
	return vz.transformTokens(Tokenize(text))
}

// VocabularySize 返回词表大小。
func (vz *Vectorizer) VocabularySize() int {
	if vz == nil {
		return 0
	}
	return len(vz.terms)
}

// Terms 返回按编号排列的词表副本。
func (vz *Vectorizer) Terms() []string {
	if vz == nil {
		return nil
	}
	return append([]string(nil), vz.terms...)
}

func (vz *Vectorizer) transformTokens(tokens []string) SparseVector {
	counts := make(map[int]float64)
	for _, t := range tokens {
		if idx, ok := vz.vocab[t]; ok {
			counts[idx]++
		}
	}
	var norm float64
	for idx, c := range counts {
		w := c * vz.idf[idx]
		counts[idx] = w
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for idx := range counts {
			counts[idx] /= norm
		}
	}
	return NewSparseVector(counts)
}

// VectorizerState 是 Vectorizer 的可序列化形态，供调用方持久化。
type VectorizerState struct {
	Terms []string  `json:"terms"`
	IDF   []float64 `json:"idf"`
}

// State 导出当前状态。
func (vz *Vectorizer) State() VectorizerState {
	if vz == nil {
		return VectorizerState{}
	}
	return VectorizerState{
		Terms: append([]string(nil), vz.terms...),
		IDF:   append([]float64(nil), vz.idf...),
	}
}

// ContentState 是词表与内容矩阵一起持久化的形态。
type ContentState struct {
	Vectorizer VectorizerState `json:"vectorizer"`
	IDs        []string        `json:"ids"`
	Rows       []SparseVector  `json:"rows"`
}

// MarshalContent 把词表与内容矩阵编码为 JSON。
func MarshalContent(vz *Vectorizer, m *ContentMatrix) ([]byte, error) {
	st := ContentState{Vectorizer: vz.State()}
	if m != nil {
		st.IDs, st.Rows = m.IDs, m.Rows
	}
	return json.Marshal(st)
}

// LoadContent 从 JSON 恢复词表与内容矩阵。
// 词表长度不一致、ID 与行数不一致或 ID 重复时返回 ErrShapeMismatch。
func LoadContent(data []byte) (*Vectorizer, *ContentMatrix, error) {
	var st ContentState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, nil, fmt.Errorf("feature: decode content state: %w", err)
	}
	vz, err := FromState(st.Vectorizer)
	if err != nil {
		return nil, nil, err
	}
	if len(st.IDs) != len(st.Rows) {
		return nil, nil, fmt.Errorf("feature: %d ids vs %d rows: %w", len(st.IDs), len(st.Rows), errShapeMismatch)
	}
	m := &ContentMatrix{IDs: st.IDs, Rows: st.Rows}
	if m.IDs == nil {
		m.IDs, m.Rows = []string{}, []SparseVector{}
	}
	seen := make(map[string]struct{}, len(m.IDs))
	for _, id := range m.IDs {
		if _, dup := seen[id]; dup {
			return nil, nil, fmt.Errorf("feature: duplicate item %q: %w", id, errShapeMismatch)
		}
		seen[id] = struct{}{}
	}
	return vz, m, nil
}

// FromState 由状态构建 Vectorizer。
func FromState(st VectorizerState) (*Vectorizer, error) {
	if len(st.Terms) != len(st.IDF) {
		return nil, fmt.Errorf("feature: %d terms vs %d idf values: %w", len(st.Terms), len(st.IDF), errShapeMismatch)
	}
	vz := &Vectorizer{
		vocab: make(map[string]int, len(st.Terms)),
		terms: append([]string(nil), st.Terms...),
		idf:   append([]float64(nil), st.IDF...),
	}
	for i, t := range vz.terms {
		vz.vocab[t] = i
	}
	return vz, nil
}
