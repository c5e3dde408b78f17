package feature

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/rushteam/feedrank/core"
)

const eps = 1e-9

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestTokenize(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"", []string{}},
		{"I love the #Travel life!", []string{"love", "travel", "life"}},
		{"a b cd", []string{"cd"}},
		{"Coffee_Time at 9am", []string{"coffee_time", "9am"}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := Tokenize(tt.text)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestSuggestHashtags(t *testing.T) {
	tests := []struct {
		name    string
		caption string
		labels  []string
		want    []string
	}{
		{"empty", "", nil, []string{}},
		{"first three long words", "Sunny day at the Beach with friends and coffee", nil, []string{"#sunny", "#beach", "#with"}},
		{"skips digits and short words", "2024 trip to Kyoto4 temples", nil, []string{"#trip", "#temples"}},
		{"media labels appended", "Mountain sunrise", []string{"Mountain", "golden hour", "#Sky"}, []string{"#mountain", "#sunrise", "#goldenhour", "#sky"}},
		{
			"capped at eight",
			"alpha bravo charlie delta",
			[]string{"l1", "l2", "l3", "l4", "l5", "l6"},
			[]string{"#alpha", "#bravo", "#charlie", "#l1", "#l2", "#l3", "#l4", "#l5"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SuggestHashtags(tt.caption, tt.labels)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SuggestHashtags(%q, %v) = %v, want %v", tt.caption, tt.labels, got, tt.want)
			}
		})
	}
}

func TestBuildContentVectors(t *testing.T) {
	docs := []Document{
		{ID: "p1", Text: "sunset beach travel"},
		{ID: "p2", Text: "beach volleyball"},
		{ID: "p3", Text: "coffee morning"},
	}

	t.Run("empty corpus", func(t *testing.T) {
		vz, m := BuildContentVectors(nil, 10)
		if m.Len() != 0 || vz.VocabularySize() != 0 {
			t.Fatalf("expected empty outputs, got %d rows, %d terms", m.Len(), vz.VocabularySize())
		}
		if v := vz.Transform("beach"); v.Len() != 0 {
			t.Errorf("Transform on empty vocabulary = %v", v)
		}
	})

	t.Run("rows are l2 normalized", func(t *testing.T) {
		_, m := BuildContentVectors(docs, 0)
		for i, row := range m.Rows {
			if !almostEqual(row.Norm(), 1) {
				t.Errorf("row %d norm = %v", i, row.Norm())
			}
		}
	})

	t.Run("vocabulary cap keeps most frequent", func(t *testing.T) {
		vz, _ := BuildContentVectors(docs, 1)
		if got := vz.Terms(); !reflect.DeepEqual(got, []string{"beach"}) {
			t.Errorf("Terms() = %v, want [beach]", got)
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		vz1, m1 := BuildContentVectors(docs, 1000)
		vz2, m2 := BuildContentVectors(docs, 1000)
		if !reflect.DeepEqual(vz1.State(), vz2.State()) || !reflect.DeepEqual(m1, m2) {
			t.Error("two builds over the same input differ")
		}
	})

	t.Run("transform ignores unknown terms", func(t *testing.T) {
		vz, m := BuildContentVectors(docs, 1000)
		q := vz.Transform("beach unicorn")
		if q.Len() != 1 {
			t.Fatalf("Transform() = %v, want one term", q)
		}
		if Cosine(q, m.Rows[2]) != 0 {
			t.Error("query matched unrelated doc")
		}
		if Cosine(q, m.Rows[1]) <= Cosine(q, m.Rows[0]) {
			t.Error("shorter doc sharing the term should score higher")
		}
	})
}

func TestContentState(t *testing.T) {
	docs := []Document{{ID: "a", Text: "music festival"}, {ID: "b", Text: "music studio"}}
	vz, m := BuildContentVectors(docs, 10)
	data, err := MarshalContent(vz, m)
	if err != nil {
		t.Fatalf("MarshalContent() error = %v", err)
	}
	rvz, rm, err := LoadContent(data)
	if err != nil {
		t.Fatalf("LoadContent() error = %v", err)
	}
	if !reflect.DeepEqual(vz.State(), rvz.State()) || !reflect.DeepEqual(m.IDs, rm.IDs) {
		t.Errorf("restored state = %+v / %v", rvz.State(), rm.IDs)
	}
	q := rvz.Transform("music festival")
	if !reflect.DeepEqual(vz.Transform("music festival"), q) {
		t.Error("restored vectorizer transforms differently")
	}
	row, ok := rm.Row("a")
	if !ok || !almostEqual(Cosine(q, row), 1) {
		t.Errorf("restored row a cosine = %v, %v", Cosine(q, row), ok)
	}

	emptyData, err := MarshalContent(BuildContentVectors(nil, 0))
	if err != nil {
		t.Fatal(err)
	}
	if evz, em, err := LoadContent(emptyData); err != nil || evz.VocabularySize() != 0 || em.Len() != 0 {
		t.Errorf("empty LoadContent() = %v, %v, %v", evz, em, err)
	}

	for name, raw := range map[string]string{
		"terms vs idf": `{"vectorizer":{"terms":["x"],"idf":[]}}`,
		"ids vs rows":  `{"vectorizer":{"terms":[],"idf":[]},"ids":["a"],"rows":[]}`,
		"duplicate id": `{"vectorizer":{"terms":[],"idf":[]},"ids":["a","a"],"rows":[{},{}]}`,
	} {
		if _, _, err := LoadContent([]byte(raw)); !errors.Is(err, core.ErrShapeMismatch) {
			t.Errorf("%s: LoadContent() error = %v, want ErrShapeMismatch", name, err)
		}
	}
	if _, _, err := LoadContent([]byte("{")); err == nil {
		t.Error("malformed state should fail")
	}
}

func TestBuildInteractionMatrix(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	w := core.DefaultActionWeights()
	log := []core.Interaction{
		core.NewInteraction("u2", "p1", core.KindPost, core.ActionLike, w, t0),
		core.NewInteraction("u1", "p2", core.KindPost, core.ActionShare, w, t0),
		core.NewInteraction("u2", "p1", core.KindPost, core.ActionView, w, t0.Add(time.Minute)),
		{UserID: "u1", ItemID: "r1", Kind: core.KindReel, Action: core.ActionComment},
	}

	m := BuildInteractionMatrix(log, w)
	if !reflect.DeepEqual(m.Users, []string{"u2", "u1"}) {
		t.Errorf("Users = %v", m.Users)
	}
	if !reflect.DeepEqual(m.Items, []string{"p1", "p2", "r1"}) {
		t.Errorf("Items = %v", m.Items)
	}
	if got := m.Weight("u2", "p1"); got != 0.1 {
		t.Errorf("later interaction should overwrite: got %v, want 0.1", got)
	}
	if got := m.Weight("u1", "r1"); got != 0.5 {
		t.Errorf("zero weight should be filled from action: got %v", got)
	}
	if got := m.Weight("nobody", "p1"); got != 0 {
		t.Errorf("unknown user weight = %v", got)
	}

	again := BuildInteractionMatrix(log, w)
	if !reflect.DeepEqual(m.UserIndex, again.UserIndex) || !reflect.DeepEqual(m.ItemIndex, again.ItemIndex) {
		t.Error("rebuilding from the same log produced different indices")
	}

	empty := BuildInteractionMatrix(nil, nil)
	if empty.NumUsers() != 0 || !empty.IsZero() {
		t.Error("empty log should give an empty matrix")
	}
}

func TestNewInteractionMatrix(t *testing.T) {
	tests := []struct {
		name  string
		users []string
		items []string
		rows  [][]float64
		ok    bool
	}{
		{"valid", []string{"a", "b"}, []string{"x"}, [][]float64{{1}, {0}}, true},
		{"row count", []string{"a", "b"}, []string{"x"}, [][]float64{{1}}, false},
		{"column count", []string{"a"}, []string{"x", "y"}, [][]float64{{1}}, false},
		{"duplicate user", []string{"a", "a"}, []string{"x"}, [][]float64{{1}, {1}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewInteractionMatrix(tt.users, tt.items, tt.rows)
			if tt.ok && err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if !tt.ok && !errors.Is(err, core.ErrShapeMismatch) {
				t.Fatalf("error = %v, want ErrShapeMismatch", err)
			}
		})
	}
}

func TestCosine(t *testing.T) {
	a := NewSparseVector(map[int]float64{0: 1, 2: 1})
	b := NewSparseVector(map[int]float64{0: 1})
	if got := Cosine(a, b); math.Abs(got-1/math.Sqrt2) > eps {
		t.Errorf("Cosine() = %v", got)
	}
	if got := Cosine(a, SparseVector{}); got != 0 {
		t.Errorf("Cosine with zero vector = %v, want 0", got)
	}
	if got := CosineDense([]float64{0, 0}, []float64{1, 1}); got != 0 {
		t.Errorf("CosineDense with zero vector = %v, want 0", got)
	}
	if got := CosineDense([]float64{math.NaN(), 1}, []float64{1, 1}); got != 0 {
		t.Errorf("CosineDense with NaN = %v, want 0", got)
	}
}
