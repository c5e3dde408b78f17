package feature

import (
	"strings"
	"unicode"
)

// englishStopWords 是英文停用词表（与常见 TF-IDF 实现的 english 列表一致）。
var englishStopWords = toSet(strings.Fields(`
a about above across after afterwards again against all almost alone along already also although always
am among amongst amoungst amount an and another any anyhow anyone anything anyway anywhere are around as
at back be became because become becomes becoming been before beforehand behind being below beside besides
between beyond bill both bottom but by call can cannot cant co con could couldnt cry de describe detail do
done down due during each eg eight either eleven else elsewhere empty enough etc even ever every everyone
everything everywhere except few fifteen fifty fill find fire first five for former formerly forty found
four from front full further get give go had has hasnt have he hence her here hereafter hereby herein
hereupon hers herself him himself his how however hundred i ie if in inc indeed interest into is it its
itself keep last latter latterly least less ltd made many may me meanwhile might mill mine more moreover
most mostly move much must my myself name namely neither never nevertheless next nine no nobody none noone
nor not nothing now nowhere of off often on once one only onto or other others otherwise our ours ourselves
out over own part per perhaps please put rather re same see seem seemed seeming seems serious several she
should show side since sincere six sixty so some somehow someone something sometime sometimes somewhere
still such system take ten than that the their them themselves then thence there thereafter thereby
therefore therein thereupon these they thick thin third this those though three through throughout thru
thus to together too top toward towards twelve twenty two un under until up upon us very via was we well
were what whatever when whence whenever where whereafter whereas whereby wherein whereupon wherever whether
which while whither who whoever whole whom whose why will with within without would yet you your yours
yourself yourselves
`))

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// IsStopWord 判断是否为英文停用词（输入需已小写）。
func IsStopWord(word string) bool {
	_, ok := englishStopWords[word]
	return ok
}

// Words 将文本小写后按非字母/数字/下划线切分，保留长度 >= 2 的词，不去停用词。
// 话题标签的 '#' 被当作分隔符，"#travel" 得到 "travel"。
func Words(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) < 2 {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Tokenize 是 TF-IDF 使用的分词：Words 之后去掉英文停用词。
func Tokenize(text string) []string {
	words := Words(text)
	out := words[:0]
	for _, w := range words {
		if IsStopWord(w) {
			continue
		}
		out = append(out, w)
	}
	return out
}

// 话题标签建议的数量限制。
const (
	MaxCaptionHashtags   = 3
	MaxSuggestedHashtags = 8
)

// SuggestHashtags 从 caption 与媒体识别标签中生成话题标签建议。
//
// caption 中长度 > 3 的纯字母词按出现顺序取前 3 个，之后追加媒体标签，
// 全部小写并加 '#' 前缀，去重后最多返回 8 个。
func SuggestHashtags(caption string, mediaLabels []string) []string {
	out := make([]string, 0, MaxSuggestedHashtags)
	seen := make(map[string]struct{}, MaxSuggestedHashtags)
	push := func(word string) {
		tag := "#" + word
		if _, ok := seen[tag]; ok || len(out) >= MaxSuggestedHashtags {
			return
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}

	fields := strings.FieldsFunc(strings.ToLower(caption), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	taken := 0
	for _, f := range fields {
		if taken == MaxCaptionHashtags {
			break
		}
		if len([]rune(f)) <= 3 || !isAlpha(f) {
			continue
		}
		push(f)
		taken++
	}

	for _, label := range mediaLabels {
		word := strings.ToLower(strings.Join(strings.Fields(strings.TrimPrefix(label, "#")), ""))
		if word == "" {
			continue
		}
		push(word)
	}
	return out
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
