package moderation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsSensitiveWords(t *testing.T) {
	c := NewClassifier()

	assert.True(t, c.ContainsSensitiveWords("这是垃圾评论"))
	assert.True(t, c.ContainsSensitiveWords("buy SPAM now"))
	assert.True(t, c.ContainsSensitiveWords("请加qq联系"))
	assert.False(t, c.ContainsSensitiveWords("写得很好，学到了"))
	assert.False(t, c.ContainsSensitiveWords(""))
}

func TestNewClassifier_ExtraWords(t *testing.T) {
	c := NewClassifier("  Casino ", "", "spam")

	assert.True(t, c.ContainsSensitiveWords("best casino in town"))
	assert.Equal(t, len(DefaultWords())+1, len(c.Words()))
}

func TestEvaluate_Length(t *testing.T) {
	c := NewClassifier()

	v := c.Evaluate(Input{Content: "a"})
	assert.True(t, v.Spam)
	assert.Equal(t, "length", v.Rule)

	assert.False(t, c.IsSpam("ab", "bob", ""))
	assert.False(t, c.IsSpam(strings.Repeat("ab", 500), "bob", ""))

	v = c.Evaluate(Input{Content: strings.Repeat("ab", 500) + "c"})
	assert.Equal(t, "length", v.Rule)
}

func TestEvaluate_LengthCountsCharacters(t *testing.T) {
	c := NewClassifier()
	// 1000 CJK characters are 3000 bytes but within the limit.
	content := strings.Repeat("好文章", 333) + "好"
	assert.False(t, c.IsSpam(content, "读者", ""))
}

func TestEvaluate_SensitiveContent(t *testing.T) {
	v := NewClassifier().Evaluate(Input{Content: "欢迎加微信了解", Author: "bob"})
	assert.Equal(t, Verdict{Spam: true, Rule: "sensitive_content", Reason: "content contains sensitive words"}, v)
}

func TestEvaluate_CharFlood(t *testing.T) {
	c := NewClassifier()

	assert.False(t, c.IsSpam("wow"+strings.Repeat("!", 10), "bob", ""))

	v := c.Evaluate(Input{Content: "wow" + strings.Repeat("!", 11), Author: "bob"})
	assert.Equal(t, "char_flood", v.Rule)
}

func TestEvaluate_Links(t *testing.T) {
	c := NewClassifier()

	two := "see http://a.example and https://b.example"
	assert.False(t, c.IsSpam(two, "bob", ""))

	v := c.Evaluate(Input{Content: two + " and http://c.example", Author: "bob"})
	assert.Equal(t, "too_many_links", v.Rule)
}

func TestEvaluate_SensitiveAuthor(t *testing.T) {
	v := NewClassifier().Evaluate(Input{Content: "nice post", Author: "赌博达人"})
	assert.Equal(t, "sensitive_author", v.Rule)
}

func TestEvaluate_FirstMatchWins(t *testing.T) {
	// too long and full of sensitive words: length is checked first
	v := NewClassifier().Evaluate(Input{Content: strings.Repeat("垃圾", 600), Author: "广告"})
	assert.Equal(t, "length", v.Rule)
}

func TestEvaluate_Clean(t *testing.T) {
	assert.Equal(t, Verdict{}, NewClassifier().Evaluate(Input{Content: "Great write-up, thanks!", Author: "alice"}))
}

func TestDefaultRules_Order(t *testing.T) {
	rules := DefaultRules(NewClassifier())
	names := make([]string, 0, len(rules))
	for _, r := range rules {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"length", "sensitive_content", "char_flood", "too_many_links", "sensitive_author"}, names)
}

func TestHasCharFlood(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"empty", "", false},
		{"ten", strings.Repeat("a", 10), false},
		{"eleven", strings.Repeat("a", 11), true},
		{"broken run", strings.Repeat("a", 6) + "b" + strings.Repeat("a", 6), false},
		{"multibyte", strings.Repeat("哈", 11), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasCharFlood(tt.in))
		})
	}
}

func TestMask(t *testing.T) {
	c := NewClassifier()

	assert.Equal(t, "这是**评论", c.Mask("这是垃圾评论"))
	assert.Equal(t, "no **** here, ****", c.Mask("no SPAM here, spam"))
	assert.Equal(t, "clean text", c.Mask("clean text"))
}
