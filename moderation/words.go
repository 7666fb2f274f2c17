package moderation

// defaultWords is the built-in denylist: advertising, solicitation, adult content,
// violence, politics, cults, gambling and drugs.
var defaultWords = []string{
	"垃圾", "广告", "推广", "加微信", "加QQ", "刷单", "兼职", "赚钱",
	"色情", "暴力", "政治", "反动", "邪教", "赌博", "毒品",
	"spam",
}

// DefaultWords returns a copy of the built-in denylist.
func DefaultWords() []string {
	out := make([]string, len(defaultWords))
	copy(out, defaultWords)
	return out
}
