package shape

// TypeMap returns a fresh default node for every kind a user can pick.
// Structural entries are new values on every call, so callers may mutate them.
func TypeMap() map[string]Node {
	return map[string]Node{
		KindString:  Primitive(KindString),
		KindNumber:  Primitive(KindNumber),
		KindBoolean: Primitive(KindBoolean),
		KindObject:  MakeObject(),
		KindArray:   MakeArray(DefaultType),
		KindTuple:   MakeTuple(1),
	}
}

var kindLabels = map[string]map[string]string{
	"zh-CN": {
		KindString:  "字符串",
		KindNumber:  "数字",
		KindBoolean: "布尔值",
		KindObject:  "对象",
		KindArray:   "数组",
		KindTuple:   "元组",
	},
	"en": {
		KindString:  "string",
		KindNumber:  "number",
		KindBoolean: "boolean",
		KindObject:  "object",
		KindArray:   "array",
		KindTuple:   "tuple",
	},
}

// KindLabel returns the display label of a kind, falling back to English and
// then to the kind itself.
func KindLabel(locale, kind string) string {
	if labels, ok := kindLabels[locale]; ok {
		if l, ok := labels[kind]; ok {
			return l
		}
	}
	if l, ok := kindLabels["en"][kind]; ok {
		return l
	}
	return kind
}
